package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/sandeepkv93/salahd/internal/app"
	"github.com/sandeepkv93/salahd/internal/backup"
	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/notify"
	"github.com/sandeepkv93/salahd/internal/stats"
)

type View string

const (
	ViewToday   View = "Today"
	ViewStats   View = "Stats"
	ViewPending View = "Pending"
)

type Backend interface {
	Today(ctx context.Context) (app.TodayView, error)
	Sync(ctx context.Context) error
	MarkPrayer(ctx context.Context, date string, prayer model.PrayerName, completed bool) error
	Statistics(ctx context.Context) (stats.Summary, error)
	Pending(ctx context.Context) ([]model.NotificationEvent, error)
	NotificationSettings(ctx context.Context) (model.NotificationSettings, error)
	UpdateSettings(ctx context.Context, ns model.NotificationSettings) error
	SetLocation(ctx context.Context, loc model.Location) error
	Backup(ctx context.Context) (backup.Snapshot, error)
	Restore(ctx context.Context) (backup.RestoreResult, error)
}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Today   string
	Stats   string
	Pending string
	Toggle  string
	Sync    string
	Help    string
	Quit    string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type Model struct {
	CurrentView   View
	Today         app.TodayView
	Loaded        bool
	Summary       stats.Summary
	Pending       []model.NotificationEvent
	Cursor        int
	Palette       CommandPaletteState
	HelpVisible   bool
	Notifications []Notification
	Detail        string
	Status        StatusBar
	Keys          GlobalKeyMap
	Quitting      bool
	LastError     error
	Now           time.Time

	backend    Backend
	ctx        context.Context
	deliveries <-chan notify.Payload
	clock      func() time.Time

	commandInput  textinput.Model
	dayProgress   progress.Model
	syncSpinner   spinner.Model
	helpModel     help.Model
	spinnerActive bool
}

type Option func(*Model)

func WithDeliveries(ch <-chan notify.Payload) Option {
	return func(m *Model) { m.deliveries = ch }
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.clock = now }
}

type TodayLoadedMsg struct {
	View app.TodayView
	Err  error
}

type StatsLoadedMsg struct {
	Summary stats.Summary
	Err     error
}

type PendingLoadedMsg struct {
	Events []model.NotificationEvent
	Err    error
}

type CommandDoneMsg struct {
	Message  string
	Markdown string
	Err      error
}

type DeliveryMsg struct {
	Payload notify.Payload
}

type TickMsg struct {
	At time.Time
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

func NewModel(ctx context.Context, backend Backend, opts ...Option) Model {
	m := Model{
		CurrentView: ViewToday,
		backend:     backend,
		ctx:         ctx,
		clock:       time.Now,
		Keys: GlobalKeyMap{
			Today:   "1",
			Stats:   "2",
			Pending: "3",
			Toggle:  " ",
			Sync:    "S",
			Help:    "?",
			Quit:    "q",
		},
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.Now = m.clock()
	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 128
	m.commandInput.Width = 48

	m.dayProgress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(36))
	m.syncSpinner = spinner.New()
	m.syncSpinner.Spinner = spinner.Dot
	m.helpModel = help.New()
}

func (m Model) selectedPrayer() model.PrayerName {
	if m.Cursor < 0 || m.Cursor >= len(model.DailyPrayers) {
		return model.DailyPrayers[0]
	}
	return model.DailyPrayers[m.Cursor]
}
