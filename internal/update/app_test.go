package update

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/salahd/internal/app"
	"github.com/sandeepkv93/salahd/internal/backup"
	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/notify"
	"github.com/sandeepkv93/salahd/internal/stats"
)

type markCall struct {
	date      string
	prayer    model.PrayerName
	completed bool
}

type fakeBackend struct {
	today    app.TodayView
	summary  stats.Summary
	pending  []model.NotificationEvent
	settings model.NotificationSettings
	marks    []markCall
	syncs    int
	markErr  error
}

func (f *fakeBackend) Today(context.Context) (app.TodayView, error) { return f.today, nil }
func (f *fakeBackend) Sync(context.Context) error {
	f.syncs++
	return nil
}
func (f *fakeBackend) MarkPrayer(_ context.Context, date string, p model.PrayerName, completed bool) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marks = append(f.marks, markCall{date: date, prayer: p, completed: completed})
	return nil
}
func (f *fakeBackend) Statistics(context.Context) (stats.Summary, error) { return f.summary, nil }
func (f *fakeBackend) Pending(context.Context) ([]model.NotificationEvent, error) {
	return f.pending, nil
}
func (f *fakeBackend) NotificationSettings(context.Context) (model.NotificationSettings, error) {
	return f.settings, nil
}
func (f *fakeBackend) UpdateSettings(_ context.Context, ns model.NotificationSettings) error {
	f.settings = ns
	return nil
}
func (f *fakeBackend) SetLocation(context.Context, model.Location) error { return nil }
func (f *fakeBackend) Backup(context.Context) (backup.Snapshot, error) {
	return backup.Snapshot{ID: "snap"}, nil
}
func (f *fakeBackend) Restore(context.Context) (backup.RestoreResult, error) {
	return backup.RestoreResult{SnapshotID: "snap", Records: 3}, nil
}

var noon = time.Date(2024, 6, 10, 13, 0, 0, 0, time.UTC)

func newFake() *fakeBackend {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }
	rec := model.NewCompletionRecord("2024-06-10")
	_ = rec.Prayers.Set(model.Fajr, true)
	return &fakeBackend{
		today: app.TodayView{
			Date: "2024-06-10",
			Instants: model.PrayerInstants{
				Date: "2024-06-10", Fajr: at(4, 0), Sunrise: at(5, 30), Dhuhr: at(12, 30),
				Asr: at(16, 0), Maghrib: at(19, 0), Isha: at(20, 30),
			},
			Source:     "network",
			Current:    model.Dhuhr,
			HasCurrent: true,
			Next:       model.Asr,
			Record:     rec,
		},
		settings: model.DefaultNotificationSettings(),
	}
}

func loaded(t *testing.T, f *fakeBackend) Model {
	t.Helper()
	m := NewModel(context.Background(), f, WithClock(func() time.Time { return noon }))
	updated, _ := m.Update(TodayLoadedMsg{View: f.today})
	return updated.(Model)
}

func press(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		var updated tea.Model
		if r == ' ' {
			updated, _ = m.Update(press(" "))
		} else {
			updated, _ = m.Update(press(string(r)))
		}
		m = updated.(Model)
	}
	return m
}

func TestNewModelDefaults(t *testing.T) {
	m := NewModel(context.Background(), newFake())
	if m.CurrentView != ViewToday {
		t.Fatalf("expected default view %q, got %q", ViewToday, m.CurrentView)
	}
	if m.Keys.Quit != "q" || m.Loaded {
		t.Fatalf("unexpected defaults: %+v", m.Keys)
	}
	if !strings.Contains(m.View(), "loading prayer times") {
		t.Fatal("expected loading placeholder before the first load")
	}
}

func TestUpdateKeySwitchesView(t *testing.T) {
	m := loaded(t, newFake())
	updated, cmd := m.Update(press("2"))
	next := updated.(Model)
	if next.CurrentView != ViewStats || cmd == nil {
		t.Fatalf("expected stats view with a load command, got %q", next.CurrentView)
	}
	updated, _ = next.Update(press("3"))
	if updated.(Model).CurrentView != ViewPending {
		t.Fatalf("expected pending view, got %q", updated.(Model).CurrentView)
	}
}

func TestToggleMarksSelectedPrayer(t *testing.T) {
	f := newFake()
	m := loaded(t, f)

	updated, _ := m.Update(press("j"))
	m = updated.(Model)
	if m.selectedPrayer() != model.Dhuhr {
		t.Fatalf("expected dhuhr selected, got %s", m.selectedPrayer())
	}

	_, cmd := m.Update(press(" "))
	if cmd == nil {
		t.Fatal("expected mark command")
	}
	msg := cmd().(CommandDoneMsg)
	if msg.Err != nil || len(f.marks) != 1 {
		t.Fatalf("unexpected mark result %+v calls=%v", msg, f.marks)
	}
	if got := f.marks[0]; got.prayer != model.Dhuhr || !got.completed || got.date != "2024-06-10" {
		t.Fatalf("unexpected mark call %+v", got)
	}

	updated, _ = m.Update(press("k"))
	_, cmd = updated.(Model).Update(press("x"))
	cmd()
	if got := f.marks[1]; got.prayer != model.Fajr || got.completed {
		t.Fatalf("expected fajr to be un-marked, got %+v", got)
	}
}

func TestCommandDoneUpdatesStatus(t *testing.T) {
	m := loaded(t, newFake())
	updated, cmd := m.Update(CommandDoneMsg{Message: "marked Dhuhr"})
	next := updated.(Model)
	if next.Status.Text != "marked Dhuhr" || next.Status.IsError || cmd == nil {
		t.Fatalf("unexpected status %+v", next.Status)
	}

	updated, _ = next.Update(CommandDoneMsg{Err: model.ErrPrematureMark})
	next = updated.(Model)
	if !next.Status.IsError || !errors.Is(next.LastError, model.ErrPrematureMark) {
		t.Fatalf("expected error status, got %+v", next.Status)
	}
	if len(next.Notifications) != 2 || next.Notifications[1].Level != "error" {
		t.Fatalf("unexpected notification log %+v", next.Notifications)
	}
}

func TestPaletteRemindCommand(t *testing.T) {
	f := newFake()
	m := loaded(t, f)
	updated, _ := m.Update(press("/"))
	m = updated.(Model)
	if !m.Palette.Active {
		t.Fatal("expected palette active")
	}
	m = typeText(m, "remind 10 20")
	updated, cmd := m.Update(press("enter"))
	m = updated.(Model)
	if m.Palette.Active || cmd == nil {
		t.Fatal("expected palette closed with a command")
	}
	done := cmd().(CommandDoneMsg)
	if done.Err != nil {
		t.Fatalf("remind failed: %v", done.Err)
	}
	if f.settings.MinutesBefore != 10 || f.settings.ReminderInterval != 20 || !f.settings.Enabled {
		t.Fatalf("unexpected settings %+v", f.settings)
	}
}

func TestPaletteParseError(t *testing.T) {
	m := loaded(t, newFake())
	updated, _ := m.Update(press("/"))
	m = typeText(updated.(Model), "mark sunrise")
	updated, cmd := m.Update(press("enter"))
	next := updated.(Model)
	if cmd != nil || !next.Status.IsError {
		t.Fatalf("expected parse error status, got %+v", next.Status)
	}
}

func TestPaletteShowStatsSwitchesView(t *testing.T) {
	f := newFake()
	f.summary = stats.Summary{Today: 0.2, Streak: model.PrayerStreak{Current: 3, Longest: 7}}
	m := loaded(t, f)
	updated, _ := m.Update(press("/"))
	m = typeText(updated.(Model), "show stats")
	updated, cmd := m.Update(press("enter"))
	m = updated.(Model)
	if m.CurrentView != ViewStats {
		t.Fatalf("expected stats view, got %q", m.CurrentView)
	}
	done := cmd().(CommandDoneMsg)
	if !strings.Contains(done.Markdown, "Streak") {
		t.Fatalf("expected stats report, got %q", done.Markdown)
	}
}

func TestDeliveryAppendsNotification(t *testing.T) {
	ch := make(chan notify.Payload, 1)
	m := NewModel(context.Background(), newFake(), WithDeliveries(ch), WithClock(func() time.Time { return noon }))
	ch <- notify.Payload{Title: "Asr in 15 minutes", Body: "Asr starts at 16:00"}
	msg := m.waitForDelivery()()
	updated, cmd := m.Update(msg)
	next := updated.(Model)
	if len(next.Notifications) != 1 || next.Status.Text != "Asr in 15 minutes" || cmd == nil {
		t.Fatalf("unexpected delivery handling %+v", next.Notifications)
	}
}

func TestViewRendersPrayersAndCountdown(t *testing.T) {
	m := loaded(t, newFake())
	out := m.View()
	for _, want := range []string{"2024-06-10", "dhuhr", "Asr in 3h00m", "[x] fajr"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
}

func TestTickReloadsOnMinuteChange(t *testing.T) {
	m := loaded(t, newFake())
	_, cmd := m.Update(TickMsg{At: noon.Add(30 * time.Second)})
	if cmd == nil {
		t.Fatal("expected the next tick")
	}
	updated, _ := m.Update(TickMsg{At: noon.Add(time.Minute)})
	if !updated.(Model).Now.Equal(noon.Add(time.Minute)) {
		t.Fatal("expected clock to advance")
	}
}

func TestQuitKey(t *testing.T) {
	m := loaded(t, newFake())
	updated, cmd := m.Update(press("q"))
	if !updated.(Model).Quitting || cmd == nil {
		t.Fatal("expected quit")
	}
}

func TestFormatCountdown(t *testing.T) {
	cases := map[time.Duration]string{
		3 * time.Hour:                 "3h00m",
		90 * time.Second:              "01:30",
		-time.Second:                  "00:00",
		time.Hour + 5*time.Minute + 1: "1h05m",
	}
	for d, want := range cases {
		if got := formatCountdown(d); got != want {
			t.Fatalf("formatCountdown(%v) = %q, want %q", d, got, want)
		}
	}
}
