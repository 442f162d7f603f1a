package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/salahd/internal/views"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadToday(), m.loadStats(), m.loadPending(), tickCmd(), m.waitForDelivery())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.SetValue("")
			m.commandInput.Focus()
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Today:
			m.CurrentView = ViewToday
			return m, m.loadToday()
		case m.Keys.Stats:
			m.CurrentView = ViewStats
			return m, m.loadStats()
		case m.Keys.Pending:
			m.CurrentView = ViewPending
			return m, m.loadPending()
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		case m.Keys.Sync:
			if m.spinnerActive {
				return m, nil
			}
			m.spinnerActive = true
			m.Status = StatusBar{Text: "sync started"}
			return m, tea.Batch(m.syncSpinner.Tick, m.runSync())
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		if m.CurrentView == ViewToday {
			return m.handleTodayKey(typed)
		}
	case spinner.TickMsg:
		if m.spinnerActive {
			var cmd tea.Cmd
			m.syncSpinner, cmd = m.syncSpinner.Update(typed)
			return m, cmd
		}
	case TickMsg:
		prev := m.Now
		m.Now = typed.At
		if m.Loaded && (prev.Minute() != typed.At.Minute() || prev.YearDay() != typed.At.YearDay()) {
			return m, tea.Batch(tickCmd(), m.loadToday())
		}
		return m, tickCmd()
	case TodayLoadedMsg:
		if typed.Err != nil {
			return m.fail(typed.Err), nil
		}
		m.Today = typed.View
		m.Loaded = true
		return m, nil
	case StatsLoadedMsg:
		if typed.Err != nil {
			return m.fail(typed.Err), nil
		}
		m.Summary = typed.Summary
		return m, nil
	case PendingLoadedMsg:
		if typed.Err != nil {
			return m.fail(typed.Err), nil
		}
		m.Pending = typed.Events
		return m, nil
	case CommandDoneMsg:
		m.spinnerActive = false
		if typed.Err != nil {
			m = m.fail(typed.Err)
			m.notify("Command Failed", typed.Err.Error(), "error")
			return m, nil
		}
		m.Status = StatusBar{Text: typed.Message}
		if typed.Markdown != "" {
			m.Detail = typed.Markdown
		}
		m.notify("Command", typed.Message, "info")
		return m, m.refresh()
	case DeliveryMsg:
		m.notify(typed.Payload.Title, typed.Payload.Body, "reminder")
		m.Status = StatusBar{Text: typed.Payload.Title}
		return m, tea.Batch(m.waitForDelivery(), m.loadPending())
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		if typed.Err != nil {
			return m.fail(typed.Err), nil
		}
		return m, nil
	}
	return m, nil
}

func (m Model) fail(err error) Model {
	m.LastError = err
	m.Status = StatusBar{Text: err.Error(), IsError: true}
	return m
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	if m.spinnerActive {
		status = strings.TrimSpace(status + " " + m.syncSpinner.View())
	}

	leftPane := m.renderPrayerView()
	rightPane := ""
	switch m.CurrentView {
	case ViewToday:
		rightPane = m.renderContentView()
	case ViewStats:
		rightPane = m.renderStatsView()
	case ViewPending:
		rightPane = m.renderPendingView()
	}
	if m.Palette.Active {
		rightPane = m.renderCommandPalette() + "\n\n" + rightPane
	}
	rightPane += m.renderHelpIfVisible()

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("salahd | %s", m.Now.Format("Mon 02 Jan 15:04:05")),
		Tabs:         []string{string(ViewToday), string(ViewStats), string(ViewPending)},
		ActiveTab:    string(m.CurrentView),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: m.renderNotificationsView(),
		Footer: fmt.Sprintf("keys: %s today | %s stats | %s pending | j/k select | space mark | %s sync | / cmd | %s help | %s quit",
			m.Keys.Today, m.Keys.Stats, m.Keys.Pending, m.Keys.Sync, m.Keys.Help, m.Keys.Quit),
	})
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return TickMsg{At: t} })
}
