package update

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/salahd/internal/model"
)

func (m Model) handleTodayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(model.DailyPrayers)-1 {
			m.Cursor++
		}
	case m.Keys.Toggle, "enter", "x":
		if !m.Loaded {
			return m, nil
		}
		prayer := m.selectedPrayer()
		done := !m.Today.Record.Prayers.Get(prayer)
		return m, m.runMark(prayer, done)
	}
	return m, nil
}

func (m Model) runMark(prayer model.PrayerName, completed bool) tea.Cmd {
	backend, ctx := m.backend, m.ctx
	date := m.Today.Date
	return func() tea.Msg {
		if err := backend.MarkPrayer(ctx, date, prayer, completed); err != nil {
			return CommandDoneMsg{Err: err}
		}
		verb := "marked"
		if !completed {
			verb = "unmarked"
		}
		return CommandDoneMsg{Message: fmt.Sprintf("%s %s", verb, prayer.Title())}
	}
}

func (m Model) runSync() tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		if err := backend.Sync(ctx); err != nil {
			return CommandDoneMsg{Err: err}
		}
		return CommandDoneMsg{Message: "sync complete"}
	}
}

func (m Model) loadToday() tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		v, err := backend.Today(ctx)
		return TodayLoadedMsg{View: v, Err: err}
	}
}

func (m Model) loadStats() tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		s, err := backend.Statistics(ctx)
		return StatsLoadedMsg{Summary: s, Err: err}
	}
}

func (m Model) loadPending() tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		evs, err := backend.Pending(ctx)
		return PendingLoadedMsg{Events: evs, Err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	return tea.Batch(m.loadToday(), m.loadStats(), m.loadPending())
}

func (m Model) waitForDelivery() tea.Cmd {
	ch := m.deliveries
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return DeliveryMsg{Payload: p}
	}
}
