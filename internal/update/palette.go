package update

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/salahd/internal/commands"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m = m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	default:
		if msg.Type == tea.KeySpace {
			m.commandInput.SetValue(m.commandInput.Value() + " ")
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		}
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
		return m, cmd
	}
}

func (m Model) closePalette() Model {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
	return m
}

func (m Model) executePaletteCommand() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m = m.closePalette()
	cmd, err := commands.Parse(raw)
	if err != nil {
		return m.fail(err), nil
	}
	if cmd.Type == commands.TypeShow {
		switch cmd.Show.Subject {
		case commands.ShowToday:
			m.CurrentView = ViewToday
		case commands.ShowStats:
			m.CurrentView = ViewStats
		case commands.ShowPending:
			m.CurrentView = ViewPending
		}
	}
	if cmd.Type == commands.TypeSync {
		m.spinnerActive = true
	}

	handlers := m.handlers()
	ctx := m.ctx
	return m, func() tea.Msg {
		res, err := commands.Execute(ctx, cmd, handlers)
		return CommandDoneMsg{Message: res.Message, Markdown: res.Markdown, Err: err}
	}
}

// handlers only capture the backend so they are safe to run off the
// update loop.
func (m Model) handlers() commands.Handlers {
	backend := m.backend
	return commands.Handlers{
		Mark: func(ctx context.Context, a commands.MarkArgs) (commands.Result, error) {
			if err := backend.MarkPrayer(ctx, a.Date, a.Prayer, a.Completed); err != nil {
				return commands.Result{}, err
			}
			verb := "marked"
			if !a.Completed {
				verb = "unmarked"
			}
			when := a.Date
			if when == "" {
				when = "today"
			}
			return commands.Result{Message: fmt.Sprintf("%s %s for %s", verb, a.Prayer.Title(), when)}, nil
		},
		Show: func(ctx context.Context, s commands.ShowArgs) (commands.Result, error) {
			switch s.Subject {
			case commands.ShowStats:
				summary, err := backend.Statistics(ctx)
				if err != nil {
					return commands.Result{}, err
				}
				return commands.Result{Message: "statistics refreshed", Markdown: statsMarkdown(summary)}, nil
			case commands.ShowPending:
				evs, err := backend.Pending(ctx)
				if err != nil {
					return commands.Result{}, err
				}
				return commands.Result{Message: fmt.Sprintf("%d pending notification(s)", len(evs))}, nil
			default:
				return commands.Result{Message: "today refreshed"}, nil
			}
		},
		Sync: func(ctx context.Context) (commands.Result, error) {
			if err := backend.Sync(ctx); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: "sync complete"}, nil
		},
		Remind: func(ctx context.Context, r commands.RemindArgs) (commands.Result, error) {
			ns, err := backend.NotificationSettings(ctx)
			if err != nil {
				return commands.Result{}, err
			}
			ns.Enabled = r.Enabled
			if !r.Toggle {
				ns.MinutesBefore = r.MinutesBefore
				ns.ReminderInterval = r.ReminderInterval
			}
			if err := backend.UpdateSettings(ctx, ns); err != nil {
				return commands.Result{}, err
			}
			if !ns.Enabled {
				return commands.Result{Message: "notifications off"}, nil
			}
			return commands.Result{Message: fmt.Sprintf("notifications on: %dm before, every %dm", ns.MinutesBefore, ns.ReminderInterval)}, nil
		},
		Location: func(ctx context.Context, l commands.LocationArgs) (commands.Result, error) {
			if err := backend.SetLocation(ctx, l.Location); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("location set to %.4f, %.4f", l.Location.Latitude, l.Location.Longitude)}, nil
		},
		Backup: func(ctx context.Context) (commands.Result, error) {
			snap, err := backend.Backup(ctx)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("backup %s saved (%d days)", snap.ID, len(snap.Prayers))}, nil
		},
		Restore: func(ctx context.Context) (commands.Result, error) {
			res, err := backend.Restore(ctx)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("restored %s (%d days)", res.SnapshotID, res.Records)}, nil
		},
	}
}
