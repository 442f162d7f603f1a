package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/salahd/internal/clock"
	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/stats"
	"github.com/sandeepkv93/salahd/internal/views"
)

const notificationLogSize = 40

func (m Model) renderPrayerView() string {
	if !m.Loaded {
		return "loading prayer times..."
	}
	t := m.Today
	rows := make([]views.PrayerRowData, 0, len(model.DailyPrayers))
	for i, p := range model.DailyPrayers {
		at, _ := t.Instants.At(p)
		rows = append(rows, views.PrayerRowData{
			Name:     string(p),
			Time:     at.Format("15:04"),
			Done:     t.Record.Prayers.Get(p),
			Current:  t.HasCurrent && t.Current == p,
			Next:     t.Next == p && !(t.HasCurrent && t.Current == p),
			Selected: i == m.Cursor,
		})
	}
	data := views.PrayerPanelData{
		Date:     t.Date,
		Source:   string(t.Source),
		Stale:    t.Stale,
		Rows:     rows,
		Progress: m.dayProgress.ViewAs(float64(t.Record.CompletedCount()) / float64(len(model.DailyPrayers))),
	}
	if !t.Instants.Sunrise.IsZero() {
		data.Sunrise = t.Instants.Sunrise.Format("15:04")
	}
	if next, d, ok := clock.Until(t.Instants, m.Now); ok && t.Date == model.DateKey(m.Now) {
		data.Countdown = fmt.Sprintf("%s in %s", next.Title(), formatCountdown(d))
	}
	return views.RenderPrayerPanel(data)
}

func (m Model) renderContentView() string {
	if m.Detail != "" {
		return views.RenderMarkdown(m.Detail, views.PaneWidth())
	}
	if !m.Loaded || m.Today.Content == nil {
		return ""
	}
	return views.RenderMarkdown(m.Today.Content.Markdown(), views.PaneWidth())
}

func (m Model) renderStatsView() string {
	s := m.Summary
	return views.RenderStatsPanel(views.StatsPanelData{
		TodayPct:     percent(s.Today),
		WeekPct:      percent(s.Week.Rate),
		MonthPct:     percent(s.Month.Rate),
		WeekDetail:   fmt.Sprintf("(%d/%d)", s.Week.Completed, s.Week.Possible),
		MonthDetail:  fmt.Sprintf("(%d/%d)", s.Month.Completed, s.Month.Possible),
		Current:      s.Streak.Current,
		Longest:      s.Streak.Longest,
		LastComplete: s.Streak.LastCompletedDate,
		ProgressView: m.dayProgress.ViewAs(s.Week.Rate),
		ReportView:   views.RenderMarkdown(statsMarkdown(s), views.PaneWidth()),
	})
}

func (m Model) renderPendingView() string {
	rows := make([]views.PendingRowData, 0, len(m.Pending))
	for _, ev := range m.Pending {
		rows = append(rows, views.PendingRowData{
			ID:      ev.ID,
			Prayer:  string(ev.Prayer),
			Kind:    string(ev.Kind),
			FiresAt: ev.FiresAt.In(m.Now.Location()).Format("15:04"),
		})
	}
	return views.RenderPendingPanel(rows)
}

func (m Model) renderCommandPalette() string {
	return views.RenderCommandPalette(m.Palette.Active, m.commandInput.View())
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	body := n.Body
	if n.Title != "" && n.Title != "Command" {
		body = n.Title + ": " + body
	}
	return views.RenderNotification(n.Level, body)
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	m.Notifications = append(m.Notifications, Notification{
		Title: title,
		Body:  body,
		Level: level,
		At:    m.clock(),
	})
	if len(m.Notifications) > notificationLogSize {
		m.Notifications = m.Notifications[len(m.Notifications)-notificationLogSize:]
	}
}

func statsMarkdown(s stats.Summary) string {
	var b strings.Builder
	b.WriteString("## Progress\n\n")
	b.WriteString("| period | completed | rate |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| today | %d/5 | %d%% |\n", int(s.Today*5+0.5), percent(s.Today))
	fmt.Fprintf(&b, "| week from %s | %d/%d | %d%% |\n", s.Week.Start, s.Week.Completed, s.Week.Possible, percent(s.Week.Rate))
	fmt.Fprintf(&b, "| month from %s | %d/%d | %d%% |\n", s.Month.Start, s.Month.Completed, s.Month.Possible, percent(s.Month.Rate))
	fmt.Fprintf(&b, "\n**Streak:** %d day(s), longest %d", s.Streak.Current, s.Streak.Longest)
	return b.String()
}

func percent(r float64) int {
	return int(r*100 + 0.5)
}

func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	mins := int(d%time.Hour) / int(time.Minute)
	secs := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, mins)
	}
	return fmt.Sprintf("%02d:%02d", mins, secs)
}
