package views

import (
	"fmt"
	"strings"
)

type PrayerRowData struct {
	Name     string
	Time     string
	Done     bool
	Current  bool
	Next     bool
	Selected bool
}

type PrayerPanelData struct {
	Date      string
	Source    string
	Stale     bool
	Sunrise   string
	Rows      []PrayerRowData
	Countdown string
	Progress  string
}

type StatsPanelData struct {
	TodayPct     int
	WeekPct      int
	MonthPct     int
	WeekDetail   string
	MonthDetail  string
	Current      int
	Longest      int
	LastComplete string
	ProgressView string
	ReportView   string
}

type PendingRowData struct {
	ID      string
	Prayer  string
	Kind    string
	FiresAt string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

var (
	currentStyle  = headerStyle
	selectedStyle = statusStyle
	mutedStyle    = footerStyle
)

func RenderPrayerPanel(data PrayerPanelData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "prayers for %s", data.Date)
	if data.Source != "" {
		fmt.Fprintf(&b, " (%s", data.Source)
		if data.Stale {
			b.WriteString(", stale")
		}
		b.WriteString(")")
	}
	b.WriteString("\n\n")
	for _, row := range data.Rows {
		cursor := "  "
		if row.Selected {
			cursor = "> "
		}
		check := "[ ]"
		if row.Done {
			check = "[x]"
		}
		line := fmt.Sprintf("%s%s %-8s %s", cursor, check, row.Name, row.Time)
		switch {
		case row.Current:
			line = currentStyle.Render(line + "  now")
		case row.Next:
			line += "  next"
		case row.Selected:
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if data.Sunrise != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("    sunrise  %s", data.Sunrise)) + "\n")
	}
	if data.Countdown != "" {
		fmt.Fprintf(&b, "\n%s\n", data.Countdown)
	}
	if data.Progress != "" {
		fmt.Fprintf(&b, "\n%s\n", data.Progress)
	}
	return strings.TrimSpace(b.String())
}

func RenderStatsPanel(data StatsPanelData) string {
	var b strings.Builder
	b.WriteString("statistics\n\n")
	fmt.Fprintf(&b, "today:  %3d%%\n", data.TodayPct)
	fmt.Fprintf(&b, "week:   %3d%% %s\n", data.WeekPct, data.WeekDetail)
	fmt.Fprintf(&b, "month:  %3d%% %s\n", data.MonthPct, data.MonthDetail)
	fmt.Fprintf(&b, "streak: %d day(s), longest %d\n", data.Current, data.Longest)
	if data.LastComplete != "" {
		fmt.Fprintf(&b, "last complete day: %s\n", data.LastComplete)
	}
	if data.ProgressView != "" {
		fmt.Fprintf(&b, "\n%s\n", data.ProgressView)
	}
	if data.ReportView != "" {
		fmt.Fprintf(&b, "\n%s\n", data.ReportView)
	}
	return strings.TrimSpace(b.String())
}

func RenderPendingPanel(rows []PendingRowData) string {
	if len(rows) == 0 {
		return "pending notifications\n\n(none)"
	}
	var b strings.Builder
	b.WriteString("pending notifications\n\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s  %-8s %-8s %s\n", r.FiresAt, r.Prayer, r.Kind, mutedStyle.Render(r.ID))
	}
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: %s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help (%s):\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
