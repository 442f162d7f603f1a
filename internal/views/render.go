package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	leftWidth  = 44
	rightWidth = 64
)

type AppData struct {
	Header       string
	Tabs         []string
	ActiveTab    string
	LeftPane     string
	RightPane    string
	StatusLine   string
	Footer       string
	Notification string
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("8"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true)
)

func RenderApp(data AppData) string {
	left := panelStyle.Width(leftWidth).Render(data.LeftPane)
	right := panelStyle.Width(rightWidth).Render(data.RightPane)
	row := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	status := statusStyle.Render(data.StatusLine)
	if strings.Contains(strings.ToLower(data.StatusLine), "error") {
		status = errorStyle.Render(data.StatusLine)
	}

	header := headerStyle.Render(data.Header)
	if len(data.Tabs) > 0 {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, "  ", renderTabs(data.Tabs, data.ActiveTab))
	}
	lines := []string{header, row, status}
	if data.Notification != "" {
		lines = append(lines, panelStyle.Width(leftWidth+rightWidth+4).Render(data.Notification))
	}
	if data.Footer != "" {
		lines = append(lines, footerStyle.Render(data.Footer))
	}
	return strings.Join(lines, "\n")
}

func renderTabs(tabs []string, active string) string {
	out := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if t == active {
			out = append(out, activeTabStyle.Render(t))
			continue
		}
		out = append(out, tabStyle.Render(t))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func RenderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	if width <= 0 {
		width = rightWidth
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(width))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

func PaneWidth() int { return rightWidth - 2 }
