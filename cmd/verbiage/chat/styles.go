package chat

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the chat view.
type Styles struct {
	Header    lipgloss.Style
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	Info      lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Faint     lipgloss.Style
	Prompt    lipgloss.Style
}

// DefaultStyles returns the default color scheme.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BC34A")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2a3850")).
			Padding(0, 1),
		UserLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3")),
		BotLabel:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")),
		Info:      lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
		Faint:     lipgloss.NewStyle().Faint(true),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")),
	}
}
