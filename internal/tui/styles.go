package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	// Layout styles
	Container lipgloss.Style
	Divider   lipgloss.Style

	// Status styles
	TitleNormal lipgloss.Style
	TitleError  lipgloss.Style
	Detail      lipgloss.Style
	Spinner     lipgloss.Style

	// Log pane styles
	LogHeader lipgloss.Style
	Error     lipgloss.Style

	// Footer style
	Footer lipgloss.Style
}{
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")),

	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	TitleNormal: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")),

	TitleError: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("196")),

	Detail: lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")),

	Spinner: lipgloss.NewStyle().
		Foreground(lipgloss.Color("212")),

	LogHeader: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),
}
