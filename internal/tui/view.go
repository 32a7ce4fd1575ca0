package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/cclsmon/internal/monitor"
)

const (
	minWidth  = 40
	minHeight = 12
)

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	sections := []string{
		m.renderHeader(),
		m.renderDivider(),
		m.renderDetail(),
	}
	if m.logOpen {
		sections = append(sections, m.renderDivider(), m.renderLog())
	}
	sections = append(sections, m.renderDivider(), m.renderFooter())

	content := strings.Join(sections, "\n")

	rendered := styles.Container.
		Width(safeWidth(m.width - 2)).
		Render(content)

	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, rendered)
}

// renderHeader renders the status title, with a spinner while loading.
func (m model) renderHeader() string {
	title := styles.TitleNormal.Render(m.snapshot.Title)
	if m.snapshot.Severity == monitor.SeverityError {
		title = styles.TitleError.Render(m.snapshot.Title)
	}

	if !m.shown {
		return m.spinner.View() + " " + styles.Footer.Render("waiting for monitor")
	}
	if m.loading() {
		return m.spinner.View() + " " + title
	}
	return title
}

func (m model) renderDetail() string {
	return styles.Detail.Render(m.snapshot.Detail)
}

func (m model) renderLog() string {
	header := styles.LogHeader.Render("Log")
	if m.logPath != "" {
		header += " " + styles.Footer.Render(m.logPath)
	}
	return header + "\n" + m.viewport.View()
}

func (m model) renderDivider() string {
	return styles.Divider.Render(strings.Repeat("─", safeWidth(m.width-4)))
}

func (m model) renderFooter() string {
	hints := []string{"q: quit", "r: refresh"}
	if m.logOpen {
		hints = append(hints, "l: hide log", "↑/↓: scroll")
	} else {
		hints = append(hints, "l: show log")
	}
	return styles.Footer.Render(strings.Join(hints, "  "))
}

func (m model) renderTooSmall() string {
	return styles.TitleNormal.Render(m.snapshot.Title) + "\n" +
		styles.Footer.Render("Terminal too small")
}
