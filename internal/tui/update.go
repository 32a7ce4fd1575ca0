package tui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/cclsmon/internal/logview"
)

// updateMsg carries the bridge state after a surface write.
type updateMsg bridgeState

// disposedMsg signals that the surface was disposed.
type disposedMsg struct{}

// logLoadedMsg carries the log tail read for the log pane.
type logLoadedMsg struct {
	lines []string
	err   error
}

// waitForUpdate creates a command that waits for the next surface write.
// Returns disposedMsg once the surface is disposed.
func waitForUpdate(b *bridge) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.done:
			return disposedMsg{}
		case <-b.notify:
			return updateMsg(b.state())
		}
	}
}

// loadLog creates a command that reads the tail of the debug log.
func loadLog(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return logLoadedMsg{}
		}
		lines, err := logview.Last(path, maxLogLines)
		return logLoadedMsg{lines: lines, err: err}
	}
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updatePaneSizes()
		return m, nil

	case updateMsg:
		return m.handleUpdate(bridgeState(msg))

	case disposedMsg:
		slog.Debug("status surface disposed, exiting TUI")
		return m, tea.Quit

	case logLoadedMsg:
		m.logLines = msg.lines
		m.logErr = msg.err
		m.viewport.SetContent(m.logContent())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

// handleUpdate applies new surface state. A new reveal opens the log pane.
func (m model) handleUpdate(state bridgeState) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{waitForUpdate(m.bridge)}

	m.snapshot = state.Snapshot
	m.shown = state.Shown

	if state.Reveals > m.reveals {
		m.reveals = state.Reveals
		m.logOpen = true
		cmds = append(cmds, loadLog(m.logPath))
	} else if m.logOpen {
		cmds = append(cmds, loadLog(m.logPath))
	}
	m.updatePaneSizes()

	return m, tea.Batch(cmds...)
}

// handleKey processes keyboard input and returns the updated model and command.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "r":
		if m.onRefresh != nil {
			m.onRefresh()
		}
		return m, nil

	case "l":
		m.logOpen = !m.logOpen
		m.updatePaneSizes()
		if m.logOpen {
			return m, loadLog(m.logPath)
		}
		return m, nil

	case "up", "k", "down", "j", "pgup", "pgdown", "home", "end", "g", "G":
		if !m.logOpen {
			return m, nil
		}
		switch msg.String() {
		case "home", "g":
			m.viewport.GotoTop()
			return m, nil
		case "end", "G":
			m.viewport.GotoBottom()
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// updatePaneSizes recalculates the log viewport size.
func (m *model) updatePaneSizes() {
	if m.width == 0 || m.height == 0 {
		return
	}

	// header + divider + footer + divider + container border
	body := m.height - 6 - m.detailHeight()
	logHeight := body * logPanePercent / 100
	if logHeight < 3 {
		logHeight = 3
	}

	m.viewport.Width = safeWidth(m.width - 4)
	m.viewport.Height = logHeight
	m.viewport.SetContent(m.logContent())
}

func (m model) detailHeight() int {
	if m.snapshot.Detail == "" {
		return 0
	}
	return strings.Count(m.snapshot.Detail, "\n") + 1
}

func (m model) logContent() string {
	if m.logErr != nil {
		return styles.Error.Render("cannot read log: " + m.logErr.Error())
	}
	if len(m.logLines) == 0 {
		return styles.Footer.Render("No log entries yet")
	}
	return strings.Join(m.logLines, "\n")
}

// safeWidth returns w clamped to at least 1.
func safeWidth(w int) int {
	if w < 1 {
		return 1
	}
	return w
}
