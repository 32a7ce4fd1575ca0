// Package tui provides a terminal UI for the ccls status monitor using bubbletea.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/cclsmon/internal/monitor"
)

// TUI is the terminal display surface. The monitor writes to Surface and
// Revealer; Run renders until the user quits or the surface is disposed.
type TUI struct {
	bridge    *bridge
	onQuit    func()
	onRefresh func()
	logPath   string
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a new TUI with the given options.
func New(opts ...Option) *TUI {
	t := &TUI{
		bridge: newBridge(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithOnQuit sets the callback invoked when the user presses 'q'.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// WithOnRefresh sets the callback invoked when the user presses 'r'.
func WithOnRefresh(fn func()) Option {
	return func(t *TUI) {
		t.onRefresh = fn
	}
}

// WithLogPath sets the debug log shown in the log pane.
func WithLogPath(path string) Option {
	return func(t *TUI) {
		t.logPath = path
	}
}

// Surface returns the display surface backed by this TUI.
func (t *TUI) Surface() monitor.Surface {
	return t.bridge
}

// Revealer returns the revealer that opens the log pane.
func (t *TUI) Revealer() monitor.Revealer {
	return t.bridge
}

// Run starts the TUI and blocks until it exits.
func (t *TUI) Run() error {
	m := newModel(t.bridge, t.onQuit, t.onRefresh, t.logPath)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
