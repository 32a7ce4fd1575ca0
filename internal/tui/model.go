package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/cclsmon/internal/monitor"
)

const (
	// maxLogLines is the number of log records loaded into the log pane.
	maxLogLines = 200
	// logPanePercent is the share of the body height used by the log pane.
	logPanePercent = 60
)

// model is the bubbletea model for the TUI.
type model struct {
	bridge *bridge

	// Callbacks
	onQuit    func()
	onRefresh func()

	// Status
	snapshot monitor.Snapshot
	shown    bool
	reveals  int

	// Log pane
	logPath  string
	logOpen  bool
	logLines []string
	logErr   error

	// Components
	spinner  spinner.Model
	viewport viewport.Model

	// Layout
	width  int
	height int
}

// newModel creates a model reading from b.
func newModel(b *bridge, onQuit, onRefresh func(), logPath string) model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(styles.Spinner),
	)

	return model{
		bridge:    b,
		onQuit:    onQuit,
		onRefresh: onRefresh,
		logPath:   logPath,
		snapshot:  monitor.LoadingSnapshot(),
		spinner:   s,
		viewport:  viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.bridge))
}

// loading reports whether no info response has been shown yet.
func (m model) loading() bool {
	return m.snapshot == monitor.LoadingSnapshot()
}
