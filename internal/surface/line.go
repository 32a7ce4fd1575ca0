// Package surface provides the non-interactive status surfaces used when
// cclsmon runs without its terminal UI, plus helpers to combine surfaces.
package surface

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/cclsmon/internal/monitor"
)

// Line writes one line per status change to a writer.
// Repeated identical updates are written once.
type Line struct {
	mu sync.Mutex
	w  io.Writer

	showDetail bool
	now        func() time.Time
	errStyle   lipgloss.Style
	dimStyle   lipgloss.Style

	title    string
	detail   string
	severity monitor.Severity

	shown    bool
	disposed bool
	last     string
}

var (
	_ monitor.Surface = (*Line)(nil)
	_ monitor.Flusher = (*Line)(nil)
)

// LineOption configures a Line surface.
type LineOption func(*Line)

// WithDetail also writes the detail text, indented below the title.
func WithDetail(show bool) LineOption {
	return func(l *Line) {
		l.showDetail = show
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) LineOption {
	return func(l *Line) {
		l.now = now
	}
}

// NewLine creates a line surface writing to w. Colours are used only when
// w is a terminal that supports them.
func NewLine(w io.Writer, opts ...LineOption) *Line {
	r := lipgloss.NewRenderer(w)
	l := &Line{
		w:        w,
		now:      time.Now,
		errStyle: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		dimStyle: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Line) SetTitle(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.disposed {
		l.title = title
	}
}

func (l *Line) SetDetail(detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.disposed {
		l.detail = detail
	}
}

func (l *Line) SetSeverity(sev monitor.Severity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.disposed {
		l.severity = sev
	}
}

// Show starts writing and writes the current state.
func (l *Line) Show() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return
	}
	l.shown = true
	l.render()
}

// Flush writes the current state if it changed since the last write.
func (l *Line) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed || !l.shown {
		return
	}
	l.render()
}

// Dispose stops all further output.
func (l *Line) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disposed = true
}

// render must be called with mu held.
func (l *Line) render() {
	key := l.severity.String() + "\x00" + l.title
	if l.showDetail {
		key += "\x00" + l.detail
	}
	if key == l.last {
		return
	}
	l.last = key

	title := l.title
	if l.severity == monitor.SeverityError {
		title = l.errStyle.Render(title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", l.dimStyle.Render(l.now().Format("15:04:05")), title)
	if l.showDetail && l.detail != "" {
		for _, line := range strings.Split(l.detail, "\n") {
			if line == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString("    ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	_, _ = io.WriteString(l.w, b.String())
}
