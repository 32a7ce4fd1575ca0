package surface

import (
	"log/slog"
	"sync"

	"github.com/npratt/cclsmon/internal/monitor"
)

// Log records status changes in the debug log. Severity changes are logged
// at info, title changes at debug. The detail text is not logged.
type Log struct {
	mu     sync.Mutex
	logger *slog.Logger

	title    string
	severity monitor.Severity

	lastTitle    string
	lastSeverity monitor.Severity
	shown        bool
	disposed     bool
}

var (
	_ monitor.Surface = (*Log)(nil)
	_ monitor.Flusher = (*Log)(nil)
)

// NewLog creates a surface logging to logger.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With("component", "status")}
}

func (l *Log) SetTitle(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.title = title
}

func (l *Log) SetDetail(string) {}

func (l *Log) SetSeverity(sev monitor.Severity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.severity = sev
}

func (l *Log) Show() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed || l.shown {
		return
	}
	l.shown = true
	l.lastTitle = l.title
	l.lastSeverity = l.severity
	l.logger.Info("status shown", "title", l.title, "severity", l.severity.String())
}

func (l *Log) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed || !l.shown {
		return
	}

	switch {
	case l.severity != l.lastSeverity:
		l.logger.Info("status severity changed",
			"title", l.title,
			"severity", l.severity.String(),
			"previous", l.lastSeverity.String(),
		)
	case l.title != l.lastTitle:
		l.logger.Debug("status changed", "title", l.title)
	}
	l.lastTitle = l.title
	l.lastSeverity = l.severity
}

func (l *Log) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disposed = true
}
