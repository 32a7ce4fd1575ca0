package surface

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/npratt/cclsmon/internal/logview"
	"github.com/npratt/cclsmon/internal/monitor"
)

// DefaultTailLines is how many log records TailRevealer prints.
const DefaultTailLines = 20

// TailRevealer reveals the debug log by printing its most recent records.
type TailRevealer struct {
	mu     sync.Mutex
	w      io.Writer
	path   string
	lines  int
	logger *slog.Logger
}

var _ monitor.Revealer = (*TailRevealer)(nil)

// NewTailRevealer prints the last lines records of the log at path to w.
// A non-positive lines uses DefaultTailLines.
func NewTailRevealer(w io.Writer, path string, lines int, logger *slog.Logger) *TailRevealer {
	if lines <= 0 {
		lines = DefaultTailLines
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TailRevealer{w: w, path: path, lines: lines, logger: logger}
}

// Reveal prints the log tail framed by separator lines.
func (t *TailRevealer) Reveal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines, err := logview.Last(t.path, t.lines)
	if err != nil {
		t.logger.Debug("reveal log failed", "path", t.path, "error", err)
		return
	}

	_, _ = fmt.Fprintf(t.w, "--- %s (last %d entries) ---\n", t.path, len(lines))
	for _, line := range lines {
		_, _ = fmt.Fprintln(t.w, line)
	}
	_, _ = fmt.Fprintln(t.w, "---")
}
