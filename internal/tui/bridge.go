package tui

import (
	"sync"

	"github.com/npratt/cclsmon/internal/monitor"
)

// bridgeState is what the model reads from the bridge on each update.
type bridgeState struct {
	Snapshot monitor.Snapshot
	Shown    bool
	Reveals  int
}

// bridge holds the latest surface state written by the monitor and wakes
// the bubbletea program. Writes never block, so the monitor can write
// before the program runs.
type bridge struct {
	mu        sync.Mutex
	pending   monitor.Snapshot
	published bridgeState
	disposed  bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

var (
	_ monitor.Surface  = (*bridge)(nil)
	_ monitor.Flusher  = (*bridge)(nil)
	_ monitor.Revealer = (*bridge)(nil)
)

func newBridge() *bridge {
	return &bridge{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (b *bridge) SetTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.disposed {
		b.pending.Title = title
	}
}

func (b *bridge) SetDetail(detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.disposed {
		b.pending.Detail = detail
	}
}

func (b *bridge) SetSeverity(sev monitor.Severity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.disposed {
		b.pending.Severity = sev
	}
}

// Flush publishes the pending snapshot.
func (b *bridge) Flush() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.published.Snapshot = b.pending
	b.mu.Unlock()
	b.signal()
}

func (b *bridge) Show() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.published.Snapshot = b.pending
	b.published.Shown = true
	b.mu.Unlock()
	b.signal()
}

// Reveal asks the model to open the log pane.
func (b *bridge) Reveal() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.published.Reveals++
	b.mu.Unlock()
	b.signal()
}

// Dispose stops updates and makes the program exit.
func (b *bridge) Dispose() {
	b.once.Do(func() {
		b.mu.Lock()
		b.disposed = true
		b.mu.Unlock()
		close(b.done)
	})
}

func (b *bridge) state() bridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published
}

// signal wakes the program without blocking; updates coalesce.
func (b *bridge) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
