package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is used when a non-positive interval is given.
const DefaultInterval = time.Second

// Monitor polls the backend on a fixed interval and renders the result.
//
// Polls run on a single goroutine. Ticks that fire while a request is in
// flight are dropped by the ticker, so at most one request is outstanding.
type Monitor struct {
	client    InfoClient
	surface   Surface
	revealer  Revealer
	resolver  LabelResolver
	interval  time.Duration
	immediate bool
	logger    *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	trigger     chan struct{}
	done        chan struct{}
	disposeOnce sync.Once

	// Only touched by the poll loop.
	lastPollWasError bool

	mu       sync.RWMutex
	snapshot Snapshot
	stats    Stats
	disposed bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithImmediatePoll polls once right after construction instead of
// waiting a full interval.
func WithImmediatePoll() Option {
	return func(m *Monitor) {
		m.immediate = true
	}
}

// New shows the loading snapshot on surface and starts polling client
// every interval. Call Dispose to stop.
func New(client InfoClient, surface Surface, revealer Revealer, resolver LabelResolver, interval time.Duration, opts ...Option) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if surface == nil {
		surface = nopSurface{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		client:   client,
		surface:  surface,
		revealer: revealer,
		resolver: resolver,
		interval: interval,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	m.apply(LoadingSnapshot())
	m.surface.Show()

	go m.run()
	return m
}

// run is the poll loop. It exits when the monitor is disposed.
func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	if m.immediate {
		m.poll()
	}

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.poll()
		case <-m.trigger:
			m.poll()
		}
	}
}

// Trigger requests a poll outside the regular schedule. Requests made while
// one is already pending are coalesced.
func (m *Monitor) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// poll sends one info request and renders its outcome.
func (m *Monitor) poll() {
	if m.client == nil || m.ctx.Err() != nil {
		return
	}

	info, err := m.client.Info(m.ctx)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		m.recordPoll(false, "")

		if m.lastPollWasError {
			m.logger.Debug("info request still failing", "error", err)
			return
		}
		m.lastPollWasError = true
		m.logger.Warn("info request failed", "error", err)

		if m.apply(RenderError(err)) && m.revealer != nil {
			m.revealer.Reveal()
		}
		return
	}

	if m.lastPollWasError {
		m.logger.Info("info request recovered")
	}
	m.lastPollWasError = false

	target := ""
	if m.resolver != nil {
		target = m.resolver.ResolveLabel()
	}
	m.recordPoll(true, target)

	snap := RenderInfo(info, target)
	m.logger.Debug("status updated", "title", snap.Title)
	m.apply(snap)
}

// apply publishes snap to the surface. It reports false after disposal.
func (m *Monitor) apply(snap Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return false
	}

	m.snapshot = snap
	m.surface.SetTitle(snap.Title)
	m.surface.SetDetail(snap.Detail)
	m.surface.SetSeverity(snap.Severity)
	if f, ok := m.surface.(Flusher); ok {
		f.Flush()
	}
	return true
}

func (m *Monitor) recordPoll(ok bool, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Polls++
	if !ok {
		m.stats.Failures++
		return
	}
	m.stats.Target = target
}

// Snapshot returns the current snapshot.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Stats returns poll counters.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Done is closed once the poll loop has exited after Dispose.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Dispose stops polling and releases the surface. Safe to call more than once.
// A request already in flight is cancelled; its result is discarded.
func (m *Monitor) Dispose() {
	m.disposeOnce.Do(func() {
		m.cancel()

		m.mu.Lock()
		m.disposed = true
		m.mu.Unlock()

		m.surface.Dispose()
		m.logger.Debug("monitor disposed")
	})
}

// nopSurface discards everything.
type nopSurface struct{}

func (nopSurface) SetTitle(string)      {}
func (nopSurface) SetDetail(string)     {}
func (nopSurface) SetSeverity(Severity) {}
func (nopSurface) Show()                {}
func (nopSurface) Dispose()             {}
