// Package daemon exposes a running monitor for external control via a Unix socket.
package daemon

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/npratt/cclsmon/internal/config"
	"github.com/npratt/cclsmon/internal/monitor"
)

// Monitor is the part of monitor.Monitor the control socket uses.
type Monitor interface {
	Snapshot() monitor.Snapshot
	Stats() monitor.Stats
	Trigger()
}

// Daemon serves status and control requests for one monitor.
type Daemon struct {
	config    *config.Config
	monitor   Monitor
	onStop    func()
	sockPath  string
	startTime time.Time
	logger    *slog.Logger

	listener net.Listener
	running  bool
	mu       sync.RWMutex
}

// New creates a new Daemon for mon. onStop is called when a client
// requests shutdown; it may be nil.
func New(cfg *config.Config, mon Monitor, onStop func(), logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		config:   cfg,
		monitor:  mon,
		onStop:   onStop,
		sockPath: cfg.Paths.Socket,
		logger:   logger,
	}
}

// Running returns whether the daemon is currently running.
func (d *Daemon) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// StartTime returns when the daemon was started.
func (d *Daemon) StartTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startTime
}

// SocketPath returns the Unix socket path.
func (d *Daemon) SocketPath() string {
	return d.sockPath
}
