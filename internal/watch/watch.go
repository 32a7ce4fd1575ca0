// Package watch requests a status refresh when the compilation database or
// the project config changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// DefaultPatterns match the files whose changes affect the status.
var DefaultPatterns = []string{"compile_commands*.json", "config.yaml"}

// Watcher watches a set of directories and calls onChange for events on
// files matching its patterns. Calls are spaced by the debounce interval;
// events arriving inside the interval are coalesced into one trailing call.
type Watcher struct {
	patterns []string
	onChange func(name string)
	limiter  *rate.Limiter
	logger   *slog.Logger

	running atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc

	mu      sync.Mutex
	dirs    []string
	fs      *fsnotify.Watcher
	pending bool
	last    string
	timer   *time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the minimum spacing between onChange calls.
// Zero or negative disables spacing.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d <= 0 {
			w.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		w.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithPatterns replaces DefaultPatterns. Patterns use filepath.Match syntax
// against the base name.
func WithPatterns(patterns ...string) Option {
	return func(w *Watcher) {
		w.patterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Watcher for dirs. Empty and duplicate entries are ignored.
func New(dirs []string, onChange func(name string), opts ...Option) *Watcher {
	w := &Watcher{
		patterns: DefaultPatterns,
		onChange: onChange,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watch")
	w.dirs = cleanDirs(dirs)
	return w
}

// cleanDirs makes dirs absolute and drops empty and duplicate entries.
func cleanDirs(dirs []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if seen[dir] {
			continue
		}
		seen[dir] = true
		out = append(out, dir)
	}
	return out
}

// Dirs returns the directories being watched.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.dirs...)
}

// SetDirs replaces the watched directories. On a running watcher, watches
// on dropped directories are removed and new ones added; directories in
// both sets keep their watch.
func (w *Watcher) SetDirs(dirs []string) error {
	next := cleanDirs(dirs)

	w.mu.Lock()
	defer w.mu.Unlock()

	prev := make(map[string]bool, len(w.dirs))
	for _, dir := range w.dirs {
		prev[dir] = true
	}
	keep := make(map[string]bool, len(next))
	for _, dir := range next {
		keep[dir] = true
	}
	w.dirs = next
	if w.fs == nil {
		return nil
	}

	var errs []error
	for dir := range prev {
		if !keep[dir] {
			_ = w.fs.Remove(dir)
			w.logger.Info("stopped watching directory", "dir", dir)
		}
	}
	for _, dir := range next {
		if prev[dir] {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			errs = append(errs, fmt.Errorf("watch %s: %w", dir, err))
			continue
		}
		w.logger.Info("watching directory", "dir", dir)
	}
	return errors.Join(errs...)
}

// Start adds the watches and begins dispatching events in a background
// goroutine. Directories that do not exist are skipped. It returns an error
// if no directory could be watched.
func (w *Watcher) Start(ctx context.Context) error {
	if w.running.Load() {
		return fmt.Errorf("watcher already running")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}

	dirs := w.Dirs()
	watched := 0
	for _, dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			w.logger.Warn("cannot watch directory", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		_ = fsWatcher.Close()
		return fmt.Errorf("no watchable directories in %v", dirs)
	}

	w.mu.Lock()
	w.fs = fsWatcher
	w.mu.Unlock()

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running.Store(true)

	w.logger.Info("watching for changes", "dirs", dirs, "patterns", w.patterns)
	go w.runLoop(ctx, fsWatcher)
	return nil
}

// Stop terminates the watcher and cancels any pending call.
func (w *Watcher) Stop() error {
	if !w.running.Load() {
		return nil
	}
	w.cancel()
	<-w.done
	return nil
}

// Run starts the watcher and blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

// Running returns whether the watcher is active.
func (w *Watcher) Running() bool {
	return w.running.Load()
}

func (w *Watcher) runLoop(ctx context.Context, fsWatcher *fsnotify.Watcher) {
	defer func() {
		w.mu.Lock()
		w.fs = nil
		if w.timer != nil {
			w.timer.Stop()
		}
		w.pending = false
		w.mu.Unlock()
		_ = fsWatcher.Close()
		w.running.Store(false)
		close(w.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod || !w.Match(event.Name) {
				continue
			}
			w.logger.Debug("file changed", "path", event.Name, "op", event.Op.String())
			w.schedule(ctx, event.Name)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Match reports whether name's base matches one of the patterns.
func (w *Watcher) Match(name string) bool {
	base := filepath.Base(name)
	for _, pattern := range w.patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// schedule arranges one onChange call at the next time the limiter allows.
// Events arriving while a call is pending only update the reported name.
func (w *Watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.last = name
	if w.pending {
		return
	}
	w.pending = true

	delay := w.limiter.Reserve().Delay()
	w.timer = time.AfterFunc(delay, func() {
		w.mu.Lock()
		w.pending = false
		name := w.last
		w.mu.Unlock()

		if ctx.Err() != nil || w.onChange == nil {
			return
		}
		w.onChange(name)
	})
}

// ProjectDirs returns the compilation database directory and the project
// config directory, skipping ones that do not exist.
func ProjectDirs(databaseDir, configDir string) []string {
	var dirs []string
	for _, dir := range []string{databaseDir, configDir} {
		if dir == "" {
			continue
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
