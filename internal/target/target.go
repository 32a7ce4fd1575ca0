// Package target derives the short label of the active compilation database
// from a compile_commands.json symlink such as compile_commands_clang.json.
package target

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

const (
	// DatabaseFile is the compilation database file name looked up in the
	// database directory.
	DatabaseFile = "compile_commands.json"
	// LabelPrefix marks database files that carry a label.
	LabelPrefix = "compile_commands_"
)

// ConfigSource provides the configured compilation database directory.
type ConfigSource interface {
	CompilationDatabaseDirectory() string
}

// WorkspaceSource provides the ordered workspace roots.
type WorkspaceSource interface {
	Roots() []string
}

// FileSystemError reports a failure to resolve the database path.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a FileSystemError for a missing path.
func IsNotFound(err error) bool {
	var fsErr *FileSystemError
	return errors.As(err, &fsErr) && errors.Is(fsErr.Err, fs.ErrNotExist)
}

// Resolver computes the target label. It holds no state between calls.
type Resolver struct {
	config    ConfigSource
	workspace WorkspaceSource
	realPath  func(string) (string, error)
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRealPath replaces symlink resolution, mainly for tests.
func WithRealPath(fn func(string) (string, error)) Option {
	return func(r *Resolver) {
		r.realPath = fn
	}
}

// WithLogger sets the logger used for resolution failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver. Either source may be nil.
func New(cfg ConfigSource, ws WorkspaceSource, opts ...Option) *Resolver {
	r := &Resolver{
		config:    cfg,
		workspace: ws,
		realPath:  RealPath,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DatabaseDirectory returns the configured directory, falling back to the
// first workspace root. Empty if neither is available.
func (r *Resolver) DatabaseDirectory() string {
	if r.config != nil {
		if dir := r.config.CompilationDatabaseDirectory(); dir != "" {
			return dir
		}
	}
	if r.workspace != nil {
		if roots := r.workspace.Roots(); len(roots) > 0 {
			return roots[0]
		}
	}
	return ""
}

// Resolve returns the label or the filesystem error that prevented it.
func (r *Resolver) Resolve() (string, error) {
	dir := r.DatabaseDirectory()
	if dir == "" {
		return "", nil
	}

	dbPath := filepath.Join(dir, DatabaseFile)
	real, err := r.realPath(dbPath)
	if err != nil {
		return "", &FileSystemError{Op: "realpath", Path: dbPath, Err: err}
	}

	return LabelFromPath(real), nil
}

// ResolveLabel is Resolve with failures reduced to an empty label.
func (r *Resolver) ResolveLabel() string {
	label, err := r.Resolve()
	if err != nil {
		r.logger.Debug("target label unavailable", "error", err, "not_found", IsNotFound(err))
		return ""
	}
	return label
}

// LabelFromPath extracts the upper-cased label from a database path,
// e.g. /src/compile_commands_clang.json yields "CLANG".
func LabelFromPath(p string) string {
	base := filepath.Base(p)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if !strings.HasPrefix(name, LabelPrefix) {
		return ""
	}
	return strings.ToUpper(name[len(LabelPrefix):])
}

// RealPath resolves symlinks and returns an absolute path.
func RealPath(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", err
	}
	return filepath.Abs(resolved)
}
