// Package workspace discovers the workspace roots of a C/C++ project.
package workspace

import (
	"os"
	"path/filepath"
)

// projectMarkers indicate a project root, checked in order at each level.
var projectMarkers = []string{".ccls", "compile_commands.json", ".git"}

// Workspace is an ordered, immutable list of root directories.
type Workspace struct {
	roots []string
}

// New creates a Workspace from explicit roots. Relative roots are made
// absolute; empty entries are dropped.
func New(roots ...string) *Workspace {
	w := &Workspace{}
	for _, r := range roots {
		if r == "" {
			continue
		}
		if abs, err := filepath.Abs(r); err == nil {
			r = abs
		}
		w.roots = append(w.roots, r)
	}
	return w
}

// Discover returns a Workspace for the given roots, or for the project root
// above startDir when no roots are given.
func Discover(startDir string, roots ...string) *Workspace {
	if len(roots) > 0 {
		return New(roots...)
	}
	return New(FindProjectRoot(startDir))
}

// Roots returns the roots in order. The first root is the primary one.
func (w *Workspace) Roots() []string {
	if w == nil {
		return nil
	}
	out := make([]string, len(w.roots))
	copy(out, w.roots)
	return out
}

// Primary returns the first root, or "" if there is none.
func (w *Workspace) Primary() string {
	if w == nil || len(w.roots) == 0 {
		return ""
	}
	return w.roots[0]
}

// FindProjectRoot walks up the directory tree from startDir looking for
// project markers (.ccls, compile_commands.json or .git). Returns the
// directory containing the marker, or startDir if no marker is found.
func FindProjectRoot(startDir string) string {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return "."
		}
	}

	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return startDir
	}

	dir := absDir
	for {
		for _, marker := range projectMarkers {
			if _, err := os.Lstat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root without finding marker
			return absDir
		}
		dir = parent
	}
}
