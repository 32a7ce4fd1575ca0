package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// DatabaseFile is the name ccls loads the compilation database from.
const DatabaseFile = "compile_commands.json"

// TempDir creates a temporary directory and returns it along with a cleanup function.
// The cleanup function removes the directory and all its contents.
func TempDir(t *testing.T) (string, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "cclsmon-test-*")
	if err != nil {
		t.Fatal(err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }
}

// WriteFile writes content to a file in the given directory.
// It creates parent directories as needed and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile reads a file and returns its contents.
// It fails the test if the file cannot be read.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// FileExists checks if a file exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

// SetupProject creates a project directory with an empty .cclsmon
// directory. The directory is removed when the test finishes.
func SetupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".cclsmon"), 0755); err != nil {
		t.Fatal(err)
	}
	return dir
}

// LinkDatabase writes an empty compilation database named name in dir and
// points dir/compile_commands.json at it, the way build scripts switch
// between targets. It returns the path of the link.
func LinkDatabase(t *testing.T, dir, name string) string {
	t.Helper()
	target := WriteFile(t, dir, name, "[]")
	link := filepath.Join(dir, DatabaseFile)
	_ = os.Remove(link)
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}
	return link
}
