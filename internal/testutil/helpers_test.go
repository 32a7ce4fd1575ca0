package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTempDir(t *testing.T) {
	dir, cleanup := TempDir(t)
	defer cleanup()

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory should exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("should be a directory")
	}
	if !filepath.IsAbs(dir) {
		t.Error("should return absolute path")
	}
}

func TestTempDir_Cleanup(t *testing.T) {
	dir, cleanup := TempDir(t)

	testFile := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}

	cleanup()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("directory should be removed after cleanup")
	}
}

func TestWriteFile_CreatesSubdirectories(t *testing.T) {
	dir := t.TempDir()

	path := WriteFile(t, dir, "sub/dir/test.txt", "content")

	if got := ReadFile(t, path); got != "content" {
		t.Errorf("content = %q, want %q", got, "content")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()

	if FileExists(t, filepath.Join(dir, "missing")) {
		t.Error("missing file should not exist")
	}
	if !FileExists(t, WriteFile(t, dir, "present", "")) {
		t.Error("written file should exist")
	}
}

func TestSetupProject(t *testing.T) {
	dir := SetupProject(t)

	info, err := os.Stat(filepath.Join(dir, ".cclsmon"))
	if err != nil || !info.IsDir() {
		t.Fatalf(".cclsmon should be a directory: %v", err)
	}
}

func TestLinkDatabase(t *testing.T) {
	dir := t.TempDir()

	link := LinkDatabase(t, dir, "compile_commands_debug.json")

	if link != filepath.Join(dir, DatabaseFile) {
		t.Errorf("link = %q", link)
	}
	dest, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("Readlink error: %v", err)
	}
	if filepath.Base(dest) != "compile_commands_debug.json" {
		t.Errorf("link points to %q", dest)
	}

	// Relinking switches the target in place.
	LinkDatabase(t, dir, "compile_commands_release.json")
	dest, _ = os.Readlink(link)
	if filepath.Base(dest) != "compile_commands_release.json" {
		t.Errorf("relinked to %q", dest)
	}
}
