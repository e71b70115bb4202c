package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, and any missing parents, holding size filler bytes
// (at least one).
func WriteFile(t testing.TB, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'k'}, max(size, 1)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// MakeGameDir creates <parent>/<name> holding the listed relative files and
// returns its path. With no files the directory is left empty.
func MakeGameDir(t testing.TB, parent, name string, files ...string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for _, rel := range files {
		WriteFile(t, filepath.Join(dir, filepath.FromSlash(rel)), len(rel))
	}
	return dir
}
