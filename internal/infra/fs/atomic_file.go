package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicFile writes to a temporary file next to the target and renames it
// over the target on Commit, so a failed run never leaves a half-written output.
type AtomicFile struct {
	*os.File
	path string
	done bool
}

// CreateAtomic creates the parent directory of path if needed and opens a
// temporary file in it.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &AtomicFile{File: f, path: path}, nil
}

// Commit flushes and closes the temp file and moves it over the target.
func (f *AtomicFile) Commit() error {
	if f.done {
		return nil
	}
	f.done = true

	if err := f.File.Sync(); err != nil {
		f.File.Close()
		os.Remove(f.File.Name())
		return fmt.Errorf("failed to sync %s: %w", f.path, err)
	}
	if err := f.File.Close(); err != nil {
		os.Remove(f.File.Name())
		return fmt.Errorf("failed to close %s: %w", f.path, err)
	}
	if err := os.Chmod(f.File.Name(), 0644); err != nil {
		os.Remove(f.File.Name())
		return fmt.Errorf("failed to chmod %s: %w", f.path, err)
	}
	if err := os.Rename(f.File.Name(), f.path); err != nil {
		os.Remove(f.File.Name())
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// Abort discards the temp file. It is a no-op after Commit.
func (f *AtomicFile) Abort() {
	if f.done {
		return
	}
	f.done = true
	f.File.Close()
	os.Remove(f.File.Name())
}
