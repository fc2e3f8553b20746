// Package fsutil provides the file primitives every shared directory in the
// relay depends on: write-temp-and-rename, tolerant JSON loads, and advisory
// sibling locks. All coordination between producers and the watcher happens
// through files, so these primitives carry the consistency guarantees.
package fsutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriteJSONAtomic marshals v and writes it to path via a sibling temp file
// and rename, so a concurrent reader sees either the old or the new content.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return WriteFileAtomic(path, data)
}

// WriteTextAtomic writes a text file via temp-and-rename.
func WriteTextAtomic(path, content string) error {
	return WriteFileAtomic(path, []byte(content))
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory. On failure the temp file is removed and the target untouched.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp for %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp for %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp for %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadJSON reads path into out. Absence and corruption are treated
// identically: out is left untouched and ok is false. Real I/O errors beyond
// not-exist are also folded into ok=false; callers fall back to defaults.
func LoadJSON(path string, out any) (ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	return true
}

// Lock is an advisory exclusive lock on a sibling of the target file.
// The lock file itself stays on disk; ownership is the flock, not existence.
type Lock struct {
	fl *flock.Flock
}

// LockPath returns the sibling lock path for a target file.
func LockPath(target string) string {
	return target + ".lock"
}

// TryLock attempts a non-blocking exclusive lock on target's sibling lock
// file. Returns (nil, false, nil) when another holder has it.
func TryLock(target string) (*Lock, bool, error) {
	fl := flock.New(LockPath(target))
	got, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", filepath.Base(target), err)
	}
	if !got {
		return nil, false, nil
	}
	return &Lock{fl: fl}, true, nil
}

// Unlock releases the lock. Safe to call on an already-released lock.
func (l *Lock) Unlock() {
	if l == nil || l.fl == nil {
		return
	}
	_ = l.fl.Unlock()
	l.fl = nil
}
