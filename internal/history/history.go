// Package history persists a short per-project chat log so conversations
// survive browser restarts. One JSON file per project, newest entries last,
// capped to the most recent 100.
package history

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/axionhq/relaywatch/internal/fsutil"
)

// MaxEntries is the per-project retention cap.
const MaxEntries = 100

// Entry is one user/assistant exchange.
type Entry struct {
	User      string  `json:"user"`
	Assistant string  `json:"assistant"`
	Timestamp float64 `json:"timestamp"`
}

// File is the on-disk shape of a project history.
type File struct {
	Entries []Entry `json:"entries"`
}

// Store appends and reads project histories under one directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at the history directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(project string) string {
	return filepath.Join(s.dir, project+".json")
}

// Append records an exchange for a project. The sentinel projects "" and
// "default" are not persisted. When the previous entry has the same user
// text, the assistant text is updated in place if the new one is longer,
// instead of growing the file.
func (s *Store) Append(project, userMsg, assistantMsg string) error {
	if project == "" || project == "default" {
		return nil
	}

	var f File
	fsutil.LoadJSON(s.path(project), &f)

	if n := len(f.Entries); n > 0 && f.Entries[n-1].User == userMsg {
		if len(assistantMsg) > len(f.Entries[n-1].Assistant) {
			f.Entries[n-1].Assistant = assistantMsg
			f.Entries[n-1].Timestamp = unixNow()
		}
	} else {
		f.Entries = append(f.Entries, Entry{
			User:      userMsg,
			Assistant: assistantMsg,
			Timestamp: unixNow(),
		})
	}

	if len(f.Entries) > MaxEntries {
		f.Entries = f.Entries[len(f.Entries)-MaxEntries:]
	}

	if err := fsutil.WriteJSONAtomic(s.path(project), &f); err != nil {
		return fmt.Errorf("save history for %s: %w", project, err)
	}
	return nil
}

// Load returns the history for a project; missing files read as empty.
func (s *Store) Load(project string) File {
	var f File
	fsutil.LoadJSON(s.path(project), &f)
	return f
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
