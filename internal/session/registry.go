// Package session tracks the per-project conversation identity used by the
// worker CLI. Identifiers persist in relay_sessions.json so consecutive jobs
// in a project continue one conversation, and are replaced whenever the
// worker's own session artifact disappears.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/axionhq/relaywatch/internal/fsutil"
	"github.com/axionhq/relaywatch/internal/layout"
)

// Registry maps projects to session identifiers, backed by a JSON file with
// a whole-cache TTL. Safe for concurrent use.
type Registry struct {
	lay       layout.Layout
	workerDir string // the worker CLI's state directory, normally ~/.claude
	ttl       time.Duration

	mu        sync.Mutex
	cache     map[string]string
	cacheTime time.Time
}

// New creates a registry. workerDir may be empty, in which case the worker
// state is looked up under the current user's home directory.
func New(lay layout.Layout, workerDir string, ttl time.Duration) *Registry {
	if workerDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			workerDir = filepath.Join(home, ".claude")
		}
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Registry{
		lay:       lay,
		workerDir: workerDir,
		ttl:       ttl,
		cache:     make(map[string]string),
	}
}

// artifactPath returns the worker's on-disk transcript for a session, or ""
// when the project has no resolvable working directory.
func (r *Registry) artifactPath(project, id string) string {
	dir, ok := r.lay.ProjectDir(project)
	if !ok {
		return ""
	}
	encoded := strings.ReplaceAll(dir, "/", "-")
	return filepath.Join(r.workerDir, "projects", encoded, id+".jsonl")
}

// artifactExists reports whether the worker still has the session on disk.
// An unresolvable project directory counts as present: there is nothing to
// check against, so the saved id is trusted.
func (r *Registry) artifactExists(project, id string) bool {
	p := r.artifactPath(project, id)
	if p == "" {
		return true
	}
	_, err := os.Stat(p)
	return err == nil
}

// GetOrCreate returns the session id for a project, minting and persisting a
// fresh one when none exists or the saved one lost its artifact. isNew tells
// the runner whether to start a new worker session or resume.
func (r *Registry) GetOrCreate(project string) (id string, isNew bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.cacheTime) <= r.ttl {
		if cached, ok := r.cache[project]; ok && r.artifactExists(project, cached) {
			return cached, false, nil
		}
	}

	sessions := make(map[string]string)
	if fsutil.LoadJSON(r.lay.SessionsFile(), &sessions) {
		r.cache = sessions
		r.cacheTime = time.Now()
	}

	if saved, ok := sessions[project]; ok {
		if r.artifactExists(project, saved) {
			r.cache[project] = saved
			return saved, false, nil
		}
		// Worker deleted the transcript; the id is dead.
	}

	fresh := uuid.NewString()
	sessions[project] = fresh
	if err := fsutil.WriteJSONAtomic(r.lay.SessionsFile(), sessions); err != nil {
		return "", false, fmt.Errorf("persist session for %s: %w", project, err)
	}
	r.cache[project] = fresh
	r.cacheTime = time.Now()
	return fresh, true, nil
}

// All returns the persisted project-to-session table.
func (r *Registry) All() map[string]string {
	sessions := make(map[string]string)
	fsutil.LoadJSON(r.lay.SessionsFile(), &sessions)
	return sessions
}

// indexEntry is one record in the worker's sessions-index.json.
type indexEntry struct {
	SessionID string `json:"sessionId"`
	Modified  string `json:"modified"`
}

// Latest returns the most recently modified session id from the worker's own
// index for a project, or "" when the index is absent.
func (r *Registry) Latest(project string) string {
	dir, ok := r.lay.ProjectDir(project)
	if !ok {
		return ""
	}
	encoded := strings.ReplaceAll(dir, "/", "-")
	indexFile := filepath.Join(r.workerDir, "projects", encoded, "sessions-index.json")

	var index struct {
		Entries []indexEntry `json:"entries"`
	}
	if !fsutil.LoadJSON(indexFile, &index) || len(index.Entries) == 0 {
		return ""
	}
	sort.Slice(index.Entries, func(i, j int) bool {
		return index.Entries[i].Modified > index.Entries[j].Modified
	})
	return index.Entries[0].SessionID
}
