// Package layout computes the relay's on-disk directory structure. The
// per-user suffix rule and the reserved queue file names live here so the
// rest of the code never builds paths by hand.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// dirPerm is the permission for relay-managed directories.
const dirPerm = 0750

// DefaultUser keeps the unsuffixed directory names for compatibility with
// earlier single-user deployments.
const DefaultUser = "axion"

// Reserved queue file names that the scanner must never treat as jobs.
const (
	HeartbeatName = "watcher.heartbeat"
	PIDName       = "watcher.pid"
	LogName       = "watcher.log"
	SessionsName  = "relay_sessions.json"
	OutboxName    = "AXION_OUTBOX.json"
)

// Layout holds the resolved directory configuration for one relay user.
type Layout struct {
	BaseDir      string // relay root holding .queue, .history, .temp, .screenshots
	ProjectsBase string // root under which project working directories live
	User         string
}

// DefaultLayout returns the production paths for the given user.
// An empty user resolves to DefaultUser.
func DefaultLayout(user string) Layout {
	if user == "" {
		user = DefaultUser
	}
	return Layout{
		BaseDir:      "/opt/clawd/projects/relay",
		ProjectsBase: "/opt/clawd/projects",
		User:         user,
	}
}

// userDir applies the suffix rule: the default user keeps the bare name,
// everyone else gets <name>-<user>.
func (l Layout) userDir(name string) string {
	if l.User == "" || l.User == DefaultUser {
		return filepath.Join(l.BaseDir, name)
	}
	return filepath.Join(l.BaseDir, fmt.Sprintf("%s-%s", name, l.User))
}

// QueueDir returns the job queue directory.
func (l Layout) QueueDir() string { return l.userDir(".queue") }

// HistoryDir returns the per-project chat history directory.
func (l Layout) HistoryDir() string { return l.userDir(".history") }

// TempDir returns the attachment scratch directory.
func (l Layout) TempDir() string { return l.userDir(".temp") }

// ScreenshotsDir returns the directory jobs are told to save screenshots to.
func (l Layout) ScreenshotsDir() string { return l.userDir(".screenshots") }

// HeartbeatFile returns the supervisor liveness file path.
func (l Layout) HeartbeatFile() string {
	return filepath.Join(l.QueueDir(), HeartbeatName)
}

// PIDFile returns the singleton-guard PID file path.
func (l Layout) PIDFile() string {
	return filepath.Join(l.QueueDir(), PIDName)
}

// SessionsFile returns the project-to-session registry path.
func (l Layout) SessionsFile() string {
	return filepath.Join(l.QueueDir(), SessionsName)
}

// EnsureDirs creates all required directories. Idempotent.
func (l Layout) EnsureDirs() error {
	dirs := []string{
		l.QueueDir(),
		l.HistoryDir(),
		l.TempDir(),
		l.ScreenshotsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// IsReserved reports whether a queue file name belongs to the relay itself.
func IsReserved(name string) bool {
	switch name {
	case HeartbeatName, PIDName, LogName, SessionsName, OutboxName:
		return true
	}
	return false
}

// projectAliases maps historical lowercase names to their on-disk spellings.
var projectAliases = map[string]string{
	"hubai":    "HUBAi",
	"claimsai": "ClaimsAI",
	"claims":   "ClaimsAI",
}

// ProjectDir resolves a project name to its working directory under
// ProjectsBase. Tries an exact match, then a case-insensitive scan (only for
// names without a path separator), then the alias table. Returns ok=false
// when nothing matches; callers fall back to ProjectsBase.
func (l Layout) ProjectDir(project string) (string, bool) {
	if project == "" || project == "default" {
		return "", false
	}

	exact := filepath.Join(l.ProjectsBase, project)
	if info, err := os.Stat(exact); err == nil && info.IsDir() {
		return exact, true
	}

	// User-scoped paths like "xfg6gb/myproject" only match exactly.
	if strings.Contains(project, "/") {
		return "", false
	}

	entries, err := os.ReadDir(l.ProjectsBase)
	if err == nil {
		lower := strings.ToLower(project)
		for _, e := range entries {
			if e.IsDir() && strings.ToLower(e.Name()) == lower {
				return filepath.Join(l.ProjectsBase, e.Name()), true
			}
		}
	}

	if alias, ok := projectAliases[strings.ToLower(project)]; ok {
		p := filepath.Join(l.ProjectsBase, alias)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, true
		}
	}

	return "", false
}
