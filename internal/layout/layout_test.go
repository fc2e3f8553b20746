package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUserDirSuffixRule(t *testing.T) {
	base := Layout{BaseDir: "/srv/relay", User: DefaultUser}
	if got := base.QueueDir(); got != "/srv/relay/.queue" {
		t.Errorf("default user queue = %q", got)
	}

	other := Layout{BaseDir: "/srv/relay", User: "maria"}
	if got := other.QueueDir(); got != "/srv/relay/.queue-maria" {
		t.Errorf("suffixed queue = %q", got)
	}
	if got := other.HistoryDir(); got != "/srv/relay/.history-maria" {
		t.Errorf("suffixed history = %q", got)
	}
}

func TestEnsureDirsIdempotent(t *testing.T) {
	l := Layout{BaseDir: t.TempDir(), User: DefaultUser}
	if err := l.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	if err := l.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs second call: %v", err)
	}
	for _, dir := range []string{l.QueueDir(), l.HistoryDir(), l.TempDir(), l.ScreenshotsDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestIsReserved(t *testing.T) {
	for _, name := range []string{HeartbeatName, PIDName, LogName, SessionsName, OutboxName} {
		if !IsReserved(name) {
			t.Errorf("IsReserved(%q) = false", name)
		}
	}
	if IsReserved("abcd1234.json") {
		t.Error("job file flagged as reserved")
	}
}

func TestProjectDirResolution(t *testing.T) {
	projects := t.TempDir()
	for _, name := range []string{"demo", "HUBAi", "scoped"} {
		if err := os.MkdirAll(filepath.Join(projects, name), 0750); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(projects, "scoped", "inner"), 0750); err != nil {
		t.Fatal(err)
	}

	l := Layout{BaseDir: t.TempDir(), ProjectsBase: projects, User: DefaultUser}

	if dir, ok := l.ProjectDir("demo"); !ok || dir != filepath.Join(projects, "demo") {
		t.Errorf("exact match: dir=%q ok=%v", dir, ok)
	}
	if dir, ok := l.ProjectDir("DEMO"); !ok || dir != filepath.Join(projects, "demo") {
		t.Errorf("case-insensitive match: dir=%q ok=%v", dir, ok)
	}
	if dir, ok := l.ProjectDir("hubai"); !ok || dir != filepath.Join(projects, "HUBAi") {
		t.Errorf("alias match: dir=%q ok=%v", dir, ok)
	}
	if dir, ok := l.ProjectDir("scoped/inner"); !ok || dir != filepath.Join(projects, "scoped", "inner") {
		t.Errorf("scoped path match: dir=%q ok=%v", dir, ok)
	}
	if _, ok := l.ProjectDir("SCOPED/INNER"); ok {
		t.Error("scoped paths must not match case-insensitively")
	}
	if _, ok := l.ProjectDir("nonexistent"); ok {
		t.Error("missing project should not resolve")
	}
	if _, ok := l.ProjectDir(""); ok {
		t.Error("empty project should not resolve")
	}
	if _, ok := l.ProjectDir("default"); ok {
		t.Error("default sentinel should not resolve")
	}
}
