package supervisor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning means another supervisor holds the PID file lock for
// this queue directory. main maps it to exit code 1.
var ErrAlreadyRunning = errors.New("another watcher is already running")

// Guard is the singleton-instance lock. The flock is held for the process
// lifetime; releasing (or dying) frees it for the next instance.
type Guard struct {
	fl   *flock.Flock
	path string
}

// AcquireGuard takes a non-blocking exclusive lock on the PID file and
// records the current PID in it. On contention the existing holder's PID is
// included in the error.
func AcquireGuard(path string) (*Guard, error) {
	fl := flock.New(path)
	got, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !got {
		existing := "unknown"
		if data, err := os.ReadFile(path); err == nil && strings.TrimSpace(string(data)) != "" {
			existing = strings.TrimSpace(string(data))
		}
		return nil, fmt.Errorf("%w (PID %s)", ErrAlreadyRunning, existing)
	}
	// The lock lives on the inode, not the content; rewriting the PID
	// through a second descriptor does not release it.
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &Guard{fl: fl, path: path}, nil
}

// Release frees the lock and removes the PID file.
func (g *Guard) Release() {
	if g == nil || g.fl == nil {
		return
	}
	_ = g.fl.Unlock()
	_ = os.Remove(g.path)
	g.fl = nil
}
