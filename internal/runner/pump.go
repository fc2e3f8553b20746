package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/axionhq/relaywatch/internal/queue"
	"github.com/axionhq/relaywatch/internal/stream"
)

// exitGrace is how long to wait for the child after its output closes, and
// again after a terminate, before force-killing.
const exitGrace = 5 * time.Second

// pump spawns the worker under a PTY and drains its output until exit or
// timeout. The accumulated output is flushed to the stream sidecar on every
// chunk; the job record's activity is refreshed at most once per
// ActivityUpdateInterval. Returns the raw output, the exit code, and whether
// the runtime ceiling was hit.
func (r *Runner) pump(job *queue.Job, argv []string, cwd string, start time.Time) (raw string, exitCode int, timedOut bool, err error) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		return "", 0, false, fmt.Errorf("open pty: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cwd
	cmd.Stdout = pts
	cmd.Stderr = pts
	// Stdin stays nil: the worker reads nothing and must never block on input.

	if err := cmd.Start(); err != nil {
		_ = pts.Close()
		return "", 0, false, fmt.Errorf("start worker: %w", err)
	}
	// Close the slave in the parent; the child holds the only reference, so
	// reads on the master fail with EIO once it exits.
	_ = pts.Close()
	fmt.Fprintf(os.Stderr, "watcher: job %s: worker started (PID %d)\n", job.ID, cmd.Process.Pid)

	chunks := make(chan []byte, 64)
	go func() {
		defer close(chunks)
		buf := make([]byte, 4096)
		for {
			n, err := ptmx.Read(buf)
			if n > 0 {
				c := make([]byte, n)
				copy(c, buf[:n])
				chunks <- c
			}
			if err != nil {
				return
			}
		}
	}()

	var out strings.Builder
	var lastActivity time.Time
	ticker := time.NewTicker(r.Cfg.ProcessCheckInterval)
	defer ticker.Stop()

	for chunks != nil {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				break
			}
			out.Write(chunk)
			full := out.String()
			if err := r.Queue.WriteStream(job.ID, full); err != nil {
				fmt.Fprintf(os.Stderr, "watcher: write stream %s: %v\n", job.ID, err)
			}
			if time.Since(lastActivity) >= r.Cfg.ActivityUpdateInterval {
				activity, _ := stream.Parse(full)
				r.updateActivity(job.ID, activity)
				lastActivity = time.Now()
			}

		case <-ticker.C:
			if time.Since(start) > r.Cfg.MaxJobRuntime {
				fmt.Fprintf(os.Stderr, "watcher: job %s timed out after %.0fs, killing worker\n",
					job.ID, time.Since(start).Seconds())
				timedOut = true
				killTree(cmd.Process.Pid)
				// The reader goroutine drains whatever the PTY buffered and
				// closes chunks once the process is gone.
			}
		}
	}

	exitCode = waitWithGrace(cmd)
	return out.String(), exitCode, timedOut, nil
}

// waitWithGrace reaps the child, escalating to a tree kill if it lingers
// after its output closed.
func waitWithGrace(cmd *exec.Cmd) int {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return exitCodeOf(err)
	case <-time.After(exitGrace):
		fmt.Fprintf(os.Stderr, "watcher: worker %d did not exit cleanly, killing\n", cmd.Process.Pid)
		killTree(cmd.Process.Pid)
		return exitCodeOf(<-done)
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// killTree kills a worker and its children: pkill the descendants first,
// then SIGKILL the process itself.
func killTree(pid int) {
	_ = exec.Command("pkill", "-P", strconv.Itoa(pid)).Run()
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		fmt.Fprintf(os.Stderr, "watcher: kill %d: %v\n", pid, err)
	}
}
