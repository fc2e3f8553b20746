// Package supervisor runs the main dispatch loop: scan the queue, enforce
// per-project serialization with a bounded worker pool, reap stale and aged
// jobs, write the heartbeat, and guard against duplicate instances.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/axionhq/relaywatch/internal/config"
	"github.com/axionhq/relaywatch/internal/layout"
	"github.com/axionhq/relaywatch/internal/queue"
	"github.com/axionhq/relaywatch/internal/runner"
)

// shutdownGrace is how long Run waits for in-flight jobs after cancellation.
const shutdownGrace = 10 * time.Second

// Processor handles one claimed job to a stable state. Implemented by
// runner.Runner; tests substitute stubs.
type Processor interface {
	Process(path string, gate runner.Gate) bool
}

// Supervisor owns the dispatch loop for one queue directory.
type Supervisor struct {
	cfg      config.Config
	lay      layout.Layout
	q        *queue.Queue
	proc     Processor
	projects *Projects
	hb       *Heartbeat

	jobsProcessed atomic.Int64
	currentJob    atomic.Value // string: last dispatched job id

	mu       sync.Mutex
	inFlight map[string]struct{} // job paths submitted to the pool
}

// New creates a supervisor. The queue directory must exist or be creatable.
func New(cfg config.Config, lay layout.Layout, q *queue.Queue, proc Processor) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		lay:      lay,
		q:        q,
		proc:     proc,
		projects: NewProjects(cfg.MaxParallelProjects),
		hb:       NewHeartbeat(lay.HeartbeatFile()),
		inFlight: make(map[string]struct{}),
	}
	s.currentJob.Store("")
	return s
}

// Projects exposes the active set, mainly for the reaper's busy check.
func (s *Supervisor) Projects() *Projects { return s.projects }

// Run blocks until ctx is cancelled. Returns ErrAlreadyRunning (wrapped)
// when another instance holds the queue's PID file.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.lay.EnsureDirs(); err != nil {
		return err
	}

	guard, err := AcquireGuard(s.lay.PIDFile())
	if err != nil {
		return err
	}
	defer guard.Release()

	fmt.Fprintf(os.Stderr, "watcher: starting (PID %d)\n", os.Getpid())
	fmt.Fprintf(os.Stderr, "watcher: watching %s for jobs\n", s.q.Dir())
	fmt.Fprintf(os.Stderr, "watcher: max job runtime %d minutes, max parallel projects %d\n",
		int(s.cfg.MaxJobRuntime.Minutes()), s.cfg.MaxParallelProjects)

	// Recover jobs left processing by a previous instance before dispatching.
	if n, err := s.q.ReapStale(s.cfg.StaleJobThreshold, s.projects.Busy); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: startup reap: %v\n", err)
	} else if n > 0 {
		fmt.Fprintf(os.Stderr, "watcher: recovered %d stale job(s)\n", n)
	}

	// Fixed worker pool consuming submitted job paths.
	work := make(chan string, 4*s.cfg.MaxParallelProjects)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.MaxParallelProjects; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range work {
				s.dispatch(path)
			}
		}()
	}

	// fsnotify wake-ups shorten the latency between a producer write and the
	// next scan; the periodic scan stays the source of truth so the loop
	// works on filesystems without inotify.
	wake := make(chan struct{}, 1)
	stopWatch := s.watchQueueDir(ctx, wake)
	defer stopWatch()

	ticker := time.NewTicker(s.cfg.ProcessCheckInterval)
	defer ticker.Stop()

	var lastHeartbeat, lastStale, lastOld time.Time
	lastStale = time.Now()
	lastOld = time.Now()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "watcher: received shutdown signal, shutting down...\n")
			close(work)
			s.waitForWorkers(&wg)
			fmt.Fprintf(os.Stderr, "watcher: shutdown complete\n")
			return nil

		case <-ticker.C:
		case <-wake:
		}

		now := time.Now()

		if now.Sub(lastHeartbeat) >= s.cfg.HeartbeatInterval {
			active := s.projects.Count()
			status := "Idle - waiting for jobs"
			if active > 0 {
				status = fmt.Sprintf("Processing %d project(s)", active)
			}
			current, _ := s.currentJob.Load().(string)
			if err := s.hb.Write(s.jobsProcessed.Load(), current, status); err != nil {
				fmt.Fprintf(os.Stderr, "watcher: heartbeat: %v\n", err)
			}
			lastHeartbeat = now
		}

		if now.Sub(lastStale) >= s.cfg.StaleCheckInterval {
			if _, err := s.q.ReapStale(s.cfg.StaleJobThreshold, s.projects.Busy); err != nil {
				fmt.Fprintf(os.Stderr, "watcher: stale reap: %v\n", err)
			}
			lastStale = now
		}

		if s.cfg.OldJobCleanupEnabled && now.Sub(lastOld) >= s.cfg.OldJobCleanupInterval {
			if n, err := s.q.ReapOld(queue.OldAges{
				Jobs:      s.cfg.OldJobAge,
				Questions: s.cfg.OldQuestionsAge,
				Locks:     s.cfg.OldLockAge,
			}); err != nil {
				fmt.Fprintf(os.Stderr, "watcher: old-job reap: %v\n", err)
			} else if n > 0 {
				fmt.Fprintf(os.Stderr, "watcher: removed %d aged file(s)\n", n)
			}
			lastOld = now
		}

		s.scanAndSubmit(work)
	}
}

// scanAndSubmit peeks every job record and queues dispatchable ones whose
// project is idle. The peek is lock-free; the runner re-verifies under the
// file lock.
func (s *Supervisor) scanAndSubmit(work chan<- string) {
	paths, err := s.q.Scan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "watcher: %v\n", err)
		return
	}
	for _, path := range paths {
		s.mu.Lock()
		_, submitted := s.inFlight[path]
		s.mu.Unlock()
		if submitted {
			continue
		}

		j, ok := s.q.LoadPath(path)
		if !ok || !queue.Dispatchable(j.Status) {
			continue
		}
		if s.projects.Busy(j.EffectiveProject()) {
			continue
		}

		select {
		case work <- path:
			s.mu.Lock()
			s.inFlight[path] = struct{}{}
			s.mu.Unlock()
			s.currentJob.Store(j.ID)
			fmt.Fprintf(os.Stderr, "watcher: submitting job %s for project %q\n", j.ID, j.EffectiveProject())
		default:
			// Pool backlog full; the next scan retries.
			return
		}
	}
}

// dispatch runs one submitted job path on a pool worker.
func (s *Supervisor) dispatch(path string) {
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, path)
		s.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "watcher: job %s panicked: %v\n", filepath.Base(path), r)
		}
	}()

	if s.proc.Process(path, s.projects) {
		s.jobsProcessed.Add(1)
	}
}

// watchQueueDir feeds create events for job records into wake. Errors are
// non-fatal: polling covers for a missing watcher.
func (s *Supervisor) watchQueueDir(ctx context.Context, wake chan<- struct{}) (stop func()) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "watcher: fsnotify unavailable, polling only: %v\n", err)
		return func() {}
	}
	if err := w.Add(s.q.Dir()); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: fsnotify add: %v\n", err)
		_ = w.Close()
		return func() {}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				name := filepath.Base(ev.Name)
				if !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".tmp") || layout.IsReserved(name) {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case <-w.Errors:
			}
		}
	}()
	return func() { _ = w.Close() }
}

// waitForWorkers blocks for running jobs up to the shutdown grace period.
func (s *Supervisor) waitForWorkers(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		fmt.Fprintf(os.Stderr, "watcher: %d project(s) still running at shutdown\n", s.projects.Count())
	}
}
