package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/axionhq/relaywatch/internal/layout"
)

// Messages written by the reapers.
const (
	interruptedResult = "Error: Job was interrupted. Please retry your request."
	questionTimedOut  = "Error: Question timed out - no answer provided."
	retryActivity     = "Queued (retry after restart)"
)

// OldAges bundles the retention thresholds for ReapOld.
type OldAges struct {
	Jobs      time.Duration
	Questions time.Duration
	Locks     time.Duration
}

// ReapStale recovers jobs stuck in processing, typically after a crash or
// restart. busy reports whether a project currently has a live runner; such
// jobs are left alone. Jobs with a result sidecar are marked completed.
// Jobs older than threshold get an interruption error; younger ones are
// re-queued. Returns the number of records touched.
func (q *Queue) ReapStale(threshold time.Duration, busy func(project string) bool) (int, error) {
	paths, err := q.Scan()
	if err != nil {
		return 0, err
	}
	now := unixNow()
	touched := 0
	for _, path := range paths {
		j, ok := q.LoadPath(path)
		if !ok || j.Status != StatusProcessing {
			continue
		}

		if _, err := os.Stat(q.ResultPath(j.ID)); err == nil {
			j.Status = StatusCompleted
			if err := q.Save(j); err != nil {
				return touched, fmt.Errorf("reap stale %s: %w", j.ID, err)
			}
			touched++
			continue
		}

		if busy != nil && busy(j.EffectiveProject()) {
			continue
		}

		started := j.StartedAt
		if started == 0 {
			started = j.Created
		}
		if started > 0 && now-started > threshold.Seconds() {
			if err := q.WriteResult(j.ID, interruptedResult); err != nil {
				return touched, fmt.Errorf("reap stale %s: %w", j.ID, err)
			}
			j.Status = StatusCompleted
		} else {
			j.Status = StatusPending
			j.Activity = retryActivity
		}
		if err := q.Save(j); err != nil {
			return touched, fmt.Errorf("reap stale %s: %w", j.ID, err)
		}
		touched++
	}
	return touched, nil
}

// ReapOld deletes aged queue files: completed job records and their sidecars
// past ages.Jobs, unanswered question sidecars past ages.Questions (timing out
// the paused job), and orphaned lock files past ages.Locks. Returns the number
// of files removed.
func (q *Queue) ReapOld(ages OldAges) (int, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return 0, fmt.Errorf("reap old: %w", err)
	}
	now := time.Now()
	removed := 0

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || layout.IsReserved(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		age := now.Sub(info.ModTime())
		path := filepath.Join(q.dir, name)

		switch {
		case strings.HasSuffix(name, ".json"):
			if age < ages.Jobs {
				continue
			}
			j, ok := q.LoadPath(path)
			if !ok || !Terminal(j.Status) {
				continue
			}
			for _, p := range []string{path, q.ResultPath(j.ID), q.StreamPath(j.ID), path + ".lock"} {
				if os.Remove(p) == nil {
					removed++
				}
			}

		case strings.HasSuffix(name, ".questions"):
			if age < ages.Questions {
				continue
			}
			id := strings.TrimSuffix(name, ".questions")
			if j, ok := q.Load(id); ok && j.Status == StatusWaiting {
				if err := q.WriteResult(id, questionTimedOut); err != nil {
					return removed, fmt.Errorf("reap old %s: %w", id, err)
				}
				j.Status = StatusCompleted
				if err := q.Save(j); err != nil {
					return removed, fmt.Errorf("reap old %s: %w", id, err)
				}
			}
			if os.Remove(path) == nil {
				removed++
			}

		case strings.HasSuffix(name, ".lock"):
			if age < ages.Locks {
				continue
			}
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}
