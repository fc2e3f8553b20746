package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/axionhq/relaywatch/internal/fsutil"
	"github.com/axionhq/relaywatch/internal/layout"
)

// Queue is a directory of job records and their sidecars.
type Queue struct {
	dir string
}

// New creates a queue over an existing directory.
func New(dir string) *Queue {
	return &Queue{dir: dir}
}

// Dir returns the queue directory.
func (q *Queue) Dir() string { return q.dir }

// JobPath returns the record path for a job id.
func (q *Queue) JobPath(id string) string { return filepath.Join(q.dir, id+".json") }

// StreamPath returns the live-output sidecar path.
func (q *Queue) StreamPath(id string) string { return filepath.Join(q.dir, id+".stream") }

// ResultPath returns the final-response sidecar path.
func (q *Queue) ResultPath(id string) string { return filepath.Join(q.dir, id+".result") }

// QuestionsPath returns the question-pause sidecar path.
func (q *Queue) QuestionsPath(id string) string { return filepath.Join(q.dir, id+".questions") }

// Load reads a job record. ok is false when the file is absent or not yet
// fully written; callers skip and retry on the next scan.
func (q *Queue) Load(id string) (*Job, bool) {
	return q.LoadPath(q.JobPath(id))
}

// LoadPath reads a job record by path.
func (q *Queue) LoadPath(path string) (*Job, bool) {
	var j Job
	if !fsutil.LoadJSON(path, &j) {
		return nil, false
	}
	if j.ID == "" {
		j.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	return &j, true
}

// Save persists a job record atomically.
func (q *Queue) Save(j *Job) error {
	return fsutil.WriteJSONAtomic(q.JobPath(j.ID), j)
}

// Scan returns the paths of all job records in the queue, skipping reserved
// names and partial writes. Order is directory order; callers must not rely
// on it.
func (q *Queue) Scan() ([]string, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("scan queue: %w", err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || layout.IsReserved(name) {
			continue
		}
		if !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".tmp") {
			continue
		}
		paths = append(paths, filepath.Join(q.dir, name))
	}
	return paths, nil
}

// Claim locks a job record and verifies it is still dispatchable under the
// lock. On success the job is returned with the lock held; the caller must
// release it when the job reaches a stable state. ok is false on lock
// contention, deletion races, or an ineligible status.
func (q *Queue) Claim(path string) (job *Job, lock *fsutil.Lock, ok bool, err error) {
	lock, got, err := fsutil.TryLock(path)
	if err != nil {
		return nil, nil, false, err
	}
	if !got {
		return nil, nil, false, nil
	}

	if _, err := os.Stat(path); err != nil {
		lock.Unlock()
		return nil, nil, false, nil
	}
	j, loaded := q.LoadPath(path)
	if !loaded || !Dispatchable(j.Status) {
		lock.Unlock()
		return nil, nil, false, nil
	}
	return j, lock, true, nil
}

// MarkProcessing transitions a claimed job to processing and persists it.
func (q *Queue) MarkProcessing(j *Job, activity string) error {
	j.Status = StatusProcessing
	j.Activity = activity
	j.StartedAt = unixNow()
	return q.Save(j)
}

// WriteResult writes the final response sidecar.
func (q *Queue) WriteResult(id, text string) error {
	return fsutil.WriteTextAtomic(q.ResultPath(id), text)
}

// WriteStream overwrites the live-output sidecar.
func (q *Queue) WriteStream(id, raw string) error {
	return fsutil.WriteTextAtomic(q.StreamPath(id), raw)
}

// RemoveStream deletes the live-output sidecar; results and questions are
// owned by the producer-side completion protocol.
func (q *Queue) RemoveStream(id string) {
	_ = os.Remove(q.StreamPath(id))
}

// WriteQuestions writes the question-pause sidecar.
func (q *Queue) WriteQuestions(id string, v any) error {
	return fsutil.WriteJSONAtomic(q.QuestionsPath(id), v)
}

// RemoveQuestions deletes the question-pause sidecar.
func (q *Queue) RemoveQuestions(id string) {
	_ = os.Remove(q.QuestionsPath(id))
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
