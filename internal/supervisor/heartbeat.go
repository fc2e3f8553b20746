package supervisor

import (
	"os"
	"time"

	"github.com/axionhq/relaywatch/internal/fsutil"
)

// HeartbeatRecord is the liveness file producers poll to see whether the
// watcher is alive and what it is doing.
type HeartbeatRecord struct {
	Timestamp     float64 `json:"timestamp"`
	PID           int     `json:"pid"`
	JobsProcessed int64   `json:"jobs_processed"`
	CurrentJob    string  `json:"current_job,omitempty"`
	Activity      string  `json:"activity"`
}

// Heartbeat writes the liveness file. Only the supervisor loop writes it.
type Heartbeat struct {
	path string
}

// NewHeartbeat creates a heartbeat writer for the given file.
func NewHeartbeat(path string) *Heartbeat {
	return &Heartbeat{path: path}
}

// Write persists the current liveness record atomically.
func (h *Heartbeat) Write(jobsProcessed int64, currentJob, activity string) error {
	return fsutil.WriteJSONAtomic(h.path, HeartbeatRecord{
		Timestamp:     float64(time.Now().UnixNano()) / float64(time.Second),
		PID:           os.Getpid(),
		JobsProcessed: jobsProcessed,
		CurrentJob:    currentJob,
		Activity:      activity,
	})
}

// ReadHeartbeat loads the liveness record; ok is false when absent or
// unreadable.
func ReadHeartbeat(path string) (HeartbeatRecord, bool) {
	var rec HeartbeatRecord
	ok := fsutil.LoadJSON(path, &rec)
	return rec, ok
}

// Age returns how long ago the record was written.
func (r HeartbeatRecord) Age() time.Duration {
	sec := float64(time.Now().UnixNano()) / float64(time.Second)
	return time.Duration((sec - r.Timestamp) * float64(time.Second))
}
