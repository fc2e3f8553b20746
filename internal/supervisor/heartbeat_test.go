package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHeartbeatRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watcher.heartbeat")
	hb := NewHeartbeat(path)

	if err := hb.Write(7, "job42", "Processing 2 project(s)"); err != nil {
		t.Fatal(err)
	}

	rec, ok := ReadHeartbeat(path)
	if !ok {
		t.Fatal("ReadHeartbeat ok=false")
	}
	if rec.PID != os.Getpid() || rec.JobsProcessed != 7 || rec.CurrentJob != "job42" {
		t.Errorf("record = %+v", rec)
	}
	if age := rec.Age(); age < 0 || age > 5*time.Second {
		t.Errorf("age = %v", age)
	}
}

func TestHeartbeatMissing(t *testing.T) {
	if _, ok := ReadHeartbeat(filepath.Join(t.TempDir(), "none")); ok {
		t.Error("read a missing heartbeat")
	}
}
