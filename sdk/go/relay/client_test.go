package relay

import (
	"os"
	"testing"
	"time"

	"github.com/axionhq/relaywatch/internal/queue"
	"github.com/axionhq/relaywatch/internal/questions"
)

func newTestClient(t *testing.T) (*Client, *queue.Queue) {
	t.Helper()
	base := t.TempDir()
	c, err := New(WithBaseDir(base), WithCacheTTL(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	return c, c.q
}

func TestSubmitAndStatus(t *testing.T) {
	c, q := newTestClient(t)
	id, err := c.Submit(Job{Message: "hello", Model: "sonnet", Project: "demo"})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	st, ok := c.Status(id)
	if !ok || st.Status != queue.StatusPending || st.Project != "demo" {
		t.Errorf("status = %+v, ok = %v", st, ok)
	}

	j, ok := q.Load(id)
	if !ok || j.Message != "hello" || j.Created == 0 {
		t.Errorf("record = %+v", j)
	}
}

func TestAnswerResumesJob(t *testing.T) {
	c, q := newTestClient(t)
	id, err := c.Submit(Job{Message: "pick a color"})
	if err != nil {
		t.Fatal(err)
	}

	// Simulate the runner pausing the job on a question.
	j, _ := q.Load(id)
	j.Status = queue.StatusWaiting
	if err := q.Save(j); err != nil {
		t.Fatal(err)
	}
	if err := q.WriteQuestions(id, &questions.File{
		JobID: id,
		Questions: []questions.Question{{
			ID:   "Q1",
			Text: "Which color?",
			Type: "choice",
			Options: []questions.Option{
				{Key: "1", Text: "blue"},
				{Key: "2", Text: "red"},
			},
		}},
		ResponseSoFar: "thinking",
		Waiting:       true,
	}); err != nil {
		t.Fatal(err)
	}

	qs, ok := c.Questions(id)
	if !ok || len(qs) != 1 || qs[0].Type != "choice" || len(qs[0].Options) != 2 {
		t.Fatalf("questions = %+v, ok = %v", qs, ok)
	}

	if err := c.Answer(id, map[string]string{"Q1": "1"}); err != nil {
		t.Fatal(err)
	}

	j, _ = q.Load(id)
	if j.Status != queue.StatusPending {
		t.Errorf("status after answer = %q", j.Status)
	}
	if j.ContextAnswers != "Q1: 1" {
		t.Errorf("context answers = %q", j.ContextAnswers)
	}
	if _, err := os.Stat(q.QuestionsPath(id)); !os.IsNotExist(err) {
		t.Error("questions sidecar not deleted")
	}
}

func TestAnswerAppendsToPriorAnswers(t *testing.T) {
	c, q := newTestClient(t)
	id, err := c.Submit(Job{Message: "m", ContextAnswers: "Q1: blue"})
	if err != nil {
		t.Fatal(err)
	}
	j, _ := q.Load(id)
	j.Status = queue.StatusWaiting
	if err := q.Save(j); err != nil {
		t.Fatal(err)
	}

	if err := c.Answer(id, map[string]string{"Q2": "yes"}); err != nil {
		t.Fatal(err)
	}
	j, _ = q.Load(id)
	if j.ContextAnswers != "Q1: blue\n\nQ2: yes" {
		t.Errorf("context answers = %q", j.ContextAnswers)
	}
}

func TestAnswerRejectsNonWaitingJob(t *testing.T) {
	c, _ := newTestClient(t)
	id, err := c.Submit(Job{Message: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Answer(id, map[string]string{"Q1": "x"}); err == nil {
		t.Error("answered a job that was not waiting")
	}
}

func TestResultHandshakeDeletesSidecars(t *testing.T) {
	c, q := newTestClient(t)
	id, err := c.Submit(Job{Message: "m"})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Result(id); ok {
		t.Fatal("result available before completion")
	}

	// Simulate the runner completing the job.
	j, _ := q.Load(id)
	j.Status = queue.StatusCompleted
	if err := q.Save(j); err != nil {
		t.Fatal(err)
	}
	if err := q.WriteResult(id, "the answer"); err != nil {
		t.Fatal(err)
	}

	text, ok := c.Result(id)
	if !ok || text != "the answer" {
		t.Fatalf("result = %q, ok = %v", text, ok)
	}

	for _, p := range []string{q.JobPath(id), q.ResultPath(id), q.StreamPath(id), q.QuestionsPath(id)} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s survived the completion handshake", p)
		}
	}

	// Rapid re-poll after deletion is served from the cache.
	text, ok = c.Result(id)
	if !ok || text != "the answer" {
		t.Errorf("cached result = %q, ok = %v", text, ok)
	}
}

func TestStreamSnapshot(t *testing.T) {
	c, q := newTestClient(t)
	id, err := c.Submit(Job{Message: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.StreamSnapshot(id); got != "" {
		t.Errorf("snapshot before stream = %q", got)
	}
	if err := q.WriteStream(id, "raw output so far"); err != nil {
		t.Fatal(err)
	}
	if got := c.StreamSnapshot(id); got != "raw output so far" {
		t.Errorf("snapshot = %q", got)
	}
}

func TestSubmitPreservesImagesAndType(t *testing.T) {
	c, q := newTestClient(t)
	id, err := c.Submit(Job{
		Message: "see attached",
		JobType: "qa",
		Images:  []Image{{Data: "aGk=", Type: "image/png"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	j, _ := q.Load(id)
	if j.JobType != "qa" || len(j.Images) != 1 || j.Images[0].Type != "image/png" {
		t.Errorf("record = %+v", j)
	}
}
