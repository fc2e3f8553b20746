package relay

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/axionhq/relaywatch/internal/fsutil"
	"github.com/axionhq/relaywatch/internal/layout"
	"github.com/axionhq/relaywatch/internal/queue"
	"github.com/axionhq/relaywatch/internal/questions"
)

// defaultCacheTTL keeps consumed results available to re-polls for a short
// window after deletion.
const defaultCacheTTL = 30 * time.Second

// Job is one unit of work submitted to the queue.
type Job struct {
	ID             string
	Message        string
	Model          string
	Project        string
	JobType        string
	Personality    string
	ContextAnswers string
	Images         []Image
}

// Image is one inline attachment.
type Image struct {
	Data string // base64
	Type string // mime type
}

// Status mirrors the consumer-visible state of a job record.
type Status struct {
	ID       string
	Status   string
	Activity string
	Project  string
}

// Question is one prompt the worker paused on.
type Question struct {
	ID      string
	Text    string
	Type    string // "open" or "choice"
	Options []QuestionOption
}

// QuestionOption is one selectable answer.
type QuestionOption struct {
	Key  string
	Text string
}

type cacheEntry struct {
	text string
	at   time.Time
}

// Client reads and writes one queue directory. Safe for concurrent use.
type Client struct {
	q        *queue.Queue
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New creates a client over the queue directory for the configured user.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{cacheTTL: defaultCacheTTL}
	for _, o := range opts {
		o(&cfg)
	}

	lay := layout.DefaultLayout(cfg.user)
	if cfg.baseDir != "" {
		lay.BaseDir = cfg.baseDir
	}
	if err := os.MkdirAll(lay.QueueDir(), 0o750); err != nil {
		return nil, fmt.Errorf("relay: create queue dir: %w", err)
	}

	return &Client{
		q:        queue.New(lay.QueueDir()),
		cacheTTL: cfg.cacheTTL,
		cache:    make(map[string]cacheEntry),
	}, nil
}

// Submit writes a pending job record and returns its id. An empty id gets a
// random short one.
func (c *Client) Submit(j Job) (string, error) {
	id := j.ID
	if id == "" {
		id = uuid.NewString()[:8]
	}
	rec := queue.Job{
		ID:             id,
		Status:         queue.StatusPending,
		Message:        j.Message,
		Model:          j.Model,
		Project:        j.Project,
		JobType:        j.JobType,
		Personality:    j.Personality,
		ContextAnswers: j.ContextAnswers,
		Created:        float64(time.Now().UnixNano()) / float64(time.Second),
	}
	for _, img := range j.Images {
		rec.Images = append(rec.Images, queue.Image{Data: img.Data, Type: img.Type})
	}
	if err := c.q.Save(&rec); err != nil {
		return "", fmt.Errorf("relay: submit %s: %w", id, err)
	}
	return id, nil
}

// Status reads the current job record; ok is false when the record is gone
// or mid-write.
func (c *Client) Status(id string) (Status, bool) {
	j, ok := c.q.Load(id)
	if !ok {
		return Status{}, false
	}
	return Status{ID: j.ID, Status: j.Status, Activity: j.Activity, Project: j.EffectiveProject()}, true
}

// StreamSnapshot returns the latest raw worker output for a running job.
func (c *Client) StreamSnapshot(id string) string {
	data, err := os.ReadFile(c.q.StreamPath(id))
	if err != nil {
		return ""
	}
	return string(data)
}

// Questions returns the pending questions for a paused job.
func (c *Client) Questions(id string) ([]Question, bool) {
	var f questions.File
	if !fsutil.LoadJSON(c.q.QuestionsPath(id), &f) {
		return nil, false
	}
	out := make([]Question, 0, len(f.Questions))
	for _, q := range f.Questions {
		pub := Question{ID: q.ID, Text: q.Text, Type: q.Type}
		for _, o := range q.Options {
			pub.Options = append(pub.Options, QuestionOption{Key: o.Key, Text: o.Text})
		}
		out = append(out, pub)
	}
	return out, true
}

// Answer resumes a paused job: answers are appended to the job's context as
// "qid: answer" lines, the status returns to pending, and the questions
// sidecar is deleted.
func (c *Client) Answer(id string, answers map[string]string) error {
	j, ok := c.q.Load(id)
	if !ok {
		return fmt.Errorf("relay: answer %s: job record not found", id)
	}
	if j.Status != queue.StatusWaiting {
		return fmt.Errorf("relay: answer %s: job is %s, not %s", id, j.Status, queue.StatusWaiting)
	}

	qids := make([]string, 0, len(answers))
	for qid := range answers {
		qids = append(qids, qid)
	}
	sort.Strings(qids)
	var lines []string
	for _, qid := range qids {
		lines = append(lines, fmt.Sprintf("%s: %s", qid, answers[qid]))
	}

	block := strings.Join(lines, "\n")
	if j.ContextAnswers != "" {
		j.ContextAnswers += "\n\n" + block
	} else {
		j.ContextAnswers = block
	}
	j.Status = queue.StatusPending
	if err := c.q.Save(j); err != nil {
		return fmt.Errorf("relay: answer %s: %w", id, err)
	}
	c.q.RemoveQuestions(id)
	return nil
}

// Result performs the completion handshake: when the result sidecar exists,
// its text is returned and the job record plus all sidecars are deleted.
// The text stays cached for the client's TTL so immediate re-polls after
// deletion still succeed.
func (c *Client) Result(id string) (string, bool) {
	c.mu.Lock()
	if e, ok := c.cache[id]; ok && time.Since(e.at) <= c.cacheTTL {
		c.mu.Unlock()
		return e.text, true
	}
	c.mu.Unlock()

	data, err := os.ReadFile(c.q.ResultPath(id))
	if err != nil {
		return "", false
	}
	text := string(data)

	c.mu.Lock()
	c.cache[id] = cacheEntry{text: text, at: time.Now()}
	for k, e := range c.cache {
		if time.Since(e.at) > c.cacheTTL {
			delete(c.cache, k)
		}
	}
	c.mu.Unlock()

	for _, p := range []string{
		c.q.JobPath(id),
		c.q.ResultPath(id),
		c.q.StreamPath(id),
		c.q.QuestionsPath(id),
		c.q.JobPath(id) + ".lock",
	} {
		_ = os.Remove(p)
	}
	return text, true
}
