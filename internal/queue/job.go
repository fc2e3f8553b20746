// Package queue implements the on-disk job queue: one JSON record per job,
// sidecar files for streams, results and questions, and the claim protocol
// that hands a pending job to exactly one runner.
package queue

// Status values a job record moves through. Terminal states are never
// rewritten with a non-terminal status.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusWaiting    = "waiting_for_answers"
	StatusCompleted  = "completed"
	StatusError      = "error"

	// StatusAnswersProvided is a legacy resume status some producers still
	// write. Accepted for dispatch; the relay itself always writes pending.
	StatusAnswersProvided = "answers_provided"
)

// Job types. Non-chat types skip prompt injection; qa, explain and format
// never pause on questions; format always runs in a fresh single-turn session.
const (
	TypeChat    = "chat"
	TypeFormat  = "format"
	TypeExplain = "explain"
	TypeQA      = "qa"
	TypeModify  = "modify"
)

// Image is one attachment carried inline in a job record.
type Image struct {
	Data string `json:"data"` // base64, optionally with a data: URL prefix
	Type string `json:"type"` // mime type
}

// Job is the on-disk job record.
type Job struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	Model          string  `json:"model,omitempty"`
	Project        string  `json:"project,omitempty"`
	Images         []Image `json:"images,omitempty"`
	Created        float64 `json:"created,omitempty"`
	StartedAt      float64 `json:"started_at,omitempty"`
	Activity       string  `json:"activity,omitempty"`
	ContextAnswers string  `json:"context_answers,omitempty"`
	JobType        string  `json:"job_type,omitempty"`
	Personality    string  `json:"personality,omitempty"`
	Result         string  `json:"result,omitempty"`
	Error          string  `json:"error,omitempty"`
	CompletedAt    float64 `json:"completed_at,omitempty"`
	Elapsed        float64 `json:"elapsed,omitempty"`
}

// EffectiveProject normalizes the empty project to the sentinel bucket.
func (j *Job) EffectiveProject() string {
	if j.Project == "" {
		return "default"
	}
	return j.Project
}

// EffectiveModel defaults to opus when the producer did not pick one.
func (j *Job) EffectiveModel() string {
	if j.Model == "" {
		return "opus"
	}
	return j.Model
}

// EffectiveType defaults to chat.
func (j *Job) EffectiveType() string {
	if j.JobType == "" {
		return TypeChat
	}
	return j.JobType
}

// Dispatchable reports whether a status makes the job eligible for a runner.
func Dispatchable(status string) bool {
	return status == StatusPending || status == StatusAnswersProvided
}

// Terminal reports whether a status is final.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}
