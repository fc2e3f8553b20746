// Package runner owns one worker child process for the lifetime of one job:
// claim, prompt assembly, PTY spawn, output pump, question gate, finalize.
package runner

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/axionhq/relaywatch/internal/config"
	"github.com/axionhq/relaywatch/internal/history"
	"github.com/axionhq/relaywatch/internal/layout"
	"github.com/axionhq/relaywatch/internal/queue"
	"github.com/axionhq/relaywatch/internal/questions"
	"github.com/axionhq/relaywatch/internal/remote"
	"github.com/axionhq/relaywatch/internal/session"
)

// Gate is the per-project mutual exclusion the supervisor provides. A runner
// marks the job's project active for the duration of the run and idle when
// the job reaches a stable state.
type Gate interface {
	TryMarkActive(project string) bool
	MarkIdle(project string)
}

// defaultWorkerCommand invokes the worker CLI at reduced scheduling priority
// with permission prompts skipped. Model, session, and prompt flags are
// appended per job.
var defaultWorkerCommand = []string{"nice", "-n", "10", "claude", "--dangerously-skip-permissions"}

// Runner processes claimed jobs against the worker CLI or the remote backend.
type Runner struct {
	Queue    *queue.Queue
	Layout   layout.Layout
	Sessions *session.Registry
	History  *history.Store
	Remote   *remote.Backend
	Cfg      config.Config

	// WorkerCommand is the argv prefix for the worker CLI. Tests substitute
	// a script that emits canned stream-json output.
	WorkerCommand []string
}

// Process claims the job at path and runs it to a stable state. Returns true
// when the job was handled, false when it was skipped (lock contention, not
// dispatchable, project busy).
func (r *Runner) Process(path string, gate Gate) bool {
	job, lock, ok, err := r.Queue.Claim(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watcher: claim %s: %v\n", path, err)
		return false
	}
	if !ok {
		return false
	}
	defer lock.Unlock()

	project := job.EffectiveProject()
	if !gate.TryMarkActive(project) {
		return false
	}
	defer gate.MarkIdle(project)

	if err := r.Queue.MarkProcessing(job, "Starting Claude..."); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: mark processing %s: %v\n", job.ID, err)
		return false
	}
	preview := job.Message
	if len(preview) > 50 {
		preview = preview[:50]
	}
	fmt.Fprintf(os.Stderr, "watcher: processing job %s (project=%s): %s...\n", job.ID, project, preview)

	if remote.IsRemoteModel(job.EffectiveModel()) {
		return r.Remote.Process(job)
	}
	return r.processLocal(job)
}

// processLocal runs one job under the worker CLI. Every failure path ends
// with a terminal status and an Error result so the job never stays visible
// as processing.
func (r *Runner) processLocal(job *queue.Job) bool {
	start := time.Now()
	defer CleanupImages(r.Layout.TempDir(), job.ID)

	cwd, found := r.Layout.ProjectDir(job.Project)
	if !found {
		if job.Project != "" && job.Project != "default" {
			fmt.Fprintf(os.Stderr, "watcher: project %q not found, using %s as cwd\n", job.Project, r.Layout.ProjectsBase)
		}
		cwd = r.Layout.ProjectsBase
	}

	imagePaths, err := SaveImages(r.Layout.TempDir(), job.ID, job.Images)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watcher: job %s: %v\n", job.ID, err)
	}
	if len(imagePaths) > 0 {
		fmt.Fprintf(os.Stderr, "watcher: job %s: attached %d image(s)\n", job.ID, len(imagePaths))
	}

	argv, err := r.buildCommand(job, imagePaths)
	if err != nil {
		r.fail(job, fmt.Sprintf("Error: %v", err))
		return true
	}

	raw, exitCode, timedOut, pumpErr := r.pump(job, argv, cwd, start)
	if pumpErr != nil {
		r.fail(job, fmt.Sprintf("Error: %v", pumpErr))
		return true
	}

	response := r.finalize(raw, exitCode, timedOut)

	// Question gate. Some job types must answer in one shot and never pause.
	jt := job.EffectiveType()
	qs, shouldWait := questions.Detect(response)
	if len(qs) > 0 && shouldWait && jt != queue.TypeQA && jt != queue.TypeExplain && jt != queue.TypeFormat {
		fmt.Fprintf(os.Stderr, "watcher: job %s: detected %d question(s), waiting for answers\n", job.ID, len(qs))
		qf := questions.File{
			JobID:         job.ID,
			Questions:     qs,
			ResponseSoFar: response,
			Waiting:       true,
		}
		if err := r.Queue.WriteQuestions(job.ID, &qf); err != nil {
			r.fail(job, fmt.Sprintf("Error: %v", err))
			return true
		}
		job.Status = queue.StatusWaiting
		job.Activity = fmt.Sprintf("Waiting for %d answer(s)...", len(qs))
		if err := r.Queue.Save(job); err != nil {
			fmt.Fprintf(os.Stderr, "watcher: save job %s: %v\n", job.ID, err)
		}
		return true
	}

	if err := r.Queue.WriteResult(job.ID, response); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: write result %s: %v\n", job.ID, err)
		return true
	}
	job.Status = queue.StatusCompleted
	job.Activity = "Complete"
	if err := r.Queue.Save(job); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: save job %s: %v\n", job.ID, err)
	}

	if jt != queue.TypeFormat {
		if err := r.History.Append(job.EffectiveProject(), job.Message, response); err != nil {
			fmt.Fprintf(os.Stderr, "watcher: history %s: %v\n", job.ID, err)
		}
	}

	r.Queue.RemoveStream(job.ID)
	fmt.Fprintf(os.Stderr, "watcher: job %s complete\n", job.ID)
	return true
}

// buildCommand assembles the worker argv: base command, model, stream-json
// output, session start-or-resume, and the prompt.
func (r *Runner) buildCommand(job *queue.Job, imagePaths []string) ([]string, error) {
	base := r.WorkerCommand
	if base == nil {
		base = defaultWorkerCommand
	}
	argv := append([]string{}, base...)
	argv = append(argv,
		"--model", ModelID(job.EffectiveModel()),
		"--output-format", "stream-json",
		"--verbose",
	)

	if job.EffectiveType() == queue.TypeFormat {
		// Format jobs are single-turn text transformations with no
		// conversation context.
		argv = append(argv, "--session-id", uuid.NewString(), "--max-turns", "1")
	} else {
		id, isNew, err := r.Sessions.GetOrCreate(job.EffectiveProject())
		if err != nil {
			return nil, err
		}
		if isNew {
			argv = append(argv, "--session-id", id)
		} else {
			argv = append(argv, "--resume", id)
		}
	}

	argv = append(argv, "-p", BuildPrompt(job, r.Layout, imagePaths))
	return argv, nil
}

// fail converts any runner-level error into a terminal result. The status is
// forced to completed so the job cannot appear active to producers.
func (r *Runner) fail(job *queue.Job, msg string) {
	fmt.Fprintf(os.Stderr, "watcher: job %s: %s\n", job.ID, msg)
	if err := r.Queue.WriteResult(job.ID, msg); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: write result %s: %v\n", job.ID, err)
	}
	job.Status = queue.StatusCompleted
	job.Activity = "Error"
	if err := r.Queue.Save(job); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: save job %s: %v\n", job.ID, err)
	}
	r.Queue.RemoveStream(job.ID)
}

// updateActivity refreshes the job record's activity from the parsed stream.
// The record is re-read first so producer-side edits are not clobbered.
func (r *Runner) updateActivity(jobID, activity string) {
	j, ok := r.Queue.Load(jobID)
	if !ok {
		return
	}
	j.Activity = activity
	if err := r.Queue.Save(j); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: update activity %s: %v\n", jobID, err)
	}
}
