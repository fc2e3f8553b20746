// Package remote streams chat completions from an OpenAI-compatible HTTP API
// for vendor-prefixed model ids, keeping the same job contract and stream
// sidecar format as the worker CLI path.
package remote

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/axionhq/relaywatch/internal/config"
	"github.com/axionhq/relaywatch/internal/history"
	"github.com/axionhq/relaywatch/internal/queue"
	"github.com/axionhq/relaywatch/internal/stream"
)

// vendorPrefixes select the remote backend instead of the worker CLI.
var vendorPrefixes = []string{
	"nvidia/", "meta/", "deepseek-ai/", "qwen/", "mistralai/",
	"microsoft/", "google/", "moonshotai/", "openai/",
}

// IsRemoteModel reports whether a model id belongs to a remote chat API.
func IsRemoteModel(model string) bool {
	for _, p := range vendorPrefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// defaultOpenAIBaseURL is the endpoint for openai/-prefixed models.
const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// requestTimeout bounds one streaming call end to end.
const requestTimeout = 5 * time.Minute

// maxTokens is the completion cap sent with every request.
const maxTokens = 8192

// Backend performs streaming chat-completion calls against the configured
// vendor endpoints. Safe for concurrent use.
type Backend struct {
	queue            *queue.Queue
	history          *history.Store
	env              config.Env
	openAIBaseURL    string
	client           *http.Client
	activityInterval time.Duration
}

// New creates a backend over the queue and history store.
func New(q *queue.Queue, hist *history.Store, env config.Env, activityInterval time.Duration) *Backend {
	if activityInterval <= 0 {
		activityInterval = 2 * time.Second
	}
	return &Backend{
		queue:            q,
		history:          hist,
		env:              env,
		openAIBaseURL:    defaultOpenAIBaseURL,
		client:           &http.Client{Timeout: requestTimeout},
		activityInterval: activityInterval,
	}
}

// endpoint resolves the base URL, API key, and wire model id for a job's
// model tag. openai/ models go to the OpenAI endpoint with the prefix
// stripped; everything else goes to the NVIDIA endpoint with the id as-is.
func (b *Backend) endpoint(model string) (baseURL, apiKey, modelID, vendor string) {
	if strings.HasPrefix(model, "openai/") {
		return b.openAIBaseURL, b.env.OpenAIAPIKey, strings.TrimPrefix(model, "openai/"), "OpenAI"
	}
	return b.env.NvidiaBaseURL, b.env.NvidiaAPIKey, model, "NVIDIA"
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	MaxTok   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Process runs one job against the remote API. The job is already claimed
// and marked processing by the caller; this finalizes it in place. Always
// reports the job as handled.
func (b *Backend) Process(job *queue.Job) bool {
	start := time.Now()

	baseURL, apiKey, modelID, vendor := b.endpoint(job.EffectiveModel())
	if apiKey == "" {
		b.fail(job, "API key not configured for "+vendor)
		return true
	}

	job.Activity = fmt.Sprintf("Calling %s...", modelID)
	if err := b.queue.Save(job); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: save job %s: %v\n", job.ID, err)
	}

	body, err := json.Marshal(chatRequest{
		Model:    modelID,
		Messages: []chatMessage{{Role: "user", Content: job.Message}},
		Stream:   true,
		MaxTok:   maxTokens,
	})
	if err != nil {
		b.fail(job, fmt.Sprintf("encode request: %v", err))
		return true
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		b.fail(job, fmt.Sprintf("build request: %v", err))
		return true
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.fail(job, fmt.Sprintf("API request failed: %v", err))
		return true
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		b.fail(job, fmt.Sprintf("API error: %d - %s", resp.StatusCode, tail))
		return true
	}

	var full strings.Builder
	var streamLines []string
	lastActivity := time.Time{}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}
		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		full.WriteString(content)

		// Synthesize assistant event lines so the UI reads this stream the
		// same way as worker CLI output.
		streamLines = append(streamLines, stream.TextLine(content))
		if err := b.queue.WriteStream(job.ID, strings.Join(streamLines, "\n")); err != nil {
			fmt.Fprintf(os.Stderr, "watcher: write stream %s: %v\n", job.ID, err)
		}

		if time.Since(lastActivity) >= b.activityInterval {
			job.Activity = fmt.Sprintf("Generating... (%ds)", int(time.Since(start).Seconds()))
			if err := b.queue.Save(job); err == nil {
				lastActivity = time.Now()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		b.fail(job, fmt.Sprintf("API stream failed: %v", err))
		return true
	}

	result := full.String()
	elapsed := time.Since(start)

	job.Status = queue.StatusCompleted
	job.Result = result
	job.CompletedAt = float64(time.Now().UnixNano()) / float64(time.Second)
	job.Elapsed = elapsed.Seconds()
	job.Activity = "Complete"
	if err := b.queue.Save(job); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: save job %s: %v\n", job.ID, err)
	}
	if err := b.queue.WriteResult(job.ID, result); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: write result %s: %v\n", job.ID, err)
	}
	b.queue.RemoveStream(job.ID)

	if job.EffectiveType() != queue.TypeFormat {
		if err := b.history.Append(job.EffectiveProject(), job.Message, result); err != nil {
			fmt.Fprintf(os.Stderr, "watcher: history %s: %v\n", job.ID, err)
		}
	}

	fmt.Fprintf(os.Stderr, "watcher: job %s completed via %s in %.1fs\n", job.ID, modelID, elapsed.Seconds())
	return true
}

// fail marks a job with a terminal error status and diagnostic.
func (b *Backend) fail(job *queue.Job, msg string) {
	fmt.Fprintf(os.Stderr, "watcher: job %s: %s\n", job.ID, msg)
	job.Status = queue.StatusError
	job.Error = msg
	if err := b.queue.Save(job); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: save job %s: %v\n", job.ID, err)
	}
	if err := b.queue.WriteResult(job.ID, "Error: "+msg); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: write result %s: %v\n", job.ID, err)
	}
	b.queue.RemoveStream(job.ID)
}

// SetBaseURLs overrides the vendor endpoints. Used by tests.
func (b *Backend) SetBaseURLs(nvidia, openai string) {
	if nvidia != "" {
		b.env.NvidiaBaseURL = nvidia
	}
	if openai != "" {
		b.openAIBaseURL = openai
	}
}
