package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/axionhq/relaywatch/internal/config"
	"github.com/axionhq/relaywatch/internal/history"
	"github.com/axionhq/relaywatch/internal/queue"
)

func TestIsRemoteModel(t *testing.T) {
	remote := []string{
		"nvidia/llama-3.1-nemotron-70b", "meta/llama-3.1-405b", "deepseek-ai/deepseek-r1",
		"qwen/qwen2.5-coder", "mistralai/mistral-large", "microsoft/phi-4",
		"google/gemma-2-27b", "moonshotai/kimi-k2", "openai/gpt-4o",
	}
	for _, m := range remote {
		if !IsRemoteModel(m) {
			t.Errorf("IsRemoteModel(%q) = false", m)
		}
	}
	for _, m := range []string{"opus", "sonnet", "haiku", "claude", ""} {
		if IsRemoteModel(m) {
			t.Errorf("IsRemoteModel(%q) = true", m)
		}
	}
}

// sseServer streams the given content chunks as chat-completion deltas.
func sseServer(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestBackend(t *testing.T, apiKey string) (*Backend, *queue.Queue, *history.Store) {
	t.Helper()
	q := queue.New(t.TempDir())
	hist := history.NewStore(t.TempDir())
	env := config.Env{NvidiaAPIKey: apiKey, NvidiaBaseURL: "unset"}
	b := New(q, hist, env, 10*time.Millisecond)
	return b, q, hist
}

func TestProcessStreamsAndFinalizes(t *testing.T) {
	srv := sseServer(t, []string{"Hello", ", ", "world"})
	defer srv.Close()

	b, q, hist := newTestBackend(t, "test-key")
	b.SetBaseURLs(srv.URL, "")

	job := &queue.Job{ID: "r1", Status: queue.StatusProcessing, Message: "greet", Model: "nvidia/llama", Project: "demo"}
	if err := q.Save(job); err != nil {
		t.Fatal(err)
	}

	if !b.Process(job) {
		t.Fatal("Process returned false")
	}

	data, err := os.ReadFile(q.ResultPath("r1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Hello, world" {
		t.Errorf("result = %q", data)
	}

	out, ok := q.Load("r1")
	if !ok || out.Status != queue.StatusCompleted || out.Result != "Hello, world" {
		t.Errorf("job = %+v", out)
	}
	if out.Elapsed <= 0 || out.CompletedAt <= 0 {
		t.Errorf("timing fields not stamped: %+v", out)
	}

	if _, err := os.Stat(q.StreamPath("r1")); !os.IsNotExist(err) {
		t.Error("stream sidecar not removed")
	}

	entries := hist.Load("demo").Entries
	if len(entries) != 1 || entries[0].Assistant != "Hello, world" {
		t.Errorf("history = %+v", entries)
	}
}

func TestProcessMissingKey(t *testing.T) {
	b, q, _ := newTestBackend(t, "")
	job := &queue.Job{ID: "r2", Status: queue.StatusProcessing, Message: "m", Model: "nvidia/llama"}
	if err := q.Save(job); err != nil {
		t.Fatal(err)
	}

	if !b.Process(job) {
		t.Fatal("Process returned false")
	}
	out, _ := q.Load("r2")
	if out.Status != queue.StatusError || !strings.Contains(out.Error, "API key not configured") {
		t.Errorf("job = %+v", out)
	}
	data, err := os.ReadFile(q.ResultPath("r2"))
	if err != nil || !strings.HasPrefix(string(data), "Error:") {
		t.Errorf("result sidecar = %q, err = %v", data, err)
	}
}

func TestProcessAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b, q, _ := newTestBackend(t, "k")
	b.SetBaseURLs(srv.URL, "")
	job := &queue.Job{ID: "r3", Status: queue.StatusProcessing, Message: "m", Model: "meta/llama-3.1-405b"}
	if err := q.Save(job); err != nil {
		t.Fatal(err)
	}

	b.Process(job)
	out, _ := q.Load("r3")
	if out.Status != queue.StatusError || !strings.Contains(out.Error, "503") {
		t.Errorf("job = %+v", out)
	}
}

func TestProcessOpenAIPrefixStripped(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			gotModel = req.Model
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	q := queue.New(t.TempDir())
	hist := history.NewStore(t.TempDir())
	b := New(q, hist, config.Env{OpenAIAPIKey: "ok"}, time.Millisecond)
	b.SetBaseURLs("", srv.URL)

	job := &queue.Job{ID: "r4", Status: queue.StatusProcessing, Message: "m", Model: "openai/gpt-4o"}
	if err := q.Save(job); err != nil {
		t.Fatal(err)
	}
	b.Process(job)
	if gotModel != "gpt-4o" {
		t.Errorf("wire model = %q, want gpt-4o", gotModel)
	}
}

func TestFormatJobSkipsHistory(t *testing.T) {
	srv := sseServer(t, []string{"tidy"})
	defer srv.Close()

	b, q, hist := newTestBackend(t, "k")
	b.SetBaseURLs(srv.URL, "")
	job := &queue.Job{ID: "r5", Status: queue.StatusProcessing, Message: "m", Model: "nvidia/llama", Project: "demo", JobType: queue.TypeFormat}
	if err := q.Save(job); err != nil {
		t.Fatal(err)
	}
	b.Process(job)
	if entries := hist.Load("demo").Entries; len(entries) != 0 {
		t.Errorf("format job appended history: %+v", entries)
	}
}
