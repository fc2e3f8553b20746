package runner

import (
	"strings"
	"testing"

	"github.com/axionhq/relaywatch/internal/layout"
	"github.com/axionhq/relaywatch/internal/queue"
)

func testLayout() layout.Layout {
	return layout.Layout{BaseDir: "/tmp/relay", ProjectsBase: "/tmp/projects", User: layout.DefaultUser}
}

func TestBuildPromptChat(t *testing.T) {
	job := &queue.Job{ID: "j1", Message: "summarize the README"}
	p := BuildPrompt(job, testLayout(), nil)

	if !strings.Contains(p, "IMPORTANT RESPONSE GUIDELINES") {
		t.Error("universal guidelines missing from chat prompt")
	}
	if !strings.Contains(p, "summarize the README") {
		t.Error("user message missing")
	}
	if strings.Contains(p, "DESIGN MOCKUP WORKFLOW") {
		t.Error("mockup workflow injected without mockup keywords")
	}
}

func TestBuildPromptFormatIsVerbatim(t *testing.T) {
	job := &queue.Job{ID: "j2", Message: "fix this text", JobType: queue.TypeFormat}
	if p := BuildPrompt(job, testLayout(), nil); p != "fix this text" {
		t.Errorf("format prompt = %q", p)
	}
}

func TestBuildPromptScreenshotProtocol(t *testing.T) {
	job := &queue.Job{ID: "j3", Message: "run the playwright login flow"}
	p := BuildPrompt(job, testLayout(), nil)
	if !strings.Contains(p, "capture screenshots") {
		t.Error("screenshot protocol missing for test keywords")
	}
	if !strings.Contains(p, "j3_") {
		t.Error("per-job screenshot filename convention missing")
	}
}

func TestBuildPromptMockupWorkflow(t *testing.T) {
	job := &queue.Job{ID: "j4", Message: "create a landing page design for https://example.com/pricing"}
	p := BuildPrompt(job, testLayout(), []string{"/tmp/relay/.temp/j4_img0.png"})

	for _, want := range []string{
		"DESIGN MOCKUP WORKFLOW",
		"URL REFERENCE WORKFLOW",
		"https://example.com/pricing",
		"SCREENSHOT REPLICATION WORKFLOW",
		"j4_mockup_final.html",
		"Self-Review",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("mockup prompt missing %q", want)
		}
	}
}

func TestBuildPromptImagesAndAnswers(t *testing.T) {
	job := &queue.Job{
		ID:             "j5",
		Message:        "what is in the picture?",
		ContextAnswers: "Q1: the blue one",
	}
	p := BuildPrompt(job, testLayout(), []string{"/tmp/relay/.temp/j5_img0.png"})

	if !strings.Contains(p, "attached the following image(s)") ||
		!strings.Contains(p, "/tmp/relay/.temp/j5_img0.png") {
		t.Error("image block missing")
	}
	if !strings.Contains(p, "Previous answers from user:\nQ1: the blue one") {
		t.Error("context answers missing")
	}
	// Answers come after the message; images before it.
	if strings.Index(p, "what is in the picture?") > strings.Index(p, "Previous answers") {
		t.Error("answers not appended after the message")
	}
}

func TestModelID(t *testing.T) {
	cases := map[string]string{
		"opus":    "claude-opus-4-6",
		"sonnet":  "claude-sonnet-4-5-20250929",
		"haiku":   "claude-haiku-4-5-20251001",
		"claude":  "claude-opus-4-6",
		"unknown": fallbackModelID,
	}
	for tag, want := range cases {
		if got := ModelID(tag); got != want {
			t.Errorf("ModelID(%q) = %q, want %q", tag, got, want)
		}
	}
}
