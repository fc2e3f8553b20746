package stream

import (
	"strings"
	"testing"
)

func TestParseTextAndResult(t *testing.T) {
	raw := `{"type":"assistant","message":{"content":[{"type":"text","text":"hi there"}]}}
{"type":"result","result":"hi there"}
`
	activity, text := Parse(raw)
	if activity != "Complete" {
		t.Errorf("activity = %q, want Complete", activity)
	}
	if text != "hi there" {
		t.Errorf("text = %q, want %q (result must not duplicate assistant text)", text, "hi there")
	}
}

func TestParseResultOnlyStream(t *testing.T) {
	raw := `{"type":"result","result":"just the result"}`
	activity, text := Parse(raw)
	if activity != "Complete" {
		t.Errorf("activity = %q", activity)
	}
	if text != "just the result" {
		t.Errorf("text = %q", text)
	}
}

func TestParseEmptyAndGarbage(t *testing.T) {
	if activity, text := Parse(""); activity != "Thinking..." || text != "" {
		t.Errorf("empty input: activity=%q text=%q", activity, text)
	}
	if activity, text := Parse("not json\n{broken"); activity != "Thinking..." || text != "" {
		t.Errorf("garbage input: activity=%q text=%q", activity, text)
	}
}

func TestParsePartialTrailingLineHeld(t *testing.T) {
	complete := `{"type":"assistant","message":{"content":[{"type":"text","text":"done "}]}}`
	partial := `{"type":"assistant","message":{"content":[{"type":"text","te`
	_, text := Parse(complete + "\n" + partial)
	if text != "done " {
		t.Errorf("partial line leaked into text: %q", text)
	}

	// Once the newline-completed line arrives, text grows.
	full := complete + "\n" + `{"type":"assistant","message":{"content":[{"type":"text","text":"more"}]}}` + "\n"
	_, text = Parse(full)
	if text != "done more" {
		t.Errorf("text = %q", text)
	}
}

func TestParseToolActivities(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"read", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/src/main.go"}}]}}`, "Reading file main.go"},
		{"edit", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Edit","input":{"file_path":"/src/app.js"}}]}}`, "Editing file app.js"},
		{"write", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Write","input":{"file_path":"/tmp/out.txt"}}]}}`, "Creating file out.txt"},
		{"bash description", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"ls","description":"List the working tree"}}]}}`, "List the working tree"},
		{"bash git", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"git status --short"}}]}}`, "Running git status"},
		{"bash npm", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"npm install express"}}]}}`, "Running npm install"},
		{"bash python", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"python3 build.py"}}]}}`, "Executing script"},
		{"bash generic", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"make all"}}]}}`, "Running command: make all"},
		{"grep with path", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Grep","input":{"pattern":"TODO","path":"/src/app"}}]}}`, "Searching for 'TODO' in app"},
		{"grep bare", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Grep","input":{"pattern":"TODO"}}]}}`, "Searching codebase for 'TODO'"},
		{"glob", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Glob","input":{"pattern":"**/*.go"}}]}}`, "Finding files matching **/*.go"},
		{"todo", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"TodoWrite","input":{}}]}}`, "Updating task checklist"},
		{"webfetch", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"WebFetch","input":{"url":"https://example.com/page"}}]}}`, "Fetching content from example.com"},
		{"websearch", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"WebSearch","input":{"query":"golang pty"}}]}}`, "Searching the web for 'golang pty'"},
		{"ask", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"AskUserQuestion","input":{}}]}}`, "Waiting for your response"},
		{"unknown tool", `{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Mystery","input":{}}]}}`, "Using Mystery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activity, _ := Parse(tt.line)
			if activity != tt.want {
				t.Errorf("activity = %q, want %q", activity, tt.want)
			}
		})
	}
}

func TestParseTaskAgents(t *testing.T) {
	line := `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_abc12345","name":"Task","input":{"subagent_type":"Explore","description":"map the codebase"}}]}}`
	activity, _ := Parse(line)
	if activity != "Explorer agent (toolu_ab): map the codebase" {
		t.Errorf("activity = %q", activity)
	}

	// Two active agents collapse into a summary.
	second := `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_def67890","name":"Task","input":{"subagent_type":"Plan","description":"draft the plan"}}]}}`
	activity, _ = Parse(line + "\n" + second)
	if activity != "2 agents working: draft the plan" {
		t.Errorf("activity = %q", activity)
	}
}

func TestParseActivityChangesTextGrows(t *testing.T) {
	lines := []string{
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/a.txt"}}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"part one "}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Write","input":{"file_path":"/b.txt"}}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"part two"}]}}`,
	}
	var prevText string
	for i := 1; i <= len(lines); i++ {
		_, text := Parse(strings.Join(lines[:i], "\n"))
		if !strings.HasPrefix(text, prevText) {
			t.Fatalf("text shrank at prefix %d: %q -> %q", i, prevText, text)
		}
		prevText = text
	}
	if prevText != "part one part two" {
		t.Errorf("final text = %q", prevText)
	}
}

func TestTextLineRoundTrip(t *testing.T) {
	line := TextLine("chunk")
	_, text := Parse(line)
	if text != "chunk" {
		t.Errorf("TextLine round trip = %q", text)
	}
}

func TestNormalizeStripsControlSequences(t *testing.T) {
	in := "\x1b[1mhello\x1b[0m\x1b]0;title\x07 world\x00\x08\nline\ttwo\x1b"
	got := Normalize(in)
	if got != "hello world\nline\ttwo" {
		t.Errorf("Normalize = %q", got)
	}
}

func TestNormalizePreservesPlainText(t *testing.T) {
	in := "plain answer\nwith lines"
	if got := Normalize(in); got != in {
		t.Errorf("Normalize changed plain text: %q", got)
	}
}
