// Package stream interprets the worker's line-delimited JSON output. The
// parser is a pure function over the bytes received so far, so the runner can
// re-derive activity and accumulated text after every chunk, and the remote
// backend can synthesize compatible lines for the same UI path.
package stream

import "encoding/json"

// Event is one line of worker output. Unknown types are carried but ignored.
type Event struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	Result  string   `json:"result,omitempty"`
}

// Message is the payload of assistant and user events.
type Message struct {
	Role    string         `json:"role,omitempty"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one item in a message's content array.
type ContentBlock struct {
	Type      string    `json:"type"`
	Text      string    `json:"text,omitempty"`
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Input     ToolInput `json:"input,omitempty"`
	ToolUseID string    `json:"tool_use_id,omitempty"`
	Content   any       `json:"content,omitempty"`
	IsError   bool      `json:"is_error,omitempty"`
}

// ToolInput carries the tool parameters the activity table cares about.
// Tools pass more fields than these; the rest are ignored.
type ToolInput struct {
	FilePath     string `json:"file_path,omitempty"`
	Command      string `json:"command,omitempty"`
	Description  string `json:"description,omitempty"`
	Pattern      string `json:"pattern,omitempty"`
	Path         string `json:"path,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	SubagentType string `json:"subagent_type,omitempty"`
	URL          string `json:"url,omitempty"`
	Query        string `json:"query,omitempty"`
}

// TextLine renders a synthetic assistant event carrying one text chunk, in
// the same shape the worker CLI emits. Used by the remote backend to keep the
// stream sidecar format uniform.
func TextLine(text string) string {
	ev := Event{
		Type: "assistant",
		Message: &Message{
			Content: []ContentBlock{{Type: "text", Text: text}},
		},
	}
	data, _ := json.Marshal(ev)
	return string(data)
}
