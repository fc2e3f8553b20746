package stream

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// agentKind maps sub-agent types to their display names.
func agentKind(subagentType, id string) string {
	switch subagentType {
	case "Explore":
		return fmt.Sprintf("Explorer agent (%s)", id)
	case "Plan":
		return fmt.Sprintf("Planning agent (%s)", id)
	case "general-purpose":
		return fmt.Sprintf("Research agent (%s)", id)
	default:
		return fmt.Sprintf("Agent %s", id)
	}
}

type agent struct {
	id   string
	desc string
}

// Parse derives the current activity string and the accumulated response text
// from the raw output so far. Lines that do not parse as JSON, including a
// partial trailing line, are skipped without effect; activity may change as
// more input arrives but text only grows.
func Parse(raw string) (activity, text string) {
	activity = "Thinking..."
	var parts []string
	var agents []agent

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "assistant":
			if ev.Message == nil {
				continue
			}
			for _, item := range ev.Message.Content {
				switch item.Type {
				case "tool_use":
					activity = toolActivity(item, &agents)
				case "text":
					parts = append(parts, item.Text)
				}
			}

		case "result":
			activity = "Complete"
			// The result field usually repeats the assistant text; only
			// take it when nothing accumulated.
			if ev.Result != "" && len(parts) == 0 {
				parts = append(parts, ev.Result)
			}
		}
	}

	if len(agents) > 1 {
		activity = fmt.Sprintf("%d agents working: %s", len(agents), truncate(agents[len(agents)-1].desc, 30))
	}
	return activity, strings.Join(parts, "")
}

// toolActivity turns a tool_use block into a short human-readable phrase.
func toolActivity(item ContentBlock, agents *[]agent) string {
	in := item.Input
	switch item.Name {
	case "Read":
		return "Reading file " + baseOr(in.FilePath, "file")
	case "Edit":
		return "Editing file " + baseOr(in.FilePath, "file")
	case "Write":
		return "Creating file " + baseOr(in.FilePath, "file")
	case "Bash":
		return bashActivity(in)
	case "Grep":
		pattern := truncate(in.Pattern, 40)
		if in.Path != "" {
			return fmt.Sprintf("Searching for '%s' in %s", pattern, filepath.Base(in.Path))
		}
		return fmt.Sprintf("Searching codebase for '%s'", pattern)
	case "Glob":
		return "Finding files matching " + truncate(in.Pattern, 40)
	case "Task":
		id := truncate(item.ID, 8)
		kind := agentKind(in.SubagentType, id)
		desc := in.Description
		if desc == "" {
			desc = "working"
		}
		*agents = append(*agents, agent{id: id, desc: desc})
		switch {
		case in.Description != "":
			return fmt.Sprintf("%s: %s", kind, in.Description)
		case in.Prompt != "":
			firstLine, _, _ := strings.Cut(in.Prompt, "\n")
			return fmt.Sprintf("%s: %s", kind, truncate(firstLine, 60))
		default:
			return "Starting " + kind
		}
	case "TodoWrite":
		return "Updating task checklist"
	case "WebFetch":
		if in.URL == "" {
			return "Fetching web page"
		}
		return "Fetching content from " + truncate(domainOf(in.URL), 30)
	case "WebSearch":
		return fmt.Sprintf("Searching the web for '%s'", truncate(in.Query, 40))
	case "AskUserQuestion":
		return "Waiting for your response"
	case "EnterPlanMode":
		return "Entering planning mode"
	case "ExitPlanMode":
		return "Plan ready for review"
	default:
		name := item.Name
		if name == "" {
			name = "unknown"
		}
		return "Using " + name
	}
}

func bashActivity(in ToolInput) string {
	if in.Description != "" {
		return truncate(in.Description, 60)
	}
	cmd := in.Command
	fields := strings.Fields(cmd)
	switch {
	case strings.HasPrefix(cmd, "git "):
		sub := "command"
		if len(fields) > 1 {
			sub = fields[1]
		}
		return "Running git " + sub
	case strings.HasPrefix(cmd, "npm ") || strings.HasPrefix(cmd, "yarn "):
		sub := ""
		if len(fields) > 1 {
			sub = fields[1]
		}
		return strings.TrimSpace("Running " + fields[0] + " " + sub)
	case strings.HasPrefix(cmd, "python") || strings.HasPrefix(cmd, "node"):
		return "Executing script"
	default:
		return "Running command: " + truncate(cmd, 50)
	}
}

func baseOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return filepath.Base(path)
}

// domainOf extracts the host portion of a URL without parsing it strictly;
// worker-provided URLs are not always well formed.
func domainOf(url string) string {
	if i := strings.Index(url, "//"); i >= 0 {
		url = url[i+2:]
	}
	if i := strings.Index(url, "/"); i >= 0 {
		url = url[:i]
	}
	return url
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
