package runner

import (
	"fmt"
	"strings"

	"github.com/axionhq/relaywatch/internal/stream"
)

// authPatterns are signatures of worker API key and quota failures. Scanned
// case-insensitively against the raw output when no response was produced.
var authPatterns = []string{
	"invalid_api_key", "authentication_error", "Invalid API key",
	"unauthorized", "401", "api_key", "expired",
	"Could not resolve API key", "ANTHROPIC_API_KEY",
	"overloaded_error", "rate_limit",
}

// finalize turns the raw pump output into the user-visible response text,
// synthesizing a diagnostic when the worker produced nothing useful.
func (r *Runner) finalize(raw string, exitCode int, timedOut bool) string {
	if timedOut {
		return fmt.Sprintf(
			"Error: Job timed out after %d minutes. The task may be too complex or Claude may be stuck.",
			int(r.Cfg.MaxJobRuntime.Minutes()))
	}

	_, response := stream.Parse(raw)

	if response == "" {
		lowered := strings.ToLower(raw)
		for _, pattern := range authPatterns {
			if strings.Contains(lowered, strings.ToLower(pattern)) {
				return fmt.Sprintf(
					"Error: Claude API key issue detected (%s). Please check/reset your API key and try again.\n\nRaw output: %s",
					pattern, head(raw, 500))
			}
		}
	}

	if response == "" && exitCode != 0 {
		output := head(raw, 1000)
		if strings.TrimSpace(output) == "" {
			output = "(no output)"
		}
		return fmt.Sprintf("Error: Claude process exited with code %d.\n\nOutput: %s", exitCode, output)
	}

	if response == "" {
		return "No response"
	}
	return stream.Normalize(response)
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
