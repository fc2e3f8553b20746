// Package questions scans worker responses for interactive questions so the
// runner can pause the job and let the UI collect structured answers.
package questions

import (
	"fmt"
	"regexp"
	"strings"
)

// Question is one prompt emitted to the UI.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Type    string   `json:"type"` // "open" or "choice"
	Options []Option `json:"options,omitempty"`
}

// Option is one selectable answer for a choice question.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// File is the on-disk shape of a <id>.questions sidecar.
type File struct {
	JobID         string     `json:"job_id"`
	Questions     []Question `json:"questions"`
	ResponseSoFar string     `json:"response_so_far"`
	Waiting       bool       `json:"waiting"`
}

var (
	askBlock  = regexp.MustCompile(`(?s)\[\[ASK\]\](.*?)\[\[/ASK\]\]`)
	askMarker = regexp.MustCompile(`(?mi)^[ \t]*(\d+|[a-z])[.):][ \t]*`)

	optionIndicators = regexp.MustCompile(strings.Join([]string{
		`which (?:option|approach|one|would you)`,
		`would you (?:like|prefer)`,
		`please (?:choose|select|pick)`,
		`what (?:would you|do you) (?:prefer|like|want)`,
		`do you want me to`,
		`should i`,
		`let me know (?:which|if|what)`,
	}, "|"))
	numberedMarker = regexp.MustCompile(`(?mi)^[ \t]*(?:Option\s*)?(\d+)[.):][ \t]*`)

	embeddedBoundary = regexp.MustCompile(`\*\*(?:Q(\d+):|Answer:)\*\*`)
	subOptionMarker  = regexp.MustCompile(`[-•]\s*\(([a-z])\)\s*`)
)

// maxHeuristicOptions caps how many numbered lines the heuristic turns into
// a single choice question.
const maxHeuristicOptions = 6

// Detect scans final response text for questions. First matching pattern
// wins: explicit [[ASK]] markers, then the option-prompt heuristic, then
// embedded **Qn:** blocks. shouldWait is true when the job ought to pause.
func Detect(text string) (qs []Question, shouldWait bool) {
	if blocks := askBlock.FindAllStringSubmatch(text, -1); len(blocks) > 0 {
		for i, m := range blocks {
			content := strings.TrimSpace(m[1])
			q := Question{
				ID:   fmt.Sprintf("Q%d", i+1),
				Text: content,
				Type: "open",
			}
			if opts := sliceOptions(m[1], askMarker, false, 0); len(opts) >= 2 {
				q.Type = "choice"
				q.Options = opts
			}
			qs = append(qs, q)
		}
		return qs, true
	}

	if optionIndicators.MatchString(strings.ToLower(text)) {
		if opts := sliceOptions(text, numberedMarker, true, 200); len(opts) >= 2 {
			if len(opts) > maxHeuristicOptions {
				opts = opts[:maxHeuristicOptions]
			}
			return []Question{{
				ID:      "Q1",
				Text:    "Please select an option:",
				Type:    "choice",
				Options: opts,
			}}, true
		}
	}

	if eqs := embeddedQuestions(text); len(eqs) > 0 {
		return eqs, true
	}

	return nil, false
}

// sliceOptions finds option markers and slices the text between consecutive
// markers into option bodies. When stopAtBlank is set, a body ends at the
// first blank line. maxLen > 0 truncates each body.
func sliceOptions(text string, marker *regexp.Regexp, stopAtBlank bool, maxLen int) []Option {
	locs := marker.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return nil
	}
	var opts []Option
	for i, loc := range locs {
		key := text[loc[2]:loc[3]]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := text[loc[1]:end]
		if stopAtBlank {
			if j := strings.Index(body, "\n\n"); j >= 0 {
				body = body[:j]
			}
		}
		body = strings.TrimSpace(body)
		if maxLen > 0 && len(body) > maxLen {
			body = body[:maxLen]
		}
		opts = append(opts, Option{Key: key, Text: body})
	}
	return opts
}

// embeddedQuestions extracts **Qn:** blocks. A block runs until the next
// **Qn:** or **Answer:** boundary; `- (a) …` style sub-options inside a block
// turn it into a choice question.
func embeddedQuestions(text string) []Question {
	locs := embeddedBoundary.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return nil
	}
	var qs []Question
	for i, loc := range locs {
		if loc[2] < 0 {
			continue // an **Answer:** boundary, not a question
		}
		num := text[loc[2]:loc[3]]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		content := text[loc[1]:end]
		q := Question{
			ID:   "Q" + num,
			Text: strings.TrimSpace(content),
			Type: "open",
		}
		if subs := sliceOptions(content, subOptionMarker, true, 0); len(subs) > 0 {
			q.Type = "choice"
			q.Options = subs
		}
		qs = append(qs, q)
	}
	return qs
}
