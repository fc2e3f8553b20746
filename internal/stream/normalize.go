package stream

import (
	"regexp"
	"strings"
)

// The worker runs under a PTY, so its output can carry terminal control
// sequences even in stream-json mode. These are applied in order; later
// patterns catch what earlier ones leave behind.
var controlSequences = []*regexp.Regexp{
	regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`),    // CSI
	regexp.MustCompile(`\x1b\][^\x07]*\x07`),       // OSC terminated by BEL
	regexp.MustCompile(`\x1b\][^\x1b]*\x1b\\`),     // OSC terminated by ST
	regexp.MustCompile(`\x1b[PX^_][^\x1b]*\x1b\\`), // DCS, SOS, PM, APC
	regexp.MustCompile(`\x1b[\x40-\x5F]`),          // Fe sequences
	regexp.MustCompile(`\x1b.`),                    // any remaining escape
	regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`),
	regexp.MustCompile(`\x1b\[?[0-9;]*$`), // partial escape at end of text
}

// Normalize strips terminal control sequences and non-printable characters
// from worker text, preserving newlines and tabs.
func Normalize(text string) string {
	for _, re := range controlSequences {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
