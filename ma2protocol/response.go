package ma2protocol

import (
	"regexp"
	"strings"
)

// Response is the raw console output captured for one command.
type Response struct {
	Text     string // Output as received, ANSI escapes included
	Prompt   string // The prompt that ended the output, if one was seen
	Complete bool   // True when a prompt ended the output, false on idle
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b[@-Z\\-_]`)

// StripANSI removes terminal escape sequences from console output.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Plain returns the output without ANSI escapes.
func (r Response) Plain() string {
	return StripANSI(r.Text)
}

// Lines returns the non-empty output lines without ANSI escapes or the
// trailing prompt.
func (r Response) Lines() []string {
	text := r.Plain()
	if r.Prompt != "" {
		text = strings.TrimSuffix(strings.TrimRight(text, " \t\r\n"), r.Prompt)
	}
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimRight(l, "\r \t")
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// findPrompt reports the prompt at the end of output, if any.
func findPrompt(text string) (string, bool) {
	plain := StripANSI(text)
	loc := PromptPattern.FindStringIndex(plain)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(plain[loc[0]:loc[1]]), true
}
