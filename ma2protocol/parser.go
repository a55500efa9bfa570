package ma2protocol

import (
	"strings"
)

// ParseCommandLine validates free-form command text, such as operator input
// or a raw command from a script, and returns it as a CommandLine.
// Surrounding whitespace and a single trailing line terminator are removed.
func ParseCommandLine(raw string) (CommandLine, error) {
	text := strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r"))

	if len(text) > MaxLineLength {
		return CommandLine{}, newLineTooLongError(text)
	}
	if text == "" {
		return CommandLine{}, newInvalidCommandError(raw, "empty command")
	}
	for _, r := range text {
		if r == '\t' {
			continue
		}
		if r < 0x20 || r == 0x7f {
			return CommandLine{}, newInvalidCommandError(raw, "contains control characters")
		}
	}

	// Logins carry credentials and belong to the session.
	first, _, _ := strings.Cut(text, " ")
	if strings.EqualFold(first, "login") || strings.EqualFold(first, "logout") {
		return CommandLine{}, newInvalidCommandError(first, "use the session to log in or out")
	}

	return CommandLine{text: text}, nil
}

// MustParseCommandLine is like ParseCommandLine but panics on error. It is
// meant for constant command text.
func MustParseCommandLine(raw string) CommandLine {
	line, err := ParseCommandLine(raw)
	if err != nil {
		panic(err)
	}
	return line
}
