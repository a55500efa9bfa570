// =============================================================================
// translate.go - Input Translation (REPL Line → Action)
// =============================================================================
//
// Every REPL line becomes one of three actions:
//
//   .state                                → dot-command, handled locally
//   :execute_sequence sequence_id=1 action=go
//                                         → tool call through the dispatcher
//   Go Executor 1                         → raw command line for the console
//
// Tool arguments are key=value pairs. Values may be double-quoted to carry
// spaces, e.g. group_name="Front Wash". Values stay strings; the dispatcher
// converts numbers itself.
//
// =============================================================================

package repl

import (
	"fmt"
	"strings"
	"unicode"
)

// ActionKind classifies a REPL line.
type ActionKind int

const (
	// ActionNone is a blank line.
	ActionNone ActionKind = iota
	// ActionDot is a local dot-command.
	ActionDot
	// ActionTool is a named tool call.
	ActionTool
	// ActionRaw is a command line passed to the console as typed.
	ActionRaw
)

// Action is a translated REPL line.
type Action struct {
	Kind ActionKind
	Name string         // Dot-command without the dot, or tool name
	Arg  string         // Remainder after a dot-command
	Args map[string]any // Tool arguments
	Raw  string         // Raw command text
}

// Translate turns one input line into an action.
func Translate(line string) (Action, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return Action{Kind: ActionNone}, nil

	case strings.HasPrefix(line, "."):
		name, arg, _ := strings.Cut(line[1:], " ")
		if name == "" {
			return Action{}, fmt.Errorf("missing command after '.'")
		}
		return Action{Kind: ActionDot, Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}, nil

	case strings.HasPrefix(line, ":"):
		name, rest, _ := strings.Cut(line[1:], " ")
		if name == "" {
			return Action{}, fmt.Errorf("missing tool name after ':'")
		}
		args, err := parseArgs(rest)
		if err != nil {
			return Action{}, fmt.Errorf(":%s: %w", name, err)
		}
		return Action{Kind: ActionTool, Name: name, Args: args}, nil
	}

	return Action{Kind: ActionRaw, Raw: line}, nil
}

// parseArgs splits key=value pairs. A value starting with a double quote
// runs to the next unescaped double quote.
func parseArgs(s string) (map[string]any, error) {
	args := map[string]any{}
	rest := strings.TrimSpace(s)

	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			field, _, _ := strings.Cut(rest, " ")
			return nil, fmt.Errorf("expected key=value, got %q", field)
		}
		key := rest[:eq]
		if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
			return nil, fmt.Errorf("expected key=value, got %q", key)
		}
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			v, n, err := readQuoted(rest)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			value, rest = v, rest[n:]
			if rest != "" && !unicode.IsSpace(rune(rest[0])) {
				return nil, fmt.Errorf("%s: unexpected text after closing quote", key)
			}
		} else {
			end := strings.IndexFunc(rest, unicode.IsSpace)
			if end < 0 {
				end = len(rest)
			}
			value, rest = rest[:end], rest[end:]
		}

		if _, dup := args[key]; dup {
			return nil, fmt.Errorf("%s given twice", key)
		}
		args[key] = value
		rest = strings.TrimSpace(rest)
	}
	return args, nil
}

// readQuoted reads a double-quoted string at the start of s, handling \"
// and \\ escapes. It returns the value and the number of bytes consumed.
func readQuoted(s string) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
				b.WriteByte(s[i+1])
				i++
				continue
			}
			b.WriteByte(c)
		case '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated quote")
}
