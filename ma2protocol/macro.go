package ma2protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// MacroPlaceholder is the token a macro line uses for operator input.
const MacroPlaceholder = "@"

// MacroInputAfter renders a macro line that waits for input after prefix,
// as in "Fixture @".
func MacroInputAfter(prefix string) (CommandLine, error) {
	return macroLine(prefix, MacroPlaceholder)
}

// MacroInputBefore renders a macro line that takes input before suffix,
// as in "@ At 50".
func MacroInputBefore(suffix string) (CommandLine, error) {
	return macroLine(MacroPlaceholder, suffix)
}

func macroLine(first, second string) (CommandLine, error) {
	for _, part := range []string{first, second} {
		if strings.TrimSpace(part) == "" {
			return CommandLine{}, newMissingArgumentError("macro line needs command text around the placeholder")
		}
		if err := checkText(part); err != nil {
			return CommandLine{}, err
		}
	}
	return newLine(strings.TrimSpace(first), strings.TrimSpace(second)).build()
}

// Call recalls t, e.g. a preset into the programmer or a view onto a screen.
func Call(t Target, opts Options) (CommandLine, error) {
	return newLine(FnCall.String()).target(t).options(opts, CallOptions).build()
}

// ListObjects prints the objects of t to the command line feedback. A nil
// target lists everything.
func ListObjects(t Target, opts Options) (CommandLine, error) {
	l := newLine(FnList.String())
	if t != nil {
		l.target(t)
	}
	return l.options(opts, ListOptions).build()
}

// Info shows the note attached to t, or sets it when note is not empty.
func Info(t Target, note string) (CommandLine, error) {
	l := newLine(FnInfo.String()).target(t)
	if note != "" {
		l.label(note)
	}
	return l.build()
}

var variableName = regexp.MustCompile(`^\$[A-Za-z_][A-Za-z0-9_]*$`)

// SetVar sets a global show variable, as in `SetVar $count = 5`.
func SetVar(name string, value any) (CommandLine, error) {
	return variableLine(FnSetVar, name, value)
}

// SetUserVar sets a variable scoped to the logged-in user.
func SetUserVar(name string, value any) (CommandLine, error) {
	return variableLine(FnSetUserVar, name, value)
}

// AddVar adds to a numeric global variable.
func AddVar(name string, value any) (CommandLine, error) {
	return variableLine(FnAddVar, name, value)
}

// AddUserVar adds to a numeric user variable.
func AddUserVar(name string, value any) (CommandLine, error) {
	return variableLine(FnAddUserVar, name, value)
}

func variableLine(fn Function, name string, value any) (CommandLine, error) {
	if !variableName.MatchString(name) {
		return CommandLine{}, newInvalidIdentifierError(name, "variable names start with $")
	}
	l := newLine(fn.String(), name, "=")
	switch v := value.(type) {
	case int:
		l.word(strconv.Itoa(v))
	case float64:
		l.word(formatNumber(v))
	case string:
		l.label(v)
	case nil:
		l.fail(newMissingArgumentError("variable " + name + " needs a value"))
	default:
		l.fail(newInvalidIdentifierError(name, "unsupported variable value type"))
	}
	return l.build()
}
