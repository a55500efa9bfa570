package ma2protocol

import (
	"strconv"
	"strings"
)

// Helping keywords.
const (
	KeywordThru = "Thru"
	KeywordAt   = "At"
	KeywordPlus = "+"
	KeywordIf   = "If"
)

// CommandLine is one fully rendered console instruction. It never contains
// a line terminator; the session appends one when sending.
type CommandLine struct {
	text string
}

// String returns the rendered command text.
func (c CommandLine) String() string {
	return c.text
}

// IsZero reports whether the line is empty.
func (c CommandLine) IsZero() bool {
	return c.text == ""
}

// Function returns the function keyword the line starts with, if any.
func (c CommandLine) Function() (Function, bool) {
	word, _, _ := strings.Cut(c.text, " ")
	return LookupFunction(word)
}

// RenderRange renders start, or "start Thru end" when end is given.
func RenderRange(start int, end *int) (string, error) {
	if start < 0 {
		return "", newInvalidIdentifierError(strconv.Itoa(start), "must be non-negative")
	}
	if end == nil {
		return strconv.Itoa(start), nil
	}
	if *end < start {
		return "", newInvalidRangeError(
			strconv.Itoa(start)+" "+KeywordThru+" "+strconv.Itoa(*end),
			"ranges are never descending")
	}
	return strconv.Itoa(start) + " " + KeywordThru + " " + strconv.Itoa(*end), nil
}

// RenderSubAddress renders primary, or "primary.sub" when sub is not empty.
// sub is a positive integer or a preset type keyword, which is resolved to
// its numeric code.
func RenderSubAddress(primary int, sub string) (string, error) {
	if primary < 0 {
		return "", newInvalidIdentifierError(strconv.Itoa(primary), "must be non-negative")
	}
	if sub == "" {
		return strconv.Itoa(primary), nil
	}
	n, err := resolveSub(sub)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(primary) + "." + strconv.Itoa(n), nil
}

func resolveSub(sub string) (int, error) {
	if n, err := strconv.Atoi(sub); err == nil {
		if n <= 0 {
			return 0, newInvalidIdentifierError(sub, "sub-address must be positive")
		}
		return n, nil
	}
	if code, ok := PresetTypeCode(sub); ok {
		return code, nil
	}
	return 0, newInvalidIdentifierError(sub, "sub-address must be a positive integer or type keyword")
}

// QuoteLabel wraps text in double quotes, doubling embedded quotes.
func QuoteLabel(text string) (string, error) {
	if err := checkText(text); err != nil {
		return "", err
	}
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`, nil
}

// checkText rejects C0 control characters other than tab, and DEL.
func checkText(text string) error {
	for _, r := range text {
		switch {
		case r == '\n':
			return newInvalidLabelError(text, "contains newline")
		case r == '\r':
			return newInvalidLabelError(text, "contains carriage return")
		case r == 0:
			return newInvalidLabelError(text, "contains NUL")
		case r == '\t':
		case r < 0x20 || r == 0x7f:
			return newInvalidLabelError(text, "contains control character")
		}
	}
	return nil
}
