package ma2protocol

import (
	"strconv"
	"strings"
)

// Function represents a console function keyword.
type Function int

const (
	// Storing and editing
	FnStore Function = iota
	FnLabel
	FnDelete
	FnCopy
	FnMove
	FnEdit
	FnAssign
	FnRemove

	// Selection
	FnSelFix
	FnClear
	FnClearSelection
	FnClearActive
	FnClearAll

	// Playback
	FnGo
	FnGoBack
	FnGoto
	FnPause
	FnGoFastBack
	FnGoFastForward
	FnDefGoBack
	FnDefGoForward
	FnDefGoPause

	// Values
	FnAt
	FnAppearance
	FnPark
	FnUnpark

	// Information and control
	FnCall
	FnList
	FnInfo
	FnSetVar
	FnSetUserVar
	FnAddVar
	FnAddUserVar
	FnPage
)

var functionKeywords = [...]string{
	FnStore:          "Store",
	FnLabel:          "Label",
	FnDelete:         "Delete",
	FnCopy:           "Copy",
	FnMove:           "Move",
	FnEdit:           "Edit",
	FnAssign:         "Assign",
	FnRemove:         "Remove",
	FnSelFix:         "SelFix",
	FnClear:          "Clear",
	FnClearSelection: "ClearSelection",
	FnClearActive:    "ClearActive",
	FnClearAll:       "ClearAll",
	FnGo:             "Go",
	FnGoBack:         "GoBack",
	FnGoto:           "Goto",
	FnPause:          "Pause",
	FnGoFastBack:     "<<<",
	FnGoFastForward:  ">>>",
	FnDefGoBack:      "DefGoBack",
	FnDefGoForward:   "DefGoForward",
	FnDefGoPause:     "DefGoPause",
	FnAt:             "At",
	FnAppearance:     "Appearance",
	FnPark:           "Park",
	FnUnpark:         "Unpark",
	FnCall:           "Call",
	FnList:           "List",
	FnInfo:           "Info",
	FnSetVar:         "SetVar",
	FnSetUserVar:     "SetUserVar",
	FnAddVar:         "AddVar",
	FnAddUserVar:     "AddUserVar",
	FnPage:           "Page",
}

// String returns the function keyword as the console spells it.
func (f Function) String() string {
	if f < 0 || int(f) >= len(functionKeywords) {
		return "Function(" + strconv.Itoa(int(f)) + ")"
	}
	return functionKeywords[f]
}

// LookupFunction resolves a function keyword, case-insensitively.
func LookupFunction(word string) (Function, bool) {
	for f, kw := range functionKeywords {
		if strings.EqualFold(kw, word) {
			return Function(f), true
		}
	}
	return 0, false
}

// line accumulates tokens for one command. The first error wins and later
// calls become no-ops.
type line struct {
	tokens []string
	opts   string
	err    error
}

func newLine(words ...string) *line {
	return &line{tokens: append([]string(nil), words...)}
}

func (l *line) word(w string) *line {
	if l.err == nil && w != "" {
		l.tokens = append(l.tokens, w)
	}
	return l
}

func (l *line) target(t Target) *line {
	if l.err != nil {
		return l
	}
	if t == nil {
		l.err = newMissingArgumentError("missing object reference")
		return l
	}
	s, err := t.Render()
	if err != nil {
		l.err = err
		return l
	}
	l.tokens = append(l.tokens, s)
	return l
}

// at appends "At <target>".
func (l *line) at(t Target) *line {
	return l.word(KeywordAt).target(t)
}

func (l *line) label(text string) *line {
	if l.err != nil {
		return l
	}
	q, err := QuoteLabel(text)
	if err != nil {
		l.err = err
		return l
	}
	l.tokens = append(l.tokens, q)
	return l
}

func (l *line) options(opts Options, set OptionSet) *line {
	if l.err != nil {
		return l
	}
	l.opts, l.err = RenderOptions(opts, set)
	return l
}

func (l *line) fail(err error) *line {
	if l.err == nil {
		l.err = err
	}
	return l
}

func (l *line) build() (CommandLine, error) {
	if l.err != nil {
		return CommandLine{}, l.err
	}
	text := strings.Join(l.tokens, " ") + l.opts
	if len(text) > MaxLineLength {
		return CommandLine{}, newLineTooLongError(text)
	}
	return CommandLine{text: text}, nil
}

// Destination is the "At" side of Copy and Move: a number, a numeric range,
// or another object. The zero Destination means none.
type Destination struct {
	start *ID
	end   *ID
	obj   Target
}

// To targets a single number, as in "Copy Group 1 At 11".
func To(n int) Destination {
	id := ID{Number: n}
	return Destination{start: &id}
}

// ToID targets a sub-addressed number.
func ToID(id ID) Destination {
	return Destination{start: &id}
}

// ToRange targets a numeric range.
func ToRange(start, end int) Destination {
	s, e := ID{Number: start}, ID{Number: end}
	return Destination{start: &s, end: &e}
}

// ToObject targets another object reference, as in
// "Copy Cue 1 At Cue 5 Sequence 2".
func ToObject(t Target) Destination {
	return Destination{obj: t}
}

// IsZero reports whether no destination was given.
func (d Destination) IsZero() bool {
	return d.start == nil && d.obj == nil
}

// Render implements Target.
func (d Destination) Render() (string, error) {
	if d.obj != nil {
		return d.obj.Render()
	}
	if d.start == nil {
		return "", newMissingArgumentError("missing destination")
	}
	if err := d.start.validate(); err != nil {
		return "", err
	}
	if d.end == nil {
		return d.start.String(), nil
	}
	if err := d.end.validate(); err != nil {
		return "", err
	}
	if d.end.less(*d.start) {
		return "", newInvalidRangeError(d.start.String()+" "+KeywordThru+" "+d.end.String(),
			"ranges are never descending")
	}
	return d.start.String() + " " + KeywordThru + " " + d.end.String(), nil
}

func (d Destination) count() (int, bool) {
	switch {
	case d.obj != nil:
		return d.obj.count()
	case d.start == nil:
		return 0, false
	case d.end == nil:
		return 1, true
	case d.start.Sub == 0 && d.end.Sub == 0:
		return d.end.Number - d.start.Number + 1, true
	}
	return 0, false
}

func (Destination) isTarget() {}

// checkCardinality fails when both sides span several objects of
// different lengths.
func checkCardinality(src, dst Target) error {
	n, ok := src.count()
	m, ok2 := dst.count()
	if !ok || !ok2 || n <= 1 || m <= 1 {
		return nil
	}
	if n != m {
		return newCardinalityMismatchError(n, m)
	}
	return nil
}
