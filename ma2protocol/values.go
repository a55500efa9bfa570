package ma2protocol

import "math"

// Value is the right-hand side of At.
type Value interface {
	renderValue() (string, error)
}

type percent float64

// Percent is a level from 0 to 100.
func Percent(p float64) Value { return percent(p) }

func (p percent) renderValue() (string, error) {
	if !finite(float64(p)) || p < 0 || p > 100 {
		return "", newInvalidRangeError(formatNumber(float64(p)), "level must be 0-100")
	}
	return formatNumber(float64(p)), nil
}

type keywordValue string

// Full is the 100% level keyword.
func Full() Value { return keywordValue("Full") }

// Zero is the 0% level.
func Zero() Value { return keywordValue("0") }

func (k keywordValue) renderValue() (string, error) { return string(k), nil }

type timeValue struct {
	keyword string
	seconds float64
}

// FadeTime is a fade duration in seconds, as in "At Fade 3".
func FadeTime(seconds float64) Value { return timeValue{"Fade", seconds} }

// DelayTime is a delay duration in seconds, as in "At Delay 2".
func DelayTime(seconds float64) Value { return timeValue{"Delay", seconds} }

func (t timeValue) renderValue() (string, error) {
	if !finite(t.seconds) {
		return "", newInvalidRangeError(formatNumber(t.seconds), t.keyword+" time must be a finite number")
	}
	if t.seconds < 0 {
		return "", newInvalidRangeError(formatNumber(t.seconds), t.keyword+" time must not be negative")
	}
	return t.keyword + " " + formatNumber(t.seconds), nil
}

type objectValue struct{ t Target }

// ValueOf takes values from another object, such as a preset or a cue.
func ValueOf(t Target) Value { return objectValue{t} }

func (o objectValue) renderValue() (string, error) {
	if o.t == nil {
		return "", newMissingArgumentError("missing value source")
	}
	return o.t.Render()
}

type relative float64

// Relative shifts the current level, rendered "+ 5" or "- 10". It cannot
// be zero.
func Relative(delta float64) Value { return relative(delta) }

func (r relative) renderValue() (string, error) {
	switch {
	case !finite(float64(r)):
		return "", newInvalidRangeError(formatNumber(float64(r)), "relative change must be a finite number")
	case r == 0:
		return "", newInvalidRangeError("0", "relative change cannot be zero")
	case r > 0:
		return KeywordPlus + " " + formatNumber(float64(r)), nil
	default:
		return "- " + formatNumber(float64(-r)), nil
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (l *line) value(v Value) *line {
	if l.err != nil {
		return l
	}
	if v == nil {
		l.err = newMissingArgumentError("missing value")
		return l
	}
	s, err := v.renderValue()
	if err != nil {
		l.err = err
		return l
	}
	l.tokens = append(l.tokens, s)
	return l
}

// At applies v to the current selection, as in "At 50" or "At Cue 3".
func At(v Value, opts Options) (CommandLine, error) {
	return newLine(FnAt.String()).value(v).options(opts, AtOptions).build()
}

// AtFull sets the selection to full.
func AtFull() CommandLine { return CommandLine{text: FnAt.String() + " Full"} }

// AtZero sets the selection to zero.
func AtZero() CommandLine { return CommandLine{text: FnAt.String() + " 0"} }

// SetValue selects t and applies v, as in "Fixture 1 Thru 10 At 100".
func SetValue(t Target, v Value, opts Options) (CommandLine, error) {
	return newLine().target(t).word(KeywordAt).value(v).options(opts, AtOptions).build()
}

// Appearance sets the pool colour of t from options such as /r /g /b or
// /color, or resets it with /reset.
func Appearance(t Target, opts Options) (CommandLine, error) {
	if opts.Len() == 0 {
		return CommandLine{}, newMissingArgumentError("appearance requires colour options")
	}
	return newLine(FnAppearance.String()).target(t).options(opts, AppearanceOptions).build()
}

// AppearanceFrom copies the appearance of src onto t.
func AppearanceFrom(t Target, src Target) (CommandLine, error) {
	return newLine(FnAppearance.String()).target(t).at(src).build()
}

// Park freezes the output of t.
func Park(t Target) (CommandLine, error) {
	return newLine(FnPark.String()).target(t).build()
}

// Unpark releases parked output of t.
func Unpark(t Target) (CommandLine, error) {
	return newLine(FnUnpark.String()).target(t).build()
}
