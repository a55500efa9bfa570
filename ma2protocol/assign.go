package ma2protocol

import (
	"strconv"
	"strings"
)

// executorFunctions are the button functions Assign accepts by name.
var executorFunctions = []string{
	"Go", "GoBack", "Goto", "Pause", "Toggle", "Flash", "Temp", "Swop",
	"Learn", "Black", "Select", "On", "Off", "Top", "Kill", "Rate1",
	"Speed1", "DoubleSpeed", "HalfSpeed", "DoubleRate", "HalfRate",
	"Fader", "Master", "Crossfade", "XFade", "Empty",
}

// Assign links src to dst, as in "Assign Sequence 1 At Executor 6".
func Assign(src Target, dst Target, opts Options) (CommandLine, error) {
	return newLine(FnAssign.String()).target(src).at(dst).options(opts, AssignOptions).build()
}

// AssignFunction sets the button function of an executor, as in
// "Assign Toggle At Executor 101".
func AssignFunction(function string, dst Target) (CommandLine, error) {
	name, ok := lookupExecutorFunction(function)
	if !ok {
		return CommandLine{}, newUnknownTypeError(function)
	}
	return newLine(FnAssign.String(), name).at(dst).build()
}

func lookupExecutorFunction(name string) (string, bool) {
	for _, fn := range executorFunctions {
		if strings.EqualFold(fn, strings.TrimSpace(name)) {
			return fn, true
		}
	}
	return "", false
}

// AssignFade sets the fade time of a cue, as in "Assign Fade 3 Cue 5".
func AssignFade(seconds float64, cue ObjectRef) (CommandLine, error) {
	if !finite(seconds) || seconds < 0 {
		return CommandLine{}, newInvalidRangeError(strconv.FormatFloat(seconds, 'f', -1, 64),
			"fade time must be a finite, non-negative number")
	}
	if cue.Kind() != KindCue {
		return CommandLine{}, newMissingArgumentError("assign fade requires a cue reference")
	}
	return newLine(FnAssign.String(), "Fade", formatNumber(seconds)).target(cue).build()
}

// AssignToLayout places t in a layout, optionally at x/y.
//
//	AssignToLayout(Group(1), 2, NewOptions().WithValue("x", 5).WithValue("y", 3))
//	// Assign Group 1 At Layout 2 /x=5 /y=3
func AssignToLayout(t Target, layout int, opts Options) (CommandLine, error) {
	return Assign(t, Layout(layout), opts)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
