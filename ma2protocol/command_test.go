package ma2protocol

import (
	"errors"
	"math"
	"strings"
	"testing"
)

// TestCommandFormatting verifies builder output matches console syntax.
func TestCommandFormatting(t *testing.T) {
	tests := []struct {
		name     string
		build    func() (CommandLine, error)
		expected string
	}{
		// Selection
		{"Select range", func() (CommandLine, error) { return Select(Fixture(1).Thru(10)) }, "Fixture 1 Thru 10"},
		{"Select sub-channel", func() (CommandLine, error) { return Select(Channel(11).Sub(5)) }, "Channel 11.5"},
		{"Select sub-channel range", func() (CommandLine, error) { return Select(Channel(11).Sub(1).Thru(5)) }, "Channel 11.1 Thru 11.5"},
		{"Select list", func() (CommandLine, error) {
			return Select(List(Fixture(1), Fixture(5), Fixture(10)))
		}, "Fixture 1 + 5 + 10"},
		{"Select mixed list", func() (CommandLine, error) { return Select(List(Fixture(1), Group(2))) }, "Fixture 1 + Group 2"},
		{"Select all", func() (CommandLine, error) { return Select(All(KindFixture)) }, "Fixture Thru"},
		{"Select DMX", func() (CommandLine, error) { return Select(DMX(42)) }, "DMX 42"},
		{"Select DMX universe range", func() (CommandLine, error) { return Select(DMXInUniverse(2, 1).Thru(512)) }, "DMX 2.1 Thru 2.512"},
		{"Select preset type", func() (CommandLine, error) { return Select(PresetType("position")) }, "PresetType 2"},
		{"Select preset range", func() (CommandLine, error) { return Select(Preset("dimmer", 1).Thru(5)) }, "Preset 1.1 Thru 1.5"},
		{"Select decimal cue range", func() (CommandLine, error) {
			return Select(CueDecimal(1.5).ThruDecimal(3.5).In(Sequence(1)))
		}, "Cue 1.5 Thru 3.5 Sequence 1"},
		{"Select decimal cue to sub id", func() (CommandLine, error) {
			return Select(CueDecimal(3.25).ThruID(SubID(3, 5)))
		}, "Cue 3.25 Thru 3.5"},
		{"Select decimal cue to whole cue", func() (CommandLine, error) { return Select(CueDecimal(2.5).Thru(4)) }, "Cue 2.5 Thru 4"},
		{"Select named attribute", func() (CommandLine, error) { return Select(AttributeNamed("Pan")) }, `Attribute "Pan"`},
		{"Select attribute number", func() (CommandLine, error) { return Select(Attribute(5)) }, "Attribute 5"},
		{"Select feature", func() (CommandLine, error) { return Select(Feature(3)) }, "Feature 3"},
		{"Select feature attribute", func() (CommandLine, error) { return Select(Feature(3).Sub(1)) }, "Feature 3.1"},
		{"Select cue part", func() (CommandLine, error) { return Select(Cue(3).Part(2).In(Sequence(1))) }, "Cue 3 Part 2 Sequence 1"},
		{"SelFix", func() (CommandLine, error) { return SelFix(Fixture(1).Thru(10)) }, "SelFix Fixture 1 Thru 10"},
		{"AddToSelection", func() (CommandLine, error) { return AddToSelection(Fixture(5)) }, "+ Fixture 5"},
		{"RemoveFromSelection", func() (CommandLine, error) { return RemoveFromSelection(Fixture(5)) }, "- Fixture 5"},
		{"Clear", func() (CommandLine, error) { return Clear(), nil }, "Clear"},
		{"ClearSelection", func() (CommandLine, error) { return ClearSelection(), nil }, "ClearSelection"},
		{"ClearActive", func() (CommandLine, error) { return ClearActive(), nil }, "ClearActive"},
		{"ClearAll", func() (CommandLine, error) { return ClearAll(), nil }, "ClearAll"},

		// Store and edit
		{"Store group", func() (CommandLine, error) { return Store(Group(5), Options{}) }, "Store Group 5"},
		{"Store cue merge", func() (CommandLine, error) { return Store(Cue(1), NewOptions("merge")) }, "Store Cue 1 /merge"},
		{"Store labeled", func() (CommandLine, error) { return StoreLabeled(Group(5), "Front Wash", Options{}) }, `Store Group 5 "Front Wash"`},
		{"Label", func() (CommandLine, error) { return Label(Group(3), "All Studiocolors") }, `Label Group 3 "All Studiocolors"`},
		{"Delete", func() (CommandLine, error) { return Delete(Cue(5), NewOptions("noconfirm")) }, "Delete Cue 5 /noconfirm"},
		{"Copy range", func() (CommandLine, error) { return Copy(Group(1).Thru(3), To(11), Options{}) }, "Copy Group 1 Thru 3 At 11"},
		{"Copy matching ranges", func() (CommandLine, error) {
			return Copy(Group(1).Thru(3), ToRange(11, 13), NewOptions().WithValue("status", true))
		}, "Copy Group 1 Thru 3 At 11 Thru 13 /status=true"},
		{"Copy to object", func() (CommandLine, error) {
			return Copy(Cue(1), ToObject(Cue(5).In(Sequence(2))), NewOptions("overwrite"))
		}, "Copy Cue 1 At Cue 5 Sequence 2 /overwrite"},
		{"Copy to clipboard", func() (CommandLine, error) { return Copy(Group(1), Destination{}, Options{}) }, "Copy Group 1"},
		{"Move", func() (CommandLine, error) { return Move(Group(5), To(9)) }, "Move Group 5 At 9"},
		{"Edit", func() (CommandLine, error) { return Edit(Cue(2), Options{}) }, "Edit Cue 2"},

		// Remove
		{"Remove", func() (CommandLine, error) { return Remove(nil, nil) }, "Remove"},
		{"Remove selection", func() (CommandLine, error) { return RemoveSelection(), nil }, "Remove Selection"},
		{"Remove preset type", func() (CommandLine, error) { return RemovePresetType("position", nil) }, "Remove PresetType 2"},
		{"Remove fixture if", func() (CommandLine, error) {
			return Remove(Fixture(1), PresetType("dimmer"))
		}, "Remove Fixture 1 If PresetType 1"},
		{"Remove fixture range", func() (CommandLine, error) { return Remove(Fixture(1).Thru(10), nil) }, "Remove Fixture 1 Thru 10"},
		{"Remove fixture list", func() (CommandLine, error) {
			return Remove(List(Fixture(1), Fixture(3), Fixture(5)), nil)
		}, "Remove Fixture 1 + 3 + 5"},
		{"Remove effect range", func() (CommandLine, error) { return Remove(Effect(1).Thru(5), nil) }, "Remove Effect 1 Thru 5"},
		{"Remove attribute", func() (CommandLine, error) { return Remove(AttributeNamed("Tilt"), nil) }, `Remove Attribute "Tilt"`},

		// Assign
		{"Assign", func() (CommandLine, error) { return Assign(Sequence(1), Executor(6), Options{}) }, "Assign Sequence 1 At Executor 6"},
		{"Assign function", func() (CommandLine, error) { return AssignFunction("toggle", Executor(101)) }, "Assign Toggle At Executor 101"},
		{"Assign fade", func() (CommandLine, error) { return AssignFade(3, Cue(5)) }, "Assign Fade 3 Cue 5"},
		{"Assign to layout", func() (CommandLine, error) {
			return AssignToLayout(Group(1), 2, NewOptions().WithValue("x", 5).WithValue("y", 3))
		}, "Assign Group 1 At Layout 2 /x=5 /y=3"},
		{"Assign password", func() (CommandLine, error) {
			return Assign(Macro(1), Executor(3), NewOptions().WithText("password", "s3cret"))
		}, `Assign Macro 1 At Executor 3 /password="s3cret"`},

		// Playback
		{"Goto cue", func() (CommandLine, error) { return GotoCue(Cue(5), Sequence(1), Options{}) }, "Goto Cue 5 Sequence 1"},
		{"Goto decimal cue", func() (CommandLine, error) { return Goto(CueDecimal(3.5), Options{}) }, "Goto Cue 3.5"},
		{"Goto small decimal cue", func() (CommandLine, error) { return Goto(CueDecimal(3.05), Options{}) }, "Goto Cue 3.05"},
		{"Go executor", func() (CommandLine, error) { return Go(Executor(3), Options{}) }, "Go Executor 3"},
		{"Go executor on page", func() (CommandLine, error) {
			return Go(ExecutorOnPage(2, 5), NewOptions().WithText("userprofile", "Tech"))
		}, `Go Executor 2.5 /userprofile="Tech"`},
		{"GoBack", func() (CommandLine, error) { return GoBack(Sequence(2), Options{}) }, "GoBack Sequence 2"},
		{"Pause", func() (CommandLine, error) { return Pause(Sequence(1)) }, "Pause Sequence 1"},
		{"GoFastBack", func() (CommandLine, error) { return GoFastBack(nil) }, "<<<"},
		{"GoFastForward", func() (CommandLine, error) { return GoFastForward(Executor(1)) }, ">>> Executor 1"},
		{"DefGoBack", func() (CommandLine, error) { return DefGoBack(), nil }, "DefGoBack"},
		{"DefGoForward", func() (CommandLine, error) { return DefGoForward(), nil }, "DefGoForward"},
		{"DefGoPause", func() (CommandLine, error) { return DefGoPause(), nil }, "DefGoPause"},
		{"PageNext", func() (CommandLine, error) { return PageNext(), nil }, "Page +"},
		{"PagePrevious", func() (CommandLine, error) { return PagePrevious(), nil }, "Page -"},

		// Values
		{"At percent", func() (CommandLine, error) { return At(Percent(50), Options{}) }, "At 50"},
		{"At full", func() (CommandLine, error) { return AtFull(), nil }, "At Full"},
		{"At zero", func() (CommandLine, error) { return AtZero(), nil }, "At 0"},
		{"At fade", func() (CommandLine, error) { return At(FadeTime(3), Options{}) }, "At Fade 3"},
		{"At delay", func() (CommandLine, error) { return At(DelayTime(2.5), Options{}) }, "At Delay 2.5"},
		{"At cue", func() (CommandLine, error) { return At(ValueOf(Cue(3).In(Sequence(1))), Options{}) }, "At Cue 3 Sequence 1"},
		{"At relative up", func() (CommandLine, error) { return At(Relative(5), Options{}) }, "At + 5"},
		{"At relative down", func() (CommandLine, error) { return At(Relative(-10), Options{}) }, "At - 10"},
		{"Fixtures at value", func() (CommandLine, error) {
			return SetValue(Fixture(1).Thru(10), Percent(100), Options{})
		}, "Fixture 1 Thru 10 At 100"},
		{"Group at preset", func() (CommandLine, error) {
			return SetValue(Group(1), ValueOf(Preset("color", 2)), NewOptions("ignoreselection"))
		}, "Group 1 At Preset 4.2 /ignoreselection"},
		{"Appearance", func() (CommandLine, error) {
			return Appearance(Group(1), NewOptions().WithValue("r", 100).WithValue("g", 0).WithValue("b", 0))
		}, "Appearance Group 1 /r=100 /g=0 /b=0"},
		{"Appearance from", func() (CommandLine, error) { return AppearanceFrom(Group(1), Group(2)) }, "Appearance Group 1 At Group 2"},
		{"Park", func() (CommandLine, error) { return Park(Fixture(1)) }, "Park Fixture 1"},
		{"Unpark", func() (CommandLine, error) { return Unpark(Fixture(1)) }, "Unpark Fixture 1"},

		// Macros, information and variables
		{"Macro input after", func() (CommandLine, error) { return MacroInputAfter("Fixture") }, "Fixture @"},
		{"Macro input before", func() (CommandLine, error) { return MacroInputBefore("At 50") }, "@ At 50"},
		{"Call preset", func() (CommandLine, error) { return Call(Preset("color", 5), Options{}) }, "Call Preset 4.5"},
		{"List pool", func() (CommandLine, error) { return ListObjects(Pool(KindGroup), Options{}) }, "List Group"},
		{"List everything", func() (CommandLine, error) { return ListObjects(nil, Options{}) }, "List"},
		{"Info", func() (CommandLine, error) { return Info(Group(1), "") }, "Info Group 1"},
		{"Info note", func() (CommandLine, error) { return Info(Group(1), "Front") }, `Info Group 1 "Front"`},
		{"SetVar", func() (CommandLine, error) { return SetVar("$count", 5) }, "SetVar $count = 5"},
		{"SetUserVar", func() (CommandLine, error) { return SetUserVar("$name", "Main Stage") }, `SetUserVar $name = "Main Stage"`},
		{"AddVar", func() (CommandLine, error) { return AddVar("$count", 1) }, "AddVar $count = 1"},
		{"AddUserVar", func() (CommandLine, error) { return AddUserVar("$level", 2.5) }, "AddUserVar $level = 2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := tt.build()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if line.String() != tt.expected {
				t.Errorf("got %q, want %q", line.String(), tt.expected)
			}
		})
	}
}

// TestCommandErrors verifies build-time validation.
func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() (CommandLine, error)
		want  error
	}{
		{"descending range", func() (CommandLine, error) { return Select(Fixture(10).Thru(1)) }, ErrInvalidRange},
		{"descending sub range", func() (CommandLine, error) { return Select(Channel(3).Sub(5).Thru(2)) }, ErrInvalidRange},
		{"negative id", func() (CommandLine, error) { return Select(Fixture(-1)) }, ErrInvalidIdentifier},
		{"zero sub", func() (CommandLine, error) { return Select(Channel(1).Sub(0)) }, ErrInvalidIdentifier},
		{"cue out of range", func() (CommandLine, error) { return Goto(CueDecimal(0), Options{}) }, ErrInvalidIdentifier},
		{"dmx address", func() (CommandLine, error) { return Select(DMXInUniverse(1, 513)) }, ErrInvalidIdentifier},
		{"unknown store option", func() (CommandLine, error) { return Store(Cue(1), NewOptions("bogus")) }, ErrUnsupportedOption},
		{"assign option on copy", func() (CommandLine, error) {
			return Copy(Group(1), To(2), NewOptions().WithText("password", "x"))
		}, ErrUnsupportedOption},
		{"store flag on playback", func() (CommandLine, error) {
			return Go(Executor(1), NewOptions("merge"))
		}, ErrUnsupportedOption},
		{"label newline", func() (CommandLine, error) { return Label(Group(1), "a\nb") }, ErrInvalidLabel},
		{"label NUL", func() (CommandLine, error) { return Label(Group(1), "a\x00b") }, ErrInvalidLabel},
		{"unknown preset type", func() (CommandLine, error) { return Call(Preset("sparkle", 1), Options{}) }, ErrUnknownType},
		{"unknown executor function", func() (CommandLine, error) { return AssignFunction("explode", Executor(1)) }, ErrUnknownType},
		{"copy cardinality", func() (CommandLine, error) {
			return Copy(Group(1).Thru(3), ToRange(11, 12), Options{})
		}, ErrCardinalityMismatch},
		{"move cardinality", func() (CommandLine, error) {
			return Move(List(Group(1), Group(2)), ToRange(5, 7))
		}, ErrCardinalityMismatch},
		{"goto cue kinds swapped", func() (CommandLine, error) {
			return GotoCue(Sequence(1), Cue(5), Options{})
		}, ErrMissingArgument},
		{"move without destination", func() (CommandLine, error) { return Move(Group(1), Destination{}) }, ErrMissingArgument},
		{"empty list", func() (CommandLine, error) { return Select(List()) }, ErrMissingArgument},
		{"appearance without options", func() (CommandLine, error) { return Appearance(Group(1), Options{}) }, ErrMissingArgument},
		{"macro without text", func() (CommandLine, error) { return MacroInputAfter(" ") }, ErrMissingArgument},
		{"zero relative", func() (CommandLine, error) { return At(Relative(0), Options{}) }, ErrInvalidRange},
		{"level above full", func() (CommandLine, error) { return At(Percent(120), Options{}) }, ErrInvalidRange},
		{"variable without dollar", func() (CommandLine, error) { return SetVar("count", 1) }, ErrInvalidIdentifier},
		{"copy without source", func() (CommandLine, error) { return Copy(nil, To(1), Options{}) }, ErrMissingArgument},
		{"move without source", func() (CommandLine, error) { return Move(nil, To(1)) }, ErrMissingArgument},
		{"level NaN", func() (CommandLine, error) { return At(Percent(math.NaN()), Options{}) }, ErrInvalidRange},
		{"fade infinite", func() (CommandLine, error) { return At(FadeTime(math.Inf(1)), Options{}) }, ErrInvalidRange},
		{"delay NaN", func() (CommandLine, error) { return At(DelayTime(math.NaN()), Options{}) }, ErrInvalidRange},
		{"relative NaN", func() (CommandLine, error) {
			return SetValue(Fixture(1), Relative(math.NaN()), Options{})
		}, ErrInvalidRange},
		{"relative infinite", func() (CommandLine, error) { return At(Relative(math.Inf(-1)), Options{}) }, ErrInvalidRange},
		{"assign fade NaN", func() (CommandLine, error) { return AssignFade(math.NaN(), Cue(5)) }, ErrInvalidRange},
		{"assign fade infinite", func() (CommandLine, error) { return AssignFade(math.Inf(1), Cue(5)) }, ErrInvalidRange},
		{"descending decimal cues", func() (CommandLine, error) {
			return Select(CueDecimal(3.5).ThruDecimal(3.25))
		}, ErrInvalidRange},
		{"decimal cue end out of range", func() (CommandLine, error) {
			return Select(CueDecimal(1.5).ThruDecimal(10000))
		}, ErrInvalidIdentifier},
		{"empty attribute name", func() (CommandLine, error) { return Select(AttributeNamed(" ")) }, ErrMissingArgument},
		{"attribute name newline", func() (CommandLine, error) { return Select(AttributeNamed("Pan\nTilt")) }, ErrInvalidLabel},
		{"named attribute range", func() (CommandLine, error) { return Select(AttributeNamed("Pan").Thru(3)) }, ErrInvalidRange},
		{"remove unknown preset type", func() (CommandLine, error) { return RemovePresetType("sparkle", nil) }, ErrUnknownType},
		{"line too long", func() (CommandLine, error) {
			return Label(Group(1), strings.Repeat("x", MaxLineLength))
		}, ErrLineTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := tt.build()
			if err == nil {
				t.Fatalf("expected error, got %q", line.String())
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got error %v, want %v", err, tt.want)
			}
			if !IsBuildError(err) {
				t.Errorf("error %v is not a build error", err)
			}
			if !line.IsZero() {
				t.Errorf("got line %q alongside error", line.String())
			}
		})
	}
}

// TestUnsupportedOptionNamesFlag checks the error names the first rejected flag.
func TestUnsupportedOptionNamesFlag(t *testing.T) {
	_, err := Store(Cue(1), NewOptions("merge", "shiny", "wobbly"))
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("got %v, want *BuildError", err)
	}
	if be.Value != "shiny" {
		t.Errorf("got %q, want %q", be.Value, "shiny")
	}
}

// TestBuildersAreDeterministic calls each builder twice with the same input.
func TestBuildersAreDeterministic(t *testing.T) {
	build := func() (CommandLine, error) {
		return Copy(Group(1).Thru(3), To(11), NewOptions("overwrite").WithValue("status", false))
	}
	first, err := build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := build()
	if first != second {
		t.Errorf("got %q then %q", first, second)
	}
}

func TestCommandLineFunction(t *testing.T) {
	tests := []struct {
		line     CommandLine
		expected Function
		ok       bool
	}{
		{MustParseCommandLine("Store Group 5"), FnStore, true},
		{MustParseCommandLine("goto cue 1"), FnGoto, true},
		{MustParseCommandLine("<<<"), FnGoFastBack, true},
		{MustParseCommandLine("Fixture 1"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.line.String(), func(t *testing.T) {
			fn, ok := tt.line.Function()
			if ok != tt.ok || (ok && fn != tt.expected) {
				t.Errorf("got %v/%v, want %v/%v", fn, ok, tt.expected, tt.ok)
			}
		})
	}
}
