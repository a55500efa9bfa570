package ma2protocol

// Select selects t by naming it, as in "Fixture 1 Thru 10".
func Select(t Target) (CommandLine, error) {
	return newLine().target(t).build()
}

// SelFix selects t explicitly, replacing the current selection.
func SelFix(t Target) (CommandLine, error) {
	return newLine(FnSelFix.String()).target(t).build()
}

// AddToSelection adds t to the selection, as in "+ Fixture 5".
func AddToSelection(t Target) (CommandLine, error) {
	return newLine(KeywordPlus).target(t).build()
}

// RemoveFromSelection removes t from the selection, as in "- Fixture 5".
func RemoveFromSelection(t Target) (CommandLine, error) {
	return newLine("-").target(t).build()
}

// Clear runs the sequential clear: selection, then active values, then all.
func Clear() CommandLine { return CommandLine{text: FnClear.String()} }

// ClearSelection deselects all fixtures.
func ClearSelection() CommandLine { return CommandLine{text: FnClearSelection.String()} }

// ClearActive inactivates programmer values.
func ClearActive() CommandLine { return CommandLine{text: FnClearActive.String()} }

// ClearAll empties the programmer.
func ClearAll() CommandLine { return CommandLine{text: FnClearAll.String()} }
