package ma2protocol

// Store records the current programmer content into t.
//
//	Store(Group(5), Options{})                     // Store Group 5
//	Store(Cue(1), NewOptions("merge"))             // Store Cue 1 /merge
func Store(t Target, opts Options) (CommandLine, error) {
	return newLine(FnStore.String()).target(t).options(opts, StoreOptions).build()
}

// StoreLabeled stores into t and names the new object in one line.
func StoreLabeled(t Target, name string, opts Options) (CommandLine, error) {
	return newLine(FnStore.String()).target(t).label(name).options(opts, StoreOptions).build()
}

// Label names an existing object.
func Label(t Target, name string) (CommandLine, error) {
	return newLine(FnLabel.String()).target(t).label(name).build()
}

// Delete removes t.
func Delete(t Target, opts Options) (CommandLine, error) {
	return newLine(FnDelete.String()).target(t).options(opts, DeleteOptions).build()
}

// Copy duplicates src to dst. A zero dst copies to the clipboard. When both
// sides span several objects they must be the same length.
func Copy(src Target, dst Destination, opts Options) (CommandLine, error) {
	l := newLine(FnCopy.String()).target(src)
	if l.err != nil {
		return CommandLine{}, l.err
	}
	if !dst.IsZero() {
		if err := checkCardinality(src, dst); err != nil {
			return CommandLine{}, err
		}
		l.at(dst)
	}
	return l.options(opts, CopyOptions).build()
}

// Move relocates src to dst.
func Move(src Target, dst Destination) (CommandLine, error) {
	if dst.IsZero() {
		return CommandLine{}, newMissingArgumentError("move requires a destination")
	}
	l := newLine(FnMove.String()).target(src)
	if l.err != nil {
		return CommandLine{}, l.err
	}
	if err := checkCardinality(src, dst); err != nil {
		return CommandLine{}, err
	}
	return l.at(dst).build()
}

// Remove enters remove values for t into the programmer, so that a merge
// store takes them out of a cue. A nil t renders the bare keyword; a
// non-nil filter adds an If clause.
//
//	Remove(Fixture(1), PresetType("dimmer"))    // Remove Fixture 1 If PresetType 1
//	Remove(Effect(1).Thru(5), nil)              // Remove Effect 1 Thru 5
func Remove(t Target, filter Target) (CommandLine, error) {
	l := newLine(FnRemove.String())
	if t != nil {
		l.target(t)
	}
	if filter != nil {
		l.word(KeywordIf).target(filter)
	}
	return l.build()
}

// RemoveSelection enters remove values for every attribute of the
// selected fixtures.
func RemoveSelection() CommandLine {
	return CommandLine{text: FnRemove.String() + " Selection"}
}

// RemovePresetType enters remove values for one preset type of the
// selection, as in "Remove PresetType 2".
func RemovePresetType(typeName string, filter Target) (CommandLine, error) {
	return Remove(PresetType(typeName), filter)
}

// Edit opens t in its editor.
func Edit(t Target, opts Options) (CommandLine, error) {
	return newLine(FnEdit.String()).target(t).options(opts, EditOptions).build()
}
