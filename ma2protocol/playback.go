package ma2protocol

// Go fires the next cue of t, typically an executor or sequence.
func Go(t Target, opts Options) (CommandLine, error) {
	return newLine(FnGo.String()).target(t).options(opts, PlaybackOptions).build()
}

// GoBack fires the previous cue of t.
func GoBack(t Target, opts Options) (CommandLine, error) {
	return newLine(FnGoBack.String()).target(t).options(opts, PlaybackOptions).build()
}

// Goto jumps to t, usually a cue on the selected executor.
func Goto(t Target, opts Options) (CommandLine, error) {
	return newLine(FnGoto.String()).target(t).options(opts, PlaybackOptions).build()
}

// GotoCue jumps to cue on sequence, as in "Goto Cue 5 Sequence 1".
func GotoCue(cue, sequence ObjectRef, opts Options) (CommandLine, error) {
	if cue.Kind() != KindCue {
		return CommandLine{}, newMissingArgumentError("goto cue requires a cue reference, got " + cue.Kind().String())
	}
	if sequence.Kind() != KindSequence {
		return CommandLine{}, newMissingArgumentError("goto cue requires a sequence reference, got " + sequence.Kind().String())
	}
	return Goto(cue.In(sequence), opts)
}

// Pause halts the running fade of t.
func Pause(t Target) (CommandLine, error) {
	return newLine(FnPause.String()).target(t).build()
}

// GoFastBack steps t back without fades. A nil target addresses the
// selected executor.
func GoFastBack(t Target) (CommandLine, error) {
	l := newLine(FnGoFastBack.String())
	if t != nil {
		l.target(t)
	}
	return l.build()
}

// GoFastForward steps t forward without fades. A nil target addresses the
// selected executor.
func GoFastForward(t Target) (CommandLine, error) {
	l := newLine(FnGoFastForward.String())
	if t != nil {
		l.target(t)
	}
	return l.build()
}

// DefGoBack sends GoBack to the selected executor.
func DefGoBack() CommandLine { return CommandLine{text: FnDefGoBack.String()} }

// DefGoForward sends Go to the selected executor.
func DefGoForward() CommandLine { return CommandLine{text: FnDefGoForward.String()} }

// DefGoPause pauses the selected executor.
func DefGoPause() CommandLine { return CommandLine{text: FnDefGoPause.String()} }

// PageNext switches to the next executor page.
func PageNext() CommandLine { return CommandLine{text: FnPage.String() + " " + KeywordPlus} }

// PagePrevious switches to the previous executor page.
func PagePrevious() CommandLine { return CommandLine{text: FnPage.String() + " -"} }
