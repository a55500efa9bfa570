// Package ma2protocol builds grandMA2 command lines and sends them to a
// console over its telnet interface.
//
// # Protocol Overview
//
// The console accepts the same command line an operator types at the desk,
// one command per line, over a plain TCP telnet session. Port 30000 accepts
// commands; port 30001 is a read-only log stream.
//
//	Login:    login "<user>" "<password>"\r\n
//	Command:  <Function> <Objects> [At <Target>] [/option[=value] ...]\r\n
//	Response: free text ending in a prompt such as [Channel]>
//
// # Building Commands
//
// Object keyword builders return ObjectRef values; function keyword
// builders combine them into a CommandLine and validate everything before
// anything reaches the wire:
//
//	line, err := ma2protocol.Store(ma2protocol.Cue(1), ma2protocol.NewOptions("merge"))
//	// Store Cue 1 /merge
//
//	line, err = ma2protocol.Copy(ma2protocol.Group(1).Thru(3), ma2protocol.To(11), ma2protocol.Options{})
//	// Copy Group 1 Thru 3 At 11
//
//	line, err = ma2protocol.GotoCue(ma2protocol.Cue(5), ma2protocol.Sequence(1), ma2protocol.Options{})
//	// Goto Cue 5 Sequence 1
//
// Builder errors are *BuildError values and match the sentinels
// ErrInvalidRange, ErrInvalidIdentifier, ErrUnsupportedOption,
// ErrInvalidLabel, ErrUnknownType, ErrCardinalityMismatch and
// ErrMissingArgument with errors.Is.
//
// # Sessions
//
//	s := ma2protocol.NewSession(ma2protocol.DefaultConfig())
//	ep := ma2protocol.Endpoint{Host: "192.168.0.10", Port: ma2protocol.DefaultPort}
//	if err := s.Connect(ctx, ep, ma2protocol.DefaultCredentials()); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Shutdown()
//
//	resp, err := s.Exec(ctx, line)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.Lines())
//
// A session moves through Disconnected, Connecting, Authenticating and
// Ready. Losing the transport while Ready moves it to Reconnecting, from
// where it retries with exponential backoff; Shutdown moves it to Closed.
//
// # Thread Safety
//
// Builders are pure functions. Session and Transcript are safe for
// concurrent use; a Session processes one command at a time in FIFO order.
package ma2protocol
