// =============================================================================
// repl.go - REPL Loop
// =============================================================================
//
// The REPL reads a line, translates it (see translate.go) and either handles
// it locally, calls a tool through the dispatcher or sends it to the console
// as a raw command line. Console output is printed without ANSI escapes.
//
// Errors are printed and the loop continues; only end of input, .quit or
// cancellation end it.
//
// =============================================================================

package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/chienchuanw/gma2-mcp/ma2protocol"
)

const defaultTranscriptLines = 20

// Session is the part of *ma2protocol.Session the REPL uses.
type Session interface {
	tools.Console
	State() ma2protocol.State
	Endpoint() ma2protocol.Endpoint
	Transcript() *ma2protocol.Transcript
}

// REPL is an interactive command loop over one session.
type REPL struct {
	session Session
	tools   *tools.Dispatcher
	editor  *LineEditor
	out     io.Writer
	errOut  io.Writer
}

// New creates a REPL. Output goes to out and error messages to errOut.
func New(session Session, dispatcher *tools.Dispatcher, editor *LineEditor, out, errOut io.Writer) *REPL {
	return &REPL{
		session: session,
		tools:   dispatcher,
		editor:  editor,
		out:     out,
		errOut:  errOut,
	}
}

// prompt shows the state whenever the session is not ready, so a dropped
// connection is visible before the next command fails.
func (r *REPL) prompt() string {
	if st := r.session.State(); st != ma2protocol.Ready {
		return fmt.Sprintf("gma2 (%s)> ", strings.ToLower(st.String()))
	}
	return "gma2> "
}

// Run loops until end of input, .quit or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	if r.editor.IsInteractive() {
		fmt.Fprintf(r.out, "Connected to %s. Type .help for help, .quit to leave.\n", r.session.Endpoint())
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.editor.GetLine(r.prompt())
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		if r.Execute(ctx, line) {
			return nil
		}
	}
}

// Execute handles one input line and reports whether the REPL should stop.
func (r *REPL) Execute(ctx context.Context, line string) (quit bool) {
	action, err := Translate(line)
	if err != nil {
		fmt.Fprintf(r.errOut, "Error: %v\n", err)
		return false
	}

	switch action.Kind {
	case ActionNone:
	case ActionDot:
		return r.dotCommand(action.Name, action.Arg)
	case ActionTool:
		res, err := r.tools.Call(ctx, action.Name, action.Args)
		if err != nil {
			fmt.Fprintf(r.errOut, "Error: %v\n", err)
			return false
		}
		fmt.Fprintln(r.out, res.Message)
	case ActionRaw:
		r.sendRaw(ctx, action.Raw)
	}
	return false
}

func (r *REPL) sendRaw(ctx context.Context, text string) {
	cmd, err := ma2protocol.ParseCommandLine(text)
	if err != nil {
		fmt.Fprintf(r.errOut, "Error: %v\n", err)
		return
	}
	resp, err := r.session.Exec(ctx, cmd)
	if err != nil {
		fmt.Fprintf(r.errOut, "Error: %v\n", err)
		if ma2protocol.Retryable(err) {
			fmt.Fprintln(r.errOut, "The command may succeed if you try again.")
		}
		return
	}
	for _, l := range resp.Lines() {
		fmt.Fprintln(r.out, l)
	}
}

func (r *REPL) dotCommand(name, arg string) bool {
	switch name {
	case "quit", "exit":
		return true
	case "help":
		printHelp(r.out, r.tools.Tools(), arg)
	case "tools":
		printToolList(r.out, r.tools.Tools())
	case "state":
		fmt.Fprintf(r.out, "%s (%s)\n", r.session.State(), r.session.Endpoint())
	case "transcript":
		n := defaultTranscriptLines
		if arg != "" {
			v, err := strconv.Atoi(arg)
			if err != nil || v <= 0 {
				fmt.Fprintf(r.errOut, "Error: .transcript takes a positive line count, got %q\n", arg)
				return false
			}
			n = v
		}
		r.printTranscript(n)
	default:
		fmt.Fprintf(r.errOut, "Unknown command '.%s'. Type .help for help.\n", name)
	}
	return false
}

func (r *REPL) printTranscript(n int) {
	entries := r.session.Transcript().Entries()
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	for _, e := range entries {
		fmt.Fprintf(r.out, "%s %s %s\n", e.Time.Format("15:04:05.000"), e.Direction, e.Text)
	}
}
