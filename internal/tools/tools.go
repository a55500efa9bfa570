// Package tools exposes high-level console operations by name, for callers
// that speak in tool invocations rather than command lines: the websocket
// bridge, scripts and the REPL.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/chienchuanw/gma2-mcp/ma2protocol"
)

// Tool names.
const (
	CreateFixtureGroup = "create_fixture_group"
	ExecuteSequence    = "execute_sequence"
	SendRawCommand     = "send_raw_command"
)

// ErrUnknownTool indicates a tool name the dispatcher does not know.
var ErrUnknownTool = errors.New("unknown tool")

// ArgumentError reports a missing or malformed tool argument.
type ArgumentError struct {
	Tool    string
	Arg     string
	Message string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("%s: %s", e.Tool, e.Message)
	}
	return fmt.Sprintf("%s: argument %q %s", e.Tool, e.Arg, e.Message)
}

// Console runs one command line and returns its response. *ma2protocol.Session
// satisfies it.
type Console interface {
	Exec(ctx context.Context, line ma2protocol.CommandLine) (ma2protocol.Response, error)
}

// Result describes a completed tool call.
type Result struct {
	Message  string   `json:"message"`
	Commands []string `json:"commands"`
	Output   []string `json:"output,omitempty"`
}

// Param documents one tool argument.
type Param struct {
	Name     string
	Type     string
	Required bool
	Help     string
}

// Tool documents a tool.
type Tool struct {
	Name   string
	Help   string
	Params []Param
}

type handler func(ctx context.Context, args map[string]any) (Result, error)

// Dispatcher runs tools against a console.
type Dispatcher struct {
	console  Console
	log      *slog.Logger
	tools    map[string]Tool
	handlers map[string]handler
}

// New creates a dispatcher. A nil logger discards.
func New(console Console, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &Dispatcher{
		console:  console,
		log:      logger,
		tools:    make(map[string]Tool),
		handlers: make(map[string]handler),
	}

	d.register(Tool{
		Name: CreateFixtureGroup,
		Help: "Select a range of fixtures and store it as a group, optionally named",
		Params: []Param{
			{Name: "start_fixture", Type: "int", Required: true, Help: "First fixture"},
			{Name: "end_fixture", Type: "int", Required: true, Help: "Last fixture"},
			{Name: "group_id", Type: "int", Required: true, Help: "Group pool number"},
			{Name: "group_name", Type: "string", Help: "Group label"},
		},
	}, d.callCreateFixtureGroup)

	d.register(Tool{
		Name: ExecuteSequence,
		Help: "Go, pause, or jump to a cue of a sequence",
		Params: []Param{
			{Name: "sequence_id", Type: "int", Required: true, Help: "Sequence number"},
			{Name: "action", Type: "string", Required: true, Help: "go, pause or goto"},
			{Name: "cue_id", Type: "int", Help: "Target cue, required for goto"},
		},
	}, d.callExecuteSequence)

	d.register(Tool{
		Name: SendRawCommand,
		Help: "Send a raw command line",
		Params: []Param{
			{Name: "command", Type: "string", Required: true, Help: "Command text"},
		},
	}, d.callSendRaw)

	return d
}

func (d *Dispatcher) register(t Tool, h handler) {
	d.tools[t.Name] = t
	d.handlers[t.Name] = h
}

// Tools returns the available tools sorted by name.
func (d *Dispatcher) Tools() []Tool {
	list := make([]Tool, 0, len(d.tools))
	for _, t := range d.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Call runs the named tool with loosely typed arguments, as decoded from
// JSON, TOML or key=value text.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (Result, error) {
	h, ok := d.handlers[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	for key := range args {
		if !d.accepts(name, key) {
			return Result{}, &ArgumentError{Tool: name, Arg: key, Message: "is not a parameter"}
		}
	}
	return h(ctx, args)
}

func (d *Dispatcher) accepts(tool, arg string) bool {
	for _, p := range d.tools[tool].Params {
		if p.Name == arg {
			return true
		}
	}
	return false
}

// CreateFixtureGroup selects fixtures start..end, stores them as group
// groupID and labels the group when name is not empty.
func (d *Dispatcher) CreateFixtureGroup(ctx context.Context, start, end, groupID int, name string) (Result, error) {
	var lines []ma2protocol.CommandLine
	add := func(line ma2protocol.CommandLine, err error) error {
		if err != nil {
			return err
		}
		lines = append(lines, line)
		return nil
	}

	if err := add(ma2protocol.SelFix(ma2protocol.Fixture(start).Thru(end))); err != nil {
		return Result{}, err
	}
	if err := add(ma2protocol.Store(ma2protocol.Group(groupID), ma2protocol.Options{})); err != nil {
		return Result{}, err
	}
	if name != "" {
		if err := add(ma2protocol.Label(ma2protocol.Group(groupID), name)); err != nil {
			return Result{}, err
		}
	}

	res, err := d.run(ctx, lines...)
	if err != nil {
		return res, err
	}
	if name != "" {
		res.Message = fmt.Sprintf("Created Group %d %q containing Fixtures %d to %d", groupID, name, start, end)
	} else {
		res.Message = fmt.Sprintf("Created Group %d containing Fixtures %d to %d", groupID, start, end)
	}
	return res, nil
}

// ExecuteSequence runs action ("go", "pause" or "goto") on a sequence. cue
// is required for goto and ignored otherwise; 0 means none.
func (d *Dispatcher) ExecuteSequence(ctx context.Context, sequence int, action string, cue int) (Result, error) {
	var (
		line ma2protocol.CommandLine
		err  error
		msg  string
	)
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "go":
		line, err = ma2protocol.Go(ma2protocol.Sequence(sequence), ma2protocol.Options{})
		msg = fmt.Sprintf("Executed Sequence %d", sequence)
	case "pause":
		line, err = ma2protocol.Pause(ma2protocol.Sequence(sequence))
		msg = fmt.Sprintf("Paused Sequence %d", sequence)
	case "goto":
		if cue == 0 {
			return Result{}, &ArgumentError{Tool: ExecuteSequence, Arg: "cue_id", Message: "is required for goto"}
		}
		line, err = ma2protocol.GotoCue(ma2protocol.Cue(cue), ma2protocol.Sequence(sequence), ma2protocol.Options{})
		msg = fmt.Sprintf("Jumped to Cue %d of Sequence %d", cue, sequence)
	default:
		return Result{}, &ArgumentError{Tool: ExecuteSequence, Arg: "action", Message: fmt.Sprintf("must be go, pause or goto, got %q", action)}
	}
	if err != nil {
		return Result{}, err
	}

	res, err := d.run(ctx, line)
	if err != nil {
		return res, err
	}
	res.Message = msg
	return res, nil
}

// SendRaw validates and sends free-form command text.
func (d *Dispatcher) SendRaw(ctx context.Context, command string) (Result, error) {
	line, err := ma2protocol.ParseCommandLine(command)
	if err != nil {
		return Result{}, err
	}
	res, err := d.run(ctx, line)
	if err != nil {
		return res, err
	}
	res.Message = "Sent command: " + line.String()
	return res, nil
}

// run executes lines in order and stops at the first failure. Lines are
// built before run is called so a bad argument sends nothing.
func (d *Dispatcher) run(ctx context.Context, lines ...ma2protocol.CommandLine) (Result, error) {
	var res Result
	for _, line := range lines {
		resp, err := d.console.Exec(ctx, line)
		if err != nil {
			d.log.Warn("command failed", "line", line.String(), "error", err)
			return res, fmt.Errorf("%s: %w", line, err)
		}
		res.Commands = append(res.Commands, line.String())
		res.Output = append(res.Output, resp.Lines()...)
		d.log.Info("command sent", "line", line.String())
	}
	return res, nil
}

func (d *Dispatcher) callCreateFixtureGroup(ctx context.Context, args map[string]any) (Result, error) {
	start, err := intArg(CreateFixtureGroup, args, "start_fixture", true)
	if err != nil {
		return Result{}, err
	}
	end, err := intArg(CreateFixtureGroup, args, "end_fixture", true)
	if err != nil {
		return Result{}, err
	}
	group, err := intArg(CreateFixtureGroup, args, "group_id", true)
	if err != nil {
		return Result{}, err
	}
	name, err := stringArg(CreateFixtureGroup, args, "group_name", false)
	if err != nil {
		return Result{}, err
	}
	return d.CreateFixtureGroup(ctx, start, end, group, name)
}

func (d *Dispatcher) callExecuteSequence(ctx context.Context, args map[string]any) (Result, error) {
	seq, err := intArg(ExecuteSequence, args, "sequence_id", true)
	if err != nil {
		return Result{}, err
	}
	action, err := stringArg(ExecuteSequence, args, "action", true)
	if err != nil {
		return Result{}, err
	}
	cue, err := intArg(ExecuteSequence, args, "cue_id", false)
	if err != nil {
		return Result{}, err
	}
	return d.ExecuteSequence(ctx, seq, action, cue)
}

func (d *Dispatcher) callSendRaw(ctx context.Context, args map[string]any) (Result, error) {
	command, err := stringArg(SendRawCommand, args, "command", true)
	if err != nil {
		return Result{}, err
	}
	return d.SendRaw(ctx, command)
}

// intArg accepts the number types JSON, TOML and text decoding produce.
func intArg(tool string, args map[string]any, name string, required bool) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		if required {
			return 0, &ArgumentError{Tool: tool, Arg: name, Message: "is required"}
		}
		return 0, nil
	}
	bad := &ArgumentError{Tool: tool, Arg: name, Message: fmt.Sprintf("must be an integer, got %v", raw)}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, bad
		}
		return int(v), nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, bad
		}
		return n, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, bad
		}
		return n, nil
	}
	return 0, bad
}

func stringArg(tool string, args map[string]any, name string, required bool) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		if required {
			return "", &ArgumentError{Tool: tool, Arg: name, Message: "is required"}
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", &ArgumentError{Tool: tool, Arg: name, Message: fmt.Sprintf("must be a string, got %v", raw)}
	}
	if required && strings.TrimSpace(s) == "" {
		return "", &ArgumentError{Tool: tool, Arg: name, Message: "is required"}
	}
	return s, nil
}
