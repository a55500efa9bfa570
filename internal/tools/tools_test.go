package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chienchuanw/gma2-mcp/internal/consoletest"
	"github.com/chienchuanw/gma2-mcp/ma2protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConsole records lines and fails on request.
type recordingConsole struct {
	lines  []string
	failOn string
}

func (c *recordingConsole) Exec(_ context.Context, line ma2protocol.CommandLine) (ma2protocol.Response, error) {
	if line.String() == c.failOn {
		return ma2protocol.Response{}, &ma2protocol.NotReadyError{State: ma2protocol.Reconnecting}
	}
	c.lines = append(c.lines, line.String())
	return ma2protocol.Response{Text: line.String() + "\r\n[Channel]>", Prompt: "[Channel]>", Complete: true}, nil
}

func TestCreateFixtureGroup(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		commands []string
		message  string
	}{
		{
			name:     "unnamed",
			args:     map[string]any{"start_fixture": 1, "end_fixture": 10, "group_id": 1},
			commands: []string{"SelFix Fixture 1 Thru 10", "Store Group 1"},
			message:  "Created Group 1 containing Fixtures 1 to 10",
		},
		{
			name:     "named with JSON numbers",
			args:     map[string]any{"start_fixture": 1.0, "end_fixture": 10.0, "group_id": 1.0, "group_name": "Front Wash"},
			commands: []string{"SelFix Fixture 1 Thru 10", "Store Group 1", `Label Group 1 "Front Wash"`},
			message:  `Created Group 1 "Front Wash" containing Fixtures 1 to 10`,
		},
		{
			name:     "text arguments",
			args:     map[string]any{"start_fixture": "5", "end_fixture": "8", "group_id": "3"},
			commands: []string{"SelFix Fixture 5 Thru 8", "Store Group 3"},
			message:  "Created Group 3 containing Fixtures 5 to 8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			console := &recordingConsole{}
			d := New(console, nil)

			res, err := d.Call(context.Background(), CreateFixtureGroup, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.commands, console.lines)
			assert.Equal(t, tt.commands, res.Commands)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestExecuteSequence(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		command string
		message string
	}{
		{"go", map[string]any{"sequence_id": 1, "action": "go"}, "Go Sequence 1", "Executed Sequence 1"},
		{"pause", map[string]any{"sequence_id": 2, "action": "pause"}, "Pause Sequence 2", "Paused Sequence 2"},
		{"goto", map[string]any{"sequence_id": 1, "action": "goto", "cue_id": 5}, "Goto Cue 5 Sequence 1", "Jumped to Cue 5 of Sequence 1"},
		{"action any case", map[string]any{"sequence_id": 4, "action": "GO"}, "Go Sequence 4", "Executed Sequence 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			console := &recordingConsole{}
			d := New(console, nil)

			res, err := d.Call(context.Background(), ExecuteSequence, tt.args)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.command}, console.lines)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestSendRawCommand(t *testing.T) {
	console := &recordingConsole{}
	d := New(console, nil)

	res, err := d.Call(context.Background(), SendRawCommand, map[string]any{"command": "  Go Executor 1.1\r\n"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go Executor 1.1"}, console.lines)
	assert.Equal(t, "Sent command: Go Executor 1.1", res.Message)
	assert.Equal(t, []string{"Go Executor 1.1"}, res.Output)
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]any
		arg  string // expected ArgumentError.Arg, empty for other errors
		is   error
	}{
		{"unknown tool", "blackout", nil, "", ErrUnknownTool},
		{"missing argument", CreateFixtureGroup, map[string]any{"start_fixture": 1}, "end_fixture", nil},
		{"unexpected argument", SendRawCommand, map[string]any{"command": "Clear", "force": true}, "force", nil},
		{"fractional number", CreateFixtureGroup, map[string]any{"start_fixture": 1.5, "end_fixture": 2, "group_id": 1}, "start_fixture", nil},
		{"wrong type", SendRawCommand, map[string]any{"command": 5}, "command", nil},
		{"goto without cue", ExecuteSequence, map[string]any{"sequence_id": 1, "action": "goto"}, "cue_id", nil},
		{"unknown action", ExecuteSequence, map[string]any{"sequence_id": 1, "action": "stop"}, "action", nil},
		{"descending fixtures", CreateFixtureGroup, map[string]any{"start_fixture": 10, "end_fixture": 1, "group_id": 1}, "", ma2protocol.ErrInvalidRange},
		{"label with newline", CreateFixtureGroup, map[string]any{"start_fixture": 1, "end_fixture": 2, "group_id": 1, "group_name": "a\nb"}, "", ma2protocol.ErrInvalidLabel},
		{"raw login", SendRawCommand, map[string]any{"command": `login "x" "y"`}, "", ma2protocol.ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			console := &recordingConsole{}
			d := New(console, nil)

			_, err := d.Call(context.Background(), tt.tool, tt.args)
			require.Error(t, err)
			if tt.arg != "" {
				var ae *ArgumentError
				require.True(t, errors.As(err, &ae), "got %v", err)
				assert.Equal(t, tt.arg, ae.Arg)
			} else {
				assert.ErrorIs(t, err, tt.is)
			}
			assert.Empty(t, console.lines, "nothing is sent when arguments are bad")
		})
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	console := &recordingConsole{failOn: "Store Group 1"}
	d := New(console, nil)

	res, err := d.CreateFixtureGroup(context.Background(), 1, 10, 1, "Front")
	require.Error(t, err)
	assert.True(t, ma2protocol.Retryable(err))
	assert.Contains(t, err.Error(), "Store Group 1")
	assert.Equal(t, []string{"SelFix Fixture 1 Thru 10"}, res.Commands)
}

func TestToolsListing(t *testing.T) {
	d := New(&recordingConsole{}, nil)

	var names []string
	for _, tool := range d.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{CreateFixtureGroup, ExecuteSequence, SendRawCommand}, names)
}

// TestDispatcherOverSession drives the dispatcher through a real session
// against the fake console.
func TestDispatcherOverSession(t *testing.T) {
	c := consoletest.Start(t, consoletest.Options{})

	cfg := ma2protocol.DefaultConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	s := ma2protocol.NewSession(cfg)
	t.Cleanup(s.Shutdown)
	require.NoError(t, s.Connect(context.Background(), ma2protocol.Endpoint{Host: c.Host, Port: c.Port}, ma2protocol.DefaultCredentials()))

	d := New(s, nil)
	_, err := d.CreateFixtureGroup(context.Background(), 1, 4, 7, "Back Light")
	require.NoError(t, err)

	assert.Equal(t, []string{"SelFix Fixture 1 Thru 4", "Store Group 7", `Label Group 7 "Back Light"`}, c.Commands())
}
