package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/chienchuanw/gma2-mcp/ma2protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const preshow = `
name = "preshow"

[[step]]
tool = "create_fixture_group"
args = { start_fixture = 1, end_fixture = 4, group_id = 2, group_name = "Side" }

[[step]]
raw = "Go Executor 1"

[[step]]
tool = "execute_sequence"
args = { sequence_id = 3, action = "goto", cue_id = 5 }
`

type recordingConsole struct {
	lines  []string
	failOn string
}

func (c *recordingConsole) Exec(_ context.Context, line ma2protocol.CommandLine) (ma2protocol.Response, error) {
	if line.String() == c.failOn {
		return ma2protocol.Response{}, &ma2protocol.TransportError{Op: "write", Err: errors.New("broken pipe")}
	}
	c.lines = append(c.lines, line.String())
	return ma2protocol.Response{Complete: true}, nil
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(preshow))
	require.NoError(t, err)

	assert.Equal(t, "preshow", s.Name)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, tools.CreateFixtureGroup, s.Steps[0].Tool)
	assert.Equal(t, "Side", s.Steps[0].Args["group_name"])
	assert.Equal(t, "Go Executor 1", s.Steps[1].Describe())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"no steps", `name = "empty"`, "no steps"},
		{"unknown key", "[[step]]\nrwa = \"Go\"\n", "rwa"},
		{"tool and raw", "[[step]]\ntool = \"x\"\nraw = \"Go\"\n", "not both"},
		{"neither", "[[step]]\nargs = { a = 1 }\n", "needs tool or raw"},
		{"raw with args", "[[step]]\nraw = \"Go\"\nargs = { a = 1 }\n", "no args"},
		{"raw login", "[[step]]\nraw = 'login \"a\" \"b\"'\n", "step 1"},
		{"bad toml", "[[step]\n", "parse script"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestRun(t *testing.T) {
	s, err := Parse([]byte(preshow))
	require.NoError(t, err)

	console := &recordingConsole{}
	var reported []int
	err = Run(context.Background(), tools.New(console, nil), s, func(r StepResult) {
		require.NoError(t, r.Err)
		reported = append(reported, r.Index)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SelFix Fixture 1 Thru 4",
		"Store Group 2",
		`Label Group 2 "Side"`,
		"Go Executor 1",
		"Goto Cue 5 Sequence 3",
	}, console.lines)
	assert.Equal(t, []int{1, 2, 3}, reported)
}

func TestRunStopsAtFailingStep(t *testing.T) {
	s, err := Parse([]byte(preshow))
	require.NoError(t, err)

	console := &recordingConsole{failOn: "Go Executor 1"}
	var last StepResult
	err = Run(context.Background(), tools.New(console, nil), s, func(r StepResult) { last = r })
	require.Error(t, err)

	assert.Contains(t, err.Error(), "step 2 (Go Executor 1)")
	assert.True(t, ma2protocol.Retryable(err))
	assert.Equal(t, 2, last.Index)
	assert.Error(t, last.Err)
	assert.NotContains(t, console.lines, "Goto Cue 5 Sequence 3")
}

func TestRunCancelled(t *testing.T) {
	s, err := Parse([]byte(preshow))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	console := &recordingConsole{}
	err = Run(ctx, tools.New(console, nil), s, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, console.lines)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWatchRerunsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[step]]\nraw = \"Go Executor 1\"\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(_ context.Context, s *Script) error {
			runs <- s.Steps[0].Raw
			return nil
		}, nil)
	}()

	select {
	case got := <-runs:
		assert.Equal(t, "Go Executor 1", got)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial run")
	}

	// Give the watcher a moment to register before editing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[[step]]\nraw = \"Go Executor 2\"\n"), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-runs:
			if got == "Go Executor 2" {
				cancel()
				select {
				case err := <-done:
					assert.NoError(t, err)
				case <-time.After(5 * time.Second):
					t.Fatal("watch did not stop")
				}
				return
			}
		case <-deadline:
			t.Fatal("edit not picked up")
		}
	}
}
