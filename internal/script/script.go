// Package script runs TOML files of tool invocations and raw command lines
// against a console, once or whenever the file changes.
//
// A script looks like:
//
//	name = "preshow"
//
//	[[step]]
//	tool = "create_fixture_group"
//	args = { start_fixture = 1, end_fixture = 10, group_id = 1, group_name = "Front Wash" }
//
//	[[step]]
//	raw = "Go Executor 1"
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/chienchuanw/gma2-mcp/ma2protocol"
	toml "github.com/pelletier/go-toml/v2"
)

// Step is one script entry: a tool call or a raw command line.
type Step struct {
	Tool string         `toml:"tool"`
	Args map[string]any `toml:"args"`
	Raw  string         `toml:"raw"`
}

// Describe returns a short human-readable form of the step.
func (s Step) Describe() string {
	if s.Raw != "" {
		return s.Raw
	}
	return s.Tool
}

// Script is a parsed script file.
type Script struct {
	Name  string `toml:"name"`
	Steps []Step `toml:"step"`
}

// Caller runs a named tool. *tools.Dispatcher satisfies it.
type Caller interface {
	Call(ctx context.Context, name string, args map[string]any) (tools.Result, error)
}

// StepResult reports the outcome of one step.
type StepResult struct {
	Index  int // 1-based
	Step   Step
	Result tools.Result
	Err    error
}

// Parse decodes and validates a script. Unknown keys are rejected so typos
// fail before anything is sent.
func Parse(data []byte) (*Script, error) {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var s Script
	if err := dec.Decode(&s); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("parse script: %s", strict.String())
		}
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("parse script: no steps")
	}

	for i, step := range s.Steps {
		switch {
		case step.Tool != "" && step.Raw != "":
			return nil, fmt.Errorf("step %d: set either tool or raw, not both", i+1)
		case step.Tool == "" && step.Raw == "":
			return nil, fmt.Errorf("step %d: needs tool or raw", i+1)
		case step.Raw != "":
			if step.Args != nil {
				return nil, fmt.Errorf("step %d: raw steps take no args", i+1)
			}
			if _, err := ma2protocol.ParseCommandLine(step.Raw); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return &s, nil
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Run executes the steps in order and stops at the first failure. report,
// if not nil, is called after every step including the failing one.
func Run(ctx context.Context, c Caller, s *Script, report func(StepResult)) error {
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		name, args := step.Tool, step.Args
		if step.Raw != "" {
			name, args = tools.SendRawCommand, map[string]any{"command": step.Raw}
		}

		res, err := c.Call(ctx, name, args)
		if report != nil {
			report(StepResult{Index: i + 1, Step: step, Result: res, Err: err})
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Describe(), err)
		}
	}
	return nil
}
