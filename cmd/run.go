package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/chienchuanw/gma2-mcp/internal/script"
	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/spf13/cobra"
)

func newRunCmd(rt *runtime) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <script.toml>",
		Short: "Run a TOML script of tool calls and command lines",
		Long: `Run the steps of a TOML script in order, stopping at the first failure.

  [[step]]
  tool = "create_fixture_group"
  args = { start_fixture = 1, end_fixture = 10, group_id = 1 }

  [[step]]
  raw = "Go Executor 1"

With --watch the script runs again every time the file is saved, until
interrupted; failures are reported and watching continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			// Parse first so a broken script fails before connecting.
			s, err := script.Load(path)
			if err != nil && !watch {
				return err
			}

			app, err := rt.load(cmd)
			if err != nil {
				return err
			}
			return app.withTools(cmd.Context(), func(d *tools.Dispatcher) error {
				out := cmd.OutOrStdout()
				if !watch {
					return script.Run(cmd.Context(), d, s, reportStep(out, len(s.Steps)))
				}
				return script.Watch(cmd.Context(), path, func(ctx context.Context, s *script.Script) error {
					fmt.Fprintf(out, "running %s\n", path)
					return script.Run(ctx, d, s, reportStep(out, len(s.Steps)))
				}, app.log)
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "run again whenever the script changes")
	return cmd
}

func reportStep(w io.Writer, total int) func(script.StepResult) {
	return func(r script.StepResult) {
		if r.Err != nil {
			fmt.Fprintf(w, "[%d/%d] %s: FAILED\n", r.Index, total, r.Step.Describe())
			return
		}
		fmt.Fprintf(w, "[%d/%d] %s\n", r.Index, total, r.Result.Message)
	}
}
