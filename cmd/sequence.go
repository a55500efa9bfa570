package cmd

import (
	"fmt"
	"strconv"

	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/spf13/cobra"
)

func newSequenceCmd(rt *runtime) *cobra.Command {
	seqCmd := &cobra.Command{
		Use:   "sequence",
		Short: "Run, pause or jump within a sequence",
	}
	seqCmd.AddCommand(
		newSequenceActionCmd(rt, "go", "Go to the next cue of a sequence", cobra.ExactArgs(1)),
		newSequenceActionCmd(rt, "pause", "Pause a running sequence", cobra.ExactArgs(1)),
		newSequenceActionCmd(rt, "goto", "Jump to a cue of a sequence", cobra.ExactArgs(2)),
	)
	return seqCmd
}

func newSequenceActionCmd(rt *runtime, action, short string, args cobra.PositionalArgs) *cobra.Command {
	use := action + " <sequence>"
	if action == "goto" {
		use += " <cue>"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("sequence must be a number, got %q", args[0])
			}
			cue := 0
			if len(args) > 1 {
				if cue, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("cue must be a number, got %q", args[1])
				}
			}

			app, err := rt.load(cmd)
			if err != nil {
				return err
			}
			return app.withTools(cmd.Context(), func(d *tools.Dispatcher) error {
				res, err := d.ExecuteSequence(cmd.Context(), seq, action, cue)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				return err
			})
		},
	}
}
