package cmd

import (
	"fmt"
	"strings"

	"github.com/chienchuanw/gma2-mcp/ma2protocol"
	"github.com/spf13/cobra"
)

func newSendCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "send <command...>",
		Short: "Send one command line and print the console output",
		Example: `  gma2 send Fixture 1 Thru 10
  gma2 send 'Label Group 1 "Front Wash"'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate before connecting so a bad line never opens a session.
			line, err := ma2protocol.ParseCommandLine(strings.Join(args, " "))
			if err != nil {
				return err
			}

			app, err := rt.load(cmd)
			if err != nil {
				return err
			}
			s, err := app.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Shutdown()

			resp, err := s.Exec(cmd.Context(), line)
			if err != nil {
				return err
			}
			for _, l := range resp.Lines() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), l); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
