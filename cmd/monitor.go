package cmd

import (
	"fmt"

	"github.com/chienchuanw/gma2-mcp/internal/config"
	"github.com/chienchuanw/gma2-mcp/ma2protocol"
	"github.com/spf13/cobra"
)

func newMonitorCmd(rt *runtime) *cobra.Command {
	var login bool

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Follow the console's read-only log port",
		Long:  "Print every line the console writes to its read-only port until interrupted. Nothing is sent except an optional login.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.load(cmd)
			if err != nil {
				return err
			}

			m := &ma2protocol.Monitor{Logger: app.log}
			if login {
				creds := app.cfg.Credentials()
				m.Credentials = &creds
			}

			out := cmd.OutOrStdout()
			return m.Run(cmd.Context(), app.cfg.MonitorEndpoint(), func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().Int("monitor-port", ma2protocol.MonitorPort, "read-only log port")
	cmd.Flags().BoolVar(&login, "login", false, "log in on the monitor port")
	rt.bind(cmd.Flags(), config.KeyMonitorPort, "monitor-port")
	return cmd
}
