package cmd

import (
	"github.com/chienchuanw/gma2-mcp/internal/repl"
	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/spf13/cobra"
)

func newReplCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session with the console",
		Long:  "Start an interactive session. Lines are sent to the console as typed; :tool key=value calls a tool; .help lists the local commands.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.load(cmd)
			if err != nil {
				return err
			}
			s, err := app.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Shutdown()

			editor := repl.NewLineEditor(cmd.InOrStdin(), cmd.OutOrStdout())
			defer editor.Close()

			r := repl.New(s, tools.New(s, app.log), editor, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return r.Run(cmd.Context())
		},
	}
}
