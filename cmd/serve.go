package cmd

import (
	"github.com/chienchuanw/gma2-mcp/internal/bridge"
	"github.com/chienchuanw/gma2-mcp/internal/config"
	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/spf13/cobra"
)

func newServeCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the console tools over a websocket",
		Long:  "Connect to the console and serve the tools at ws://<listen>/ws, with GET /healthz reporting the session state and GET /tools listing the tools.",
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

			srv := bridge.New(tools.New(s, app.log), s, app.log)
			s.SetStateHandler(srv.NotifyState)
			return srv.Serve(cmd.Context(), app.cfg.Listen)
		},
	}

	cmd.Flags().String("listen", config.DefaultListen, "bridge listen address")
	rt.bind(cmd.Flags(), config.KeyListen, "listen")
	return cmd
}
