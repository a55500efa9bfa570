package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as TOML",
		Long:  "Print the configuration after applying flags, environment, config file and defaults. The password is masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.load(cmd)
			if err != nil {
				return err
			}
			data, err := app.cfg.TOML()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if app.cfg.File != "" {
				fmt.Fprintf(out, "# loaded from %s\n", app.cfg.File)
			}
			_, err = out.Write(data)
			return err
		},
	}
}
