package cmd

import (
	"fmt"

	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/spf13/cobra"
)

func newGroupCmd(rt *runtime) *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Manage fixture groups",
	}
	groupCmd.AddCommand(newGroupCreateCmd(rt))
	return groupCmd
}

func newGroupCreateCmd(rt *runtime) *cobra.Command {
	var (
		start, end, id int
		name           string
	)

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Store a range of fixtures as a group",
		Example: `  gma2 group create --start 1 --end 10 --id 1 --name "Front Wash"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.load(cmd)
			if err != nil {
				return err
			}
			return app.withTools(cmd.Context(), func(d *tools.Dispatcher) error {
				res, err := d.CreateFixtureGroup(cmd.Context(), start, end, id, name)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				return err
			})
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "first fixture")
	cmd.Flags().IntVar(&end, "end", 0, "last fixture")
	cmd.Flags().IntVar(&id, "id", 0, "group pool number")
	cmd.Flags().StringVar(&name, "name", "", "group label")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
