package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	_ "github.com/kilianp07/freshplan/app/plugins"
	"github.com/kilianp07/freshplan/core/milp"
)

var solversCmd = &cobra.Command{
	Use:   "solvers",
	Short: "List the registered MILP solvers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range milp.Solvers() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(solversCmd)
}
