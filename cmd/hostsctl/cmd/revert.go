package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/munichmade/hostsctl/internal/install"
)

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Restore the default hosts file (requires sudo)",
	Long: `Replace the installed hosts file with the minimal default that only
maps localhost to the loopback addresses, and clear the install time of
every source.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, orch *install.Orchestrator) error {
			if err := orch.Revert(ctx); err != nil {
				return explain(err)
			}
			fmt.Println("default hosts file restored")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(revertCmd)
}
