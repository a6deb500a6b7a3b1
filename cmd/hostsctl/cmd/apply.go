package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/munichmade/hostsctl/internal/install"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Generate and install the hosts file (requires sudo)",
	Long: `Generate the hosts file from the enabled rules and install it.

The file is staged in the data directory, then copied to the install target
with one privileged command batch. When the install target is not the system
hosts file, the system hosts file must already be a symlink to it
(see 'hostsctl symlink').`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, orch *install.Orchestrator) error {
			if err := orch.Apply(ctx); err != nil {
				return explain(err)
			}
			target, _ := cfg.InstallTarget()
			fmt.Printf("hosts file applied to %s\n", target.Path)
			return nil
		})
	},
}

// explain prints advice for err to stderr and returns it.
func explain(err error) error {
	if h := hint(err); h != "" {
		fmt.Fprintf(os.Stderr, "hint: %s\n", h)
	}
	return err
}

func init() {
	rootCmd.AddCommand(applyCmd)
}
