package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/munichmade/hostsctl/internal/install"
)

var symlinkCmd = &cobra.Command{
	Use:   "symlink",
	Short: "Link the system hosts file to the install target (requires sudo)",
	Long: `Replace the system hosts file with a symbolic link to the configured
install target (install.target). Use this when the system hosts file lives
on a read-only partition and the generated file should live elsewhere.

Does nothing when the install target is the system hosts file itself.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(func(ctx context.Context, orch *install.Orchestrator) error {
			target, err := cfg.InstallTarget()
			if err != nil {
				return err
			}
			if !target.RequiresSymlink {
				fmt.Println("install target is the system hosts file, no link needed")
				return nil
			}
			if ok, _ := orch.IsSymlinkCorrect(); ok {
				fmt.Printf("%s already links to %s\n", cfg.SystemHostsPath(), target.Path)
				return nil
			}
			if err := orch.CreateSymlink(ctx); err != nil {
				return explain(err)
			}
			fmt.Printf("%s now links to %s\n", cfg.SystemHostsPath(), target.Path)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(symlinkCmd)
}
