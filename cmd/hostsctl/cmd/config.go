package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/munichmade/hostsctl/internal/config"
	"github.com/munichmade/hostsctl/internal/paths"
)

var (
	configInitForce bool
	configPathAll   bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and initialize the hostsctl configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, defaults included.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Printf("# %s\n", configPath)
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	// Must work without a readable config file
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = paths.ConfigFile()
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !configPathAll {
			fmt.Println(configPath)
			return
		}
		p := paths.Default()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "config\t%s\n", configPath)
		fmt.Fprintf(w, "config dir\t%s\n", p.ConfigDir)
		fmt.Fprintf(w, "data dir\t%s\n", p.DataDir)
		fmt.Fprintf(w, "runtime dir\t%s\n", p.RuntimeDir)
		fmt.Fprintf(w, "staging\t%s\n", p.StagingDir)
		fmt.Fprintf(w, "database\t%s\n", p.DatabaseFile)
		fmt.Fprintf(w, "lock\t%s\n", p.LockFile)
		fmt.Fprintf(w, "log\t%s\n", p.LogFile)
		w.Flush()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to the configuration file.
An existing file is only replaced with --force.`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = paths.ConfigFile()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
		if err := config.Default().SaveToFile(configPath); err != nil {
			return err
		}
		fmt.Printf("wrote default configuration to %s\n", configPath)
		return nil
	},
}

func init() {
	configPathCmd.Flags().BoolVar(&configPathAll, "all", false, "Print every directory and file hostsctl uses")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
