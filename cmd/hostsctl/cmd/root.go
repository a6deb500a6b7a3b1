// Package cmd provides the CLI commands for hostsctl.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/munichmade/hostsctl/internal/config"
	"github.com/munichmade/hostsctl/internal/logging"
	"github.com/munichmade/hostsctl/internal/paths"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var (
	configPath string
	logLevel   string

	// cfg is loaded before every command that needs it.
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "hostsctl",
	Short: "Generate and install a blocking hosts file",
	Long: `hostsctl builds a hosts file from your block, allow and redirect rules
and installs it as the system hosts file:

  - Blocked hosts resolve to a configurable address (127.0.0.1 by default)
  - Allow rules with * wildcards exempt hosts from blocking
  - Redirect rules map a host to a specific address
  - The original minimal hosts file can be restored at any time

Add rules with 'hostsctl rule add', then run 'hostsctl apply'.
Writing the system hosts file requires sudo or su.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("hostsctl version {{.Version}}\ncommit: %s\nbuilt: %s\n", Commit, BuildDate))
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+shortenPath(paths.ConfigFile())+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// initialize loads the configuration and sets up logging.
func initialize() error {
	if configPath == "" {
		configPath = paths.ConfigFile()
	}

	loaded, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}

	if cfg.Logging.File != "" {
		closer, err := logging.SetupFile(logging.ParseLevel(level), cfg.Logging.File, os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logCloser = closer
	} else {
		logging.Setup(logging.ParseLevel(level), os.Stderr)
	}

	logging.Debug("configuration loaded", "path", configPath)
	return nil
}
