package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/munichmade/hostsctl/internal/privilege"
	"github.com/munichmade/hostsctl/internal/service"
)

var serviceInterval time.Duration

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the background sync service (requires sudo)",
	Long: `Install hostsctl as a systemd service that runs 'hostsctl watch', so the
hosts file is re-applied whenever the configuration or rules change.`,
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and enable the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newServiceManager()
		if err != nil {
			return err
		}

		absConfig, err := filepath.Abs(configPath)
		if err != nil {
			return err
		}

		// The service runs as root and would otherwise resolve root's data
		// directory; pin the database the rules were added to.
		if cfg.Database.Path == "" {
			cfg.Database.Path = cfg.DatabasePath()
			if err := cfg.SaveToFile(absConfig); err != nil {
				return fmt.Errorf("failed to record database path: %w", err)
			}
			fmt.Printf("Recorded database path %s in %s\n", shortenPath(cfg.Database.Path), shortenPath(absConfig))
		}

		if err := mgr.Install(service.Config{ConfigPath: absConfig, Interval: serviceInterval}); err != nil {
			return err
		}
		fmt.Printf("Service installed: %s\n", mgr.UnitPath())
		fmt.Printf("Start it with: hostsctl service start\n")
		return nil
	},
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop, disable and remove the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newServiceManager()
		if err != nil {
			return err
		}
		if !mgr.IsInstalled() {
			fmt.Println("Service is not installed")
			return nil
		}
		if err := mgr.Uninstall(); err != nil {
			return err
		}
		fmt.Println("Service removed")
		return nil
	},
}

var serviceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newServiceManager()
		if err != nil {
			return err
		}
		if !mgr.IsInstalled() {
			return fmt.Errorf("service is not installed, run 'hostsctl service install' first")
		}
		return mgr.Start()
	},
}

var serviceStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newServiceManager()
		if err != nil {
			return err
		}
		return mgr.Stop()
	},
}

func newServiceManager() (*service.Manager, error) {
	runner, err := privilege.NewShellRunner(cfg.Privilege.Method)
	if err != nil {
		return nil, err
	}
	return service.New(runner), nil
}

func init() {
	serviceInstallCmd.Flags().DurationVar(&serviceInterval, "interval", 0, "Polling interval passed to 'hostsctl watch'")
	serviceCmd.AddCommand(serviceInstallCmd, serviceUninstallCmd, serviceStartCmd, serviceStopCmd)
	rootCmd.AddCommand(serviceCmd)
}
