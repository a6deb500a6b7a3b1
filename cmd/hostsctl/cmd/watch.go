package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/munichmade/hostsctl/internal/config"
	"github.com/munichmade/hostsctl/internal/install"
	"github.com/munichmade/hostsctl/internal/logging"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-apply whenever the configuration or rules change",
	Long: `Apply the hosts file, then keep running and apply again whenever the
configuration file or the rule database changes. Stop with Ctrl-C.

The lock is taken only while applying, so other hostsctl commands can run
in between.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOrchestrator(false, func(ctx context.Context, orch *install.Orchestrator) error {
			reloads := make(chan *config.Config, 1)
			w := config.NewWatcher(configPath, func(reloaded *config.Config) {
				// Keep only the newest config
				select {
				case <-reloads:
				default:
				}
				reloads <- reloaded
			}, cfg.DatabasePath(), cfg.DatabasePath()+"-wal")
			w.SetInterval(watchInterval)
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			for {
				applyLogged(ctx, orch)
				// Applying stamps install times into the database; forget
				// changes seen while it ran
				if err := w.Resync(); err != nil {
					logging.Warn("failed to resync watcher", "error", err)
				}
				select {
				case <-reloads:
				default:
				}

				select {
				case <-ctx.Done():
					return nil
				case reloaded := <-reloads:
					// The orchestrator reads settings through cfg on every call
					*cfg = *reloaded
				}
			}
		})
	},
}

// applyLogged applies under the shared lock. An apply is skipped while
// another hostsctl process holds the lock.
func applyLogged(ctx context.Context, orch *install.Orchestrator) {
	release, err := acquireLock()
	if err != nil {
		logging.Warn("skipping apply", "error", err)
		return
	}
	defer release()

	err = orch.Apply(ctx)
	switch {
	case err == nil:
		logging.Info("hosts file applied")
	case errors.Is(err, context.Canceled):
	default:
		logging.Error("apply failed", "kind", install.KindOf(err), "error", err)
		if h := hint(err); h != "" {
			logging.Info(h)
		}
	}
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", config.DefaultWatchInterval, "Polling interval")
	rootCmd.AddCommand(watchCmd)
}
