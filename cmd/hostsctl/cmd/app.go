package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/munichmade/hostsctl/internal/install"
	"github.com/munichmade/hostsctl/internal/lock"
	"github.com/munichmade/hostsctl/internal/logging"
	"github.com/munichmade/hostsctl/internal/mount"
	"github.com/munichmade/hostsctl/internal/paths"
	"github.com/munichmade/hostsctl/internal/privilege"
	"github.com/munichmade/hostsctl/internal/store"
)

// openStore opens the configured rule database.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open rule database: %w", err)
	}
	return st, nil
}

// newOrchestrator wires an orchestrator against the live system.
func newOrchestrator(st *store.Store) (*install.Orchestrator, *mount.Controller, error) {
	runner, err := privilege.NewShellRunner(cfg.Privilege.Method)
	if err != nil {
		return nil, nil, err
	}
	mounts := mount.New(runner)

	orch := install.New(install.Deps{
		Settings:   cfg,
		Sources:    st,
		Entries:    st,
		Runner:     runner,
		Mounts:     mounts,
		StagingDir: paths.StagingDir(),
		Logger:     logging.Component("install"),
	})
	return orch, mounts, nil
}

// withOrchestrator runs fn with the system-wide lock held and a context that
// is canceled on SIGINT or SIGTERM.
func withOrchestrator(fn func(ctx context.Context, orch *install.Orchestrator) error) error {
	return runOrchestrator(true, fn)
}

// runOrchestrator wires an orchestrator and runs fn under an interrupt
// context. With hold unset fn takes the lock itself around each operation.
func runOrchestrator(hold bool, fn func(ctx context.Context, orch *install.Orchestrator) error) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	orch, _, err := newOrchestrator(st)
	if err != nil {
		return err
	}

	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create data directories: %w", err)
	}

	if hold {
		release, err := acquireLock()
		if err != nil {
			return err
		}
		defer release()
	}

	interrupt := lock.NewInterrupt(context.Background())
	interrupt.OnInterrupt(func() {
		fmt.Fprintln(os.Stderr, "interrupted, finishing the current step")
	})
	interrupt.Start()
	defer interrupt.Stop()

	return fn(interrupt.Context(), orch)
}

// acquireLock takes the lock shared by every hostsctl process on the host.
func acquireLock() (release func(), err error) {
	l := lock.New()
	if err := l.Acquire(); err != nil {
		return nil, err
	}
	return func() {
		if err := l.Release(); err != nil {
			logging.Warn("failed to release lock", "path", l.Path(), "error", err)
		}
	}, nil
}

// hint returns follow-up advice for an install failure.
func hint(err error) string {
	switch {
	case errors.Is(err, install.ErrSymlinkMissing):
		return "run 'hostsctl symlink' to link the system hosts file to the install target"
	case errors.Is(err, install.ErrNotEnoughSpace):
		return "free some space on the target partition or remove rules"
	case errors.Is(err, install.ErrBusy), errors.Is(err, lock.ErrLocked):
		return "wait for the other hostsctl process to finish"
	default:
		return ""
	}
}

// shortenPath replaces the home directory prefix with ~.
func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + strings.TrimPrefix(path, home)
	}
	return path
}
