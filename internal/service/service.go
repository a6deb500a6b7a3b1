// Package service installs hostsctl as a system service that keeps the hosts
// file in sync with the configuration and rules.
package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/munichmade/hostsctl/internal/privilege"
)

// ErrUnsupported is returned on platforms without a supported service manager.
var ErrUnsupported = errors.New("service installation is only supported with systemd")

// Config holds service installation configuration.
type Config struct {
	// BinaryPath is the path to the hostsctl binary.
	// If empty, the current executable path is used.
	BinaryPath string
	// ConfigPath is passed to the service with --config.
	ConfigPath string
	// Interval is the watch polling interval; zero keeps the default.
	Interval time.Duration
}

// Manager installs and controls the service. Every write and systemctl call
// goes through the privileged runner.
type Manager struct {
	runner  privilege.Runner
	unitDir string
	tmpDir  string
}

// New creates a Manager for the platform's default unit directory.
func New(runner privilege.Runner) *Manager {
	return &Manager{runner: runner, unitDir: defaultUnitDir, tmpDir: os.TempDir()}
}

// NewWithDirs creates a Manager writing units to unitDir and staging them in
// tmpDir.
func NewWithDirs(runner privilege.Runner, unitDir, tmpDir string) *Manager {
	return &Manager{runner: runner, unitDir: unitDir, tmpDir: tmpDir}
}

// UnitPath returns where the unit file is installed.
func (m *Manager) UnitPath() string {
	return filepath.Join(m.unitDir, unitFileName)
}

// IsInstalled checks if hostsctl is installed as a system service.
func (m *Manager) IsInstalled() bool {
	_, err := os.Stat(m.UnitPath())
	return err == nil
}

// Install writes the unit and enables the service.
func (m *Manager) Install(cfg Config) error {
	if cfg.BinaryPath == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		cfg.BinaryPath, err = filepath.EvalSymlinks(exe)
		if err != nil {
			return fmt.Errorf("failed to resolve executable path: %w", err)
		}
	}

	return m.install(cfg)
}

// Uninstall stops, disables and removes the service.
func (m *Manager) Uninstall() error {
	return m.uninstall()
}

// Start starts the system service.
func (m *Manager) Start() error {
	return m.start()
}

// Stop stops the system service.
func (m *Manager) Stop() error {
	return m.stop()
}

// ServiceName returns the name of the service for the current platform.
func ServiceName() string {
	return serviceName
}
