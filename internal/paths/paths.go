// Package paths provides XDG Base Directory Specification compliant path resolution.
// On macOS, it falls back to standard macOS locations when XDG variables are not set.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const appName = "hostsctl"

// Paths holds all resolved paths for the application.
type Paths struct {
	// ConfigDir is the directory for configuration files.
	// XDG: $XDG_CONFIG_HOME/hostsctl or ~/.config/hostsctl
	ConfigDir string

	// DataDir is the directory for persistent data (rule database).
	// XDG: $XDG_DATA_HOME/hostsctl or ~/.local/share/hostsctl
	// macOS fallback: ~/Library/Application Support/hostsctl
	DataDir string

	// RuntimeDir is the directory for per-user runtime files.
	// XDG: $XDG_RUNTIME_DIR/hostsctl or fallback to DataDir
	RuntimeDir string

	// StagingDir holds generated hosts files before they are installed.
	// Only this application reads or writes it.
	StagingDir string

	// ConfigFile is the path to the main configuration file.
	ConfigFile string

	// DatabaseFile is the path to the rule database.
	DatabaseFile string

	// LockFile is the path to the apply/revert operation lock. It is the same
	// for every user, so root's service and a user's CLI exclude each other.
	LockFile string

	// LogFile is the path to the log file.
	LogFile string
}

var (
	defaultPaths *Paths
	pathsOnce    sync.Once
)

// Default returns the default paths for the current system.
// The result is cached after the first call.
func Default() *Paths {
	pathsOnce.Do(func() {
		defaultPaths = resolve()
	})
	return defaultPaths
}

// lockDirs are world-writable directories shared by all users, in order of
// preference.
var lockDirs = []string{"/run/lock", "/var/lock", "/tmp"}

// resolve determines all paths based on environment and platform.
func resolve() *Paths {
	return resolveFor(os.Geteuid() == 0, homeDir())
}

func resolveFor(root bool, home string) *Paths {
	p := &Paths{}

	// When running as root, use system-wide paths
	if root {
		p.ConfigDir = "/etc/hostsctl"
		p.DataDir = "/var/lib/hostsctl"
		p.RuntimeDir = "/var/run/hostsctl"
	} else {
		p.ConfigDir = resolveConfigDir(home)
		p.DataDir = resolveDataDir(home)
		p.RuntimeDir = resolveRuntimeDir(home, p.DataDir)
	}

	p.StagingDir = filepath.Join(p.DataDir, "staging")

	p.ConfigFile = filepath.Join(p.ConfigDir, "config.yaml")
	p.DatabaseFile = filepath.Join(p.DataDir, "rules.db")
	p.LockFile = resolveLockFile()
	p.LogFile = filepath.Join(p.DataDir, "hostsctl.log")

	return p
}

// resolveLockFile picks the first shared lock directory that exists.
func resolveLockFile() string {
	for _, dir := range lockDirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return filepath.Join(dir, appName+".lock")
		}
	}
	return filepath.Join(os.TempDir(), appName+".lock")
}

// resolveConfigDir determines the configuration directory.
func resolveConfigDir(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	// Default: ~/.config/hostsctl (same on macOS and Linux)
	return filepath.Join(home, ".config", appName)
}

// resolveDataDir determines the data directory.
func resolveDataDir(home string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", appName)
	}

	return filepath.Join(home, ".local", "share", appName)
}

// resolveRuntimeDir determines the runtime directory.
func resolveRuntimeDir(home string, dataDir string) string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	// No XDG runtime dir (macOS, minimal Linux installs): use the data directory
	return dataDir
}

// homeDir returns the user's home directory.
func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if home := os.Getenv("USERPROFILE"); home != "" {
		return home
	}
	return "/"
}

// EnsureDirectories creates all necessary directories with proper permissions.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.ConfigDir,
		p.DataDir,
		p.RuntimeDir,
		p.StagingDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	return nil
}

// Reset clears the cached default paths.
// Useful for testing with different environment variables.
func Reset() {
	defaultPaths = nil
	pathsOnce = sync.Once{}
}

// Convenience functions for common path access

// ConfigDir returns the configuration directory path.
func ConfigDir() string {
	return Default().ConfigDir
}

// DataDir returns the data directory path.
func DataDir() string {
	return Default().DataDir
}

// RuntimeDir returns the runtime directory path.
func RuntimeDir() string {
	return Default().RuntimeDir
}

// StagingDir returns the private staging directory path.
func StagingDir() string {
	return Default().StagingDir
}

// ConfigFile returns the main configuration file path.
func ConfigFile() string {
	return Default().ConfigFile
}

// DatabaseFile returns the rule database path.
func DatabaseFile() string {
	return Default().DatabaseFile
}

// LockFile returns the operation lock path.
func LockFile() string {
	return Default().LockFile
}

// LogFile returns the log file path.
func LogFile() string {
	return Default().LogFile
}

// EnsureDirectories creates all necessary directories using default paths.
func EnsureDirectories() error {
	return Default().EnsureDirectories()
}
