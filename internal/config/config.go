// Package config provides configuration loading and management for hostsctl.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/munichmade/hostsctl/internal/paths"
	"gopkg.in/yaml.v3"
)

// DefaultSystemHostsPath is the location resolvers read the hosts file from.
const DefaultSystemHostsPath = "/etc/hosts"

// Privilege elevation methods.
const (
	MethodAuto = "auto"
	MethodSudo = "sudo"
	MethodSu   = "su"
	MethodNone = "none"
)

// Config represents the complete hostsctl configuration.
type Config struct {
	Install     InstallConfig     `yaml:"install"`
	Redirection RedirectionConfig `yaml:"redirection"`
	Privilege   PrivilegeConfig   `yaml:"privilege"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// InstallConfig configures where and how the hosts file is installed.
type InstallConfig struct {
	// Target is where the generated file is written. Empty means the system
	// hosts path itself; anything else must be symlinked from it.
	Target          string `yaml:"target"`
	SystemHostsPath string `yaml:"system_hosts_path"`
	Owner           string `yaml:"owner"`
	Mode            string `yaml:"mode"`
	SELinuxContext  string `yaml:"selinux_context,omitempty"`
}

// RedirectionConfig configures the addresses blocked hosts resolve to.
type RedirectionConfig struct {
	IPv4       string `yaml:"ipv4"`
	IPv6       string `yaml:"ipv6"`
	EnableIPv6 bool   `yaml:"enable_ipv6"`
}

// PrivilegeConfig configures how privileged commands are run.
type PrivilegeConfig struct {
	Method string `yaml:"method"` // auto, sudo, su or none
}

// DatabaseConfig configures the rule database.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"` // defaults to paths.DatabaseFile()
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Target is the resolved install location.
type Target struct {
	Path            string
	RequiresSymlink bool
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Install: InstallConfig{
			SystemHostsPath: DefaultSystemHostsPath,
			Owner:           "0:0",
			Mode:            "644",
		},
		Redirection: RedirectionConfig{
			IPv4: "127.0.0.1",
			IPv6: "::1",
		},
		Privilege: PrivilegeConfig{
			Method: MethodAuto,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration from the default config file.
// If the file doesn't exist, it creates a default configuration file.
func Load() (*Config, error) {
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile reads the configuration from the specified file path.
// If the file doesn't exist, it creates a default configuration file.
func LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.SaveToFile(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults and overlay with file values
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile writes the configuration to the specified file path.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.Install.SystemHostsPath) {
		return fmt.Errorf("install.system_hosts_path must be an absolute path")
	}
	if err := validateTarget(c.Install.Target); err != nil {
		return fmt.Errorf("install.target: %w", err)
	}
	if c.Install.Owner == "" {
		return fmt.Errorf("install.owner is required")
	}
	if _, err := parseMode(c.Install.Mode); err != nil {
		return fmt.Errorf("install.mode: %w", err)
	}

	if ip := net.ParseIP(c.Redirection.IPv4); ip == nil || ip.To4() == nil {
		return fmt.Errorf("redirection.ipv4 %q is not an IPv4 address", c.Redirection.IPv4)
	}
	if ip := net.ParseIP(c.Redirection.IPv6); ip == nil || ip.To4() != nil {
		return fmt.Errorf("redirection.ipv6 %q is not an IPv6 address", c.Redirection.IPv6)
	}

	switch c.Privilege.Method {
	case MethodAuto, MethodSudo, MethodSu, MethodNone:
	default:
		return fmt.Errorf("privilege.method must be one of: auto, sudo, su, none")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

// validateTarget rejects target paths that cannot name a file.
func validateTarget(target string) error {
	if target == "" {
		return nil
	}
	if strings.HasSuffix(target, "/") {
		return fmt.Errorf("%q ends with a path separator", target)
	}
	if !filepath.IsAbs(target) {
		return fmt.Errorf("%q is not an absolute path", target)
	}
	return nil
}

func parseMode(mode string) (os.FileMode, error) {
	v, err := strconv.ParseUint(mode, 8, 32)
	if err != nil || v > 0o7777 {
		return 0, fmt.Errorf("%q is not an octal permission mode", mode)
	}
	return os.FileMode(v), nil
}

// InstallTarget resolves the install target. The target is re-read on every
// call so configuration changes take effect on the next apply.
func (c *Config) InstallTarget() (Target, error) {
	path := c.Install.Target
	if path == "" {
		path = c.Install.SystemHostsPath
	}
	if err := validateTarget(path); err != nil {
		return Target{}, fmt.Errorf("invalid install target: %w", err)
	}
	// Compare cleaned paths so /etc/./hosts is the system file, not a link target
	path = filepath.Clean(path)
	return Target{
		Path:            path,
		RequiresSymlink: path != c.SystemHostsPath(),
	}, nil
}

// SystemHostsPath returns the fixed path resolvers read.
func (c *Config) SystemHostsPath() string {
	return filepath.Clean(c.Install.SystemHostsPath)
}

// RedirectionAddresses returns the IPv4 and IPv6 addresses blocked hosts map to.
func (c *Config) RedirectionAddresses() (ipv4, ipv6 string) {
	return c.Redirection.IPv4, c.Redirection.IPv6
}

// IPv6Enabled reports whether blocked hosts also get an IPv6 line.
func (c *Config) IPv6Enabled() bool {
	return c.Redirection.EnableIPv6
}

// FileOwner returns the user:group passed to chown.
func (c *Config) FileOwner() string {
	return c.Install.Owner
}

// FileMode returns the permission bits, as octal text, passed to chmod.
func (c *Config) FileMode() string {
	return c.Install.Mode
}

// SELinuxContext returns the security context applied to symlink targets.
func (c *Config) SELinuxContext() string {
	return c.Install.SELinuxContext
}

// DatabasePath returns the configured rule database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return paths.DatabaseFile()
}
