package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Install.SystemHostsPath != "/etc/hosts" {
		t.Errorf("Install.SystemHostsPath = %q, want %q", cfg.Install.SystemHostsPath, "/etc/hosts")
	}
	if cfg.Install.Target != "" {
		t.Errorf("Install.Target = %q, want empty", cfg.Install.Target)
	}
	if cfg.Install.Owner != "0:0" || cfg.Install.Mode != "644" {
		t.Errorf("Install owner/mode = %q/%q, want 0:0/644", cfg.Install.Owner, cfg.Install.Mode)
	}

	ipv4, ipv6 := cfg.RedirectionAddresses()
	if ipv4 != "127.0.0.1" || ipv6 != "::1" {
		t.Errorf("RedirectionAddresses() = %q, %q, want 127.0.0.1, ::1", ipv4, ipv6)
	}
	if cfg.IPv6Enabled() {
		t.Error("IPv6Enabled() = true, want false")
	}

	if cfg.Privilege.Method != MethodAuto {
		t.Errorf("Privilege.Method = %q, want %q", cfg.Privilege.Method, MethodAuto)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "custom target",
			modify:  func(c *Config) { c.Install.Target = "/data/etc/hosts" },
			wantErr: false,
		},
		{
			name:    "target with trailing slash",
			modify:  func(c *Config) { c.Install.Target = "/data/etc/" },
			wantErr: true,
		},
		{
			name:    "relative target",
			modify:  func(c *Config) { c.Install.Target = "etc/hosts" },
			wantErr: true,
		},
		{
			name:    "relative system path",
			modify:  func(c *Config) { c.Install.SystemHostsPath = "hosts" },
			wantErr: true,
		},
		{
			name:    "empty owner",
			modify:  func(c *Config) { c.Install.Owner = "" },
			wantErr: true,
		},
		{
			name:    "non octal mode",
			modify:  func(c *Config) { c.Install.Mode = "rw-r--r--" },
			wantErr: true,
		},
		{
			name:    "ipv6 address in ipv4 slot",
			modify:  func(c *Config) { c.Redirection.IPv4 = "::1" },
			wantErr: true,
		},
		{
			name:    "ipv4 address in ipv6 slot",
			modify:  func(c *Config) { c.Redirection.IPv6 = "0.0.0.0" },
			wantErr: true,
		},
		{
			name:    "unspecified redirection addresses",
			modify:  func(c *Config) { c.Redirection.IPv4 = "0.0.0.0"; c.Redirection.IPv6 = "::" },
			wantErr: false,
		},
		{
			name:    "unknown privilege method",
			modify:  func(c *Config) { c.Privilege.Method = "doas" },
			wantErr: true,
		},
		{
			name:    "privilege method none",
			modify:  func(c *Config) { c.Privilege.Method = MethodNone },
			wantErr: false,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: true,
		},
		{
			name:    "valid log level debug",
			modify:  func(c *Config) { c.Logging.Level = "debug" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInstallTarget(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		wantPath    string
		wantSymlink bool
		wantErr     bool
	}{
		{"system path", "", "/etc/hosts", false, false},
		{"explicit system path", "/etc/hosts", "/etc/hosts", false, false},
		{"custom path", "/data/etc/hosts", "/data/etc/hosts", true, false},
		{"trailing slash", "/data/etc/", "", false, true},
		{"dot segment aliases system path", "/etc/./hosts", "/etc/hosts", false, false},
		{"double slash aliases system path", "/etc//hosts", "/etc/hosts", false, false},
		{"parent segment aliases system path", "/etc/../etc/hosts", "/etc/hosts", false, false},
		{"custom path is cleaned", "/data/./etc//hosts", "/data/etc/hosts", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Install.Target = tt.target

			got, err := cfg.InstallTarget()
			if (err != nil) != tt.wantErr {
				t.Fatalf("InstallTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Path != tt.wantPath || got.RequiresSymlink != tt.wantSymlink {
				t.Errorf("InstallTarget() = %+v, want {%s %v}", got, tt.wantPath, tt.wantSymlink)
			}
		})
	}
}

func TestInstallTarget_UncleanSystemPath(t *testing.T) {
	cfg := Default()
	cfg.Install.SystemHostsPath = "/etc//hosts"
	cfg.Install.Target = "/etc/hosts"

	got, err := cfg.InstallTarget()
	if err != nil {
		t.Fatalf("InstallTarget() error = %v", err)
	}
	if got.Path != "/etc/hosts" || got.RequiresSymlink {
		t.Errorf("InstallTarget() = %+v, want {/etc/hosts false}", got)
	}
	if cfg.SystemHostsPath() != "/etc/hosts" {
		t.Errorf("SystemHostsPath() = %q, want /etc/hosts", cfg.SystemHostsPath())
	}
}

func TestSaveAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Install.Target = "/data/etc/hosts"
	cfg.Redirection.EnableIPv6 = true
	cfg.Logging.Level = "debug"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loaded.Install.Target != "/data/etc/hosts" {
		t.Errorf("Install.Target = %q, want %q", loaded.Install.Target, "/data/etc/hosts")
	}
	if !loaded.IPv6Enabled() {
		t.Error("IPv6Enabled() = false, want true")
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", loaded.Logging.Level, "debug")
	}
}

func TestLoadFromFile_CreatesDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "subdir", "config.yaml")

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Install.SystemHostsPath != DefaultSystemHostsPath {
		t.Errorf("Install.SystemHostsPath = %q, want %q", cfg.Install.SystemHostsPath, DefaultSystemHostsPath)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}
}

func TestLoadFromFile_PartialOverlay(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	partial := `
redirection:
  ipv4: "0.0.0.0"
`
	if err := os.WriteFile(configPath, []byte(partial), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	ipv4, ipv6 := cfg.RedirectionAddresses()
	if ipv4 != "0.0.0.0" {
		t.Errorf("ipv4 = %q, want %q", ipv4, "0.0.0.0")
	}
	if ipv6 != "::1" {
		t.Errorf("ipv6 = %q, want default %q", ipv6, "::1")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	if err := os.WriteFile(configPath, []byte("invalid: yaml: content:"), 0600); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("LoadFromFile() expected error for invalid YAML, got nil")
	}
}

func TestLoadFromFile_InvalidConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	invalidConfig := `
install:
  target: "/data/etc/"
`
	if err := os.WriteFile(configPath, []byte(invalidConfig), 0600); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("LoadFromFile() expected validation error, got nil")
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := Default()
	if cfg.DatabasePath() == "" {
		t.Error("DatabasePath() should fall back to the default database file")
	}

	cfg.Database.Path = "/tmp/rules.db"
	if cfg.DatabasePath() != "/tmp/rules.db" {
		t.Errorf("DatabasePath() = %q, want %q", cfg.DatabasePath(), "/tmp/rules.db")
	}
}
