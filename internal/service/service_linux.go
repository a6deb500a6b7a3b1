//go:build linux

package service

import (
	"fmt"
	"os"
	"strings"

	"github.com/munichmade/hostsctl/internal/privilege"
)

const (
	serviceName    = "hostsctl"
	defaultUnitDir = "/etc/systemd/system"
	unitFileName   = "hostsctl.service"
)

func (m *Manager) install(cfg Config) error {
	tmp, err := os.CreateTemp(m.tmpDir, "hostsctl-unit-*")
	if err != nil {
		return fmt.Errorf("failed to stage unit file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, werr := tmp.WriteString(GenerateUnit(cfg))
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("failed to stage unit file: %w", werr)
	}

	res := m.runner.Run(
		"mkdir -p "+privilege.Quote(m.unitDir),
		"cp "+privilege.Quote(tmp.Name())+" "+privilege.Quote(m.UnitPath()),
		"chmod 644 "+privilege.Quote(m.UnitPath()),
		"systemctl daemon-reload",
		"systemctl enable "+serviceName,
	)
	if !res.Success {
		return fmt.Errorf("failed to install service: %w", res.Err())
	}
	return nil
}

func (m *Manager) uninstall() error {
	// Stop and disable first; either may fail if it was never started
	m.runner.Run("systemctl stop " + serviceName)
	m.runner.Run("systemctl disable " + serviceName)

	res := m.runner.Run(
		"rm -f "+privilege.Quote(m.UnitPath()),
		"systemctl daemon-reload",
	)
	if !res.Success {
		return fmt.Errorf("failed to remove service: %w", res.Err())
	}
	return nil
}

func (m *Manager) start() error {
	if res := m.runner.Run("systemctl start " + serviceName); !res.Success {
		return fmt.Errorf("failed to start service: %w", res.Err())
	}
	return nil
}

func (m *Manager) stop() error {
	if res := m.runner.Run("systemctl stop " + serviceName); !res.Success {
		return fmt.Errorf("failed to stop service: %w", res.Err())
	}
	return nil
}

// GenerateUnit renders the systemd unit running 'hostsctl watch'.
func GenerateUnit(cfg Config) string {
	args := []string{systemdQuote(cfg.BinaryPath)}
	if cfg.ConfigPath != "" {
		args = append(args, "--config", systemdQuote(cfg.ConfigPath))
	}
	args = append(args, "watch")
	if cfg.Interval > 0 {
		args = append(args, "--interval", cfg.Interval.String())
	}

	return fmt.Sprintf(`[Unit]
Description=Keep the hosts file in sync with hostsctl rules
After=local-fs.target

[Service]
Type=simple
ExecStart=%s
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`, strings.Join(args, " "))
}

// systemdQuote escapes s for an ExecStart line. systemd expands % specifiers
// and $ variables there, so both are doubled; s is quoted when it contains
// whitespace, quotes or backslashes.
func systemdQuote(s string) string {
	s = strings.NewReplacer("%", "%%", "$", "$$").Replace(s)
	if !strings.ContainsAny(s, " \t\"\\") {
		return s
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
