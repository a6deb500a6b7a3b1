//go:build linux

package service

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/munichmade/hostsctl/internal/privilege"
)

// recordingRunner records batches and copies staged files so the unit
// content can be inspected after the temp file is removed.
type recordingRunner struct {
	batches [][]string
	copied  string
	fail    bool
}

func (r *recordingRunner) Run(commands ...string) privilege.Result {
	r.batches = append(r.batches, commands)
	for _, c := range commands {
		if strings.HasPrefix(c, "cp ") {
			src := strings.Trim(strings.Fields(c)[1], "'")
			data, _ := os.ReadFile(src)
			r.copied = string(data)
		}
	}
	if r.fail {
		return privilege.Result{Stderr: []string{"Access denied"}}
	}
	return privilege.Result{Success: true}
}

func TestGenerateUnit(t *testing.T) {
	unit := GenerateUnit(Config{
		BinaryPath: "/usr/local/bin/hostsctl",
		ConfigPath: "/home/me/.config/hostsctl/config.yaml",
		Interval:   5 * time.Second,
	})

	t.Run("runs watch with config", func(t *testing.T) {
		want := "ExecStart=/usr/local/bin/hostsctl --config /home/me/.config/hostsctl/config.yaml watch --interval 5s"
		if !strings.Contains(unit, want) {
			t.Errorf("unit should contain %q, got:\n%s", want, unit)
		}
	})

	t.Run("is wanted by multi-user target", func(t *testing.T) {
		if !strings.Contains(unit, "WantedBy=multi-user.target") {
			t.Error("unit should be wanted by multi-user.target")
		}
	})

	t.Run("escapes specifiers in paths", func(t *testing.T) {
		unit := GenerateUnit(Config{BinaryPath: "/usr/bin/hostsctl", ConfigPath: "/home/%u/config.yaml"})
		if !strings.Contains(unit, "--config /home/%%u/config.yaml watch") {
			t.Errorf("unit should escape %%u, got:\n%s", unit)
		}
	})

	t.Run("omits optional flags", func(t *testing.T) {
		minimal := GenerateUnit(Config{BinaryPath: "/usr/bin/hostsctl"})
		if !strings.Contains(minimal, "ExecStart=/usr/bin/hostsctl watch\n") {
			t.Errorf("unexpected ExecStart in:\n%s", minimal)
		}
	})
}

func TestSystemdQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/usr/bin/hostsctl", "/usr/bin/hostsctl"},
		{"/opt/my tools/hostsctl", `"/opt/my tools/hostsctl"`},
		{`/a "b"`, `"/a \"b\""`},
		{"/home/me/100%/config.yaml", "/home/me/100%%/config.yaml"},
		{"/srv/$HOME/hostsctl", "/srv/$$HOME/hostsctl"},
		{"/opt/50% off/hostsctl", `"/opt/50%% off/hostsctl"`},
	}
	for _, tt := range tests {
		if got := systemdQuote(tt.in); got != tt.want {
			t.Errorf("systemdQuote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInstall(t *testing.T) {
	unitDir := t.TempDir()
	runner := &recordingRunner{}
	m := NewWithDirs(runner, unitDir, t.TempDir())

	if err := m.Install(Config{BinaryPath: "/usr/bin/hostsctl"}); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if len(runner.batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(runner.batches))
	}
	batch := runner.batches[0]
	if last := batch[len(batch)-1]; last != "systemctl enable hostsctl" {
		t.Errorf("last command = %q, want systemctl enable hostsctl", last)
	}
	if !strings.Contains(runner.copied, "ExecStart=/usr/bin/hostsctl watch") {
		t.Errorf("staged unit content unexpected:\n%s", runner.copied)
	}
	if m.UnitPath() != unitDir+"/hostsctl.service" {
		t.Errorf("UnitPath() = %q", m.UnitPath())
	}
}

func TestInstall_Failure(t *testing.T) {
	m := NewWithDirs(&recordingRunner{fail: true}, t.TempDir(), t.TempDir())

	err := m.Install(Config{BinaryPath: "/usr/bin/hostsctl"})
	if err == nil || !strings.Contains(err.Error(), "Access denied") {
		t.Errorf("Install() error = %v, want stderr in error", err)
	}
}

func TestUninstall(t *testing.T) {
	runner := &recordingRunner{}
	m := NewWithDirs(runner, t.TempDir(), t.TempDir())

	if err := m.Uninstall(); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if len(runner.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(runner.batches))
	}
	if runner.batches[0][0] != "systemctl stop hostsctl" {
		t.Errorf("first command = %q, want stop", runner.batches[0][0])
	}
}

func TestIsInstalled(t *testing.T) {
	unitDir := t.TempDir()
	m := NewWithDirs(&recordingRunner{}, unitDir, t.TempDir())

	if m.IsInstalled() {
		t.Error("IsInstalled() = true before install")
	}
	if err := os.WriteFile(m.UnitPath(), []byte("[Unit]\n"), 0644); err != nil {
		t.Fatalf("failed to write unit: %v", err)
	}
	if !m.IsInstalled() {
		t.Error("IsInstalled() = false with unit present")
	}
}
