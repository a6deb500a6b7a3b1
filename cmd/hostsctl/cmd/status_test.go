package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/munichmade/hostsctl/internal/hostsfile"
	"github.com/munichmade/hostsctl/internal/install"
	"github.com/munichmade/hostsctl/internal/lock"
)

func TestShortenPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("could not get home dir: %v", err)
	}

	t.Run("shortens home directory to tilde", func(t *testing.T) {
		input := home + "/.local/share/hostsctl/rules.db"
		expected := "~/.local/share/hostsctl/rules.db"

		result := shortenPath(input)
		if result != expected {
			t.Errorf("expected %q, got %q", expected, result)
		}
	})

	t.Run("shortens exact home directory", func(t *testing.T) {
		result := shortenPath(home)
		if result != "~" {
			t.Errorf("expected %q, got %q", "~", result)
		}
	})

	t.Run("leaves non-home paths unchanged", func(t *testing.T) {
		input := "/etc/hosts"

		result := shortenPath(input)
		if result != input {
			t.Errorf("expected %q, got %q", input, result)
		}
	})

	t.Run("handles empty path", func(t *testing.T) {
		result := shortenPath("")
		if result != "" {
			t.Errorf("expected %q, got %q", "", result)
		}
	})
}

func TestStateLabel(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   string
	}{
		{
			name:   "applied with timestamp",
			status: Status{State: hostsfile.StateApplied.String(), GeneratedAt: "2026-10-18 09:30:00"},
			want:   "applied (generated 2026-10-18 09:30:00)",
		},
		{
			name:   "applied without timestamp",
			status: Status{State: hostsfile.StateApplied.String()},
			want:   "applied",
		},
		{
			name:   "not applied",
			status: Status{State: hostsfile.StateNotApplied.String()},
			want:   "not applied",
		},
		{
			name:   "unknown",
			status: Status{State: hostsfile.StateUnknown.String(), Target: "/etc/hosts"},
			want:   "unknown (cannot read /etc/hosts)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stateLabel(tt.status); got != tt.want {
				t.Errorf("stateLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSymlinkLabel(t *testing.T) {
	if got := symlinkLabel(Status{}); got != "not needed" {
		t.Errorf("symlinkLabel(system target) = %q", got)
	}
	if got := symlinkLabel(Status{RequiresSymlink: true, SymlinkOK: true}); got != "ok" {
		t.Errorf("symlinkLabel(linked) = %q", got)
	}
	if got := symlinkLabel(Status{RequiresSymlink: true}); !strings.HasPrefix(got, "missing") {
		t.Errorf("symlinkLabel(unlinked) = %q", got)
	}
}

func TestFreeLabel(t *testing.T) {
	if got := freeLabel(&PartitionInfo{}); got != "unknown" {
		t.Errorf("freeLabel(0) = %q, want unknown", got)
	}
	if got := freeLabel(&PartitionInfo{FreeBytes: 2 * 1024 * 1024}); got != "2.0 MiB" {
		t.Errorf("freeLabel(2MiB) = %q, want 2.0 MiB", got)
	}
}

func TestFirstLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")
	content := hostsfile.GeneratedMarker + "2026-10-18 09:30:00\n127.0.0.1 localhost\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	line, err := firstLine(path)
	if err != nil {
		t.Fatalf("firstLine() error = %v", err)
	}
	if ts, ok := hostsfile.GeneratedAt(line); !ok || ts != "2026-10-18 09:30:00" {
		t.Errorf("GeneratedAt(firstLine()) = %q, %v", ts, ok)
	}

	if _, err := firstLine(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("firstLine() should fail for a missing file")
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42"); err != nil || id != 42 {
		t.Errorf("parseID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{install.ErrSymlinkMissing, "hostsctl symlink"},
		{fmt.Errorf("apply: %w", install.ErrNotEnoughSpace), "free some space"},
		{install.ErrBusy, "other hostsctl process"},
		{fmt.Errorf("%w (pid 1)", lock.ErrLocked), "other hostsctl process"},
	}
	for _, tt := range tests {
		if got := hint(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("hint(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}

	if got := hint(errors.New("boom")); got != "" {
		t.Errorf("hint(unrelated) = %q, want empty", got)
	}
}
