package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// skipIfRoot skips tests that depend on per-user path resolution.
func skipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("running as root uses system-wide paths")
	}
}

func TestDefault(t *testing.T) {
	Reset()
	defer Reset()

	p := Default()

	fields := map[string]string{
		"ConfigDir":    p.ConfigDir,
		"DataDir":      p.DataDir,
		"RuntimeDir":   p.RuntimeDir,
		"StagingDir":   p.StagingDir,
		"ConfigFile":   p.ConfigFile,
		"DatabaseFile": p.DatabaseFile,
		"LockFile":     p.LockFile,
		"LogFile":      p.LogFile,
	}
	for name, value := range fields {
		if value == "" {
			t.Errorf("%s is empty", name)
		}
		if !strings.Contains(value, "hostsctl") {
			t.Errorf("%s %q does not contain 'hostsctl'", name, value)
		}
	}
}

func TestDefaultCaching(t *testing.T) {
	Reset()
	defer Reset()

	if Default() != Default() {
		t.Error("Default() should return cached instance")
	}
}

func TestXDGConfigHome(t *testing.T) {
	skipIfRoot(t)
	Reset()
	defer Reset()

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	p := Default()

	expected := filepath.Join(tmpDir, "hostsctl")
	if p.ConfigDir != expected {
		t.Errorf("ConfigDir = %q, want %q", p.ConfigDir, expected)
	}
	if p.ConfigFile != filepath.Join(expected, "config.yaml") {
		t.Errorf("ConfigFile = %q, want it under %q", p.ConfigFile, expected)
	}
}

func TestXDGDataHome(t *testing.T) {
	skipIfRoot(t)
	Reset()
	defer Reset()

	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)

	p := Default()

	expected := filepath.Join(tmpDir, "hostsctl")
	if p.DataDir != expected {
		t.Errorf("DataDir = %q, want %q", p.DataDir, expected)
	}
	if p.StagingDir != filepath.Join(expected, "staging") {
		t.Errorf("StagingDir = %q, want %q", p.StagingDir, filepath.Join(expected, "staging"))
	}
	if p.DatabaseFile != filepath.Join(expected, "rules.db") {
		t.Errorf("DatabaseFile = %q, want %q", p.DatabaseFile, filepath.Join(expected, "rules.db"))
	}
}

func TestXDGRuntimeDir(t *testing.T) {
	skipIfRoot(t)
	Reset()
	defer Reset()

	tmpDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", tmpDir)

	p := Default()

	expected := filepath.Join(tmpDir, "hostsctl")
	if p.RuntimeDir != expected {
		t.Errorf("RuntimeDir = %q, want %q", p.RuntimeDir, expected)
	}
	if strings.HasPrefix(p.LockFile, tmpDir) {
		t.Errorf("LockFile = %q, must not be per-user", p.LockFile)
	}
}

func TestLockFileSharedByRootAndUsers(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(home, "run"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))

	asRoot := resolveFor(true, home)
	asUser := resolveFor(false, home)

	if asRoot.LockFile != asUser.LockFile {
		t.Errorf("LockFile differs: root %q, user %q", asRoot.LockFile, asUser.LockFile)
	}
	if strings.HasPrefix(asUser.LockFile, home) {
		t.Errorf("LockFile = %q, must not live in the home directory", asUser.LockFile)
	}
	if filepath.Base(asUser.LockFile) != "hostsctl.lock" {
		t.Errorf("LockFile = %q, want hostsctl.lock", asUser.LockFile)
	}
}

func TestResolveLockFile(t *testing.T) {
	orig := lockDirs
	defer func() { lockDirs = orig }()

	shared := t.TempDir()
	lockDirs = []string{filepath.Join(shared, "missing"), shared}
	if got, want := resolveLockFile(), filepath.Join(shared, "hostsctl.lock"); got != want {
		t.Errorf("resolveLockFile() = %q, want %q", got, want)
	}

	lockDirs = []string{filepath.Join(shared, "missing")}
	if got, want := resolveLockFile(), filepath.Join(os.TempDir(), "hostsctl.lock"); got != want {
		t.Errorf("resolveLockFile() = %q, want %q", got, want)
	}
}

func TestDefaultPaths_NoXDG(t *testing.T) {
	skipIfRoot(t)
	Reset()
	defer Reset()

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_RUNTIME_DIR", "")

	p := Default()
	home := os.Getenv("HOME")

	expectedConfig := filepath.Join(home, ".config", "hostsctl")
	if p.ConfigDir != expectedConfig {
		t.Errorf("ConfigDir = %q, want %q", p.ConfigDir, expectedConfig)
	}

	expectedData := filepath.Join(home, ".local", "share", "hostsctl")
	if runtime.GOOS == "darwin" {
		expectedData = filepath.Join(home, "Library", "Application Support", "hostsctl")
	}
	if p.DataDir != expectedData {
		t.Errorf("DataDir = %q, want %q", p.DataDir, expectedData)
	}

	if p.RuntimeDir != p.DataDir {
		t.Errorf("RuntimeDir = %q, want %q (fallback to DataDir)", p.RuntimeDir, p.DataDir)
	}
}

func TestEnsureDirectories(t *testing.T) {
	skipIfRoot(t)
	Reset()
	defer Reset()

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "data"))
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(tmpDir, "runtime"))

	p := Default()

	if _, err := os.Stat(p.ConfigDir); !os.IsNotExist(err) {
		t.Error("ConfigDir should not exist before EnsureDirectories")
	}

	if err := p.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}

	for _, dir := range []string{p.ConfigDir, p.DataDir, p.RuntimeDir, p.StagingDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("stat %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
		if perm := info.Mode().Perm(); perm != 0700 {
			t.Errorf("%s permissions = %o, want %o", dir, perm, 0700)
		}
	}
}

func TestConvenienceFunctions(t *testing.T) {
	Reset()
	defer Reset()

	p := Default()

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"ConfigDir", ConfigDir(), p.ConfigDir},
		{"DataDir", DataDir(), p.DataDir},
		{"RuntimeDir", RuntimeDir(), p.RuntimeDir},
		{"StagingDir", StagingDir(), p.StagingDir},
		{"ConfigFile", ConfigFile(), p.ConfigFile},
		{"DatabaseFile", DatabaseFile(), p.DatabaseFile},
		{"LockFile", LockFile(), p.LockFile},
		{"LogFile", LogFile(), p.LogFile},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s() = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestReset(t *testing.T) {
	skipIfRoot(t)
	Reset()
	defer Reset()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	p1 := Default()

	Reset()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	p2 := Default()

	if p1.ConfigDir == p2.ConfigDir {
		t.Error("Reset() should allow paths to be recalculated")
	}
}
