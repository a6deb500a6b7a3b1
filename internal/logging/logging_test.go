package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"Info", LevelInfo},
		{"warn", LevelWarn},
		{"WARNING", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"unknown", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetup(t *testing.T) {
	var buf bytes.Buffer
	Setup(LevelInfo, &buf)

	Info("test message", "key", "value")

	output := buf.String()
	for _, want := range []string{"INFO", "test message", "key=value"} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q, got %q", want, output)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		log       func(string, ...any)
		shouldLog bool
	}{
		{"debug at info level", LevelInfo, Debug, false},
		{"info at info level", LevelInfo, Info, true},
		{"info at warn level", LevelWarn, Info, false},
		{"warn at warn level", LevelWarn, Warn, true},
		{"warn at error level", LevelError, Warn, false},
		{"error at error level", LevelError, Error, true},
		{"debug at debug level", LevelDebug, Debug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(tt.level, &buf)

			tt.log("msg")

			if hasOutput := buf.Len() > 0; hasOutput != tt.shouldLog {
				t.Errorf("expected log output: %v, got output: %v (buf: %q)", tt.shouldLog, hasOutput, buf.String())
			}
		})
	}
}

func TestSetupFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")

	var console bytes.Buffer
	closer, err := SetupFile(LevelInfo, logPath, &console)
	if err != nil {
		t.Fatalf("SetupFile() error = %v", err)
	}
	defer closer.Close()

	Info("file test message")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "file test message") {
		t.Errorf("log file should contain message, got %q", string(content))
	}
	if !strings.Contains(console.String(), "file test message") {
		t.Errorf("console should contain message, got %q", console.String())
	}
}

func TestSetupFile_InvalidPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := SetupFile(LevelInfo, filepath.Join(blocker, "test.log"), nil); err == nil {
		t.Error("SetupFile should return error when the parent is a file")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Setup(LevelInfo, &buf)

	Component("install").Info("applying")

	if !strings.Contains(buf.String(), "component=install") {
		t.Errorf("output should carry component attribute, got %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	if Discard() == nil {
		t.Fatal("Discard() should not return nil")
	}
	Discard().Error("dropped")
}
