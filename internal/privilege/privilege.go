// Package privilege runs commands with root privileges.
//
// Runner is the only way hostsctl touches privileged locations: every
// remount, copy, ownership change and symlink goes through it as a batch of
// shell commands executed in a single elevated session.
package privilege

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/munichmade/hostsctl/internal/config"
	"github.com/munichmade/hostsctl/internal/logging"
)

// Result is the outcome of one batch.
type Result struct {
	Success bool
	Stdout  []string
	Stderr  []string
}

// ErrorText joins stderr into a single diagnostic string.
func (r Result) ErrorText() string {
	return strings.Join(r.Stderr, "\n")
}

// Err returns nil on success, otherwise an error carrying the captured stderr.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if text := r.ErrorText(); text != "" {
		return errors.New(text)
	}
	return errors.New("command failed without output")
}

// Runner executes commands as one privileged unit. The batch succeeds only if
// every command exits zero.
type Runner interface {
	Run(commands ...string) Result
}

// ShellRunner runs batches through /bin/sh, elevated with sudo or su.
// Execution stops at the first failing command.
type ShellRunner struct {
	method string
	shell  string
	logger *slog.Logger
}

// NewShellRunner creates a runner for the given elevation method
// (config.MethodAuto, MethodSudo, MethodSu or MethodNone).
func NewShellRunner(method string) (*ShellRunner, error) {
	switch method {
	case config.MethodAuto:
		if IsRoot() {
			method = config.MethodNone
		} else {
			method = config.MethodSudo
		}
	case config.MethodSudo, config.MethodSu, config.MethodNone:
	default:
		return nil, fmt.Errorf("unknown privilege method %q", method)
	}

	return &ShellRunner{
		method: method,
		shell:  "/bin/sh",
		logger: logging.Component("privilege"),
	}, nil
}

// Method returns the resolved elevation method.
func (r *ShellRunner) Method() string {
	return r.method
}

// Run executes commands in a single shell session.
func (r *ShellRunner) Run(commands ...string) Result {
	if len(commands) == 0 {
		return Result{Success: true}
	}

	script := "set -e\n" + strings.Join(commands, "\n")
	cmd := r.command(script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// sudo and su prompt on the controlling terminal
	cmd.Stdin = os.Stdin

	r.logger.Debug("running privileged batch", "method", r.method, "commands", commands)

	err := cmd.Run()
	res := Result{
		Success: err == nil,
		Stdout:  splitLines(stdout.String()),
		Stderr:  splitLines(stderr.String()),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// The shell itself could not be started
			res.Stderr = append(res.Stderr, err.Error())
		}
		r.logger.Debug("privileged batch failed", "error", err, "stderr", res.ErrorText())
	}
	return res
}

func (r *ShellRunner) command(script string) *exec.Cmd {
	switch r.method {
	case config.MethodSudo:
		return exec.Command("sudo", r.shell, "-c", script)
	case config.MethodSu:
		return exec.Command("su", "-c", script)
	default:
		return exec.Command(r.shell, "-c", script)
	}
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Quote returns s as a single-quoted shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// IsRoot returns true if the current process is running as root.
func IsRoot() bool {
	return os.Geteuid() == 0
}
