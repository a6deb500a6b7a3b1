// Package install applies generated hosts files to the system and reverts
// them. All writes outside the staging directory go through a privileged
// runner; the orchestrator itself never touches system paths directly.
package install

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/munichmade/hostsctl/internal/config"
	"github.com/munichmade/hostsctl/internal/hostsfile"
	"github.com/munichmade/hostsctl/internal/logging"
	"github.com/munichmade/hostsctl/internal/privilege"
)

// Staging file names inside the staging directory.
const (
	StagingFileName = "hosts"
	DefaultFileName = "hosts.default"
)

// SourceStore provides the sources recorded in the file header and their
// install timestamps.
type SourceStore interface {
	EnabledSources(ctx context.Context) ([]hostsfile.Source, error)
	MarkInstalled(ctx context.Context, now time.Time) error
	ClearInstalled(ctx context.Context) error
}

// EntryStore provides the enabled rules.
type EntryStore interface {
	EnabledBlocked(ctx context.Context) ([]string, error)
	EnabledAllowed(ctx context.Context) ([]string, error)
	EnabledRedirects(ctx context.Context) ([]hostsfile.Redirect, error)
}

// Settings is the configuration the orchestrator reads on every call.
type Settings interface {
	InstallTarget() (config.Target, error)
	SystemHostsPath() string
	RedirectionAddresses() (ipv4, ipv6 string)
	IPv6Enabled() bool
	FileOwner() string
	FileMode() string
	SELinuxContext() string
}

// Mounter reports free space and scopes writes to a read-write partition.
type Mounter interface {
	FreeSpace(path string) (uint64, error)
	WithReadWrite(path string, body func() error) error
}

// Deps wires an Orchestrator.
type Deps struct {
	Settings   Settings
	Sources    SourceStore
	Entries    EntryStore
	Runner     privilege.Runner
	Mounts     Mounter
	StagingDir string

	// Optional.
	Now    func() time.Time
	Logger *slog.Logger
}

// Orchestrator runs apply, revert and symlink creation. At most one of them
// runs at a time; concurrent callers get ErrBusy.
type Orchestrator struct {
	settings   Settings
	sources    SourceStore
	entries    EntryStore
	runner     privilege.Runner
	mounts     Mounter
	stagingDir string
	now        func() time.Time
	logger     *slog.Logger

	busy   atomic.Bool
	mu     sync.Mutex
	state  State
	status *Board
}

// New creates an orchestrator in StateIdle.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		settings:   d.Settings,
		sources:    d.Sources,
		entries:    d.Entries,
		runner:     d.Runner,
		mounts:     d.Mounts,
		stagingDir: d.StagingDir,
		now:        d.Now,
		logger:     d.Logger,
		state:      StateIdle,
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.logger == nil {
		o.logger = logging.Component("install")
	}
	o.status = NewBoard(Status{State: StateIdle, Message: statusMessage(StateIdle)})
	return o
}

// State returns the current in-process state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Status returns the status board.
func (o *Orchestrator) Status() *Board {
	return o.status
}

func statusMessage(s State) string {
	switch s {
	case StateApplying:
		return "applying hosts file"
	case StateApplied:
		return "hosts file applied"
	case StateReverting:
		return "reverting hosts file"
	default:
		return "hosts file not applied"
	}
}

func (o *Orchestrator) setState(s State, message string) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.status.Post(Status{State: s, Message: message})
}

// begin claims the orchestrator and moves to next. It returns the state to
// restore on failure.
func (o *Orchestrator) begin(next State) (State, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return 0, ErrBusy
	}
	prev := o.State()
	o.setState(next, statusMessage(next))
	return prev, nil
}

func (o *Orchestrator) end() {
	o.busy.Store(false)
}

// Apply generates the hosts file from the stores and installs it at the
// configured target.
func (o *Orchestrator) Apply(ctx context.Context) error {
	prev, err := o.begin(StateApplying)
	if err != nil {
		return err
	}
	defer o.end()

	if err := o.apply(ctx); err != nil {
		o.logger.Error("apply failed", "error", err)
		o.setState(prev, KindOf(err).Message())
		return err
	}
	o.setState(StateApplied, statusMessage(StateApplied))
	return nil
}

func (o *Orchestrator) apply(ctx context.Context) error {
	target, err := o.settings.InstallTarget()
	if err != nil {
		return newError(KindCopyFailed, err)
	}
	links := o.symlinks()
	if target.RequiresSymlink && !links.IsCorrect(target.Path) {
		return newError(KindSymlinkMissing,
			fmt.Errorf("%s does not resolve to %s", o.settings.SystemHostsPath(), target.Path))
	}

	staged, err := o.stage(ctx)
	if err != nil {
		return newError(KindStagingWriteFailed, err)
	}

	if err := o.install(staged, target); err != nil {
		if errors.Is(err, errNoSpace) {
			return newError(KindNotEnoughSpace, err)
		}
		return newError(KindCopyFailed, err)
	}

	if !links.IsCorrect(target.Path) {
		return newError(KindApplyVerificationFailed,
			fmt.Errorf("%s does not resolve to %s after copy", o.settings.SystemHostsPath(), target.Path))
	}

	if err := o.sources.MarkInstalled(ctx, o.now()); err != nil {
		o.logger.Warn("failed to record install time", "error", err)
	}
	if err := os.Remove(staged); err != nil && !errors.Is(err, fs.ErrNotExist) {
		o.logger.Warn("failed to remove staging file", "path", staged, "error", err)
	}
	o.logger.Info("hosts file applied", "target", target.Path)
	return nil
}

// stage renders the hosts file into the staging directory and returns its path.
func (o *Orchestrator) stage(ctx context.Context) (string, error) {
	in, err := o.input(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(o.stagingDir, StagingFileName)
	if err := os.MkdirAll(o.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("remove previous staging file: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	if err := hostsfile.Generate(ctx, f, in); err != nil {
		f.Close()
		return "", fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write staging file: %w", err)
	}

	o.logger.Debug("staged hosts file", "path", path, "blocked", len(in.Blocked), "redirects", len(in.Redirects))
	return path, nil
}

// input collects everything the generated file is derived from.
func (o *Orchestrator) input(ctx context.Context) (hostsfile.Input, error) {
	var (
		in  hostsfile.Input
		err error
	)
	if in.Sources, err = o.sources.EnabledSources(ctx); err != nil {
		return in, err
	}
	if in.Blocked, err = o.entries.EnabledBlocked(ctx); err != nil {
		return in, err
	}
	if in.Allowed, err = o.entries.EnabledAllowed(ctx); err != nil {
		return in, err
	}
	if in.Redirects, err = o.entries.EnabledRedirects(ctx); err != nil {
		return in, err
	}
	in.Options.RedirectIPv4, in.Options.RedirectIPv6 = o.settings.RedirectionAddresses()
	in.Options.EnableIPv6 = o.settings.IPv6Enabled()
	in.GeneratedAt = o.now()
	return in, nil
}

// Preview renders the hosts file Apply would install, without touching the
// staging directory or the system.
func (o *Orchestrator) Preview(ctx context.Context) ([]byte, error) {
	in, err := o.input(ctx)
	if err != nil {
		return nil, err
	}
	return hostsfile.Render(ctx, in)
}

// Revert installs the default hosts file and clears install timestamps.
func (o *Orchestrator) Revert(ctx context.Context) error {
	if _, err := o.begin(StateReverting); err != nil {
		return err
	}
	defer o.end()

	if err := o.revert(ctx); err != nil {
		o.logger.Error("revert failed", "error", err)
		o.setState(StateApplied, KindRevertFailed.Message())
		return newError(KindRevertFailed, err)
	}
	o.setState(StateIdle, statusMessage(StateIdle))
	return nil
}

func (o *Orchestrator) revert(ctx context.Context) error {
	target, err := o.settings.InstallTarget()
	if err != nil {
		return err
	}

	path := filepath.Join(o.stagingDir, DefaultFileName)
	if err := os.MkdirAll(o.stagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	if err := os.WriteFile(path, hostsfile.DefaultContent(), 0o644); err != nil {
		return fmt.Errorf("write default hosts file: %w", err)
	}

	copyErr := o.install(path, target)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		if copyErr != nil {
			o.logger.Warn("failed to remove default hosts file", "path", path, "error", err)
		} else {
			return fmt.Errorf("remove default hosts file: %w", err)
		}
	}
	if copyErr != nil {
		return copyErr
	}

	if err := o.sources.ClearInstalled(ctx); err != nil {
		return err
	}
	o.logger.Info("hosts file reverted", "target", target.Path)
	return nil
}

// Probe reads the first line of the live file at the configured target.
// Targets the current user cannot read are read through the runner.
func (o *Orchestrator) Probe() hostsfile.State {
	target, err := o.settings.InstallTarget()
	if err != nil {
		o.logger.Warn("cannot probe install state", "error", err)
		return hostsfile.StateUnknown
	}

	f, err := os.Open(target.Path)
	if err == nil {
		defer f.Close()
		return hostsfile.ParseState(f)
	}
	if !errors.Is(err, fs.ErrPermission) {
		o.logger.Debug("cannot open hosts file", "path", target.Path, "error", err)
		return hostsfile.StateUnknown
	}

	res := o.runner.Run("head -n 1 " + privilege.Quote(target.Path))
	if !res.Success {
		o.logger.Debug("cannot read hosts file", "path", target.Path, "stderr", res.ErrorText())
		return hostsfile.StateUnknown
	}
	return hostsfile.ParseState(strings.NewReader(strings.Join(res.Stdout, "\n")))
}

// CheckApplied probes in the background. The channel receives one value and
// is closed.
func (o *Orchestrator) CheckApplied() <-chan bool {
	ch := make(chan bool, 1)
	go func() {
		defer close(ch)
		ch <- o.Probe() == hostsfile.StateApplied
	}()
	return ch
}

// IsSymlinkCorrect reports whether the system hosts path resolves to the
// configured install target.
func (o *Orchestrator) IsSymlinkCorrect() (bool, error) {
	target, err := o.settings.InstallTarget()
	if err != nil {
		return false, err
	}
	return o.symlinks().IsCorrect(target.Path), nil
}

// CreateSymlink links the system hosts path to a custom install target. It
// does nothing when the target is the system path itself.
func (o *Orchestrator) CreateSymlink(ctx context.Context) error {
	if !o.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.end()

	target, err := o.settings.InstallTarget()
	if err != nil {
		return newError(KindSymlinkMissing, err)
	}
	if !target.RequiresSymlink {
		o.logger.Info("install target is the system hosts file, no link needed", "path", target.Path)
		return nil
	}
	if !o.symlinks().Create(target.Path) {
		return newError(KindSymlinkMissing,
			fmt.Errorf("could not link %s to %s", o.settings.SystemHostsPath(), target.Path))
	}
	return nil
}
