package install

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/munichmade/hostsctl/internal/privilege"
)

// Symlinks manages the link from the system hosts path to a custom target.
type Symlinks struct {
	runner     privilege.Runner
	mounts     Mounter
	systemPath string
	owner      string
	mode       string
	secContext string
	logger     *slog.Logger
}

func (o *Orchestrator) symlinks() *Symlinks {
	return &Symlinks{
		runner:     o.runner,
		mounts:     o.mounts,
		systemPath: o.settings.SystemHostsPath(),
		owner:      o.settings.FileOwner(),
		mode:       o.settings.FileMode(),
		secContext: o.settings.SELinuxContext(),
		logger:     o.logger,
	}
}

// Create replaces the system hosts path with a symlink to target. The
// partition holding the system path is writable only for the duration of the
// batch. Failures are logged and reported as false.
func (s *Symlinks) Create(target string) bool {
	if s.aliasesSystemPath(target) {
		s.logger.Error("refusing to link the system hosts file to itself", "link", s.systemPath, "target", target)
		return false
	}

	sys := privilege.Quote(s.systemPath)
	tgt := privilege.Quote(target)

	commands := []string{
		"mkdir -p " + privilege.Quote(filepath.Dir(target)),
		"touch " + tgt,
		"rm -f " + sys,
		"ln -s " + tgt + " " + sys,
	}
	if s.secContext != "" {
		commands = append(commands, "chcon "+privilege.Quote(s.secContext)+" "+tgt)
	}
	commands = append(commands,
		"chown "+privilege.Quote(s.owner)+" "+tgt,
		"chmod "+privilege.Quote(s.mode)+" "+tgt,
	)

	err := s.mounts.WithReadWrite(s.systemPath, func() error {
		return s.runner.Run(commands...).Err()
	})
	if err != nil {
		s.logger.Error("failed to create symbolic link", "link", s.systemPath, "target", target, "error", err)
		return false
	}
	s.logger.Info("created symbolic link", "link", s.systemPath, "target", target)
	return true
}

// aliasesSystemPath reports whether target names the system hosts path
// itself, either lexically or through a symlinked directory.
func (s *Symlinks) aliasesSystemPath(target string) bool {
	if filepath.Clean(target) == filepath.Clean(s.systemPath) {
		return true
	}
	if filepath.Base(target) != filepath.Base(s.systemPath) {
		return false
	}
	targetDir, err := filepath.EvalSymlinks(filepath.Dir(target))
	if err != nil {
		return false
	}
	systemDir, err := filepath.EvalSymlinks(filepath.Dir(s.systemPath))
	return err == nil && targetDir == systemDir
}

// IsCorrect reports whether the system hosts path resolves exactly to target.
// A plain file at the system path resolves to itself. The link is resolved
// locally; the runner is used only when the current user may not traverse it.
func (s *Symlinks) IsCorrect(target string) bool {
	resolved, err := filepath.EvalSymlinks(s.systemPath)
	if errors.Is(err, fs.ErrPermission) {
		resolved, err = s.readlink()
	}
	if err != nil {
		s.logger.Debug("hosts link does not resolve", "link", s.systemPath, "error", err)
		return false
	}
	s.logger.Debug("resolved hosts link", "link", s.systemPath, "resolved", resolved, "target", target)
	return resolved == target
}

func (s *Symlinks) readlink() (string, error) {
	res := s.runner.Run("readlink -e " + privilege.Quote(s.systemPath))
	if !res.Success {
		return "", res.Err()
	}
	if len(res.Stdout) == 0 {
		return "", fmt.Errorf("readlink printed nothing for %s", s.systemPath)
	}
	return res.Stdout[0], nil
}
