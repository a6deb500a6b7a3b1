// Package lock serializes hostsctl invocations that modify the system
// through an advisory file lock, and turns interrupts into context
// cancellation.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/munichmade/hostsctl/internal/paths"
)

// Common errors
var (
	ErrLocked  = errors.New("another hostsctl process is modifying the hosts file")
	ErrNotHeld = errors.New("lock is not held")
)

// Lock is an exclusive flock held for the duration of an apply, revert or
// symlink operation. The kernel drops it when the holder exits, so a lock
// file left on disk never blocks anyone. The file records the holder's PID
// for diagnostics only.
type Lock struct {
	path     string
	file     *os.File
	writable bool
}

// New creates a Lock on the system-wide lock file shared by every user.
func New() *Lock {
	return &Lock{path: paths.LockFile()}
}

// NewWithFile creates a Lock with a custom lock file path.
func NewWithFile(path string) *Lock {
	return &Lock{path: path}
}

// Acquire takes the lock without waiting. It returns ErrLocked if another
// process, or another Lock in this process, holds it.
func (l *Lock) Acquire() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, writable, err := openLockFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			if pid, perr := l.Holder(); perr == nil {
				return fmt.Errorf("%w (pid %d)", ErrLocked, pid)
			}
			return ErrLocked
		}
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}

	// A lock file created by another user can only be opened read-only
	if writable {
		if err := f.Truncate(0); err == nil {
			f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
		}
	}

	l.file = f
	l.writable = writable
	return nil
}

// openLockFile opens path without following a symlink, read-write when
// permitted and read-only otherwise. A read-only descriptor can still hold
// the lock.
func openLockFile(path string) (*os.File, bool, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0644)
	if err == nil {
		return f, true, nil
	}
	if !errors.Is(err, fs.ErrPermission) {
		return nil, false, err
	}
	f, err = os.OpenFile(path, os.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, false, err
	}
	return f, false, nil
}

// Release drops the lock. The file is left in place: removing it would let a
// process that already opened it lock a file nobody else can see.
func (l *Lock) Release() error {
	if l.file == nil {
		return ErrNotHeld
	}
	f := l.file
	l.file = nil

	if l.writable {
		f.Truncate(0)
	}
	err := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Holder returns the PID recorded in the lock file.
func (l *Lock) Holder() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in lock file: %w", err)
	}
	return pid, nil
}

// IsLocked reports whether any process holds the lock.
func (l *Lock) IsLocked() bool {
	f, err := os.OpenFile(l.path, os.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return false
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB); err != nil {
		return errors.Is(err, unix.EWOULDBLOCK)
	}
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return false
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}
