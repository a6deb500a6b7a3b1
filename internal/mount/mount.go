// Package mount inspects and toggles the mount mode of the partition that owns
// a path, so privileged writes can land on normally read-only filesystems.
package mount

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/munichmade/hostsctl/internal/logging"
	"github.com/munichmade/hostsctl/internal/privilege"
)

// Mode is a partition mount mode.
type Mode string

const (
	ReadOnly  Mode = "ro"
	ReadWrite Mode = "rw"
)

// ErrNoPartition is returned when no mounted partition contains a path.
var ErrNoPartition = errors.New("no partition contains path")

// RemountError reports a failed remount along with the captured stderr.
type RemountError struct {
	Mountpoint string
	Mode       Mode
	Err        error
}

func (e *RemountError) Error() string {
	return fmt.Sprintf("remount %s as %s: %v", e.Mountpoint, e.Mode, e.Err)
}

func (e *RemountError) Unwrap() error {
	return e.Err
}

// PartitionLister lists mounted partitions.
type PartitionLister func() ([]disk.PartitionStat, error)

// UsageReader reports filesystem usage for a mountpoint.
type UsageReader func(path string) (*disk.UsageStat, error)

// Controller resolves partitions and remounts them through a privileged runner.
type Controller struct {
	runner     privilege.Runner
	partitions PartitionLister
	usage      UsageReader
	logger     *slog.Logger
}

// New creates a Controller backed by the live mount table.
func New(runner privilege.Runner) *Controller {
	return NewWithProbes(runner, func() ([]disk.PartitionStat, error) {
		return disk.Partitions(true)
	}, disk.Usage)
}

// NewWithProbes creates a Controller with custom mount table and usage probes.
func NewWithProbes(runner privilege.Runner, partitions PartitionLister, usage UsageReader) *Controller {
	return &Controller{
		runner:     runner,
		partitions: partitions,
		usage:      usage,
		logger:     logging.Component("mount"),
	}
}

// Partition returns the partition with the longest mountpoint containing path.
// The path itself does not need to exist.
func (c *Controller) Partition(path string) (disk.PartitionStat, error) {
	parts, err := c.partitions()
	if err != nil {
		return disk.PartitionStat{}, fmt.Errorf("list partitions: %w", err)
	}

	path = filepath.Clean(path)
	var best disk.PartitionStat
	found := false
	for _, p := range parts {
		if !contains(p.Mountpoint, path) {
			continue
		}
		if !found || len(p.Mountpoint) >= len(best.Mountpoint) {
			// Later entries with the same mountpoint shadow earlier ones
			best = p
			found = true
		}
	}
	if !found {
		return disk.PartitionStat{}, fmt.Errorf("%w: %s", ErrNoPartition, path)
	}
	return best, nil
}

func contains(mountpoint, path string) bool {
	mountpoint = filepath.Clean(mountpoint)
	if mountpoint == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == mountpoint || strings.HasPrefix(path, mountpoint+"/")
}

// Writable reports whether the partition owning path is mounted read-write.
func (c *Controller) Writable(path string) (bool, error) {
	p, err := c.Partition(path)
	if err != nil {
		return false, err
	}
	return !slices.Contains(p.Opts, string(ReadOnly)), nil
}

// FreeSpace returns the free bytes on the partition owning path.
// Some virtual filesystems report zero; callers decide how to treat that.
func (c *Controller) FreeSpace(path string) (uint64, error) {
	p, err := c.Partition(path)
	if err != nil {
		return 0, err
	}
	u, err := c.usage(p.Mountpoint)
	if err != nil {
		return 0, fmt.Errorf("read usage of %s: %w", p.Mountpoint, err)
	}
	return u.Free, nil
}

// Remount switches the partition owning path to mode.
func (c *Controller) Remount(path string, mode Mode) error {
	p, err := c.Partition(path)
	if err != nil {
		return &RemountError{Mountpoint: path, Mode: mode, Err: err}
	}

	c.logger.Info("remounting partition", "mountpoint", p.Mountpoint, "mode", mode)
	res := c.runner.Run(fmt.Sprintf("mount -o remount,%s %s", mode, privilege.Quote(p.Mountpoint)))
	if !res.Success {
		return &RemountError{Mountpoint: p.Mountpoint, Mode: mode, Err: res.Err()}
	}
	return nil
}

// WithReadWrite runs body with the partition owning path mounted read-write.
// A partition that was read-only is remounted read-only afterwards, even when
// body fails; a failure to restore is logged and never replaces body's error.
func (c *Controller) WithReadWrite(path string, body func() error) error {
	writable, err := c.Writable(path)
	if err != nil {
		return err
	}
	if writable {
		return body()
	}

	if err := c.Remount(path, ReadWrite); err != nil {
		return err
	}
	defer func() {
		if err := c.Remount(path, ReadOnly); err != nil {
			c.logger.Warn("failed to restore read-only mount", "path", path, "error", err)
		}
	}()

	return body()
}
