package install

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/munichmade/hostsctl/internal/config"
	"github.com/munichmade/hostsctl/internal/privilege"
)

var errNoSpace = errors.New("not enough free space")

// install copies the local file at src to target with one privileged batch.
// The free-space check runs before any privileged command is issued.
func (o *Orchestrator) install(src string, target config.Target) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	// A zero reading is treated as "enough": some partitions report no
	// usage figures at all.
	free, err := o.mounts.FreeSpace(target.Path)
	if err != nil {
		o.logger.Warn("cannot read free space, skipping check", "path", target.Path, "error", err)
		free = 0
	}
	if free != 0 && free < uint64(info.Size()) {
		return fmt.Errorf("%w: %d bytes free, %d needed", errNoSpace, free, info.Size())
	}

	return o.mounts.WithReadWrite(target.Path, func() error {
		res := o.runner.Run(o.copyCommands(src, target)...)
		if !res.Success {
			return fmt.Errorf("copy %s to %s: %w", src, target.Path, res.Err())
		}
		return nil
	})
}

func (o *Orchestrator) copyCommands(src string, target config.Target) []string {
	dst := privilege.Quote(target.Path)

	var commands []string
	if target.Path == o.settings.SystemHostsPath() {
		commands = append(commands, "rm -f "+dst)
	} else {
		commands = append(commands, "mkdir -p "+privilege.Quote(filepath.Dir(target.Path)))
	}
	return append(commands,
		fmt.Sprintf("dd if=%s of=%s", privilege.Quote(src), dst),
		"chown "+privilege.Quote(o.settings.FileOwner())+" "+dst,
		"chmod "+privilege.Quote(o.settings.FileMode())+" "+dst,
	)
}
