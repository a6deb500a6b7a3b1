package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/munichmade/hostsctl/internal/hostsfile"
	"github.com/munichmade/hostsctl/internal/lock"
	"github.com/munichmade/hostsctl/internal/mount"
	"github.com/munichmade/hostsctl/internal/store"
)

var statusJSONOutput bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show install state, target and rule counts",
	Long: `Display the current state of the installed hosts file including:

  - Whether the generated file is applied
  - The install target and whether the system hosts file links to it
  - The partition holding the target and its free space
  - Source and rule counts`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := getStatus(cmd.Context())
		if err != nil {
			return err
		}

		if statusJSONOutput {
			return outputStatusJSON(status)
		}
		outputStatusText(status)
		return nil
	},
}

// Status represents the current state of the installed hosts file.
type Status struct {
	State           string            `json:"state"`
	GeneratedAt     string            `json:"generated_at,omitempty"`
	Target          string            `json:"target"`
	SystemHostsPath string            `json:"system_hosts_path"`
	RequiresSymlink bool              `json:"requires_symlink"`
	SymlinkOK       bool              `json:"symlink_ok"`
	Partition       *PartitionInfo    `json:"partition,omitempty"`
	Locked          bool              `json:"locked"`
	LockedBy        int               `json:"locked_by,omitempty"`
	Sources         Counts            `json:"sources"`
	Rules           map[string]Counts `json:"rules"`
}

// PartitionInfo describes the partition holding the install target.
type PartitionInfo struct {
	Mountpoint string `json:"mountpoint"`
	Writable   bool   `json:"writable"`
	FreeBytes  uint64 `json:"free_bytes"`
}

// Counts is a total with the enabled subset.
type Counts struct {
	Total   int `json:"total"`
	Enabled int `json:"enabled"`
}

func getStatus(ctx context.Context) (Status, error) {
	st, err := openStore()
	if err != nil {
		return Status{}, err
	}
	defer st.Close()

	orch, mounts, err := newOrchestrator(st)
	if err != nil {
		return Status{}, err
	}

	target, err := cfg.InstallTarget()
	if err != nil {
		return Status{}, err
	}

	state := orch.Probe()
	status := Status{
		State:           state.String(),
		Target:          target.Path,
		SystemHostsPath: cfg.SystemHostsPath(),
		RequiresSymlink: target.RequiresSymlink,
		Rules:           map[string]Counts{},
	}
	if state == hostsfile.StateApplied {
		if line, err := firstLine(target.Path); err == nil {
			status.GeneratedAt, _ = hostsfile.GeneratedAt(line)
		}
	}
	status.SymlinkOK, _ = orch.IsSymlinkCorrect()
	status.Partition = partitionInfo(mounts, target.Path)

	if l := lock.New(); l.IsLocked() {
		status.Locked = true
		status.LockedBy, _ = l.Holder()
	}

	sources, err := st.Sources(ctx)
	if err != nil {
		return Status{}, err
	}
	for _, s := range sources {
		status.Sources.Total++
		if s.Enabled {
			status.Sources.Enabled++
		}
	}

	entries, err := st.Entries(ctx, "")
	if err != nil {
		return Status{}, err
	}
	for _, kind := range []store.Kind{store.KindBlock, store.KindAllow, store.KindRedirect} {
		status.Rules[string(kind)] = Counts{}
	}
	for _, e := range entries {
		c := status.Rules[string(e.Kind)]
		c.Total++
		if e.Enabled {
			c.Enabled++
		}
		status.Rules[string(e.Kind)] = c
	}

	return status, nil
}

func partitionInfo(mounts *mount.Controller, path string) *PartitionInfo {
	p, err := mounts.Partition(path)
	if err != nil {
		return nil
	}
	writable, _ := mounts.Writable(path)
	free, _ := mounts.FreeSpace(path)
	return &PartitionInfo{Mountpoint: p.Mountpoint, Writable: writable, FreeBytes: free}
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return scanner.Text(), nil
}

func stateLabel(status Status) string {
	switch status.State {
	case hostsfile.StateApplied.String():
		if status.GeneratedAt != "" {
			return fmt.Sprintf("applied (generated %s)", status.GeneratedAt)
		}
		return "applied"
	case hostsfile.StateNotApplied.String():
		return "not applied"
	default:
		return "unknown (cannot read " + status.Target + ")"
	}
}

func symlinkLabel(status Status) string {
	switch {
	case !status.RequiresSymlink:
		return "not needed"
	case status.SymlinkOK:
		return "ok"
	default:
		return "missing (run 'hostsctl symlink')"
	}
}

func freeLabel(p *PartitionInfo) string {
	if p.FreeBytes == 0 {
		return "unknown"
	}
	return humanize.IBytes(p.FreeBytes)
}

func outputStatusText(status Status) {
	fmt.Printf("hosts file: %s\n", stateLabel(status))
	switch {
	case status.LockedBy != 0:
		fmt.Printf("an install operation is running (pid %d)\n", status.LockedBy)
	case status.Locked:
		fmt.Println("an install operation is running")
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Target\t%s\n", shortenPath(status.Target))
	fmt.Fprintf(w, "  System hosts\t%s\n", status.SystemHostsPath)
	fmt.Fprintf(w, "  Symlink\t%s\n", symlinkLabel(status))
	if p := status.Partition; p != nil {
		mode := "read-only"
		if p.Writable {
			mode = "read-write"
		}
		fmt.Fprintf(w, "  Partition\t%s (%s, %s free)\n", p.Mountpoint, mode, freeLabel(p))
	}
	w.Flush()

	fmt.Println()

	fmt.Println("Rules:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  KIND\tENABLED\tTOTAL\n")
	fmt.Fprintf(w, "  sources\t%d\t%d\n", status.Sources.Enabled, status.Sources.Total)
	for _, kind := range []store.Kind{store.KindBlock, store.KindAllow, store.KindRedirect} {
		c := status.Rules[string(kind)]
		fmt.Fprintf(w, "  %s\t%d\t%d\n", kind, c.Enabled, c.Total)
	}
	w.Flush()
}

func outputStatusJSON(status Status) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "Output in JSON format")
	rootCmd.AddCommand(statusCmd)
}
