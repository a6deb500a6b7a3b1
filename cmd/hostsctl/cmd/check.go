package cmd

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/munichmade/hostsctl/internal/config"
	"github.com/munichmade/hostsctl/internal/hostsfile"
	"github.com/munichmade/hostsctl/internal/install"
	"github.com/munichmade/hostsctl/internal/mount"
	"github.com/munichmade/hostsctl/internal/privilege"
	"github.com/munichmade/hostsctl/internal/store"
)

// CheckResult represents the result of a single check.
type CheckResult struct {
	Name       string
	Passed     bool
	Message    string
	Suggestion string
}

// checkEnv is what the checks inspect.
type checkEnv struct {
	ctx    context.Context
	store  *store.Store
	orch   *install.Orchestrator
	mounts *mount.Controller
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks to verify hostsctl can install the hosts file.

Checks include:
  - Privilege elevation is available
  - The install target's partition can be found
  - The system hosts file links to the install target
  - The generated hosts file is applied
  - A blocked host resolves to the redirection address`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("\nChecking system configuration...")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	orch, mounts, err := newOrchestrator(st)
	if err != nil {
		return err
	}
	env := &checkEnv{ctx: cmd.Context(), store: st, orch: orch, mounts: mounts}

	var failures int

	checks := []func(*checkEnv) CheckResult{
		checkPrivilege,
		checkPartition,
		checkSymlink,
		checkApplied,
		checkBlocking,
	}

	for _, check := range checks {
		result := check(env)
		printResult(result)
		if !result.Passed {
			failures++
		}
	}

	fmt.Println()
	if failures == 0 {
		fmt.Println("All checks passed!")
		return nil
	}
	return fmt.Errorf("%d check(s) failed", failures)
}

func printResult(r CheckResult) {
	if r.Passed {
		fmt.Printf("  ✓ %s\n", r.Message)
	} else {
		fmt.Printf("  ✗ %s\n", r.Message)
		if r.Suggestion != "" {
			fmt.Printf("    → %s\n", r.Suggestion)
		}
	}
}

func checkPrivilege(*checkEnv) CheckResult {
	result := CheckResult{Name: "privilege"}

	runner, err := privilege.NewShellRunner(cfg.Privilege.Method)
	if err != nil {
		result.Message = err.Error()
		result.Suggestion = "Set privilege.method to auto, sudo, su or none"
		return result
	}

	method := runner.Method()
	if method == config.MethodNone {
		result.Passed = true
		result.Message = "Running without elevation"
		if !privilege.IsRoot() {
			result.Message += " (writes to system paths will likely fail)"
		}
		return result
	}
	if _, err := exec.LookPath(method); err != nil {
		result.Message = fmt.Sprintf("%s not found in PATH", method)
		result.Suggestion = "Install it or change privilege.method"
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("Privileged commands run through %s", method)
	return result
}

func checkPartition(env *checkEnv) CheckResult {
	result := CheckResult{Name: "partition"}

	target, err := cfg.InstallTarget()
	if err != nil {
		result.Message = err.Error()
		result.Suggestion = "Fix install.target in " + shortenPath(configPath)
		return result
	}

	p, err := env.mounts.Partition(target.Path)
	if err != nil {
		result.Message = fmt.Sprintf("No partition found for %s", target.Path)
		return result
	}
	free, _ := env.mounts.FreeSpace(target.Path)

	result.Passed = true
	result.Message = fmt.Sprintf("%s is on %s (%s free)", target.Path, p.Mountpoint,
		freeLabel(&PartitionInfo{FreeBytes: free}))
	return result
}

func checkSymlink(env *checkEnv) CheckResult {
	result := CheckResult{Name: "symlink"}

	target, err := cfg.InstallTarget()
	if err != nil {
		result.Message = err.Error()
		return result
	}
	if !target.RequiresSymlink {
		result.Passed = true
		result.Message = "Installing directly to " + target.Path
		return result
	}

	if ok, _ := env.orch.IsSymlinkCorrect(); !ok {
		result.Message = fmt.Sprintf("%s does not link to %s", cfg.SystemHostsPath(), target.Path)
		result.Suggestion = "Run: hostsctl symlink"
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("%s links to %s", cfg.SystemHostsPath(), target.Path)
	return result
}

func checkApplied(env *checkEnv) CheckResult {
	result := CheckResult{Name: "applied"}

	switch env.orch.Probe() {
	case hostsfile.StateApplied:
		result.Passed = true
		result.Message = "Generated hosts file is applied"
	case hostsfile.StateNotApplied:
		result.Message = "Generated hosts file is not applied"
		result.Suggestion = "Run: hostsctl apply"
	default:
		result.Message = "Cannot read the installed hosts file"
		result.Suggestion = "Check the permissions of the install target"
	}
	return result
}

func checkBlocking(env *checkEnv) CheckResult {
	result := CheckResult{Name: "blocking"}

	host, err := sampleBlockedHost(env)
	if err != nil {
		result.Message = "Cannot read rules: " + err.Error()
		return result
	}
	if host == "" {
		result.Passed = true
		result.Message = "Resolution check skipped (no blocked hosts)"
		return result
	}
	if env.orch.Probe() != hostsfile.StateApplied {
		result.Passed = true
		result.Message = "Resolution check skipped (not applied)"
		return result
	}

	ctx, cancel := context.WithTimeout(env.ctx, 3*time.Second)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		result.Message = fmt.Sprintf("Resolution failed for %s: %v", host, err)
		result.Suggestion = "Check that the resolver reads " + cfg.SystemHostsPath()
		return result
	}

	ipv4, ipv6 := cfg.RedirectionAddresses()
	if slices.Contains(addrs, ipv4) || (cfg.IPv6Enabled() && slices.Contains(addrs, ipv6)) {
		result.Passed = true
		result.Message = fmt.Sprintf("Blocking works (%s → %s)", host, ipv4)
		return result
	}

	result.Message = fmt.Sprintf("%s resolves to %v, not %s", host, addrs, ipv4)
	result.Suggestion = "A local DNS cache may still hold the old answer; flush it or wait"
	return result
}

// sampleBlockedHost returns the first enabled blocked host that no allow rule
// exempts, or "" if there is none.
func sampleBlockedHost(env *checkEnv) (string, error) {
	blocked, err := env.store.EnabledBlocked(env.ctx)
	if err != nil {
		return "", err
	}
	allowed, err := env.store.EnabledAllowed(env.ctx)
	if err != nil {
		return "", err
	}
	matcher, err := hostsfile.Compile(allowed)
	if err != nil {
		return "", err
	}
	for _, h := range blocked {
		if !matcher.IsAllowed(h) {
			return h, nil
		}
	}
	return "", nil
}
