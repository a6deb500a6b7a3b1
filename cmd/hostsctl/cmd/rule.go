package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/munichmade/hostsctl/internal/store"
)

var ruleListKind string

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage block, allow and redirect rules",
	Long: `Manage the rules the hosts file is generated from:

  block     the host resolves to the redirection address
  allow     hosts matching the pattern (* wildcards) are never blocked
  redirect  the host resolves to the given address, regardless of allow rules`,
}

var ruleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var kind store.Kind
		if ruleListKind != "" {
			k, err := store.ParseKind(ruleListKind)
			if err != nil {
				return err
			}
			kind = k
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.Entries(cmd.Context(), kind)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Rules: none")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tKIND\tENABLED\tHOST\tREDIRECT\n")
		for _, e := range entries {
			redirect := e.Redirect
			if redirect == "" {
				redirect = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Kind, yesNo(e.Enabled), e.Host, redirect)
		}
		return w.Flush()
	},
}

var ruleAddCmd = &cobra.Command{
	Use:   "add <block|allow|redirect> <host> [address]",
	Short: "Add a rule",
	Long: `Add an enabled rule.

Examples:
  hostsctl rule add block ads.example.com
  hostsctl rule add allow '*example*'
  hostsctl rule add redirect intranet.example 10.0.0.5`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := store.ParseKind(args[0])
		if err != nil {
			return err
		}
		entry := store.Entry{Kind: kind, Host: args[1]}
		if len(args) == 3 {
			entry.Redirect = args[2]
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		added, err := st.AddEntry(cmd.Context(), entry)
		if err != nil {
			return err
		}
		fmt.Printf("added %s rule %d: %s\n", added.Kind, added.ID, added.Host)
		return nil
	},
}

var ruleEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(cmd, args[0], true)
	},
}

var ruleDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(cmd, args[0], false)
	},
}

var ruleRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.RemoveEntry(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("removed rule %d\n", id)
		return nil
	},
}

func setRuleEnabled(cmd *cobra.Command, arg string, enabled bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetEntryEnabled(cmd.Context(), id, enabled); err != nil {
		return err
	}
	fmt.Printf("rule %d %s\n", id, enabledWord(enabled))
	return nil
}

func init() {
	ruleListCmd.Flags().StringVar(&ruleListKind, "kind", "", "Only list rules of this kind (block, allow, redirect)")
	ruleCmd.AddCommand(ruleListCmd)
	ruleCmd.AddCommand(ruleAddCmd)
	ruleCmd.AddCommand(ruleEnableCmd)
	ruleCmd.AddCommand(ruleDisableCmd)
	ruleCmd.AddCommand(ruleRemoveCmd)
	rootCmd.AddCommand(ruleCmd)
}
