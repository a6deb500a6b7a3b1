package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/munichmade/hostsctl/internal/hostsfile"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage rule sources",
	Long: `Manage the sources listed in the header of the generated hosts file.
Enabled sources are recorded with the time they were last installed.`,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sources, err := st.Sources(cmd.Context())
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Println("Sources: none")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tENABLED\tINSTALLED\tURL\n")
		for _, s := range sources {
			installed := "-"
			if s.LastInstalledAt != nil {
				installed = s.LastInstalledAt.Local().Format(hostsfile.TimestampLayout)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, yesNo(s.Enabled), installed, s.URL)
		}
		return w.Flush()
	},
}

var sourceAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a source",
	Long: `Add an enabled source.

Example:
  hostsctl source add https://adaway.org/hosts.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		s, err := st.AddSource(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("added source %d: %s\n", s.ID, s.URL)
		return nil
	},
}

var sourceEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSourceEnabled(cmd, args[0], true)
	},
}

var sourceDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSourceEnabled(cmd, args[0], false)
	},
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a source",
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

		if err := st.RemoveSource(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("removed source %d\n", id)
		return nil
	},
}

func setSourceEnabled(cmd *cobra.Command, arg string, enabled bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetSourceEnabled(cmd.Context(), id, enabled); err != nil {
		return err
	}
	fmt.Printf("source %d %s\n", id, enabledWord(enabled))
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func enabledWord(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func init() {
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceEnableCmd)
	sourceCmd.AddCommand(sourceDisableCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	rootCmd.AddCommand(sourceCmd)
}
