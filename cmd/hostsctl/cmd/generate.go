package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var generateOutput string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print the hosts file apply would install",
	Long: `Generate the hosts file from the enabled rules without installing it.
Nothing is written outside the output file and no privileges are needed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		orch, _, err := newOrchestrator(st)
		if err != nil {
			return err
		}

		content, err := orch.Preview(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to generate hosts file: %w", err)
		}

		if generateOutput == "" || generateOutput == "-" {
			_, err = os.Stdout.Write(content)
			return err
		}
		return os.WriteFile(generateOutput, content, 0644)
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(generateCmd)
}
