package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var finalizeJSON bool

var finalizeCmd = &cobra.Command{
	Use:   "finalize <session-id>",
	Short: "Finish a session and print its report",
	Long: `Mark a session complete, score it and store the report.

A session can be finalized before its budget is used up; the report's
completion rate and confidence reflect how much was answered.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Sessions == nil {
			return fmt.Errorf("session manager not initialized")
		}

		report, err := Sessions.Finalize(args[0])
		if err != nil {
			return fmt.Errorf("finalizing %s: %w", args[0], err)
		}

		if finalizeJSON {
			return printJSON(cmd.OutOrStdout(), report)
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	finalizeCmd.Flags().BoolVar(&finalizeJSON, "json", false, "Output the report as JSON")
	rootCmd.AddCommand(finalizeCmd)
}
