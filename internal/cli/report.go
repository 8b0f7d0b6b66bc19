package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	reportJSON    bool
	reportAll     bool
	reportWorkers int
)

var reportCmd = &cobra.Command{
	Use:   "report [session-id]",
	Short: "Show a stored report, or re-score every completed session",
	Long: `Show the stored report of a finalized session.

With --all, every completed session is scored again with the current
configuration (norms, profile and pattern tables) and its report replaced.
Sessions are scored concurrently, up to --workers at a time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Sessions == nil {
			return fmt.Errorf("session manager not initialized")
		}
		out := cmd.OutOrStdout()

		if reportAll {
			if len(args) > 0 {
				return fmt.Errorf("--all does not take a session ID")
			}
			reports, err := Sessions.RescoreCompleted(commandContext(cmd), reportWorkers)
			if err != nil {
				return fmt.Errorf("re-scoring sessions: %w", err)
			}
			if reportJSON {
				return printJSON(out, reports)
			}
			if len(reports) == 0 {
				fmt.Fprintln(out, "No completed sessions.")
				return nil
			}
			fmt.Fprintf(out, "Re-scored %d session(s):\n\n", len(reports))
			fmt.Fprintf(out, "  %-10s %-28s %-10s %s\n", "SESSION", "PROFILE", "CONFIDENCE", "VALIDITY")
			for _, r := range reports {
				validity := "ok"
				if r.Quality.LowValidity {
					validity = "low"
				}
				fmt.Fprintf(out, "  %-10s %-28s %-10.2f %s\n", r.SessionID, r.Profile.Label, r.Confidence, validity)
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("session ID is required (or use --all)")
		}
		report, err := Sessions.Report(args[0])
		if err != nil {
			return fmt.Errorf("loading report for %s: %w", args[0], err)
		}
		if reportJSON {
			return printJSON(out, report)
		}
		printReport(out, report)
		return nil
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output as JSON")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "Re-score every completed session")
	reportCmd.Flags().IntVar(&reportWorkers, "workers", runtime.NumCPU(), "Concurrent sessions when using --all")
	rootCmd.AddCommand(reportCmd)
}
