package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

var (
	statusTier   string
	statusActive bool
)

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show one session or list stored sessions",
	Long: `With a session ID, show its progress and the questions still waiting for
an answer. Without one, list stored sessions grouped into active and
completed, optionally filtered by --tier or limited to --active sessions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			if Sessions == nil {
				return fmt.Errorf("session manager not initialized")
			}
			status, err := Sessions.Status(args[0])
			if err != nil {
				return fmt.Errorf("loading %s: %w", args[0], err)
			}
			printSessionStatus(out, status.Session)
			if len(status.Pending) > 0 {
				fmt.Fprintln(out, "\n  Waiting for an answer:")
				printQuestions(out, status.Pending)
			}
			return nil
		}

		if SessionIndex == nil {
			return fmt.Errorf("session store not initialized")
		}
		filter := models.SessionFilter{Tier: models.SessionTier(statusTier)}
		if statusActive {
			completed := false
			filter.Completed = &completed
		}
		sessions, err := SessionIndex.ListSessions(filter)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}

		var active, done []models.SessionSummary
		for _, s := range sessions {
			if s.Completed {
				done = append(done, s)
			} else {
				active = append(active, s)
			}
		}
		if len(active) > 0 {
			printSessionGroup(out, "active", active)
		}
		if len(done) > 0 {
			if len(active) > 0 {
				fmt.Fprintln(out)
			}
			printSessionGroup(out, "completed", done)
		}
		return nil
	},
}

func printSessionStatus(w io.Writer, s *models.SessionState) {
	state := "active"
	if s.Completed {
		state = "completed"
	}
	fmt.Fprintf(w, "Session %s (%s, %s)\n", s.ID, s.Tier, state)
	fmt.Fprintf(w, "  %-18s %d/%d (%d%%)\n", "Answered:", len(s.Responses), s.TotalBudget, s.PercentComplete())
	fmt.Fprintf(w, "  %-18s %s\n", "Phase:", s.Phase)
	if len(s.ActivePathways) > 0 {
		fmt.Fprintf(w, "  %-18s %s\n", "Pathways:", strings.Join(s.ActivePathways, ", "))
	}
	fmt.Fprintf(w, "  %-18s %s\n", "Last activity:", s.UpdatedAt.Format("2006-01-02 15:04 UTC"))
}

// printSessionGroup prints a table of sessions under a heading.
func printSessionGroup(w io.Writer, heading string, sessions []models.SessionSummary) {
	fmt.Fprintf(w, "== %s (%d) ==\n", strings.ToUpper(heading), len(sessions))
	fmt.Fprintf(w, "  %-10s %-9s %-11s %-9s %s\n", "ID", "TIER", "PHASE", "ANSWERED", "PATHWAYS")
	fmt.Fprintf(w, "  %-10s %-9s %-11s %-9s %s\n", "--", "----", "-----", "--------", "--------")
	for _, s := range sessions {
		fmt.Fprintf(w, "  %-10s %-9s %-11s %-9s %s\n",
			s.ID, s.Tier, s.Phase, fmt.Sprintf("%d/%d", s.Responses, s.TotalBudget), strings.Join(s.ActivePathways, ","))
	}
}

func init() {
	statusCmd.Flags().StringVar(&statusTier, "tier", "", "Only list sessions of this tier")
	statusCmd.Flags().BoolVar(&statusActive, "active", false, "Only list sessions that are not completed")
	_ = statusCmd.RegisterFlagCompletionFunc("tier", completeTiers)
	rootCmd.AddCommand(statusCmd)
}
