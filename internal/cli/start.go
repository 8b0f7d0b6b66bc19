package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

var (
	startTier string
	startSeed int64
	startJSON bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new assessment session",
	Long: `Start a new assessment session and print the first batch of questions.

Tiers control the length: quick (20 questions), standard (45) and deep (75)
with the default configuration.
Pass --seed to make the first batch reproducible.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Sessions == nil {
			return fmt.Errorf("session manager not initialized")
		}
		tier := models.SessionTier(startTier)
		if err := models.ValidateSessionTier(tier); err != nil {
			return err
		}

		var seed *int64
		if cmd.Flags().Changed("seed") {
			seed = &startSeed
		}
		res, err := Sessions.Start(tier, seed)
		if err != nil {
			return fmt.Errorf("starting session: %w", err)
		}

		out := cmd.OutOrStdout()
		if startJSON {
			return printJSON(out, res)
		}
		fmt.Fprintf(out, "Started session %s (%s, %d questions)\n\n", res.Session.ID, tier, res.Session.TotalBudget)
		printQuestions(out, res.Questions)
		fmt.Fprintf(out, "\nAnswer with: aqe answer %s <question-id>=<1-5> ...\n", res.Session.ID)
		return nil
	},
}

func init() {
	startCmd.Flags().StringVar(&startTier, "tier", string(models.TierQuick), "Assessment tier (quick, standard, deep)")
	startCmd.Flags().Int64Var(&startSeed, "seed", 0, "Seed for the first batch")
	startCmd.Flags().BoolVar(&startJSON, "json", false, "Output as JSON")
	_ = startCmd.RegisterFlagCompletionFunc("tier", completeTiers)
	rootCmd.AddCommand(startCmd)
}
