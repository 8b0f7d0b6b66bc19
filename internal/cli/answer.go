package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/adaptive-assessment/internal/core"
)

var answerJSON bool

var answerCmd = &cobra.Command{
	Use:   "answer <session-id> <question-id>=<value> [<question-id>=<value>...]",
	Short: "Submit answers and get the next batch",
	Long: `Submit answers for questions from the current batch and print the next one.

Each answer is written as question-id=value. Numeric values are scores on the
1-5 scale; anything else is kept as the raw answer and scored at the scale
midpoint. Append @<ms> to record the response time, e.g. per-003=4@2300.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Sessions == nil {
			return fmt.Errorf("session manager not initialized")
		}
		sessionID := args[0]

		answers, err := parseAnswers(args[1:])
		if err != nil {
			return err
		}

		res, err := Sessions.Answer(sessionID, answers)
		if err != nil {
			return fmt.Errorf("answering %s: %w", sessionID, err)
		}

		out := cmd.OutOrStdout()
		if answerJSON {
			return printJSON(out, res)
		}

		fmt.Fprintf(out, "Session %s: %d%% complete, phase %s\n", sessionID, res.PercentComplete, res.Phase)
		for _, p := range res.ActivatedPathways {
			fmt.Fprintf(out, "  pathway opened: %s\n", p)
		}
		if res.IsComplete {
			fmt.Fprintf(out, "\nAll questions answered. Run: aqe finalize %s\n", sessionID)
			return nil
		}
		if res.Exhausted && len(res.NextBatch) == 0 && len(res.Pending) == 0 {
			fmt.Fprintf(out, "\nNo more questions available. Run: aqe finalize %s\n", sessionID)
			return nil
		}
		if len(res.NextBatch) > 0 {
			fmt.Fprintln(out, "\nNext questions:")
			printQuestions(out, res.NextBatch)
		}
		if len(res.Pending) > len(res.NextBatch) {
			fmt.Fprintf(out, "\n%d question(s) still waiting for an answer: %s\n", len(res.Pending), strings.Join(res.Pending, ", "))
		}
		return nil
	},
}

// parseAnswers parses question-id=value[@ms] arguments.
func parseAnswers(args []string) ([]core.Answer, error) {
	answers := make([]core.Answer, 0, len(args))
	for _, arg := range args {
		id, value, ok := strings.Cut(arg, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid answer %q: expected question-id=value", arg)
		}

		a := core.Answer{QuestionID: id}
		if v, ms, found := strings.Cut(value, "@"); found {
			n, err := strconv.Atoi(ms)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid response time in %q", arg)
			}
			a.ResponseTimeMs = &n
			value = v
		}
		value = strings.TrimSpace(value)
		if n, err := strconv.Atoi(value); err == nil {
			a.Score = &n
		} else {
			a.RawValue = value
		}
		answers = append(answers, a)
	}
	return answers, nil
}

func init() {
	answerCmd.Flags().BoolVar(&answerJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(answerCmd)
}
