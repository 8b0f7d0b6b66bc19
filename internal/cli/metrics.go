package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display assessment metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include sessions started and finalized, completion rate, responses
recorded and coerced, pathway activations, profiles assigned and low-validity
reports.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			return printJSON(out, metrics)
		}

		fmt.Fprintf(out, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Sessions started:", metrics.SessionsStarted)
		fmt.Fprintf(out, "  %-24s %d\n", "Sessions finalized:", metrics.SessionsFinalized)
		fmt.Fprintf(out, "  %-24s %.0f%%\n", "Completion rate:", metrics.CompletionRate*100)
		fmt.Fprintf(out, "  %-24s %d\n", "Responses recorded:", metrics.ResponsesRecorded)
		fmt.Fprintf(out, "  %-24s %d\n", "Coerced responses:", metrics.CoercedResponses)
		fmt.Fprintf(out, "  %-24s %d\n", "Unknown trait keys:", metrics.UnknownTraitKeys)
		fmt.Fprintf(out, "  %-24s %d\n", "Low-validity reports:", metrics.LowValidityReports)
		fmt.Fprintf(out, "  %-24s %.2f\n", "Mean confidence:", metrics.MeanConfidence)
		if metrics.Broadened > 0 || metrics.Exhausted > 0 {
			fmt.Fprintf(out, "  %-24s %d broadened, %d exhausted\n", "Selection fallbacks:", metrics.Broadened, metrics.Exhausted)
		}

		printCounts(out, "Sessions by tier", metrics.SessionsByTier)
		printCounts(out, "Pathway activations", metrics.PathwayActivations)
		printCounts(out, "Profiles", metrics.Profiles)

		if metrics.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}
		return nil
	},
}

// printCounts prints a count map sorted by key.
func printCounts(w io.Writer, heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n  %s:\n", heading)
	for _, k := range keys {
		fmt.Fprintf(w, "    %-26s %d\n", k+":", counts[k])
	}
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
