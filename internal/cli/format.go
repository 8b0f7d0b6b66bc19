package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting output as JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// printQuestions prints a numbered batch of questions with their IDs so
// they can be answered with 'aqe answer'.
func printQuestions(w io.Writer, qs []models.Question) {
	for i, q := range qs {
		text := q.Text
		if text == "" {
			text = "(no text)"
		}
		fmt.Fprintf(w, "  %2d. [%s] %s\n", i+1, q.ID, text)
		fmt.Fprintf(w, "      %s\n", scaleHint(q.ResponseType))
	}
}

func scaleHint(rt models.ResponseType) string {
	switch rt {
	case models.ResponseForcedChoice:
		return "choose 1 (first option) to 5 (second option)"
	case models.ResponseSlider:
		return "slide 1 (not at all) to 5 (completely)"
	case models.ResponseBinary:
		return "1 no, 5 yes"
	default:
		return "1 strongly disagree, 2 disagree, 3 neutral, 4 agree, 5 strongly agree"
	}
}

// printReport prints a report as a table.
func printReport(w io.Writer, r *models.Report) {
	fmt.Fprintf(w, "Report %s for session %s (%s, %d responses)\n\n", r.ID, r.SessionID, r.Tier, r.ResponseCount)
	fmt.Fprintf(w, "  %-24s %s\n", "Profile:", r.Profile.Label)
	if r.Profile.Description != "" {
		fmt.Fprintf(w, "  %-24s %s\n", "", r.Profile.Description)
	}
	fmt.Fprintf(w, "  %-24s %s\n", "Response style:", r.ResponseStyle)
	fmt.Fprintf(w, "  %-24s %.2f\n", "Consistency:", r.Consistency)
	fmt.Fprintf(w, "  %-24s %.2f\n", "Confidence:", r.Confidence)

	if len(r.Traits) > 0 {
		fmt.Fprintln(w, "\n  Traits:")
		fmt.Fprintf(w, "    %-22s %-6s %-5s %s\n", "TRAIT", "RAW", "PCT", "LEVEL")
		for _, t := range r.Traits {
			fmt.Fprintf(w, "    %-22s %-6.2f %-5d %s\n", t.Trait, t.Raw, t.Percentile, t.Level)
		}
	}
	if len(r.ActivePathways) > 0 {
		fmt.Fprintf(w, "\n  %-24s %s\n", "Pathways:", strings.Join(r.ActivePathways, ", "))
	}
	if len(r.Indicators) > 0 {
		fmt.Fprintf(w, "  %-24s %s\n", "Indicators:", strings.Join(r.Indicators, ", "))
	}
	if len(r.HiddenPatterns) > 0 {
		fmt.Fprintln(w, "\n  Patterns:")
		for _, p := range r.HiddenPatterns {
			fmt.Fprintf(w, "    %-30s %.2f\n", p.Name, p.Confidence)
		}
	}

	q := r.Quality
	fmt.Fprintln(w, "\n  Quality:")
	fmt.Fprintf(w, "    %-22s %.0f%%\n", "Completion:", q.CompletionRate*100)
	fmt.Fprintf(w, "    %-22s %.2f\n", "Diversity:", q.Diversity)
	fmt.Fprintf(w, "    %-22s %d\n", "Longest run:", q.LongestRun)
	if q.TimedResponses > 0 {
		fmt.Fprintf(w, "    %-22s %.0f ms\n", "Mean response time:", q.MeanResponseTimeMs)
	}
	if q.CoercedResponses > 0 {
		fmt.Fprintf(w, "    %-22s %d\n", "Coerced responses:", q.CoercedResponses)
	}
	if q.LowValidity {
		var reasons []string
		if q.StraightLining {
			reasons = append(reasons, "straight-lining")
		}
		if q.CarelessResponding {
			reasons = append(reasons, "careless responding")
		}
		fmt.Fprintf(w, "    %-22s %s\n", "LOW VALIDITY:", strings.Join(reasons, ", "))
	}
}
