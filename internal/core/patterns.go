package core

import (
	"fmt"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// ScoreContext is what hidden-pattern and profile rules see: the pattern
// summary of the full response set and the aggregated trait scores.
type ScoreContext struct {
	Pattern PatternSummary
	Traits  map[models.Trait]models.TraitScore
}

// Percentile returns the percentile of t, or -1 when the trait was not
// scored.
func (c ScoreContext) Percentile(t models.Trait) int {
	ts, ok := c.Traits[t]
	if !ok {
		return -1
	}
	return ts.Percentile
}

// PatternRule detects one hidden pattern. Detect returns the evidence that
// matched and whether the rule fired.
type PatternRule struct {
	ID         string
	Name       string
	Confidence float64
	Detect     func(ScoreContext) ([]string, bool)
}

// twiceExceptionalMinHigh is the number of high cognitive-functions
// responses needed for the twice-exceptional rule.
const twiceExceptionalMinHigh = 4

// DefaultPatternRules returns the stock hidden-pattern rules.
func DefaultPatternRules() []PatternRule {
	return []PatternRule{
		{
			ID:         "twice_exceptional",
			Name:       "Twice exceptional",
			Confidence: 0.75,
			Detect: func(c ScoreContext) ([]string, bool) {
				high := c.Pattern.HighByCategory[models.CategoryCognitiveFunctions]
				if high < twiceExceptionalMinHigh {
					return nil, false
				}
				matched := presentIndicators(c.Pattern, models.NeurodivergentIndicators)
				if len(matched) == 0 {
					return nil, false
				}
				evidence := []string{fmt.Sprintf("%d high cognitive-functions responses", high)}
				return append(evidence, matched...), true
			},
		},
		{
			ID:         "compensation",
			Name:       "Compensation strategies",
			Confidence: 0.7,
			Detect: func(c ScoreContext) ([]string, bool) {
				matched := presentIndicators(c.Pattern, models.MaskingIndicators)
				if len(matched) == 0 || c.Pattern.ResponseStyle != models.StyleCentral {
					return nil, false
				}
				return append(matched, "central response style"), true
			},
		},
		{
			ID:         "sensory_emotional_cascade",
			Name:       "Sensory-emotional cascade",
			Confidence: 0.65,
			Detect: func(c ScoreContext) ([]string, bool) {
				matched := presentIndicators(c.Pattern, models.SensoryIndicators)
				if len(matched) == 0 || !c.Pattern.HasIndicator(models.IndicatorEmotionalDysregulation) {
					return nil, false
				}
				return append(matched, string(models.IndicatorEmotionalDysregulation)), true
			},
		},
		{
			ID:         "masking_burnout",
			Name:       "Masking burnout risk",
			Confidence: 0.6,
			Detect: func(c ScoreContext) ([]string, bool) {
				matched := presentIndicators(c.Pattern, models.MaskingIndicators)
				pct := c.Percentile(models.TraitNeuroticism)
				if len(matched) == 0 || pct < 80 {
					return nil, false
				}
				return append(matched, fmt.Sprintf("neuroticism at percentile %d", pct)), true
			},
		},
	}
}

// DetectPatterns runs the rules in order and returns every pattern that
// fired.
func DetectPatterns(c ScoreContext, rules []PatternRule) []models.HiddenPattern {
	var out []models.HiddenPattern
	for _, r := range rules {
		evidence, ok := r.Detect(c)
		if !ok {
			continue
		}
		out = append(out, models.HiddenPattern{
			ID:         r.ID,
			Name:       r.Name,
			Confidence: r.Confidence,
			Evidence:   evidence,
		})
	}
	return out
}

func presentIndicators(p PatternSummary, inds []models.Indicator) []string {
	var out []string
	for _, ind := range inds {
		if p.HasIndicator(ind) {
			out = append(out, string(ind))
		}
	}
	return out
}
