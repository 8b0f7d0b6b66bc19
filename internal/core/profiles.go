package core

import "github.com/valter-silva-au/adaptive-assessment/pkg/models"

// ProfileRule maps a combination of scores onto a qualitative label. Rules
// are checked in order and the first match wins.
type ProfileRule struct {
	Label       string
	Description string
	Match       func(ScoreContext) bool
}

// fallbackProfile is assigned when no rule matches.
var fallbackProfile = models.Profile{
	Label:       "Balanced Explorer",
	Description: "No single trait dominates; scores sit close to the reference population.",
}

// DefaultProfileRules returns the stock archetype table.
func DefaultProfileRules() []ProfileRule {
	atLeast := func(c ScoreContext, t models.Trait, p int) bool {
		return c.Percentile(t) >= p
	}
	return []ProfileRule{
		{
			Label:       "Neurodivergent Innovator",
			Description: "Neurodivergent indicators alongside high openness.",
			Match: func(c ScoreContext) bool {
				return c.Pattern.HasAnyIndicator(models.NeurodivergentIndicators) &&
					atLeast(c, models.TraitOpenness, 70)
			},
		},
		{
			Label:       "Sensitive Processor",
			Description: "Strong sensory signal paired with elevated neuroticism.",
			Match: func(c ScoreContext) bool {
				return c.Pattern.HasAnyIndicator(models.SensoryIndicators) &&
					atLeast(c, models.TraitNeuroticism, 70)
			},
		},
		{
			Label:       "Creative Visionary",
			Description: "High openness with high extraversion.",
			Match: func(c ScoreContext) bool {
				return atLeast(c, models.TraitOpenness, 70) && atLeast(c, models.TraitExtraversion, 70)
			},
		},
		{
			Label:       "Analytical Architect",
			Description: "High openness with high conscientiousness and a reserved social style.",
			Match: func(c ScoreContext) bool {
				ext := c.Percentile(models.TraitExtraversion)
				return atLeast(c, models.TraitOpenness, 70) &&
					atLeast(c, models.TraitConscientiousness, 70) &&
					ext >= 0 && ext < 50
			},
		},
		{
			Label:       "Steady Organizer",
			Description: "High conscientiousness with low neuroticism.",
			Match: func(c ScoreContext) bool {
				n := c.Percentile(models.TraitNeuroticism)
				return atLeast(c, models.TraitConscientiousness, 70) && n >= 0 && n < 30
			},
		},
		{
			Label:       "Empathic Connector",
			Description: "High agreeableness with high extraversion.",
			Match: func(c ScoreContext) bool {
				return atLeast(c, models.TraitAgreeableness, 70) && atLeast(c, models.TraitExtraversion, 70)
			},
		},
		{
			Label:       "Quiet Observer",
			Description: "Low extraversion with average or higher openness.",
			Match: func(c ScoreContext) bool {
				ext := c.Percentile(models.TraitExtraversion)
				return ext >= 0 && ext < 30 && atLeast(c, models.TraitOpenness, 30)
			},
		},
	}
}

// MatchProfile returns the label of the first matching rule, or the
// fallback profile when none match.
func MatchProfile(c ScoreContext, rules []ProfileRule) models.Profile {
	for _, r := range rules {
		if r.Match != nil && r.Match(c) {
			return models.Profile{Label: r.Label, Description: r.Description}
		}
	}
	return fallbackProfile
}
