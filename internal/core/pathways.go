package core

import (
	"fmt"
	"os"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
	"gopkg.in/yaml.v3"
)

// PathwayActivation is a pathway that fired during one evaluation, with the
// trigger indicators that matched.
type PathwayActivation struct {
	Pathway  models.Pathway
	Triggers []string
}

// DefaultPathways returns the stock branching table. Combined pathways are
// declared after their prerequisites, but evaluation does not depend on it.
func DefaultPathways() []models.Pathway {
	return []models.Pathway{
		{
			ID:   "adhd",
			Name: "Attention and executive function",
			TriggerIndicators: []models.Indicator{
				models.IndicatorExecutiveFunction,
				models.IndicatorAttentionDifficulty,
				models.IndicatorHyperactivity,
				models.IndicatorImpulsivity,
				models.IndicatorTimeBlindness,
			},
			IndicatorThreshold:         2,
			Trait:                      models.TraitADHD,
			PriorityBoostSubcategories: []string{"attention", "executive_function"},
			AddedSubcategories:         []string{"adhd_deep_dive", "time_management"},
		},
		{
			ID:   "autism",
			Name: "Social communication and routines",
			TriggerIndicators: []models.Indicator{
				models.IndicatorSocialCommunication,
				models.IndicatorRoutinePreference,
				models.IndicatorSpecialInterests,
				models.IndicatorSensorySensitivity,
				models.IndicatorMasking,
			},
			IndicatorThreshold:         2,
			Trait:                      models.TraitAutism,
			PriorityBoostSubcategories: []string{"social_communication", "routines"},
			AddedSubcategories:         []string{"autism_traits", "masking"},
		},
		{
			ID:   "sensory",
			Name: "Sensory processing",
			TriggerIndicators: []models.Indicator{
				models.IndicatorSensorySensitivity,
				models.IndicatorSensorySeeking,
				models.IndicatorSensoryOverload,
			},
			IndicatorThreshold:         2,
			Trait:                      models.TraitSensoryProcessing,
			PriorityBoostSubcategories: []string{"sensory"},
			AddedSubcategories:         []string{"sensory_profile"},
		},
		{
			ID:   "trauma",
			Name: "Trauma response",
			TriggerIndicators: []models.Indicator{
				models.IndicatorHypervigilance,
				models.IndicatorEmotionalDysregulation,
				models.IndicatorAvoidance,
				models.IndicatorDissociation,
			},
			IndicatorThreshold:         2,
			Trait:                      models.TraitTrauma,
			PriorityBoostSubcategories: []string{"trauma_response", "emotional_regulation"},
			AddedSubcategories:         []string{"cptsd_screening"},
		},
		{
			ID:   "anxiety",
			Name: "Anxiety",
			TriggerIndicators: []models.Indicator{
				models.IndicatorWorry,
				models.IndicatorRumination,
				models.IndicatorHypervigilance,
			},
			IndicatorThreshold:         2,
			ScoreThreshold:             models.FloatPtr(4.0),
			Trait:                      models.TraitAnxiety,
			PriorityBoostSubcategories: []string{"anxiety"},
			AddedSubcategories:         []string{"anxiety_depth"},
		},
		{
			ID:                         "audhd",
			Name:                       "Combined ADHD and autism",
			CombinedOf:                 []string{"adhd", "autism"},
			PriorityBoostSubcategories: []string{"executive_function", "social_communication"},
			AddedSubcategories:         []string{"audhd_profile"},
		},
	}
}

// ValidatePathwayTable checks a pathway table at load time. Unknown
// indicators are rejected here so they can never silently fail to match.
func ValidatePathwayTable(table []models.Pathway) error {
	ids := make(map[string]bool, len(table))
	for i, p := range table {
		if p.ID == "" {
			return validationErrorf(fmt.Sprintf("pathways[%d].id", i), "must not be empty")
		}
		if ids[p.ID] {
			return validationErrorf(fmt.Sprintf("pathways[%d].id", i), "duplicate pathway id %q", p.ID)
		}
		ids[p.ID] = true
	}

	for i, p := range table {
		field := fmt.Sprintf("pathways[%d]", i)
		if p.IsCombined() {
			if len(p.TriggerIndicators) > 0 {
				return validationErrorf(field, "combined pathway %q must not declare trigger indicators", p.ID)
			}
			for _, dep := range p.CombinedOf {
				if dep == p.ID {
					return validationErrorf(field, "pathway %q cannot combine itself", p.ID)
				}
				if !ids[dep] {
					return validationErrorf(field, "pathway %q combines unknown pathway %q", p.ID, dep)
				}
			}
			continue
		}

		if len(p.TriggerIndicators) == 0 {
			return validationErrorf(field, "pathway %q needs trigger indicators or combined_of", p.ID)
		}
		for _, ind := range p.TriggerIndicators {
			if err := models.ValidateIndicator(ind); err != nil {
				return validationErrorf(field, "pathway %q: %v", p.ID, err)
			}
		}
		if p.IndicatorThreshold <= 0 {
			return validationErrorf(field, "pathway %q: indicator_threshold must be positive, got %d", p.ID, p.IndicatorThreshold)
		}
		if p.ScoreThreshold != nil {
			if err := models.ValidateTrait(p.ScoreTrait()); err != nil {
				return validationErrorf(field, "pathway %q: score threshold trait: %v", p.ID, err)
			}
		}
	}
	return nil
}

// LoadPathwayTable reads and validates a YAML pathway table. A missing file
// yields the default table.
func LoadPathwayTable(path string) ([]models.Pathway, error) {
	if path == "" {
		return DefaultPathways(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPathways(), nil
		}
		return nil, fmt.Errorf("reading pathway table: %w", err)
	}

	var table models.PathwayTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing pathway table: %w", err)
	}
	if err := ValidatePathwayTable(table.Pathways); err != nil {
		return nil, err
	}
	return table.Pathways, nil
}

// EvaluatePathways returns the pathways that newly fire for the given
// pattern, in declaration order. Indicator-driven pathways are evaluated
// first; combined pathways are then iterated to a fixed point against the
// already-active set plus everything fired in this call.
func EvaluatePathways(pattern PatternSummary, table []models.Pathway, alreadyActive []string) []PathwayActivation {
	active := make(map[string]bool, len(alreadyActive))
	for _, id := range alreadyActive {
		active[id] = true
	}

	fired := make(map[string][]string)

	for _, p := range table {
		if p.IsCombined() || active[p.ID] {
			continue
		}
		matches := 0
		var triggers []string
		for _, ind := range p.TriggerIndicators {
			if n := pattern.IndicatorCounts[string(ind)]; n > 0 {
				matches += n
				triggers = append(triggers, string(ind))
			}
		}
		if matches < p.IndicatorThreshold {
			continue
		}
		if p.ScoreThreshold != nil && pattern.TraitSums[p.ScoreTrait()] < *p.ScoreThreshold {
			continue
		}
		fired[p.ID] = triggers
	}

	for changed := true; changed; {
		changed = false
		for _, p := range table {
			if !p.IsCombined() || active[p.ID] {
				continue
			}
			if _, done := fired[p.ID]; done {
				continue
			}
			ready := true
			for _, dep := range p.CombinedOf {
				if _, ok := fired[dep]; !ok && !active[dep] {
					ready = false
					break
				}
			}
			if ready {
				fired[p.ID] = append([]string(nil), p.CombinedOf...)
				changed = true
			}
		}
	}

	var out []PathwayActivation
	for _, p := range table {
		if triggers, ok := fired[p.ID]; ok {
			out = append(out, PathwayActivation{Pathway: p, Triggers: triggers})
		}
	}
	return out
}

// pathwayIndex resolves pathway IDs against a table.
func pathwayIndex(table []models.Pathway) map[string]models.Pathway {
	idx := make(map[string]models.Pathway, len(table))
	for _, p := range table {
		idx[p.ID] = p
	}
	return idx
}
