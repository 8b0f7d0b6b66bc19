package catalog

import (
	"fmt"

	"github.com/valter-silva-au/adaptive-assessment/internal/core"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// Validate checks a question list at load time: IDs must be present and
// unique, and tiers, response types and trait keys must be known.
func Validate(qs []models.Question) error {
	seen := make(map[string]bool, len(qs))
	for i, q := range qs {
		field := fmt.Sprintf("questions[%d]", i)
		if q.ID == "" {
			return &core.ValidationError{Field: field + ".id", Reason: "must not be empty"}
		}
		if seen[q.ID] {
			return &core.ValidationError{Field: field + ".id", Reason: fmt.Sprintf("duplicate question id %q", q.ID)}
		}
		seen[q.ID] = true

		if q.Category == "" {
			return &core.ValidationError{Field: field + ".category", Reason: fmt.Sprintf("question %q has no category", q.ID)}
		}
		if !q.Tier.IsValid() {
			return &core.ValidationError{Field: field + ".tier", Reason: fmt.Sprintf("question %q has unknown tier %q", q.ID, q.Tier)}
		}
		if !q.ResponseType.IsValid() {
			return &core.ValidationError{Field: field + ".response_type", Reason: fmt.Sprintf("question %q has unknown response type %q", q.ID, q.ResponseType)}
		}
		for t := range q.TraitWeights {
			if err := models.ValidateTrait(t); err != nil {
				return &core.ValidationError{Field: field + ".trait_weights", Reason: fmt.Sprintf("question %q: %v", q.ID, err)}
			}
		}
		for _, m := range q.PersonalizationMarkers {
			if err := models.ValidateIndicator(models.Indicator(m)); err != nil {
				return &core.ValidationError{Field: field + ".markers", Reason: fmt.Sprintf("question %q: %v", q.ID, err)}
			}
		}
	}
	return nil
}
