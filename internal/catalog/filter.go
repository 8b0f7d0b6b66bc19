package catalog

import "github.com/valter-silva-au/adaptive-assessment/pkg/models"

// Matches reports whether q satisfies every non-empty field of f.
func Matches(q models.Question, f models.QuestionFilter) bool {
	if len(f.Categories) > 0 && !contains(f.Categories, q.Category) {
		return false
	}
	if len(f.Subcategories) > 0 && !contains(f.Subcategories, q.Subcategory) {
		return false
	}
	if len(f.Tiers) > 0 && !contains(f.Tiers, q.Tier) {
		return false
	}
	if len(f.ResponseTypes) > 0 && !contains(f.ResponseTypes, q.ResponseType) {
		return false
	}
	if len(f.ExcludedIDs) > 0 && contains(f.ExcludedIDs, q.ID) {
		return false
	}
	return true
}

// Apply returns the questions of qs matching f, preserving order and
// honoring f.Limit.
func Apply(qs []models.Question, f models.QuestionFilter) []models.Question {
	var excluded map[string]bool
	if len(f.ExcludedIDs) > 8 {
		excluded = make(map[string]bool, len(f.ExcludedIDs))
		for _, id := range f.ExcludedIDs {
			excluded[id] = true
		}
		f.ExcludedIDs = nil
	}

	var out []models.Question
	for _, q := range qs {
		if excluded[q.ID] || !Matches(q, f) {
			continue
		}
		out = append(out, q)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
