package catalog

import (
	"fmt"
	"testing"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
	"pgregory.net/rapid"
)

var (
	propCategories = []string{models.CategoryPersonality, models.CategoryNeurodiversity, models.CategoryMentalHealth}
	propTiers      = []models.QuestionTier{models.QuestionTierCore, models.QuestionTierScreening, models.QuestionTierDeep}
)

func genQuestions(t *rapid.T) []models.Question {
	n := rapid.IntRange(0, 40).Draw(t, "n")
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = q(
			fmt.Sprintf("q%03d", i),
			rapid.SampledFrom(propCategories).Draw(t, "category"),
			"",
			rapid.SampledFrom(propTiers).Draw(t, "tier"),
		)
	}
	return qs
}

// Feature: question-catalog, Property 6: Filtering is an order-preserving
// subsequence of matching questions.
func TestProperty6_ApplyPreservesOrderAndMatches(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		qs := genQuestions(t)
		f := models.QuestionFilter{
			Categories: rapid.SliceOfDistinct(rapid.SampledFrom(propCategories), func(s string) string { return s }).Draw(t, "categories"),
			Tiers:      rapid.SliceOfDistinct(rapid.SampledFrom(propTiers), func(s models.QuestionTier) models.QuestionTier { return s }).Draw(t, "tiers"),
			Limit:      rapid.IntRange(0, 10).Draw(t, "limit"),
		}
		for i := range qs {
			if rapid.Bool().Draw(t, "exclude") {
				f.ExcludedIDs = append(f.ExcludedIDs, qs[i].ID)
			}
		}

		got := Apply(qs, f)

		matching := 0
		for _, q := range qs {
			if Matches(q, f) {
				matching++
			}
		}
		want := matching
		if f.Limit > 0 && want > f.Limit {
			want = f.Limit
		}
		if len(got) != want {
			t.Fatalf("got %d questions, want %d", len(got), want)
		}

		pos := 0
		for _, g := range got {
			if !Matches(g, f) {
				t.Fatalf("question %s does not match the filter", g.ID)
			}
			for pos < len(qs) && qs[pos].ID != g.ID {
				pos++
			}
			if pos == len(qs) {
				t.Fatalf("question %s out of catalog order", g.ID)
			}
			pos++
		}
	})
}
