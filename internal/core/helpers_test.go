package core

import (
	"fmt"
	"sync"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// sliceCatalog is an in-memory QuestionCatalog that preserves insertion
// order and counts queries.
type sliceCatalog struct {
	questions []models.Question

	mu    sync.Mutex
	calls []models.QuestionFilter
}

func newSliceCatalog(qs ...models.Question) *sliceCatalog {
	return &sliceCatalog{questions: qs}
}

func (c *sliceCatalog) Get(id string) (models.Question, bool) {
	for _, q := range c.questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

func (c *sliceCatalog) Find(f models.QuestionFilter) ([]models.Question, error) {
	c.mu.Lock()
	c.calls = append(c.calls, f)
	c.mu.Unlock()

	in := func(s string, set []string) bool {
		for _, v := range set {
			if v == s {
				return true
			}
		}
		return false
	}
	var out []models.Question
	for _, q := range c.questions {
		if len(f.Categories) > 0 && !in(q.Category, f.Categories) {
			continue
		}
		if len(f.Subcategories) > 0 && !in(q.Subcategory, f.Subcategories) {
			continue
		}
		if len(f.Tiers) > 0 {
			ok := false
			for _, t := range f.Tiers {
				if t == q.Tier {
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		if in(q.ID, f.ExcludedIDs) {
			continue
		}
		out = append(out, q)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// recordingLogger collects logged events.
type recordingLogger struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingLogger) LogEvent(eventType string, _ map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, eventType)
	return nil
}

func (l *recordingLogger) count(eventType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e == eventType {
			n++
		}
	}
	return n
}

func question(id, category string, priority float64) models.Question {
	return models.Question{
		ID:           id,
		Category:     category,
		Tier:         models.QuestionTierCore,
		BasePriority: priority,
		ResponseType: models.ResponseLikert,
		TraitWeights: map[models.Trait]float64{models.TraitOpenness: 1},
	}
}

func response(id, category string, score int, markers ...string) models.ResponseEvent {
	return models.ResponseEvent{
		QuestionID:             id,
		Score:                  models.IntPtr(score),
		Category:               category,
		TraitWeights:           map[models.Trait]float64{models.TraitOpenness: 1},
		PersonalizationMarkers: markers,
	}
}

// testCatalog builds a catalog large enough to run a deep session end to
// end: every category, several subcategories and markers.
func testCatalog() *sliceCatalog {
	var qs []models.Question
	add := func(prefix, category, sub string, tier models.QuestionTier, n int, trait models.Trait, markers ...string) {
		for i := 0; i < n; i++ {
			qs = append(qs, models.Question{
				ID:                     fmt.Sprintf("%s-%02d", prefix, i),
				Category:               category,
				Subcategory:            sub,
				Tier:                   tier,
				BasePriority:           float64(50 - i%7),
				ResponseType:           models.ResponseLikert,
				ReverseScored:          i%4 == 3,
				TraitWeights:           map[models.Trait]float64{trait: 1},
				PersonalizationMarkers: markers,
			})
		}
	}
	add("big5-o", models.CategoryPersonality, "openness", models.QuestionTierCore, 8, models.TraitOpenness)
	add("big5-c", models.CategoryPersonality, "conscientiousness", models.QuestionTierCore, 8, models.TraitConscientiousness)
	add("big5-e", models.CategoryPersonality, "extraversion", models.QuestionTierFree, 8, models.TraitExtraversion)
	add("big5-a", models.CategoryPersonality, "agreeableness", models.QuestionTierFree, 8, models.TraitAgreeableness)
	add("big5-n", models.CategoryPersonality, "neuroticism", models.QuestionTierCore, 8, models.TraitNeuroticism, "worry")
	add("nd-ef", models.CategoryNeurodiversity, "executive_function", models.QuestionTierScreening, 8, models.TraitExecutiveFunction, "executive_function")
	add("nd-att", models.CategoryNeurodiversity, "attention", models.QuestionTierScreening, 8, models.TraitADHD, "attention_difficulty")
	add("nd-soc", models.CategoryNeurodiversity, "social_communication", models.QuestionTierScreening, 8, models.TraitAutism, "social_communication")
	add("nd-sen", models.CategoryNeurodiversity, "sensory", models.QuestionTierStandard, 8, models.TraitSensoryProcessing, "sensory_sensitivity")
	add("nd-adhd", models.CategoryNeurodiversity, "adhd_deep_dive", models.QuestionTierComprehensive, 6, models.TraitADHD, "hyperactivity")
	add("mh-anx", models.CategoryMentalHealth, "anxiety", models.QuestionTierStandard, 6, models.TraitAnxiety, "rumination")
	add("mh-tr", models.CategoryMentalHealth, "trauma_response", models.QuestionTierStandard, 6, models.TraitTrauma, "hypervigilance")
	add("cf", models.CategoryCognitiveFunctions, "", models.QuestionTierDeep, 8, models.TraitCognitiveComplexity, "pattern_recognition")
	add("enn", models.CategoryEnneagram, "", models.QuestionTierDeep, 6, models.TraitEmotionalRegulation)
	add("att", models.CategoryAttachment, "", models.QuestionTierSpecialized, 6, models.TraitAttachmentSecurity)
	return newSliceCatalog(qs...)
}
