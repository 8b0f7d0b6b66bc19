package core

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// PlanSlice is one category group of the initial batch.
type PlanSlice struct {
	Name       string                `json:"name"`
	Categories []string              `json:"categories"`
	Tiers      []models.QuestionTier `json:"tiers,omitempty"`
	Count      int                   `json:"count"`
}

// BudgetPlan is the allocation of a tier's question budget.
type BudgetPlan struct {
	Tier         models.SessionTier     `json:"tier"`
	TotalBudget  int                    `json:"total_budget"`
	Phases       models.PhaseBoundaries `json:"phases"`
	InitialBatch int                    `json:"initial_batch"`
	Adaptive     int                    `json:"adaptive"`
	Slices       []PlanSlice            `json:"slices"`
}

// PhaseFor derives the session phase from the share of the budget answered.
func PhaseFor(state *models.SessionState, b models.PhaseBoundaries) models.Phase {
	if state.TotalBudget <= 0 {
		return models.PhaseCore
	}
	ratio := float64(len(state.Responses)) / float64(state.TotalBudget)
	switch {
	case ratio < b.BranchingAt:
		return models.PhaseCore
	case ratio <= b.RefinementAt:
		return models.PhaseBranching
	default:
		return models.PhaseRefinement
	}
}

// Planner allocates budgets and draws the initial batch.
type Planner struct {
	catalog QuestionCatalog
	cfg     models.EngineConfig
}

// NewPlanner creates a Planner reading from the given catalog.
func NewPlanner(catalog QuestionCatalog, cfg models.EngineConfig) *Planner {
	return &Planner{catalog: catalog, cfg: cfg}
}

// Plan returns the budget allocation for a tier.
func (p *Planner) Plan(tier models.SessionTier) (BudgetPlan, error) {
	if err := models.ValidateSessionTier(tier); err != nil {
		return BudgetPlan{}, &ValidationError{Field: "tier", Reason: err.Error()}
	}
	budget, ok := p.cfg.Budgets[tier]
	if !ok || budget <= 0 {
		return BudgetPlan{}, validationErrorf("tier", "no budget configured for %q", tier)
	}

	initial := int(math.Round(p.cfg.InitialRatio * float64(budget)))
	if initial > budget {
		initial = budget
	}

	plan := BudgetPlan{
		Tier:         tier,
		TotalBudget:  budget,
		Phases:       p.cfg.Phases,
		InitialBatch: initial,
		Adaptive:     budget - initial,
	}

	screening := PlanSlice{
		Name:       "neurodiversity-screening",
		Categories: []string{models.CategoryNeurodiversity},
		Tiers:      []models.QuestionTier{models.QuestionTierScreening},
	}

	switch tier {
	case models.TierQuick:
		plan.Slices = []PlanSlice{personalitySlice(initial)}
	case models.TierStandard:
		personality := int(math.Round(0.6 * float64(initial)))
		screening.Count = initial - personality
		plan.Slices = []PlanSlice{personalitySlice(personality), screening}
	case models.TierDeep:
		personality := int(math.Round(0.5 * float64(initial)))
		screening.Count = int(math.Round(0.3 * float64(initial)))
		rest := initial - personality - screening.Count
		plan.Slices = []PlanSlice{personalitySlice(personality), screening}
		deepCats := []string{
			models.CategoryCognitiveFunctions,
			models.CategoryEnneagram,
			models.CategoryAttachment,
		}
		for i, cat := range deepCats {
			n := rest / len(deepCats)
			if i < rest%len(deepCats) {
				n++
			}
			plan.Slices = append(plan.Slices, PlanSlice{Name: cat, Categories: []string{cat}, Count: n})
		}
	}
	return plan, nil
}

func personalitySlice(n int) PlanSlice {
	return PlanSlice{
		Name:       models.CategoryPersonality,
		Categories: []string{models.CategoryPersonality},
		Count:      n,
	}
}

// InitialBatch draws the first batch for a fresh session. Within a slice,
// candidates are ranked by base priority with ties broken by rng, so a seeded
// source gives a reproducible batch. A slice that comes up short passes its
// shortfall to the next slice.
func (p *Planner) InitialBatch(state *models.SessionState, rng *rand.Rand) ([]models.Question, error) {
	plan, err := p.Plan(state.Tier)
	if err != nil {
		return nil, err
	}

	access := p.cfg.TierAccess[state.Tier]
	excluded := append([]string(nil), state.AskedQuestionIDs...)
	var batch []models.Question
	carry := 0

	for _, slice := range plan.Slices {
		want := slice.Count + carry
		if want <= 0 {
			continue
		}
		tiers := access
		if len(slice.Tiers) > 0 {
			tiers = intersectTiers(slice.Tiers, access)
			if len(tiers) == 0 {
				carry = want
				continue
			}
		}

		candidates, err := p.catalog.Find(models.QuestionFilter{
			Categories:  slice.Categories,
			Tiers:       tiers,
			ExcludedIDs: excluded,
		})
		if err != nil {
			return nil, fmt.Errorf("querying catalog for %s slice: %w", slice.Name, err)
		}

		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].BasePriority > candidates[j].BasePriority
		})

		n := want
		if n > len(candidates) {
			n = len(candidates)
		}
		for _, q := range candidates[:n] {
			batch = append(batch, q)
			excluded = append(excluded, q.ID)
		}
		carry = want - n
	}

	if len(batch) == 0 {
		return nil, ErrExhaustedCatalog
	}
	return batch, nil
}

func intersectTiers(a, b []models.QuestionTier) []models.QuestionTier {
	allowed := make(map[models.QuestionTier]bool, len(b))
	for _, t := range b {
		allowed[t] = true
	}
	var out []models.QuestionTier
	for _, t := range a {
		if allowed[t] {
			out = append(out, t)
		}
	}
	return out
}

// NewRand returns a deterministic random source for the given seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}
