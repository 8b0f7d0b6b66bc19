package core

import (
	"fmt"
	"sort"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// QuestionCatalog is the read-only catalog accessor the selector queries.
// Implementations must be safe for concurrent reads.
type QuestionCatalog interface {
	Find(filter models.QuestionFilter) ([]models.Question, error)
}

// coreCategories are queried while a session is still in the core phase.
var coreCategories = []string{models.CategoryPersonality, models.CategoryNeurodiversity}

// Selection is the outcome of one selector call.
type Selection struct {
	Questions []models.Question
	// Broadened is set when the narrowed query came up short and the
	// category and subcategory filters were dropped.
	Broadened bool
	// Exhausted is set when fewer than the requested number of questions
	// could be returned even after broadening.
	Exhausted bool
}

// Selector ranks unasked catalog questions for a session.
type Selector struct {
	catalog  QuestionCatalog
	pathways map[string]models.Pathway
	cfg      models.EngineConfig
	events   EventLogger
}

// NewSelector creates a Selector over the given catalog and pathway table.
// events may be nil.
func NewSelector(catalog QuestionCatalog, pathways []models.Pathway, cfg models.EngineConfig, events EventLogger) *Selector {
	return &Selector{
		catalog:  catalog,
		pathways: pathwayIndex(pathways),
		cfg:      cfg,
		events:   events,
	}
}

// rankContext is everything priority needs besides the question itself.
type rankContext struct {
	weights   models.SelectionWeights
	pattern   PatternSummary
	boostSubs map[string]bool
	addedSubs map[string]bool

	// askedByCategory counts every presented question, answered or not.
	askedByCategory map[string]int
}

// SelectNext returns the next batch for the session. fired holds pathways
// that activated in the current step; they are merged with the session's
// active pathways. Ranking is deterministic: descending priority, ties by
// catalog order.
func (s *Selector) SelectNext(state *models.SessionState, pattern PatternSummary, fired []models.Pathway, batchSize int) (Selection, error) {
	if batchSize <= 0 {
		return Selection{}, nil
	}

	rc := rankContext{
		weights:   s.cfg.Selection,
		pattern:   pattern,
		boostSubs: make(map[string]bool),
		addedSubs: make(map[string]bool),

		askedByCategory: s.askedCategoryCounts(state),
	}
	apply := func(p models.Pathway) {
		for _, sub := range p.PriorityBoostSubcategories {
			rc.boostSubs[sub] = true
		}
		for _, sub := range p.AddedSubcategories {
			rc.addedSubs[sub] = true
		}
	}
	for _, p := range fired {
		apply(p)
	}
	for _, id := range state.ActivePathways {
		if p, ok := s.pathways[id]; ok {
			apply(p)
		}
	}

	base := models.QuestionFilter{
		Tiers:       s.cfg.TierAccess[state.Tier],
		ExcludedIDs: append([]string(nil), state.AskedQuestionIDs...),
	}

	narrowed := base
	switch PhaseFor(state, s.cfg.Phases) {
	case models.PhaseCore:
		narrowed.Categories = coreCategories
	case models.PhaseBranching:
		narrowed.Subcategories = sortedKeys(rc.boostSubs, rc.addedSubs)
	}

	candidates, err := s.find(state, narrowed)
	if err != nil {
		return Selection{}, err
	}

	// A query without category or subcategory filters is already as broad
	// as it gets.
	restricted := len(narrowed.Categories) > 0 || len(narrowed.Subcategories) > 0

	var sel Selection
	if len(candidates) < batchSize && restricted {
		sel.Broadened = true
		candidates, err = s.find(state, base)
		if err != nil {
			return Selection{}, err
		}
		logEvent(s.events, EventSelectionBroadened, map[string]any{
			"session_id": state.ID,
			"requested":  batchSize,
			"available":  len(candidates),
		})
	}

	if len(candidates) == 0 {
		logEvent(s.events, EventSelectionExhausted, map[string]any{
			"session_id": state.ID,
			"requested":  batchSize,
			"available":  0,
		})
		return Selection{Broadened: sel.Broadened, Exhausted: true}, ErrExhaustedCatalog
	}

	scores := make([]float64, len(candidates))
	order := make([]int, len(candidates))
	for i, q := range candidates {
		scores[i] = priority(q, rc)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	n := batchSize
	if n > len(order) {
		n = len(order)
		sel.Exhausted = true
		logEvent(s.events, EventSelectionExhausted, map[string]any{
			"session_id": state.ID,
			"requested":  batchSize,
			"available":  n,
		})
	}
	sel.Questions = make([]models.Question, n)
	for i := 0; i < n; i++ {
		sel.Questions[i] = candidates[order[i]]
	}
	return sel, nil
}

// find queries the catalog and drops anything already asked, in case the
// accessor ignores ExcludedIDs.
func (s *Selector) find(state *models.SessionState, filter models.QuestionFilter) ([]models.Question, error) {
	qs, err := s.catalog.Find(filter)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	asked := make(map[string]bool, len(state.AskedQuestionIDs))
	for _, id := range state.AskedQuestionIDs {
		asked[id] = true
	}
	out := qs[:0:0]
	seen := make(map[string]bool, len(qs))
	for _, q := range qs {
		if asked[q.ID] || seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out, nil
}

// askedCategoryCounts counts presented questions per category. Answered
// questions carry their category; pending ones are resolved through the
// catalog when it supports lookups by ID.
func (s *Selector) askedCategoryCounts(state *models.SessionState) map[string]int {
	counts := make(map[string]int)
	answered := make(map[string]bool, len(state.Responses))
	for _, r := range state.Responses {
		answered[r.QuestionID] = true
		counts[r.Category]++
	}
	lookup, ok := s.catalog.(QuestionLookup)
	if !ok {
		return counts
	}
	for _, id := range state.AskedQuestionIDs {
		if answered[id] {
			continue
		}
		if q, found := lookup.Get(id); found {
			counts[q.Category]++
		}
	}
	return counts
}

// priority scores one candidate question.
func priority(q models.Question, rc rankContext) float64 {
	w := rc.weights
	p := q.BasePriority

	if q.Subcategory != "" && rc.boostSubs[q.Subcategory] {
		p += w.PathwayBoost
	}
	if q.Subcategory != "" && rc.addedSubs[q.Subcategory] {
		p += w.AddedSubcategoryBoost
	}

	// Sum in trait order so the float result does not depend on map order.
	traits := make([]models.Trait, 0, len(q.TraitWeights))
	for t := range q.TraitWeights {
		traits = append(traits, t)
	}
	sort.Slice(traits, func(i, j int) bool { return traits[i] < traits[j] })
	for _, t := range traits {
		if sum := rc.pattern.TraitSums[t]; sum > w.TraitSignalThreshold {
			p += w.TraitMultiplier * sum
		}
	}

	if isRedundant(q, rc) {
		p -= w.RedundancyPenalty
	}

	switch {
	case rc.pattern.ResponseStyle == models.StyleExtreme && q.ResponseType == models.ResponseForcedChoice:
		p += w.ExtremeForcedChoiceBonus
	case rc.pattern.ResponseStyle == models.StyleCentral && q.ResponseType == models.ResponseSlider:
		p += w.CentralSliderBonus
	}
	return p
}

// isRedundant reports whether the question's primary trait is already
// saturated or its category has hit its cap of presented questions.
func isRedundant(q models.Question, rc rankContext) bool {
	if t, ok := q.PrimaryTrait(); ok && rc.pattern.TraitSums[t] > rc.weights.RedundancyTraitCutoff {
		return true
	}
	if limit, ok := rc.weights.CategoryCaps[q.Category]; ok && rc.askedByCategory[q.Category] >= limit {
		return true
	}
	return false
}

func sortedKeys(sets ...map[string]bool) []string {
	merged := make(map[string]bool)
	for _, set := range sets {
		for k := range set {
			merged[k] = true
		}
	}
	if len(merged) == 0 {
		return nil
	}
	out := make([]string, 0, len(merged))
	for k := range merged {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
