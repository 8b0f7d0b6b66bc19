package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// SessionIDGenerator hands out session IDs. The session store implements it
// with a counter file; defining it here keeps core independent of storage.
type SessionIDGenerator interface {
	NextSessionID() (string, error)
}

// AdvanceResult is what the caller gets back after submitting a batch.
type AdvanceResult struct {
	NextBatch         []models.Question `json:"next_batch"`
	Phase             models.Phase      `json:"phase"`
	ActivatedPathways []string          `json:"activated_pathways,omitempty"`
	PercentComplete   int               `json:"percent_complete"`
	IsComplete        bool              `json:"is_complete"`
	// Exhausted is set when the catalog could not fill the requested batch.
	// The session stays usable and can be finalized.
	Exhausted bool `json:"exhausted,omitempty"`
	Broadened bool `json:"broadened,omitempty"`
	// Pending lists questions that were presented but not yet answered.
	Pending []string `json:"pending,omitempty"`
}

// Engine runs adaptive sessions. It holds configuration and read-only
// collaborators only; all per-session state lives in the SessionState the
// caller passes in, so one Engine may serve many sessions concurrently as
// long as each session is advanced sequentially.
type Engine struct {
	cfg      models.EngineConfig
	pathways []models.Pathway
	planner  *Planner
	selector *Selector
	scorer   *Scorer
	events   EventLogger
	ids      SessionIDGenerator
	now      func() time.Time
	seed     func() int64
}

// NewEngine validates the pathway table and wires the planner, selector and
// scorer. events and ids may be nil.
func NewEngine(catalog QuestionCatalog, pathways []models.Pathway, cfg models.EngineConfig, events EventLogger, ids SessionIDGenerator) (*Engine, error) {
	if err := ValidatePathwayTable(pathways); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		pathways: pathways,
		planner:  NewPlanner(catalog, cfg),
		selector: NewSelector(catalog, pathways, cfg, events),
		scorer:   NewScorer(cfg),
		events:   events,
		ids:      ids,
		now:      func() time.Time { return time.Now().UTC() },
		seed:     func() int64 { return time.Now().UnixNano() },
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() models.EngineConfig { return e.cfg }

// Pathways returns the pathway table in declaration order.
func (e *Engine) Pathways() []models.Pathway { return e.pathways }

// Plan returns the budget allocation for a tier.
func (e *Engine) Plan(tier models.SessionTier) (BudgetPlan, error) {
	return e.planner.Plan(tier)
}

// Scorer returns the scorer used by Finalize.
func (e *Engine) Scorer() *Scorer { return e.scorer }

// SetScorer replaces the scorer, for example to swap the profile table.
func (e *Engine) SetScorer(s *Scorer) { e.scorer = s }

// StartSession creates a session for the tier and draws its initial batch
// with a time-based seed.
func (e *Engine) StartSession(tier models.SessionTier) (*models.SessionState, []models.Question, error) {
	return e.StartSessionWithSeed(tier, e.seed())
}

// StartSessionWithSeed is StartSession with an explicit seed for the
// initial-batch tie-break.
func (e *Engine) StartSessionWithSeed(tier models.SessionTier, seed int64) (*models.SessionState, []models.Question, error) {
	plan, err := e.planner.Plan(tier)
	if err != nil {
		return nil, nil, err
	}

	id, err := e.nextID()
	if err != nil {
		return nil, nil, err
	}

	now := e.now()
	state := &models.SessionState{
		ID:               id,
		Tier:             tier,
		TotalBudget:      plan.TotalBudget,
		Responses:        []models.ResponseEvent{},
		AskedQuestionIDs: []string{},
		ActivePathways:   []string{},
		Phase:            models.PhaseCore,
		Seed:             seed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	batch, err := e.planner.InitialBatch(state, NewRand(seed))
	if err != nil {
		if errors.Is(err, ErrExhaustedCatalog) {
			logEvent(e.events, EventSelectionExhausted, map[string]any{
				"session_id": id,
				"requested":  plan.InitialBatch,
				"available":  0,
			})
		}
		return nil, nil, fmt.Errorf("drawing initial batch: %w", err)
	}
	for _, q := range batch {
		state.AskedQuestionIDs = append(state.AskedQuestionIDs, q.ID)
	}

	logEvent(e.events, EventSessionStarted, map[string]any{
		"session_id":    id,
		"tier":          string(tier),
		"total_budget":  plan.TotalBudget,
		"initial_batch": len(batch),
		"seed":          seed,
	})
	return state, batch, nil
}

func (e *Engine) nextID() (string, error) {
	if e.ids == nil {
		return "AS-" + uuid.NewString()[:8], nil
	}
	id, err := e.ids.NextSessionID()
	if err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return id, nil
}

// Advance records an answered batch and returns the next one. The steps run
// in a fixed order: validate, coerce, append, analyze, evaluate pathways,
// update the phase, then select. state is modified in place.
func (e *Engine) Advance(state *models.SessionState, answered []models.ResponseEvent) (*AdvanceResult, error) {
	if state.Completed {
		return nil, ErrSessionCompleted
	}
	if err := e.validateBatch(state, answered); err != nil {
		return nil, err
	}

	now := e.now()
	for _, r := range answered {
		r = e.coerce(state, r)
		if r.AnsweredAt.IsZero() {
			r.AnsweredAt = now
		}
		state.Responses = append(state.Responses, r)
	}

	pattern := Analyze(state.Responses, e.cfg.Scale)

	result := &AdvanceResult{}
	var fired []models.Pathway
	for _, act := range EvaluatePathways(pattern, e.pathways, state.ActivePathways) {
		fired = append(fired, act.Pathway)
		state.ActivePathways = append(state.ActivePathways, act.Pathway.ID)
		state.BranchingLog = append(state.BranchingLog, models.BranchingLogEntry{
			PathwayID:    act.Pathway.ID,
			FiredAtIndex: len(state.Responses) - 1,
			Triggers:     act.Triggers,
		})
		result.ActivatedPathways = append(result.ActivatedPathways, act.Pathway.ID)
		logEvent(e.events, EventPathwayActivated, map[string]any{
			"session_id": state.ID,
			"pathway_id": act.Pathway.ID,
			"index":      len(state.Responses) - 1,
			"triggers":   act.Triggers,
		})
	}

	state.Phase = PhaseFor(state, e.cfg.Phases)
	state.UpdatedAt = now

	if len(state.Responses) >= state.TotalBudget {
		state.Completed = true
	} else if n := min(e.cfg.BatchSize, state.Remaining()); n > 0 {
		sel, err := e.selector.SelectNext(state, pattern, fired, n)
		if err != nil && !errors.Is(err, ErrExhaustedCatalog) {
			return nil, err
		}
		for _, q := range sel.Questions {
			state.AskedQuestionIDs = append(state.AskedQuestionIDs, q.ID)
		}
		result.NextBatch = sel.Questions
		result.Exhausted = sel.Exhausted
		result.Broadened = sel.Broadened
	}

	result.Phase = state.Phase
	result.PercentComplete = state.PercentComplete()
	result.IsComplete = state.Completed
	result.Pending = pendingQuestions(state)

	logEvent(e.events, EventSessionAdvanced, map[string]any{
		"session_id": state.ID,
		"answered":   len(answered),
		"responses":  len(state.Responses),
		"phase":      string(state.Phase),
		"next_batch": len(result.NextBatch),
		"complete":   state.Completed,
		"exhausted":  result.Exhausted,
	})
	return result, nil
}

// validateBatch rejects batches the session cannot accept. It does not
// inspect scores; those are coerced instead.
func (e *Engine) validateBatch(state *models.SessionState, answered []models.ResponseEvent) error {
	if len(answered) == 0 {
		return validationErrorf("answered", "batch is empty")
	}
	if len(state.Responses)+len(answered) > state.TotalBudget {
		return validationErrorf("answered", "batch of %d would exceed the budget (%d of %d answered)",
			len(answered), len(state.Responses), state.TotalBudget)
	}
	seen := make(map[string]bool, len(answered))
	for i, r := range answered {
		field := fmt.Sprintf("answered[%d].question_id", i)
		switch {
		case r.QuestionID == "":
			return validationErrorf(field, "must not be empty")
		case seen[r.QuestionID]:
			return validationErrorf(field, "question %q appears twice in the batch", r.QuestionID)
		case state.HasAnswered(r.QuestionID):
			return validationErrorf(field, "question %q was already answered", r.QuestionID)
		case !state.HasAsked(r.QuestionID):
			return validationErrorf(field, "question %q was not presented in this session", r.QuestionID)
		}
		seen[r.QuestionID] = true
	}
	return nil
}

// coerce replaces a missing or out-of-range score with the scale midpoint
// and counts unknown trait keys. Both are logged, never returned.
func (e *Engine) coerce(state *models.SessionState, r models.ResponseEvent) models.ResponseEvent {
	if _, coerced := normalizedScore(r, e.cfg.Scale); coerced {
		var original any
		if r.Score != nil {
			original = *r.Score
		}
		r.Score = models.IntPtr(e.cfg.Scale.Midpoint)
		state.CoercedResponses++
		logEvent(e.events, EventResponseCoerced, map[string]any{
			"session_id":  state.ID,
			"question_id": r.QuestionID,
			"original":    original,
			"coerced_to":  e.cfg.Scale.Midpoint,
		})
	}
	for t := range r.TraitWeights {
		if !t.IsValid() {
			state.UnknownTraitKeys++
			logEvent(e.events, EventTraitUnknown, map[string]any{
				"session_id":  state.ID,
				"question_id": r.QuestionID,
				"trait":       string(t),
			})
		}
	}
	return r
}

func pendingQuestions(state *models.SessionState) []string {
	var out []string
	for _, id := range state.AskedQuestionIDs {
		if !state.HasAnswered(id) {
			out = append(out, id)
		}
	}
	return out
}

// Finalize marks the session complete and scores it. It is the only place
// a report is produced; ErrEmptyResponseSet is its only error.
func (e *Engine) Finalize(state *models.SessionState) (*models.Report, error) {
	if len(state.Responses) == 0 {
		return nil, ErrEmptyResponseSet
	}
	state.Completed = true
	state.Phase = PhaseFor(state, e.cfg.Phases)
	state.UpdatedAt = e.now()

	report, err := e.scorer.Score(state)
	if err != nil {
		return nil, err
	}

	logEvent(e.events, EventSessionFinalized, map[string]any{
		"session_id":   state.ID,
		"report_id":    report.ID,
		"responses":    report.ResponseCount,
		"profile":      report.Profile.Label,
		"confidence":   report.Confidence,
		"low_validity": report.Quality.LowValidity,
		"pathways":     report.ActivePathways,
	})
	return report, nil
}
