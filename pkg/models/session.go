package models

import (
	"fmt"
	"time"
)

// SessionTier is an assessment length preset.
type SessionTier string

const (
	TierQuick    SessionTier = "quick"
	TierStandard SessionTier = "standard"
	TierDeep     SessionTier = "deep"
)

var validSessionTiers = map[SessionTier]bool{
	TierQuick:    true,
	TierStandard: true,
	TierDeep:     true,
}

// ValidateSessionTier returns an error if the tier is not recognized.
func ValidateSessionTier(t SessionTier) error {
	if !validSessionTiers[t] {
		return fmt.Errorf("invalid tier %q: must be one of: quick, standard, deep", t)
	}
	return nil
}

// Phase is the stage of a session, derived from how much budget is used.
type Phase string

const (
	PhaseCore       Phase = "core"
	PhaseBranching  Phase = "branching"
	PhaseRefinement Phase = "refinement"
)

// BranchingLogEntry records one pathway activation.
type BranchingLogEntry struct {
	PathwayID    string   `yaml:"pathway_id" json:"pathway_id"`
	FiredAtIndex int      `yaml:"fired_at_index" json:"fired_at_index"`
	Triggers     []string `yaml:"triggers,omitempty" json:"triggers,omitempty"`
}

// SessionState is the adaptation state of one questionnaire. The caller owns
// it; the engine never keeps a reference between calls.
type SessionState struct {
	ID               string              `yaml:"id" json:"id"`
	Tier             SessionTier         `yaml:"tier" json:"tier"`
	TotalBudget      int                 `yaml:"total_budget" json:"total_budget"`
	Responses        []ResponseEvent     `yaml:"responses" json:"responses"`
	AskedQuestionIDs []string            `yaml:"asked_question_ids" json:"asked_question_ids"`
	ActivePathways   []string            `yaml:"active_pathways" json:"active_pathways"`
	BranchingLog     []BranchingLogEntry `yaml:"branching_log,omitempty" json:"branching_log,omitempty"`
	Phase            Phase               `yaml:"phase" json:"phase"`
	CoercedResponses int                 `yaml:"coerced_responses,omitempty" json:"coerced_responses,omitempty"`
	UnknownTraitKeys int                 `yaml:"unknown_trait_keys,omitempty" json:"unknown_trait_keys,omitempty"`
	Completed        bool                `yaml:"completed" json:"completed"`
	Seed             int64               `yaml:"seed" json:"seed"`
	CreatedAt        time.Time           `yaml:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `yaml:"updated_at" json:"updated_at"`
}

// HasAsked reports whether the question was already presented.
func (s *SessionState) HasAsked(id string) bool {
	for _, asked := range s.AskedQuestionIDs {
		if asked == id {
			return true
		}
	}
	return false
}

// HasAnswered reports whether a response for the question was recorded.
func (s *SessionState) HasAnswered(id string) bool {
	for _, r := range s.Responses {
		if r.QuestionID == id {
			return true
		}
	}
	return false
}

// IsActive reports whether the pathway has fired in this session.
func (s *SessionState) IsActive(pathwayID string) bool {
	for _, id := range s.ActivePathways {
		if id == pathwayID {
			return true
		}
	}
	return false
}

// Remaining returns how many more questions may still be presented.
func (s *SessionState) Remaining() int {
	n := s.TotalBudget - len(s.AskedQuestionIDs)
	if n < 0 {
		return 0
	}
	return n
}

// PercentComplete returns answered responses as a whole percentage of the
// budget.
func (s *SessionState) PercentComplete() int {
	if s.TotalBudget <= 0 {
		return 0
	}
	return (len(s.Responses)*100 + s.TotalBudget/2) / s.TotalBudget
}

// SessionSummary is the index entry for a stored session.
type SessionSummary struct {
	ID             string      `yaml:"id"`
	Tier           SessionTier `yaml:"tier"`
	Phase          Phase       `yaml:"phase"`
	Responses      int         `yaml:"responses"`
	TotalBudget    int         `yaml:"total_budget"`
	ActivePathways []string    `yaml:"active_pathways,omitempty"`
	Completed      bool        `yaml:"completed"`
	HasReport      bool        `yaml:"has_report"`
	CreatedAt      time.Time   `yaml:"created_at"`
	UpdatedAt      time.Time   `yaml:"updated_at"`
}

// SessionFilter specifies criteria for listing stored sessions.
type SessionFilter struct {
	Tier          SessionTier
	Completed     *bool
	WithoutReport bool
	Since         *time.Time
}

// SessionIndex is the master index of all stored sessions.
type SessionIndex struct {
	Version  string           `yaml:"version"`
	Sessions []SessionSummary `yaml:"sessions"`
}
