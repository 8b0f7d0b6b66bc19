package models

import "time"

// ResponseEvent is one answered item. Trait weights and markers are copied
// from the question at answer time so later catalog edits never change a
// stored session.
type ResponseEvent struct {
	QuestionID             string            `yaml:"question_id" json:"question_id"`
	RawValue               string            `yaml:"raw_value,omitempty" json:"raw_value,omitempty"`
	Score                  *int              `yaml:"score,omitempty" json:"score,omitempty"`
	ResponseTimeMs         *int              `yaml:"response_time_ms,omitempty" json:"response_time_ms,omitempty"`
	Category               string            `yaml:"category" json:"category"`
	Subcategory            string            `yaml:"subcategory,omitempty" json:"subcategory,omitempty"`
	TraitWeights           map[Trait]float64 `yaml:"trait_weights,omitempty" json:"trait_weights,omitempty"`
	PersonalizationMarkers []string          `yaml:"markers,omitempty" json:"markers,omitempty"`
	AnsweredAt             time.Time         `yaml:"answered_at,omitempty" json:"answered_at,omitempty"`
}

// ScoreOr returns the score, or def when the score is absent.
func (r ResponseEvent) ScoreOr(def int) int {
	if r.Score == nil {
		return def
	}
	return *r.Score
}

// NewResponse builds a ResponseEvent for the given question and score,
// copying the question's category, weights and markers.
func NewResponse(q Question, score int) ResponseEvent {
	s := score
	weights := make(map[Trait]float64, len(q.TraitWeights))
	for t, w := range q.TraitWeights {
		weights[t] = w
	}
	var markers []string
	if len(q.PersonalizationMarkers) > 0 {
		markers = append(markers, q.PersonalizationMarkers...)
	}
	return ResponseEvent{
		QuestionID:             q.ID,
		Score:                  &s,
		Category:               q.Category,
		Subcategory:            q.Subcategory,
		TraitWeights:           weights,
		PersonalizationMarkers: markers,
	}
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
