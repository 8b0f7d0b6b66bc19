package models

import "time"

// ResponseStyle classifies how a respondent uses the scale.
type ResponseStyle string

const (
	StyleExtreme  ResponseStyle = "extreme"
	StyleCentral  ResponseStyle = "central"
	StyleBalanced ResponseStyle = "balanced"
)

// TraitLevel is a qualitative band over a percentile.
type TraitLevel string

const (
	LevelVeryLow  TraitLevel = "very_low"
	LevelLow      TraitLevel = "low"
	LevelAverage  TraitLevel = "average"
	LevelHigh     TraitLevel = "high"
	LevelVeryHigh TraitLevel = "very_high"
)

// TraitScore is the aggregated result for one trait.
type TraitScore struct {
	Trait         Trait      `yaml:"trait" json:"trait"`
	Raw           float64    `yaml:"raw" json:"raw"`
	Percentile    int        `yaml:"percentile" json:"percentile"`
	Level         TraitLevel `yaml:"level" json:"level"`
	Contributions int        `yaml:"contributions" json:"contributions"`
}

// HiddenPattern is a rule-detected combination of signals.
type HiddenPattern struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Confidence float64  `yaml:"confidence" json:"confidence"`
	Evidence   []string `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// Profile is the qualitative archetype assigned to a report.
type Profile struct {
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
}

// QualityMetrics summarizes how trustworthy the response set is. Recoverable
// input problems are reported here instead of as errors.
type QualityMetrics struct {
	CompletionRate     float64 `yaml:"completion_rate" json:"completion_rate"`
	MeanResponseTimeMs float64 `yaml:"mean_response_time_ms" json:"mean_response_time_ms"`
	TimedResponses     int     `yaml:"timed_responses" json:"timed_responses"`
	Diversity          float64 `yaml:"diversity" json:"diversity"`
	LongestRun         int     `yaml:"longest_run" json:"longest_run"`
	StraightLining     bool    `yaml:"straight_lining" json:"straight_lining"`
	CarelessResponding bool    `yaml:"careless_responding" json:"careless_responding"`
	CoercedResponses   int     `yaml:"coerced_responses" json:"coerced_responses"`
	UnknownTraitKeys   int     `yaml:"unknown_trait_keys" json:"unknown_trait_keys"`
	LowValidity        bool    `yaml:"low_validity" json:"low_validity"`
}

// Report is the final output of a completed session.
type Report struct {
	ID              string          `yaml:"id" json:"id"`
	SessionID       string          `yaml:"session_id" json:"session_id"`
	Tier            SessionTier     `yaml:"tier" json:"tier"`
	GeneratedAt     time.Time       `yaml:"generated_at" json:"generated_at"`
	ResponseCount   int             `yaml:"response_count" json:"response_count"`
	Traits          []TraitScore    `yaml:"traits" json:"traits"`
	Indicators      []string        `yaml:"indicators,omitempty" json:"indicators,omitempty"`
	IndicatorCounts map[string]int  `yaml:"indicator_counts,omitempty" json:"indicator_counts,omitempty"`
	ActivePathways  []string        `yaml:"active_pathways,omitempty" json:"active_pathways,omitempty"`
	ResponseStyle   ResponseStyle   `yaml:"response_style" json:"response_style"`
	Consistency     float64         `yaml:"consistency" json:"consistency"`
	Profile         Profile         `yaml:"profile" json:"profile"`
	HiddenPatterns  []HiddenPattern `yaml:"hidden_patterns,omitempty" json:"hidden_patterns,omitempty"`
	Quality         QualityMetrics  `yaml:"quality" json:"quality"`
	Confidence      float64         `yaml:"confidence" json:"confidence"`
}

// Trait returns the score for t, if present.
func (r *Report) Trait(t Trait) (TraitScore, bool) {
	for _, ts := range r.Traits {
		if ts.Trait == t {
			return ts, true
		}
	}
	return TraitScore{}, false
}
