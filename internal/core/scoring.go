package core

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

const (
	straightLiningRun    = 10
	carelessResponseMs   = 1000
	carelessDiversity    = 0.3
	diversityDenominator = 7

	confidenceBase = 0.5
	confidenceCap  = 0.95
)

// Scorer turns a finished response set into a Report.
type Scorer struct {
	cfg      models.EngineConfig
	profiles []ProfileRule
	patterns []PatternRule
	now      func() time.Time
	newID    func() string
}

// NewScorer creates a Scorer with the default profile and pattern tables.
func NewScorer(cfg models.EngineConfig) *Scorer {
	return &Scorer{
		cfg:      cfg,
		profiles: DefaultProfileRules(),
		patterns: DefaultPatternRules(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// WithProfiles returns a copy of the scorer using the given profile table.
func (s *Scorer) WithProfiles(rules []ProfileRule) *Scorer {
	cp := *s
	cp.profiles = rules
	return &cp
}

// WithPatterns returns a copy of the scorer using the given hidden-pattern
// rules.
func (s *Scorer) WithPatterns(rules []PatternRule) *Scorer {
	cp := *s
	cp.patterns = rules
	return &cp
}

// Score aggregates every response of the session into a Report. Malformed
// responses are coerced and counted in the quality metrics; only an empty
// response set is an error.
func (s *Scorer) Score(state *models.SessionState) (*models.Report, error) {
	if len(state.Responses) == 0 {
		return nil, ErrEmptyResponseSet
	}

	scale := s.cfg.Scale
	pattern := Analyze(state.Responses, scale)
	traits := s.aggregateTraits(state.Responses)

	byTrait := make(map[models.Trait]models.TraitScore, len(traits))
	for _, ts := range traits {
		byTrait[ts.Trait] = ts
	}
	ctx := ScoreContext{Pattern: pattern, Traits: byTrait}

	report := &models.Report{
		ID:              s.newID(),
		SessionID:       state.ID,
		Tier:            state.Tier,
		GeneratedAt:     s.now(),
		ResponseCount:   len(state.Responses),
		Traits:          traits,
		Indicators:      pattern.Indicators,
		IndicatorCounts: pattern.IndicatorCounts,
		ActivePathways:  append([]string(nil), state.ActivePathways...),
		ResponseStyle:   pattern.ResponseStyle,
		Consistency:     pattern.Consistency,
		Profile:         MatchProfile(ctx, s.profiles),
		HiddenPatterns:  DetectPatterns(ctx, s.patterns),
		Quality:         Quality(state.Responses, state.TotalBudget, scale),
		Confidence:      Confidence(len(state.Responses), pattern.Consistency, len(state.ActivePathways)),
	}
	return report, nil
}

// aggregateTraits computes the mean of weight*score per trait over the
// responses that carry the trait, in sorted trait order.
func (s *Scorer) aggregateTraits(responses []models.ResponseEvent) []models.TraitScore {
	sums := make(map[models.Trait]float64)
	counts := make(map[models.Trait]int)
	for _, r := range responses {
		score, _ := normalizedScore(r, s.cfg.Scale)
		for t, w := range r.TraitWeights {
			if !t.IsValid() {
				continue
			}
			sums[t] += w * float64(score)
			counts[t]++
		}
	}

	var out []models.TraitScore
	for _, t := range models.KnownTraits() {
		n := counts[t]
		if n == 0 {
			continue
		}
		raw := sums[t] / float64(n)
		norm := s.cfg.NormFor(t)
		pct := Percentile(raw, norm.Mean, norm.StdDev)
		out = append(out, models.TraitScore{
			Trait:         t,
			Raw:           raw,
			Percentile:    pct,
			Level:         LevelFor(pct),
			Contributions: n,
		})
	}
	return out
}

// Quality computes the validity metrics of a response set against the
// expected total.
func Quality(responses []models.ResponseEvent, expectedTotal int, scale models.Scale) models.QualityMetrics {
	var q models.QualityMetrics
	n := len(responses)
	if n == 0 {
		return q
	}
	if expectedTotal > 0 {
		q.CompletionRate = float64(n) / float64(expectedTotal)
	}

	var totalMs int
	distinct := make(map[int]bool)
	run, prev := 0, 0
	for i, r := range responses {
		if r.ResponseTimeMs != nil {
			totalMs += *r.ResponseTimeMs
			q.TimedResponses++
		}
		score, coerced := normalizedScore(r, scale)
		if coerced {
			q.CoercedResponses++
		}
		for t := range r.TraitWeights {
			if !t.IsValid() {
				q.UnknownTraitKeys++
			}
		}
		distinct[score] = true

		if i > 0 && score == prev {
			run++
		} else {
			run = 1
		}
		prev = score
		if run > q.LongestRun {
			q.LongestRun = run
		}
	}

	if q.TimedResponses > 0 {
		q.MeanResponseTimeMs = float64(totalMs) / float64(q.TimedResponses)
	}
	denom := n
	if denom > diversityDenominator {
		denom = diversityDenominator
	}
	q.Diversity = float64(len(distinct)) / float64(denom)

	q.StraightLining = q.LongestRun > straightLiningRun
	fast := q.TimedResponses > 0 && q.MeanResponseTimeMs < carelessResponseMs
	q.CarelessResponding = fast || q.Diversity < carelessDiversity
	q.LowValidity = q.StraightLining || q.CarelessResponding
	return q
}

// Confidence is the heuristic trust level of a report, always within
// [0.5, 0.95].
func Confidence(responses int, consistency float64, pathways int) float64 {
	c := confidenceBase
	switch {
	case responses >= 75:
		c += 0.2
	case responses >= 45:
		c += 0.15
	case responses >= 20:
		c += 0.1
	}
	if consistency > 0 && !math.IsNaN(consistency) {
		c += math.Min(consistency, 1) * 0.2
	}
	if pathways > 0 {
		c += math.Min(float64(pathways)*0.05, 0.15)
	}
	return math.Min(c, confidenceCap)
}
