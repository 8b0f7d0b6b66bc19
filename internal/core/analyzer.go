// Package core contains the adaptive assessment engine: response pattern
// analysis, pathway evaluation, question selection, budget planning and
// scoring. Everything here is pure and CPU-bound; catalog access and
// persistence are delegated through small interfaces.
package core

import (
	"math"
	"sort"
	"strconv"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

const (
	// extremeFraction is the share of min/max answers above which a
	// respondent is classified as extreme.
	extremeFraction = 0.6
	// centralFraction is the share of midpoint answers above which a
	// respondent is classified as central.
	centralFraction = 0.5

	varianceCutoff  = 0.5
	highConsistency = 1.0
	lowConsistency  = 0.7
)

// PatternSummary is the aggregate signal of a response list.
type PatternSummary struct {
	Count           int
	TraitSums       map[models.Trait]float64
	AverageScore    float64
	ResponseStyle   models.ResponseStyle
	Variance        float64
	StdDev          float64
	Consistency     float64
	Indicators      []string
	IndicatorCounts map[string]int
	// CategoryCounts is the number of answered responses per category.
	CategoryCounts map[string]int
	// HighByCategory is the number of top-of-scale responses per category.
	HighByCategory   map[string]int
	Coerced          int
	UnknownTraitKeys int
}

// HasIndicator reports whether the marker fired at least once.
func (p PatternSummary) HasIndicator(ind models.Indicator) bool {
	return p.IndicatorCounts[string(ind)] > 0
}

// HasAnyIndicator reports whether any of the markers fired.
func (p PatternSummary) HasAnyIndicator(inds []models.Indicator) bool {
	for _, ind := range inds {
		if p.HasIndicator(ind) {
			return true
		}
	}
	return false
}

// normalizedScore returns the response score, or the scale midpoint when the
// score is missing or outside the scale. The second value reports whether a
// substitution happened.
func normalizedScore(r models.ResponseEvent, scale models.Scale) (int, bool) {
	if r.Score == nil || !scale.Contains(*r.Score) {
		return scale.Midpoint, true
	}
	return *r.Score, false
}

// Analyze reduces the responses so far into a PatternSummary. It has no side
// effects and is safe to call after every answer.
func Analyze(responses []models.ResponseEvent, scale models.Scale) PatternSummary {
	p := PatternSummary{
		Count:           len(responses),
		TraitSums:       make(map[models.Trait]float64),
		ResponseStyle:   models.StyleBalanced,
		Consistency:     highConsistency,
		IndicatorCounts: make(map[string]int),
		CategoryCounts:  make(map[string]int),
		HighByCategory:  make(map[string]int),
	}
	if len(responses) == 0 {
		return p
	}

	scores := make([]float64, len(responses))
	var sum float64
	var atExtreme, atMid int
	indicatorSet := make(map[string]bool)

	for i, r := range responses {
		score, coerced := normalizedScore(r, scale)
		if coerced {
			p.Coerced++
		}
		scores[i] = float64(score)
		sum += float64(score)

		if score == scale.Min || score == scale.Max {
			atExtreme++
		}
		if score == scale.Midpoint {
			atMid++
		}

		for trait, weight := range r.TraitWeights {
			if !trait.IsValid() {
				p.UnknownTraitKeys++
				continue
			}
			p.TraitSums[trait] += weight * float64(score)
		}

		p.CategoryCounts[r.Category]++
		if score >= scale.HighThreshold {
			p.HighByCategory[r.Category]++
			for _, m := range r.PersonalizationMarkers {
				p.IndicatorCounts[m]++
				indicatorSet[m] = true
			}
		}
	}

	n := float64(len(responses))
	p.AverageScore = sum / n

	switch {
	case float64(atExtreme)/n > extremeFraction:
		p.ResponseStyle = models.StyleExtreme
	case float64(atMid)/n > centralFraction:
		p.ResponseStyle = models.StyleCentral
	}

	var sq float64
	for _, s := range scores {
		d := s - p.AverageScore
		sq += d * d
	}
	p.Variance = sq / n
	p.StdDev = math.Sqrt(p.Variance)
	if p.Variance >= varianceCutoff {
		p.Consistency = lowConsistency
	}

	p.Indicators = make([]string, 0, len(indicatorSet))
	for m := range indicatorSet {
		p.Indicators = append(p.Indicators, m)
	}
	sort.Strings(p.Indicators)

	return p
}

// ResponseFor builds a response to q from a raw scale value, reversing the
// value for reverse-scored questions.
func ResponseFor(q models.Question, raw int, scale models.Scale) models.ResponseEvent {
	r := models.NewResponse(q, scoredValue(q, raw, scale))
	r.RawValue = strconv.Itoa(raw)
	return r
}

// scoredValue maps a raw scale value to the score recorded for q. Values off
// the scale are returned unchanged so the engine can coerce them.
func scoredValue(q models.Question, raw int, scale models.Scale) int {
	if q.ReverseScored && scale.Contains(raw) {
		return scale.Max + scale.Min - raw
	}
	return raw
}
