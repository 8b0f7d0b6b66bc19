package core

import (
	"math"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
)

// Coefficients of the Abramowitz and Stegun 26.2.17 approximation of the
// standard normal tail. Reports are compared across releases, so these
// literals must not change.
const (
	cdfP  = 0.2316419
	cdfD  = 0.3989423
	cdfB1 = 0.3193815
	cdfB2 = -0.3565638
	cdfB3 = 1.781478
	cdfB4 = -1.821256
	cdfB5 = 1.330274
)

// Percentile converts a raw trait score into a 0-100 rank against a normal
// population with mean mu and standard deviation sigma. A non-positive sigma
// yields 50.
func Percentile(x, mu, sigma float64) int {
	if sigma <= 0 || math.IsNaN(sigma) {
		return 50
	}
	z := (x - mu) / sigma
	t := 1 / (1 + cdfP*math.Abs(z))
	density := cdfD * math.Exp(-z*z/2)
	poly := t * (cdfB1 + t*(t*(cdfB3+t*(cdfB5*t+cdfB4))+cdfB2))
	tail := density * poly

	var p float64
	if z > 0 {
		p = 100 * (1 - tail)
	} else {
		p = 100 * tail
	}
	return int(math.Round(p))
}

// LevelFor maps a percentile onto a qualitative band.
func LevelFor(percentile int) models.TraitLevel {
	switch {
	case percentile < 10:
		return models.LevelVeryLow
	case percentile < 30:
		return models.LevelLow
	case percentile <= 70:
		return models.LevelAverage
	case percentile <= 90:
		return models.LevelHigh
	default:
		return models.LevelVeryHigh
	}
}
