package analysis

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// ReproductionEstimate is the time-varying reproduction number for one date.
// R and its bounds are nil where the estimate is undefined: before a full
// generation interval of history exists, or when the trailing incidence sums
// to zero.
type ReproductionEstimate struct {
	Date  time.Time `json:"date"`
	R     *float64  `json:"r_value,omitempty"`
	Lower *float64  `json:"lower_bound,omitempty"`
	Upper *float64  `json:"upper_bound,omitempty"`
}

// ReproductionEstimator computes R_t from smoothed incidence via a
// renewal-equation approximation with a uniform generation-interval kernel:
//
//	R_t = I_t / mean(I_{t-g} .. I_{t-1})
//
// The uniform kernel is normalized so that constant incidence yields R = 1.
// Smoothed incidence stands in for new infections to damp day-of-week
// reporting noise.
type ReproductionEstimator struct {
	GenerationIntervalDays int
	ConfidenceLevel        float64
}

// NewReproductionEstimator validates the generation interval and confidence
// level (exclusive 0..1, e.g. 0.95).
func NewReproductionEstimator(generationIntervalDays int, confidenceLevel float64) (*ReproductionEstimator, error) {
	if generationIntervalDays <= 0 {
		return nil, fmt.Errorf("%w: generation interval %d days", ErrInvalidParameter, generationIntervalDays)
	}
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		return nil, fmt.Errorf("%w: confidence level %g", ErrInvalidParameter, confidenceLevel)
	}
	return &ReproductionEstimator{
		GenerationIntervalDays: generationIntervalDays,
		ConfidenceLevel:        confidenceLevel,
	}, nil
}

// Estimate returns one entry per smoothed point. The series must span at
// least GenerationIntervalDays+1 points or ErrInsufficientHistory is
// returned. Bounds come from a Poisson approximation on the numerator count:
// the interval half-width is z*sqrt(I_t), so it narrows (relative to R) as
// counts grow.
func (e *ReproductionEstimator) Estimate(sm Smoothed) ([]ReproductionEstimate, error) {
	g := e.GenerationIntervalDays
	if len(sm.Points) < g+1 {
		return nil, fmt.Errorf("%w: need at least %d points, have %d", ErrInsufficientHistory, g+1, len(sm.Points))
	}

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.5 + e.ConfidenceLevel/2)

	estimates := make([]ReproductionEstimate, len(sm.Points))
	for t := range sm.Points {
		estimates[t] = ReproductionEstimate{Date: sm.Points[t].Date}
		if t < g {
			continue
		}

		incidence := fromPtr(sm.Points[t].Value)
		if math.IsNaN(incidence) || incidence < 0 {
			continue
		}

		sum := 0.0
		defined := true
		for j := t - g; j < t; j++ {
			v := fromPtr(sm.Points[j].Value)
			if math.IsNaN(v) {
				defined = false
				break
			}
			sum += v
		}
		// A zero or undefined denominator means no prior incidence to renew
		// from; the estimate stays undefined rather than dividing by zero.
		if !defined || sum <= 0 {
			continue
		}

		denom := sum / float64(g)
		r := incidence / denom
		half := z * math.Sqrt(incidence)
		lower := math.Max(0, incidence-half) / denom
		upper := (incidence + half) / denom

		estimates[t].R = &r
		estimates[t].Lower = &lower
		estimates[t].Upper = &upper
	}

	return estimates, nil
}
