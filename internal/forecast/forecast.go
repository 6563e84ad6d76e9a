// Package forecast projects a smoothed metric over a short horizon with
// prediction intervals. Models are a closed, configuration-selected set
// behind a fixed fit/predict capability so callers can swap strategies
// without changing the contract. Fits are deterministic and poll their
// context so a caller-supplied timeout bounds the computation.
package forecast

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrNotEnoughHistory is returned when the history is shorter than the
	// model's minimum for the requested horizon.
	ErrNotEnoughHistory = errors.New("not enough history for forecast")

	// ErrTimeout is returned when a fit exceeds its context deadline. No
	// partial result is produced.
	ErrTimeout = errors.New("forecast fit timed out")

	// ErrUnknownModel is returned for an unrecognized model name.
	ErrUnknownModel = errors.New("unknown forecast model")

	// ErrInvalidHorizon is returned for a non-positive horizon.
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
)

// Result holds point estimates with prediction bounds, one entry per horizon
// day. Interval width grows with horizon distance.
type Result struct {
	Model       string    `json:"model"`
	HorizonDays int       `json:"horizon_days"`
	Points      []float64 `json:"point_estimates"`
	Lower       []float64 `json:"lower_bound"`
	Upper       []float64 `json:"upper_bound"`
}

// Fitted is a model fitted to one history, ready to project forward.
type Fitted interface {
	Predict(horizonDays int) Result
}

// Model fits a forecasting strategy to a history of daily values.
type Model interface {
	Name() string
	// MinHistory is the shortest history that supports the given horizon.
	MinHistory(horizonDays int) int
	Fit(ctx context.Context, history []float64) (Fitted, error)
}

// New returns the model for a configuration name: "trend" (Holt linear
// trend) or "seasonal" (Holt-Winters additive with the given period).
func New(name string, seasonalPeriod int, confidenceLevel float64) (Model, error) {
	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.5 + confidenceLevel/2)
	switch name {
	case "trend":
		return &TrendModel{Alpha: defaultAlpha, Beta: defaultBeta, z: z}, nil
	case "seasonal":
		if seasonalPeriod < 2 {
			return nil, fmt.Errorf("%w: seasonal period %d", ErrUnknownModel, seasonalPeriod)
		}
		return &SeasonalModel{
			Alpha: defaultAlpha, Beta: defaultBeta, Gamma: defaultGamma,
			Period: seasonalPeriod, z: z,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
}

// Smoothing constants shared by both models. Fixed rather than optimized so
// repeated runs over identical input are bit-for-bit identical.
const (
	defaultAlpha = 0.5
	defaultBeta  = 0.2
	defaultGamma = 0.3
)

// Run validates the horizon and history length, fits the model, and
// predicts. This is the single entry point the pipeline uses.
func Run(ctx context.Context, m Model, history []float64, horizonDays int) (Result, error) {
	if horizonDays <= 0 {
		return Result{}, fmt.Errorf("%w: %d days", ErrInvalidHorizon, horizonDays)
	}
	if min := m.MinHistory(horizonDays); len(history) < min {
		return Result{}, fmt.Errorf("%w: %s needs %d points for a %d-day horizon, have %d",
			ErrNotEnoughHistory, m.Name(), min, horizonDays, len(history))
	}
	fitted, err := m.Fit(ctx, history)
	if err != nil {
		return Result{}, err
	}
	return fitted.Predict(horizonDays), nil
}

// checkCtx translates context expiry into the package's timeout error.
func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return nil
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
