package forecast

import (
	"context"
	"math"
)

// TrendModel is Holt's linear trend method: double exponential smoothing
// with a level and a trend component, no seasonality.
type TrendModel struct {
	Alpha float64 // level smoothing
	Beta  float64 // trend smoothing
	z     float64 // interval quantile
}

func (m *TrendModel) Name() string { return "trend" }

// MinHistory scales with the horizon: at least three observed points per
// projected point, never fewer than ten.
func (m *TrendModel) MinHistory(horizonDays int) int {
	if n := 3 * horizonDays; n > 10 {
		return n
	}
	return 10
}

func (m *TrendModel) Fit(ctx context.Context, history []float64) (Fitted, error) {
	level := history[0]
	trend := history[1] - history[0]

	var sumSq float64
	steps := 0
	for i := 1; i < len(history); i++ {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		oneStep := level + trend
		resid := history[i] - oneStep
		sumSq += resid * resid
		steps++

		prevLevel := level
		level = m.Alpha*history[i] + (1-m.Alpha)*oneStep
		trend = m.Beta*(level-prevLevel) + (1-m.Beta)*trend
	}

	sigma := 0.0
	if steps > 1 {
		sigma = math.Sqrt(sumSq / float64(steps-1))
	}

	return &fittedTrend{model: "trend", level: level, trend: trend, sigma: sigma, z: m.z}, nil
}

type fittedTrend struct {
	model string
	level float64
	trend float64
	sigma float64
	z     float64
}

// Predict extrapolates the level-trend line. The interval half-width is
// z*sigma*sqrt(h), widening with horizon distance; the point and both bounds
// are clamped at zero since incidence counts cannot be negative, which keeps
// lower <= point <= upper.
func (f *fittedTrend) Predict(horizonDays int) Result {
	res := Result{
		Model:       f.model,
		HorizonDays: horizonDays,
		Points:      make([]float64, horizonDays),
		Lower:       make([]float64, horizonDays),
		Upper:       make([]float64, horizonDays),
	}
	for h := 1; h <= horizonDays; h++ {
		point := f.level + float64(h)*f.trend
		half := f.z * f.sigma * math.Sqrt(float64(h))
		res.Points[h-1] = clampNonNegative(point)
		res.Lower[h-1] = clampNonNegative(point - half)
		res.Upper[h-1] = clampNonNegative(point + half)
	}
	return res
}
