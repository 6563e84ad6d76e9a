package forecast

import (
	"context"
	"math"
)

// SeasonalModel is Holt-Winters additive triple exponential smoothing:
// level, trend, and a repeating seasonal component of the configured period
// (seven days for weekly reporting cycles).
type SeasonalModel struct {
	Alpha  float64
	Beta   float64
	Gamma  float64
	Period int
	z      float64
}

func (m *SeasonalModel) Name() string { return "seasonal" }

// MinHistory needs both the trend floor and two full seasonal cycles to
// initialize the seasonal indices.
func (m *SeasonalModel) MinHistory(horizonDays int) int {
	n := 3 * horizonDays
	if s := 2 * m.Period; s > n {
		n = s
	}
	if n < 10 {
		n = 10
	}
	return n
}

func (m *SeasonalModel) Fit(ctx context.Context, history []float64) (Fitted, error) {
	p := m.Period

	// Initialize from the first two full cycles.
	firstMean := mean(history[:p])
	secondMean := mean(history[p : 2*p])
	level := firstMean
	trend := (secondMean - firstMean) / float64(p)

	seasonal := make([]float64, p)
	for i := 0; i < p; i++ {
		seasonal[i] = history[i] - firstMean
	}

	var sumSq float64
	steps := 0
	for i := p; i < len(history); i++ {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		s := i % p
		oneStep := level + trend + seasonal[s]
		resid := history[i] - oneStep
		sumSq += resid * resid
		steps++

		prevLevel := level
		level = m.Alpha*(history[i]-seasonal[s]) + (1-m.Alpha)*(level+trend)
		trend = m.Beta*(level-prevLevel) + (1-m.Beta)*trend
		seasonal[s] = m.Gamma*(history[i]-level) + (1-m.Gamma)*seasonal[s]
	}

	sigma := 0.0
	if steps > 1 {
		sigma = math.Sqrt(sumSq / float64(steps-1))
	}

	return &fittedSeasonal{
		level: level, trend: trend,
		seasonal: seasonal, next: len(history) % p,
		sigma: sigma, z: m.z,
	}, nil
}

type fittedSeasonal struct {
	level    float64
	trend    float64
	seasonal []float64
	next     int // seasonal index of the first forecast day
	sigma    float64
	z        float64
}

func (f *fittedSeasonal) Predict(horizonDays int) Result {
	res := Result{
		Model:       "seasonal",
		HorizonDays: horizonDays,
		Points:      make([]float64, horizonDays),
		Lower:       make([]float64, horizonDays),
		Upper:       make([]float64, horizonDays),
	}
	p := len(f.seasonal)
	for h := 1; h <= horizonDays; h++ {
		point := f.level + float64(h)*f.trend + f.seasonal[(f.next+h-1)%p]
		half := f.z * f.sigma * math.Sqrt(float64(h))
		// Clamping all three keeps lower <= point <= upper.
		res.Points[h-1] = clampNonNegative(point)
		res.Lower[h-1] = clampNonNegative(point - half)
		res.Upper[h-1] = clampNonNegative(point + half)
	}
	return res
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
