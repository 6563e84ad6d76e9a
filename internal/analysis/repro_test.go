package analysis_test

import (
	"math"
	"testing"

	"github.com/couchcryptid/epi-signal-etl/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReproductionEstimator_ParameterValidation(t *testing.T) {
	_, err := analysis.NewReproductionEstimator(0, 0.95)
	assert.ErrorIs(t, err, analysis.ErrInvalidParameter)

	_, err = analysis.NewReproductionEstimator(5, 1)
	assert.ErrorIs(t, err, analysis.ErrInvalidParameter)

	_, err = analysis.NewReproductionEstimator(5, 0)
	assert.ErrorIs(t, err, analysis.ErrInvalidParameter)
}

func TestReproductionEstimator_InsufficientHistory(t *testing.T) {
	e, err := analysis.NewReproductionEstimator(5, 0.95)
	require.NoError(t, err)

	sm := smoothedFrom(defined(10, 10, 10, 10, 10))
	_, err = e.Estimate(sm)
	assert.ErrorIs(t, err, analysis.ErrInsufficientHistory)
}

func TestReproductionEstimator_FlatIncidenceYieldsUnity(t *testing.T) {
	e, err := analysis.NewReproductionEstimator(5, 0.95)
	require.NoError(t, err)

	sm := smoothedFrom(defined(100, 100, 100, 100, 100, 100, 100, 100, 100, 100))

	estimates, err := e.Estimate(sm)
	require.NoError(t, err)
	require.Len(t, estimates, 10)

	// No estimate before a full generation interval of history.
	for i := 0; i < 5; i++ {
		assert.Nil(t, estimates[i].R, "day %d", i)
	}
	for i := 5; i < 10; i++ {
		require.NotNil(t, estimates[i].R, "day %d", i)
		assert.InDelta(t, 1.0, *estimates[i].R, 1e-12, "constant incidence renews itself exactly")
	}
}

func TestReproductionEstimator_DailyDoubling(t *testing.T) {
	e, err := analysis.NewReproductionEstimator(1, 0.95)
	require.NoError(t, err)

	sm := smoothedFrom(defined(10, 20, 40, 80, 160))

	estimates, err := e.Estimate(sm)
	require.NoError(t, err)

	for i := 1; i < 5; i++ {
		require.NotNil(t, estimates[i].R, "day %d", i)
		assert.InDelta(t, 2.0, *estimates[i].R, 1e-12)
	}
}

func TestReproductionEstimator_PoissonBounds(t *testing.T) {
	e, err := analysis.NewReproductionEstimator(5, 0.95)
	require.NoError(t, err)

	sm := smoothedFrom(defined(100, 100, 100, 100, 100, 100))

	estimates, err := e.Estimate(sm)
	require.NoError(t, err)

	est := estimates[5]
	require.NotNil(t, est.R)
	require.NotNil(t, est.Lower)
	require.NotNil(t, est.Upper)

	// half = z * sqrt(100) with z for 95% two-sided.
	z := 1.959963984540054
	assert.InDelta(t, (100-z*10)/100, *est.Lower, 1e-9)
	assert.InDelta(t, (100+z*10)/100, *est.Upper, 1e-9)
	assert.LessOrEqual(t, *est.Lower, *est.R)
	assert.GreaterOrEqual(t, *est.Upper, *est.R)
}

func TestReproductionEstimator_LowerBoundClampedAtZero(t *testing.T) {
	e, err := analysis.NewReproductionEstimator(1, 0.95)
	require.NoError(t, err)

	// Tiny counts: the Poisson half-width exceeds the point estimate.
	sm := smoothedFrom(defined(2, 1))

	estimates, err := e.Estimate(sm)
	require.NoError(t, err)

	require.NotNil(t, estimates[1].Lower)
	assert.Equal(t, 0.0, *estimates[1].Lower)
}

func TestReproductionEstimator_ZeroDenominatorUndefined(t *testing.T) {
	e, err := analysis.NewReproductionEstimator(2, 0.95)
	require.NoError(t, err)

	sm := smoothedFrom(defined(0, 0, 50, 60, 70))

	estimates, err := e.Estimate(sm)
	require.NoError(t, err)

	assert.Nil(t, estimates[2].R, "no prior incidence to renew from")
	require.NotNil(t, estimates[3].R, "window now holds positive incidence")
}

func TestReproductionEstimator_UndefinedWindowUndefined(t *testing.T) {
	e, err := analysis.NewReproductionEstimator(2, 0.95)
	require.NoError(t, err)

	values := defined(50, 50, 50, 50, 50, 50)
	values[2] = nil
	sm := smoothedFrom(values)

	estimates, err := e.Estimate(sm)
	require.NoError(t, err)

	assert.Nil(t, estimates[2].R, "numerator undefined")
	assert.Nil(t, estimates[3].R, "undefined day inside the window")
	assert.Nil(t, estimates[4].R, "undefined day inside the window")
	require.NotNil(t, estimates[5].R)
	assert.InDelta(t, 1.0, *estimates[5].R, 1e-12)
	assert.False(t, estimates[2].Date.IsZero(), "undefined entries keep their date")

	// Math sanity: the exported representation never leaks NaN.
	for _, est := range estimates {
		if est.R != nil {
			assert.False(t, math.IsNaN(*est.R))
		}
	}
}
