package analysis_test

import (
	"testing"

	"github.com/couchcryptid/epi-signal-etl/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	m, err := analysis.ParseMethod("pearson")
	require.NoError(t, err)
	assert.Equal(t, analysis.MethodPearson, m)

	m, err = analysis.ParseMethod("spearman")
	require.NoError(t, err)
	assert.Equal(t, analysis.MethodSpearman, m)

	_, err = analysis.ParseMethod("kendall")
	assert.ErrorIs(t, err, analysis.ErrUnknownMethod)
}

func TestCorrelate_PerfectLinear(t *testing.T) {
	a := dailySeries("new_cases", defined(10, 20, 30, 40, 50))
	b := dailySeries("new_deaths", defined(1, 2, 3, 4, 5))

	result, err := analysis.Correlate(a, b, analysis.MethodPearson)
	require.NoError(t, err)

	assert.Equal(t, "new_cases", result.MetricA)
	assert.Equal(t, "new_deaths", result.MetricB)
	assert.Equal(t, 5, result.SampleSize)
	assert.InDelta(t, 1.0, result.Coefficient, 1e-12)
	require.NotNil(t, result.PValue)
	assert.InDelta(t, 0.0, *result.PValue, 1e-9, "perfect correlation pins the p-value to zero")
}

func TestCorrelate_SpearmanMonotonicNonlinear(t *testing.T) {
	// Exponential growth: Pearson is below one, Spearman is exactly one.
	a := dailySeries("new_cases", defined(1, 2, 3, 4, 5, 6))
	b := dailySeries("hospitalizations", defined(1, 2, 4, 8, 16, 32))

	spearman, err := analysis.Correlate(a, b, analysis.MethodSpearman)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, spearman.Coefficient, 1e-12)

	pearson, err := analysis.Correlate(a, b, analysis.MethodPearson)
	require.NoError(t, err)
	assert.Less(t, pearson.Coefficient, 1.0)
}

func TestCorrelate_SpearmanAveragesTies(t *testing.T) {
	a := dailySeries("new_cases", defined(1, 2, 2, 3))
	b := dailySeries("new_deaths", defined(1, 2, 2, 3))

	result, err := analysis.Correlate(a, b, analysis.MethodSpearman)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.Coefficient, 1e-12)
}

func TestCorrelate_PairwiseCompleteAlignment(t *testing.T) {
	// Undefined and unmatched days are dropped for the computation only.
	a := dailySeries("new_cases", []*float64{analysis.Float(10), nil, analysis.Float(30), analysis.Float(40)})
	b := dailySeries("new_deaths", []*float64{analysis.Float(1), analysis.Float(2), analysis.Float(3), nil})

	result, err := analysis.Correlate(a, b, analysis.MethodPearson)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SampleSize, "only days defined in both series pair up")
	assert.Nil(t, result.PValue, "no degrees of freedom with two pairs")
}

func TestCorrelate_InsufficientSample(t *testing.T) {
	a := dailySeries("new_cases", defined(10))
	b := dailySeries("new_deaths", defined(1))

	_, err := analysis.Correlate(a, b, analysis.MethodPearson)
	assert.ErrorIs(t, err, analysis.ErrInsufficientSample)
}

func TestCorrelate_ZeroVariance(t *testing.T) {
	a := dailySeries("new_cases", defined(10, 10, 10))
	b := dailySeries("new_deaths", defined(1, 2, 3))

	_, err := analysis.Correlate(a, b, analysis.MethodPearson)
	assert.ErrorIs(t, err, analysis.ErrZeroVariance)
}

func TestCorrelate_UnknownMethod(t *testing.T) {
	a := dailySeries("new_cases", defined(1, 2, 3))
	b := dailySeries("new_deaths", defined(1, 2, 3))

	_, err := analysis.Correlate(a, b, analysis.Method("kendall"))
	assert.ErrorIs(t, err, analysis.ErrUnknownMethod)
}

func TestCorrelate_NegativeRelationship(t *testing.T) {
	a := dailySeries("new_cases", defined(10, 20, 30, 40, 50))
	b := dailySeries("vaccinations", defined(50, 40, 30, 20, 10))

	result, err := analysis.Correlate(a, b, analysis.MethodPearson)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, result.Coefficient, 1e-12)
}
