package analysis_test

import (
	"testing"

	"github.com/couchcryptid/epi-signal-etl/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBands = []string{"0-17", "18-49", "50-64", "65+"}

func TestRiskStratifier_ReferenceMustBeConfigured(t *testing.T) {
	_, err := analysis.NewRiskStratifier(testBands, "90+")
	assert.ErrorIs(t, err, analysis.ErrUnknownBand)

	_, err = analysis.NewRiskStratifier(nil, "18-49")
	assert.ErrorIs(t, err, analysis.ErrInvalidParameter)
}

func TestRiskStratifier_CFRAndRelativeRisk(t *testing.T) {
	s, err := analysis.NewRiskStratifier(testBands, "18-49")
	require.NoError(t, err)

	cases := map[string]float64{"0-17": 1000, "18-49": 2000, "50-64": 1000, "65+": 500}
	deaths := map[string]float64{"0-17": 1, "18-49": 10, "50-64": 30, "65+": 75}

	strata := s.Stratify(cases, deaths)
	require.Len(t, strata, 4)

	// Configured order preserved.
	for i, band := range testBands {
		assert.Equal(t, band, strata[i].AgeBand)
	}

	ref := strata[1]
	require.NotNil(t, ref.CFR)
	assert.InDelta(t, 0.005, *ref.CFR, 1e-12)
	require.NotNil(t, ref.RelativeRisk)
	assert.InDelta(t, 1.0, *ref.RelativeRisk, 1e-12, "reference band risk is unity by definition")

	oldest := strata[3]
	require.NotNil(t, oldest.CFR)
	assert.InDelta(t, 0.15, *oldest.CFR, 1e-12)
	require.NotNil(t, oldest.RelativeRisk)
	assert.InDelta(t, 30.0, *oldest.RelativeRisk, 1e-9)
}

func TestRiskStratifier_MissingBandCountsYieldNils(t *testing.T) {
	s, err := analysis.NewRiskStratifier(testBands, "18-49")
	require.NoError(t, err)

	cases := map[string]float64{"18-49": 2000}
	deaths := map[string]float64{"18-49": 10}

	strata := s.Stratify(cases, deaths)
	require.Len(t, strata, 4, "every configured band appears even without data")

	assert.Nil(t, strata[0].CaseCount)
	assert.Nil(t, strata[0].DeathCount)
	assert.Nil(t, strata[0].CFR)
	assert.Nil(t, strata[0].RelativeRisk)

	require.NotNil(t, strata[1].CFR)
}

func TestRiskStratifier_ZeroCasesUndefinedCFR(t *testing.T) {
	s, err := analysis.NewRiskStratifier(testBands, "18-49")
	require.NoError(t, err)

	cases := map[string]float64{"0-17": 0, "18-49": 1000}
	deaths := map[string]float64{"0-17": 0, "18-49": 5}

	strata := s.Stratify(cases, deaths)
	assert.Nil(t, strata[0].CFR, "zero cases never divides")
	require.NotNil(t, strata[0].CaseCount)
	assert.Equal(t, 0.0, *strata[0].CaseCount)
}

func TestRiskStratifier_ZeroReferenceCFRSuppressesRelativeRisk(t *testing.T) {
	s, err := analysis.NewRiskStratifier(testBands, "18-49")
	require.NoError(t, err)

	cases := map[string]float64{"18-49": 1000, "65+": 500}
	deaths := map[string]float64{"18-49": 0, "65+": 50}

	strata := s.Stratify(cases, deaths)

	require.NotNil(t, strata[3].CFR)
	assert.Nil(t, strata[3].RelativeRisk, "zero reference CFR leaves relative risk undefined")
}

func TestRiskStratifier_UnconfiguredBandsAppendedSorted(t *testing.T) {
	s, err := analysis.NewRiskStratifier(testBands, "18-49")
	require.NoError(t, err)

	cases := map[string]float64{"18-49": 1000, "unknown": 50, "80+": 20}
	deaths := map[string]float64{"18-49": 5}

	strata := s.Stratify(cases, deaths)
	require.Len(t, strata, 6)
	assert.Equal(t, "80+", strata[4].AgeBand)
	assert.Equal(t, "unknown", strata[5].AgeBand)
}
