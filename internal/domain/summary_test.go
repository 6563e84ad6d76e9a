package domain_test

import (
	"testing"

	"github.com/couchcryptid/epi-signal-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summarySeries() domain.LocationSeries {
	records := []domain.ObservationRecord{}
	for i := 0; i < 8; i++ {
		records = append(records, domain.ObservationRecord{
			Date:             day("2020-03-01").AddDate(0, 0, i),
			NewCases:         ptr(100 + float64(i)*10),
			NewDeaths:        ptr(2),
			CumulativeCases:  1000 + float64(i)*100,
			CumulativeDeaths: 20 + float64(i)*2,
		})
	}
	return domain.LocationSeries{Location: "Testland", Records: records}
}

func TestBuildSummary_Totals(t *testing.T) {
	sum := domain.BuildSummary(summarySeries(), nil, nil)

	assert.Equal(t, day("2020-03-08"), sum.AsOf)
	assert.Equal(t, 1700.0, sum.TotalCases)
	assert.Equal(t, 34.0, sum.TotalDeaths)
	assert.Nil(t, sum.Population)
	assert.Nil(t, sum.CasesPer100k)
}

func TestBuildSummary_WeeklyChange(t *testing.T) {
	sum := domain.BuildSummary(summarySeries(), nil, nil)

	// Last day reports 170 cases against 100 a week earlier.
	require.NotNil(t, sum.NewCasesWeeklyChangePct)
	assert.InDelta(t, 70.0, *sum.NewCasesWeeklyChangePct, 1e-9)
	require.NotNil(t, sum.NewDeathsWeeklyChangePct)
	assert.InDelta(t, 0.0, *sum.NewDeathsWeeklyChangePct, 1e-9)
}

func TestBuildSummary_WeeklyChangeNilWhenWeekAgoUnreported(t *testing.T) {
	s := summarySeries()
	s.Records[0].NewCases = nil

	sum := domain.BuildSummary(s, nil, nil)
	assert.Nil(t, sum.NewCasesWeeklyChangePct)
}

func TestBuildSummary_WeeklyChangeNilWhenWeekAgoZero(t *testing.T) {
	s := summarySeries()
	s.Records[0].NewCases = ptr(0)

	sum := domain.BuildSummary(s, nil, nil)
	assert.Nil(t, sum.NewCasesWeeklyChangePct, "zero base never divides")
}

func TestBuildSummary_WeeklyChangeNilWithoutWeekAgoRecord(t *testing.T) {
	s := summarySeries()
	s.Records = s.Records[4:]

	sum := domain.BuildSummary(s, nil, nil)
	assert.Nil(t, sum.NewCasesWeeklyChangePct)
}

func TestBuildSummary_LatestReportedWalksBack(t *testing.T) {
	s := summarySeries()
	v := 50_000.0
	s.Records[3].Vaccinations = &v

	sum := domain.BuildSummary(s, nil, nil)
	require.NotNil(t, sum.LatestVaccinations)
	assert.Equal(t, 50_000.0, *sum.LatestVaccinations, "most recent reported value wins even when later days are silent")
	assert.Nil(t, sum.LatestHospitalizations)
}

func TestBuildSummary_LatestR(t *testing.T) {
	r := 1.2
	sum := domain.BuildSummary(summarySeries(), &r, nil)
	require.NotNil(t, sum.LatestR)
	assert.Equal(t, 1.2, *sum.LatestR)
}

func TestBuildSummary_PerCapitaIncidence(t *testing.T) {
	pop := 1_000_000.0
	sum := domain.BuildSummary(summarySeries(), nil, &pop)

	require.NotNil(t, sum.Population)
	require.NotNil(t, sum.CasesPer100k)
	assert.InDelta(t, 170.0, *sum.CasesPer100k, 1e-9)
}

func TestBuildSummary_NonPositivePopulationIgnored(t *testing.T) {
	pop := 0.0
	sum := domain.BuildSummary(summarySeries(), nil, &pop)
	assert.Nil(t, sum.Population)
	assert.Nil(t, sum.CasesPer100k)
}

func TestBuildSummary_EmptySeries(t *testing.T) {
	r := 0.9
	sum := domain.BuildSummary(domain.LocationSeries{Location: "Testland"}, &r, nil)

	assert.True(t, sum.AsOf.IsZero())
	assert.Equal(t, 0.0, sum.TotalCases)
	require.NotNil(t, sum.LatestR)
	assert.Equal(t, 0.9, *sum.LatestR)
}
