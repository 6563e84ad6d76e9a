package domain

import "time"

// Summary is the headline view of one location: cumulative totals, latest
// reported levels, week-over-week momentum, and the latest defined
// reproduction number. Percent changes are nil when the week-ago value is
// unreported or zero.
type Summary struct {
	AsOf                     time.Time `json:"as_of"`
	TotalCases               float64   `json:"total_cases"`
	TotalDeaths              float64   `json:"total_deaths"`
	LatestVaccinations       *float64  `json:"latest_vaccinations,omitempty"`
	LatestHospitalizations   *float64  `json:"latest_hospitalizations,omitempty"`
	NewCasesWeeklyChangePct  *float64  `json:"new_cases_weekly_change_pct,omitempty"`
	NewDeathsWeeklyChangePct *float64  `json:"new_deaths_weekly_change_pct,omitempty"`
	LatestR                  *float64  `json:"latest_r,omitempty"`
	Population               *float64  `json:"population,omitempty"`
	CasesPer100k             *float64  `json:"cases_per_100k,omitempty"`
}

// BuildSummary derives the headline summary from a validated series. latestR
// is the most recent defined reproduction estimate, nil when none exists;
// population enables per-100k incidence and is nil when no registry lookup
// is available.
func BuildSummary(s LocationSeries, latestR, population *float64) Summary {
	if len(s.Records) == 0 {
		return Summary{LatestR: latestR}
	}

	last := s.Records[len(s.Records)-1]
	sum := Summary{
		AsOf:        last.Date,
		TotalCases:  last.CumulativeCases,
		TotalDeaths: last.CumulativeDeaths,
		LatestR:     latestR,
	}

	sum.LatestVaccinations = lastReported(s, MetricVaccinations)
	sum.LatestHospitalizations = lastReported(s, MetricHospitalizations)

	weekAgo := recordOnDay(s, last.Date.AddDate(0, 0, -7))
	if weekAgo != nil {
		sum.NewCasesWeeklyChangePct = pctChange(weekAgo.NewCases, last.NewCases)
		sum.NewDeathsWeeklyChangePct = pctChange(weekAgo.NewDeaths, last.NewDeaths)
	}

	if population != nil && *population > 0 {
		sum.Population = population
		per100k := sum.TotalCases * 1e5 / *population
		sum.CasesPer100k = &per100k
	}

	return sum
}

// lastReported walks backwards to the most recent record where the metric
// was reported.
func lastReported(s LocationSeries, m Metric) *float64 {
	for i := len(s.Records) - 1; i >= 0; i-- {
		if v := m.Extract(s.Records[i]); v != nil {
			return v
		}
	}
	return nil
}

func recordOnDay(s LocationSeries, date time.Time) *ObservationRecord {
	for i := len(s.Records) - 1; i >= 0; i-- {
		if s.Records[i].Date.Equal(date) {
			return &s.Records[i]
		}
		if s.Records[i].Date.Before(date) {
			return nil
		}
	}
	return nil
}

func pctChange(from, to *float64) *float64 {
	if from == nil || to == nil || *from == 0 {
		return nil
	}
	pct := (*to - *from) / *from * 100
	return &pct
}
