package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/epi-signal-etl/internal/analysis"
)

// RawObservation is the flat JSON structure published by the collector: one
// record per location per day. Nullable fields arrive as JSON null when the
// source did not report them.
type RawObservation struct {
	Date             string             `json:"date"` // ISO calendar date, e.g. "2020-03-01"
	Location         string             `json:"location"`
	NewCases         *float64           `json:"new_cases"`
	NewDeaths        *float64           `json:"new_deaths"`
	CumulativeCases  float64            `json:"cumulative_cases"`
	CumulativeDeaths float64            `json:"cumulative_deaths"`
	Vaccinations     *float64           `json:"vaccinations,omitempty"`
	Hospitalizations *float64           `json:"hospitalizations,omitempty"`
	CasesByAge       map[string]float64 `json:"cases_by_age,omitempty"`
	DeathsByAge      map[string]float64 `json:"deaths_by_age,omitempty"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ObservationRecord is the typed per-day record after parsing and cleaning.
// Nil pointer fields mean "unreported", which downstream analysis treats as
// an undefined day, never as zero.
type ObservationRecord struct {
	Date             time.Time          `json:"date"`
	Location         string             `json:"location"`
	NewCases         *float64           `json:"new_cases"`
	NewDeaths        *float64           `json:"new_deaths"`
	CumulativeCases  float64            `json:"cumulative_cases"`
	CumulativeDeaths float64            `json:"cumulative_deaths"`
	Vaccinations     *float64           `json:"vaccinations,omitempty"`
	Hospitalizations *float64           `json:"hospitalizations,omitempty"`
	CasesByAge       map[string]float64 `json:"cases_by_age,omitempty"`
	DeathsByAge      map[string]float64 `json:"deaths_by_age,omitempty"`
}

// ParseRawObservation deserializes a RawEvent's value into a cleaned
// ObservationRecord.
func ParseRawObservation(raw RawEvent) (ObservationRecord, error) {
	var obs RawObservation
	if err := json.Unmarshal(raw.Value, &obs); err != nil {
		return ObservationRecord{}, fmt.Errorf("parse raw observation: %w", err)
	}
	if obs.Location == "" {
		return ObservationRecord{}, fmt.Errorf("parse raw observation: missing location")
	}
	date, err := time.ParseInLocation("2006-01-02", obs.Date, time.UTC)
	if err != nil {
		return ObservationRecord{}, fmt.Errorf("parse raw observation date %q: %w", obs.Date, err)
	}

	return CleanRecord(ObservationRecord{
		Date:             date,
		Location:         obs.Location,
		NewCases:         obs.NewCases,
		NewDeaths:        obs.NewDeaths,
		CumulativeCases:  obs.CumulativeCases,
		CumulativeDeaths: obs.CumulativeDeaths,
		Vaccinations:     obs.Vaccinations,
		Hospitalizations: obs.Hospitalizations,
		CasesByAge:       obs.CasesByAge,
		DeathsByAge:      obs.DeathsByAge,
	}), nil
}

// CleanRecord nils out negative daily counts. Negative values appear in
// source data when jurisdictions issue corrections; after cleaning a new_*
// field is either nil (unreported) or non-negative, never negative.
func CleanRecord(rec ObservationRecord) ObservationRecord {
	rec.NewCases = dropNegative(rec.NewCases)
	rec.NewDeaths = dropNegative(rec.NewDeaths)
	rec.Vaccinations = dropNegative(rec.Vaccinations)
	rec.Hospitalizations = dropNegative(rec.Hospitalizations)
	return rec
}

func dropNegative(v *float64) *float64 {
	if v != nil && *v < 0 {
		return nil
	}
	return v
}

// LocationSeries is the ordered, unique-date sequence of records for one
// location. The engine only reads it; derived views are freshly allocated.
type LocationSeries struct {
	Location string
	Records  []ObservationRecord
}

// Metric identifies a raw daily metric that can be extracted from a series.
type Metric string

const (
	MetricNewCases         Metric = "new_cases"
	MetricNewDeaths        Metric = "new_deaths"
	MetricVaccinations     Metric = "vaccinations"
	MetricHospitalizations Metric = "hospitalizations"
)

// Extract returns the metric's value from one record, nil when unreported.
func (m Metric) Extract(rec ObservationRecord) *float64 {
	switch m {
	case MetricNewCases:
		return rec.NewCases
	case MetricNewDeaths:
		return rec.NewDeaths
	case MetricVaccinations:
		return rec.Vaccinations
	case MetricHospitalizations:
		return rec.Hospitalizations
	default:
		return nil
	}
}

// Metric builds the analysis view of one metric across the series.
func (s LocationSeries) Metric(m Metric) analysis.Series {
	out := analysis.Series{
		Name:   string(m),
		Dates:  make([]time.Time, len(s.Records)),
		Values: make([]*float64, len(s.Records)),
	}
	for i, rec := range s.Records {
		out.Dates[i] = rec.Date
		out.Values[i] = m.Extract(rec)
	}
	return out
}

// AgeCounts sums the age-banded case and death counts across the series.
// Bands reported on any day appear in the result; a location that never
// reports age-banded data yields empty maps.
func (s LocationSeries) AgeCounts() (cases, deaths map[string]float64) {
	cases = make(map[string]float64)
	deaths = make(map[string]float64)
	for _, rec := range s.Records {
		for band, n := range rec.CasesByAge {
			cases[band] += n
		}
		for band, n := range rec.DeathsByAge {
			deaths[band] += n
		}
	}
	return cases, deaths
}
