package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/epi-signal-etl/internal/analysis"
	"github.com/couchcryptid/epi-signal-etl/internal/forecast"
)

// Parameters echoes the analysis configuration a result was computed with,
// so downstream consumers can distinguish parameter changes from data
// changes when results differ across runs.
type Parameters struct {
	SmoothingWindow        int     `json:"smoothing_window"`
	MaxGapDays             int     `json:"max_gap_days"`
	WaveThreshold          float64 `json:"wave_threshold"`
	WaveMinSeparationDays  int     `json:"wave_min_separation_days"`
	WaveBaselineWindowDays int     `json:"wave_baseline_window_days"`
	GenerationIntervalDays int     `json:"generation_interval_days"`
	ConfidenceLevel        float64 `json:"confidence_level"`
	ForecastHorizonDays    int     `json:"forecast_horizon_days"`
	ForecastModel          string  `json:"forecast_model"`
	SeasonalPeriod         int     `json:"seasonal_period"`
	CorrelationMethod      string  `json:"correlation_method"`
	ReferenceAgeBand       string  `json:"reference_age_band"`
}

// AnalysisResult is the structured per-location output document published to
// the sink topic. Sections that could not be computed for this location are
// omitted, with the cause recorded in Warnings (partial-failure semantics).
type AnalysisResult struct {
	Location     string                          `json:"location"`
	ComputedAt   time.Time                       `json:"computed_at"`
	Parameters   Parameters                      `json:"parameters"`
	Smoothed     *analysis.Smoothed              `json:"smoothed,omitempty"`
	Waves        []analysis.Wave                 `json:"waves,omitempty"`
	Reproduction []analysis.ReproductionEstimate `json:"reproduction,omitempty"`
	RiskStrata   []analysis.RiskStratum          `json:"risk_strata,omitempty"`
	Correlations []analysis.CorrelationResult    `json:"correlations,omitempty"`
	Forecast     *forecast.Result                `json:"forecast,omitempty"`
	Summary      Summary                         `json:"summary"`
	Warnings     []string                        `json:"warnings,omitempty"`
}

// NewResult creates the result envelope for a location, stamped with the
// package clock so tests can freeze ComputedAt.
func NewResult(location string, params Parameters) AnalysisResult {
	return AnalysisResult{
		Location:   location,
		ComputedAt: clock.Now().UTC(),
		Parameters: params,
	}
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SerializeResult marshals an AnalysisResult keyed by location. The
// deterministic key makes sink publishing replay-safe: reprocessing the
// same observations overwrites rather than duplicates.
func SerializeResult(r AnalysisResult) (OutputEvent, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize analysis result: %w", err)
	}
	return OutputEvent{
		Key:   []byte(r.Location),
		Value: data,
		Headers: map[string]string{
			"location":    r.Location,
			"computed_at": r.ComputedAt.Format(time.RFC3339),
		},
	}, nil
}
