package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/epi-signal-etl/internal/analysis"
	"github.com/couchcryptid/epi-signal-etl/internal/config"
	"github.com/couchcryptid/epi-signal-etl/internal/domain"
	"github.com/couchcryptid/epi-signal-etl/internal/forecast"
	"github.com/couchcryptid/epi-signal-etl/internal/observability"
)

// EpiAnalyzer implements Analyzer: it runs the full analysis stack for one
// location's series and assembles the result document.
//
// Failure handling is two-tiered. Input invariant violations fail the
// location outright (the pipeline counts and skips it). A section that
// cannot be computed for an otherwise valid series — too little history for
// an estimate, no age-banded counts, a forecast timeout — is omitted from
// the result with the cause appended to Warnings, so one thin series never
// suppresses the signals it can support.
type EpiAnalyzer struct {
	processor  *analysis.Processor
	waves      *analysis.WaveDetector
	repro      *analysis.ReproductionEstimator
	risk       *analysis.RiskStratifier
	model      forecast.Model
	corrMethod analysis.Method

	params          domain.Parameters
	forecastTimeout time.Duration
	population      domain.PopulationLookup
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// NewAnalyzer builds the analyzer from config, validating every shared
// analysis parameter up front. A parameter error here is a caller
// programming error and aborts service startup, before any batch runs.
// Pass a nil population lookup to disable per-100k enrichment.
func NewAnalyzer(cfg *config.Config, population domain.PopulationLookup, logger *slog.Logger, metrics *observability.Metrics) (*EpiAnalyzer, error) {
	waves, err := analysis.NewWaveDetector(cfg.WaveThreshold, cfg.WaveMinSeparationDays, cfg.WaveBaselineWindowDays)
	if err != nil {
		return nil, err
	}
	repro, err := analysis.NewReproductionEstimator(cfg.GenerationIntervalDays, cfg.ConfidenceLevel)
	if err != nil {
		return nil, err
	}
	risk, err := analysis.NewRiskStratifier(cfg.AgeBands, cfg.ReferenceAgeBand)
	if err != nil {
		return nil, err
	}
	model, err := forecast.New(cfg.ForecastModel, cfg.SeasonalPeriod, cfg.ConfidenceLevel)
	if err != nil {
		return nil, err
	}
	method, err := analysis.ParseMethod(cfg.CorrelationMethod)
	if err != nil {
		return nil, err
	}
	if cfg.SmoothingWindow <= 0 {
		return nil, fmt.Errorf("%w: smoothing window %d", analysis.ErrInvalidWindow, cfg.SmoothingWindow)
	}

	return &EpiAnalyzer{
		processor:  analysis.NewProcessor(cfg.MaxGapDays),
		waves:      waves,
		repro:      repro,
		risk:       risk,
		model:      model,
		corrMethod: method,
		params: domain.Parameters{
			SmoothingWindow:        cfg.SmoothingWindow,
			MaxGapDays:             cfg.MaxGapDays,
			WaveThreshold:          cfg.WaveThreshold,
			WaveMinSeparationDays:  cfg.WaveMinSeparationDays,
			WaveBaselineWindowDays: cfg.WaveBaselineWindowDays,
			GenerationIntervalDays: cfg.GenerationIntervalDays,
			ConfidenceLevel:        cfg.ConfidenceLevel,
			ForecastHorizonDays:    cfg.ForecastHorizonDays,
			ForecastModel:          cfg.ForecastModel,
			SeasonalPeriod:         cfg.SeasonalPeriod,
			CorrelationMethod:      cfg.CorrelationMethod,
			ReferenceAgeBand:       cfg.ReferenceAgeBand,
		},
		forecastTimeout: cfg.ForecastTimeout,
		population:      population,
		logger:          logger,
		metrics:         metrics,
	}, nil
}

// Analyze validates a location's series and computes every supported
// section. The returned error is non-nil only for data quality failures;
// section-level insufficiency is reported through result warnings.
func (a *EpiAnalyzer) Analyze(ctx context.Context, series domain.LocationSeries) (domain.AnalysisResult, error) {
	if err := series.Validate(); err != nil {
		return domain.AnalysisResult{}, err
	}

	result := domain.NewResult(series.Location, a.params)

	smoothed := a.smoothSection(&result, series)
	if smoothed != nil {
		a.waveSection(&result, *smoothed)
		a.reproSection(&result, *smoothed)
		a.forecastSection(ctx, &result, *smoothed)
	}
	a.riskSection(&result, series)
	a.correlationSection(&result, series)

	var latestR *float64
	for i := len(result.Reproduction) - 1; i >= 0; i-- {
		if result.Reproduction[i].R != nil {
			latestR = result.Reproduction[i].R
			break
		}
	}
	result.Summary = domain.BuildSummary(series, latestR, a.lookupPopulation(ctx, series.Location))

	return result, nil
}

func (a *EpiAnalyzer) smoothSection(result *domain.AnalysisResult, series domain.LocationSeries) *analysis.Smoothed {
	smoothed, err := a.processor.Smooth(series.Metric(domain.MetricNewCases), a.params.SmoothingWindow)
	if err != nil {
		// The window is validated positive at startup, so this only
		// triggers for a series shorter than the window.
		result.Warnings = append(result.Warnings, fmt.Sprintf("smoothing skipped: %v", err))
		return nil
	}
	result.Smoothed = &smoothed
	return &smoothed
}

func (a *EpiAnalyzer) waveSection(result *domain.AnalysisResult, smoothed analysis.Smoothed) {
	result.Waves = a.waves.Detect(smoothed)
}

func (a *EpiAnalyzer) reproSection(result *domain.AnalysisResult, smoothed analysis.Smoothed) {
	estimates, err := a.repro.Estimate(smoothed)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("reproduction estimate skipped: %v", err))
		return
	}
	result.Reproduction = estimates
}

func (a *EpiAnalyzer) riskSection(result *domain.AnalysisResult, series domain.LocationSeries) {
	cases, deaths := series.AgeCounts()
	if len(cases) == 0 && len(deaths) == 0 {
		result.Warnings = append(result.Warnings, "risk stratification skipped: no age-banded counts reported")
		return
	}
	result.RiskStrata = a.risk.Stratify(cases, deaths)
}

// correlationSection relates new cases to deaths and, when reported, to
// hospitalizations.
func (a *EpiAnalyzer) correlationSection(result *domain.AnalysisResult, series domain.LocationSeries) {
	pairs := [][2]domain.Metric{
		{domain.MetricNewCases, domain.MetricNewDeaths},
		{domain.MetricNewCases, domain.MetricHospitalizations},
	}
	for _, pair := range pairs {
		corr, err := analysis.Correlate(series.Metric(pair[0]), series.Metric(pair[1]), a.corrMethod)
		if err != nil {
			if errors.Is(err, analysis.ErrInsufficientSample) || errors.Is(err, analysis.ErrZeroVariance) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("correlation skipped: %v", err))
				continue
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf("correlation failed: %v", err))
			continue
		}
		result.Correlations = append(result.Correlations, corr)
	}
}

// forecastSection projects the smoothed case curve. The fit is bounded by
// the configured timeout; on expiry the section is dropped rather than
// returning a partial projection.
func (a *EpiAnalyzer) forecastSection(ctx context.Context, result *domain.AnalysisResult, smoothed analysis.Smoothed) {
	history := trailingDefined(smoothed)

	fitCtx, cancel := context.WithTimeout(ctx, a.forecastTimeout)
	defer cancel()

	res, err := forecast.Run(fitCtx, a.model, history, a.params.ForecastHorizonDays)
	if err != nil {
		if errors.Is(err, forecast.ErrTimeout) {
			a.metrics.ForecastTimeouts.Inc()
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf("forecast skipped: %v", err))
		return
	}
	result.Forecast = &res
}

// trailingDefined extracts the longest defined suffix of a smoothed series,
// the history window the forecast models fit on.
func trailingDefined(smoothed analysis.Smoothed) []float64 {
	end := len(smoothed.Points)
	start := end
	for start > 0 && smoothed.Points[start-1].Value != nil {
		start--
	}
	history := make([]float64, 0, end-start)
	for _, p := range smoothed.Points[start:end] {
		history = append(history, *p.Value)
	}
	return history
}

func (a *EpiAnalyzer) lookupPopulation(ctx context.Context, location string) *float64 {
	if a.population == nil {
		return nil
	}
	pop, found, err := a.population.Population(ctx, location)
	if err != nil {
		// Enrichment only: a registry outage must not fail the analysis.
		a.logger.Warn("population lookup failed", "location", location, "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return &pop
}
