package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis pipeline.
type Metrics struct {
	ObservationsConsumed prometheus.Counter
	ResultsProduced      prometheus.Counter
	ParseErrors          prometheus.Counter
	DataQualityErrors    prometheus.Counter
	AnalysisErrors       prometheus.Counter
	ForecastTimeouts     prometheus.Counter
	PipelineRunning      prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	LocationDuration        prometheus.Histogram

	// Population registry metrics.
	PopulationRequests *prometheus.CounterVec // labels: outcome={success,miss,error}
	PopulationCache    *prometheus.CounterVec // labels: result={hit,miss}
	PopulationDuration prometheus.Histogram
	PopulationEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "epi_etl",
			Name:      "observations_consumed_total",
			Help:      "Total observation messages read from the source topic.",
		}),
		ResultsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "epi_etl",
			Name:      "results_produced_total",
			Help:      "Total per-location analysis results written to the sink topic.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "epi_etl",
			Name:      "parse_errors_total",
			Help:      "Total malformed observation messages skipped.",
		}),
		DataQualityErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "epi_etl",
			Name:      "data_quality_errors_total",
			Help:      "Total locations skipped for input invariant violations.",
		}),
		AnalysisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "epi_etl",
			Name:      "analysis_errors_total",
			Help:      "Total per-location analysis failures.",
		}),
		ForecastTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "epi_etl",
			Name:      "forecast_timeouts_total",
			Help:      "Total forecast fits abandoned at the configured timeout.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "epi_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "epi_etl",
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "epi_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-analyze-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		LocationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "epi_etl",
			Name:      "location_analysis_duration_seconds",
			Help:      "Duration of one location's full analysis.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		PopulationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epi_etl",
			Name:      "population_requests_total",
			Help:      "Population registry lookups by outcome.",
		}, []string{"outcome"}),
		PopulationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "epi_etl",
			Name:      "population_cache_total",
			Help:      "Population cache lookups by result.",
		}, []string{"result"}),
		PopulationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "epi_etl",
			Name:      "population_request_duration_seconds",
			Help:      "Population registry request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		PopulationEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "epi_etl",
			Name:      "population_enabled",
			Help:      "1 when population enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ObservationsConsumed,
		m.ResultsProduced,
		m.ParseErrors,
		m.DataQualityErrors,
		m.AnalysisErrors,
		m.ForecastTimeouts,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.LocationDuration,
		m.PopulationRequests,
		m.PopulationCache,
		m.PopulationDuration,
		m.PopulationEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsConsumed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "epi_etl", Name: "observations_consumed_total"}),
		ResultsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "epi_etl", Name: "results_produced_total"}),
		ParseErrors:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "epi_etl", Name: "parse_errors_total"}),
		DataQualityErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "epi_etl", Name: "data_quality_errors_total"}),
		AnalysisErrors:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "epi_etl", Name: "analysis_errors_total"}),
		ForecastTimeouts:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "epi_etl", Name: "forecast_timeouts_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "epi_etl", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "epi_etl", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "epi_etl", Name: "batch_processing_duration_seconds"}),
		LocationDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "epi_etl", Name: "location_analysis_duration_seconds"}),
		PopulationRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "epi_etl", Name: "population_requests_total"}, []string{"outcome"}),
		PopulationCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "epi_etl", Name: "population_cache_total"}, []string{"result"}),
		PopulationDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "epi_etl", Name: "population_request_duration_seconds"}),
		PopulationEnabled:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "epi_etl", Name: "population_enabled"}),
	}
}
