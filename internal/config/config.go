package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration
	AnalysisWorkers    int

	// Analysis parameters. Thresholds and intervals from the epidemiology
	// literature vary by pathogen and reporting regime, so all of them are
	// configurable rather than baked in.
	SmoothingWindow        int
	MaxGapDays             int
	WaveThreshold          float64
	WaveMinSeparationDays  int
	WaveBaselineWindowDays int
	GenerationIntervalDays int
	ConfidenceLevel        float64
	ForecastHorizonDays    int
	ForecastModel          string
	SeasonalPeriod         int
	ForecastTimeout        time.Duration
	CorrelationMethod      string
	AgeBands               []string
	ReferenceAgeBand       string

	// Population registry configuration (per-100k enrichment).
	PopRegistryURL       string
	PopRegistryEnabled   bool
	PopRegistryTimeout   time.Duration
	PopRegistryCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parsePositiveDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}
	forecastTimeout, err := parsePositiveDuration("FORECAST_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	popTimeout, err := parsePositiveDuration("POPREG_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseIntInRange("BATCH_SIZE", 50, 1, 1000)
	if err != nil {
		return nil, err
	}
	workers, err := parseIntInRange("ANALYSIS_WORKERS", 4, 1, 256)
	if err != nil {
		return nil, err
	}
	window, err := parseIntInRange("SMOOTHING_WINDOW", 7, 1, 90)
	if err != nil {
		return nil, err
	}
	maxGap, err := parseIntInRange("MAX_GAP_DAYS", 3, 0, 30)
	if err != nil {
		return nil, err
	}
	minSeparation, err := parseIntInRange("WAVE_MIN_SEPARATION_DAYS", 21, 0, 365)
	if err != nil {
		return nil, err
	}
	baselineWindow, err := parseIntInRange("WAVE_BASELINE_WINDOW_DAYS", 30, 1, 365)
	if err != nil {
		return nil, err
	}
	generationInterval, err := parseIntInRange("GENERATION_INTERVAL_DAYS", 5, 1, 60)
	if err != nil {
		return nil, err
	}
	horizon, err := parseIntInRange("FORECAST_HORIZON_DAYS", 14, 1, 90)
	if err != nil {
		return nil, err
	}
	seasonalPeriod, err := parseIntInRange("SEASONAL_PERIOD", 7, 2, 365)
	if err != nil {
		return nil, err
	}
	popCacheSize, err := parseIntInRange("POPREG_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}

	threshold, err := parseFloat("WAVE_THRESHOLD", 1.5)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 {
		return nil, errors.New("WAVE_THRESHOLD must be positive")
	}
	confidence, err := parseFloat("CONFIDENCE_LEVEL", 0.95)
	if err != nil {
		return nil, err
	}
	if confidence <= 0 || confidence >= 1 {
		return nil, errors.New("CONFIDENCE_LEVEL must be in (0, 1)")
	}

	popURL := os.Getenv("POPREG_URL")
	popEnabled := popURL != ""
	if v := os.Getenv("POPREG_ENABLED"); v != "" {
		popEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "raw-observations"),
		KafkaSinkTopic:     envOrDefault("KAFKA_SINK_TOPIC", "epi-analysis-results"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "epi-signal-etl"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		AnalysisWorkers:    workers,

		SmoothingWindow:        window,
		MaxGapDays:             maxGap,
		WaveThreshold:          threshold,
		WaveMinSeparationDays:  minSeparation,
		WaveBaselineWindowDays: baselineWindow,
		GenerationIntervalDays: generationInterval,
		ConfidenceLevel:        confidence,
		ForecastHorizonDays:    horizon,
		ForecastModel:          envOrDefault("FORECAST_MODEL", "trend"),
		SeasonalPeriod:         seasonalPeriod,
		ForecastTimeout:        forecastTimeout,
		CorrelationMethod:      envOrDefault("CORRELATION_METHOD", "pearson"),
		AgeBands:               splitList(envOrDefault("AGE_BANDS", "0-17,18-49,50-64,65+")),
		ReferenceAgeBand:       envOrDefault("REFERENCE_AGE_BAND", "18-49"),

		PopRegistryURL:       popURL,
		PopRegistryEnabled:   popEnabled,
		PopRegistryTimeout:   popTimeout,
		PopRegistryCacheSize: popCacheSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if len(cfg.AgeBands) == 0 {
		return nil, errors.New("AGE_BANDS is required")
	}
	if cfg.PopRegistryEnabled && cfg.PopRegistryURL == "" {
		return nil, errors.New("POPREG_ENABLED is true but POPREG_URL is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntInRange(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, min, max)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}
