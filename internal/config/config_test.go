package config_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/epi-signal-etl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "raw-observations", cfg.KafkaSourceTopic)
	assert.Equal(t, "epi-analysis-results", cfg.KafkaSinkTopic)
	assert.Equal(t, "epi-signal-etl", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, 4, cfg.AnalysisWorkers)

	assert.Equal(t, 7, cfg.SmoothingWindow)
	assert.Equal(t, 3, cfg.MaxGapDays)
	assert.Equal(t, 1.5, cfg.WaveThreshold)
	assert.Equal(t, 21, cfg.WaveMinSeparationDays)
	assert.Equal(t, 30, cfg.WaveBaselineWindowDays)
	assert.Equal(t, 5, cfg.GenerationIntervalDays)
	assert.Equal(t, 0.95, cfg.ConfidenceLevel)
	assert.Equal(t, 14, cfg.ForecastHorizonDays)
	assert.Equal(t, "trend", cfg.ForecastModel)
	assert.Equal(t, 7, cfg.SeasonalPeriod)
	assert.Equal(t, 5*time.Second, cfg.ForecastTimeout)
	assert.Equal(t, "pearson", cfg.CorrelationMethod)
	assert.Equal(t, []string{"0-17", "18-49", "50-64", "65+"}, cfg.AgeBands)
	assert.Equal(t, "18-49", cfg.ReferenceAgeBand)

	assert.False(t, cfg.PopRegistryEnabled)
	assert.Equal(t, 1000, cfg.PopRegistryCacheSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "observations")
	t.Setenv("SMOOTHING_WINDOW", "14")
	t.Setenv("WAVE_THRESHOLD", "2.5")
	t.Setenv("FORECAST_MODEL", "seasonal")
	t.Setenv("CORRELATION_METHOD", "spearman")
	t.Setenv("AGE_BANDS", "0-59,60+")
	t.Setenv("REFERENCE_AGE_BAND", "0-59")
	t.Setenv("BATCH_FLUSH_INTERVAL", "2s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers, "list entries are trimmed")
	assert.Equal(t, "observations", cfg.KafkaSourceTopic)
	assert.Equal(t, 14, cfg.SmoothingWindow)
	assert.Equal(t, 2.5, cfg.WaveThreshold)
	assert.Equal(t, "seasonal", cfg.ForecastModel)
	assert.Equal(t, "spearman", cfg.CorrelationMethod)
	assert.Equal(t, []string{"0-59", "60+"}, cfg.AgeBands)
	assert.Equal(t, 2*time.Second, cfg.BatchFlushInterval)
}

func TestLoad_IntOutOfRange(t *testing.T) {
	t.Setenv("SMOOTHING_WINDOW", "91")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMOOTHING_WINDOW")
}

func TestLoad_IntNotANumber(t *testing.T) {
	t.Setenv("BATCH_SIZE", "fifty")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_NonPositiveThreshold(t *testing.T) {
	t.Setenv("WAVE_THRESHOLD", "0")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WAVE_THRESHOLD")
}

func TestLoad_ConfidenceOutOfRange(t *testing.T) {
	t.Setenv("CONFIDENCE_LEVEL", "1")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIDENCE_LEVEL")
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("FORECAST_TIMEOUT", "soon")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_TIMEOUT")
}

func TestLoad_EmptyAgeBands(t *testing.T) {
	t.Setenv("AGE_BANDS", " , ,")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGE_BANDS")
}

func TestLoad_PopRegistryURLImpliesEnabled(t *testing.T) {
	t.Setenv("POPREG_URL", "http://popregistry:8081")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.PopRegistryEnabled)
	assert.Equal(t, "http://popregistry:8081", cfg.PopRegistryURL)
}

func TestLoad_PopRegistryExplicitlyDisabled(t *testing.T) {
	t.Setenv("POPREG_URL", "http://popregistry:8081")
	t.Setenv("POPREG_ENABLED", "false")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.PopRegistryEnabled)
}

func TestLoad_PopRegistryEnabledWithoutURL(t *testing.T) {
	t.Setenv("POPREG_ENABLED", "true")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POPREG_URL")
}
