package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/epi-signal-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResult_StampsPackageClock(t *testing.T) {
	frozen := time.Date(2021, 1, 15, 10, 30, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	params := domain.Parameters{SmoothingWindow: 7, ForecastModel: "trend"}
	r := domain.NewResult("Testland", params)

	assert.Equal(t, "Testland", r.Location)
	assert.Equal(t, frozen, r.ComputedAt)
	assert.Equal(t, params, r.Parameters)
	assert.Nil(t, r.Smoothed)
	assert.Empty(t, r.Warnings)
}

func TestSerializeResult_KeyedByLocation(t *testing.T) {
	frozen := time.Date(2021, 1, 15, 10, 30, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	r := domain.NewResult("Testland", domain.Parameters{SmoothingWindow: 7})

	event, err := domain.SerializeResult(r)
	require.NoError(t, err)

	assert.Equal(t, []byte("Testland"), event.Key, "location key keeps sink publishing replay-safe")
	assert.Equal(t, "Testland", event.Headers["location"])
	assert.Equal(t, "2021-01-15T10:30:00Z", event.Headers["computed_at"])

	var decoded domain.AnalysisResult
	require.NoError(t, json.Unmarshal(event.Value, &decoded))
	assert.Equal(t, "Testland", decoded.Location)
	assert.Equal(t, 7, decoded.Parameters.SmoothingWindow)
	assert.True(t, decoded.ComputedAt.Equal(frozen))
}

func TestSerializeResult_OmitsEmptySections(t *testing.T) {
	r := domain.NewResult("Testland", domain.Parameters{})

	event, err := domain.SerializeResult(r)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(event.Value, &doc))
	assert.NotContains(t, doc, "smoothed")
	assert.NotContains(t, doc, "waves")
	assert.NotContains(t, doc, "forecast")
	assert.NotContains(t, doc, "warnings")
	assert.Contains(t, doc, "summary", "summary always present")
}
