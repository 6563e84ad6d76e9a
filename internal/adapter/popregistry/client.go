package popregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/epi-signal-etl/internal/observability"
)

// Client implements domain.PopulationLookup against the population registry
// HTTP API. Lookups are enrichment only: callers degrade to absolute counts
// when a lookup fails.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a population registry client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
		metrics: metrics,
	}
}

// Population looks up the resident population for a location. The second
// return is false when the registry has no figure for the location.
func (c *Client) Population(ctx context.Context, location string) (float64, bool, error) {
	params := url.Values{"location": {location}}
	fullURL := fmt.Sprintf("%s/v1/population?%s", c.baseURL, params.Encode())

	start := time.Now()
	pop, found, err := c.doRequest(ctx, fullURL)
	c.metrics.PopulationDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.PopulationRequests.WithLabelValues("error").Inc()
	case !found:
		c.metrics.PopulationRequests.WithLabelValues("miss").Inc()
	default:
		c.metrics.PopulationRequests.WithLabelValues("success").Inc()
	}
	return pop, found, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (float64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("population request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, false, fmt.Errorf("population registry error: status %d: %s", resp.StatusCode, body)
	}

	var regResp response
	if err := json.NewDecoder(resp.Body).Decode(&regResp); err != nil {
		return 0, false, fmt.Errorf("decode response: %w", err)
	}

	if regResp.Population <= 0 {
		return 0, false, nil
	}
	return regResp.Population, true, nil
}

// Population registry API response type.

type response struct {
	Location   string  `json:"location"`
	Population float64 `json:"population"`
}
