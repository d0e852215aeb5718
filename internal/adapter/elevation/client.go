// Package elevation resolves terrain elevation for coordinates from an
// Open-Meteo compatible elevation API, with an LRU cache in front so
// repeated lookups for the same station stay local.
package elevation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/banjirlab/flood-risk-service/internal/observability"
)

// Client implements domain.ElevationResolver against the API's
// /v1/elevation endpoint. The API is keyless.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an elevation API client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// Elevation fetches the terrain elevation in meters for a coordinate pair.
func (c *Client) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	fullURL := c.baseURL + "/v1/elevation?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ElevationRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("elevation request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.ElevationAPIDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		c.metrics.ElevationRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("elevation API error: status %d: %s", resp.StatusCode, body)
	}

	var apiResp response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		c.metrics.ElevationRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Elevation) == 0 {
		c.metrics.ElevationRequests.WithLabelValues("empty").Inc()
		return 0, fmt.Errorf("elevation API returned no data for %.4f,%.4f", lat, lon)
	}

	c.metrics.ElevationRequests.WithLabelValues("success").Inc()
	return apiResp.Elevation[0], nil
}

// Elevation API response type. The endpoint accepts coordinate lists and
// answers with one elevation per coordinate; this client always asks for
// exactly one.
type response struct {
	Elevation []float64 `json:"elevation"`
}
