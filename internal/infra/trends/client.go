// Package trends provides the client for the trending-keywords API.
// It pulls the current trending searches once per pipeline run through a
// resilient gateway; a wholesale failure here is fatal to the run.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"trendpost/internal/resilience/circuitbreaker"
	"trendpost/internal/resilience/gateway"
	"trendpost/internal/resilience/retry"
)

// Entry is one trending keyword with its raw trend magnitude.
type Entry struct {
	Keyword string
	Volume  int64
}

// Config holds configuration for the trend API client.
type Config struct {
	// BaseURL is the trending-searches endpoint.
	BaseURL string

	// APIKey authenticates requests. Required.
	APIKey string

	// Geo is the region code for trending searches.
	Geo string

	// Timeout bounds one HTTP request.
	Timeout time.Duration
}

// LoadConfigFromEnv reads client configuration from environment variables.
//
// Environment variables:
//   - TREND_API_KEY: API key (required)
//   - TREND_API_URL: Endpoint override (default: SerpApi trending now)
//   - TREND_API_GEO: Region code (default: "US")
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL: "https://serpapi.com/search.json",
		Geo:     "US",
		Timeout: 15 * time.Second,
	}

	cfg.APIKey = os.Getenv("TREND_API_KEY")
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("TREND_API_KEY not set")
	}
	if base := os.Getenv("TREND_API_URL"); base != "" {
		cfg.BaseURL = base
	}
	if geo := os.Getenv("TREND_API_GEO"); geo != "" {
		cfg.Geo = geo
	}
	return cfg, nil
}

// Client fetches trending keywords through a resilient gateway.
type Client struct {
	httpClient *http.Client
	gateway    *gateway.Gateway
	config     Config
}

// NewClient creates a trend API client with its own gateway instance.
func NewClient(httpClient *http.Client, cfg Config) *Client {
	return &Client{
		httpClient: httpClient,
		gateway: gateway.New(gateway.Config{
			Name:          "trend-api",
			RatePerSecond: 1,
			Burst:         2,
			Retry:         retry.TrendAPIConfig(),
			Breaker:       circuitbreaker.TrendAPIConfig(),
		}),
		config: cfg,
	}
}

// trendingResponse mirrors the SerpApi google_trends_trending_now payload,
// limited to the fields the pipeline consumes.
type trendingResponse struct {
	TrendingSearches []struct {
		Query        string `json:"query"`
		SearchVolume int64  `json:"search_volume"`
	} `json:"trending_searches"`
}

// FetchTrending returns the current trending keyword/volume pairs.
func (c *Client) FetchTrending(ctx context.Context) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	return gateway.Do(ctx, c.gateway, func(ctx context.Context) ([]Entry, error) {
		return c.doFetch(ctx)
	})
}

func (c *Client) doFetch(ctx context.Context) ([]Entry, error) {
	endpoint, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse trend API URL: %w", err)
	}
	q := endpoint.Query()
	q.Set("engine", "google_trends_trending_now")
	q.Set("geo", c.config.Geo)
	q.Set("api_key", c.config.APIKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build trend request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trend request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var payload trendingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode trend response: %w", err)
	}

	entries := make([]Entry, 0, len(payload.TrendingSearches))
	for _, t := range payload.TrendingSearches {
		if t.Query == "" {
			continue
		}
		entries = append(entries, Entry{Keyword: t.Query, Volume: t.SearchVolume})
	}
	return entries, nil
}
