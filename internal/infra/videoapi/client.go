// Package videoapi provides the video search client backing keyword source
// collection. It queries the YouTube Data API v3 search endpoint through a
// resilient gateway.
package videoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"trendpost/internal/resilience/circuitbreaker"
	"trendpost/internal/resilience/gateway"
	"trendpost/internal/resilience/retry"
)

// Item is one video search result.
type Item struct {
	VideoID      string
	Title        string
	Description  string
	ThumbnailURL string
	PublishedAt  time.Time
}

// Config holds configuration for the video search client.
type Config struct {
	// BaseURL is the search endpoint.
	BaseURL string

	// APIKey authenticates requests. Required.
	APIKey string

	// Timeout bounds one search request.
	Timeout time.Duration
}

// LoadConfigFromEnv reads client configuration from environment variables.
//
// Environment variables:
//   - VIDEO_API_KEY: API key (required)
//   - VIDEO_API_URL: Endpoint override (default: YouTube Data API v3 search)
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL: "https://www.googleapis.com/youtube/v3/search",
		Timeout: 10 * time.Second,
	}
	cfg.APIKey = os.Getenv("VIDEO_API_KEY")
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("VIDEO_API_KEY not set")
	}
	if base := os.Getenv("VIDEO_API_URL"); base != "" {
		cfg.BaseURL = base
	}
	return cfg, nil
}

// Client searches videos for a keyword through a resilient gateway.
type Client struct {
	httpClient *http.Client
	gateway    *gateway.Gateway
	config     Config
}

// NewClient creates a video search client with its own gateway instance.
// The YouTube API quota is the tightest of the pipeline's dependencies, so the
// admission rate is deliberately low.
func NewClient(httpClient *http.Client, cfg Config) *Client {
	return &Client{
		httpClient: httpClient,
		gateway: gateway.New(gateway.Config{
			Name:          "video-search",
			RatePerSecond: 2,
			Burst:         5,
			Retry:         retry.SearchAPIConfig(),
			Breaker:       circuitbreaker.VideoSearchConfig(),
		}),
		config: cfg,
	}
}

// searchResponse mirrors the YouTube Data API search payload, limited to the
// fields the pipeline consumes.
type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string    `json:"title"`
			Description string    `json:"description"`
			PublishedAt time.Time `json:"publishedAt"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search returns up to limit recent videos for the keyword.
func (c *Client) Search(ctx context.Context, keyword string, limit int) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	return gateway.Do(ctx, c.gateway, func(ctx context.Context) ([]Item, error) {
		return c.doSearch(ctx, keyword, limit)
	})
}

func (c *Client) doSearch(ctx context.Context, keyword string, limit int) ([]Item, error) {
	endpoint, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse video search URL: %w", err)
	}
	q := endpoint.Query()
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("order", "date")
	q.Set("q", keyword)
	q.Set("maxResults", strconv.Itoa(limit))
	q.Set("key", c.config.APIKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build video search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode video search response: %w", err)
	}

	items := make([]Item, 0, len(payload.Items))
	for _, entry := range payload.Items {
		if entry.ID.VideoID == "" {
			continue
		}
		items = append(items, Item{
			VideoID:      entry.ID.VideoID,
			Title:        entry.Snippet.Title,
			Description:  entry.Snippet.Description,
			ThumbnailURL: entry.Snippet.Thumbnails.High.URL,
			PublishedAt:  entry.Snippet.PublishedAt,
		})
	}
	return items, nil
}
