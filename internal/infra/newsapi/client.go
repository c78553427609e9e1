// Package newsapi provides the news search client backing keyword source
// collection. It queries the Google News RSS search endpoint and parses results
// with the gofeed library through a resilient gateway.
package newsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/mmcdole/gofeed"

	"trendpost/internal/resilience/circuitbreaker"
	"trendpost/internal/resilience/gateway"
	"trendpost/internal/resilience/retry"
)

// Item is one news search result.
type Item struct {
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
}

// Config holds configuration for the news search client.
type Config struct {
	// BaseURL is the RSS search endpoint.
	BaseURL string

	// Language and Country shape the hl/gl/ceid query parameters.
	Language string
	Country  string

	// Timeout bounds one search request.
	Timeout time.Duration
}

// LoadConfigFromEnv reads client configuration from environment variables.
//
// Environment variables:
//   - NEWS_SEARCH_URL: Endpoint override (default: Google News RSS search)
//   - NEWS_SEARCH_LANG: Language code (default: "en")
//   - NEWS_SEARCH_COUNTRY: Country code (default: "US")
func LoadConfigFromEnv() Config {
	cfg := Config{
		BaseURL:  "https://news.google.com/rss/search",
		Language: "en",
		Country:  "US",
		Timeout:  10 * time.Second,
	}
	if base := os.Getenv("NEWS_SEARCH_URL"); base != "" {
		cfg.BaseURL = base
	}
	if lang := os.Getenv("NEWS_SEARCH_LANG"); lang != "" {
		cfg.Language = lang
	}
	if country := os.Getenv("NEWS_SEARCH_COUNTRY"); country != "" {
		cfg.Country = country
	}
	return cfg
}

// Client searches news articles for a keyword through a resilient gateway.
type Client struct {
	httpClient *http.Client
	gateway    *gateway.Gateway
	config     Config
}

// NewClient creates a news search client with its own gateway instance.
func NewClient(httpClient *http.Client, cfg Config) *Client {
	return &Client{
		httpClient: httpClient,
		gateway: gateway.New(gateway.Config{
			Name:          "news-search",
			RatePerSecond: 5,
			Burst:         10,
			Retry:         retry.SearchAPIConfig(),
			Breaker:       circuitbreaker.NewsSearchConfig(),
		}),
		config: cfg,
	}
}

// Search returns up to limit news items for the keyword, as published by the feed.
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
		return nil, fmt.Errorf("parse news search URL: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", keyword)
	q.Set("hl", c.config.Language)
	q.Set("gl", c.config.Country)
	q.Set("ceid", c.config.Country+":"+c.config.Language)
	endpoint.RawQuery = q.Encode()

	parser := gofeed.NewParser()
	parser.UserAgent = "trendpost-bot"
	parser.Client = c.httpClient

	feed, err := parser.ParseURLWithContext(endpoint.String(), ctx)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, limit)
	for _, entry := range feed.Items {
		if len(items) >= limit {
			break
		}
		if entry.Link == "" {
			continue
		}
		item := Item{
			Title:       entry.Title,
			Link:        entry.Link,
			Description: entry.Description,
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = *entry.PublishedParsed
		}
		items = append(items, item)
	}
	return items, nil
}

