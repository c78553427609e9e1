package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"

	"trendpost/internal/resilience/circuitbreaker"
	"trendpost/internal/resilience/gateway"
	"trendpost/internal/resilience/retry"
)

const fetchUserAgent = "trendpost-bot/1.0"

// newHTTPClient builds an HTTP client with redirect validation. Every
// redirect target is re-validated against the SSRF rules before it is
// followed.
func newHTTPClient(cfg PageFetchConfig) *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), cfg.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
}

// fetchPage performs a validated, size-limited GET and returns the body bytes
// together with the final URL after redirects.
func fetchPage(ctx context.Context, client *http.Client, cfg PageFetchConfig, urlStr string) ([]byte, *url.URL, error) {
	reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, nil, fmt.Errorf("%w: request exceeded %v", ErrTimeout, cfg.Timeout)
		}
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return nil, nil, urlErr.Err
		}
		return nil, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	limitedReader := io.LimitReader(resp.Body, cfg.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > cfg.MaxBodySize {
		return nil, nil, fmt.Errorf("%w: response size %d bytes exceeds limit %d bytes",
			ErrBodyTooLarge, len(body), cfg.MaxBodySize)
	}

	finalURL, err := url.Parse(urlStr)
	if err != nil {
		finalURL = nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	return body, finalURL, nil
}

// ReadabilityFetcher extracts clean article text from pages using the Mozilla
// Readability algorithm. The extracted text feeds summarization prompts when
// a search-result snippet is too short to be useful.
//
// Thread safety: ReadabilityFetcher is safe for concurrent use.
type ReadabilityFetcher struct {
	client  *http.Client
	gateway *gateway.Gateway
	config  PageFetchConfig
}

// NewReadabilityFetcher creates a ReadabilityFetcher with the given
// configuration.
func NewReadabilityFetcher(config PageFetchConfig) *ReadabilityFetcher {
	return &ReadabilityFetcher{
		client: newHTTPClient(config),
		gateway: gateway.New(gateway.Config{
			Name:          "content-fetch",
			RatePerSecond: 10,
			Burst:         20,
			Retry:         retry.ScraperConfig(),
			Breaker:       circuitbreaker.ScraperConfig(),
		}),
		config: config,
	}
}

// FetchContent fetches the page at the given URL and extracts its article
// text.
//
// The fetch process:
//  1. Validates the URL (SSRF prevention)
//  2. Executes the request through the resilient gateway
//  3. Reads the body with the configured size limit
//  4. Extracts article text via Readability
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	return gateway.Do(ctx, f.gateway, func(ctx context.Context) (string, error) {
		return f.doFetch(ctx, urlStr)
	})
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (string, error) {
	body, finalURL, err := fetchPage(ctx, f.client, f.config, urlStr)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(body), finalURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	if article.TextContent == "" {
		if article.Content == "" {
			return "", fmt.Errorf("%w: no readable content found", ErrExtractionFailed)
		}
		slog.Debug("using article Content instead of TextContent",
			slog.String("url", urlStr),
			slog.Int("content_length", len(article.Content)))
		return article.Content, nil
	}

	return article.TextContent, nil
}
