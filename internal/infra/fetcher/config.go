package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// PageFetchConfig holds the configuration for page fetching operations.
// It controls security, performance, and behavior of content and metadata
// enrichment.
//
// Security settings:
//   - DenyPrivateIPs: Prevents SSRF attacks by blocking private IP addresses
//   - MaxBodySize: Prevents memory exhaustion from oversized responses
//   - MaxRedirects: Prevents infinite redirect loops
//   - Timeout: Prevents resource starvation from slow servers
type PageFetchConfig struct {
	// Enabled controls whether page fetching runs at all. When false both
	// content and metadata enrichment are skipped and the pipeline works
	// from search-result snippets alone.
	// Default: true
	Enabled bool

	// Threshold is the minimum snippet length (in characters) before content
	// fetching kicks in. Snippets at or above the threshold are considered
	// sufficient for the summarization prompt.
	// Default: 500
	Threshold int

	// Timeout is the maximum duration for a single HTTP request.
	// Default: 10s
	Timeout time.Duration

	// Parallelism is the maximum number of concurrent fetch operations.
	// Default: 10
	Parallelism int

	// MaxBodySize is the maximum HTTP response body size in bytes, enforced
	// while reading rather than from the Content-Length header.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Each redirect target is re-validated against the SSRF rules.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs controls whether URLs resolving to private, loopback,
	// or link-local IPs are rejected. Should always be true in production.
	// Default: true
	DenyPrivateIPs bool
}

// DefaultConfig returns the default configuration for page fetching.
func DefaultConfig() PageFetchConfig {
	return PageFetchConfig{
		Enabled:        true,
		Threshold:      500,
		Timeout:        10 * time.Second,
		Parallelism:    10,
		MaxBodySize:    10 * 1024 * 1024, // 10MB
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks if the configuration values are valid and safe.
func (c *PageFetchConfig) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	if c.Parallelism < 1 || c.Parallelism > 50 {
		return fmt.Errorf("parallelism must be between 1 and 50, got %d", c.Parallelism)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	return nil
}

// LoadConfigFromEnv loads configuration from environment variables.
// Unset variables keep their defaults; malformed values are errors. The
// loaded configuration is validated before being returned.
//
// Environment variables:
//   - PAGE_FETCH_ENABLED: "true" or "false" (default: true)
//   - PAGE_FETCH_THRESHOLD: Snippet length threshold (default: 500)
//   - PAGE_FETCH_TIMEOUT: Per-request timeout, e.g. "10s" (default: 10s)
//   - PAGE_FETCH_PARALLELISM: Concurrent fetches, 1-50 (default: 10)
//   - PAGE_FETCH_MAX_BODY_SIZE: Response size limit in bytes (default: 10MB)
//   - PAGE_FETCH_MAX_REDIRECTS: Redirect limit, 0-10 (default: 5)
//   - PAGE_FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
func LoadConfigFromEnv() (PageFetchConfig, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("PAGE_FETCH_ENABLED"); val != "" {
		cfg.Enabled = val == "true"
	}

	if val := os.Getenv("PAGE_FETCH_THRESHOLD"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.Threshold = parsed
		} else {
			return cfg, fmt.Errorf("invalid PAGE_FETCH_THRESHOLD: %v", err)
		}
	}

	if val := os.Getenv("PAGE_FETCH_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			cfg.Timeout = parsed
		} else {
			return cfg, fmt.Errorf("invalid PAGE_FETCH_TIMEOUT: %v (expected format: '10s', '1m')", err)
		}
	}

	if val := os.Getenv("PAGE_FETCH_PARALLELISM"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.Parallelism = parsed
		} else {
			return cfg, fmt.Errorf("invalid PAGE_FETCH_PARALLELISM: %v", err)
		}
	}

	if val := os.Getenv("PAGE_FETCH_MAX_BODY_SIZE"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.MaxBodySize = parsed
		} else {
			return cfg, fmt.Errorf("invalid PAGE_FETCH_MAX_BODY_SIZE: %v", err)
		}
	}

	if val := os.Getenv("PAGE_FETCH_MAX_REDIRECTS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.MaxRedirects = parsed
		} else {
			return cfg, fmt.Errorf("invalid PAGE_FETCH_MAX_REDIRECTS: %v", err)
		}
	}

	if val := os.Getenv("PAGE_FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
