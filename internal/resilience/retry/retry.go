// Package retry provides exponential-backoff retry with jitter for calls to
// external services. Only transient failures are retried; everything else
// returns immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Config holds the retry policy for one class of outbound call.
type Config struct {
	// MaxAttempts bounds the total number of calls, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	Multiplier float64

	// JitterFraction is how much of the delay may be added as random
	// jitter, between 0 and 1.
	JitterFraction float64
}

// DefaultConfig returns a moderate general-purpose policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// TrendAPIConfig is the policy for the trending-keywords fetch. Aggressive:
// a failed trend fetch kills the whole pipeline run.
func TrendAPIConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 5
	return cfg
}

// SearchAPIConfig is the policy for news and video search calls. Per-keyword
// failures are isolated upstream, so give up quickly.
func SearchAPIConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxDelay = 10 * time.Second
	return cfg
}

// AIAPIConfig is the policy for summarization calls. Moderate, since every
// retried attempt is billed.
func AIAPIConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = 2 * time.Second
	cfg.MaxDelay = 10 * time.Second
	return cfg
}

// ScraperConfig is the policy for page metadata scraping. Thumbnail
// enrichment is best-effort, so a single retry.
func ScraperConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	cfg.MaxDelay = 5 * time.Second
	return cfg
}

// WithBackoff runs fn until it succeeds, returns a non-retryable error, the
// attempt budget runs out, or the context is cancelled during a backoff wait.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}

		if !IsRetryable(lastErr) {
			slog.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr))
			return lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.backoffDelay(attempt)
		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", lastErr))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// backoffDelay computes the wait after the given 1-based failed attempt,
// capped at MaxDelay and stretched by up to JitterFraction of random jitter.
func (cfg Config) backoffDelay(attempt int) time.Duration {
	d := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1)))
	if d > cfg.MaxDelay || d <= 0 {
		d = cfg.MaxDelay
	}
	if frac := min(cfg.JitterFraction, 1.0); frac > 0 {
		// math/rand is fine here, jitter needs no cryptographic strength.
		d += time.Duration(rand.Float64() * float64(d) * frac)
	}
	return d
}

// IsRetryable reports whether the error looks transient: network timeouts,
// connection-level syscall errors, and throttling or server-side HTTP codes.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, syscall.ENETUNREACH):
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode >= 500 && httpErr.StatusCode < 600:
			return true
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return true
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return true
		}
	}

	return false
}

// HTTPError carries an HTTP status code so IsRetryable can classify
// responses from external APIs.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
