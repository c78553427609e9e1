// Package circuitbreaker wraps sony/gobreaker with failure-ratio tripping and
// per-dependency preset configurations, so a degraded external API fails fast
// instead of stalling the pipeline run.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config describes one breaker's trip and recovery behavior.
type Config struct {
	// Name identifies the circuit in logs and metrics.
	Name string

	// MaxRequests caps the trial calls admitted while half-open.
	MaxRequests uint32

	// Interval is the rolling window in the closed state after which the
	// success and failure counts reset.
	Interval time.Duration

	// Timeout is the cool-down in the open state before half-open.
	Timeout time.Duration

	// FailureThreshold is the failure ratio at which the circuit trips,
	// e.g. 0.6 for 60 percent.
	FailureThreshold float64

	// MinRequests is how many requests must be observed in the window
	// before the ratio is considered at all.
	MinRequests uint32
}

// DefaultConfig returns a moderate baseline policy under the given name.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// TrendAPIConfig returns configuration optimized for the trending-keywords API.
// Slow to trip: the trend fetch runs once per hour, so the rolling window is long.
func TrendAPIConfig() Config {
	return Config{
		Name:             "trend-api",
		MaxRequests:      1,
		Interval:         10 * time.Minute,
		Timeout:          5 * time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

// NewsSearchConfig returns configuration optimized for news search calls.
func NewsSearchConfig() Config {
	return Config{
		Name:             "news-search",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          120 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      10,
	}
}

// VideoSearchConfig returns configuration optimized for video search calls.
func VideoSearchConfig() Config {
	return Config{
		Name:             "video-search",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          120 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      10,
	}
}

// AIAPIConfig returns configuration optimized for summarizer API calls.
func AIAPIConfig() Config {
	return Config{
		Name:             "summarizer-api",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// ScraperConfig returns configuration optimized for page metadata scraping.
// Conservative: thumbnail enrichment is best-effort and sites change structure.
func ScraperConfig() Config {
	return Config{
		Name:             "page-scraper",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          10 * time.Minute,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// CircuitBreaker is a named gobreaker instance with ratio-based tripping and
// state-change logging.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a breaker from the configuration. State changes are logged at
// warn level under the configured name.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs fn through the breaker. While the circuit is open it returns
// gobreaker.ErrOpenState without calling fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// State reports the breaker's current state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name reports the breaker's configured name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen reports whether the circuit is currently open.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
