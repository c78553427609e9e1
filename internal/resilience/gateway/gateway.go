// Package gateway wraps outbound calls to external dependencies with rate-limit
// admission, retry with backoff, and a circuit breaker, applied in that order.
// Each adapter owns an independently configured Gateway keyed by its own name, so
// one degraded dependency does not throttle the others.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"trendpost/internal/resilience/circuitbreaker"
	"trendpost/internal/resilience/retry"
)

// Sentinel errors for admission-control rejections. Both are immediate failures:
// a rate-limited call is never retried, and an open circuit fails fast without a
// network call.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Config holds the policy configuration for one gateway.
type Config struct {
	// Name identifies the wrapped dependency in logs and metrics.
	Name string

	// RatePerSecond is the sustained admission rate for outbound calls.
	RatePerSecond float64

	// Burst is the number of calls admitted in a burst.
	Burst int

	// Retry configures backoff retry for failures classified retryable.
	Retry retry.Config

	// Breaker configures the circuit breaker shared across runs.
	Breaker circuitbreaker.Config
}

// Gateway applies the three policies around a single outbound call. The breaker
// state is the only state shared across pipeline runs and is safe for concurrent
// use from worker pools.
type Gateway struct {
	name     string
	limiter  *rate.Limiter
	retryCfg retry.Config
	breaker  *circuitbreaker.CircuitBreaker
}

// New creates a gateway from the given configuration.
func New(cfg Config) *Gateway {
	return &Gateway{
		name:     cfg.Name,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		retryCfg: cfg.Retry,
		breaker:  circuitbreaker.New(cfg.Breaker),
	}
}

// Name returns the gateway's dependency name.
func (g *Gateway) Name() string {
	return g.name
}

// State returns the current circuit breaker state.
func (g *Gateway) State() gobreaker.State {
	return g.breaker.State()
}

// Do runs fn through the gateway's policies. A call that exceeds the admission
// budget fails immediately with ErrRateLimited and is not retried. Retryable
// failures (network errors, 5xx, 429) are retried with backoff; each attempt
// passes through the circuit breaker, and an open circuit surfaces as
// ErrCircuitOpen without reaching the network.
func Do[T any](ctx context.Context, g *Gateway, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if !g.limiter.Allow() {
		slog.Warn("gateway admission rejected",
			slog.String("gateway", g.name),
			slog.String("reason", "rate_limited"))
		return zero, fmt.Errorf("%s: %w", g.name, ErrRateLimited)
	}

	var result T
	retryErr := retry.WithBackoff(ctx, g.retryCfg, func() error {
		out, err := g.breaker.Execute(func() (interface{}, error) {
			return fn(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				slog.Warn("gateway circuit open, request rejected",
					slog.String("gateway", g.name),
					slog.String("state", g.breaker.State().String()))
				// Not retryable: the cool-down is longer than any backoff.
				return fmt.Errorf("%s: %w", g.name, ErrCircuitOpen)
			}
			return err
		}
		result = out.(T)
		return nil
	})
	if retryErr != nil {
		return zero, fmt.Errorf("%s call failed: %w", g.name, retryErr)
	}
	return result, nil
}

// Classify maps an error returned by Do to a failure class for counters.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "upstream"
	}
}
