package trends

import (
	"time"

	"trendpost/internal/resilience/circuitbreaker"
	"trendpost/internal/resilience/gateway"
	"trendpost/internal/resilience/retry"
)

// gatewayWithFastRetry builds a gateway with millisecond backoff so retry paths
// can be exercised without slowing the suite down.
func gatewayWithFastRetry() *gateway.Gateway {
	return gateway.New(gateway.Config{
		Name:          "trend-api",
		RatePerSecond: 1000,
		Burst:         1000,
		Retry: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   time.Millisecond,
			MaxDelay:       5 * time.Millisecond,
			Multiplier:     2.0,
			JitterFraction: 0,
		},
		Breaker: circuitbreaker.TrendAPIConfig(),
	})
}
