// Package resilience holds the fault-tolerance building blocks guarding every
// outbound call the pipeline makes: retry with exponential backoff and jitter,
// failure-ratio circuit breakers, and the gateway that composes them with
// rate-limit admission.
//
// Adapters do not use retry or circuitbreaker directly; they construct a
// gateway per external dependency and route calls through gateway.Do:
//
//	gw := gateway.New(gateway.Config{
//	    Name:          "news-search",
//	    RatePerSecond: 5,
//	    Burst:         10,
//	    Retry:         retry.SearchAPIConfig(),
//	    Breaker:       circuitbreaker.NewsSearchConfig(),
//	})
//	items, err := gateway.Do(ctx, gw, func(ctx context.Context) ([]Item, error) {
//	    return client.search(ctx, keyword)
//	})
package resilience
