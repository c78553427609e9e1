package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func testConfig() Config {
	return Config{
		Name:             "test-circuit",
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

func fail(cb *CircuitBreaker) error {
	_, err := cb.Execute(func() (interface{}, error) { return nil, errUpstream })
	return err
}

func TestCircuitBreaker_PassThrough(t *testing.T) {
	cb := New(testConfig())

	assert.Equal(t, "test-circuit", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	result, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	err = fail(cb)
	assert.Same(t, errUpstream, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State(), "a single failure must not trip")
}

func TestCircuitBreaker_TripsAtThreshold(t *testing.T) {
	cb := New(testConfig())

	// Five requests at 80% failure: over the 60% threshold but the trip
	// check only runs on failures, so the success in the middle delays it.
	for range 4 {
		require.Same(t, errUpstream, fail(cb))
	}
	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	require.Same(t, errUpstream, fail(cb))

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.True(t, cb.IsOpen())

	_, err = cb.Execute(func() (interface{}, error) {
		t.Error("function must not run while the circuit is open")
		return nil, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreaker_BelowMinRequestsNeverTrips(t *testing.T) {
	cfg := testConfig()
	cfg.FailureThreshold = 0.5
	cfg.MinRequests = 10
	cb := New(cfg)

	for range 4 {
		require.Same(t, errUpstream, fail(cb))
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequests = 2
	cfg.Timeout = 100 * time.Millisecond
	cb := New(cfg)

	for range 6 {
		fail(cb)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(150 * time.Millisecond)

	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err, "half-open trial call should be admitted")
	assert.NotEqual(t, gobreaker.StateOpen, cb.State())
}

func TestPresetConfigs(t *testing.T) {
	def := DefaultConfig("feed")
	assert.Equal(t, "feed", def.Name)
	assert.Equal(t, uint32(3), def.MaxRequests)
	assert.Equal(t, 0.6, def.FailureThreshold)

	trend := TrendAPIConfig()
	assert.Equal(t, "trend-api", trend.Name)
	assert.Equal(t, uint32(1), trend.MaxRequests, "hourly cadence leaves room for one trial call")

	assert.Equal(t, "news-search", NewsSearchConfig().Name)
	assert.Equal(t, "video-search", VideoSearchConfig().Name)
	assert.Equal(t, "summarizer-api", AIAPIConfig().Name)
	assert.Equal(t, "page-scraper", ScraperConfig().Name)
	assert.Equal(t, 0.8, ScraperConfig().FailureThreshold)
}
