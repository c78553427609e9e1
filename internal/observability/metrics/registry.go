// Package metrics provides the Prometheus metrics for pipeline business
// outcomes and database health. Stage timing lives with the worker; the
// metrics here describe what the pipeline produced, not how long it ran.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrendKeywordsFetchedTotal counts trending keywords ingested per run.
	TrendKeywordsFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trend_keywords_fetched_total",
			Help: "Total trending keywords ingested",
		},
	)

	// KeywordsPostableTotal counts keywords that passed novelty evaluation,
	// partitioned by why.
	KeywordsPostableTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keywords_postable_total",
			Help: "Keywords approved for posting",
		},
		[]string{"reason"}, // first_sighting, novelty
	)

	// KeywordsSkippedTotal counts keywords dropped by novelty evaluation.
	KeywordsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keywords_skipped_total",
			Help: "Keywords skipped by novelty evaluation",
		},
		[]string{"reason"}, // low_variation, eval_failed
	)

	// SourceResultsTotal counts persisted source search results by platform.
	SourceResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_results_total",
			Help: "Source search results persisted",
		},
		[]string{"platform"},
	)

	// SourceSearchErrorsTotal counts failed per-keyword platform searches.
	SourceSearchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_search_errors_total",
			Help: "Failed per-keyword source searches",
		},
		[]string{"platform"},
	)

	// PostsPublishedTotal counts generated posts by outcome.
	PostsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_published_total",
			Help: "Posts generated by the pipeline",
		},
		[]string{"status"}, // success, failure
	)

	// CacheWarmFailuresTotal counts post cards that missed the warmup.
	CacheWarmFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_warm_failures_total",
			Help: "Post cards that failed cache warmup",
		},
	)
)

// Database metrics track query latency and pool health.
var (
	// DBQueryDuration measures database query duration by operation.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks in-use database connections.
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of in-use database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections.
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)
