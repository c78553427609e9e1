package metrics

import "time"

// Reason and status label values.
const (
	ReasonFirstSighting = "first_sighting"
	ReasonNovelty       = "novelty"
	ReasonLowVariation  = "low_variation"
	ReasonEvalFailed    = "eval_failed"
)

// RecordKeywordsFetched records how many trending keywords a run ingested.
func RecordKeywordsFetched(count int) {
	TrendKeywordsFetchedTotal.Add(float64(count))
}

// RecordKeywordsPostable records keywords approved for posting. First
// sightings bypass scoring and are tracked separately from novelty wins.
func RecordKeywordsPostable(firstSighting, byNovelty int) {
	if firstSighting > 0 {
		KeywordsPostableTotal.WithLabelValues(ReasonFirstSighting).Add(float64(firstSighting))
	}
	if byNovelty > 0 {
		KeywordsPostableTotal.WithLabelValues(ReasonNovelty).Add(float64(byNovelty))
	}
}

// RecordKeywordsSkipped records keywords dropped by novelty evaluation.
func RecordKeywordsSkipped(lowVariation, evalFailed int) {
	if lowVariation > 0 {
		KeywordsSkippedTotal.WithLabelValues(ReasonLowVariation).Add(float64(lowVariation))
	}
	if evalFailed > 0 {
		KeywordsSkippedTotal.WithLabelValues(ReasonEvalFailed).Add(float64(evalFailed))
	}
}

// RecordSourceResults records persisted search results for a platform.
func RecordSourceResults(platform string, count int) {
	if count > 0 {
		SourceResultsTotal.WithLabelValues(platform).Add(float64(count))
	}
}

// RecordSourceSearchError records one failed per-keyword platform search.
func RecordSourceSearchError(platform string) {
	SourceSearchErrorsTotal.WithLabelValues(platform).Inc()
}

// RecordPostsPublished records generated posts and generation failures.
func RecordPostsPublished(created, failed int) {
	if created > 0 {
		PostsPublishedTotal.WithLabelValues("success").Add(float64(created))
	}
	if failed > 0 {
		PostsPublishedTotal.WithLabelValues("failure").Add(float64(failed))
	}
}

// RecordCacheWarmFailures records post cards that missed the warmup.
func RecordCacheWarmFailures(failed int) {
	if failed > 0 {
		CacheWarmFailuresTotal.Add(float64(failed))
	}
}

// RecordDBQuery records the duration of a named database operation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates the connection pool gauges. Called
// periodically from the worker.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
