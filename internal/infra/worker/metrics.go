package worker

import (
	"trendpost/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// pipeline-specific metrics for run tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Pipeline metrics:
//   - worker_pipeline_runs_total: Total pipeline runs by status
//   - worker_pipeline_run_duration_seconds: Duration histogram of full runs
//   - worker_pipeline_stage_duration_seconds: Duration histogram per stage
//   - worker_pipeline_keywords_processed_total: Keywords carried through a run
//   - worker_pipeline_posts_created_total: Posts created across all runs
//   - worker_pipeline_last_success_timestamp: Unix timestamp of last success
type WorkerMetrics struct {
	*config.ConfigMetrics

	// PipelineRunsTotal counts pipeline runs by outcome.
	// Labels: status (success, partial, failure, skipped)
	PipelineRunsTotal *prometheus.CounterVec

	// PipelineRunDurationSeconds measures the duration of full pipeline runs.
	PipelineRunDurationSeconds prometheus.Histogram

	// PipelineStageDurationSeconds measures per-stage durations.
	// Labels: stage (ingest, evaluate, search, generate, warm)
	PipelineStageDurationSeconds *prometheus.HistogramVec

	// PipelineKeywordsProcessedTotal counts keywords carried through runs.
	PipelineKeywordsProcessedTotal prometheus.Counter

	// PipelinePostsCreatedTotal counts posts created across all runs.
	PipelinePostsCreatedTotal prometheus.Counter

	// PipelineLastSuccessTimestamp records the Unix timestamp of the last
	// successful run.
	PipelineLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics
// initialized and registered via promauto.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_pipeline_runs_total",
			Help: "Total number of pipeline runs by status (success/partial/failure/skipped)",
		}, []string{"status"}),

		PipelineRunDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_pipeline_run_duration_seconds",
			Help:    "Duration of full pipeline runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),

		PipelineStageDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),

		PipelineKeywordsProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_pipeline_keywords_processed_total",
			Help: "Total number of trending keywords processed across all runs",
		}),

		PipelinePostsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_pipeline_posts_created_total",
			Help: "Total number of posts created across all runs",
		}),

		PipelineLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_pipeline_last_success_timestamp",
			Help: "Unix timestamp of the last successful pipeline run",
		}),
	}
}

// MustRegister is a no-op kept for a conventional initialization call site;
// metrics are auto-registered via promauto in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {}

// RecordRun increments the run counter for the given status.
// Status should be one of "success", "partial", "failure", or "skipped".
func (m *WorkerMetrics) RecordRun(status string) {
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
}

// RecordRunDuration observes the duration of a full pipeline run, in seconds.
func (m *WorkerMetrics) RecordRunDuration(seconds float64) {
	m.PipelineRunDurationSeconds.Observe(seconds)
}

// RecordStageDuration observes the duration of one pipeline stage, in seconds.
func (m *WorkerMetrics) RecordStageDuration(stage string, seconds float64) {
	m.PipelineStageDurationSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordKeywordsProcessed adds the number of keywords carried through a run.
func (m *WorkerMetrics) RecordKeywordsProcessed(count int) {
	m.PipelineKeywordsProcessedTotal.Add(float64(count))
}

// RecordPostsCreated adds the number of posts created in a run.
func (m *WorkerMetrics) RecordPostsCreated(count int) {
	m.PipelinePostsCreatedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful run.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.PipelineLastSuccessTimestamp.SetToCurrentTime()
}
