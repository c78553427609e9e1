// Package worker provides the operational shell around the hourly pipeline:
// configuration, health endpoints, Prometheus metrics, and the background
// enrichment pool.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"trendpost/internal/pkg/config"
)

// WorkerConfig holds the configuration for the worker component.
// It controls the cron schedule, per-run timeout, concurrency limits, and the
// health endpoint.
//
// All fields have defaults and validation rules; loading is fail-open, so an
// invalid environment value falls back to the default with a warning rather
// than preventing startup.
type WorkerConfig struct {
	// CronSchedule is the cron expression for pipeline scheduling.
	// Format: "minute hour day month weekday"
	// Default: "0 * * * *" (top of every hour)
	CronSchedule string

	// Timezone is the IANA timezone name for cron scheduling.
	// Default: "Asia/Seoul"
	Timezone string

	// RunTimeout is the maximum duration for a single pipeline run.
	// The run's context is cancelled once the timeout elapses.
	// Default: 10 minutes
	RunTimeout time.Duration

	// SearchParallelism is the maximum number of keywords whose source
	// searches run concurrently.
	// Range: 1-32. Default: 8
	SearchParallelism int

	// SummarizeParallelism is the maximum number of concurrent AI
	// summarization calls.
	// Range: 1-10. Default: 3
	SummarizeParallelism int

	// EnrichWorkers is the number of background workers handling
	// fire-and-forget thumbnail enrichment.
	// Range: 1-16. Default: 4
	EnrichWorkers int

	// RunOnStart triggers one pipeline run immediately at startup instead of
	// waiting for the first cron tick. Useful in development.
	// Default: false
	RunOnStart bool

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535. Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with production defaults: an hourly
// run at minute zero, a 10-minute run budget, and concurrency limits sized
// for the external API quotas.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:         "0 * * * *",
		Timezone:             "Asia/Seoul",
		RunTimeout:           10 * time.Minute,
		SearchParallelism:    8,
		SummarizeParallelism: 3,
		EnrichWorkers:        4,
		RunOnStart:           false,
		HealthPort:           9091,
	}
}

// Validate checks if the configuration values are valid. Field errors are
// collected and returned together.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errors = append(errors, fmt.Errorf("cron schedule: %w", err))
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidateDuration(c.RunTimeout, 1*time.Minute, 2*time.Hour); err != nil {
		errors = append(errors, fmt.Errorf("run timeout: %w", err))
	}

	if err := config.ValidateIntRange(c.SearchParallelism, 1, 32); err != nil {
		errors = append(errors, fmt.Errorf("search parallelism: %w", err))
	}

	if err := config.ValidateIntRange(c.SummarizeParallelism, 1, 10); err != nil {
		errors = append(errors, fmt.Errorf("summarize parallelism: %w", err))
	}

	if err := config.ValidateIntRange(c.EnrichWorkers, 1, 16); err != nil {
		errors = append(errors, fmt.Errorf("enrich workers: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// Fail-open strategy: an invalid value never prevents startup. The default is
// used instead, a warning is logged, and the fallback metrics are updated, so
// dashboards surface the misconfiguration.
//
// Environment variables:
//   - CRON_SCHEDULE: Cron expression (default: "0 * * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "Asia/Seoul")
//   - PIPELINE_RUN_TIMEOUT: Duration string, 1m-2h (default: 10m)
//   - SEARCH_PARALLELISM: Integer 1-32 (default: 8)
//   - SUMMARIZE_PARALLELISM: Integer 1-10 (default: 3)
//   - ENRICH_WORKERS: Integer 1-16 (default: 4)
//   - RUN_ON_START: "true" or "false" (default: false)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	anyFallback := false

	noteFallback := func(field, warning string, fallback bool) {
		if !fallback {
			return
		}
		anyFallback = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field)
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}

	schedule := config.EnvString("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = schedule.Value
	noteFallback("cron_schedule", schedule.Warning, schedule.Fallback)

	tz := config.EnvString("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	noteFallback("timezone", tz.Warning, tz.Fallback)

	timeout := config.EnvDuration("PIPELINE_RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 2*time.Hour)
	})
	cfg.RunTimeout = timeout.Value
	noteFallback("run_timeout", timeout.Warning, timeout.Fallback)

	search := config.EnvInt("SEARCH_PARALLELISM", cfg.SearchParallelism, func(v int) error {
		return config.ValidateIntRange(v, 1, 32)
	})
	cfg.SearchParallelism = search.Value
	noteFallback("search_parallelism", search.Warning, search.Fallback)

	summarize := config.EnvInt("SUMMARIZE_PARALLELISM", cfg.SummarizeParallelism, func(v int) error {
		return config.ValidateIntRange(v, 1, 10)
	})
	cfg.SummarizeParallelism = summarize.Value
	noteFallback("summarize_parallelism", summarize.Warning, summarize.Fallback)

	enrich := config.EnvInt("ENRICH_WORKERS", cfg.EnrichWorkers, func(v int) error {
		return config.ValidateIntRange(v, 1, 16)
	})
	cfg.EnrichWorkers = enrich.Value
	noteFallback("enrich_workers", enrich.Warning, enrich.Fallback)

	onStart := config.EnvBool("RUN_ON_START", cfg.RunOnStart)
	cfg.RunOnStart = onStart.Value
	noteFallback("run_on_start", onStart.Warning, onStart.Fallback)

	health := config.EnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = health.Value
	noteFallback("health_port", health.Warning, health.Fallback)

	metrics.SetFallbackActive(anyFallback)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
