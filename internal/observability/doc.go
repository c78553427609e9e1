// Package observability groups the cross-cutting observability concerns of
// the pipeline worker.
//
// Subpackages:
//   - logging: structured logging with slog and run-scoped context
//   - metrics: Prometheus metrics for pipeline business outcomes
//   - tracing: OpenTelemetry spans around pipeline runs and stages
package observability
