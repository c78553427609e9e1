// Package tracing provides OpenTelemetry spans around pipeline runs and
// their stages. Without a configured SDK the spans are no-ops, so the
// helpers are safe to call unconditionally.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("trendpost")

// GetTracer returns the application tracer for creating spans.
func GetTracer() trace.Tracer {
	return tracer
}
