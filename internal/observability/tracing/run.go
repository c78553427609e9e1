package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartRun opens the root span for one pipeline run. The span travels in the
// returned context; close it with EndRun.
func StartRun(ctx context.Context, runID string) context.Context {
	ctx, _ = tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("pipeline.run_id", runID)),
	)
	return ctx
}

// EndRun closes the run span carried by ctx, recording err when non-nil.
func EndRun(ctx context.Context, err error) {
	endSpan(ctx, err)
}

// StartStage opens a child span for one pipeline stage. The runner calls it
// from its before-stage hook and EndStage from the after-stage hook.
func StartStage(ctx context.Context, stage string) context.Context {
	ctx, _ = tracer.Start(ctx, "pipeline.stage."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("pipeline.stage", stage)),
	)
	return ctx
}

// EndStage closes the stage span carried by ctx, recording err when non-nil.
func EndStage(ctx context.Context, err error) {
	endSpan(ctx, err)
}

func endSpan(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
