package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestWithRunID_AttachesRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)

	ctx := ContextWithRunID(context.Background(), "run-42")
	WithRunID(ctx, logger).Info("stage started")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if record["run_id"] != "run-42" {
		t.Errorf("run_id = %v, want run-42", record["run_id"])
	}
}

func TestWithRunID_NoRunIDLeavesLoggerUntouched(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)

	WithRunID(context.Background(), logger).Info("no run context")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if _, ok := record["run_id"]; ok {
		t.Error("run_id attached without a run in context")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)

	WithFields(logger, map[string]any{"keyword": "eclipse", "bucket": "2025-06-01T14"}).Info("evaluated")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if record["keyword"] != "eclipse" || record["bucket"] != "2025-06-01T14" {
		t.Errorf("fields missing from record: %v", record)
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Error("FromContext did not return the stored logger")
	}
	if got := FromContext(context.Background()); got != slog.Default() {
		t.Error("FromContext without a stored logger should fall back to default")
	}
}

func TestRunIDFromContext_Absent(t *testing.T) {
	if got := RunIDFromContext(context.Background()); got != "" {
		t.Errorf("RunIDFromContext = %q, want empty", got)
	}
}
