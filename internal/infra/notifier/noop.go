package notifier

import (
	"context"
	"log/slog"
)

// NoOpNotifier discards run reports. Used when no webhook is configured.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// NotifyRunReport logs the report at debug level and does nothing else.
func (n *NoOpNotifier) NotifyRunReport(_ context.Context, report *RunReport) error {
	slog.Debug("run report notification skipped, notifier disabled",
		slog.String("status", report.Status),
		slog.Int("posts_created", report.PostsCreated))
	return nil
}
