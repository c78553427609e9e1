// Package notifier provides abstraction for reporting pipeline run outcomes.
// It defines the Notifier interface which allows different notification
// mechanisms (Discord, Slack, etc.) to be used interchangeably through
// dependency injection, plus a no-op implementation for when notifications
// are disabled.
package notifier

import (
	"context"
	"time"
)

// RunReport summarizes one completed pipeline run for operators.
type RunReport struct {
	// Status is the overall run outcome: "success", "partial", or "failure".
	Status string

	// StartedAt is when the run began.
	StartedAt time.Time

	// Duration is how long the run took.
	Duration time.Duration

	// Keywords is the number of trending keywords processed.
	Keywords int

	// NewKeywords is the number of keywords seen for the first time.
	NewKeywords int

	// SourcesDiscovered is the number of new sources stored this run.
	SourcesDiscovered int

	// PostsCreated is the number of posts generated this run.
	PostsCreated int

	// StageFailures lists stages that failed but were isolated, e.g.
	// "search: news search unavailable".
	StageFailures []string
}

// Notifier is an interface for delivering run reports.
// Implementations should handle rate limiting, retries, and error logging
// internally and respect context cancellation.
type Notifier interface {
	// NotifyRunReport delivers a summary of a completed pipeline run.
	// Returns a non-nil error if delivery failed after all retry attempts.
	NotifyRunReport(ctx context.Context, report *RunReport) error
}
