// Package pipeline implements the hourly trend pipeline: keyword ingestion,
// novelty evaluation, source search, post generation, and cache warmup,
// sequenced by a runner that isolates per-item failures and aborts only on
// fatal ones.
package pipeline

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned by the runner when a trigger arrives while a
// run is still in flight. Overlapping runs would collide on the same hour
// bucket, so the new trigger is skipped, never queued.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// FatalError aborts the whole run. Trend fetch failure and persistence
// unavailability are fatal; everything else is isolated to the item or stage
// that failed.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal pipeline error in stage %s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// fatal wraps err as a FatalError for the given stage.
func fatal(stage string, err error) error {
	return &FatalError{Stage: stage, Err: err}
}

// IsFatal reports whether err aborts the run.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
