package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by repositories and entity validation. Callers
// branch on these with errors.Is; ErrNotFound in particular marks the
// first-sighting path when a keyword has no prior hourly metric.
var (
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError reports which entity field failed validation and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
