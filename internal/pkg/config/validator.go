package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidateCronSchedule checks a five-field cron expression against the same
// parser the scheduler uses, so a value that passes here is guaranteed to be
// accepted at registration time.
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("cron schedule cannot be empty")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("cron schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateTimezone checks an IANA timezone name by loading it. Fails on
// systems without tzdata even for correct names; the container image must
// carry the zoneinfo database.
func ValidateTimezone(tz string) error {
	if tz == "" {
		return fmt.Errorf("timezone cannot be empty")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("timezone %q: %w", tz, err)
	}
	return nil
}

// ValidateDuration checks that d falls within [min, max] inclusive.
func ValidateDuration(d, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("bad range: min %v > max %v", min, max)
	}
	if d < min || d > max {
		return fmt.Errorf("duration %v outside [%v, %v]", d, min, max)
	}
	return nil
}

// ValidateIntRange checks that v falls within [min, max] inclusive.
func ValidateIntRange(v, min, max int) error {
	if min > max {
		return fmt.Errorf("bad range: min %d > max %d", min, max)
	}
	if v < min || v > max {
		return fmt.Errorf("value %d outside [%d, %d]", v, min, max)
	}
	return nil
}
