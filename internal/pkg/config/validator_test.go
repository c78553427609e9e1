package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCronSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"hourly", "0 * * * *", false},
		{"every six hours", "0 */6 * * *", false},
		{"weekdays at nine thirty", "30 9 * * 1-5", false},
		{"empty", "", true},
		{"too few fields", "0 *", true},
		{"seconds field not allowed", "0 0 * * * *", true},
		{"nonsense", "banana", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCronSchedule(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTimezone(t *testing.T) {
	assert.NoError(t, ValidateTimezone("UTC"))
	assert.NoError(t, ValidateTimezone("Asia/Seoul"))
	assert.Error(t, ValidateTimezone(""))
	assert.Error(t, ValidateTimezone("Mars/Olympus"))
	assert.Error(t, ValidateTimezone("+09:00"), "UTC offsets are not IANA names")
}

func TestValidateDuration(t *testing.T) {
	assert.NoError(t, ValidateDuration(5*time.Minute, time.Minute, time.Hour))
	assert.NoError(t, ValidateDuration(time.Minute, time.Minute, time.Hour), "min is inclusive")
	assert.NoError(t, ValidateDuration(time.Hour, time.Minute, time.Hour), "max is inclusive")
	assert.Error(t, ValidateDuration(time.Second, time.Minute, time.Hour))
	assert.Error(t, ValidateDuration(2*time.Hour, time.Minute, time.Hour))
	assert.Error(t, ValidateDuration(time.Minute, time.Hour, time.Minute), "inverted range")
}

func TestValidateIntRange(t *testing.T) {
	assert.NoError(t, ValidateIntRange(5, 1, 10))
	assert.NoError(t, ValidateIntRange(1, 1, 10))
	assert.NoError(t, ValidateIntRange(10, 1, 10))
	assert.Error(t, ValidateIntRange(0, 1, 10))
	assert.Error(t, ValidateIntRange(11, 1, 10))
	assert.Error(t, ValidateIntRange(5, 10, 1), "inverted range")
}
