package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnv(t *testing.T) {
	t.Setenv("TP_TEST_STR", "hello")
	assert.Equal(t, "hello", Env("TP_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", Env("TP_TEST_UNSET", "fallback"))
}

func TestEnvString(t *testing.T) {
	rejectAll := func(string) error { return errors.New("no") }

	t.Run("unset uses default without warning", func(t *testing.T) {
		r := EnvString("TP_TEST_UNSET", "def", rejectAll)
		assert.Equal(t, "def", r.Value)
		assert.False(t, r.Fallback)
		assert.Empty(t, r.Warning)
	})

	t.Run("valid value passes through", func(t *testing.T) {
		t.Setenv("TP_TEST_STR", "custom")
		r := EnvString("TP_TEST_STR", "def", nil)
		assert.Equal(t, "custom", r.Value)
		assert.False(t, r.Fallback)
	})

	t.Run("rejected value falls back with warning", func(t *testing.T) {
		t.Setenv("TP_TEST_STR", "bad")
		r := EnvString("TP_TEST_STR", "def", rejectAll)
		assert.Equal(t, "def", r.Value)
		assert.True(t, r.Fallback)
		assert.Contains(t, r.Warning, "TP_TEST_STR")
		assert.Contains(t, r.Warning, "bad")
	})
}

func TestEnvDuration(t *testing.T) {
	positive := func(d time.Duration) error {
		if d <= 0 {
			return errors.New("must be positive")
		}
		return nil
	}

	t.Run("parses duration strings", func(t *testing.T) {
		t.Setenv("TP_TEST_DUR", "1h30m")
		r := EnvDuration("TP_TEST_DUR", time.Minute, positive)
		assert.Equal(t, 90*time.Minute, r.Value)
		assert.False(t, r.Fallback)
	})

	t.Run("unparseable falls back", func(t *testing.T) {
		t.Setenv("TP_TEST_DUR", "ninety minutes")
		r := EnvDuration("TP_TEST_DUR", time.Minute, nil)
		assert.Equal(t, time.Minute, r.Value)
		assert.True(t, r.Fallback)
	})

	t.Run("parseable but invalid falls back", func(t *testing.T) {
		t.Setenv("TP_TEST_DUR", "-5s")
		r := EnvDuration("TP_TEST_DUR", time.Minute, positive)
		assert.Equal(t, time.Minute, r.Value)
		assert.True(t, r.Fallback)
		assert.Contains(t, r.Warning, "must be positive")
	})
}

func TestEnvInt(t *testing.T) {
	inRange := func(v int) error { return ValidateIntRange(v, 1, 10) }

	t.Run("parses integers", func(t *testing.T) {
		t.Setenv("TP_TEST_INT", "7")
		r := EnvInt("TP_TEST_INT", 3, inRange)
		assert.Equal(t, 7, r.Value)
		assert.False(t, r.Fallback)
	})

	t.Run("non-integer falls back", func(t *testing.T) {
		t.Setenv("TP_TEST_INT", "7.5")
		r := EnvInt("TP_TEST_INT", 3, nil)
		assert.Equal(t, 3, r.Value)
		assert.True(t, r.Fallback)
	})

	t.Run("out of range falls back", func(t *testing.T) {
		t.Setenv("TP_TEST_INT", "99")
		r := EnvInt("TP_TEST_INT", 3, inRange)
		assert.Equal(t, 3, r.Value)
		assert.True(t, r.Fallback)
	})
}

func TestEnvBool(t *testing.T) {
	cases := []struct {
		raw      string
		want     bool
		fallback bool
	}{
		{"true", true, false},
		{"TRUE", true, false},
		{"1", true, false},
		{"false", false, false},
		{"0", false, false},
		{"yes", true, true}, // not a strconv boolean; default is true
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			t.Setenv("TP_TEST_BOOL", tc.raw)
			r := EnvBool("TP_TEST_BOOL", true)
			assert.Equal(t, tc.want, r.Value)
			assert.Equal(t, tc.fallback, r.Fallback)
		})
	}
}
