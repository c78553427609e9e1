// Package config provides environment-driven configuration loading with
// fail-open fallback semantics. A bad value never aborts startup: the loader
// falls back to the default, carries a warning for the caller to log, and the
// companion metrics make the misconfiguration visible on dashboards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Result is the outcome of loading a single configuration value. Value is
// always usable; when Fallback is set it holds the default and Warning says
// why the environment value was rejected.
type Result[T any] struct {
	Value    T
	Warning  string
	Fallback bool
}

func ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func fellBack[T any](key, raw string, def T, err error) Result[T] {
	return Result[T]{
		Value:    def,
		Warning:  fmt.Sprintf("invalid %s=%q: %v, using default %v", key, raw, err, def),
		Fallback: true,
	}
}

// Env reads a string environment variable without validation. An unset or
// empty variable yields the default.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvString reads a string environment variable and validates it. Unset means
// the default with no warning; a value that fails validation falls back.
func EnvString(key, def string, validate func(string) error) Result[string] {
	raw := os.Getenv(key)
	if raw == "" {
		return ok(def)
	}
	if validate != nil {
		if err := validate(raw); err != nil {
			return fellBack(key, raw, def, err)
		}
	}
	return ok(raw)
}

// EnvDuration reads a Go duration string ("30s", "5m", "1h30m") from the
// environment. Parse and validation failures both fall back.
func EnvDuration(key string, def time.Duration, validate func(time.Duration) error) Result[time.Duration] {
	raw := os.Getenv(key)
	if raw == "" {
		return ok(def)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fellBack(key, raw, def, err)
	}
	if validate != nil {
		if err := validate(d); err != nil {
			return fellBack(key, raw, def, err)
		}
	}
	return ok(d)
}

// EnvInt reads an integer from the environment. Parse and validation failures
// both fall back.
func EnvInt(key string, def int, validate func(int) error) Result[int] {
	raw := os.Getenv(key)
	if raw == "" {
		return ok(def)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fellBack(key, raw, def, err)
	}
	if validate != nil {
		if err := validate(n); err != nil {
			return fellBack(key, raw, def, err)
		}
	}
	return ok(n)
}

// EnvBool reads a boolean from the environment, accepting the strconv forms
// ("1", "t", "true", "0", "f", "false", any case).
func EnvBool(key string, def bool) Result[bool] {
	raw := os.Getenv(key)
	if raw == "" {
		return ok(def)
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fellBack(key, raw, def, err)
	}
	return ok(b)
}
