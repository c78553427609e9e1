package notifier

import (
	"errors"
	"fmt"
	"time"
)

type contextKey string

// deliveryIDKey correlates the log lines of one webhook delivery attempt.
const deliveryIDKey contextKey = "delivery_id"

// RateLimitError is a 429 from the webhook service, carrying the wait the
// service asked for before the next attempt.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError is a non-429 4xx; retrying cannot help.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string { return e.Message }

// ServerError is a 5xx; the delivery is retried.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string { return e.Message }

func is429Error(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// isRetryableError classifies delivery errors: server errors and network
// failures retry, client errors do not, and rate limits take the separate
// retry-after path via is429Error.
func isRetryableError(err error) bool {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return false
	}
	return true
}

// truncateText clips text to maxLength characters, replacing the tail with
// suffix when it does. Webhook field limits count characters, not bytes.
func truncateText(s string, maxLength int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	cut := maxLength - len([]rune(suffix))
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + suffix
}
