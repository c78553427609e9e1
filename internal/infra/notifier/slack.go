package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// Enabled indicates whether Slack notifications are enabled
	Enabled bool

	// WebhookURL is the Slack incoming webhook URL
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration
}

// SlackNotifier delivers run reports to Slack via incoming webhook.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewSlackNotifier creates a new SlackNotifier with the specified
// configuration. The rate limiter is set to 1 request/second with a burst of
// 3, matching Slack's incoming-webhook guidance.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(1.0, 3),
	}
}

// SlackWebhookPayload represents the JSON payload sent to a Slack webhook.
type SlackWebhookPayload struct {
	Attachments []SlackAttachment `json:"attachments"`
}

// SlackAttachment represents a Slack message attachment.
type SlackAttachment struct {
	Color  string `json:"color"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Footer string `json:"footer"`
	Ts     int64  `json:"ts"`
}

func slackStatusColor(status string) string {
	switch status {
	case "success":
		return "good"
	case "partial":
		return "warning"
	default:
		return "danger"
	}
}

// buildAttachmentPayload creates a Slack webhook payload from a run report.
func (s *SlackNotifier) buildAttachmentPayload(report *RunReport) SlackWebhookPayload {
	attachment := SlackAttachment{
		Color:  slackStatusColor(report.Status),
		Title:  fmt.Sprintf("Trend pipeline run: %s", report.Status),
		Text:   truncateText(formatReportBody(report), maxDescriptionLength, truncationSuffix),
		Footer: "trendpost worker",
		Ts:     report.StartedAt.Unix(),
	}

	return SlackWebhookPayload{
		Attachments: []SlackAttachment{attachment},
	}
}

// sendWebhookRequest sends a single Slack webhook request, classifying the
// response with the shared webhook error types.
func (s *SlackNotifier) sendWebhookRequest(ctx context.Context, report *RunReport) error {
	payload := s.buildAttachmentPayload(report)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		// Slack communicates backoff via the Retry-After header only.
		retryAfter := 5 * time.Second
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			Message:    "Slack rate limit exceeded",
			RetryAfter: retryAfter,
		}
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack API client error: %s", string(body)),
		}
	}

	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack API server error: %s", string(body)),
		}
	}

	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// sendWebhookRequestWithRetry sends a Slack webhook request with the same
// retry strategy as the Discord notifier: two attempts, Retry-After honored
// for 429s, linear backoff for 5xx, fail fast on other 4xx.
func (s *SlackNotifier) sendWebhookRequestWithRetry(ctx context.Context, report *RunReport) error {
	const (
		maxAttempts = 2
		baseDelay   = 5 * time.Second
	)

	deliveryID, _ := ctx.Value(deliveryIDKey).(string)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.sendWebhookRequest(ctx, report)

		if err == nil {
			slog.Info("Slack run report delivered",
				slog.String("delivery_id", deliveryID),
				slog.String("status", report.Status),
				slog.Int("attempt", attempt))
			return nil
		}

		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("Slack rate limit hit, backing off",
				slog.String("delivery_id", deliveryID),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))

			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
			}
		}

		if !isRetryableError(err) {
			slog.Error("Slack run report failed with non-retryable error",
				slog.String("delivery_id", deliveryID),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < maxAttempts {
			delay := baseDelay * time.Duration(attempt)
			slog.Warn("Slack API request failed, retrying",
				slog.String("delivery_id", deliveryID),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	slog.Error("Slack run report failed after all retries",
		slog.String("delivery_id", deliveryID),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", maxAttempts))

	return fmt.Errorf("slack notification failed after %d attempts: %w", maxAttempts, lastErr)
}

// NotifyRunReport sends a Slack notification summarizing a pipeline run.
// This method implements the Notifier interface.
func (s *SlackNotifier) NotifyRunReport(ctx context.Context, report *RunReport) error {
	deliveryID := uuid.New().String()
	ctx = context.WithValue(ctx, deliveryIDKey, deliveryID)

	slog.Info("Starting Slack run report",
		slog.String("delivery_id", deliveryID),
		slog.String("status", report.Status))

	if err := s.rateLimiter.Allow(ctx); err != nil {
		slog.Error("Rate limiter error",
			slog.String("delivery_id", deliveryID),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return s.sendWebhookRequestWithRetry(ctx, report)
}
