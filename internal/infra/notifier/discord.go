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
	"strings"
	"time"

	"github.com/google/uuid"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// Enabled indicates whether Discord notifications are enabled
	Enabled bool

	// WebhookURL is the Discord webhook URL (includes authentication token)
	WebhookURL string

	// Timeout is the HTTP request timeout for Discord API calls
	Timeout time.Duration
}

// DiscordNotifier delivers run reports to Discord via webhook.
type DiscordNotifier struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewDiscordNotifier creates a new DiscordNotifier with the specified
// configuration. The rate limiter is set to 0.5 requests/second with a burst
// of 3 (Discord webhook limit: 30 requests per minute).
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(0.5, 3),
	}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Color       int                `json:"color"`
	Footer      DiscordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordErrorResponse represents the error response from Discord API.
type DiscordErrorResponse struct {
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after"` // In seconds
}

const (
	// Discord limits
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	truncationSuffix     = "..."

	colorGreen  = 3066993  // #2ECC71
	colorYellow = 15844367 // #F1C40F
	colorRed    = 15158332 // #E74C3C
)

func statusColor(status string) int {
	switch status {
	case "success":
		return colorGreen
	case "partial":
		return colorYellow
	default:
		return colorRed
	}
}

// formatReportBody renders the run counters and any isolated stage failures
// as the embed description.
func formatReportBody(report *RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Keywords: %d (%d new)\n", report.Keywords, report.NewKeywords)
	fmt.Fprintf(&b, "New sources: %d\n", report.SourcesDiscovered)
	fmt.Fprintf(&b, "Posts created: %d\n", report.PostsCreated)
	fmt.Fprintf(&b, "Duration: %s", report.Duration.Round(time.Second))
	if len(report.StageFailures) > 0 {
		b.WriteString("\n\nStage failures:")
		for _, failure := range report.StageFailures {
			fmt.Fprintf(&b, "\n- %s", failure)
		}
	}
	return b.String()
}

// buildEmbedPayload creates a Discord webhook payload from a run report.
func (d *DiscordNotifier) buildEmbedPayload(report *RunReport) DiscordWebhookPayload {
	title := fmt.Sprintf("Trend pipeline run: %s", report.Status)
	if len(title) > maxTitleLength {
		title = title[:maxTitleLength]
	}

	description := truncateText(formatReportBody(report), maxDescriptionLength, truncationSuffix)

	embed := DiscordEmbed{
		Title:       title,
		Description: description,
		Color:       statusColor(report.Status),
		Footer: DiscordEmbedFooter{
			Text: "trendpost worker",
		},
		Timestamp: report.StartedAt.Format(time.RFC3339),
	}

	return DiscordWebhookPayload{
		Embeds: []DiscordEmbed{embed},
	}
}

// sendWebhookRequest sends a single Discord webhook request.
//
// Error types:
//   - 429: Rate limit error (retryable, contains retry_after duration)
//   - 4xx (non-429): Client error (non-retryable)
//   - 5xx: Server error (retryable)
//   - Network error: Connection/timeout error (retryable)
func (d *DiscordNotifier) sendWebhookRequest(ctx context.Context, report *RunReport) error {
	payload := d.buildEmbedPayload(report)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := extractRetryAfter(resp, body)
		return &RateLimitError{
			Message:    "Discord rate limit exceeded",
			RetryAfter: retryAfter,
		}
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Discord API client error: %s", string(body)),
		}
	}

	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Discord API server error: %s", string(body)),
		}
	}

	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// extractRetryAfter extracts retry_after duration from a Discord error
// response, trying the JSON body first and the Retry-After header second.
// Defaults to 5s when neither is present.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var discordErr DiscordErrorResponse
	if err := json.Unmarshal(body, &discordErr); err == nil && discordErr.RetryAfter > 0 {
		return time.Duration(discordErr.RetryAfter * float64(time.Second))
	}

	if retryAfterHeader := resp.Header.Get("Retry-After"); retryAfterHeader != "" {
		if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 5 * time.Second
}

// sendWebhookRequestWithRetry sends a Discord webhook request with retry
// logic.
//
// Retry strategy:
//   - Max attempts: 2
//   - 429 errors: Use retry_after from Discord response
//   - Server errors (5xx): Linear backoff (5s, 10s)
//   - Client errors (4xx): No retry, fail immediately
func (d *DiscordNotifier) sendWebhookRequestWithRetry(ctx context.Context, report *RunReport) error {
	const (
		maxAttempts = 2
		baseDelay   = 5 * time.Second
	)

	deliveryID, _ := ctx.Value(deliveryIDKey).(string)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := d.sendWebhookRequest(ctx, report)

		if err == nil {
			slog.Info("Discord run report delivered",
				slog.String("delivery_id", deliveryID),
				slog.String("status", report.Status),
				slog.Int("attempt", attempt))
			return nil
		}

		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("Discord rate limit hit, backing off",
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
			slog.Error("Discord run report failed with non-retryable error",
				slog.String("delivery_id", deliveryID),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < maxAttempts {
			delay := baseDelay * time.Duration(attempt)
			slog.Warn("Discord API request failed, retrying",
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

	slog.Error("Discord run report failed after all retries",
		slog.String("delivery_id", deliveryID),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", maxAttempts))

	return fmt.Errorf("discord notification failed after %d attempts: %w", maxAttempts, lastErr)
}

// NotifyRunReport sends a Discord notification summarizing a pipeline run.
// This method implements the Notifier interface.
func (d *DiscordNotifier) NotifyRunReport(ctx context.Context, report *RunReport) error {
	deliveryID := uuid.New().String()
	ctx = context.WithValue(ctx, deliveryIDKey, deliveryID)

	slog.Info("Starting Discord run report",
		slog.String("delivery_id", deliveryID),
		slog.String("status", report.Status))

	if err := d.rateLimiter.Allow(ctx); err != nil {
		slog.Error("Rate limiter error",
			slog.String("delivery_id", deliveryID),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return d.sendWebhookRequestWithRetry(ctx, report)
}
