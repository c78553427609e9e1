package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"trendpost/internal/resilience/circuitbreaker"
	"trendpost/internal/resilience/gateway"
	"trendpost/internal/resilience/retry"
	"trendpost/internal/utils/text"
)

// ClaudeConfig holds configuration parameters for the Claude summarizer.
// Configuration is loaded from environment variables with fallback to defaults.
type ClaudeConfig struct {
	// CharacterLimit is the maximum number of characters allowed in a summary.
	// Loaded from SUMMARIZER_CHAR_LIMIT environment variable.
	// Valid range: 100-5000 characters. Default: 400.
	CharacterLimit int

	// Model is the Claude API model identifier to use for headline generation.
	Model string

	// MaxTokens is the maximum number of tokens for the API response.
	MaxTokens int

	// Timeout is the maximum duration for a single API call.
	Timeout time.Duration
}

// LoadClaudeConfig loads configuration from environment variables.
// It performs validation on the character limit to ensure it's within a valid
// range (100-5000). Invalid values fall back to the default (400) with a
// warning log.
//
// Environment variables:
//   - SUMMARIZER_CHAR_LIMIT: Character limit (default: 400, range: 100-5000)
func LoadClaudeConfig() ClaudeConfig {
	const defaultCharLimit = 400

	charLimit := defaultCharLimit

	if envLimit := os.Getenv("SUMMARIZER_CHAR_LIMIT"); envLimit != "" {
		parsed, err := strconv.Atoi(envLimit)
		if err != nil {
			slog.Warn("Invalid SUMMARIZER_CHAR_LIMIT format, using default",
				slog.String("value", envLimit),
				slog.Int("default", defaultCharLimit),
				slog.String("error", err.Error()))
		} else if validationErr := ValidateCharacterLimit(parsed); validationErr != nil {
			slog.Warn("SUMMARIZER_CHAR_LIMIT out of valid range, using default",
				slog.Int("value", parsed),
				slog.Int("default", defaultCharLimit),
				slog.String("error", validationErr.Error()))
		} else {
			charLimit = parsed
		}
	}

	return ClaudeConfig{
		CharacterLimit: charLimit,
		Model:          string(anthropic.ModelClaudeSonnet4_5_20250929),
		MaxTokens:      1024,
		Timeout:        60 * time.Second,
	}
}

// Claude generates headlines using Anthropic's Claude API. Calls are routed
// through a resilient gateway for rate limiting, retries, and circuit breaking.
type Claude struct {
	client          anthropic.Client
	gateway         *gateway.Gateway
	config          ClaudeConfig
	metricsRecorder SummaryMetricsRecorder
}

// NewClaude creates a new Claude summarizer with the given API key.
func NewClaude(apiKey string) *Claude {
	config := LoadClaudeConfig()

	slog.Info("Initialized Claude summarizer with configuration",
		slog.Int("character_limit", config.CharacterLimit),
		slog.String("model", config.Model))

	return &Claude{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		gateway: gateway.New(gateway.Config{
			Name:          "summarizer-api",
			RatePerSecond: 2,
			Burst:         3,
			Retry:         retry.AIAPIConfig(),
			Breaker:       circuitbreaker.AIAPIConfig(),
		}),
		config:          config,
		metricsRecorder: NewPrometheusSummaryMetrics(),
	}
}

// Summarize generates a headline from the given prompt using Claude.
func (c *Claude) Summarize(ctx context.Context, prompt string) (Headline, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	headline, err := gateway.Do(ctx, c.gateway, func(ctx context.Context) (Headline, error) {
		return c.doSummarize(ctx, prompt)
	})
	if err != nil {
		return Headline{}, fmt.Errorf("claude summarize: %w", err)
	}
	return headline, nil
}

// doSummarize performs the actual API call without gateway protection.
func (c *Claude) doSummarize(ctx context.Context, prompt string) (Headline, error) {
	requestID := uuid.New().String()

	// Truncate the prompt to avoid token limits. ~10,000 chars keeps cost
	// predictable and is far more context than a headline needs.
	const maxChars = 10000
	truncated := text.TruncateRunes(prompt, maxChars)
	if truncated != prompt {
		truncated += "..."
		slog.Warn("prompt truncated for claude api",
			slog.String("request_id", requestID),
			slog.Int("original_length", text.CountRunes(prompt)),
			slog.Int("truncated_length", text.CountRunes(truncated)))
	}

	slog.InfoContext(ctx, "Starting headline generation",
		slog.String("request_id", requestID),
		slog.Int("prompt_length", text.CountRunes(truncated)),
		slog.Int("character_limit", c.config.CharacterLimit))

	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(truncated),
			),
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "Headline generation failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return Headline{}, fmt.Errorf("claude api error: %w", err)
	}

	if len(message.Content) == 0 {
		slog.ErrorContext(ctx, "Claude API returned empty response",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return Headline{}, fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		slog.ErrorContext(ctx, "Claude API returned unexpected response type",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return Headline{}, fmt.Errorf("claude api returned unexpected response type")
	}

	headline := ParseHeadline(textBlock.Text)
	if headline.Title == "" {
		return Headline{}, fmt.Errorf("claude api returned response with empty title")
	}

	summaryLength := text.CountRunes(headline.Summary)
	withinLimit := summaryLength <= c.config.CharacterLimit

	slog.InfoContext(ctx, "Headline generation completed",
		slog.String("request_id", requestID),
		slog.Int("summary_length", summaryLength),
		slog.Int("character_limit", c.config.CharacterLimit),
		slog.Bool("within_limit", withinLimit),
		slog.Duration("duration", duration))

	if !withinLimit {
		slog.WarnContext(ctx, "Summary exceeds character limit",
			slog.String("request_id", requestID),
			slog.Int("summary_length", summaryLength),
			slog.Int("limit", c.config.CharacterLimit))
	}

	c.metricsRecorder.RecordLength(summaryLength)
	c.metricsRecorder.RecordDuration(duration)
	c.metricsRecorder.RecordCompliance(withinLimit)
	if !withinLimit {
		c.metricsRecorder.RecordLimitExceeded()
	}

	return headline, nil
}
