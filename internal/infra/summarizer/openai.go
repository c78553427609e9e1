package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"trendpost/internal/resilience/circuitbreaker"
	"trendpost/internal/resilience/gateway"
	"trendpost/internal/resilience/retry"
	"trendpost/internal/utils/text"
)

// OpenAIConfig holds configuration parameters for the OpenAI summarizer.
// Configuration is loaded from environment variables with fallback to defaults.
type OpenAIConfig struct {
	// CharacterLimit is the maximum number of characters allowed in a summary.
	// Loaded from SUMMARIZER_CHAR_LIMIT environment variable.
	// Valid range: 100-5000 characters. Default: 400.
	CharacterLimit int

	// Model is the OpenAI API model identifier to use for headline generation.
	Model string

	// MaxTokens is the maximum number of tokens for the API response.
	MaxTokens int

	// Timeout is the maximum duration for a single API call.
	Timeout time.Duration
}

// Validate validates the configuration and returns an error if invalid.
func (c *OpenAIConfig) Validate() error {
	if err := ValidateCharacterLimit(c.CharacterLimit); err != nil {
		return fmt.Errorf("invalid character limit: %w", err)
	}

	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	return nil
}

// LoadOpenAIConfig loads configuration from environment variables.
// Unlike the Claude loader this fails closed: an out-of-range
// SUMMARIZER_CHAR_LIMIT is an error rather than a fallback.
//
// Environment variables:
//   - SUMMARIZER_CHAR_LIMIT: Character limit (default: 400, range: 100-5000)
func LoadOpenAIConfig() (*OpenAIConfig, error) {
	const defaultCharLimit = 400

	charLimit := defaultCharLimit

	if envLimit := os.Getenv("SUMMARIZER_CHAR_LIMIT"); envLimit != "" {
		parsed, err := strconv.Atoi(envLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid SUMMARIZER_CHAR_LIMIT format: %s: %w", envLimit, err)
		}

		if err := ValidateCharacterLimit(parsed); err != nil {
			return nil, fmt.Errorf("SUMMARIZER_CHAR_LIMIT out of valid range: %w", err)
		}

		charLimit = parsed
	}

	config := &OpenAIConfig{
		CharacterLimit: charLimit,
		Model:          openai.GPT4oMini,
		MaxTokens:      1024,
		Timeout:        60 * time.Second,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid OpenAI configuration: %w", err)
	}

	return config, nil
}

// OpenAI generates headlines using OpenAI's chat completion API. Calls are
// routed through a resilient gateway for rate limiting, retries, and circuit
// breaking.
type OpenAI struct {
	client          *openai.Client
	gateway         *gateway.Gateway
	config          *OpenAIConfig
	metricsRecorder SummaryMetricsRecorder
}

// NewOpenAI creates a new OpenAI summarizer with the given API key.
// Returns an error if the configuration is invalid.
func NewOpenAI(apiKey string) (*OpenAI, error) {
	config, err := LoadOpenAIConfig()
	if err != nil {
		return nil, fmt.Errorf("load openai config: %w", err)
	}

	slog.Info("Initialized OpenAI summarizer with configuration",
		slog.Int("character_limit", config.CharacterLimit),
		slog.String("model", config.Model))

	return &OpenAI{
		client: openai.NewClient(apiKey),
		gateway: gateway.New(gateway.Config{
			Name:          "summarizer-api",
			RatePerSecond: 2,
			Burst:         3,
			Retry:         retry.AIAPIConfig(),
			Breaker:       circuitbreaker.AIAPIConfig(),
		}),
		config:          config,
		metricsRecorder: NewPrometheusSummaryMetrics(),
	}, nil
}

// Summarize generates a headline from the given prompt using OpenAI.
func (o *OpenAI) Summarize(ctx context.Context, prompt string) (Headline, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	headline, err := gateway.Do(ctx, o.gateway, func(ctx context.Context) (Headline, error) {
		return o.doSummarize(ctx, prompt)
	})
	if err != nil {
		return Headline{}, fmt.Errorf("openai summarize: %w", err)
	}
	return headline, nil
}

// doSummarize performs the actual API call without gateway protection.
func (o *OpenAI) doSummarize(ctx context.Context, prompt string) (Headline, error) {
	requestID := uuid.New().String()

	// gpt-4o-mini has a 128k token context; ~10,000 chars is a safe bound
	// that keeps cost predictable.
	const maxChars = 10000
	truncated := text.TruncateRunes(prompt, maxChars)
	if truncated != prompt {
		truncated += "..."
		slog.Warn("prompt truncated for openai api",
			slog.String("request_id", requestID),
			slog.Int("original_length", text.CountRunes(prompt)),
			slog.Int("truncated_length", text.CountRunes(truncated)))
	}

	slog.InfoContext(ctx, "Starting headline generation",
		slog.String("request_id", requestID),
		slog.Int("prompt_length", text.CountRunes(truncated)),
		slog.Int("character_limit", o.config.CharacterLimit))

	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.config.Model,
		MaxTokens: o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: truncated,
			},
		},
	})

	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "Headline generation failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return Headline{}, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		slog.ErrorContext(ctx, "OpenAI API returned empty response",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return Headline{}, fmt.Errorf("openai api returned empty response")
	}

	headline := ParseHeadline(resp.Choices[0].Message.Content)
	if headline.Title == "" {
		return Headline{}, fmt.Errorf("openai api returned response with empty title")
	}

	summaryLength := text.CountRunes(headline.Summary)
	withinLimit := summaryLength <= o.config.CharacterLimit

	slog.InfoContext(ctx, "Headline generation completed",
		slog.String("request_id", requestID),
		slog.Int("summary_length", summaryLength),
		slog.Int("character_limit", o.config.CharacterLimit),
		slog.Bool("within_limit", withinLimit),
		slog.Duration("duration", duration))

	o.metricsRecorder.RecordLength(summaryLength)
	o.metricsRecorder.RecordDuration(duration)
	o.metricsRecorder.RecordCompliance(withinLimit)
	if !withinLimit {
		o.metricsRecorder.RecordLimitExceeded()
	}

	return headline, nil
}
