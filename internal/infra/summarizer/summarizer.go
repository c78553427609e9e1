// Package summarizer provides AI-backed headline generation for trend posts.
// It includes adapters for Claude (Anthropic) and OpenAI APIs routed through a
// resilient gateway, with structured logging and Prometheus metrics.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Headline is the generated title and summary for one trending keyword.
type Headline struct {
	Title   string
	Summary string
}

// Summarizer generates a headline from a prompt. Claude, OpenAI, and NoOp
// implement it; the worker picks one at startup via SUMMARIZER_TYPE.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (Headline, error)
}

const (
	// minCharLimit is the minimum allowed character limit for summaries.
	minCharLimit = 100

	// maxCharLimit is the maximum allowed character limit for summaries.
	maxCharLimit = 5000
)

// ValidateCharacterLimit validates that the character limit is within the
// valid range (100-5000).
func ValidateCharacterLimit(limit int) error {
	if limit < minCharLimit {
		return fmt.Errorf("character limit %d is below minimum %d", limit, minCharLimit)
	}
	if limit > maxCharLimit {
		return fmt.Errorf("character limit %d exceeds maximum %d", limit, maxCharLimit)
	}
	return nil
}

// ParseHeadline extracts a Headline from a raw model response.
//
// The prompt asks the model for a JSON object with "title" and "summary"
// fields, but models occasionally wrap the object in a code fence or answer in
// plain prose. Fenced JSON is unwrapped before parsing; when no JSON object can
// be recovered, the first line becomes the title and the remainder the summary.
func ParseHeadline(raw string) Headline {
	trimmed := strings.TrimSpace(raw)
	if candidate := stripCodeFence(trimmed); candidate != "" {
		var payload struct {
			Title   string `json:"title"`
			Summary string `json:"summary"`
		}
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil && strings.TrimSpace(payload.Title) != "" {
			return Headline{
				Title:   strings.TrimSpace(payload.Title),
				Summary: strings.TrimSpace(payload.Summary),
			}
		}
	}

	// Plain-text fallback: first line is the title, the rest is the summary.
	title, rest, _ := strings.Cut(trimmed, "\n")
	return Headline{
		Title:   strings.TrimSpace(title),
		Summary: strings.TrimSpace(rest),
	}
}

// stripCodeFence removes a surrounding markdown code fence, if any, and
// returns the inner text. Non-fenced input is returned unchanged.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the opening fence line.
	if idx := strings.Index(body, "\n"); idx >= 0 {
		body = body[idx+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
