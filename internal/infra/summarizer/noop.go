package summarizer

import (
	"context"
	"strings"
)

// NoOp is a summarizer that derives a headline from the prompt itself without
// calling any AI API. Useful for local development and tests.
type NoOp struct{}

// NewNoOp creates a new NoOp summarizer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Summarize returns the first line of the prompt as the title and a truncated
// slice of the remainder as the summary.
func (n *NoOp) Summarize(_ context.Context, prompt string) (Headline, error) {
	const maxLength = 400

	title, rest, _ := strings.Cut(strings.TrimSpace(prompt), "\n")
	rest = strings.TrimSpace(rest)
	if len(rest) > maxLength {
		rest = rest[:maxLength] + "..."
	}
	return Headline{Title: strings.TrimSpace(title), Summary: rest}, nil
}
