// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Keyword, Source and Post, along with
// their validation rules and domain-specific errors.
package entity

import (
	"strings"
	"time"
)

// maxKeywordLength bounds keyword text to keep trend API responses sane.
const maxKeywordLength = 255

// Keyword represents a trending search keyword observed by the pipeline.
// A keyword is created on first sighting and is never mutated or deleted afterwards;
// the unique constraint on Text is the identity authority.
type Keyword struct {
	ID        int64
	Text      string
	CreatedAt time.Time
}

// Validate validates the Keyword entity fields.
func (k *Keyword) Validate() error {
	text := strings.TrimSpace(k.Text)
	if text == "" {
		return &ValidationError{Field: "text", Message: "keyword text is empty"}
	}
	if len(text) > maxKeywordLength {
		return &ValidationError{Field: "text", Message: "keyword text too long"}
	}
	return nil
}

// KeywordMetricHourly is one observation of a keyword for one hour bucket on one
// trend platform. Identity is the composite (KeywordID, BucketAt, Platform); the row
// is inserted once by ingestion and updated exactly once by the novelty evaluation.
type KeywordMetricHourly struct {
	KeywordID       int64
	BucketAt        time.Time // hour-truncated, UTC
	Platform        string
	Volume          int64
	Score           int64
	RankDelta       int64
	NoveltyRatio    float64
	WeightedNovelty float64
	NoPostStreak    int
	LowVariation    bool
}

// PlatformGoogleTrends is the trend platform identifier used for metric rows.
const PlatformGoogleTrends = "gtrends"

// HourBucket truncates t to the hour in UTC, the identity granularity of metric rows.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
