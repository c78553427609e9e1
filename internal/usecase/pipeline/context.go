package pipeline

import (
	"context"
	"time"
)

// The run context is not a shared mutable object: each stage receives the
// previous stage's output struct and returns a new one. No stage mutates a
// struct it handed forward.

// TrendEntry is one trending keyword observation from the trend source.
type TrendEntry struct {
	Text   string
	Volume int64
}

// TrendSource pulls the current trending keyword set. Wholesale failure is
// fatal to the run.
type TrendSource interface {
	FetchTrending(ctx context.Context) ([]TrendEntry, error)
}

// NewsItem is one news search result.
type NewsItem struct {
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
}

// NewsSource searches news articles for a keyword.
type NewsSource interface {
	SearchNews(ctx context.Context, keyword string, limit int) ([]NewsItem, error)
}

// VideoItem is one video search result.
type VideoItem struct {
	VideoID      string
	Title        string
	Description  string
	ThumbnailURL string
	PublishedAt  time.Time
}

// VideoSource searches videos for a keyword.
type VideoSource interface {
	SearchVideos(ctx context.Context, keyword string, limit int) ([]VideoItem, error)
}

// Headline is a generated post title and summary.
type Headline struct {
	Title   string
	Summary string
}

// Summarizer turns a prompt into a headline. Per-call failure is isolated to
// the keyword being summarized.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (Headline, error)
}

// ContentFetcher extracts article text from a page, used to enrich
// summarization prompts. Best effort.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// PageMetadata is the Open Graph metadata of a page.
type PageMetadata struct {
	Title       string
	Description string
	ImageURL    string
}

// MetadataFetcher extracts Open Graph metadata from a page, used for
// thumbnail enrichment. Best effort.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, url string) (PageMetadata, error)
}

// TaskPool accepts fire-and-forget background tasks. Submissions must never
// block; a false return means the task was dropped.
type TaskPool interface {
	Submit(name string, fn func(context.Context)) bool
}

// PostCardView is the denormalized card representation warmed into the cache.
type PostCardView struct {
	PostID       int64
	Title        string
	Summary      string
	ThumbnailURL string
	Keywords     []string
	BucketAt     time.Time
}

// CardCache stores post cards with a TTL. Write failures are ignorable.
type CardCache interface {
	WarmPostCard(ctx context.Context, card PostCardView, keywordIDs []int64) error
}

// IngestedKeyword is one keyword carried out of the ingestion stage.
type IngestedKeyword struct {
	ID         int64
	Text       string
	Volume     int64
	PrevStreak int
}

// IngestResult is the ingestion stage output: the ordered keyword set for the
// current hour bucket.
type IngestResult struct {
	Bucket   time.Time
	Keywords []IngestedKeyword

	// Skipped counts entries whose per-entry persist failed.
	Skipped int
}

// PostableKeyword is a keyword approved for source search and post
// generation.
type PostableKeyword struct {
	ID     int64
	Text   string
	Volume int64
}

// EvalResult is the novelty evaluation output: the postable partition and
// counters for everything excluded.
type EvalResult struct {
	Postable      []PostableKeyword
	FirstSighting int
	LowVariation  int

	// Failed counts keywords whose evaluation could not be persisted.
	Failed int
}

// SearchResult is the source search output: persistence totals and per-platform
// fetch/fail counters.
type SearchResult struct {
	SourcesInserted int
	LinksInserted   int
	NewsFetched     int
	NewsFailed      int
	VideoFetched    int
	VideoFailed     int
}

// CreatedPost is one post produced by the generation stage.
type CreatedPost struct {
	PostID       int64
	KeywordID    int64
	KeywordText  string
	Title        string
	Summary      string
	ThumbnailURL string
	BucketAt     time.Time
}

// GenerateResult is the post generation output.
type GenerateResult struct {
	Posts []CreatedPost

	// Failed counts keywords whose summarization or persistence failed.
	Failed int
}

// WarmResult is the cache warmup output.
type WarmResult struct {
	Entries int
	Failed  int
}
