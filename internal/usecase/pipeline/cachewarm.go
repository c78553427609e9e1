package pipeline

import (
	"context"
	"log/slog"

	"trendpost/internal/observability/metrics"
)

// CacheWarmer pushes the run's fresh posts into the card cache so the first
// readers after a run never hit cold storage. Cache failures are ignorable:
// a post that misses the cache is still served from the database.
type CacheWarmer struct {
	cache  CardCache
	logger *slog.Logger
}

// NewCacheWarmer creates a CacheWarmer.
func NewCacheWarmer(cache CardCache, logger *slog.Logger) *CacheWarmer {
	return &CacheWarmer{cache: cache, logger: logger}
}

// Warm writes one card per created post. An empty post set returns
// immediately without touching the cache.
func (w *CacheWarmer) Warm(ctx context.Context, posts []CreatedPost) *WarmResult {
	result := &WarmResult{}
	if len(posts) == 0 {
		return result
	}

	for _, post := range posts {
		card := PostCardView{
			PostID:       post.PostID,
			Title:        post.Title,
			Summary:      post.Summary,
			ThumbnailURL: post.ThumbnailURL,
			Keywords:     []string{post.KeywordText},
			BucketAt:     post.BucketAt,
		}
		if err := w.cache.WarmPostCard(ctx, card, []int64{post.KeywordID}); err != nil {
			w.logger.Warn("cache warmup failed for post",
				slog.Int64("post_id", post.PostID),
				slog.Any("error", err))
			result.Failed++
			continue
		}
		result.Entries++
	}

	metrics.RecordCacheWarmFailures(result.Failed)
	w.logger.Info("cache warmup completed",
		slog.Int("entries", result.Entries),
		slog.Int("failed", result.Failed))

	return result
}
