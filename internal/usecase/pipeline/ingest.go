package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"trendpost/internal/domain/entity"
	"trendpost/internal/observability/metrics"
	"trendpost/internal/repository"
)

// TrendIngestor pulls the current trending keyword set and persists one
// metric row per keyword for the hour bucket.
type TrendIngestor struct {
	trends   TrendSource
	keywords repository.KeywordRepository
	metrics  repository.MetricRepository
	logger   *slog.Logger
}

// NewTrendIngestor creates a TrendIngestor.
func NewTrendIngestor(
	trends TrendSource,
	keywords repository.KeywordRepository,
	metrics repository.MetricRepository,
	logger *slog.Logger,
) *TrendIngestor {
	return &TrendIngestor{
		trends:   trends,
		keywords: keywords,
		metrics:  metrics,
		logger:   logger,
	}
}

// Ingest fetches trending entries and writes a keyword row (upsert by text)
// and a new metric row per entry. The previous bucket's noPostStreak is
// carried forward as the starting streak; the final streak is written later
// by the novelty evaluation.
//
// A trend fetch failure is fatal: with no keywords nothing downstream can
// proceed. A single entry's persist failure is logged and that entry skipped.
func (t *TrendIngestor) Ingest(ctx context.Context, bucket time.Time) (*IngestResult, error) {
	entries, err := t.trends.FetchTrending(ctx)
	if err != nil {
		return nil, fatal("ingest", err)
	}

	result := &IngestResult{
		Bucket:   bucket,
		Keywords: make([]IngestedKeyword, 0, len(entries)),
	}

	for _, entry := range entries {
		keyword, err := t.keywords.UpsertByText(ctx, entry.Text)
		if err != nil {
			t.logger.Error("keyword upsert failed, entry skipped",
				slog.String("text", entry.Text),
				slog.Any("error", err))
			result.Skipped++
			continue
		}

		prevStreak := 0
		prev, err := t.metrics.LatestBefore(ctx, keyword.ID, entity.PlatformGoogleTrends, bucket)
		switch {
		case err == nil:
			prevStreak = prev.NoPostStreak
		case errors.Is(err, entity.ErrNotFound):
			// First sighting, no history to carry.
		default:
			t.logger.Error("previous metric lookup failed, entry skipped",
				slog.Int64("keyword_id", keyword.ID),
				slog.Any("error", err))
			result.Skipped++
			continue
		}

		metric := &entity.KeywordMetricHourly{
			KeywordID:    keyword.ID,
			BucketAt:     bucket,
			Platform:     entity.PlatformGoogleTrends,
			Volume:       entry.Volume,
			Score:        entry.Volume,
			NoPostStreak: prevStreak,
		}
		if err := t.metrics.Insert(ctx, metric); err != nil {
			t.logger.Error("metric insert failed, entry skipped",
				slog.Int64("keyword_id", keyword.ID),
				slog.Time("bucket_at", bucket),
				slog.Any("error", err))
			result.Skipped++
			continue
		}

		result.Keywords = append(result.Keywords, IngestedKeyword{
			ID:         keyword.ID,
			Text:       keyword.Text,
			Volume:     entry.Volume,
			PrevStreak: prevStreak,
		})
	}

	metrics.RecordKeywordsFetched(len(result.Keywords))
	t.logger.Info("trend ingestion completed",
		slog.Time("bucket_at", bucket),
		slog.Int("keywords", len(result.Keywords)),
		slog.Int("skipped", result.Skipped))

	return result, nil
}
