// Package repository defines the persistence interfaces consumed by the use case layer.
// Implementations live under internal/infra/adapter/persistence.
package repository

import (
	"context"
	"time"

	"trendpost/internal/domain/entity"
)

// KeywordRepository manages trending keyword records.
type KeywordRepository interface {
	// UpsertByText inserts a keyword by text or returns the existing row.
	// Keywords are identified by the unique constraint on text; the returned
	// keyword always carries its surrogate id.
	UpsertByText(ctx context.Context, text string) (*entity.Keyword, error)
}

// MetricRepository manages hourly keyword metric rows.
// A metric row is inserted once by ingestion and updated exactly once by the
// novelty evaluation for the same run.
type MetricRepository interface {
	// Insert writes a new metric row. A row that already exists for the same
	// (keyword_id, bucket_at, platform) identity is left untouched.
	Insert(ctx context.Context, m *entity.KeywordMetricHourly) error

	// LatestBefore returns the most recent metric row for the keyword with
	// bucket_at strictly before the given bucket, or entity.ErrNotFound.
	LatestBefore(ctx context.Context, keywordID int64, platform string, before time.Time) (*entity.KeywordMetricHourly, error)

	// History returns up to limit metric rows for the keyword ordered by
	// bucket_at descending (current bucket first).
	History(ctx context.Context, keywordID int64, platform string, limit int) ([]*entity.KeywordMetricHourly, error)

	// UpdateEvaluation persists the evaluator's derived fields (score, rank delta,
	// novelty ratio, weighted novelty, streak, low variation) on an existing row.
	UpdateEvaluation(ctx context.Context, m *entity.KeywordMetricHourly) error
}
