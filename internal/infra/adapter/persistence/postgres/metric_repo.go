package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trendpost/internal/domain/entity"
	"trendpost/internal/repository"
)

type MetricRepo struct {
	db *sql.DB
}

func NewMetricRepo(db *sql.DB) repository.MetricRepository {
	return &MetricRepo{db: db}
}

func (repo *MetricRepo) Insert(ctx context.Context, m *entity.KeywordMetricHourly) error {
	const query = `
INSERT INTO keyword_metrics_hourly
    (keyword_id, bucket_at, platform, volume, score, rank_delta,
     novelty_ratio, weighted_novelty, no_post_streak, low_variation)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (keyword_id, bucket_at, platform) DO NOTHING`

	_, err := repo.db.ExecContext(ctx, query,
		m.KeywordID, m.BucketAt, m.Platform, m.Volume, m.Score, m.RankDelta,
		m.NoveltyRatio, m.WeightedNovelty, m.NoPostStreak, m.LowVariation)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

func (repo *MetricRepo) LatestBefore(ctx context.Context, keywordID int64, platform string, before time.Time) (*entity.KeywordMetricHourly, error) {
	const query = `
SELECT keyword_id, bucket_at, platform, volume, score, rank_delta,
       novelty_ratio, weighted_novelty, no_post_streak, low_variation
FROM keyword_metrics_hourly
WHERE keyword_id = $1 AND platform = $2 AND bucket_at < $3
ORDER BY bucket_at DESC
LIMIT 1`

	var m entity.KeywordMetricHourly
	err := repo.db.QueryRowContext(ctx, query, keywordID, platform, before).
		Scan(&m.KeywordID, &m.BucketAt, &m.Platform, &m.Volume, &m.Score, &m.RankDelta,
			&m.NoveltyRatio, &m.WeightedNovelty, &m.NoPostStreak, &m.LowVariation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("LatestBefore: %w", err)
	}
	return &m, nil
}

func (repo *MetricRepo) History(ctx context.Context, keywordID int64, platform string, limit int) ([]*entity.KeywordMetricHourly, error) {
	const query = `
SELECT keyword_id, bucket_at, platform, volume, score, rank_delta,
       novelty_ratio, weighted_novelty, no_post_streak, low_variation
FROM keyword_metrics_hourly
WHERE keyword_id = $1 AND platform = $2
ORDER BY bucket_at DESC
LIMIT $3`

	rows, err := repo.db.QueryContext(ctx, query, keywordID, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	defer func() { _ = rows.Close() }()

	metrics := make([]*entity.KeywordMetricHourly, 0, limit)
	for rows.Next() {
		var m entity.KeywordMetricHourly
		if err := rows.Scan(&m.KeywordID, &m.BucketAt, &m.Platform, &m.Volume, &m.Score,
			&m.RankDelta, &m.NoveltyRatio, &m.WeightedNovelty, &m.NoPostStreak, &m.LowVariation); err != nil {
			return nil, fmt.Errorf("History: Scan: %w", err)
		}
		metrics = append(metrics, &m)
	}
	return metrics, rows.Err()
}

func (repo *MetricRepo) UpdateEvaluation(ctx context.Context, m *entity.KeywordMetricHourly) error {
	const query = `
UPDATE keyword_metrics_hourly
SET score = $4, rank_delta = $5, novelty_ratio = $6,
    weighted_novelty = $7, no_post_streak = $8, low_variation = $9
WHERE keyword_id = $1 AND bucket_at = $2 AND platform = $3`

	result, err := repo.db.ExecContext(ctx, query,
		m.KeywordID, m.BucketAt, m.Platform,
		m.Score, m.RankDelta, m.NoveltyRatio, m.WeightedNovelty, m.NoPostStreak, m.LowVariation)
	if err != nil {
		return fmt.Errorf("UpdateEvaluation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateEvaluation: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("UpdateEvaluation: keyword_id=%d bucket=%s: %w",
			m.KeywordID, m.BucketAt.Format(time.RFC3339), entity.ErrNotFound)
	}
	return nil
}
