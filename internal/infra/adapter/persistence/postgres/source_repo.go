package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trendpost/internal/domain/entity"
	"trendpost/internal/observability/metrics"
	"trendpost/internal/repository"
)

type SourceRepo struct {
	db *sql.DB
}

func NewSourceRepo(db *sql.DB) repository.SourceRepository {
	return &SourceRepo{db: db}
}

// BulkUpsert inserts sources one statement per row inside a transaction.
// RETURNING only fires for rows that survived the conflict check, which is how
// newly inserted fingerprints are collected for thumbnail enrichment.
func (repo *SourceRepo) BulkUpsert(ctx context.Context, sources []*entity.Source) ([]string, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("bulk_upsert_sources", time.Since(start)) }()

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BulkUpsert: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO sources
    (fingerprint, normalized_url, title, description, thumbnail_url,
     published_at, platform, video_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (fingerprint) DO NOTHING
RETURNING fingerprint`

	inserted := make([]string, 0, len(sources))
	for _, src := range sources {
		var fp string
		err := tx.QueryRowContext(ctx, query,
			src.Fingerprint, src.NormalizedURL, src.Title, src.Description,
			src.ThumbnailURL, src.PublishedAt, src.Platform, src.VideoID).Scan(&fp)
		if errors.Is(err, sql.ErrNoRows) {
			continue // fingerprint already present
		}
		if err != nil {
			return nil, fmt.Errorf("BulkUpsert: %w", err)
		}
		inserted = append(inserted, fp)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("BulkUpsert: commit: %w", err)
	}
	return inserted, nil
}

func (repo *SourceRepo) LinkKeywords(ctx context.Context, links []entity.KeywordSource) error {
	if len(links) == 0 {
		return nil
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("LinkKeywords: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO keyword_sources (keyword_id, fingerprint)
VALUES ($1, $2)
ON CONFLICT (keyword_id, fingerprint) DO NOTHING`

	for _, link := range links {
		if _, err := tx.ExecContext(ctx, query, link.KeywordID, link.Fingerprint); err != nil {
			return fmt.Errorf("LinkKeywords: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("LinkKeywords: commit: %w", err)
	}
	return nil
}

func (repo *SourceRepo) ListByKeyword(ctx context.Context, keywordID int64, limit int) ([]*entity.Source, error) {
	const query = `
SELECT s.fingerprint, s.normalized_url, s.title, s.description, s.thumbnail_url,
       s.published_at, s.platform, s.video_id, s.created_at
FROM sources s
INNER JOIN keyword_sources ks ON ks.fingerprint = s.fingerprint
WHERE ks.keyword_id = $1
ORDER BY s.published_at DESC
LIMIT $2`

	rows, err := repo.db.QueryContext(ctx, query, keywordID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListByKeyword: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sources := make([]*entity.Source, 0, limit)
	for rows.Next() {
		var src entity.Source
		if err := rows.Scan(&src.Fingerprint, &src.NormalizedURL, &src.Title, &src.Description,
			&src.ThumbnailURL, &src.PublishedAt, &src.Platform, &src.VideoID, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListByKeyword: Scan: %w", err)
		}
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

func (repo *SourceRepo) SetThumbnailIfEmpty(ctx context.Context, fingerprint, thumbnailURL string) error {
	const query = `
UPDATE sources
SET thumbnail_url = $2
WHERE fingerprint = $1 AND (thumbnail_url IS NULL OR thumbnail_url = '')`

	if _, err := repo.db.ExecContext(ctx, query, fingerprint, thumbnailURL); err != nil {
		return fmt.Errorf("SetThumbnailIfEmpty: %w", err)
	}
	return nil
}
