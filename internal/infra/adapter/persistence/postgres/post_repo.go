package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trendpost/internal/domain/entity"
	"trendpost/internal/observability/metrics"
	"trendpost/internal/repository"
)

type PostRepo struct {
	db *sql.DB
}

func NewPostRepo(db *sql.DB) repository.PostRepository {
	return &PostRepo{db: db}
}

// Create inserts the post and its keyword/source links in one transaction so
// a failure partway through never leaves an unlinked posts row behind.
func (repo *PostRepo) Create(ctx context.Context, post *entity.Post, keywordID int64, fingerprints []string) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert_post", time.Since(start)) }()

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Create: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertPost = `
INSERT INTO posts (title, summary, thumbnail_url, bucket_at)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

	err = tx.QueryRowContext(ctx, insertPost,
		post.Title, post.Summary, post.ThumbnailURL, post.BucketAt).
		Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const insertKeyword = `
INSERT INTO post_keywords (post_id, keyword_id)
VALUES ($1, $2)
ON CONFLICT (post_id, keyword_id) DO NOTHING`

	if _, err := tx.ExecContext(ctx, insertKeyword, post.ID, keywordID); err != nil {
		return fmt.Errorf("Create: link keyword: %w", err)
	}

	const insertSource = `
INSERT INTO post_sources (post_id, fingerprint)
VALUES ($1, $2)
ON CONFLICT (post_id, fingerprint) DO NOTHING`

	for _, fp := range fingerprints {
		if _, err := tx.ExecContext(ctx, insertSource, post.ID, fp); err != nil {
			return fmt.Errorf("Create: link source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Create: commit: %w", err)
	}
	return nil
}
