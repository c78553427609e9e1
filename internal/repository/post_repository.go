package repository

import (
	"context"

	"trendpost/internal/domain/entity"
)

// PostRepository manages generated posts and their link tables.
type PostRepository interface {
	// Create inserts a post together with its keyword and source links in a
	// single transaction and fills in the post's surrogate id. A failure on
	// any statement leaves no post row behind. The link inserts are
	// idempotent, pairs that already exist are skipped.
	Create(ctx context.Context, post *entity.Post, keywordID int64, fingerprints []string) error
}
