package repository

import (
	"context"

	"trendpost/internal/domain/entity"
)

// SourceRepository manages news/video source records and their keyword links.
// All writes are idempotent: an existing fingerprint or link pair is a no-op.
type SourceRepository interface {
	// BulkUpsert inserts the given sources, skipping fingerprints that already
	// exist. Returns the fingerprints that were newly inserted (candidates for
	// thumbnail enrichment).
	BulkUpsert(ctx context.Context, sources []*entity.Source) ([]string, error)

	// LinkKeywords inserts keyword-source link pairs, skipping pairs that
	// already exist.
	LinkKeywords(ctx context.Context, links []entity.KeywordSource) error

	// ListByKeyword returns up to limit sources linked to the keyword, newest
	// published first.
	ListByKeyword(ctx context.Context, keywordID int64, limit int) ([]*entity.Source, error)

	// SetThumbnailIfEmpty fills in the thumbnail URL for a source that does not
	// have one yet. Used by best-effort enrichment after insertion.
	SetThumbnailIfEmpty(ctx context.Context, fingerprint, thumbnailURL string) error
}
