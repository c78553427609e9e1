package entity

import "time"

// Post is an AI-written summary article generated for a postable keyword.
// A post is created at most once per keyword per run and is never updated by the
// pipeline after creation.
type Post struct {
	ID           int64
	Title        string
	Summary      string
	ThumbnailURL string
	BucketAt     time.Time
	ReportCount  int
	CreatedAt    time.Time
}

// Validate validates the Post entity fields.
func (p *Post) Validate() error {
	if p.Title == "" {
		return &ValidationError{Field: "title", Message: "post title is empty"}
	}
	if p.Summary == "" {
		return &ValidationError{Field: "summary", Message: "post summary is empty"}
	}
	if p.BucketAt.IsZero() {
		return &ValidationError{Field: "bucket_at", Message: "post bucket is zero"}
	}
	return nil
}

// PostKeyword links a post to the keyword it was generated for.
type PostKeyword struct {
	PostID    int64
	KeywordID int64
}

// PostSource links a post to a source used to generate it.
type PostSource struct {
	PostID      int64
	Fingerprint string
}
