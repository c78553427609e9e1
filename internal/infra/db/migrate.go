package db

import (
	"database/sql"
)

// MigrateUp creates the pipeline schema. All dedup and link tables carry the
// unique constraints that make pipeline writes idempotent; ON CONFLICT DO NOTHING
// against these keys is the authority for insert-once semantics.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS keywords (
    id         BIGSERIAL PRIMARY KEY,
    text       TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS keyword_metrics_hourly (
    keyword_id       BIGINT NOT NULL REFERENCES keywords(id),
    bucket_at        TIMESTAMPTZ NOT NULL,
    platform         TEXT NOT NULL,
    volume           BIGINT NOT NULL DEFAULT 0,
    score            BIGINT NOT NULL DEFAULT 0,
    rank_delta       BIGINT NOT NULL DEFAULT 0,
    novelty_ratio    DOUBLE PRECISION NOT NULL DEFAULT 0,
    weighted_novelty DOUBLE PRECISION NOT NULL DEFAULT 0,
    no_post_streak   INT NOT NULL DEFAULT 0,
    low_variation    BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (keyword_id, bucket_at, platform)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    fingerprint    TEXT PRIMARY KEY,
    normalized_url TEXT NOT NULL,
    title          TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    thumbnail_url  TEXT NOT NULL DEFAULT '',
    published_at   TIMESTAMPTZ,
    platform       TEXT NOT NULL,
    video_id       TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS keyword_sources (
    keyword_id  BIGINT NOT NULL REFERENCES keywords(id),
    fingerprint TEXT NOT NULL REFERENCES sources(fingerprint),
    PRIMARY KEY (keyword_id, fingerprint)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id            BIGSERIAL PRIMARY KEY,
    title         TEXT NOT NULL,
    summary       TEXT NOT NULL,
    thumbnail_url TEXT NOT NULL DEFAULT '',
    bucket_at     TIMESTAMPTZ NOT NULL,
    report_count  INT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS post_keywords (
    post_id    BIGINT NOT NULL REFERENCES posts(id),
    keyword_id BIGINT NOT NULL REFERENCES keywords(id),
    PRIMARY KEY (post_id, keyword_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS post_sources (
    post_id     BIGINT NOT NULL REFERENCES posts(id),
    fingerprint TEXT NOT NULL REFERENCES sources(fingerprint),
    PRIMARY KEY (post_id, fingerprint)
)`); err != nil {
		return err
	}

	indexes := []string{
		// previous-bucket lookup and history scans
		`CREATE INDEX IF NOT EXISTS idx_metrics_keyword_bucket ON keyword_metrics_hourly(keyword_id, platform, bucket_at DESC)`,
		// source selection for post generation
		`CREATE INDEX IF NOT EXISTS idx_sources_published_at ON sources(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_keyword_sources_keyword ON keyword_sources(keyword_id)`,
		// post listings by run bucket
		`CREATE INDEX IF NOT EXISTS idx_posts_bucket_at ON posts(bucket_at DESC)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}
