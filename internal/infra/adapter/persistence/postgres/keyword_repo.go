// Package postgres provides PostgreSQL implementations of the repository interfaces.
// Idempotent writes rely on unique constraints with ON CONFLICT DO NOTHING, so a
// duplicate identity is never an error.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"trendpost/internal/domain/entity"
	"trendpost/internal/repository"
)

type KeywordRepo struct {
	db *sql.DB
}

func NewKeywordRepo(db *sql.DB) repository.KeywordRepository {
	return &KeywordRepo{db: db}
}

// UpsertByText inserts the keyword or fetches the existing row.
// The DO UPDATE on conflict makes RETURNING yield the row in both cases, so the
// insert-or-fetch race under concurrent ingestion resolves inside the database.
func (repo *KeywordRepo) UpsertByText(ctx context.Context, text string) (*entity.Keyword, error) {
	keyword := &entity.Keyword{Text: text}
	if err := keyword.Validate(); err != nil {
		return nil, fmt.Errorf("UpsertByText: %w", err)
	}

	const query = `
INSERT INTO keywords (text)
VALUES ($1)
ON CONFLICT (text) DO UPDATE SET text = EXCLUDED.text
RETURNING id, text, created_at`

	err := repo.db.QueryRowContext(ctx, query, text).
		Scan(&keyword.ID, &keyword.Text, &keyword.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("UpsertByText: %w", err)
	}
	return keyword, nil
}
