package db

import (
	"context"

	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store adapts the package's free functions to the narrow repository contract
// the ingestion pipeline consumes. Everything behind it is opaque to the core.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a connection pool in a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) FindEmailByExternalID(ctx context.Context, accountID, externalID string) (*models.Email, error) {
	return FindEmailByExternalID(ctx, s.pool, accountID, externalID)
}

func (s *Store) InsertEmail(ctx context.Context, email *models.Email) error {
	return InsertEmail(ctx, s.pool, email)
}

func (s *Store) AttachLabel(ctx context.Context, emailID, labelID string) (bool, error) {
	return AttachLabel(ctx, s.pool, emailID, labelID)
}

func (s *Store) RecordAttachment(ctx context.Context, attachment *models.Attachment) error {
	return SaveAttachment(ctx, s.pool, attachment)
}

func (s *Store) EnabledRules(ctx context.Context, userID string) ([]models.Rule, error) {
	return GetEnabledRules(ctx, s.pool, userID)
}
