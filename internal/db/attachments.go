package db

import (
	"context"
	"fmt"

	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SaveAttachment records metadata for an attachment written to disk and
// populates its ID.
func SaveAttachment(ctx context.Context, pool *pgxpool.Pool, attachment *models.Attachment) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO attachments (email_id, filename, mime_type, size_bytes, content_hash, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		attachment.EmailID,
		attachment.Filename,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.ContentHash,
		attachment.StoragePath,
	).Scan(&attachment.ID)

	if err != nil {
		return fmt.Errorf("failed to save attachment: %w", err)
	}

	return nil
}

// GetAttachmentsForEmail returns all attachment records for an email.
func GetAttachmentsForEmail(ctx context.Context, pool *pgxpool.Pool, emailID string) ([]*models.Attachment, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, email_id, filename, mime_type, size_bytes, content_hash, storage_path
		FROM attachments
		WHERE email_id = $1
		ORDER BY filename
	`, emailID)

	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*models.Attachment
	for rows.Next() {
		var att models.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.EmailID,
			&att.Filename,
			&att.MimeType,
			&att.SizeBytes,
			&att.ContentHash,
			&att.StoragePath,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, &att)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	return attachments, nil
}
