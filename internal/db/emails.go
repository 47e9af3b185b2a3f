package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEmailNotFound is returned when a requested email cannot be found.
var ErrEmailNotFound = errors.New("email not found")

// ErrDuplicateEmail is returned by InsertEmail when an email with the same
// external ID already exists for the account. Concurrent ingestion runs racing
// to the same message are expected to hit this; it is not a failure.
var ErrDuplicateEmail = errors.New("email already exists")

// InsertEmail inserts a new email and populates its ID. The uniqueness
// constraint on (account_id, external_id) is what serializes concurrent runs.
func InsertEmail(ctx context.Context, pool *pgxpool.Pool, email *models.Email) error {
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO emails (
			account_id,
			external_id,
			subject,
			sender,
			recipients,
			sent_at,
			body_text,
			body_html,
			body_format,
			size_bytes,
			has_attachment,
			is_read
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (account_id, external_id) DO NOTHING
		RETURNING id
	`,
		email.AccountID,
		email.ExternalID,
		email.Subject,
		email.Sender,
		email.Recipients,
		email.SentAt,
		email.BodyText,
		email.BodyHTML,
		email.BodyFormat,
		email.SizeBytes,
		email.HasAttachment,
		email.IsRead,
	).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateEmail
	}

	if err != nil {
		return fmt.Errorf("failed to insert email: %w", err)
	}

	email.ID = id
	return nil
}

// FindEmailByExternalID returns the email with the given external ID for an
// account, or ErrEmailNotFound.
func FindEmailByExternalID(ctx context.Context, pool *pgxpool.Pool, accountID, externalID string) (*models.Email, error) {
	var email models.Email

	err := pool.QueryRow(ctx, `
		SELECT
			id,
			account_id,
			external_id,
			subject,
			sender,
			recipients,
			sent_at,
			body_text,
			body_html,
			body_format,
			size_bytes,
			has_attachment,
			is_read
		FROM emails
		WHERE account_id = $1 AND external_id = $2
	`, accountID, externalID).Scan(
		&email.ID,
		&email.AccountID,
		&email.ExternalID,
		&email.Subject,
		&email.Sender,
		&email.Recipients,
		&email.SentAt,
		&email.BodyText,
		&email.BodyHTML,
		&email.BodyFormat,
		&email.SizeBytes,
		&email.HasAttachment,
		&email.IsRead,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmailNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}

	return &email, nil
}

// UpdateEmail applies a partial update descriptor to an email in one statement.
func UpdateEmail(ctx context.Context, pool *pgxpool.Pool, emailID string, update models.EmailUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	assignments := make([]string, 0, 4)
	args := make([]any, 0, 5)

	addAssignment := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.IsRead != nil {
		addAssignment("is_read", *update.IsRead)
	}
	if update.BodyText != nil {
		addAssignment("body_text", *update.BodyText)
	}
	if update.BodyHTML != nil {
		addAssignment("body_html", *update.BodyHTML)
	}
	if update.BodyFormat != nil {
		addAssignment("body_format", *update.BodyFormat)
	}

	args = append(args, emailID)
	query := fmt.Sprintf("UPDATE emails SET %s WHERE id = $%d", strings.Join(assignments, ", "), len(args))

	tag, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrEmailNotFound
	}

	return nil
}

// AttachLabel attaches a label to an email. Attaching an already-present label
// is a no-op; the return value reports whether the label was newly attached.
func AttachLabel(ctx context.Context, pool *pgxpool.Pool, emailID, labelID string) (bool, error) {
	tag, err := pool.Exec(ctx, `
		INSERT INTO email_labels (email_id, label_id)
		VALUES ($1, $2)
		ON CONFLICT (email_id, label_id) DO NOTHING
	`, emailID, labelID)

	if err != nil {
		return false, fmt.Errorf("failed to attach label: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetLabelsForEmail returns the labels attached to an email.
func GetLabelsForEmail(ctx context.Context, pool *pgxpool.Pool, emailID string) ([]*models.Label, error) {
	rows, err := pool.Query(ctx, `
		SELECT l.id, l.user_id, l.name
		FROM labels l
		JOIN email_labels el ON el.label_id = l.id
		WHERE el.email_id = $1
		ORDER BY l.name
	`, emailID)

	if err != nil {
		return nil, fmt.Errorf("failed to get labels: %w", err)
	}
	defer rows.Close()

	var labels []*models.Label
	for rows.Next() {
		var label models.Label
		if err := rows.Scan(&label.ID, &label.UserID, &label.Name); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, &label)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating labels: %w", err)
	}

	return labels, nil
}
