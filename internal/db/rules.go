package db

import (
	"context"
	"fmt"

	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateLabel creates a label for a user and populates its ID.
func CreateLabel(ctx context.Context, pool *pgxpool.Pool, label *models.Label) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO labels (user_id, name)
		VALUES ($1, $2)
		RETURNING id
	`, label.UserID, label.Name).Scan(&label.ID)

	if err != nil {
		return fmt.Errorf("failed to create label: %w", err)
	}

	return nil
}

// CreateRule creates an auto-tag rule and populates its ID and creation time.
func CreateRule(ctx context.Context, pool *pgxpool.Pool, rule *models.Rule) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO auto_tag_rules (
			user_id,
			rule_type,
			operator,
			value,
			label_id,
			enabled,
			priority,
			save_attachments,
			attachment_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		rule.UserID,
		rule.Type,
		rule.Operator,
		rule.Value,
		rule.LabelID,
		rule.Enabled,
		rule.Priority,
		rule.SaveAttachments,
		rule.AttachmentPath,
	).Scan(&rule.ID, &rule.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

// GetEnabledRules returns a user's enabled rules in evaluation order: highest
// priority first, creation order breaking ties. Rules are fetched fresh on
// every call; the ingestion core does not cache them across runs.
func GetEnabledRules(ctx context.Context, pool *pgxpool.Pool, userID string) ([]models.Rule, error) {
	rows, err := pool.Query(ctx, `
		SELECT
			id,
			user_id,
			rule_type,
			operator,
			value,
			label_id,
			enabled,
			priority,
			save_attachments,
			COALESCE(attachment_path, ''),
			created_at
		FROM auto_tag_rules
		WHERE user_id = $1 AND enabled
		ORDER BY priority DESC, created_at, id
	`, userID)

	if err != nil {
		return nil, fmt.Errorf("failed to get rules: %w", err)
	}
	defer rows.Close()

	var rules []models.Rule
	for rows.Next() {
		var rule models.Rule
		if err := rows.Scan(
			&rule.ID,
			&rule.UserID,
			&rule.Type,
			&rule.Operator,
			&rule.Value,
			&rule.LabelID,
			&rule.Enabled,
			&rule.Priority,
			&rule.SaveAttachments,
			&rule.AttachmentPath,
			&rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}
