package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAccountNotFound is returned when a requested account cannot be found.
var ErrAccountNotFound = errors.New("account not found")

// CreateAccount creates a mailbox account and populates its ID.
func CreateAccount(ctx context.Context, pool *pgxpool.Pool, account *models.Account) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO accounts (user_id, address, imap_host, imap_port, encrypted_password)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		account.UserID,
		account.Address,
		account.IMAPHost,
		account.IMAPPort,
		account.EncryptedPassword,
	).Scan(&account.ID)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccountByAddress returns the account for a user's mailbox address, or
// ErrAccountNotFound.
func GetAccountByAddress(ctx context.Context, pool *pgxpool.Pool, userID, address string) (*models.Account, error) {
	var account models.Account

	err := pool.QueryRow(ctx, `
		SELECT id, user_id, address, imap_host, imap_port, encrypted_password
		FROM accounts
		WHERE user_id = $1 AND address = $2
	`, userID, address).Scan(
		&account.ID,
		&account.UserID,
		&account.Address,
		&account.IMAPHost,
		&account.IMAPPort,
		&account.EncryptedPassword,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}
