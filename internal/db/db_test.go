package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/haiderali-dev/mailsort/internal/db"
	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/haiderali-dev/mailsort/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func setupAccount(t *testing.T, pool *pgxpool.Pool, userID string) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:            userID,
		Address:           userID + "@example.com",
		IMAPHost:          "imap.example.com",
		IMAPPort:          993,
		EncryptedPassword: []byte{0x01, 0x02, 0x03},
	}
	require.NoError(t, db.CreateAccount(context.Background(), pool, account))
	return account
}

func sampleEmail(accountID, externalID string) *models.Email {
	sentAt := time.Now().UTC().Truncate(time.Second)
	return &models.Email{
		AccountID:  accountID,
		ExternalID: externalID,
		Subject:    "Invoice #42",
		Sender:     "billing@vendor.com",
		Recipients: []string{"me@example.com"},
		SentAt:     &sentAt,
		BodyText:   "Please pay.",
		BodyFormat: models.FormatText,
		SizeBytes:  11,
	}
}

func TestEmailLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	account := setupAccount(t, pool, "user-1")

	t.Run("insert and find", func(t *testing.T) {
		email := sampleEmail(account.ID, "uid-1")
		require.NoError(t, db.InsertEmail(ctx, pool, email))
		require.NotEmpty(t, email.ID)

		found, err := db.FindEmailByExternalID(ctx, pool, account.ID, "uid-1")
		require.NoError(t, err)
		require.Equal(t, email.ID, found.ID)
		require.Equal(t, "Invoice #42", found.Subject)
		require.Equal(t, []string{"me@example.com"}, found.Recipients)
		require.Equal(t, models.FormatText, found.BodyFormat)
	})

	t.Run("duplicate insert is ErrDuplicateEmail", func(t *testing.T) {
		first := sampleEmail(account.ID, "uid-2")
		require.NoError(t, db.InsertEmail(ctx, pool, first))

		second := sampleEmail(account.ID, "uid-2")
		err := db.InsertEmail(ctx, pool, second)
		require.ErrorIs(t, err, db.ErrDuplicateEmail)
	})

	t.Run("same external id on another account is fine", func(t *testing.T) {
		other := setupAccount(t, pool, "user-2")

		email := sampleEmail(other.ID, "uid-1")
		require.NoError(t, db.InsertEmail(ctx, pool, email))
	})

	t.Run("missing email is ErrEmailNotFound", func(t *testing.T) {
		_, err := db.FindEmailByExternalID(ctx, pool, account.ID, "no-such-uid")
		require.ErrorIs(t, err, db.ErrEmailNotFound)
	})

	t.Run("partial update", func(t *testing.T) {
		email := sampleEmail(account.ID, "uid-3")
		require.NoError(t, db.InsertEmail(ctx, pool, email))

		isRead := true
		bodyHTML := "<p>Please pay.</p>"
		format := models.FormatBoth
		err := db.UpdateEmail(ctx, pool, email.ID, models.EmailUpdate{
			IsRead:     &isRead,
			BodyHTML:   &bodyHTML,
			BodyFormat: &format,
		})
		require.NoError(t, err)

		found, err := db.FindEmailByExternalID(ctx, pool, account.ID, "uid-3")
		require.NoError(t, err)
		require.True(t, found.IsRead)
		require.Equal(t, bodyHTML, found.BodyHTML)
		require.Equal(t, models.FormatBoth, found.BodyFormat)
		require.Equal(t, "Please pay.", found.BodyText, "untouched fields must survive")
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		email := sampleEmail(account.ID, "uid-4")
		require.NoError(t, db.InsertEmail(ctx, pool, email))
		require.NoError(t, db.UpdateEmail(ctx, pool, email.ID, models.EmailUpdate{}))
	})
}

func TestLabelAttachment(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	account := setupAccount(t, pool, "user-1")

	email := sampleEmail(account.ID, "uid-1")
	require.NoError(t, db.InsertEmail(ctx, pool, email))

	label := &models.Label{UserID: "user-1", Name: "Finance"}
	require.NoError(t, db.CreateLabel(ctx, pool, label))

	newly, err := db.AttachLabel(ctx, pool, email.ID, label.ID)
	require.NoError(t, err)
	require.True(t, newly, "first attach must report newly attached")

	again, err := db.AttachLabel(ctx, pool, email.ID, label.ID)
	require.NoError(t, err)
	require.False(t, again, "second attach must be a no-op")

	labels, err := db.GetLabelsForEmail(ctx, pool, email.ID)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	require.Equal(t, "Finance", labels[0].Name)
}

func TestGetEnabledRules(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool := testutil.NewTestDB(t)
	ctx := context.Background()

	label := &models.Label{UserID: "user-1", Name: "Finance"}
	require.NoError(t, db.CreateLabel(ctx, pool, label))

	mkRule := func(value string, priority int, enabled bool) *models.Rule {
		rule := &models.Rule{
			UserID:   "user-1",
			Type:     models.RuleTypeSubject,
			Operator: models.OperatorContains,
			Value:    value,
			LabelID:  label.ID,
			Enabled:  enabled,
			Priority: priority,
		}
		require.NoError(t, db.CreateRule(ctx, pool, rule))
		return rule
	}

	mkRule("low", 1, true)
	mkRule("high", 10, true)
	mkRule("disabled", 100, false)
	mkRule("low-second", 1, true)

	rules, err := db.GetEnabledRules(ctx, pool, "user-1")
	require.NoError(t, err)
	require.Len(t, rules, 3, "disabled rules must be excluded")

	require.Equal(t, "high", rules[0].Value)
	require.Equal(t, "low", rules[1].Value, "creation order breaks priority ties")
	require.Equal(t, "low-second", rules[2].Value)

	other, err := db.GetEnabledRules(ctx, pool, "user-2")
	require.NoError(t, err)
	require.Empty(t, other, "rules are scoped per user")
}

func TestAttachmentRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	account := setupAccount(t, pool, "user-1")

	email := sampleEmail(account.ID, "uid-1")
	require.NoError(t, db.InsertEmail(ctx, pool, email))

	attachment := &models.Attachment{
		EmailID:     email.ID,
		Filename:    "invoice.pdf",
		MimeType:    "application/pdf",
		SizeBytes:   1024,
		ContentHash: "abc123",
		StoragePath: "/srv/attachments/email_1/invoice.pdf",
	}
	require.NoError(t, db.SaveAttachment(ctx, pool, attachment))
	require.NotEmpty(t, attachment.ID)

	records, err := db.GetAttachmentsForEmail(ctx, pool, email.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "invoice.pdf", records[0].Filename)
	require.Equal(t, int64(1024), records[0].SizeBytes)
}

func TestGetAccountByAddress(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool := testutil.NewTestDB(t)
	ctx := context.Background()
	account := setupAccount(t, pool, "user-1")

	found, err := db.GetAccountByAddress(ctx, pool, "user-1", account.Address)
	require.NoError(t, err)
	require.Equal(t, account.ID, found.ID)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, found.EncryptedPassword)

	_, err = db.GetAccountByAddress(ctx, pool, "user-1", "nobody@example.com")
	require.ErrorIs(t, err, db.ErrAccountNotFound)
}
