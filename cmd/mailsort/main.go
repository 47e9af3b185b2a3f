package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/haiderali-dev/mailsort/internal/attachments"
	"github.com/haiderali-dev/mailsort/internal/config"
	"github.com/haiderali-dev/mailsort/internal/crypto"
	"github.com/haiderali-dev/mailsort/internal/db"
	"github.com/haiderali-dev/mailsort/internal/imap"
	"github.com/haiderali-dev/mailsort/internal/ingest"
	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	userID  string
	address string
)

func main() {
	log := logrus.New()

	rootCmd := &cobra.Command{
		Use:           "mailsort",
		Short:         "Ingest, auto-tag, and archive mail from IMAP mailboxes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "owning user ID")
	rootCmd.PersistentFlags().StringVar(&address, "address", "", "mailbox address")

	rootCmd.AddCommand(newIngestCmd(log))
	rootCmd.AddCommand(newTestConnectionCmd(log))
	rootCmd.AddCommand(newAddAccountCmd(log))
	rootCmd.AddCommand(newCleanupCmd(log))

	if err := rootCmd.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

// setup loads configuration and opens the database pool shared by the
// subcommands.
func setup(ctx context.Context) (*config.Config, *pgxpool.Pool, *crypto.Encryptor, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		return nil, nil, nil, err
	}

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, pool, encryptor, nil
}

// loadAccount fetches the account named by the --user/--address flags and
// decrypts its mailbox secret. The plaintext stays in memory only.
func loadAccount(ctx context.Context, pool *pgxpool.Pool, encryptor *crypto.Encryptor) (*models.Account, string, error) {
	if userID == "" || address == "" {
		return nil, "", fmt.Errorf("--user and --address are required")
	}

	account, err := db.GetAccountByAddress(ctx, pool, userID, address)
	if err != nil {
		return nil, "", err
	}

	secret, err := encryptor.Decrypt(account.EncryptedPassword)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decrypt mailbox password: %w", err)
	}

	return account, secret, nil
}

func newOrchestrator(cfg *config.Config, pool *pgxpool.Pool, log *logrus.Logger) *ingest.Orchestrator {
	dialer := &imap.Dialer{Timeout: cfg.IMAPTimeout, UseTLS: true}
	opener := func(host string, port int, addr, secret string) (ingest.Session, error) {
		return dialer.Open(host, port, addr, secret)
	}
	return ingest.NewOrchestrator(db.NewStore(pool), opener, log)
}

func newIngestCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the mailbox, ingest new mail, and apply auto-tag rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, pool, encryptor, err := setup(ctx)
			if err != nil {
				return err
			}
			defer db.CloseConnection(pool)

			account, secret, err := loadAccount(ctx, pool, encryptor)
			if err != nil {
				return err
			}

			orchestrator := newOrchestrator(cfg, pool, log)
			result := orchestrator.Ingest(ctx, account, secret, func(processed, total int) {
				log.Infof("Processing email %d/%d", processed, total)
			})
			if result.Err != nil {
				return fmt.Errorf("ingestion failed after %d messages: %w", result.Processed, result.Err)
			}

			log.WithFields(logrus.Fields{
				"processed": result.Processed,
				"new":       result.New,
			}).Info("Ingestion complete")
			return nil
		},
	}
}

func newTestConnectionCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Validate mailbox credentials without a full run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, pool, encryptor, err := setup(ctx)
			if err != nil {
				return err
			}
			defer db.CloseConnection(pool)

			account, secret, err := loadAccount(ctx, pool, encryptor)
			if err != nil {
				return err
			}

			orchestrator := newOrchestrator(cfg, pool, log)
			if err := orchestrator.TestConnection(account, secret); err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}

			log.Info("Connection OK")
			return nil
		},
	}
}

func newAddAccountCmd(log *logrus.Logger) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "add-account",
		Short: "Register a mailbox; the password is read from MAILSORT_IMAP_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			password := os.Getenv("MAILSORT_IMAP_PASSWORD")
			if password == "" {
				return fmt.Errorf("MAILSORT_IMAP_PASSWORD is required")
			}
			if userID == "" || address == "" || host == "" {
				return fmt.Errorf("--user, --address, and --host are required")
			}

			_, pool, encryptor, err := setup(ctx)
			if err != nil {
				return err
			}
			defer db.CloseConnection(pool)

			encrypted, err := encryptor.Encrypt(password)
			if err != nil {
				return fmt.Errorf("failed to encrypt mailbox password: %w", err)
			}

			account := &models.Account{
				UserID:            userID,
				Address:           address,
				IMAPHost:          host,
				IMAPPort:          port,
				EncryptedPassword: encrypted,
			}
			if err := db.CreateAccount(ctx, pool, account); err != nil {
				return err
			}

			log.WithField("account_id", account.ID).Info("Account created")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "IMAP server hostname")
	cmd.Flags().IntVar(&port, "port", 993, "IMAP server port")
	return cmd
}

func newCleanupCmd(log *logrus.Logger) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete duplicate attachment files, keeping the oldest copy of each",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, pool, _, err := setup(ctx)
			if err != nil {
				return err
			}
			defer db.CloseConnection(pool)

			if root == "" {
				root = cfg.AttachmentRoot
			}

			manager := attachments.NewManager(db.NewStore(pool), log)
			result := manager.CleanDuplicates(root)
			for _, msg := range result.Errors {
				log.Warn(msg)
			}

			log.WithFields(logrus.Fields{
				"removed":     result.Removed,
				"freed_bytes": result.FreedBytes,
			}).Info("Cleanup complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "attachment store root (defaults to MAILSORT_ATTACHMENT_DIR)")
	return cmd
}
