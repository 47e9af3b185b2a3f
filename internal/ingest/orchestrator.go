// Package ingest drives the ingestion pipeline for one mailbox: open a
// session, resolve each raw message, deduplicate against the repository,
// persist new records, and evaluate auto-tag rules. The pipeline is
// deliberately sequential per mailbox: one message is fully resolved,
// persisted, and rule-evaluated before the next starts, so rule evaluation
// always sees a fully committed prior state. Distinct accounts may be ingested
// concurrently by distinct orchestrators.
package ingest

import (
	"context"
	"errors"

	goimap "github.com/emersion/go-imap"
	"github.com/haiderali-dev/mailsort/internal/attachments"
	"github.com/haiderali-dev/mailsort/internal/db"
	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/haiderali-dev/mailsort/internal/resolver"
	"github.com/haiderali-dev/mailsort/internal/rules"
	"github.com/sirupsen/logrus"
)

// Repository is the narrow read/write contract the pipeline needs from the
// relational store. The store itself is an external collaborator.
type Repository interface {
	FindEmailByExternalID(ctx context.Context, accountID, externalID string) (*models.Email, error)
	InsertEmail(ctx context.Context, email *models.Email) error
	AttachLabel(ctx context.Context, emailID, labelID string) (bool, error)
	RecordAttachment(ctx context.Context, attachment *models.Attachment) error
	EnabledRules(ctx context.Context, userID string) ([]models.Rule, error)
}

// Session is one open mailbox connection.
type Session interface {
	Messages() ([]*goimap.Message, error)
	Probe() error
	Close() error
}

// SessionOpener opens an authenticated session to a remote mailbox.
type SessionOpener func(host string, port int, address, secret string) (Session, error)

// ProgressFunc receives advisory progress after each processed message. The
// index increases monotonically up to total; consumers must not rely on it for
// correctness.
type ProgressFunc func(processed, total int)

// Result reports an ingestion run. Partial counts are always populated, even
// when the run terminates early.
type Result struct {
	Processed int
	New       int
	Err       error
}

// Orchestrator ingests mailboxes.
type Orchestrator struct {
	repo        Repository
	openSession SessionOpener
	engine      *rules.Engine
	attachments *attachments.Manager
	log         *logrus.Logger
}

// NewOrchestrator creates an Orchestrator. A nil logger falls back to the
// standard one.
func NewOrchestrator(repo Repository, openSession SessionOpener, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		repo:        repo,
		openSession: openSession,
		engine:      rules.NewEngine(repo, log),
		attachments: attachments.NewManager(repo, log),
		log:         log,
	}
}

// Ingest runs one full pass over the account's mailbox. Every retrievable
// message is a candidate on every run: already-ingested messages are not
// re-persisted but are re-evaluated against the current rule set, so rules
// added after a message arrived still apply to it. A session that cannot be
// opened aborts immediately with zero counts and the reason surfaced verbatim;
// cancellation via ctx is cooperative, checked at message boundaries, and
// reports success with partial counts. A context already cancelled at entry is
// the degenerate case of that: zero counts, no error, no session opened.
func (o *Orchestrator) Ingest(ctx context.Context, account *models.Account, secret string, onProgress ProgressFunc) Result {
	if ctx.Err() != nil {
		return Result{}
	}

	session, err := o.openSession(account.IMAPHost, account.IMAPPort, account.Address, secret)
	if err != nil {
		return Result{Err: err}
	}
	defer func() {
		if err := session.Close(); err != nil {
			o.log.Warnf("Failed to close mailbox session: %v", err)
		}
	}()

	messages, err := session.Messages()
	if err != nil {
		return Result{Err: err}
	}

	// Rules are supplied fresh on each run, never cached across runs.
	ruleList, err := o.repo.EnabledRules(ctx, account.UserID)
	if err != nil {
		return Result{Err: err}
	}

	var result Result
	total := len(messages)

	for i, msg := range messages {
		if ctx.Err() != nil {
			break
		}

		o.processMessage(ctx, account, msg, ruleList, &result)

		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	return result
}

// processMessage resolves, deduplicates, persists, and rule-evaluates one raw
// message. Failures here are per-message: they are logged and the run moves on.
func (o *Orchestrator) processMessage(ctx context.Context, account *models.Account, msg *goimap.Message, ruleList []models.Rule, result *Result) {
	resolved, err := resolver.Resolve(msg, account.ID)
	if err != nil {
		o.log.Warnf("Skipping unresolvable message: %v", err)
		return
	}
	if resolved.Warning != nil {
		// Degraded to an empty-body record; still ingested.
		o.log.WithField("external_id", resolved.Email.ExternalID).Warnf("Message resolution degraded: %v", resolved.Warning)
	}

	result.Processed++
	email := resolved.Email

	existing, err := o.repo.FindEmailByExternalID(ctx, account.ID, email.ExternalID)
	switch {
	case err == nil:
		// Seen before: not new, but rules may have changed since it was
		// first ingested, so it is still re-evaluated below.
		email.ID = existing.ID

	case errors.Is(err, db.ErrEmailNotFound):
		insertErr := o.repo.InsertEmail(ctx, email)
		switch {
		case insertErr == nil:
			result.New++
		case errors.Is(insertErr, db.ErrDuplicateEmail):
			// A concurrent run won the race; expected, not an error.
			raced, findErr := o.repo.FindEmailByExternalID(ctx, account.ID, email.ExternalID)
			if findErr != nil {
				o.log.WithField("external_id", email.ExternalID).Warnf("Failed to load raced email: %v", findErr)
				return
			}
			email.ID = raced.ID
		default:
			o.log.WithField("external_id", email.ExternalID).Warnf("Failed to persist email: %v", insertErr)
			return
		}

	default:
		o.log.WithField("external_id", email.ExternalID).Warnf("Failed to look up email: %v", err)
		return
	}

	_, jobs := o.engine.Apply(ctx, email, ruleList)

	for _, job := range jobs {
		persisted := o.attachments.Persist(ctx, email.ID, payloads(resolved.Attachments), job.DestinationRoot)
		for _, persistErr := range persisted.Errors {
			o.log.WithField("email_id", email.ID).Warnf("Attachment persistence: %s", persistErr)
		}
	}
}

// TestConnection validates the account's credentials by opening a session and
// fetching at most one message.
func (o *Orchestrator) TestConnection(account *models.Account, secret string) error {
	session, err := o.openSession(account.IMAPHost, account.IMAPPort, account.Address, secret)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			o.log.Warnf("Failed to close mailbox session: %v", err)
		}
	}()

	return session.Probe()
}

func payloads(pending []resolver.PendingAttachment) []attachments.Payload {
	converted := make([]attachments.Payload, 0, len(pending))
	for _, p := range pending {
		converted = append(converted, attachments.Payload{
			Filename:    p.Filename,
			ContentType: p.ContentType,
			Content:     p.Content,
		})
	}
	return converted
}
