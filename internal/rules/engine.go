// Package rules evaluates auto-tag rules against normalized emails. Every
// enabled rule that matches is applied; this is not a first-match-wins system.
package rules

import (
	"context"
	"sort"

	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/sirupsen/logrus"
)

// LabelAttacher is the slice of the repository the engine needs. Attaching is
// idempotent; the bool reports whether the label was newly attached.
type LabelAttacher interface {
	AttachLabel(ctx context.Context, emailID, labelID string) (bool, error)
}

// ExtractionJob asks the attachment manager to persist an email's pending
// payloads under the given destination root.
type ExtractionJob struct {
	RuleID          string
	DestinationRoot string
}

// Engine applies rules to emails.
type Engine struct {
	repo LabelAttacher
	log  *logrus.Logger
}

// NewEngine creates an Engine. A nil logger falls back to the standard one.
func NewEngine(repo LabelAttacher, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{repo: repo, log: log}
}

// Apply evaluates rules against one email in descending priority order
// (creation order breaking ties) and attaches the label of every matching
// enabled rule. It returns the label IDs that were newly attached and the
// extraction jobs requested by matching rules configured to save attachments.
// Jobs are emitted whether or not the label attach was a no-op. A single
// rule's failure is logged and skipped; remaining rules still run.
func (e *Engine) Apply(ctx context.Context, email *models.Email, ruleList []models.Rule) ([]string, []ExtractionJob) {
	ordered := make([]models.Rule, len(ruleList))
	copy(ordered, ruleList)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	var applied []string
	var jobs []ExtractionJob

	for _, rule := range ordered {
		if !rule.Enabled {
			continue
		}

		if !Matches(rule, email) {
			continue
		}

		newlyAttached, err := e.repo.AttachLabel(ctx, email.ID, rule.LabelID)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"rule_id":  rule.ID,
				"email_id": email.ID,
			}).Warnf("Failed to attach label: %v", err)
			continue
		}

		if newlyAttached {
			applied = append(applied, rule.LabelID)
		}

		if rule.SaveAttachments && rule.AttachmentPath != "" && email.HasAttachment {
			jobs = append(jobs, ExtractionJob{
				RuleID:          rule.ID,
				DestinationRoot: rule.AttachmentPath,
			})
		}
	}

	return applied, jobs
}
