// Package resolver normalizes raw IMAP messages into canonical email records.
// It never fails past its boundary: a message whose MIME structure cannot be
// parsed degrades to an empty-body record with a soft warning, so one broken
// message never aborts an ingestion run.
package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/jhillyerd/enmime"
)

// Placeholders are part of the contract, not incidental defaults: downstream
// consumers rely on them instead of empty strings.
const (
	MissingSubject = "(No subject)"
	MissingSender  = "(Unknown sender)"
)

// PendingAttachment is an attachment payload extracted from a message but not
// yet written to disk.
type PendingAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Result is the outcome of resolving one raw message. Warning carries a
// recovered parse failure; it is advisory and never makes the message
// unprocessable.
type Result struct {
	Email       *models.Email
	Attachments []PendingAttachment
	Warning     error
}

// Resolve converts a raw IMAP message into a normalized email plus its pending
// attachment payloads.
func Resolve(msg *imap.Message, accountID string) (*Result, error) {
	if msg == nil {
		return nil, fmt.Errorf("imap message is nil")
	}

	email := &models.Email{
		AccountID:  accountID,
		ExternalID: externalID(msg),
		BodyFormat: models.FormatText,
	}

	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			email.IsRead = true
		}
	}

	if msg.Envelope != nil {
		email.Subject = msg.Envelope.Subject
		if len(msg.Envelope.From) > 0 {
			email.Sender = formatAddress(msg.Envelope.From[0])
		}
		email.Recipients = formatAddressList(msg.Envelope.To)
		if !msg.Envelope.Date.IsZero() {
			date := msg.Envelope.Date
			email.SentAt = &date
		}
	}

	if email.Subject == "" {
		email.Subject = MissingSubject
	}
	if email.Sender == "" {
		email.Sender = MissingSender
	}

	result := &Result{Email: email}

	section := &imap.BodySectionName{}
	if bodyReader := msg.GetBody(section); bodyReader != nil {
		envelope, err := enmime.ReadEnvelope(bodyReader)
		if err != nil {
			result.Warning = fmt.Errorf("failed to parse message body: %w", err)
		} else {
			text, html, format := classifyBody(envelope.Text, envelope.HTML)
			email.BodyText = text
			email.BodyHTML = html
			email.BodyFormat = format

			for _, part := range envelope.Attachments {
				result.Attachments = append(result.Attachments, PendingAttachment{
					Filename:    part.FileName,
					ContentType: part.ContentType,
					Content:     part.Content,
				})
			}
		}
	}

	email.SizeBytes = int64(len(email.BodyText) + len(email.BodyHTML))
	email.HasAttachment = len(result.Attachments) > 0

	return result, nil
}

// externalID returns the stable dedup key for a message: the server-assigned
// UID, falling back to the Message-ID header for servers that omit UIDs from
// fetch responses.
func externalID(msg *imap.Message) string {
	if msg.Uid != 0 {
		return strconv.FormatUint(uint64(msg.Uid), 10)
	}

	if msg.Envelope != nil && msg.Envelope.MessageId != "" {
		return msg.Envelope.MessageId
	}

	return "0"
}

// classifyBody decides which body parts to keep and the resulting format.
// A plain-text part that is indistinguishable from HTML is reclassified as
// HTML rather than stored as text.
func classifyBody(rawText, rawHTML string) (text, html string, format models.BodyFormat) {
	rawText = strings.TrimSpace(rawText)
	rawHTML = strings.TrimSpace(rawHTML)

	switch {
	case rawHTML != "":
		html = rawHTML
		if rawText != "" && !looksLikeHTML(rawText) {
			text = rawText
			format = models.FormatBoth
		} else {
			format = models.FormatHTML
		}
	case rawText != "":
		if looksLikeHTML(rawText) {
			html = rawText
			format = models.FormatHTML
		} else {
			text = rawText
			format = models.FormatText
		}
	default:
		format = models.FormatText
	}

	return text, html, format
}

// formatAddress formats an IMAP address to a string.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" && address.HostName == "" {
		return ""
	}

	if address.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", address.PersonalName, address.MailboxName, address.HostName)
	}

	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}

// formatAddressList formats a list of IMAP addresses.
func formatAddressList(addresses []*imap.Address) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		formatted := formatAddress(address)
		if formatted != "" {
			result = append(result, formatted)
		}
	}
	return result
}
