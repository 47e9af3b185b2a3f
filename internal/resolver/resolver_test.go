package resolver

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/haiderali-dev/mailsort/internal/models"
)

func messageWithBody(t *testing.T, uid uint32, envelope *imap.Envelope, raw string) *imap.Message {
	t.Helper()

	section, err := imap.ParseBodySectionName("BODY[]")
	if err != nil {
		t.Fatalf("Failed to parse body section name: %v", err)
	}

	return &imap.Message{
		Uid:      uid,
		Envelope: envelope,
		Body: map[*imap.BodySectionName]imap.Literal{
			section: bytes.NewBufferString(raw),
		},
	}
}

const plainTextBody = "From: billing@vendor.com\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Invoice #42\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please find the invoice amount below.\r\n"

const alternativeBody = "From: news@example.com\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Newsletter\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"sep\"\r\n" +
	"\r\n" +
	"--sep\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello in plain text.\r\n" +
	"--sep\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><p>Hello in HTML.</p></body></html>\r\n" +
	"--sep--\r\n"

const attachmentBody = "From: billing@vendor.com\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Invoice #42\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"sep\"\r\n" +
	"\r\n" +
	"--sep\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Invoice attached.\r\n" +
	"--sep\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"Content-Disposition: attachment; filename=\"invoice.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"aW52b2ljZSBjb250ZW50\r\n" +
	"--sep--\r\n"

func TestResolve(t *testing.T) {
	t.Run("plain text message", func(t *testing.T) {
		now := time.Now()
		msg := messageWithBody(t, 42, &imap.Envelope{
			Subject: "Invoice #42",
			From: []*imap.Address{
				{MailboxName: "billing", HostName: "vendor.com"},
			},
			To: []*imap.Address{
				{MailboxName: "me", HostName: "example.com"},
			},
			Date: now,
		}, plainTextBody)

		result, err := Resolve(msg, "account-1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if result.Warning != nil {
			t.Fatalf("Expected no warning, got %v", result.Warning)
		}

		email := result.Email
		if email.ExternalID != "42" {
			t.Errorf("Expected ExternalID '42', got %q", email.ExternalID)
		}
		if email.AccountID != "account-1" {
			t.Errorf("Expected AccountID 'account-1', got %q", email.AccountID)
		}
		if email.Subject != "Invoice #42" {
			t.Errorf("Expected subject 'Invoice #42', got %q", email.Subject)
		}
		if email.Sender != "billing@vendor.com" {
			t.Errorf("Expected sender 'billing@vendor.com', got %q", email.Sender)
		}
		if email.BodyFormat != models.FormatText {
			t.Errorf("Expected format text, got %q", email.BodyFormat)
		}
		if !strings.Contains(email.BodyText, "invoice amount") {
			t.Errorf("Expected body text, got %q", email.BodyText)
		}
		if email.BodyHTML != "" {
			t.Errorf("Expected empty HTML body, got %q", email.BodyHTML)
		}
		if email.SizeBytes != int64(len(email.BodyText)) {
			t.Errorf("Expected SizeBytes %d, got %d", len(email.BodyText), email.SizeBytes)
		}
		if email.HasAttachment {
			t.Error("Expected no attachments")
		}
		if email.SentAt == nil || !email.SentAt.Equal(now) {
			t.Error("Expected SentAt to match envelope date")
		}
	})

	t.Run("multipart alternative keeps both bodies", func(t *testing.T) {
		msg := messageWithBody(t, 7, &imap.Envelope{Subject: "Newsletter"}, alternativeBody)

		result, err := Resolve(msg, "account-1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		email := result.Email
		if email.BodyFormat != models.FormatBoth {
			t.Errorf("Expected format both, got %q", email.BodyFormat)
		}
		if !strings.Contains(email.BodyText, "plain text") {
			t.Errorf("Expected plain body, got %q", email.BodyText)
		}
		if !strings.Contains(email.BodyHTML, "<p>Hello in HTML.</p>") {
			t.Errorf("Expected HTML body, got %q", email.BodyHTML)
		}
		if email.SizeBytes != int64(len(email.BodyText)+len(email.BodyHTML)) {
			t.Errorf("Expected SizeBytes to cover both bodies, got %d", email.SizeBytes)
		}
	})

	t.Run("extracts attachment payloads", func(t *testing.T) {
		msg := messageWithBody(t, 9, &imap.Envelope{Subject: "Invoice #42"}, attachmentBody)

		result, err := Resolve(msg, "account-1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		if len(result.Attachments) != 1 {
			t.Fatalf("Expected 1 pending attachment, got %d", len(result.Attachments))
		}
		att := result.Attachments[0]
		if att.Filename != "invoice.pdf" {
			t.Errorf("Expected filename 'invoice.pdf', got %q", att.Filename)
		}
		if string(att.Content) != "invoice content" {
			t.Errorf("Expected decoded content, got %q", att.Content)
		}
		if !result.Email.HasAttachment {
			t.Error("Expected HasAttachment to be true")
		}
	})

	t.Run("missing subject and sender become placeholders", func(t *testing.T) {
		msg := &imap.Message{Uid: 3, Envelope: &imap.Envelope{}}

		result, err := Resolve(msg, "account-1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		if result.Email.Subject != MissingSubject {
			t.Errorf("Expected %q, got %q", MissingSubject, result.Email.Subject)
		}
		if result.Email.Sender != MissingSender {
			t.Errorf("Expected %q, got %q", MissingSender, result.Email.Sender)
		}
	})

	t.Run("message without body degrades to empty text", func(t *testing.T) {
		msg := &imap.Message{Uid: 5, Envelope: &imap.Envelope{Subject: "Header only"}}

		result, err := Resolve(msg, "account-1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		email := result.Email
		if email.BodyText != "" || email.BodyHTML != "" {
			t.Errorf("Expected empty bodies, got text=%q html=%q", email.BodyText, email.BodyHTML)
		}
		if email.BodyFormat != models.FormatText {
			t.Errorf("Expected degenerate format text, got %q", email.BodyFormat)
		}
		if email.SizeBytes != 0 {
			t.Errorf("Expected SizeBytes 0, got %d", email.SizeBytes)
		}
	})

	t.Run("seen flag marks email read", func(t *testing.T) {
		msg := &imap.Message{Uid: 6, Flags: []string{imap.SeenFlag}, Envelope: &imap.Envelope{}}

		result, err := Resolve(msg, "account-1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if !result.Email.IsRead {
			t.Error("Expected IsRead to be true")
		}
	})

	t.Run("falls back to Message-ID when UID is missing", func(t *testing.T) {
		msg := &imap.Message{Envelope: &imap.Envelope{MessageId: "<abc@example.com>"}}

		result, err := Resolve(msg, "account-1")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if result.Email.ExternalID != "<abc@example.com>" {
			t.Errorf("Expected Message-ID fallback, got %q", result.Email.ExternalID)
		}
	})

	t.Run("nil message is an error", func(t *testing.T) {
		if _, err := Resolve(nil, "account-1"); err == nil {
			t.Error("Expected error for nil message")
		}
	})
}

func TestClassifyBody(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		html       string
		wantText   string
		wantHTML   string
		wantFormat models.BodyFormat
	}{
		{
			name:       "text only",
			text:       "just words",
			wantText:   "just words",
			wantFormat: models.FormatText,
		},
		{
			name:       "html only",
			html:       "<html><body>hi</body></html>",
			wantHTML:   "<html><body>hi</body></html>",
			wantFormat: models.FormatHTML,
		},
		{
			name:       "both parts",
			text:       "plain version",
			html:       "<html><body>rich version</body></html>",
			wantText:   "plain version",
			wantHTML:   "<html><body>rich version</body></html>",
			wantFormat: models.FormatBoth,
		},
		{
			name:       "text part that is really html is reclassified",
			text:       "<html><body><div>fake plain</div></body></html>",
			html:       "<html><body>rich</body></html>",
			wantHTML:   "<html><body>rich</body></html>",
			wantFormat: models.FormatHTML,
		},
		{
			name:       "lone text blob that is really html",
			text:       "<html><body><table><tr><td>x</td></tr></table></body></html>",
			wantHTML:   "<html><body><table><tr><td>x</td></tr></table></body></html>",
			wantFormat: models.FormatHTML,
		},
		{
			name:       "empty is the degenerate text case",
			wantFormat: models.FormatText,
		},
		{
			name:       "whitespace-only is trimmed away",
			text:       "  \r\n ",
			wantFormat: models.FormatText,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text, html, format := classifyBody(tc.text, tc.html)
			if text != tc.wantText {
				t.Errorf("text: expected %q, got %q", tc.wantText, text)
			}
			if html != tc.wantHTML {
				t.Errorf("html: expected %q, got %q", tc.wantHTML, html)
			}
			if format != tc.wantFormat {
				t.Errorf("format: expected %q, got %q", tc.wantFormat, format)
			}
		})
	}
}
