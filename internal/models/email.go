package models

import "time"

// BodyFormat classifies the content of a normalized email.
type BodyFormat string

const (
	// FormatText means only a plain-text body is present (also the degenerate
	// empty-body case).
	FormatText BodyFormat = "text"
	// FormatHTML means only an HTML body is present.
	FormatHTML BodyFormat = "html"
	// FormatBoth means both a plain-text and an HTML body are present.
	FormatBoth BodyFormat = "both"
)

// Email is the canonical record produced by the content resolver. ExternalID is
// the mailbox-assigned identifier used for deduplication; it is unique per account.
type Email struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"account_id"`
	ExternalID    string     `json:"external_id"`
	Subject       string     `json:"subject"`
	Sender        string     `json:"sender"`
	Recipients    []string   `json:"recipients"`
	SentAt        *time.Time `json:"sent_at"`
	BodyText      string     `json:"body_text"`
	BodyHTML      string     `json:"body_html"`
	BodyFormat    BodyFormat `json:"body_format"`
	SizeBytes     int64      `json:"size_bytes"`
	HasAttachment bool       `json:"has_attachment"`
	IsRead        bool       `json:"is_read"`
}

// EmailUpdate describes a partial update to an email. Only non-nil fields are
// written; the repository applies the whole descriptor in one statement.
type EmailUpdate struct {
	IsRead     *bool
	BodyText   *string
	BodyHTML   *string
	BodyFormat *BodyFormat
}

// IsEmpty reports whether the update would change nothing.
func (u EmailUpdate) IsEmpty() bool {
	return u.IsRead == nil && u.BodyText == nil && u.BodyHTML == nil && u.BodyFormat == nil
}

// Attachment is the metadata record for an extracted attachment payload.
// ContentHash is the SHA-256 of the stored bytes; two attachments on different
// emails may share a hash, duplicates within one email are suppressed on write.
type Attachment struct {
	ID          string `json:"id"`
	EmailID     string `json:"email_id"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentHash string `json:"content_hash"`
	StoragePath string `json:"storage_path"`
}
