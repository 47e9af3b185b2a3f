// Package attachments writes extracted attachment payloads to disk and records
// their metadata. Storage is partitioned into one subdirectory per email, so
// concurrent ingestion runs never contend on the same path.
package attachments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/haiderali-dev/mailsort/internal/models"
	"github.com/sirupsen/logrus"
)

// Recorder is the slice of the repository the manager needs.
type Recorder interface {
	RecordAttachment(ctx context.Context, attachment *models.Attachment) error
}

// Payload is one attachment to persist: the filename hint and declared content
// type from the message, plus the raw bytes.
type Payload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Result reports the outcome of persisting one email's payloads. Errors holds
// per-payload failures; a failed payload never aborts the remaining ones.
type Result struct {
	Saved   int
	Skipped int
	Errors  []string
}

// Manager persists attachment payloads.
type Manager struct {
	repo Recorder
	log  *logrus.Logger
}

// NewManager creates a Manager. A nil logger falls back to the standard one.
func NewManager(repo Recorder, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{repo: repo, log: log}
}

// Persist writes payloads under destinationRoot/email_<emailID>. A payload
// whose sanitized filename already exists as a non-empty file is skipped as a
// duplicate; this name+size fast path avoids re-hashing every existing file on
// every run. Each written file produces one metadata record; a metadata write
// failure after a successful disk write is logged only, because the disk
// artifact is authoritative.
func (m *Manager) Persist(ctx context.Context, emailID string, payloads []Payload, destinationRoot string) Result {
	var result Result

	if destinationRoot == "" || len(payloads) == 0 {
		return result
	}

	emailDir := filepath.Join(destinationRoot, "email_"+emailID)
	if err := os.MkdirAll(emailDir, 0o755); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to create directory %s: %v", emailDir, err))
		return result
	}

	for i, payload := range payloads {
		if ctx.Err() != nil {
			break
		}

		name := SanitizeFilename(payload.Filename, i)
		name, duplicate := placeName(emailDir, name)
		if duplicate {
			result.Skipped++
			continue
		}

		path := filepath.Join(emailDir, name)
		if err := os.WriteFile(path, payload.Content, 0o644); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to write %s: %v", name, err))
			continue
		}

		hash := sha256.Sum256(payload.Content)
		record := &models.Attachment{
			EmailID:     emailID,
			Filename:    name,
			MimeType:    guessMimeType(name, payload.ContentType),
			SizeBytes:   int64(len(payload.Content)),
			ContentHash: hex.EncodeToString(hash[:]),
			StoragePath: path,
		}

		if err := m.repo.RecordAttachment(ctx, record); err != nil {
			m.log.WithFields(logrus.Fields{
				"email_id": emailID,
				"filename": name,
			}).Warnf("Failed to record attachment metadata: %v", err)
		}

		result.Saved++
	}

	return result
}

// guessMimeType resolves a MIME type from the filename extension, falling back
// to the type declared by the message part.
func guessMimeType(filename, declared string) string {
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}

	if declared != "" {
		return declared
	}

	return "application/octet-stream"
}
