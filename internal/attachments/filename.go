package attachments

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// maxRenameAttempts bounds the numeric-suffix probe before giving up and
// using a synthetic name.
const maxRenameAttempts = 100

const (
	maxFilenameLength  = 200
	maxExtensionLength = 10
)

// SanitizeFilename turns a suggested filename into one safe to write, stripping
// path separators and characters illegal on common filesystems and capping the
// length while preserving the extension. An empty hint becomes a positional
// fallback name.
func SanitizeFilename(filename string, index int) string {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "." || filename == string(filepath.Separator) {
		filename = ""
	}

	var b strings.Builder
	for _, r := range filename {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	filename = b.String()

	if filename == "" {
		return fmt.Sprintf("attachment_%d", index+1)
	}

	if len([]rune(filename)) > maxFilenameLength {
		ext := filepath.Ext(filename)
		// Filenames come from remote MIME headers; an absurdly long
		// "extension" is not worth preserving.
		if len([]rune(ext)) > maxExtensionLength {
			ext = ""
		}
		stem := []rune(strings.TrimSuffix(filename, ext))
		keep := maxFilenameLength - len([]rune(ext))
		if keep > len(stem) {
			keep = len(stem)
		}
		filename = string(stem[:keep]) + ext
	}

	return filename
}

// placeName picks the final on-disk name for a sanitized filename within an
// email's directory. A name occupied by a non-empty file means the payload is
// a duplicate of an earlier run and should be skipped. A name occupied by an
// empty file (a truncated earlier write) is stepped around with numeric
// suffixes, bounded by maxRenameAttempts, past which a synthetic name is used.
func placeName(dir, name string) (final string, duplicate bool) {
	info, err := os.Stat(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return name, false
	}
	if err == nil && info.Size() > 0 {
		return name, true
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 1; i <= maxRenameAttempts; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(filepath.Join(dir, candidate)); errors.Is(err, os.ErrNotExist) {
			return candidate, false
		}
	}

	return "attachment_" + uuid.NewString() + ext, false
}
