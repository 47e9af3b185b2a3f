package attachments

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// CleanupResult reports what a duplicate sweep removed.
type CleanupResult struct {
	Removed    int
	FreedBytes int64
	Errors     []string
}

type storedFile struct {
	path    string
	size    int64
	modTime time.Time
}

// CleanDuplicates scans the whole attachment store, groups files by content
// hash, and for every group with more than one member deletes all but the
// oldest file. This is an explicit maintenance operation, invoked separately
// from ingestion. Cross-email duplicates are legitimate during normal
// operation; this sweep is how a user reclaims the space.
func (m *Manager) CleanDuplicates(root string) CleanupResult {
	var result CleanupResult

	groups := make(map[string][]storedFile)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to walk %s: %v", path, err))
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to stat %s: %v", path, err))
			return nil
		}

		hash, err := hashFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to hash %s: %v", path, err))
			return nil
		}

		groups[hash] = append(groups[hash], storedFile{
			path:    path,
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to scan %s: %v", root, err))
		return result
	}

	for _, files := range groups {
		if len(files) < 2 {
			continue
		}

		sort.Slice(files, func(i, j int) bool {
			return files[i].modTime.Before(files[j].modTime)
		})

		// Keep the oldest copy, delete the rest.
		for _, file := range files[1:] {
			if err := os.Remove(file.path); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to delete %s: %v", file.path, err))
				continue
			}
			result.Removed++
			result.FreedBytes += file.size
		}
	}

	return result
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
