package common

import (
	"path/filepath"
	"strings"
	"unicode"
)

// BatchDir returns the staging directory for one batch
func BatchDir(staging, batchID string) string {
	return filepath.Join(staging, "batches", batchID)
}

// ArchiveDir returns the staging directory for one archive
func ArchiveDir(staging, batchID, archiveID string) string {
	return filepath.Join(BatchDir(staging, batchID), "archives", archiveID)
}

// SanitizeStem strips the extension from a file name and reduces the
// remainder to a filesystem-safe directory component. Letters (including
// CJK), digits, dashes and underscores pass through; everything else
// becomes an underscore.
func SanitizeStem(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if stem == "" {
		return "unnamed"
	}

	var b strings.Builder
	for _, r := range stem {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
