package importer

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/ternarybob/colligo/internal/common"
)

// namedEntry pairs a zip entry with its decoded display name
type namedEntry struct {
	file *zip.File
	name string
}

// entryScan is the classified view of one archive's entries. The primary
// document carries the directive fields; every other text document becomes
// a supplementary document.
type entryScan struct {
	primary      *namedEntry
	docs         []namedEntry
	videos       []namedEntry
	images       []namedEntry
	pageDocs     []namedEntry
	spreadsheets []namedEntry
	nested       []namedEntry
	hasSample    bool
}

// scanEntries classifies the archive's entries by extension. Anything
// beyond the text documents counts as sample material. Directories and
// Finder droppings are ignored.
func scanEntries(zipName string, files []*zip.File, cfg *common.ImporterConfig) *entryScan {
	scan := &entryScan{}

	var docEntries []namedEntry
	for _, f := range files {
		name := decodeEntryName(f)
		lower := strings.ToLower(name)

		if strings.HasSuffix(lower, "/") || f.FileInfo().IsDir() || strings.HasSuffix(lower, ".ds_store") {
			continue
		}

		if strings.HasSuffix(lower, ".docx") {
			docEntries = append(docEntries, namedEntry{file: f, name: name})
			continue
		}

		scan.hasSample = true

		ext := strings.ToLower(filepath.Ext(lower))
		switch {
		case hasExt(cfg.VideoExtensions, ext):
			scan.videos = append(scan.videos, namedEntry{file: f, name: name})
		case hasExt(cfg.ImageExtensions, ext):
			scan.images = append(scan.images, namedEntry{file: f, name: name})
		case hasExt(cfg.PageDocExtensions, ext):
			scan.pageDocs = append(scan.pageDocs, namedEntry{file: f, name: name})
		case hasExt(cfg.SpreadsheetExtensions, ext):
			scan.spreadsheets = append(scan.spreadsheets, namedEntry{file: f, name: name})
		case ext == ".zip":
			scan.nested = append(scan.nested, namedEntry{file: f, name: name})
		}
	}

	if len(docEntries) == 0 {
		return scan
	}

	primaryName := identifyPrimaryDoc(zipName, entryNames(docEntries))
	for i := range docEntries {
		if docEntries[i].name == primaryName && scan.primary == nil {
			scan.primary = &docEntries[i]
		} else {
			scan.docs = append(scan.docs, docEntries[i])
		}
	}
	return scan
}

func entryNames(entries []namedEntry) []string {
	out := make([]string, len(entries))
	for i := range entries {
		out[i] = entries[i].name
	}
	return out
}

func hasExt(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// identifyPrimaryDoc picks the text document that carries the directive
// fields: exact stem match with the zip name first, then partial match in
// either direction, then the first document.
func identifyPrimaryDoc(zipName string, docNames []string) string {
	if len(docNames) == 0 {
		return ""
	}

	zipStem := strings.ToLower(stem(zipName))
	for _, name := range docNames {
		if strings.ToLower(stem(name)) == zipStem {
			return name
		}
	}
	for _, name := range docNames {
		docStem := strings.ToLower(stem(name))
		if docStem == "" {
			continue
		}
		if strings.Contains(zipStem, docStem) || strings.Contains(docStem, zipStem) {
			return name
		}
	}
	return docNames[0]
}

func stem(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// decodeEntryName recovers the display name of a zip entry. Archives built
// on Chinese-locale Windows carry GBK names without the UTF-8 flag, so
// names that do not hold as UTF-8 get a GBK decode pass before falling
// back to lossy replacement.
func decodeEntryName(f *zip.File) string {
	raw := f.Name
	if utf8.ValidString(raw) && !strings.ContainsRune(raw, utf8.RuneError) {
		if !f.NonUTF8 || !looksLikeGBK(raw) {
			return raw
		}
	}
	if decoded, err := simplifiedchinese.GBK.NewDecoder().String(raw); err == nil && utf8.ValidString(decoded) {
		return decoded
	}
	return strings.ToValidUTF8(raw, string(utf8.RuneError))
}

// looksLikeGBK reports whether a byte string that happens to be valid
// UTF-8 is more plausibly GBK: every byte in the multi-byte area with no
// characters above Latin-1 is the giveaway pattern.
func looksLikeGBK(s string) bool {
	hasHigh := false
	for _, r := range s {
		if r > 0xFF {
			return false
		}
		if r >= 0x80 {
			hasHigh = true
		}
	}
	return hasHigh
}

// extractEntry writes one zip entry under dir, resolving name collisions
// with a numbered suffix. Returns the path written.
func extractEntry(entry *namedEntry, dir string) (string, error) {
	return writeUnique(dir, filepath.Base(strings.ReplaceAll(entry.name, "\\", "/")), func(w io.Writer) error {
		rc, err := entry.file.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		_, err = io.Copy(w, rc)
		return err
	})
}

// writeUnique creates dir/name, appending _2, _3… to the stem while the
// name is taken, and streams the content through write.
func writeUnique(dir, name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base = "file"
	}

	for n := 1; ; n++ {
		candidate := base + ext
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		path := filepath.Join(dir, candidate)

		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := write(out); err != nil {
			out.Close()
			os.Remove(path)
			return "", err
		}
		if err := out.Close(); err != nil {
			return "", err
		}
		return path, nil
	}
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
