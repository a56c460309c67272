package importer

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ternarybob/colligo/internal/models"
)

// processNested descends one level into zips found inside the archive.
// Their files are classified into the same category directories as
// top-level entries; text documents become supplementary documents.
// Deeper nesting is not followed.
func (s *Service) processNested(scan *entryScan, archive *models.Archive) error {
	if s.config.Importer.MaxNestedDepth < 1 || len(scan.nested) == 0 {
		return nil
	}

	for i := range scan.nested {
		if err := s.extractNested(&scan.nested[i], archive); err != nil {
			return fmt.Errorf("%s: %w", scan.nested[i].name, err)
		}
	}
	return nil
}

func (s *Service) extractNested(outer *namedEntry, archive *models.Archive) error {
	data, err := readEntry(outer.file)
	if err != nil {
		return fmt.Errorf("failed to read nested archive: %w", err)
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to open nested archive: %w", err)
	}

	cfg := &s.config.Importer
	for _, f := range reader.File {
		name := decodeEntryName(f)
		lower := strings.ToLower(name)

		if strings.HasSuffix(lower, "/") || f.FileInfo().IsDir() || strings.HasSuffix(lower, ".ds_store") {
			continue
		}

		if strings.HasSuffix(lower, ".docx") {
			payload, err := readEntry(f)
			if err != nil {
				s.logger.Warn().Err(err).
					Str("archive_id", archive.ID).
					Str("document", name).
					Msg("Failed to read nested document, skipping")
				continue
			}
			archive.Documents = append(archive.Documents,
				s.supplementaryDoc(archive.ID, filepath.Base(name), payload, archive.ExtractedDir))
			continue
		}

		entry := namedEntry{file: f, name: name}
		ext := strings.ToLower(filepath.Ext(lower))
		switch {
		case hasExt(cfg.VideoExtensions, ext):
			if err := s.extractNestedInto(&entry, archive.ExtractedDir, "videos", &archive.Videos); err != nil {
				return err
			}
		case hasExt(cfg.ImageExtensions, ext):
			if err := s.extractNestedInto(&entry, archive.ExtractedDir, "images", &archive.Images); err != nil {
				return err
			}
		case hasExt(cfg.PageDocExtensions, ext):
			if err := s.extractNestedInto(&entry, archive.ExtractedDir, "pagedocs", &archive.PageDocs); err != nil {
				return err
			}
		case hasExt(cfg.SpreadsheetExtensions, ext):
			if err := s.extractNestedInto(&entry, archive.ExtractedDir, "spreadsheets", &archive.Spreadsheets); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) extractNestedInto(entry *namedEntry, extractedDir, category string, into *[]string) error {
	path, err := extractEntry(entry, filepath.Join(extractedDir, category))
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", entry.name, err)
	}
	*into = append(*into, path)
	return nil
}
