package importer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Service implements ImportService. One import call produces one batch;
// archives that fail to process carry a failure status and never abort
// the batch.
type Service struct {
	storage   interfaces.StorageManager
	selection interfaces.SelectionService
	events    interfaces.EventService
	config    *common.Config
	logger    arbor.ILogger
}

// Compile-time assertion
var _ interfaces.ImportService = (*Service)(nil)

// NewService creates a new import service
func NewService(
	storage interfaces.StorageManager,
	selection interfaces.SelectionService,
	events interfaces.EventService,
	config *common.Config,
	logger arbor.ILogger,
) interfaces.ImportService {
	return &Service{
		storage:   storage,
		selection: selection,
		events:    events,
		config:    config,
		logger:    logger,
	}
}

// ImportArchives stages, scans and classifies the given zip files into a
// new batch, then persists the batch together with one default selection
// per archive.
func (s *Service) ImportArchives(ctx context.Context, paths []string) (*models.Batch, error) {
	if len(paths) == 0 {
		return nil, ErrNoInput
	}

	total := len(paths)
	s.publish(ctx, models.NewProgressEvent(models.OperationImport, 0, total, "开始导入", "Preparing archive import"))

	now := time.Now().UTC()
	batch := &models.Batch{
		ID:        common.NewBatchID(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	batchDir := common.BatchDir(s.config.Storage.Filesystem.Staging, batch.ID)
	if err := os.MkdirAll(batchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			s.logger.Warn().Str("batch_id", batch.ID).Msg("Import cancelled, removing partial batch")
			os.RemoveAll(batchDir)
			return nil, err
		}

		s.publish(ctx, models.NewProgressEvent(models.OperationImport, i+1, total, "处理压缩包",
			fmt.Sprintf("Importing %s", filepath.Base(path))))

		batch.Archives = append(batch.Archives, s.importOne(batch.ID, path))
	}

	if err := s.storage.BatchStorage().SaveBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to persist batch: %w", err)
	}
	for i := range batch.Archives {
		if _, err := s.selection.Initialize(ctx, batch.ID, &batch.Archives[i]); err != nil {
			return nil, fmt.Errorf("failed to initialize selection for %s: %w", batch.Archives[i].ID, err)
		}
	}

	failed := batch.Summarize().FailedCount
	s.publish(ctx, models.CompletedEvent(models.OperationImport,
		fmt.Sprintf("imported %d archives, %d failed", len(batch.Archives), failed)))

	s.logger.Info().
		Str("batch_id", batch.ID).
		Int("archives", len(batch.Archives)).
		Int("failed", failed).
		Msg("Import finished")

	return batch, nil
}

// importOne stages and processes a single zip. All failures are folded
// into the returned archive's status; supplementary-document and nested
// archive problems only downgrade to warnings.
func (s *Service) importOne(batchID, sourcePath string) models.Archive {
	filename := filepath.Base(sourcePath)
	if filename == "." || filename == string(filepath.Separator) {
		filename = "unknown.zip"
	}

	archive := models.Archive{
		ID:         common.NewArchiveID(),
		Filename:   filename,
		SourcePath: sourcePath,
		Status:     models.ArchiveStatusPending,
	}

	archiveDir := common.ArchiveDir(s.config.Storage.Filesystem.Staging, batchID, archive.ID)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return s.failArchive(archive, fmt.Errorf("failed to create archive directory: %w", err))
	}

	storedPath := filepath.Join(archiveDir, filename)
	if err := copyFile(sourcePath, storedPath); err != nil {
		return s.failArchive(archive, fmt.Errorf("failed to stage archive: %w", err))
	}
	archive.StoredPath = storedPath

	reader, err := zip.OpenReader(storedPath)
	if err != nil {
		return s.failArchive(archive, fmt.Errorf("failed to open archive: %w", err))
	}
	defer reader.Close()

	scan := scanEntries(filename, reader.File, &s.config.Importer)
	archive.HasSample = scan.hasSample
	if scan.primary == nil {
		return s.failArchive(archive, ErrNoPrimaryDocument)
	}

	primaryData, err := readEntry(scan.primary.file)
	if err != nil {
		return s.failArchive(archive, fmt.Errorf("failed to read primary document: %w", err))
	}
	text, err := docText(primaryData)
	if err != nil {
		return s.failArchive(archive, fmt.Errorf("failed to parse primary document: %w", err))
	}
	archive.Fields = parseFields(text)

	archive.ExtractedDir = filepath.Join(archiveDir, "extracted")
	if err := s.extractAssets(scan, &archive); err != nil {
		return s.failArchive(archive, fmt.Errorf("failed to extract assets: %w", err))
	}

	for i := range scan.docs {
		data, err := readEntry(scan.docs[i].file)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("archive_id", archive.ID).
				Str("document", scan.docs[i].name).
				Msg("Failed to read supplementary document, skipping")
			continue
		}
		archive.Documents = append(archive.Documents,
			s.supplementaryDoc(archive.ID, scan.docs[i].name, data, archive.ExtractedDir))
	}

	if err := s.processNested(scan, &archive); err != nil {
		s.logger.Warn().Err(err).
			Str("archive_id", archive.ID).
			Msg("Failed to process nested archives")
	}

	s.countPages(&archive)

	archive.Status = models.ArchiveStatusCompleted
	return archive
}

// failArchive records the failure reason on the archive status
func (s *Service) failArchive(archive models.Archive, err error) models.Archive {
	archive.Status = models.ArchiveStatusFailedPrefix + err.Error()
	s.logger.Warn().Err(err).
		Str("archive_id", archive.ID).
		Str("filename", archive.Filename).
		Msg("Archive import failed")
	return archive
}

// extractAssets writes the classified preview assets under the archive's
// extracted directory and records their paths in entry order.
func (s *Service) extractAssets(scan *entryScan, archive *models.Archive) error {
	categories := []struct {
		entries []namedEntry
		dir     string
		into    *[]string
	}{
		{scan.videos, "videos", &archive.Videos},
		{scan.images, "images", &archive.Images},
		{scan.pageDocs, "pagedocs", &archive.PageDocs},
		{scan.spreadsheets, "spreadsheets", &archive.Spreadsheets},
	}

	for _, cat := range categories {
		if len(cat.entries) == 0 {
			continue
		}
		dir := filepath.Join(archive.ExtractedDir, cat.dir)
		for i := range cat.entries {
			path, err := extractEntry(&cat.entries[i], dir)
			if err != nil {
				return fmt.Errorf("%s: %w", cat.entries[i].name, err)
			}
			*cat.into = append(*cat.into, path)
		}
	}
	return nil
}

// supplementaryDoc parses one extra text document. Parsing problems leave
// the affected part empty instead of failing the archive.
func (s *Service) supplementaryDoc(archiveID, name string, data []byte, extractedDir string) models.TextDocument {
	doc := models.TextDocument{
		ID:   common.NewDocumentID(),
		Name: name,
	}

	path, err := writeUnique(filepath.Join(extractedDir, "docs"), filepath.Base(name), func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("archive_id", archiveID).
			Str("document", name).
			Msg("Failed to store supplementary document")
	} else {
		doc.Path = path
	}

	if text, err := docText(data); err == nil {
		doc.FullText = text
		doc.Fields = parseFields(text)
	} else {
		s.logger.Warn().Err(err).
			Str("archive_id", archiveID).
			Str("document", name).
			Msg("Failed to extract supplementary document text")
	}

	images, err := docMedia(data, filepath.Join(extractedDir, "docimages", doc.ID))
	if err != nil {
		s.logger.Warn().Err(err).
			Str("archive_id", archiveID).
			Str("document", name).
			Msg("Failed to extract supplementary document images")
	}
	doc.Images = images

	return doc
}

// countPages records the page count of every page-document, keeping the
// counts slice aligned with the paths slice. Unreadable documents count
// as zero pages; the render pipeline reports them properly later.
func (s *Service) countPages(archive *models.Archive) {
	for _, path := range archive.PageDocs {
		count, err := api.PageCountFile(path)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("archive_id", archive.ID).
				Str("path", path).
				Msg("Failed to count document pages")
			count = 0
		}
		archive.PageDocPages = append(archive.PageDocPages, count)
	}
}

func (s *Service) publish(ctx context.Context, event models.ProgressEvent) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventImportProgress, Payload: event})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish progress event")
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
