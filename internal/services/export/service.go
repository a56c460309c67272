package export

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Service implements ExportService interface. The descriptor builders are
// pure transformations over stored state; the writers in report.go and
// bundle.go do the file I/O.
type Service struct {
	storage   interfaces.StorageManager
	selection interfaces.SelectionService
	events    interfaces.EventService
	config    *common.Config
	logger    arbor.ILogger
}

// Compile-time assertion
var _ interfaces.ExportService = (*Service)(nil)

// NewService creates a new export service
func NewService(
	storage interfaces.StorageManager,
	selection interfaces.SelectionService,
	events interfaces.EventService,
	config *common.Config,
	logger arbor.ILogger,
) interfaces.ExportService {
	return &Service{
		storage:   storage,
		selection: selection,
		events:    events,
		config:    config,
		logger:    logger,
	}
}

// BuildBundleSelection compacts the stored selections of a batch into the
// positional descriptor consumed by the bundle writer: per archive the
// scalar flags plus the ascending true-index list of every category.
// Archives whose selection record is missing contribute nothing.
func (s *Service) BuildBundleSelection(ctx context.Context, batchID string) (*models.BundleSelection, error) {
	batch, err := s.storage.BatchStorage().GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	out := &models.BundleSelection{}
	for i := range batch.Archives {
		archive := &batch.Archives[i]
		sel, err := s.selection.Get(ctx, batchID, archive.ID)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("batch_id", batchID).
				Str("archive_id", archive.ID).
				Msg("No selection state for archive, omitting from descriptor")
			continue
		}
		out.Archives = append(out.Archives, CompactSelection(sel))
	}
	return out, nil
}

// BuildReportSelection returns the IDs of archives with Include set, in
// batch order.
func (s *Service) BuildReportSelection(ctx context.Context, batchID string) ([]string, error) {
	batch, err := s.storage.BatchStorage().GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	var ids []string
	for i := range batch.Archives {
		archive := &batch.Archives[i]
		sel, err := s.selection.Get(ctx, batchID, archive.ID)
		if err != nil {
			continue
		}
		if sel.Include {
			ids = append(ids, archive.ID)
		}
	}
	return ids, nil
}

// CompactSelection reduces one selection to its positional descriptor.
// Documents with neither text nor any image selected are omitted entirely.
func CompactSelection(sel *models.Selection) models.ArchiveSelection {
	out := models.ArchiveSelection{
		ArchiveID:          sel.ArchiveID,
		Include:            sel.Include,
		IncludeOriginalZip: sel.IncludeOriginalZip,
		VideoIndices:       trueIndices(sel.Videos),
		ImageIndices:       trueIndices(sel.Images),
		PageDocIndices:     trueIndices(sel.PageDocs),
		SpreadsheetIndices: trueIndices(sel.Spreadsheets),
		ThumbnailIndices:   trueIndices(sel.Thumbnails),
	}
	for docIndex := range sel.Documents {
		doc := &sel.Documents[docIndex]
		imageIndices := trueIndices(doc.Images)
		if !doc.IncludeText && len(imageIndices) == 0 {
			continue
		}
		out.Documents = append(out.Documents, models.DocumentSelection{
			DocIndex:     docIndex,
			IncludeText:  doc.IncludeText,
			ImageIndices: imageIndices,
		})
	}
	return out
}

// ApplySelection is the inverse of BuildBundleSelection: it narrows a batch
// to the assets the descriptor selects, preserving descriptor order.
// Archives with Include unset or absent from the batch are dropped.
// Out-of-range indices are skipped silently so a descriptor built against
// an older snapshot of the batch still applies cleanly.
func ApplySelection(batch *models.Batch, selection *models.BundleSelection) []models.Archive {
	if batch == nil || selection == nil {
		return nil
	}
	var out []models.Archive
	for i := range selection.Archives {
		archSel := &selection.Archives[i]
		if !archSel.Include {
			continue
		}
		archive := batch.FindArchive(archSel.ArchiveID)
		if archive == nil {
			continue
		}
		out = append(out, projectArchive(archive, archSel))
	}
	return out
}

// projectArchive copies an archive with every asset slice narrowed to the
// descriptor's indices.
func projectArchive(archive *models.Archive, sel *models.ArchiveSelection) models.Archive {
	out := *archive
	out.Videos = pickIndices(archive.Videos, sel.VideoIndices)
	out.Images = pickIndices(archive.Images, sel.ImageIndices)
	out.PageDocs = pickIndices(archive.PageDocs, sel.PageDocIndices)
	out.Spreadsheets = pickIndices(archive.Spreadsheets, sel.SpreadsheetIndices)
	out.Thumbnails = pickIndices(archive.Thumbnails, sel.ThumbnailIndices)

	out.Documents = nil
	for _, docSel := range sel.Documents {
		if docSel.DocIndex < 0 || docSel.DocIndex >= len(archive.Documents) {
			continue
		}
		doc := archive.Documents[docSel.DocIndex]
		doc.Images = pickIndices(doc.Images, docSel.ImageIndices)
		if !docSel.IncludeText {
			doc.FullText = ""
		}
		out.Documents = append(out.Documents, doc)
	}
	return out
}

func trueIndices(flags []bool) []int {
	var out []int
	for i, set := range flags {
		if set {
			out = append(out, i)
		}
	}
	return out
}

func pickIndices(paths []string, indices []int) []string {
	var out []string
	for _, idx := range indices {
		if idx < 0 || idx >= len(paths) {
			continue
		}
		out = append(out, paths[idx])
	}
	return out
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, event models.ProgressEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: event}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish progress event")
	}
}
