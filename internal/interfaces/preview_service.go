package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// PreviewService produces everything the operator inspects before export:
// rendered page images for a batch, single-asset image previews, and
// spreadsheet previews.
type PreviewService interface {
	// RenderBatch walks the batch serially and rasterizes every pending
	// page-document. Per-document failures are counted in the summary,
	// never returned as an error. A second call for a batch that already
	// has a run in flight returns ErrRenderInProgress.
	RenderBatch(ctx context.Context, batchID string) (*models.RenderSummary, error)

	// Status reports whether a render run is active and the last summary
	Status(batchID string) models.RenderStatus

	// ImageDataURL loads an image asset and returns it as a data URL
	ImageDataURL(ctx context.Context, batchID, archiveID string, category models.Category, index int) (string, error)

	// Spreadsheet returns the first-sheet preview of a spreadsheet asset
	Spreadsheet(ctx context.Context, batchID, archiveID string, index int) (*models.SpreadsheetPreview, error)
}
