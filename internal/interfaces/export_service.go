package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// ExportService builds export descriptors from stored selection state and
// writes the two export artifacts: the tabular report and the bundle
// document.
type ExportService interface {
	// BuildBundleSelection compacts the stored selections of a batch into
	// the positional descriptor consumed by the bundle writer. Pure
	// transformation, no I/O beyond loading state.
	BuildBundleSelection(ctx context.Context, batchID string) (*models.BundleSelection, error)

	// BuildReportSelection returns the IDs of archives included in the
	// report, in batch order.
	BuildReportSelection(ctx context.Context, batchID string) ([]string, error)

	// WriteReport generates the XLSX report for the given archives.
	// An empty archiveIDs slice falls back to the stored selection state:
	// every archive whose include flag is set.
	WriteReport(ctx context.Context, batchID string, archiveIDs []string, outputPath string) (string, error)

	// WriteBundle generates the bundle PDF for the given selection,
	// optionally attaching the selected non-image files to it.
	WriteBundle(ctx context.Context, batchID string, selection *models.BundleSelection, embedFiles bool, outputPath string) (string, error)
}
