package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// RasterEngine renders the pages of a page-document into encoded images.
// maxPages caps how many pages are attempted; individual page failures are
// skipped, and an error is returned only when the document itself cannot be
// read, opened, or yields no pages at all.
type RasterEngine interface {
	Render(ctx context.Context, path string, maxPages int) (*models.RasterResult, error)
}
