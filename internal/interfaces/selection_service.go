package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// SelectionScalar names the archive-level boolean fields of a selection
type SelectionScalar string

const (
	ScalarInclude            SelectionScalar = "include"
	ScalarIncludeOriginalZip SelectionScalar = "include_original_zip"
)

// SelectionService owns the per-archive curation state. Every operation
// preserves the invariant that each flag slice has exactly the length of the
// matching asset slice of its archive.
type SelectionService interface {
	// Initialize creates the default selection for a freshly imported archive
	Initialize(ctx context.Context, batchID string, archive *models.Archive) (*models.Selection, error)

	// Get returns the selection for an archive
	Get(ctx context.Context, batchID, archiveID string) (*models.Selection, error)

	// SetFlag sets one asset flag. Indexes beyond the current flag count
	// are rejected with ErrIndexOutOfRange.
	SetFlag(ctx context.Context, batchID, archiveID string, category models.Category, index int, value bool) error

	// SetScalar sets an archive-level boolean (include / include_original_zip)
	SetScalar(ctx context.Context, batchID, archiveID string, scalar SelectionScalar, value bool) error

	// SetDocumentFlag sets a supplementary-document flag. A negative
	// imageIndex targets the document's include_text flag.
	SetDocumentFlag(ctx context.Context, batchID, archiveID string, docIndex, imageIndex int, value bool) error

	// BulkSet sets every flag of a category to the same value
	BulkSet(ctx context.Context, batchID, archiveID string, category models.Category, value bool) error

	// Invert flips every flag of a category
	Invert(ctx context.Context, batchID, archiveID string, category models.Category) error

	// AppendThumbnails appends rendered page images to the archive and the
	// paired selection flags (set to true) in one operation. Only the
	// render pipeline calls this.
	AppendThumbnails(ctx context.Context, batchID, archiveID string, paths []string) error

	// RemoveArchive removes the archive and its selection atomically:
	// afterwards a lookup fails for both or succeeds for both, never one.
	RemoveArchive(ctx context.Context, batchID, archiveID string) error
}
