// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026 9:42:11 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// BatchStorage - interface for batch and archive persistence
type BatchStorage interface {
	// Batch operations
	SaveBatch(ctx context.Context, batch *models.Batch) error
	GetBatch(ctx context.Context, batchID string) (*models.Batch, error)
	ListBatches(ctx context.Context) ([]*models.Batch, error)
	DeleteBatch(ctx context.Context, batchID string) error
	CountBatches(ctx context.Context) (int, error)

	// Archive operations
	GetArchive(ctx context.Context, batchID, archiveID string) (*models.Archive, error)
	SetArchiveStatus(ctx context.Context, batchID, archiveID, status string) error
	AppendThumbnails(ctx context.Context, batchID, archiveID string, paths []string) error
	RemoveArchive(ctx context.Context, batchID, archiveID string) error
}

// SelectionStorage - interface for per-archive selection persistence
type SelectionStorage interface {
	SaveSelection(ctx context.Context, batchID string, selection *models.Selection) error
	GetSelection(ctx context.Context, batchID, archiveID string) (*models.Selection, error)
	ListSelections(ctx context.Context, batchID string) ([]*models.Selection, error)
	DeleteSelection(ctx context.Context, batchID, archiveID string) error
	DeleteBatchSelections(ctx context.Context, batchID string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	BatchStorage() BatchStorage
	SelectionStorage() SelectionStorage
	Close() error
}
