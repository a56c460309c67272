package interfaces

import (
	"context"

	"github.com/ternarybob/colligo/internal/models"
)

// ImportService stages and classifies operator-supplied zip archives into a
// new batch. Per-archive failures are recorded on the archive status and do
// not abort the batch.
type ImportService interface {
	ImportArchives(ctx context.Context, paths []string) (*models.Batch, error)
}
