package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// BatchStorage implements the BatchStorage interface for Badger.
// A batch is stored as a single record keyed by its ID; archives live
// inside the batch document and are updated by read-modify-write.
type BatchStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewBatchStorage creates a new BatchStorage instance
func NewBatchStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BatchStorage {
	return &BatchStorage{
		db:     db,
		logger: logger,
	}
}

func (s *BatchStorage) SaveBatch(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		return fmt.Errorf("batch ID is required")
	}

	now := time.Now()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	if err := s.db.Store().Upsert(batch.ID, batch); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

func (s *BatchStorage) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	var batch models.Batch
	if err := s.db.Store().Get(batchID, &batch); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("batch not found: %s", batchID)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &batch, nil
}

func (s *BatchStorage) ListBatches(ctx context.Context) ([]*models.Batch, error) {
	var batches []models.Batch
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&batches, query); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	result := make([]*models.Batch, len(batches))
	for i := range batches {
		result[i] = &batches[i]
	}
	return result, nil
}

func (s *BatchStorage) DeleteBatch(ctx context.Context, batchID string) error {
	if err := s.db.Store().Delete(batchID, &models.Batch{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

func (s *BatchStorage) CountBatches(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Batch{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return int(count), nil
}

func (s *BatchStorage) GetArchive(ctx context.Context, batchID, archiveID string) (*models.Archive, error) {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	archive := batch.FindArchive(archiveID)
	if archive == nil {
		return nil, fmt.Errorf("archive not found: %s", archiveID)
	}
	return archive, nil
}

func (s *BatchStorage) SetArchiveStatus(ctx context.Context, batchID, archiveID, status string) error {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	archive := batch.FindArchive(archiveID)
	if archive == nil {
		return fmt.Errorf("archive not found: %s", archiveID)
	}
	archive.Status = status
	return s.SaveBatch(ctx, batch)
}

func (s *BatchStorage) AppendThumbnails(ctx context.Context, batchID, archiveID string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	archive := batch.FindArchive(archiveID)
	if archive == nil {
		return fmt.Errorf("archive not found: %s", archiveID)
	}
	archive.Thumbnails = append(archive.Thumbnails, paths...)
	return s.SaveBatch(ctx, batch)
}

func (s *BatchStorage) RemoveArchive(ctx context.Context, batchID, archiveID string) error {
	batch, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}

	kept := batch.Archives[:0]
	for i := range batch.Archives {
		if batch.Archives[i].ID != archiveID {
			kept = append(kept, batch.Archives[i])
		}
	}
	if len(kept) == len(batch.Archives) {
		return fmt.Errorf("archive not found: %s", archiveID)
	}
	batch.Archives = kept
	return s.SaveBatch(ctx, batch)
}
