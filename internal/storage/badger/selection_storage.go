package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SelectionStorage implements the SelectionStorage interface for Badger.
// Selections are keyed by "<batchID>/<archiveID>" so one archive has
// exactly one selection record.
type SelectionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSelectionStorage creates a new SelectionStorage instance
func NewSelectionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SelectionStorage {
	return &SelectionStorage{
		db:     db,
		logger: logger,
	}
}

func selectionKey(batchID, archiveID string) string {
	return batchID + "/" + archiveID
}

func (s *SelectionStorage) SaveSelection(ctx context.Context, batchID string, selection *models.Selection) error {
	if batchID == "" {
		return fmt.Errorf("batch ID is required")
	}
	if selection.ArchiveID == "" {
		return fmt.Errorf("archive ID is required")
	}
	selection.BatchID = batchID

	if err := s.db.Store().Upsert(selectionKey(batchID, selection.ArchiveID), selection); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	return nil
}

func (s *SelectionStorage) GetSelection(ctx context.Context, batchID, archiveID string) (*models.Selection, error) {
	var selection models.Selection
	if err := s.db.Store().Get(selectionKey(batchID, archiveID), &selection); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("selection not found: %s", archiveID)
		}
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}
	return &selection, nil
}

func (s *SelectionStorage) ListSelections(ctx context.Context, batchID string) ([]*models.Selection, error) {
	var selections []models.Selection
	if err := s.db.Store().Find(&selections, badgerhold.Where("BatchID").Eq(batchID)); err != nil {
		return nil, fmt.Errorf("failed to list selections: %w", err)
	}

	result := make([]*models.Selection, len(selections))
	for i := range selections {
		result[i] = &selections[i]
	}
	return result, nil
}

func (s *SelectionStorage) DeleteSelection(ctx context.Context, batchID, archiveID string) error {
	if err := s.db.Store().Delete(selectionKey(batchID, archiveID), &models.Selection{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete selection: %w", err)
	}
	return nil
}

func (s *SelectionStorage) DeleteBatchSelections(ctx context.Context, batchID string) error {
	if err := s.db.Store().DeleteMatching(&models.Selection{}, badgerhold.Where("BatchID").Eq(batchID)); err != nil {
		return fmt.Errorf("failed to delete batch selections: %w", err)
	}
	return nil
}
