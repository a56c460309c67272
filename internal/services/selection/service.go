package selection

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Service implements SelectionService interface. Every mutation runs
// under a per-archive lock so operator flag updates, render-pipeline
// appends, and archive removal never interleave for the same archive.
type Service struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new selection service
func NewService(storage interfaces.StorageManager, logger arbor.ILogger) interfaces.SelectionService {
	return &Service{
		storage: storage,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

func archiveKey(batchID, archiveID string) string {
	return batchID + "/" + archiveID
}

func (s *Service) lockFor(batchID, archiveID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := archiveKey(batchID, archiveID)
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func (s *Service) dropLock(batchID, archiveID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, archiveKey(batchID, archiveID))
}

// withSelection runs one read-modify-write cycle under the archive lock
func (s *Service) withSelection(ctx context.Context, batchID, archiveID string, fn func(sel *models.Selection) error) error {
	lock := s.lockFor(batchID, archiveID)
	lock.Lock()
	defer lock.Unlock()

	sel, err := s.storage.SelectionStorage().GetSelection(ctx, batchID, archiveID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, archiveID)
	}

	if err := fn(sel); err != nil {
		return err
	}

	return s.storage.SelectionStorage().SaveSelection(ctx, batchID, sel)
}

// Initialize creates the default selection for a freshly imported archive
func (s *Service) Initialize(ctx context.Context, batchID string, archive *models.Archive) (*models.Selection, error) {
	lock := s.lockFor(batchID, archive.ID)
	lock.Lock()
	defer lock.Unlock()

	sel := models.NewSelectionForArchive(archive)
	if err := s.storage.SelectionStorage().SaveSelection(ctx, batchID, sel); err != nil {
		return nil, fmt.Errorf("failed to initialize selection: %w", err)
	}

	s.logger.Debug().
		Str("batch_id", batchID).
		Str("archive_id", archive.ID).
		Int("assets", archive.AssetCount()).
		Msg("Selection initialized")

	return sel, nil
}

// Get returns the selection for an archive
func (s *Service) Get(ctx context.Context, batchID, archiveID string) (*models.Selection, error) {
	sel, err := s.storage.SelectionStorage().GetSelection(ctx, batchID, archiveID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, archiveID)
	}
	return sel, nil
}

// SetFlag sets one asset flag by category and index
func (s *Service) SetFlag(ctx context.Context, batchID, archiveID string, category models.Category, index int, value bool) error {
	return s.withSelection(ctx, batchID, archiveID, func(sel *models.Selection) error {
		flags, ok := sel.FlagsRef(category)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
		}
		if index < 0 || index >= len(*flags) {
			return fmt.Errorf("%w: %s[%d] of %d", ErrIndexOutOfRange, category, index, len(*flags))
		}
		(*flags)[index] = value
		return nil
	})
}

// SetScalar sets an archive-level boolean flag
func (s *Service) SetScalar(ctx context.Context, batchID, archiveID string, scalar interfaces.SelectionScalar, value bool) error {
	return s.withSelection(ctx, batchID, archiveID, func(sel *models.Selection) error {
		switch scalar {
		case interfaces.ScalarInclude:
			sel.Include = value
		case interfaces.ScalarIncludeOriginalZip:
			sel.IncludeOriginalZip = value
		default:
			return fmt.Errorf("unknown scalar field: %s", scalar)
		}
		return nil
	})
}

// SetDocumentFlag sets a supplementary-document flag. A negative
// imageIndex targets the document's include_text flag.
func (s *Service) SetDocumentFlag(ctx context.Context, batchID, archiveID string, docIndex, imageIndex int, value bool) error {
	return s.withSelection(ctx, batchID, archiveID, func(sel *models.Selection) error {
		if docIndex < 0 || docIndex >= len(sel.Documents) {
			return fmt.Errorf("%w: document %d of %d", ErrIndexOutOfRange, docIndex, len(sel.Documents))
		}
		if imageIndex < 0 {
			sel.Documents[docIndex].IncludeText = value
			return nil
		}
		if imageIndex >= len(sel.Documents[docIndex].Images) {
			return fmt.Errorf("%w: document %d image %d of %d", ErrIndexOutOfRange, docIndex, imageIndex, len(sel.Documents[docIndex].Images))
		}
		sel.Documents[docIndex].Images[imageIndex] = value
		return nil
	})
}

// BulkSet sets every flag of a category to the same value
func (s *Service) BulkSet(ctx context.Context, batchID, archiveID string, category models.Category, value bool) error {
	return s.withSelection(ctx, batchID, archiveID, func(sel *models.Selection) error {
		flags, ok := sel.FlagsRef(category)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
		}
		for i := range *flags {
			(*flags)[i] = value
		}
		return nil
	})
}

// Invert flips every flag of a category
func (s *Service) Invert(ctx context.Context, batchID, archiveID string, category models.Category) error {
	return s.withSelection(ctx, batchID, archiveID, func(sel *models.Selection) error {
		flags, ok := sel.FlagsRef(category)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
		}
		for i := range *flags {
			(*flags)[i] = !(*flags)[i]
		}
		return nil
	})
}

// AppendThumbnails appends rendered page images to the archive's asset
// list and the paired true flags to the selection, under one lock, so
// the flag slice never diverges in length from the asset slice.
func (s *Service) AppendThumbnails(ctx context.Context, batchID, archiveID string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	lock := s.lockFor(batchID, archiveID)
	lock.Lock()
	defer lock.Unlock()

	sel, err := s.storage.SelectionStorage().GetSelection(ctx, batchID, archiveID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, archiveID)
	}

	if err := s.storage.BatchStorage().AppendThumbnails(ctx, batchID, archiveID, paths); err != nil {
		return fmt.Errorf("failed to append thumbnails: %w", err)
	}

	for range paths {
		sel.Thumbnails = append(sel.Thumbnails, true)
	}
	if err := s.storage.SelectionStorage().SaveSelection(ctx, batchID, sel); err != nil {
		return fmt.Errorf("failed to append thumbnail flags: %w", err)
	}

	return nil
}

// RemoveArchive removes the archive and its selection under the archive
// lock: a subsequent lookup fails for both or neither.
func (s *Service) RemoveArchive(ctx context.Context, batchID, archiveID string) error {
	lock := s.lockFor(batchID, archiveID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.storage.BatchStorage().RemoveArchive(ctx, batchID, archiveID); err != nil {
		return fmt.Errorf("failed to remove archive: %w", err)
	}
	if err := s.storage.SelectionStorage().DeleteSelection(ctx, batchID, archiveID); err != nil {
		return fmt.Errorf("failed to remove selection: %w", err)
	}

	s.dropLock(batchID, archiveID)

	s.logger.Info().
		Str("batch_id", batchID).
		Str("archive_id", archiveID).
		Msg("Archive removed")

	return nil
}
