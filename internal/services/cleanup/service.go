package cleanup

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
)

// Service implements CleanupService: a cron-driven retention sweep over
// stored batches plus the explicit purge behind the delete endpoint.
type Service struct {
	storage interfaces.StorageManager
	events  interfaces.EventService
	config  *common.Config
	logger  arbor.ILogger

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// Compile-time assertion
var _ interfaces.CleanupService = (*Service)(nil)

// NewService creates a new cleanup service
func NewService(
	storage interfaces.StorageManager,
	events interfaces.EventService,
	config *common.Config,
	logger arbor.ILogger,
) interfaces.CleanupService {
	return &Service{
		storage: storage,
		events:  events,
		config:  config,
		logger:  logger,
		cron:    cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled cleanup loop. No-op when disabled.
func (s *Service) Start() error {
	if !s.config.Cleanup.Enabled {
		s.logger.Debug().Msg("Cleanup scheduler disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("cleanup scheduler already running")
	}

	schedule := s.config.Cleanup.Schedule
	if err := common.ValidateCleanupSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cleanup schedule: %w", err)
	}

	if _, err := s.cron.AddFunc(schedule, s.runScheduled); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Str("max_age", s.config.Cleanup.MaxAge).
		Msg("Cleanup scheduler started")
	return nil
}

// Stop halts the scheduler and waits for an in-flight run to finish
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Cleanup scheduler stopped")
}

func (s *Service) runScheduled() {
	// Cron runs jobs on its own goroutine; a panic here would take the
	// whole process down
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", common.GetStackTrace()).
				Msg("Scheduled cleanup panicked")
		}
	}()

	removed, err := s.RunOnce(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled cleanup failed")
		return
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Scheduled cleanup removed expired batches")
	}
}

// RunOnce purges every batch older than the retention window and returns
// how many were removed. A batch that fails to purge is logged and left
// for the next run.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.config.Cleanup.MaxAgeDuration())

	batches, err := s.storage.BatchStorage().ListBatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list batches: %w", err)
	}

	removed := 0
	for _, batch := range batches {
		if batch.CreatedAt.After(cutoff) {
			continue
		}
		if err := s.PurgeBatch(ctx, batch.ID); err != nil {
			s.logger.Warn().Err(err).Str("batch_id", batch.ID).Msg("Failed to purge expired batch")
			continue
		}
		removed++
	}
	return removed, nil
}

// PurgeBatch removes one batch regardless of age: selection records first,
// then the batch record, then the staged files. Storage comes first so a
// failed file removal can never leave records pointing at nothing.
func (s *Service) PurgeBatch(ctx context.Context, batchID string) error {
	if _, err := s.storage.BatchStorage().GetBatch(ctx, batchID); err != nil {
		return err
	}

	if err := s.storage.SelectionStorage().DeleteBatchSelections(ctx, batchID); err != nil {
		return fmt.Errorf("failed to delete selections: %w", err)
	}
	if err := s.storage.BatchStorage().DeleteBatch(ctx, batchID); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}

	dir := common.BatchDir(s.config.Storage.Filesystem.Staging, batchID)
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to remove staged files")
	}

	if s.events != nil {
		err := s.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventBatchDeleted,
			Payload: map[string]string{"batch_id": batchID},
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish batch deleted event")
		}
	}

	s.logger.Info().Str("batch_id", batchID).Msg("Batch purged")
	return nil
}
