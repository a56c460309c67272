package preview

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// ErrRenderInProgress is returned when a batch already has a render run
// in flight. The caller should poll Status instead of starting another.
var ErrRenderInProgress = errors.New("render already in progress for this batch")

// Service implements PreviewService interface. Rendering is serial by
// design: one document at a time, one run per batch at a time.
// Concurrent rasterization caused resource exhaustion and spurious
// zero-byte reads on constrained machines.
type Service struct {
	storage   interfaces.StorageManager
	selection interfaces.SelectionService
	engine    interfaces.RasterEngine
	events    interfaces.EventService
	config    *common.Config
	logger    arbor.ILogger

	mu      sync.Mutex
	running map[string]bool
	last    map[string]*models.RenderSummary
}

// NewService creates a new preview service
func NewService(
	storage interfaces.StorageManager,
	selection interfaces.SelectionService,
	engine interfaces.RasterEngine,
	events interfaces.EventService,
	config *common.Config,
	logger arbor.ILogger,
) interfaces.PreviewService {
	return &Service{
		storage:   storage,
		selection: selection,
		engine:    engine,
		events:    events,
		config:    config,
		logger:    logger,
		running:   make(map[string]bool),
		last:      make(map[string]*models.RenderSummary),
	}
}

type renderTask struct {
	archive *models.Archive
	docPath string
}

// RenderBatch walks the batch in order and rasterizes every pending
// page-document. Archives with a failure status or existing thumbnails
// are skipped, so re-running after partial completion never duplicates
// work. Per-document failures are counted and the walk continues; the
// summary is the only outcome. Cancellation stops before the next
// document; the in-flight document finishes or times out on its own.
func (s *Service) RenderBatch(ctx context.Context, batchID string) (*models.RenderSummary, error) {
	batch, err := s.storage.BatchStorage().GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	s.mu.Lock()
	if s.running[batchID] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRenderInProgress, batchID)
	}
	s.running[batchID] = true
	s.mu.Unlock()

	summary := &models.RenderSummary{BatchID: batchID, StartedAt: time.Now()}
	defer func() {
		summary.FinishedAt = time.Now()
		s.mu.Lock()
		delete(s.running, batchID)
		s.last[batchID] = summary
		s.mu.Unlock()
	}()

	var tasks []renderTask
	for i := range batch.Archives {
		archive := &batch.Archives[i]
		if archive.Failed() || len(archive.Thumbnails) > 0 {
			summary.Skipped += len(archive.PageDocs)
			continue
		}
		for _, docPath := range archive.PageDocs {
			tasks = append(tasks, renderTask{archive: archive, docPath: docPath})
		}
	}

	total := len(tasks)
	if total == 0 {
		s.publish(ctx, models.CompletedEvent(models.OperationRender, "no documents to render"))
		return summary, nil
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Int("documents", total).
		Msg("Starting batch render run")

	for i, task := range tasks {
		if ctx.Err() != nil {
			s.logger.Info().Str("batch_id", batchID).Msg("Render run cancelled, stopping before next document")
			break
		}
		// Settle delay between documents avoids back-to-back decoder
		// contention
		if i > 0 && !s.sleep(ctx, s.config.Raster.SettleDelay) {
			break
		}

		name := filepath.Base(task.docPath)
		summary.Documents++
		s.publish(ctx, models.NewProgressEvent(models.OperationRender, i, total, name, fmt.Sprintf("Rendering %s", name)))

		result, err := s.engine.Render(ctx, task.docPath, s.config.Raster.MaxPagesBatch)
		if err != nil {
			summary.Failed++
			s.logger.Warn().Err(err).
				Str("archive_id", task.archive.ID).
				Str("document", name).
				Msg("Document render failed")
			s.publish(ctx, models.NewProgressEvent(models.OperationRender, i+1, total, name, fmt.Sprintf("Failed to render %s", name)))
			if !s.sleep(ctx, s.config.Raster.RecoveryDelay) {
				break
			}
			continue
		}

		paths := s.persistPages(batchID, task.archive.ID, name, result)
		if len(paths) == 0 {
			summary.Failed++
			s.publish(ctx, models.NewProgressEvent(models.OperationRender, i+1, total, name, fmt.Sprintf("Failed to persist pages of %s", name)))
			continue
		}

		if err := s.selection.AppendThumbnails(ctx, batchID, task.archive.ID, paths); err != nil {
			summary.Failed++
			s.logger.Error().Err(err).
				Str("archive_id", task.archive.ID).
				Str("document", name).
				Msg("Failed to record rendered pages")
			continue
		}

		summary.Rendered++
		summary.Pages += len(paths)
		s.publish(ctx, models.NewProgressEvent(models.OperationRender, i+1, total, name, fmt.Sprintf("Rendered %d pages of %s", len(paths), name)))
	}

	message := fmt.Sprintf("succeeded: %d, failed: %d", summary.Rendered, summary.Failed)
	s.publish(ctx, models.CompletedEvent(models.OperationRender, message))

	s.logger.Info().
		Str("batch_id", batchID).
		Int("rendered", summary.Rendered).
		Int("failed", summary.Failed).
		Int("pages", summary.Pages).
		Msg("Batch render run finished")

	return summary, nil
}

// Status reports whether a render run is active and the last summary
func (s *Service) Status(batchID string) models.RenderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.RenderStatus{
		BatchID: batchID,
		Running: s.running[batchID],
		Last:    s.last[batchID],
	}
}

func (s *Service) publish(ctx context.Context, event models.ProgressEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventRenderProgress, Payload: event}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish progress event")
	}
}

// sleep waits for d unless the context is cancelled first
func (s *Service) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
