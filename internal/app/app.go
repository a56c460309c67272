// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026 3:02:57 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/handlers"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/services/cleanup"
	"github.com/ternarybob/colligo/internal/services/events"
	"github.com/ternarybob/colligo/internal/services/export"
	"github.com/ternarybob/colligo/internal/services/importer"
	"github.com/ternarybob/colligo/internal/services/opener"
	"github.com/ternarybob/colligo/internal/services/preview"
	"github.com/ternarybob/colligo/internal/services/raster"
	"github.com/ternarybob/colligo/internal/services/selection"
	"github.com/ternarybob/colligo/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService interfaces.EventService

	// Curation pipeline services
	SelectionService interfaces.SelectionService
	ImportService    interfaces.ImportService
	PreviewService   interfaces.PreviewService
	ExportService    interfaces.ExportService
	CleanupService   interfaces.CleanupService
	OpenerService    interfaces.OpenerService

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	BatchHandler     *handlers.BatchHandler
	SelectionHandler *handlers.SelectionHandler
	ExportHandler    *handlers.ExportHandler
	WSHandler        *handlers.WebSocketHandler

	// Single-instance lock on the staging root. Two instances sharing one
	// staging tree would race imports and cleanup.
	lock *flock.Flock
}

func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.acquireLock(); err != nil {
		return nil, err
	}

	// Initialize storage
	if err := app.initStorage(); err != nil {
		app.releaseLock()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// WebSocket handler is created early so every service publish after
	// this point reaches connected clients
	app.EventService = events.NewService(app.Logger)
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to subscribe logger to events")
	}
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, app.Logger, &app.Config.WebSocket)

	// Initialize services
	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	app.initHandlers()

	batchCount, err := app.StorageManager.BatchStorage().CountBatches(context.Background())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to count stored batches")
	}

	logger.Info().
		Str("staging", cfg.Storage.Filesystem.Staging).
		Str("exports", cfg.Storage.Filesystem.Exports).
		Int("batch_count", batchCount).
		Bool("cleanup_enabled", cfg.Cleanup.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// acquireLock takes the single-instance lock under the staging root
func (a *App) acquireLock() error {
	staging := a.Config.Storage.Filesystem.Staging
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	lock := flock.New(filepath.Join(staging, "colligo.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another instance is already running (lock: %s)", lock.Path())
	}

	a.lock = lock
	a.Logger.Debug().Str("path", lock.Path()).Msg("Instance lock acquired")
	return nil
}

func (a *App) releaseLock() {
	if a.lock == nil {
		return
	}
	if err := a.lock.Unlock(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to release instance lock")
	}
	a.lock = nil
}

// initStorage initializes the storage layer (Badger)
func (a *App) initStorage() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.StorageManager = storageManager
	return nil
}

func (a *App) initServices() error {
	a.SelectionService = selection.NewService(a.StorageManager, a.Logger)

	engine := raster.NewEngine(a.Logger, &a.Config.Raster)
	a.PreviewService = preview.NewService(a.StorageManager, a.SelectionService, engine, a.EventService, a.Config, a.Logger)

	a.ImportService = importer.NewService(a.StorageManager, a.SelectionService, a.EventService, a.Config, a.Logger)
	a.ExportService = export.NewService(a.StorageManager, a.SelectionService, a.EventService, a.Config, a.Logger)
	a.OpenerService = opener.NewService(a.Logger)

	a.CleanupService = cleanup.NewService(a.StorageManager, a.EventService, a.Config, a.Logger)
	if err := a.CleanupService.Start(); err != nil {
		return fmt.Errorf("failed to start cleanup service: %w", err)
	}

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.OpenerService, a.Logger)
	a.BatchHandler = handlers.NewBatchHandler(a.StorageManager, a.ImportService, a.PreviewService, a.SelectionService, a.CleanupService, a.Logger)
	a.SelectionHandler = handlers.NewSelectionHandler(a.SelectionService, a.Logger)
	a.ExportHandler = handlers.NewExportHandler(a.ExportService, a.Logger)
}

// Close shuts the application down in reverse dependency order
func (a *App) Close() error {
	if a.CleanupService != nil {
		a.CleanupService.Stop()
		a.Logger.Info().Msg("Cleanup service stopped")
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	var closeErr error
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close storage: %w", err)
		} else {
			a.Logger.Info().Msg("Storage closed")
		}
	}

	a.releaseLock()
	return closeErr
}
