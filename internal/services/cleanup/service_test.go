package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/selection"
	"github.com/ternarybob/colligo/internal/storage/badger"
)

func newTestCleanup(t *testing.T) (interfaces.CleanupService, interfaces.StorageManager, interfaces.SelectionService, *common.Config) {
	t.Helper()

	logger := arbor.NewLogger()
	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { manager.Close() })

	cfg := common.NewDefaultConfig()
	cfg.Storage.Filesystem.Staging = t.TempDir()

	selSvc := selection.NewService(manager, logger)
	svc := NewService(manager, nil, cfg, logger)
	return svc, manager, selSvc, cfg
}

func seedBatchWithAge(t *testing.T, manager interfaces.StorageManager, selSvc interfaces.SelectionService, cfg *common.Config, id string, age time.Duration) {
	t.Helper()
	ctx := context.Background()

	batch := &models.Batch{
		ID:        id,
		CreatedAt: time.Now().Add(-age),
		Archives: []models.Archive{
			{ID: "arc_" + id, Filename: id + ".zip", Status: models.ArchiveStatusCompleted},
		},
	}
	if err := manager.BatchStorage().SaveBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}
	if _, err := selSvc.Initialize(ctx, id, &batch.Archives[0]); err != nil {
		t.Fatal(err)
	}

	dir := common.BatchDir(cfg.Storage.Filesystem.Staging, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "staged.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunOnceRemovesOnlyExpired(t *testing.T) {
	svc, manager, selSvc, cfg := newTestCleanup(t)
	ctx := context.Background()

	seedBatchWithAge(t, manager, selSvc, cfg, "batch_old", 40*24*time.Hour)
	seedBatchWithAge(t, manager, selSvc, cfg, "batch_new", time.Hour)

	removed, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if _, err := manager.BatchStorage().GetBatch(ctx, "batch_old"); err == nil {
		t.Error("expired batch still present")
	}
	if _, err := manager.BatchStorage().GetBatch(ctx, "batch_new"); err != nil {
		t.Errorf("fresh batch removed: %v", err)
	}

	if _, err := os.Stat(common.BatchDir(cfg.Storage.Filesystem.Staging, "batch_old")); !os.IsNotExist(err) {
		t.Error("expired batch staging dir still present")
	}
	if _, err := os.Stat(common.BatchDir(cfg.Storage.Filesystem.Staging, "batch_new")); err != nil {
		t.Errorf("fresh batch staging dir removed: %v", err)
	}
}

func TestPurgeBatchRemovesEverything(t *testing.T) {
	svc, manager, selSvc, cfg := newTestCleanup(t)
	ctx := context.Background()

	seedBatchWithAge(t, manager, selSvc, cfg, "batch_x", time.Hour)

	if err := svc.PurgeBatch(ctx, "batch_x"); err != nil {
		t.Fatal(err)
	}

	if _, err := manager.BatchStorage().GetBatch(ctx, "batch_x"); err == nil {
		t.Error("batch record still present")
	}
	if _, err := manager.SelectionStorage().GetSelection(ctx, "batch_x", "arc_batch_x"); err == nil {
		t.Error("selection record still present")
	}
	if _, err := os.Stat(common.BatchDir(cfg.Storage.Filesystem.Staging, "batch_x")); !os.IsNotExist(err) {
		t.Error("staging dir still present")
	}
}

func TestPurgeBatchUnknown(t *testing.T) {
	svc, _, _, _ := newTestCleanup(t)

	if err := svc.PurgeBatch(context.Background(), "batch_missing"); err == nil {
		t.Error("expected error for unknown batch")
	}
}

func TestStartDisabledIsNoOp(t *testing.T) {
	svc, _, _, cfg := newTestCleanup(t)
	cfg.Cleanup.Enabled = false

	if err := svc.Start(); err != nil {
		t.Fatal(err)
	}
	svc.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc, _, _, cfg := newTestCleanup(t)
	cfg.Cleanup.Enabled = true
	cfg.Cleanup.Schedule = "not a schedule"

	if err := svc.Start(); err == nil {
		t.Error("expected error for invalid schedule")
		svc.Stop()
	}
}
