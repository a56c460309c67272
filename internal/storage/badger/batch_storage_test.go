package badger

import (
	"context"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func openTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func testBatch() *models.Batch {
	return &models.Batch{
		ID: "batch_1756100000",
		Archives: []models.Archive{
			{
				ID:       "arc_aaa",
				Filename: "directive-001.zip",
				Status:   models.ArchiveStatusCompleted,
				Videos:   []string{"v1.mp4"},
				Images:   []string{"i1.png", "i2.jpg"},
				PageDocs: []string{"d1.pdf"},
			},
			{
				ID:       "arc_bbb",
				Filename: "directive-002.zip",
				Status:   models.ArchiveStatusFailedPrefix + "no primary document",
			},
		},
	}
}

func TestBatchStoragePersistence(t *testing.T) {
	db := openTestDB(t)
	logger := arbor.NewLogger()
	storage := NewBatchStorage(db, logger)
	ctx := context.Background()

	batch := testBatch()
	if err := storage.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("Failed to save batch: %v", err)
	}
	if batch.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set on save")
	}

	loaded, err := storage.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}
	if len(loaded.Archives) != 2 {
		t.Fatalf("Expected 2 archives, got %d", len(loaded.Archives))
	}
	if loaded.Archives[0].Images[1] != "i2.jpg" {
		t.Errorf("Expected asset list to round-trip, got %v", loaded.Archives[0].Images)
	}

	count, err := storage.CountBatches(ctx)
	if err != nil {
		t.Fatalf("Failed to count batches: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 batch, got %d", count)
	}

	if _, err := storage.GetBatch(ctx, "batch_missing"); err == nil {
		t.Error("Expected error for missing batch")
	}
}

func TestBatchStorageArchiveOperations(t *testing.T) {
	db := openTestDB(t)
	logger := arbor.NewLogger()
	storage := NewBatchStorage(db, logger)
	ctx := context.Background()

	batch := testBatch()
	if err := storage.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("Failed to save batch: %v", err)
	}

	// Status update round-trips
	if err := storage.SetArchiveStatus(ctx, batch.ID, "arc_aaa", models.ArchiveStatusPending); err != nil {
		t.Fatalf("Failed to set archive status: %v", err)
	}
	archive, err := storage.GetArchive(ctx, batch.ID, "arc_aaa")
	if err != nil {
		t.Fatalf("Failed to get archive: %v", err)
	}
	if archive.Status != models.ArchiveStatusPending {
		t.Errorf("Expected status %q, got %q", models.ArchiveStatusPending, archive.Status)
	}

	// Thumbnails append in order
	if err := storage.AppendThumbnails(ctx, batch.ID, "arc_aaa", []string{"page_001.jpg", "page_002.jpg"}); err != nil {
		t.Fatalf("Failed to append thumbnails: %v", err)
	}
	if err := storage.AppendThumbnails(ctx, batch.ID, "arc_aaa", []string{"page_003.jpg"}); err != nil {
		t.Fatalf("Failed to append thumbnails: %v", err)
	}
	archive, err = storage.GetArchive(ctx, batch.ID, "arc_aaa")
	if err != nil {
		t.Fatalf("Failed to get archive: %v", err)
	}
	if len(archive.Thumbnails) != 3 {
		t.Fatalf("Expected 3 thumbnails, got %d", len(archive.Thumbnails))
	}
	if archive.Thumbnails[2] != "page_003.jpg" {
		t.Errorf("Expected thumbnails in append order, got %v", archive.Thumbnails)
	}

	// Remove drops only the named archive
	if err := storage.RemoveArchive(ctx, batch.ID, "arc_bbb"); err != nil {
		t.Fatalf("Failed to remove archive: %v", err)
	}
	loaded, err := storage.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}
	if len(loaded.Archives) != 1 || loaded.Archives[0].ID != "arc_aaa" {
		t.Errorf("Expected only arc_aaa to remain, got %d archives", len(loaded.Archives))
	}

	// Removing an unknown archive reports not found
	if err := storage.RemoveArchive(ctx, batch.ID, "arc_unknown"); err == nil {
		t.Error("Expected error removing unknown archive")
	} else if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestSelectionStoragePersistence(t *testing.T) {
	db := openTestDB(t)
	logger := arbor.NewLogger()
	storage := NewSelectionStorage(db, logger)
	ctx := context.Background()

	selA := &models.Selection{
		ArchiveID: "arc_aaa",
		Include:   true,
		Videos:    []bool{true},
		Images:    []bool{true, false},
	}
	selB := &models.Selection{
		ArchiveID: "arc_bbb",
		Include:   false,
	}

	if err := storage.SaveSelection(ctx, "batch_1", selA); err != nil {
		t.Fatalf("Failed to save selection: %v", err)
	}
	if err := storage.SaveSelection(ctx, "batch_1", selB); err != nil {
		t.Fatalf("Failed to save selection: %v", err)
	}
	if err := storage.SaveSelection(ctx, "batch_2", &models.Selection{ArchiveID: "arc_ccc"}); err != nil {
		t.Fatalf("Failed to save selection: %v", err)
	}

	loaded, err := storage.GetSelection(ctx, "batch_1", "arc_aaa")
	if err != nil {
		t.Fatalf("Failed to get selection: %v", err)
	}
	if loaded.BatchID != "batch_1" {
		t.Errorf("Expected batch ID to be stamped on save, got %q", loaded.BatchID)
	}
	if len(loaded.Images) != 2 || loaded.Images[1] {
		t.Errorf("Expected image flags to round-trip, got %v", loaded.Images)
	}

	// List is scoped to one batch
	selections, err := storage.ListSelections(ctx, "batch_1")
	if err != nil {
		t.Fatalf("Failed to list selections: %v", err)
	}
	if len(selections) != 2 {
		t.Errorf("Expected 2 selections for batch_1, got %d", len(selections))
	}

	// Batch delete leaves other batches untouched
	if err := storage.DeleteBatchSelections(ctx, "batch_1"); err != nil {
		t.Fatalf("Failed to delete batch selections: %v", err)
	}
	selections, err = storage.ListSelections(ctx, "batch_1")
	if err != nil {
		t.Fatalf("Failed to list selections: %v", err)
	}
	if len(selections) != 0 {
		t.Errorf("Expected no selections after batch delete, got %d", len(selections))
	}
	if _, err := storage.GetSelection(ctx, "batch_2", "arc_ccc"); err != nil {
		t.Errorf("Expected batch_2 selection to survive, got %v", err)
	}
}
