package export

import (
	"context"
	"reflect"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/selection"
	"github.com/ternarybob/colligo/internal/storage/badger"
)

func newTestService(t *testing.T) (interfaces.ExportService, interfaces.SelectionService, interfaces.StorageManager, *common.Config) {
	t.Helper()

	logger := arbor.NewLogger()
	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { manager.Close() })

	cfg := common.NewDefaultConfig()
	cfg.Storage.Filesystem.Exports = t.TempDir()

	selSvc := selection.NewService(manager, logger)
	exportSvc := NewService(manager, selSvc, nil, cfg, logger)
	return exportSvc, selSvc, manager, cfg
}

func seedBatch(t *testing.T, manager interfaces.StorageManager, selSvc interfaces.SelectionService) *models.Batch {
	t.Helper()

	batch := &models.Batch{
		ID: "batch_1756100000",
		Archives: []models.Archive{
			{
				ID:       "arc_a",
				Filename: "202512110007-ZL1.zip",
				Status:   models.ArchiveStatusCompleted,
				Fields: models.DocFields{
					InstructionNo: "202512110007",
					Title:         "专项清理工作",
					IssuedAt:      "2025-12-11 09:30:00",
					Content:       "请各单位按要求处理。\n处理完成后反馈。",
				},
				Videos:     []string{"/stage/a/v1.mp4"},
				Images:     []string{"/stage/a/i1.jpg", "/stage/a/i2.jpg", "/stage/a/i3.jpg"},
				PageDocs:   []string{"/stage/a/d1.pdf"},
				Thumbnails: []string{"/stage/a/t1.jpg", "/stage/a/t2.jpg"},
				Documents: []models.TextDocument{
					{ID: "doc_1", Name: "附件说明.docx", FullText: "补充说明文本", Images: []string{"/stage/a/m1.png"}},
				},
			},
			{
				ID:       "arc_b",
				Filename: "202512110028-ZL1.zip",
				Status:   models.ArchiveStatusCompleted,
				Fields: models.DocFields{
					InstructionNo: "202512110028",
					Title:         "日常巡查通知",
					IssuedAt:      "2025-12-10",
				},
				Images: []string{"/stage/b/i1.png"},
			},
		},
	}
	ctx := context.Background()
	if err := manager.BatchStorage().SaveBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}
	for i := range batch.Archives {
		if _, err := selSvc.Initialize(ctx, batch.ID, &batch.Archives[i]); err != nil {
			t.Fatal(err)
		}
	}
	return batch
}

func TestCompactSelectionTrueIndices(t *testing.T) {
	sel := &models.Selection{
		ArchiveID: "arc_x",
		Include:   true,
		Images:    []bool{true, false, true},
		Videos:    []bool{false},
	}

	compact := CompactSelection(sel)

	if got, want := compact.ImageIndices, []int{0, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("ImageIndices = %v, want %v", got, want)
	}
	if compact.VideoIndices != nil {
		t.Errorf("VideoIndices = %v, want empty", compact.VideoIndices)
	}
}

func TestCompactSelectionOmitsEmptyDocuments(t *testing.T) {
	sel := &models.Selection{
		ArchiveID: "arc_x",
		Documents: []models.DocSelection{
			{IncludeText: false, Images: []bool{false, false}},
			{IncludeText: true, Images: []bool{false}},
			{IncludeText: false, Images: []bool{true}},
		},
	}

	compact := CompactSelection(sel)

	if len(compact.Documents) != 2 {
		t.Fatalf("Documents = %d entries, want 2", len(compact.Documents))
	}
	if compact.Documents[0].DocIndex != 1 || !compact.Documents[0].IncludeText {
		t.Errorf("First kept document = %+v, want doc 1 with text", compact.Documents[0])
	}
	if compact.Documents[1].DocIndex != 2 || !reflect.DeepEqual(compact.Documents[1].ImageIndices, []int{0}) {
		t.Errorf("Second kept document = %+v, want doc 2 with image 0", compact.Documents[1])
	}
}

func TestBuildBundleSelectionBatchOrder(t *testing.T) {
	exportSvc, selSvc, manager, _ := newTestService(t)
	batch := seedBatch(t, manager, selSvc)
	ctx := context.Background()

	// Deselect one image so the descriptor is not all-inclusive
	if err := selSvc.SetFlag(ctx, batch.ID, "arc_a", models.CategoryImages, 1, false); err != nil {
		t.Fatal(err)
	}

	desc, err := exportSvc.BuildBundleSelection(ctx, batch.ID)
	if err != nil {
		t.Fatalf("BuildBundleSelection failed: %v", err)
	}

	if len(desc.Archives) != 2 {
		t.Fatalf("Descriptor has %d archives, want 2", len(desc.Archives))
	}
	if desc.Archives[0].ArchiveID != "arc_a" || desc.Archives[1].ArchiveID != "arc_b" {
		t.Errorf("Descriptor order = %s,%s; want batch order", desc.Archives[0].ArchiveID, desc.Archives[1].ArchiveID)
	}
	if got, want := desc.Archives[0].ImageIndices, []int{0, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("ImageIndices = %v, want %v", got, want)
	}
	// Raw page-documents are deselected by default
	if len(desc.Archives[0].PageDocIndices) != 0 {
		t.Errorf("PageDocIndices = %v, want empty", desc.Archives[0].PageDocIndices)
	}
	if got, want := desc.Archives[0].ThumbnailIndices, []int{0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("ThumbnailIndices = %v, want %v", got, want)
	}
}

func TestBuildReportSelectionExcludesUnincluded(t *testing.T) {
	exportSvc, selSvc, manager, _ := newTestService(t)
	batch := seedBatch(t, manager, selSvc)
	ctx := context.Background()

	if err := selSvc.SetScalar(ctx, batch.ID, "arc_a", interfaces.ScalarInclude, false); err != nil {
		t.Fatal(err)
	}

	ids, err := exportSvc.BuildReportSelection(ctx, batch.ID)
	if err != nil {
		t.Fatalf("BuildReportSelection failed: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"arc_b"}) {
		t.Errorf("Report IDs = %v, want [arc_b]", ids)
	}
}

func TestApplySelectionProjectsAssets(t *testing.T) {
	batch := &models.Batch{
		ID: "batch_1",
		Archives: []models.Archive{
			{
				ID:     "arc_a",
				Images: []string{"i0", "i1", "i2"},
				Videos: []string{"v0"},
				Documents: []models.TextDocument{
					{Name: "d0", FullText: "text", Images: []string{"m0", "m1"}},
				},
			},
			{ID: "arc_b", Images: []string{"x0"}},
		},
	}
	desc := &models.BundleSelection{
		Archives: []models.ArchiveSelection{
			{
				ArchiveID:    "arc_a",
				Include:      true,
				ImageIndices: []int{0, 2, 9}, // 9 is stale, silently skipped
				VideoIndices: []int{0},
				Documents: []models.DocumentSelection{
					{DocIndex: 0, IncludeText: false, ImageIndices: []int{1}},
					{DocIndex: 5, IncludeText: true}, // stale doc index
				},
			},
			{ArchiveID: "arc_b", Include: false, ImageIndices: []int{0}},
			{ArchiveID: "arc_ghost", Include: true},
		},
	}

	projected := ApplySelection(batch, desc)

	if len(projected) != 1 {
		t.Fatalf("Projected %d archives, want 1", len(projected))
	}
	got := projected[0]
	if !reflect.DeepEqual(got.Images, []string{"i0", "i2"}) {
		t.Errorf("Images = %v, want [i0 i2]", got.Images)
	}
	if !reflect.DeepEqual(got.Videos, []string{"v0"}) {
		t.Errorf("Videos = %v, want [v0]", got.Videos)
	}
	if len(got.Documents) != 1 {
		t.Fatalf("Documents = %d, want 1 (stale index dropped)", len(got.Documents))
	}
	if got.Documents[0].FullText != "" {
		t.Error("Expected document text cleared when IncludeText is false")
	}
	if !reflect.DeepEqual(got.Documents[0].Images, []string{"m1"}) {
		t.Errorf("Document images = %v, want [m1]", got.Documents[0].Images)
	}
}

func TestApplySelectionRoundTrip(t *testing.T) {
	archive := models.Archive{
		ID:     "arc_rt",
		Images: []string{"i0", "i1"},
	}
	batch := &models.Batch{ID: "batch_rt", Archives: []models.Archive{archive}}

	sel := models.NewSelectionForArchive(&archive)
	sel.BatchID = batch.ID
	desc := &models.BundleSelection{Archives: []models.ArchiveSelection{CompactSelection(sel)}}

	projected := ApplySelection(batch, desc)
	if len(projected) != 1 {
		t.Fatalf("Projected %d archives, want 1", len(projected))
	}
	if !reflect.DeepEqual(projected[0].Images, archive.Images) {
		t.Errorf("Round trip images = %v, want %v", projected[0].Images, archive.Images)
	}
}
