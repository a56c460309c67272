package models

import "time"

// RasterResult is the outcome of rasterizing one page-document: the encoded
// page images in page order plus the page numbers they came from. Pages that
// failed to render are simply absent.
type RasterResult struct {
	Pages     [][]byte `json:"-"`
	PageCount int      `json:"page_count"` // Pages in the source document
	Rendered  []int    `json:"rendered"`   // 1-based source page numbers, ascending
}

// RenderSummary is the outcome of one batch render run. Per-document
// failures are counted here, never returned as errors.
type RenderSummary struct {
	BatchID    string    `json:"batch_id"`
	Documents  int       `json:"documents"` // Page-documents visited this run
	Rendered   int       `json:"rendered"`  // Documents that produced at least one page image
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"` // Already rendered or archive failed
	Pages      int       `json:"pages"`   // Total page images persisted
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RenderStatus reports whether a render run is active for a batch
type RenderStatus struct {
	BatchID string         `json:"batch_id"`
	Running bool           `json:"running"`
	Last    *RenderSummary `json:"last,omitempty"`
}
