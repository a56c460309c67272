// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026 2:10:44 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/importer"
	"github.com/ternarybob/colligo/internal/services/preview"
)

// BatchHandler serves batch lifecycle requests: import, listing, inspection,
// rendering and removal.
type BatchHandler struct {
	storage   interfaces.StorageManager
	importer  interfaces.ImportService
	preview   interfaces.PreviewService
	selection interfaces.SelectionService
	cleanup   interfaces.CleanupService
	logger    arbor.ILogger
}

func NewBatchHandler(
	storage interfaces.StorageManager,
	importSvc interfaces.ImportService,
	previewSvc interfaces.PreviewService,
	selectionSvc interfaces.SelectionService,
	cleanupSvc interfaces.CleanupService,
	logger arbor.ILogger,
) *BatchHandler {
	return &BatchHandler{
		storage:   storage,
		importer:  importSvc,
		preview:   previewSvc,
		selection: selectionSvc,
		cleanup:   cleanupSvc,
		logger:    logger,
	}
}

// ImportHandler handles POST /api/batches/import. The import runs
// synchronously; progress is streamed over the WebSocket while it does.
func (h *BatchHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req struct {
		Paths []string `json:"paths"`
	}
	if !DecodeBody(w, r, &req) {
		return
	}

	batch, err := h.importer.ImportArchives(r.Context(), req.Paths)
	if err != nil {
		if errors.Is(err, importer.ErrNoInput) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Archive import failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, batch)
}

// ListHandler handles GET /api/batches, newest first
func (h *BatchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	batches, err := h.storage.BatchStorage().ListBatches(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list batches")
		WriteError(w, http.StatusInternalServerError, "Failed to list batches")
		return
	}

	summaries := make([]models.BatchSummary, 0, len(batches))
	for _, batch := range batches {
		summaries = append(summaries, batch.Summarize())
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"batches": summaries,
		"count":   len(summaries),
	})
}

// GetHandler handles GET /api/batches/{id}: the batch plus its selection
// records keyed by archive ID.
func (h *BatchHandler) GetHandler(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	batch, err := h.storage.BatchStorage().GetBatch(r.Context(), batchID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Batch not found: "+batchID)
		return
	}

	selections, err := h.storage.SelectionStorage().ListSelections(r.Context(), batchID)
	if err != nil {
		h.logger.Error().Err(err).Str("batch_id", batchID).Msg("Failed to load selections")
		WriteError(w, http.StatusInternalServerError, "Failed to load selections")
		return
	}

	selected := make(map[string]*models.Selection, len(selections))
	for _, sel := range selections {
		selected[sel.ArchiveID] = sel
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"batch":      batch,
		"selections": selected,
	})
}

// DeleteHandler handles DELETE /api/batches/{id}: purges the database
// record, the staged files and every selection of the batch.
func (h *BatchHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	if err := h.cleanup.PurgeBatch(r.Context(), batchID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, "Batch not found: "+batchID)
			return
		}
		h.logger.Error().Err(err).Str("batch_id", batchID).Msg("Failed to purge batch")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteSuccess(w, "batch deleted: "+batchID)
}

// RenderHandler handles POST /api/batches/{id}/render. The run continues in
// the background; progress is streamed over the WebSocket and the summary is
// polled via the status endpoint.
func (h *BatchHandler) RenderHandler(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if _, err := h.storage.BatchStorage().GetBatch(r.Context(), batchID); err != nil {
		WriteError(w, http.StatusNotFound, "Batch not found: "+batchID)
		return
	}

	if status := h.preview.Status(batchID); status.Running {
		WriteError(w, http.StatusConflict, "render already in progress for "+batchID)
		return
	}

	// Detached from the request context: the run outlives the response
	common.SafeGo(h.logger, "render "+batchID, func() {
		if _, err := h.preview.RenderBatch(context.Background(), batchID); err != nil &&
			!errors.Is(err, preview.ErrRenderInProgress) {
			h.logger.Error().Err(err).Str("batch_id", batchID).Msg("Batch render failed")
		}
	})

	WriteStarted(w, "render started for "+batchID)
}

// RenderStatusHandler handles GET /api/batches/{id}/render/status
func (h *BatchHandler) RenderStatusHandler(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, h.preview.Status(batchID))
}

// RemoveArchiveHandler handles DELETE /api/batches/{id}/archives/{archiveID}.
// The archive and its selection are removed together.
func (h *BatchHandler) RemoveArchiveHandler(w http.ResponseWriter, r *http.Request, batchID, archiveID string) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	if err := h.selection.RemoveArchive(r.Context(), batchID, archiveID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, "Archive not found: "+archiveID)
			return
		}
		h.logger.Error().Err(err).
			Str("batch_id", batchID).
			Str("archive_id", archiveID).
			Msg("Failed to remove archive")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteSuccess(w, "archive removed: "+archiveID)
}

// PreviewImageHandler handles
// GET /api/batches/{id}/archives/{archiveID}/preview/image?category=&index=
func (h *BatchHandler) PreviewImageHandler(w http.ResponseWriter, r *http.Request, batchID, archiveID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	category := models.Category(r.URL.Query().Get("category"))
	if category == "" {
		category = models.CategoryImages
	}
	if !category.Valid() {
		WriteError(w, http.StatusBadRequest, "Unknown category: "+string(category))
		return
	}

	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil || index < 0 {
		WriteError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}

	dataURL, err := h.preview.ImageDataURL(r.Context(), batchID, archiveID, category, index)
	if err != nil {
		h.writePreviewError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"data_url": dataURL,
	})
}

// PreviewSpreadsheetHandler handles
// GET /api/batches/{id}/archives/{archiveID}/preview/spreadsheet?index=
func (h *BatchHandler) PreviewSpreadsheetHandler(w http.ResponseWriter, r *http.Request, batchID, archiveID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil || index < 0 {
		WriteError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return
	}

	previewData, err := h.preview.Spreadsheet(r.Context(), batchID, archiveID, index)
	if err != nil {
		h.writePreviewError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, previewData)
}

func (h *BatchHandler) writePreviewError(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		WriteError(w, http.StatusNotFound, msg)
	case strings.Contains(msg, "out of range"),
		strings.Contains(msg, "no image preview"),
		strings.Contains(msg, "not supported"):
		WriteError(w, http.StatusBadRequest, msg)
	default:
		h.logger.Error().Err(err).Msg("Preview failed")
		WriteError(w, http.StatusInternalServerError, msg)
	}
}
