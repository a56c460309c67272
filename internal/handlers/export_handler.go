package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/export"
)

var validate = validator.New()

// ExportHandler serves report and bundle generation. Both run synchronously
// and return the written path; progress is streamed over the WebSocket.
type ExportHandler struct {
	export interfaces.ExportService
	logger arbor.ILogger
}

func NewExportHandler(exportSvc interfaces.ExportService, logger arbor.ILogger) *ExportHandler {
	return &ExportHandler{
		export: exportSvc,
		logger: logger,
	}
}

type reportRequest struct {
	OutputPath string   `json:"output_path"`
	ArchiveIDs []string `json:"archive_ids" validate:"omitempty,dive,required"`
}

type bundleRequest struct {
	OutputPath string                  `json:"output_path"`
	Selection  *models.BundleSelection `json:"selection" validate:"omitempty"`
	EmbedFiles bool                    `json:"embed_files"`
}

// ReportHandler handles POST /api/batches/{id}/export/report.
// An empty archive_ids list falls back to the stored selection state.
func (h *ExportHandler) ReportHandler(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req reportRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid report request: "+err.Error())
		return
	}

	path, err := h.export.WriteReport(r.Context(), batchID, req.ArchiveIDs, req.OutputPath)
	if err != nil {
		h.writeExportError(w, batchID, err)
		return
	}

	h.logger.Info().Str("batch_id", batchID).Str("path", path).Msg("Report exported")
	WriteJSON(w, http.StatusOK, map[string]string{
		"path": path,
	})
}

// BundleHandler handles POST /api/batches/{id}/export/bundle.
// A missing selection falls back to the stored selection state of the batch.
func (h *ExportHandler) BundleHandler(w http.ResponseWriter, r *http.Request, batchID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req bundleRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid bundle request: "+err.Error())
		return
	}

	path, err := h.export.WriteBundle(r.Context(), batchID, req.Selection, req.EmbedFiles, req.OutputPath)
	if err != nil {
		h.writeExportError(w, batchID, err)
		return
	}

	h.logger.Info().Str("batch_id", batchID).Str("path", path).Bool("embed_files", req.EmbedFiles).Msg("Bundle exported")
	WriteJSON(w, http.StatusOK, map[string]string{
		"path": path,
	})
}

func (h *ExportHandler) writeExportError(w http.ResponseWriter, batchID string, err error) {
	switch {
	case errors.Is(err, export.ErrNoArchivesSelected):
		WriteError(w, http.StatusBadRequest, err.Error())
	case strings.Contains(err.Error(), "not found"):
		WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Str("batch_id", batchID).Msg("Export failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
