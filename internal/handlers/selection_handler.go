package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/selection"
)

// SelectionHandler serves the per-archive curation endpoints. Every
// operation goes through the selection service so the flag/asset length
// invariant holds no matter how requests interleave.
type SelectionHandler struct {
	selection interfaces.SelectionService
	logger    arbor.ILogger
}

func NewSelectionHandler(selectionSvc interfaces.SelectionService, logger arbor.ILogger) *SelectionHandler {
	return &SelectionHandler{
		selection: selectionSvc,
		logger:    logger,
	}
}

// FlagHandler handles PUT .../selection/flag {category, index, value}
func (h *SelectionHandler) FlagHandler(w http.ResponseWriter, r *http.Request, batchID, archiveID string) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req struct {
		Category string `json:"category"`
		Index    *int   `json:"index"`
		Value    bool   `json:"value"`
	}
	if !DecodeBody(w, r, &req) {
		return
	}
	if req.Index == nil {
		WriteError(w, http.StatusBadRequest, "index is required")
		return
	}

	err := h.selection.SetFlag(r.Context(), batchID, archiveID, models.Category(req.Category), *req.Index, req.Value)
	h.writeSelectionResult(w, err, "flag updated")
}

// ScalarHandler handles PUT .../selection/scalar {field, value}
func (h *SelectionHandler) ScalarHandler(w http.ResponseWriter, r *http.Request, batchID, archiveID string) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req struct {
		Field string `json:"field"`
		Value bool   `json:"value"`
	}
	if !DecodeBody(w, r, &req) {
		return
	}

	scalar := interfaces.SelectionScalar(req.Field)
	if scalar != interfaces.ScalarInclude && scalar != interfaces.ScalarIncludeOriginalZip {
		WriteError(w, http.StatusBadRequest, "Unknown scalar field: "+req.Field)
		return
	}

	err := h.selection.SetScalar(r.Context(), batchID, archiveID, scalar, req.Value)
	h.writeSelectionResult(w, err, "scalar updated")
}

// BulkHandler handles PUT .../selection/bulk {category, value}
func (h *SelectionHandler) BulkHandler(w http.ResponseWriter, r *http.Request, batchID, archiveID string) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req struct {
		Category string `json:"category"`
		Value    bool   `json:"value"`
	}
	if !DecodeBody(w, r, &req) {
		return
	}

	err := h.selection.BulkSet(r.Context(), batchID, archiveID, models.Category(req.Category), req.Value)
	h.writeSelectionResult(w, err, "category updated")
}

// InvertHandler handles PUT .../selection/invert {category}
func (h *SelectionHandler) InvertHandler(w http.ResponseWriter, r *http.Request, batchID, archiveID string) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if !DecodeBody(w, r, &req) {
		return
	}

	err := h.selection.Invert(r.Context(), batchID, archiveID, models.Category(req.Category))
	h.writeSelectionResult(w, err, "category inverted")
}

// DocumentHandler handles PUT .../selection/document
// {doc_index, image_index, value}. A negative image_index targets the
// document's include_text flag.
func (h *SelectionHandler) DocumentHandler(w http.ResponseWriter, r *http.Request, batchID, archiveID string) {
	if !RequireMethod(w, r, "PUT") {
		return
	}

	var req struct {
		DocIndex   *int `json:"doc_index"`
		ImageIndex int  `json:"image_index"`
		Value      bool `json:"value"`
	}
	if !DecodeBody(w, r, &req) {
		return
	}
	if req.DocIndex == nil {
		WriteError(w, http.StatusBadRequest, "doc_index is required")
		return
	}

	err := h.selection.SetDocumentFlag(r.Context(), batchID, archiveID, *req.DocIndex, req.ImageIndex, req.Value)
	h.writeSelectionResult(w, err, "document flag updated")
}

func (h *SelectionHandler) writeSelectionResult(w http.ResponseWriter, err error, message string) {
	if err == nil {
		WriteSuccess(w, message)
		return
	}

	switch {
	case errors.Is(err, selection.ErrNotFound), strings.Contains(err.Error(), "not found"):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, selection.ErrIndexOutOfRange), errors.Is(err, selection.ErrUnknownCategory):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Selection update failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
