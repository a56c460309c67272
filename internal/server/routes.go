// -----------------------------------------------------------------------
// Last Modified: Tuesday, 25th August 2026 2:47:09 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Batches
	mux.HandleFunc("/api/batches/import", s.app.BatchHandler.ImportHandler) // POST - stage and classify archives
	mux.HandleFunc("/api/batches", s.app.BatchHandler.ListHandler)          // GET - batch summaries, newest first
	mux.HandleFunc("/api/batches/", s.handleBatchRoutes)                    // Per-batch and per-archive subroutes

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/open", s.app.APIHandler.OpenHandler) // POST - reveal a path in the file manager
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler)        // Graceful shutdown endpoint

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleBatchRoutes dispatches everything under /api/batches/{id}:
//
//	GET    /api/batches/{id}
//	DELETE /api/batches/{id}
//	POST   /api/batches/{id}/render
//	GET    /api/batches/{id}/render/status
//	DELETE /api/batches/{id}/archives/{archiveID}
//	GET    /api/batches/{id}/archives/{archiveID}/preview/image
//	GET    /api/batches/{id}/archives/{archiveID}/preview/spreadsheet
//	PUT    /api/batches/{id}/archives/{archiveID}/selection/{op}
//	POST   /api/batches/{id}/export/report
//	POST   /api/batches/{id}/export/bundle
func (s *Server) handleBatchRoutes(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/api/batches/")
	if len(parts) == 0 {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	batchID := parts[0]

	if len(parts) == 1 {
		RouteByMethod(w, r, MethodRouter{
			"GET": func(w http.ResponseWriter, r *http.Request) {
				s.app.BatchHandler.GetHandler(w, r, batchID)
			},
			"DELETE": func(w http.ResponseWriter, r *http.Request) {
				s.app.BatchHandler.DeleteHandler(w, r, batchID)
			},
		})
		return
	}

	switch parts[1] {
	case "render":
		if len(parts) == 2 {
			s.app.BatchHandler.RenderHandler(w, r, batchID)
			return
		}
		if len(parts) == 3 && parts[2] == "status" {
			s.app.BatchHandler.RenderStatusHandler(w, r, batchID)
			return
		}

	case "archives":
		if len(parts) < 3 {
			break
		}
		archiveID := parts[2]

		if len(parts) == 3 {
			s.app.BatchHandler.RemoveArchiveHandler(w, r, batchID, archiveID)
			return
		}
		if len(parts) == 5 && parts[3] == "preview" {
			switch parts[4] {
			case "image":
				s.app.BatchHandler.PreviewImageHandler(w, r, batchID, archiveID)
				return
			case "spreadsheet":
				s.app.BatchHandler.PreviewSpreadsheetHandler(w, r, batchID, archiveID)
				return
			}
		}
		if len(parts) == 5 && parts[3] == "selection" {
			switch parts[4] {
			case "flag":
				s.app.SelectionHandler.FlagHandler(w, r, batchID, archiveID)
				return
			case "scalar":
				s.app.SelectionHandler.ScalarHandler(w, r, batchID, archiveID)
				return
			case "bulk":
				s.app.SelectionHandler.BulkHandler(w, r, batchID, archiveID)
				return
			case "invert":
				s.app.SelectionHandler.InvertHandler(w, r, batchID, archiveID)
				return
			case "document":
				s.app.SelectionHandler.DocumentHandler(w, r, batchID, archiveID)
				return
			}
		}

	case "export":
		if len(parts) == 3 {
			switch parts[2] {
			case "report":
				s.app.ExportHandler.ReportHandler(w, r, batchID)
				return
			case "bundle":
				s.app.ExportHandler.BundleHandler(w, r, batchID)
				return
			}
		}
	}

	s.app.APIHandler.NotFoundHandler(w, r)
}
