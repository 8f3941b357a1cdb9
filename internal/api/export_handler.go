package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/framewall/framewall-agent/internal/export"
)

func submitExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if len(req.Segments) == 0 {
			WriteError(w, http.StatusBadRequest, "at least one segment is required", "BAD_REQUEST")
			return
		}

		rec, err := cfg.ExportService.Submit(r.Context(), &req)
		if err != nil {
			WriteError(w, http.StatusServiceUnavailable, err.Error(), "EXPORT_UNAVAILABLE")
			return
		}

		WriteJSON(w, http.StatusAccepted, SubmitExportResponse{ExportID: rec.ID})
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := cfg.ExportService.List(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}

		resp := ExportsResponse{Exports: make([]ExportResponse, len(records))}
		for i, rec := range records {
			resp.Exports[i] = ExportToResponse(rec)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "export id required", "BAD_REQUEST")
			return
		}

		rec, err := cfg.ExportService.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if rec == nil {
			WriteError(w, http.StatusNotFound, "export not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, ExportToResponse(rec))
	}
}

func cancelExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "export id required", "BAD_REQUEST")
			return
		}

		if !cfg.ExportService.Cancel(id) {
			WriteError(w, http.StatusConflict, "export is not running", "NOT_RUNNING")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func movieHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "export id required", "BAD_REQUEST")
			return
		}

		rec, err := cfg.ExportService.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if rec == nil {
			WriteError(w, http.StatusNotFound, "export not found", "NOT_FOUND")
			return
		}
		if rec.State != export.StateReady || rec.OutputPath == "" {
			WriteError(w, http.StatusConflict, "export is not ready", "NOT_READY")
			return
		}

		if err := cfg.Movies.ServeMovie(w, r, rec.OutputPath); err != nil {
			cfg.Logger.Error("movie playback error", "error", err, "export_id", id)
		}
	}
}
