package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/framewall/framewall-agent/internal/config"
	"github.com/framewall/framewall-agent/internal/export"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Assets, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/assets", listAssetsHandler(cfg))
		r.Post("/assets", createAssetHandler(cfg))
		r.Delete("/assets/{id}", deleteAssetHandler(cfg))

		r.Post("/exports", submitExportHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))
		r.Get("/exports/{id}", getExportHandler(cfg))
		r.Post("/exports/{id}/cancel", cancelExportHandler(cfg))
		r.Get("/exports/{id}/movie", movieHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		assetsCount, _ := cfg.Assets.CountAssets(ctx)
		exports, _ := cfg.ExportService.List(ctx, 10)

		state := "idle"
		lastError := ""
		var active *ExportResponse

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		for _, rec := range exports {
			if rec.State == export.StateRendering || rec.State == export.StatePending {
				state = "exporting"
				resp := ExportToResponse(rec)
				active = &resp
				break
			}
			if rec.State == export.StateFailed && lastError == "" {
				lastError = rec.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		resp := StatusResponse{
			State:        state,
			LastError:    lastError,
			AssetsCount:  assetsCount,
			ActiveExport: active,
		}

		if cfg.Doctor != nil {
			caps, err := cfg.Doctor.Get(ctx)
			if err == nil && caps != nil {
				resp.Encoder = &EncoderStatusResponse{
					HasFFmpeg:   caps.HasFFmpeg,
					HasFFprobe:  caps.HasFFprobe,
					HasH264:     caps.HasH264,
					HasAAC:      caps.HasAAC,
					FFmpegBuild: caps.FFmpegBuild,
					LastProbeAt: caps.ProbedAt.Format(time.RFC3339),
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}
