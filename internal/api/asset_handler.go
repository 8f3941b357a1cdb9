package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/framewall/framewall-agent/internal/assets"
)

func listAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := cfg.Assets.ListAssets(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list assets", "INTERNAL_ERROR")
			return
		}

		resp := AssetsResponse{Assets: make([]AssetResponse, len(items))}
		for i, a := range items {
			resp.Assets[i] = AssetToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAssetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}
		if req.MediaType != assets.MediaTypePhoto && req.MediaType != assets.MediaTypeVideo {
			WriteError(w, http.StatusBadRequest, "media_type must be photo or video", "BAD_REQUEST")
			return
		}

		asset := &assets.Asset{
			ID:            assets.NewID(),
			MediaType:     req.MediaType,
			Path:          req.Path,
			ThumbnailPath: req.ThumbnailPath,
			PixelWidth:    req.PixelWidth,
			PixelHeight:   req.PixelHeight,
			DurationS:     req.DurationS,
			CreatedAt:     time.Now().UTC(),
		}
		if err := cfg.Assets.CreateAsset(r.Context(), asset); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusCreated, CreateAssetResponse{AssetID: asset.ID})
	}
}

func deleteAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "asset id required", "BAD_REQUEST")
			return
		}

		if err := cfg.Assets.DeleteAsset(r.Context(), id); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
