package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/framewall/framewall-agent/internal/assets"
	"github.com/framewall/framewall-agent/internal/db"
	"github.com/framewall/framewall-agent/internal/export"
	"github.com/framewall/framewall-agent/internal/playback"
)

const testToken = "test-token-123"

type testEnv struct {
	router    *chi.Mux
	assets    assets.Repository
	exports   export.Repository
	service   *export.Service
	moviesDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	assetRepo := assets.NewRepository(database.Conn())
	if err := assetRepo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	exportRepo := export.NewRepository(database.Conn())
	service := export.NewService(exportRepo, 64)
	moviesDir := t.TempDir()

	router := NewRouter(ServerConfig{
		Port:          0,
		Assets:        assetRepo,
		ExportService: service,
		Movies:        playback.NewMovieServer(moviesDir, logger),
		Logger:        logger,
		StartTime:     time.Now(),
		DeviceID:      "test-device",
	})

	return &testEnv{
		router:    router,
		assets:    assetRepo,
		exports:   exportRepo,
		service:   service,
		moviesDir: moviesDir,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthRequiresNoAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != "ok" || resp.DeviceID != "test-device" {
		t.Errorf("health = %+v", resp)
	}
}

func TestAuthRejections(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/status", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no auth: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", w.Code)
	}
}

func TestSubmitExport(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/exports", export.Request{
		Title:    "Trip",
		Segments: []export.SegmentInput{{AssetID: "a-1"}},
	}, true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var resp SubmitExportResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.ExportID == "" {
		t.Fatal("export_id empty")
	}

	get := env.do(t, http.MethodGet, "/exports/"+resp.ExportID, nil, true)
	if get.Code != http.StatusOK {
		t.Fatalf("get status = %d", get.Code)
	}
	var rec2 ExportResponse
	json.NewDecoder(get.Body).Decode(&rec2)
	if rec2.State != export.StatePending {
		t.Errorf("state = %s, want pending (no runner attached)", rec2.State)
	}
}

func TestSubmitExport_RequiresSegments(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/exports", export.Request{Title: "Empty"}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetExport_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/exports/nonexistent", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCancelExport_NotRunning(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/exports/nope/cancel", nil, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestMovieDownload(t *testing.T) {
	env := newTestEnv(t)

	// A ready export whose movie sits in the movies directory.
	recRow := &export.Record{ID: "exp-1", Title: "Trip", State: export.StatePending}
	if err := env.exports.CreateExport(context.Background(), recRow); err != nil {
		t.Fatalf("CreateExport() error = %v", err)
	}
	os.WriteFile(filepath.Join(env.moviesDir, "Trip.mp4"), []byte("movie-bytes"), 0o644)
	if err := env.exports.CompleteExport(context.Background(), "exp-1", "Trip.mp4", 12.0, 11); err != nil {
		t.Fatalf("CompleteExport() error = %v", err)
	}

	rec := env.do(t, http.MethodGet, "/exports/exp-1/movie", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "movie-bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestMovieDownload_NotReady(t *testing.T) {
	env := newTestEnv(t)

	recRow := &export.Record{ID: "exp-2", Title: "Pending", State: export.StatePending}
	env.exports.CreateExport(context.Background(), recRow)

	rec := env.do(t, http.MethodGet, "/exports/exp-2/movie", nil, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestAssetLifecycle(t *testing.T) {
	env := newTestEnv(t)

	created := env.do(t, http.MethodPost, "/assets", CreateAssetRequest{
		MediaType:   assets.MediaTypePhoto,
		Path:        "/photos/a.jpg",
		PixelWidth:  4000,
		PixelHeight: 3000,
	}, true)
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", created.Code, created.Body.String())
	}
	var createResp CreateAssetResponse
	json.NewDecoder(created.Body).Decode(&createResp)

	list := env.do(t, http.MethodGet, "/assets", nil, true)
	var listResp AssetsResponse
	json.NewDecoder(list.Body).Decode(&listResp)
	if len(listResp.Assets) != 1 || listResp.Assets[0].ID != createResp.AssetID {
		t.Fatalf("assets = %+v", listResp.Assets)
	}

	del := env.do(t, http.MethodDelete, "/assets/"+createResp.AssetID, nil, true)
	if del.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", del.Code)
	}
}

func TestCreateAsset_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/assets", CreateAssetRequest{MediaType: "audio", Path: "/x"}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad media type: status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/assets", CreateAssetRequest{MediaType: assets.MediaTypePhoto}, true)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing path: status = %d, want 400", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)

	env.service.Submit(context.Background(), &export.Request{
		Title:    "Active",
		Segments: []export.SegmentInput{{AssetID: "a"}},
	})

	rec := env.do(t, http.MethodGet, "/status", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp StatusResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.State != "exporting" {
		t.Errorf("state = %s, want exporting", resp.State)
	}
	if resp.ActiveExport == nil || resp.ActiveExport.Title != "Active" {
		t.Errorf("active export = %+v", resp.ActiveExport)
	}
}
