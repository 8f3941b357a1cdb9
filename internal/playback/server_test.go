package playback

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func testServer(t *testing.T) (*MovieServer, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewMovieServer(dir, logger), dir
}

func TestServeMovie_FullFile(t *testing.T) {
	srv, dir := testServer(t)
	os.WriteFile(filepath.Join(dir, "Trip.mp4"), []byte("0123456789"), 0o644)

	req := httptest.NewRequest(http.MethodGet, "/movies/Trip.mp4", nil)
	rec := httptest.NewRecorder()
	if err := srv.ServeMovie(rec, req, "Trip.mp4"); err != nil {
		t.Fatalf("ServeMovie() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "video/mp4" {
		t.Errorf("content type = %s", rec.Header().Get("Content-Type"))
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "0123456789" {
		t.Errorf("body = %q", body)
	}
}

func TestServeMovie_Range(t *testing.T) {
	srv, dir := testServer(t)
	os.WriteFile(filepath.Join(dir, "Trip.mp4"), []byte("0123456789"), 0o644)

	req := httptest.NewRequest(http.MethodGet, "/movies/Trip.mp4", nil)
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()
	if err := srv.ServeMovie(rec, req, "Trip.mp4"); err != nil {
		t.Fatalf("ServeMovie() error = %v", err)
	}

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("content range = %s", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "2345" {
		t.Errorf("body = %q", body)
	}
}

func TestServeMovie_NotFound(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	if err := srv.ServeMovie(rec, httptest.NewRequest(http.MethodGet, "/m", nil), "Missing.mp4"); err != nil {
		t.Fatalf("ServeMovie() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServeMovie_RejectsTraversal(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"../secrets.txt", "/etc/passwd", ""} {
		rec := httptest.NewRecorder()
		if err := srv.ServeMovie(rec, httptest.NewRequest(http.MethodGet, "/m", nil), path); err != nil {
			t.Fatalf("ServeMovie(%q) error = %v", path, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("ServeMovie(%q) status = %d, want 400", path, rec.Code)
		}
	}
}
