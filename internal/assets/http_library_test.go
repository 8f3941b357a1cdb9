package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHTTPLibrary_Metadata_Success(t *testing.T) {
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/assets/a1/metadata" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		receivedAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"media_type":   "video",
			"duration_s":   8.25,
			"pixel_width":  1920,
			"pixel_height": 1080,
		})
	}))
	defer server.Close()

	lib := NewHTTPLibrary(server.URL, "test-token", testLogger())

	meta, err := lib.Metadata(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta == nil {
		t.Fatal("Metadata() = nil, want metadata")
	}
	if meta.MediaType != MediaTypeVideo || meta.DurationS != 8.25 || meta.PixelWidth != 1920 {
		t.Errorf("metadata = %+v", meta)
	}
	if receivedAuth != "Bearer test-token" {
		t.Errorf("auth = %q, want %q", receivedAuth, "Bearer test-token")
	}
}

func TestHTTPLibrary_Metadata_NotFoundIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	lib := NewHTTPLibrary(server.URL, "t", testLogger())

	meta, err := lib.Metadata(context.Background(), "gone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta != nil {
		t.Fatalf("Metadata() = %+v, want nil for 404", meta)
	}
}

func TestHTTPLibrary_Metadata_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	lib := NewHTTPLibrary(server.URL, "t", testLogger())

	_, err := lib.Metadata(context.Background(), "a1")
	if err == nil {
		t.Fatal("expected error for 500")
	}

	libErr, ok := err.(*LibraryError)
	if !ok {
		t.Fatalf("error type = %T, want *LibraryError", err)
	}
	if !libErr.IsRetryable() {
		t.Error("500 should be retryable")
	}
	if libErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", libErr.StatusCode)
	}
}

func TestHTTPLibrary_Thumbnail_DecodesPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	lib := NewHTTPLibrary(server.URL, "t", testLogger())

	img, err := lib.Thumbnail(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img == nil {
		t.Fatal("Thumbnail() = nil, want image")
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("width = %d, want 4", img.Bounds().Dx())
	}
}

func TestHTTPLibrary_VideoLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"path": "/media/v.mp4"})
	}))
	defer server.Close()

	lib := NewHTTPLibrary(server.URL, "t", testLogger())

	path, err := lib.VideoLocation(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/media/v.mp4" {
		t.Errorf("path = %q, want /media/v.mp4", path)
	}
}
