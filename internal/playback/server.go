// Package playback streams finished movies to local video players over HTTP
// with byte-range support, so scrubbing works without downloading the whole
// file.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// MovieServer serves files out of the movies directory by their
// directory-relative path.
type MovieServer struct {
	moviesDir string
	logger    *slog.Logger
}

func NewMovieServer(moviesDir string, logger *slog.Logger) *MovieServer {
	return &MovieServer{moviesDir: moviesDir, logger: logger}
}

// ServeMovie streams one finished movie. relativePath must stay inside the
// movies directory; anything else is rejected.
func (s *MovieServer) ServeMovie(w http.ResponseWriter, r *http.Request, relativePath string) error {
	if relativePath == "" || !filepath.IsLocal(relativePath) {
		http.Error(w, "invalid movie path", http.StatusBadRequest)
		return nil
	}

	file, err := os.Open(filepath.Join(s.moviesDir, relativePath))
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "movie not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open movie: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat movie: %w", err)
	}

	size := stat.Size()
	contentType := mime.TypeByExtension(filepath.Ext(relativePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	window, err := ParseByteRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiableRange) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}
	if err != nil && !errors.Is(err, ErrMalformedRange) {
		return err
	}

	// No window (or a header we could not read): send the whole movie.
	if window == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, file)
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", window.Length()))
	w.Header().Set("Content-Range", window.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := file.Seek(window.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek movie: %w", err)
	}

	io.CopyN(w, file, window.Length())
	return nil
}
