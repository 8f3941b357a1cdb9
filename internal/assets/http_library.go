package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// LibraryError represents an error response from a remote asset service.
type LibraryError struct {
	StatusCode int
	Body       string
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("asset service failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *LibraryError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPLibrary is a Library backed by a remote asset service. Not-found
// responses are mapped to nil results so the pipeline skips the segment.
type HTTPLibrary struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPLibrary(baseURL, token string, logger *slog.Logger) *HTTPLibrary {
	return &HTTPLibrary{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (l *HTTPLibrary) Thumbnail(ctx context.Context, assetID string) (image.Image, error) {
	resp, err := l.get(ctx, fmt.Sprintf("/api/assets/%s/thumbnail", assetID))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	defer resp.Body.Close()

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		l.logger.Warn("remote thumbnail undecodable", "asset_id", assetID, "error", err)
		return nil, nil
	}
	return img, nil
}

func (l *HTTPLibrary) VideoLocation(ctx context.Context, assetID string) (string, error) {
	resp, err := l.get(ctx, fmt.Sprintf("/api/assets/%s/location", assetID))
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	defer resp.Body.Close()

	var out struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode location response: %w", err)
	}
	return out.Path, nil
}

func (l *HTTPLibrary) Metadata(ctx context.Context, assetID string) (*Metadata, error) {
	resp, err := l.get(ctx, fmt.Sprintf("/api/assets/%s/metadata", assetID))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	defer resp.Body.Close()

	var out struct {
		MediaType   string  `json:"media_type"`
		DurationS   float64 `json:"duration_s"`
		PixelWidth  int     `json:"pixel_width"`
		PixelHeight int     `json:"pixel_height"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode metadata response: %w", err)
	}
	return &Metadata{
		MediaType:   out.MediaType,
		DurationS:   out.DurationS,
		PixelWidth:  out.PixelWidth,
		PixelHeight: out.PixelHeight,
	}, nil
}

// get performs an authenticated GET. A 404 yields (nil, nil) so callers can
// treat the asset as missing rather than the request as failed.
func (l *HTTPLibrary) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.token)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &LibraryError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}
