package api

import (
	"time"

	"github.com/framewall/framewall-agent/internal/assets"
	"github.com/framewall/framewall-agent/internal/export"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id,omitempty"`
}

type EncoderStatusResponse struct {
	HasFFmpeg   bool   `json:"has_ffmpeg"`
	HasFFprobe  bool   `json:"has_ffprobe"`
	HasH264     bool   `json:"has_h264"`
	HasAAC      bool   `json:"has_aac"`
	FFmpegBuild string `json:"ffmpeg_build,omitempty"`
	LastProbeAt string `json:"last_probe_at,omitempty"`
}

type StatusResponse struct {
	State        string                 `json:"state"`
	LastError    string                 `json:"last_error,omitempty"`
	AssetsCount  int                    `json:"assets_count"`
	ActiveExport *ExportResponse        `json:"active_export,omitempty"`
	Encoder      *EncoderStatusResponse `json:"encoder,omitempty"`
}

type ExportResponse struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Subtitle   string  `json:"subtitle,omitempty"`
	State      string  `json:"state"`
	Progress   float64 `json:"progress"`
	StatusLine string  `json:"status_line,omitempty"`
	Error      string  `json:"error,omitempty"`
	OutputPath string  `json:"output_path,omitempty"`
	DurationS  float64 `json:"duration_s,omitempty"`
	SizeBytes  int64   `json:"size_bytes,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type ExportsResponse struct {
	Exports []ExportResponse `json:"exports"`
}

type SubmitExportResponse struct {
	ExportID string `json:"export_id"`
}

type AssetResponse struct {
	ID          string  `json:"id"`
	MediaType   string  `json:"media_type"`
	Path        string  `json:"path"`
	PixelWidth  int     `json:"pixel_width"`
	PixelHeight int     `json:"pixel_height"`
	DurationS   float64 `json:"duration_s,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type AssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

type CreateAssetRequest struct {
	MediaType     string  `json:"media_type"`
	Path          string  `json:"path"`
	ThumbnailPath string  `json:"thumbnail_path,omitempty"`
	PixelWidth    int     `json:"pixel_width"`
	PixelHeight   int     `json:"pixel_height"`
	DurationS     float64 `json:"duration_s,omitempty"`
}

type CreateAssetResponse struct {
	AssetID string `json:"asset_id"`
}

func ExportToResponse(rec *export.Record) ExportResponse {
	return ExportResponse{
		ID:         rec.ID,
		Title:      rec.Title,
		Subtitle:   rec.Subtitle,
		State:      rec.State,
		Progress:   rec.Progress,
		StatusLine: rec.StatusLine,
		Error:      rec.Error,
		OutputPath: rec.OutputPath,
		DurationS:  rec.DurationS,
		SizeBytes:  rec.SizeBytes,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  rec.UpdatedAt.Format(time.RFC3339),
	}
}

func AssetToResponse(a *assets.Asset) AssetResponse {
	return AssetResponse{
		ID:          a.ID,
		MediaType:   a.MediaType,
		Path:        a.Path,
		PixelWidth:  a.PixelWidth,
		PixelHeight: a.PixelHeight,
		DurationS:   a.DurationS,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}
