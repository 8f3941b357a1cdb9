// Package export is the top of the movie pipeline: it resolves an ordered
// segment list against the asset library, renders image clips, assembles the
// timeline, drives the encoders, and owns the export job records.
package export

import (
	"time"

	"github.com/framewall/framewall-agent/internal/transform"
)

// Render states of one export attempt. Ready and failed are terminal.
const (
	StatePending   = "pending"
	StateRendering = "rendering"
	StateReady     = "ready"
	StateFailed    = "failed"
)

// SegmentInput is one requested scene item as submitted by the caller. An
// item references an asset; everything else is optional render tuning.
type SegmentInput struct {
	AssetID string `json:"asset_id"`

	// Pan anchors for photo items, normalized 0..1. Nil means center.
	StartAnchor *transform.Point `json:"start_anchor,omitempty"`
	EndAnchor   *transform.Point `json:"end_anchor,omitempty"`

	// Trim window and crop anchor for video items.
	TrimStart  float64          `json:"trim_start,omitempty"`
	TrimEnd    float64          `json:"trim_end,omitempty"`
	CropAnchor *transform.Point `json:"crop_anchor,omitempty"`
}

// Request is one export invocation: a draft title, optional subtitle, and the
// ordered segments. It is created per call and never persisted as-is.
type Request struct {
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle,omitempty"`
	Segments []SegmentInput `json:"segments"`
}

// Result is the terminal payload of a successful export.
type Result struct {
	RelativePath string    `json:"relative_path"`
	DurationS    float64   `json:"duration_s"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

// Record is the persisted job row for one export.
type Record struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle,omitempty"`
	State      string    `json:"state"`
	Progress   float64   `json:"progress"`
	StatusLine string    `json:"status_line,omitempty"`
	Error      string    `json:"error,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	DurationS  float64   `json:"duration_s"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
