package assets

import (
	"time"

	"github.com/google/uuid"
)

const (
	MediaTypePhoto = "photo"
	MediaTypeVideo = "video"
)

// Asset is one cataloged media item.
type Asset struct {
	ID            string    `json:"id"`
	MediaType     string    `json:"media_type"`
	Path          string    `json:"path"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	PixelWidth    int       `json:"pixel_width"`
	PixelHeight   int       `json:"pixel_height"`
	DurationS     float64   `json:"duration_s"`
	CreatedAt     time.Time `json:"created_at"`
}

// Metadata is the subset of asset information the export pipeline consumes.
type Metadata struct {
	MediaType   string
	DurationS   float64
	PixelWidth  int
	PixelHeight int
}

func NewID() string {
	return uuid.NewString()
}
