package render

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/framewall/framewall-agent/internal/transform"
)

// ClipSpec describes one still image to be rendered into a silent clip with
// a pan/zoom ramp.
type ClipSpec struct {
	Image       image.Image
	StartAnchor transform.Point
	EndAnchor   transform.Point
	StartZoom   float64
	EndZoom     float64
	DurationS   float64
}

// Renderer writes pan/zoom animations of still images frame by frame.
type Renderer struct {
	size   int
	fps    int
	logger *slog.Logger
}

func NewRenderer(size, fps int, logger *slog.Logger) *Renderer {
	return &Renderer{size: size, fps: fps, logger: logger}
}

// Render produces every frame of the clip into w. The caller owns the writer
// lifecycle; on error the writer should be aborted, not closed.
func (r *Renderer) Render(ctx context.Context, spec ClipSpec, w FrameWriter) error {
	if spec.Image == nil {
		return fmt.Errorf("clip render: nil image")
	}
	if spec.DurationS <= 0 {
		return fmt.Errorf("clip render: non-positive duration %v", spec.DurationS)
	}

	src := toRGBA(spec.Image)
	bounds := src.Bounds()
	source := transform.Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
	target := transform.Size{Width: float64(r.size), Height: float64(r.size)}

	startZoom := spec.StartZoom
	endZoom := spec.EndZoom
	if startZoom <= 0 {
		startZoom = 1.0
	}
	if endZoom <= 0 {
		endZoom = 1.0
	}

	frames := r.FrameCount(spec.DurationS)

	for f := 0; f < frames; f++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		t := 0.0
		if frames > 1 {
			t = float64(f) / float64(frames-1)
		}

		anchor := transform.InterpolateAnchor(spec.StartAnchor, spec.EndAnchor, t)
		zoom := transform.InterpolateZoom(startZoom, endZoom, t)

		cx, cy, cw, ch := transform.CropWindow(source, target, anchor, zoom)
		frame := cropScale(src, cx, cy, cw, ch, r.size)

		if err := w.WriteFrame(frame); err != nil {
			return fmt.Errorf("frame %d: %w", f, err)
		}
	}
	return nil
}

// FrameCount returns how many frames a clip of the given duration renders.
func (r *Renderer) FrameCount(durationS float64) int {
	n := int(math.Ceil(durationS * float64(r.fps)))
	if n < 1 {
		n = 1
	}
	return n
}
