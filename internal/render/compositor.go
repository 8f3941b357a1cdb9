// Package render turns still rasters into short silent clips: title-card
// compositing, per-frame pan/zoom rendering, clip writer sessions and the
// bounded render pool.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// RasterCompositor builds the title-card raster. The export pipeline never
// branches on toolkit availability; headless builds plug in the null
// implementation instead.
type RasterCompositor interface {
	TitleCard(title, subtitle string, size int) image.Image
}

// TextCompositor renders the title card with an embedded typeface over a
// solid background.
type TextCompositor struct {
	background color.RGBA
	foreground color.RGBA
	logger     *slog.Logger
}

func NewTextCompositor(logger *slog.Logger) *TextCompositor {
	return &TextCompositor{
		background: color.RGBA{R: 16, G: 16, B: 20, A: 255},
		foreground: color.RGBA{R: 240, G: 240, B: 240, A: 255},
		logger:     logger,
	}
}

func (c *TextCompositor) TitleCard(title, subtitle string, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{c.background}, image.Point{}, draw.Src)

	titleFace, err := newFace(float64(size) / 14)
	if err != nil {
		c.logger.Warn("title face unavailable, rendering blank card", "error", err)
		return dst
	}
	defer titleFace.Close()

	centerY := size / 2
	if subtitle == "" {
		c.drawCentered(dst, titleFace, title, centerY)
		return dst
	}

	c.drawCentered(dst, titleFace, title, centerY-size/20)

	subFace, err := newFace(float64(size) / 26)
	if err == nil {
		defer subFace.Close()
		c.drawCentered(dst, subFace, subtitle, centerY+size/14)
	}
	return dst
}

func (c *TextCompositor) drawCentered(dst *image.RGBA, face font.Face, text string, baselineY int) {
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c.foreground),
		Face: face,
	}
	width := drawer.MeasureString(text).Ceil()
	x := (dst.Bounds().Dx() - width) / 2
	if x < 0 {
		x = 0
	}
	drawer.Dot = fixed.P(x, baselineY)
	drawer.DrawString(text)
}

func newFace(points float64) (font.Face, error) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    points,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// NullCompositor emits a 1x1 placeholder; used in headless and test builds.
type NullCompositor struct{}

func (NullCompositor) TitleCard(title, subtitle string, size int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}
