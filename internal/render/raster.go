package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// toRGBA normalizes any decoded image to RGBA with a zero origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// cropScale samples the source-space window (cx, cy, cw, ch) into a fresh
// dstSize×dstSize frame using bilinear filtering. The window may have
// fractional position and extent; it is assumed to lie inside the source.
func cropScale(src *image.RGBA, cx, cy, cw, ch float64, dstSize int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, dstSize, dstSize))
	if cw <= 0 || ch <= 0 || dstSize <= 0 {
		return dst
	}

	sb := src.Bounds()
	maxX := sb.Dx() - 1
	maxY := sb.Dy() - 1

	for y := 0; y < dstSize; y++ {
		fy := cy + (float64(y)+0.5)/float64(dstSize)*ch - 0.5
		if fy < 0 {
			fy = 0
		}
		y0 := int(math.Floor(fy))
		if y0 > maxY {
			y0 = maxY
		}
		y1 := y0 + 1
		if y1 > maxY {
			y1 = maxY
		}
		wy := fy - float64(y0)

		for x := 0; x < dstSize; x++ {
			fx := cx + (float64(x)+0.5)/float64(dstSize)*cw - 0.5
			if fx < 0 {
				fx = 0
			}
			x0 := int(math.Floor(fx))
			if x0 > maxX {
				x0 = maxX
			}
			x1 := x0 + 1
			if x1 > maxX {
				x1 = maxX
			}
			wx := fx - float64(x0)

			c00 := src.RGBAAt(x0, y0)
			c10 := src.RGBAAt(x1, y0)
			c01 := src.RGBAAt(x0, y1)
			c11 := src.RGBAAt(x1, y1)

			r := bilerp(float64(c00.R), float64(c10.R), float64(c01.R), float64(c11.R), wx, wy)
			g := bilerp(float64(c00.G), float64(c10.G), float64(c01.G), float64(c11.G), wx, wy)
			b := bilerp(float64(c00.B), float64(c10.B), float64(c01.B), float64(c11.B), wx, wy)
			a := bilerp(float64(c00.A), float64(c10.A), float64(c01.A), float64(c11.A), wx, wy)

			dst.SetRGBA(x, y, color.RGBA{uint8(r + 0.5), uint8(g + 0.5), uint8(b + 0.5), uint8(a + 0.5)})
		}
	}
	return dst
}

func bilerp(c00, c10, c01, c11, wx, wy float64) float64 {
	top := c00 + (c10-c00)*wx
	bot := c01 + (c11-c01)*wx
	return top + (bot-top)*wy
}
