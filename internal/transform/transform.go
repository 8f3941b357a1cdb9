// Package transform holds the pure geometry used by the export pipeline:
// aspect-fill scaling, crop-anchor clamping and the time-interpolated
// pan/zoom ramps evaluated per output frame.
package transform

// Point is a normalized (0..1, 0..1) position inside a source image.
type Point struct {
	X float64
	Y float64
}

// Center is the neutral anchor.
var Center = Point{X: 0.5, Y: 0.5}

// Size is a pixel dimension pair.
type Size struct {
	Width  float64
	Height float64
}

// Rect is a normalized axis-aligned rectangle of allowed anchor positions.
type Rect struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Unit is the full normalized rectangle.
var Unit = Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}

// AspectFillScale returns the scale factor that makes source cover target on
// both axes (fill semantics, never letterboxed). Non-positive dimensions on
// either side yield the identity scale.
func AspectFillScale(source, target Size) float64 {
	if source.Width <= 0 || source.Height <= 0 || target.Width <= 0 || target.Height <= 0 {
		return 1.0
	}
	sx := target.Width / source.Width
	sy := target.Height / source.Height
	if sx > sy {
		return sx
	}
	return sy
}

// AllowedAnchorRect returns the normalized rectangle of anchor positions for
// which a crop window of size target/scale stays fully inside the source.
// When the window spans the whole source on an axis the rectangle degenerates
// to the center point on that axis.
func AllowedAnchorRect(source, target Size, scale float64) Rect {
	if source.Width <= 0 || source.Height <= 0 || target.Width <= 0 || target.Height <= 0 || scale <= 0 {
		return Unit
	}

	halfX := target.Width / scale / source.Width / 2
	halfY := target.Height / scale / source.Height / 2

	r := Rect{MinX: halfX, MinY: halfY, MaxX: 1 - halfX, MaxY: 1 - halfY}
	if r.MinX > r.MaxX {
		r.MinX, r.MaxX = 0.5, 0.5
	}
	if r.MinY > r.MaxY {
		r.MinY, r.MaxY = 0.5, 0.5
	}
	return r
}

// ClampAnchor clamps p per axis into r.
func ClampAnchor(p Point, r Rect) Point {
	return Point{
		X: clamp(p.X, r.MinX, r.MaxX),
		Y: clamp(p.Y, r.MinY, r.MaxY),
	}
}

// InterpolateAnchor linearly interpolates between start and end at t in [0,1].
func InterpolateAnchor(start, end Point, t float64) Point {
	t = clamp(t, 0, 1)
	return Point{
		X: start.X + (end.X-start.X)*t,
		Y: start.Y + (end.Y-start.Y)*t,
	}
}

// InterpolateZoom linearly interpolates between z0 and z1 at t in [0,1].
func InterpolateZoom(z0, z1, t float64) float64 {
	t = clamp(t, 0, 1)
	return z0 + (z1-z0)*t
}

// CropWindow returns the source-space pixel rectangle (x, y, w, h) of the crop
// for the given anchor and zoom: the aspect-fill window shrunk by zoom,
// centered on the anchor and clamped so it stays inside the source.
func CropWindow(source, target Size, anchor Point, zoom float64) (x, y, w, h float64) {
	if zoom < 1 {
		zoom = 1
	}
	scale := AspectFillScale(source, target) * zoom
	if scale <= 0 {
		return 0, 0, source.Width, source.Height
	}

	w = target.Width / scale
	h = target.Height / scale
	if w > source.Width {
		w = source.Width
	}
	if h > source.Height {
		h = source.Height
	}

	allowed := AllowedAnchorRect(source, target, scale)
	a := ClampAnchor(anchor, allowed)

	x = a.X*source.Width - w/2
	y = a.Y*source.Height - h/2
	x = clamp(x, 0, source.Width-w)
	y = clamp(y, 0, source.Height-h)
	return x, y, w, h
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
