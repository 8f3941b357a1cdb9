// Package timeline builds the ordered composition an export encodes: a
// title-card clip followed by every usable segment, each stamped with its
// start time, duration, and crop/zoom parameters.
package timeline

import (
	"errors"

	"github.com/framewall/framewall-agent/internal/transform"
)

// ErrNoUsableMedia is returned when every requested segment resolved to a
// missing or unrenderable asset. The message is surfaced verbatim to the
// caller's status line.
var ErrNoUsableMedia = errors.New("No usable media items to export.")

// Kind discriminates the two unit flavors in a composition.
type Kind int

const (
	KindTitle Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindTitle:
		return "title"
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Unit is one resolved, renderable item handed to the assembler: either a
// pre-rendered image clip sitting on scratch storage, or a trim range into a
// source video file.
type Unit struct {
	InstanceID string
	Kind       Kind

	// Image units.
	ClipPath  string
	DurationS float64

	// Video units.
	Location        string
	TrimStart       float64
	TrimEnd         float64
	SourceDurationS float64
	CropAnchor      transform.Point
	SourceHasAudio  bool
}

// Entry is one finished row of the composition. Entries are ordered and
// read-only once the composition is built.
type Entry struct {
	InstanceID string
	Kind       Kind
	StartS     float64
	DurationS  float64

	// Source is the clip path for title/image entries and the source video
	// location for video entries.
	Source string

	// Video entries carry a trim window into Source plus crop/zoom params.
	TrimStart      float64
	TrimEnd        float64
	CropAnchor     transform.Point
	ZoomStart      float64
	ZoomEnd        float64
	SourceHasAudio bool
}

// Composition is the assembled timeline plus its total presentation length.
type Composition struct {
	Entries []Entry
	TotalS  float64
}

// HasVideoUnits reports whether any entry copies from a source video, which
// is the only way audio can reach the output.
func (c *Composition) HasVideoUnits() bool {
	for _, e := range c.Entries {
		if e.Kind == KindVideo {
			return true
		}
	}
	return false
}

// HasAudio reports whether any video entry's source carries an audio track.
func (c *Composition) HasAudio() bool {
	for _, e := range c.Entries {
		if e.Kind == KindVideo && e.SourceHasAudio {
			return true
		}
	}
	return false
}

// Assembler concatenates units into a composition.
type Assembler struct {
	titleSeconds   float64
	minClipSeconds float64
}

func NewAssembler(titleSeconds, minClipSeconds float64) *Assembler {
	return &Assembler{titleSeconds: titleSeconds, minClipSeconds: minClipSeconds}
}

// Assemble builds the composition: the title card first, then every unit in
// the order given. Video trim windows are clamped to the source duration and
// stretched to the minimum clip length; consecutive video units alternate a
// 1.0→1.1 / 1.1→1.0 zoom ramp. Returns ErrNoUsableMedia when no units
// survive resolution.
func (a *Assembler) Assemble(titleClipPath string, units []Unit) (*Composition, error) {
	if len(units) == 0 {
		return nil, ErrNoUsableMedia
	}

	comp := &Composition{Entries: make([]Entry, 0, len(units)+1)}
	cursor := 0.0

	comp.Entries = append(comp.Entries, Entry{
		InstanceID: "title",
		Kind:       KindTitle,
		StartS:     cursor,
		DurationS:  a.titleSeconds,
		Source:     titleClipPath,
	})
	cursor += a.titleSeconds

	videoCount := 0
	for _, u := range units {
		switch u.Kind {
		case KindImage:
			comp.Entries = append(comp.Entries, Entry{
				InstanceID: u.InstanceID,
				Kind:       KindImage,
				StartS:     cursor,
				DurationS:  u.DurationS,
				Source:     u.ClipPath,
			})
			cursor += u.DurationS

		case KindVideo:
			start, end := a.clampTrim(u.TrimStart, u.TrimEnd, u.SourceDurationS)
			zoomStart, zoomEnd := 1.0, 1.1
			if videoCount%2 == 1 {
				zoomStart, zoomEnd = 1.1, 1.0
			}
			videoCount++

			comp.Entries = append(comp.Entries, Entry{
				InstanceID:     u.InstanceID,
				Kind:           KindVideo,
				StartS:         cursor,
				DurationS:      end - start,
				Source:         u.Location,
				TrimStart:      start,
				TrimEnd:        end,
				CropAnchor:     u.CropAnchor,
				ZoomStart:      zoomStart,
				ZoomEnd:        zoomEnd,
				SourceHasAudio: u.SourceHasAudio,
			})
			cursor += end - start
		}
	}

	comp.TotalS = cursor
	return comp, nil
}

// clampTrim confines the trim window to [0, sourceDuration] and enforces the
// minimum clip length by extending the end first, then pulling the start
// back. Sources shorter than the minimum yield their full length.
func (a *Assembler) clampTrim(trimStart, trimEnd, sourceDuration float64) (float64, float64) {
	start := trimStart
	if start < 0 {
		start = 0
	}
	end := trimEnd
	if sourceDuration > 0 {
		if start > sourceDuration {
			start = sourceDuration
		}
		if end > sourceDuration {
			end = sourceDuration
		}
	}
	if end < start {
		end = start
	}

	if end-start < a.minClipSeconds {
		end = start + a.minClipSeconds
		if sourceDuration > 0 && end > sourceDuration {
			end = sourceDuration
			start = end - a.minClipSeconds
			if start < 0 {
				start = 0
			}
		}
	}
	return start, end
}
