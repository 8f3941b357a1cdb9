package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/framewall/framewall-agent/internal/assets"
	"github.com/framewall/framewall-agent/internal/encoder"
	"github.com/framewall/framewall-agent/internal/media"
	"github.com/framewall/framewall-agent/internal/render"
	"github.com/framewall/framewall-agent/internal/timeline"
	"github.com/framewall/framewall-agent/internal/transform"
)

const titleClipID = "title"

// Options are the render and layout settings of one exporter instance.
type Options struct {
	RenderSize       int
	FrameRate        int
	TitleCardSeconds float64
	StillClipSeconds float64
	MinClipSeconds   float64
	MaxTitleLength   int
	MoviesDir        string
	ScratchRoot      string
}

// The encode collaborators are consumed through narrow interfaces so tests
// can substitute them without a toolchain on the machine.
type primaryEncoder interface {
	Encode(ctx context.Context, comp *timeline.Composition, dst string, onProgress func(float64)) error
}

type fallbackTranscoder interface {
	Transcode(ctx context.Context, comp *timeline.Composition, scratchDir, dst string, audio *encoder.AudioParams, onProgress func(float64)) error
}

type audioNormalizer interface {
	Normalize(ctx context.Context, path, scratchDir string) (bool, error)
}

type clipPool interface {
	RenderAll(ctx context.Context, jobs []render.ClipJob, scratchDir string, onDone func(done, total int)) (*render.PoolResult, error)
}

// Exporter runs one export end to end: resolve, render, assemble, encode,
// normalize, publish.
type Exporter struct {
	opts       Options
	library    assets.Library
	prober     media.Prober
	pool       clipPool
	compositor render.RasterCompositor
	assembler  *timeline.Assembler
	primary    primaryEncoder
	fallback   fallbackTranscoder
	normalizer audioNormalizer
	logger     *slog.Logger
}

func NewExporter(
	opts Options,
	library assets.Library,
	prober media.Prober,
	pool clipPool,
	compositor render.RasterCompositor,
	primary primaryEncoder,
	fallback fallbackTranscoder,
	normalizer audioNormalizer,
	logger *slog.Logger,
) *Exporter {
	return &Exporter{
		opts:       opts,
		library:    library,
		prober:     prober,
		pool:       pool,
		compositor: compositor,
		assembler:  timeline.NewAssembler(opts.TitleCardSeconds, opts.MinClipSeconds),
		primary:    primary,
		fallback:   fallback,
		normalizer: normalizer,
		logger:     logger,
	}
}

// resolvedSegment is one request item after asset resolution, still in
// request order.
type resolvedSegment struct {
	instanceID string
	kind       timeline.Kind

	img         image.Image
	startAnchor transform.Point
	endAnchor   transform.Point

	location  string
	trimStart float64
	trimEnd   float64
	duration  float64
	crop      transform.Point
	hasAudio  bool
}

// Export runs the full pipeline for one request. Progress callbacks are
// forward-only; the scratch directory is removed on every exit path.
func (e *Exporter) Export(ctx context.Context, id string, req *Request, onProgress func(float64), onStatus func(string)) (*Result, error) {
	rep := NewReporter(onProgress, onStatus)
	log := e.logger.With("export_id", id)

	title := SanitizeTitle(req.Title, e.opts.MaxTitleLength)
	rep.Status("Preparing export")
	rep.Progress(progressResolveStart)

	scratch, err := NewScratch(e.opts.ScratchRoot, id)
	if err != nil {
		return nil, err
	}
	defer scratch.Cleanup()

	resolved, missing, err := e.resolveSegments(ctx, req.Segments)
	if err != nil {
		return nil, err
	}
	if missing > 0 {
		rep.Status(fmt.Sprintf("Skipped %d missing item(s)", missing))
	}
	rep.Progress(progressResolveEnd)
	if len(resolved) == 0 {
		return nil, timeline.ErrNoUsableMedia
	}

	rep.Status("Rendering clips")
	titlePath, clips, err := e.renderClips(ctx, title, req.Subtitle, resolved, scratch, rep)
	if err != nil {
		return nil, err
	}

	rep.Status("Assembling timeline")
	units := buildUnits(resolved, clips, e.opts.StillClipSeconds)
	comp, err := e.assembler.Assemble(titlePath, units)
	if err != nil {
		return nil, err
	}
	rep.Progress(progressAssembleEnd)

	encodedPath := scratch.Path("movie.mp4")
	rep.Status("Encoding movie")
	if err := e.encode(ctx, comp, scratch, encodedPath, rep); err != nil {
		return nil, err
	}
	rep.Progress(progressEncodeEnd)

	if comp.HasAudio() && e.normalizer != nil {
		if ran, nerr := e.normalizer.Normalize(ctx, encodedPath, scratch.Dir); nerr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("audio normalization failed, keeping original audio", "error", nerr)
			rep.Status("Audio normalization failed, keeping original audio")
		} else if ran {
			rep.Status("Audio normalized")
		}
	}

	result, err := e.publish(comp, title, encodedPath)
	if err != nil {
		return nil, err
	}
	rep.Progress(1.0)
	rep.Status("Export complete")
	log.Info("export complete",
		"path", result.RelativePath,
		"duration_s", result.DurationS,
		"size_bytes", result.SizeBytes,
	)
	return result, nil
}

// resolveSegments asks the library for every requested item. Unresolvable
// items are counted and skipped, never fatal here.
func (e *Exporter) resolveSegments(ctx context.Context, segments []SegmentInput) ([]resolvedSegment, int, error) {
	target := transform.Size{Width: float64(e.opts.RenderSize), Height: float64(e.opts.RenderSize)}

	var resolved []resolvedSegment
	missing := 0
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		instanceID := fmt.Sprintf("seg-%03d", i)

		meta, err := e.library.Metadata(ctx, seg.AssetID)
		if err != nil || meta == nil {
			missing++
			continue
		}

		switch meta.MediaType {
		case assets.MediaTypePhoto:
			img, err := e.library.Thumbnail(ctx, seg.AssetID)
			if err != nil || img == nil {
				missing++
				continue
			}

			source := transform.Size{Width: float64(meta.PixelWidth), Height: float64(meta.PixelHeight)}
			if source.Width <= 0 || source.Height <= 0 {
				b := img.Bounds()
				source = transform.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
			}
			allowed := transform.AllowedAnchorRect(source, target, transform.AspectFillScale(source, target))

			resolved = append(resolved, resolvedSegment{
				instanceID:  instanceID,
				kind:        timeline.KindImage,
				img:         img,
				startAnchor: transform.ClampAnchor(anchorOrCenter(seg.StartAnchor), allowed),
				endAnchor:   transform.ClampAnchor(anchorOrCenter(seg.EndAnchor), allowed),
			})

		case assets.MediaTypeVideo:
			loc, err := e.library.VideoLocation(ctx, seg.AssetID)
			if err != nil || loc == "" {
				missing++
				continue
			}

			duration := meta.DurationS
			hasAudio := false
			if probe, perr := e.prober.Probe(ctx, loc); perr == nil && probe != nil {
				if probe.DurationS > 0 {
					duration = probe.DurationS
				}
				hasAudio = probe.HasAudio
			}

			resolved = append(resolved, resolvedSegment{
				instanceID: instanceID,
				kind:       timeline.KindVideo,
				location:   loc,
				trimStart:  seg.TrimStart,
				trimEnd:    seg.TrimEnd,
				duration:   duration,
				crop:       transform.ClampAnchor(anchorOrCenter(seg.CropAnchor), transform.Unit),
				hasAudio:   hasAudio,
			})

		default:
			missing++
		}
	}
	return resolved, missing, nil
}

// renderClips renders the title card and every image segment through the
// bounded pool. A failed image clip drops that segment; a failed title card
// fails the export.
func (e *Exporter) renderClips(ctx context.Context, title, subtitle string, resolved []resolvedSegment, scratch *Scratch, rep *Reporter) (string, map[string]string, error) {
	jobs := []render.ClipJob{{
		InstanceID: titleClipID,
		Spec: render.ClipSpec{
			Image:       e.compositor.TitleCard(title, subtitle, e.opts.RenderSize),
			StartAnchor: transform.Center,
			EndAnchor:   transform.Center,
			StartZoom:   1.0,
			EndZoom:     1.0,
			DurationS:   e.opts.TitleCardSeconds,
		},
	}}
	for _, r := range resolved {
		if r.kind != timeline.KindImage {
			continue
		}
		jobs = append(jobs, render.ClipJob{
			InstanceID: r.instanceID,
			Spec: render.ClipSpec{
				Image:       r.img,
				StartAnchor: r.startAnchor,
				EndAnchor:   r.endAnchor,
				StartZoom:   1.0,
				EndZoom:     1.1,
				DurationS:   e.opts.StillClipSeconds,
			},
		})
	}

	result, err := e.pool.RenderAll(ctx, jobs, scratch.Dir, func(done, total int) {
		rep.Progress(stageFraction(progressResolveEnd, progressRenderEnd, float64(done)/float64(total)))
	})
	if err != nil {
		return "", nil, err
	}

	titlePath, ok := result.Clips[titleClipID]
	if !ok {
		return "", nil, fmt.Errorf("render title card: %w", result.Failures[titleClipID])
	}
	for id := range result.Failures {
		if id != titleClipID {
			rep.Status(fmt.Sprintf("Skipped one item that failed to render (%s)", id))
		}
	}
	rep.Progress(progressRenderEnd)
	return titlePath, result.Clips, nil
}

// buildUnits converts resolved segments into assembler units, in request
// order, dropping image segments whose clip render failed.
func buildUnits(resolved []resolvedSegment, clips map[string]string, stillSeconds float64) []timeline.Unit {
	units := make([]timeline.Unit, 0, len(resolved))
	for _, r := range resolved {
		switch r.kind {
		case timeline.KindImage:
			path, ok := clips[r.instanceID]
			if !ok {
				continue
			}
			units = append(units, timeline.Unit{
				InstanceID: r.instanceID,
				Kind:       timeline.KindImage,
				ClipPath:   path,
				DurationS:  stillSeconds,
			})
		case timeline.KindVideo:
			units = append(units, timeline.Unit{
				InstanceID:      r.instanceID,
				Kind:            timeline.KindVideo,
				Location:        r.location,
				TrimStart:       r.trimStart,
				TrimEnd:         r.trimEnd,
				SourceDurationS: r.duration,
				CropAnchor:      r.crop,
				SourceHasAudio:  r.hasAudio,
			})
		}
	}
	return units
}

// encode runs the primary path and, when its retries exhaust on the
// recoverable capability class, the fallback transcoder.
func (e *Exporter) encode(ctx context.Context, comp *timeline.Composition, scratch *Scratch, dst string, rep *Reporter) error {
	err := e.primary.Encode(ctx, comp, dst, rep.Progress)
	if err == nil {
		return nil
	}

	var capErr *encoder.CapabilityError
	if !errors.As(err, &capErr) {
		return err
	}

	e.logger.Warn("primary encoder exhausted retries, falling back", "error", capErr)
	rep.Status("Primary encoder unavailable, transcoding manually")
	os.Remove(dst)

	var audio *encoder.AudioParams
	if comp.HasAudio() {
		params := e.audioParams(ctx, comp)
		audio = &params
	}
	return e.fallback.Transcode(ctx, comp, scratch.Dir, dst, audio, rep.Progress)
}

// audioParams reads sample rate and channel count from the first source with
// audio, falling back to 44.1kHz stereo.
func (e *Exporter) audioParams(ctx context.Context, comp *timeline.Composition) encoder.AudioParams {
	for _, entry := range comp.Entries {
		if entry.Kind != timeline.KindVideo || !entry.SourceHasAudio {
			continue
		}
		probe, err := e.prober.Probe(ctx, entry.Source)
		if err != nil || probe == nil {
			break
		}
		if probe.SampleRate > 0 && probe.Channels > 0 {
			return encoder.AudioParams{SampleRate: probe.SampleRate, Channels: probe.Channels}
		}
		break
	}
	return encoder.DefaultAudioParams()
}

// publish moves the encoded movie from scratch into the movies directory
// under a collision-free name and writes the EDL sidecar.
func (e *Exporter) publish(comp *timeline.Composition, title, encodedPath string) (*Result, error) {
	if err := os.MkdirAll(e.opts.MoviesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create movies dir: %w", err)
	}

	final := OutputPath(e.opts.MoviesDir, title)
	if err := os.Rename(encodedPath, final); err != nil {
		return nil, fmt.Errorf("publish movie: %w", err)
	}

	edlPath := strings.TrimSuffix(final, ".mp4") + ".edl"
	if err := os.WriteFile(edlPath, []byte(GenerateEDL(comp, title, e.opts.FrameRate)), 0o644); err != nil {
		e.logger.Warn("edl sidecar write failed", "error", err)
	}

	info, err := os.Stat(final)
	if err != nil {
		return nil, fmt.Errorf("stat published movie: %w", err)
	}

	return &Result{
		RelativePath: filepath.Base(final),
		DurationS:    comp.TotalS,
		SizeBytes:    info.Size(),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func anchorOrCenter(p *transform.Point) transform.Point {
	if p == nil {
		return transform.Center
	}
	return *p
}
