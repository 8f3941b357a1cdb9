package encoder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/framewall/framewall-agent/internal/media"
	"github.com/framewall/framewall-agent/internal/timeline"
)

// Encode-stage progress window. Earlier stages (resolve, clip render,
// assembly) own 0.0 through 0.68; both encode paths map their internal
// progress into the remaining span.
const (
	encodeProgressBase = 0.68
	encodeProgressSpan = 0.30
)

// State tracks one primary-encoder run.
type State int

const (
	StateIdle State = iota
	StateSubmitted
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitted:
		return "submitted"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Session runs one encode attempt of a composition into dst, reporting raw
// 0..1 progress.
type Session interface {
	Encode(ctx context.Context, comp *timeline.Composition, dst string, onProgress func(float64)) error
}

// CapabilityError marks the recoverable-capability failure class after the
// primary encoder exhausted its retries. The exporter answers it by running
// the fallback transcoder.
type CapabilityError struct {
	Attempts int
	Err      error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("encoder capability mismatch persisted across %d attempts: %v", e.Attempts, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Primary drives the first-choice encode path: submit, poll progress, retry
// with backoff when the failure is classified recoverable.
type Primary struct {
	session    Session
	classifier *Classifier
	attempts   int
	backoff    []time.Duration
	logger     *slog.Logger

	mu    sync.Mutex
	state State
}

func NewPrimary(session Session, classifier *Classifier, attempts int, backoff []time.Duration, logger *slog.Logger) *Primary {
	if attempts < 1 {
		attempts = 1
	}
	return &Primary{
		session:    session,
		classifier: classifier,
		attempts:   attempts,
		backoff:    backoff,
		logger:     logger,
		state:      StateIdle,
	}
}

// State returns the most recent run's state.
func (p *Primary) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Primary) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Encode runs up to the configured number of attempts. Progress values
// forwarded to onProgress are already mapped into the encode stage's window.
// Non-recoverable failures propagate immediately; persistent recoverable
// failures surface as a *CapabilityError.
func (p *Primary) Encode(ctx context.Context, comp *timeline.Composition, dst string, onProgress func(float64)) error {
	p.setState(StateSubmitted)

	var lastErr error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if err := p.waitBackoff(ctx, attempt); err != nil {
			p.setState(StateCancelled)
			return err
		}

		err := p.session.Encode(ctx, comp, dst, func(frac float64) {
			if onProgress != nil {
				onProgress(encodeProgressBase + encodeProgressSpan*clamp01(frac))
			}
		})
		if err == nil {
			p.setState(StateCompleted)
			return nil
		}
		if ctx.Err() != nil {
			p.setState(StateCancelled)
			return ctx.Err()
		}
		if !p.classifier.Recoverable(err) {
			p.setState(StateFailed)
			return err
		}

		lastErr = err
		p.logger.Warn("recoverable encoder failure",
			"attempt", attempt+1,
			"attempts", p.attempts,
			"error", err,
		)
	}

	p.setState(StateFailed)
	return &CapabilityError{Attempts: p.attempts, Err: lastErr}
}

func (p *Primary) waitBackoff(ctx context.Context, attempt int) error {
	if attempt >= len(p.backoff) || len(p.backoff) == 0 {
		return ctx.Err()
	}
	delay := p.backoff[attempt]
	if delay <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FFmpegSession encodes a composition with a single ffmpeg invocation:
// every entry becomes one input, video entries get their trim window and a
// time-varying crop/zoom filter, and the streams are concatenated into one
// video-only container. Progress is read from ffmpeg's key=value progress
// stream on stdout.
type FFmpegSession struct {
	toolchain *media.Toolchain
	size      int
	fps       int
	poll      time.Duration
	logger    *slog.Logger
}

// NewFFmpegSession builds a session rendering size×size at fps. poll sets how
// often ffmpeg writes a progress block; values <= 0 fall back to 200ms.
func NewFFmpegSession(tc *media.Toolchain, size, fps int, poll time.Duration, logger *slog.Logger) *FFmpegSession {
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}
	return &FFmpegSession{toolchain: tc, size: size, fps: fps, poll: poll, logger: logger}
}

func (s *FFmpegSession) Encode(ctx context.Context, comp *timeline.Composition, dst string, onProgress func(float64)) error {
	if !s.toolchain.HasFFmpeg() {
		return fmt.Errorf("ffmpeg not available")
	}

	s.logger.Info("primary encode submitted", "entries", len(comp.Entries), "total_s", comp.TotalS)
	args := buildEncodeArgs(comp, dst, s.size, s.fps, s.poll)
	cmd := exec.CommandContext(ctx, s.toolchain.FFmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("encoder stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if v, ok := strings.CutPrefix(scanner.Text(), "out_time_us="); ok {
			us, perr := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if perr == nil && comp.TotalS > 0 && onProgress != nil {
				onProgress(clamp01(float64(us) / 1e6 / comp.TotalS))
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &media.CommandError{Err: err, Stderr: stderr.String()}
	}
	if onProgress != nil {
		onProgress(1.0)
	}
	return nil
}

// videoGraph returns the input arguments and the filter_complex string that
// decode a composition into one concatenated video stream labelled [vout].
// Shared by the primary encoder and the fallback's decode side.
func videoGraph(comp *timeline.Composition, size, fps int) (inputs []string, filterComplex string) {
	var filters []string
	var concatIn strings.Builder
	for i, e := range comp.Entries {
		switch e.Kind {
		case timeline.KindVideo:
			inputs = append(inputs,
				"-ss", formatSeconds(e.TrimStart),
				"-to", formatSeconds(e.TrimEnd),
				"-i", e.Source,
			)
			filters = append(filters, videoEntryFilter(i, e, size, fps))
		default:
			inputs = append(inputs, "-i", e.Source)
			filters = append(filters, fmt.Sprintf("[%d:v]fps=%d,scale=%d:%d,setsar=1[v%d]", i, fps, size, size, i))
		}
		fmt.Fprintf(&concatIn, "[v%d]", i)
	}
	filters = append(filters, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vout]", concatIn.String(), len(comp.Entries)))
	return inputs, strings.Join(filters, ";")
}

// buildEncodeArgs assembles the full ffmpeg argument list for a composition.
// Kept separate from process handling so the command shape is testable.
func buildEncodeArgs(comp *timeline.Composition, dst string, size, fps int, poll time.Duration) []string {
	args := []string{"-y", "-nostdin", "-v", "error"}

	inputs, filterComplex := videoGraph(comp, size, fps)
	args = append(args, inputs...)
	args = append(args,
		"-filter_complex", filterComplex,
		"-map", "[vout]",
		"-an",
		"-c:v", "libx264",
		"-preset", "medium",
		"-profile:v", "high",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-stats_period", strconv.FormatFloat(poll.Seconds(), 'f', -1, 64),
		dst,
	)
	return args
}

// videoEntryFilter crops a square window out of the source that pans to the
// entry's anchor and zooms along its ramp, then scales it to the render size.
// The zoom expression is evaluated per frame with t relative to the trimmed
// input.
func videoEntryFilter(input int, e timeline.Entry, size, fps int) string {
	dur := e.DurationS
	if dur <= 0 {
		dur = 1
	}
	zoom := fmt.Sprintf("(%s+(%s-%s)*min(t/%s,1))",
		formatSeconds(e.ZoomStart), formatSeconds(e.ZoomEnd), formatSeconds(e.ZoomStart), formatSeconds(dur))

	return fmt.Sprintf(
		"[%d:v]crop=w='min(iw,ih)/%s':h='min(iw,ih)/%s':x='(iw-ow)*%s':y='(ih-oh)*%s',scale=%d:%d,setsar=1,fps=%d[v%d]",
		input, zoom, zoom,
		formatSeconds(e.CropAnchor.X), formatSeconds(e.CropAnchor.Y),
		size, size, fps, input,
	)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
