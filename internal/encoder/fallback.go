package encoder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/framewall/framewall-agent/internal/media"
	"github.com/framewall/framewall-agent/internal/timeline"
)

// progressThrottleS limits how much presentation time may pass between two
// fallback progress emissions.
const progressThrottleS = 0.35

// AudioParams carries the fallback's audio leg settings, read from the first
// source track with audio.
type AudioParams struct {
	SampleRate int
	Channels   int
}

// DefaultAudioParams is used when the source audio settings cannot be read.
func DefaultAudioParams() AudioParams {
	return AudioParams{SampleRate: 44100, Channels: 2}
}

func (a AudioParams) layout() string {
	if a.Channels == 1 {
		return "mono"
	}
	return "stereo"
}

func (a AudioParams) bytesPerSecond() float64 {
	return float64(a.SampleRate * a.Channels * 2)
}

// Fallback is the manual decode/encode path used when the primary encoder
// exhausts its retries. It runs one decode process and one encode process per
// stream and pumps raw samples between them with two concurrent copy loops
// joined through a shared error cell.
type Fallback struct {
	toolchain *media.Toolchain
	size      int
	fps       int
	logger    *slog.Logger
}

func NewFallback(tc *media.Toolchain, size, fps int, logger *slog.Logger) *Fallback {
	return &Fallback{toolchain: tc, size: size, fps: fps, logger: logger}
}

// Transcode decodes the composition to raw video frames (and PCM audio when
// audio is non-nil), re-encodes both streams into intermediates under
// scratchDir, and muxes them into dst. On any loop error the intermediates
// are removed and nothing lands at dst.
func (f *Fallback) Transcode(ctx context.Context, comp *timeline.Composition, scratchDir, dst string, audio *AudioParams, onProgress func(float64)) error {
	if !f.toolchain.HasFFmpeg() {
		return fmt.Errorf("ffmpeg not available")
	}

	f.logger.Info("fallback transcoder engaged",
		"entries", len(comp.Entries),
		"audio", audio != nil,
		"total_s", comp.TotalS,
	)

	videoPath := filepath.Join(scratchDir, "fallback-video.mp4")
	audioPath := filepath.Join(scratchDir, "fallback-audio.m4a")

	cell := &ErrorCell{}
	emit := f.throttledProgress(comp.TotalS, onProgress)

	procs := make([]*pipeProc, 0, 4)
	cleanup := func() {
		for _, p := range procs {
			p.kill()
		}
		for _, p := range procs {
			p.wait()
		}
		os.Remove(videoPath)
		os.Remove(audioPath)
	}

	vDecode, err := startReader(ctx, f.toolchain.FFmpegPath, videoDecodeArgs(comp, f.size, f.fps))
	if err != nil {
		return fmt.Errorf("start video decoder: %w", err)
	}
	procs = append(procs, vDecode)

	vEncode, err := startWriter(ctx, f.toolchain.FFmpegPath, videoEncodeArgs(videoPath, f.size, f.fps))
	if err != nil {
		cleanup()
		return fmt.Errorf("start video encoder: %w", err)
	}
	procs = append(procs, vEncode)

	var aDecode, aEncode *pipeProc
	if audio != nil {
		aDecode, err = startReader(ctx, f.toolchain.FFmpegPath, audioDecodeArgs(comp, *audio))
		if err != nil {
			cleanup()
			return fmt.Errorf("start audio decoder: %w", err)
		}
		procs = append(procs, aDecode)

		aEncode, err = startWriter(ctx, f.toolchain.FFmpegPath, audioEncodeArgs(audioPath, *audio))
		if err != nil {
			cleanup()
			return fmt.Errorf("start audio encoder: %w", err)
		}
		procs = append(procs, aEncode)
	}

	frameBytes := f.size * f.size * 4
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pumpSamples(cell, vDecode.stdout, vEncode.stdin, frameBytes, float64(frameBytes*f.fps), emit)
	}()
	if audio != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pumpSamples(cell, aDecode.stdout, aEncode.stdin, 32768, audio.bytesPerSecond(), emit)
		}()
	}
	wg.Wait()
	cell.Set(ctx.Err())

	if cell.Failed() {
		cleanup()
		return cell.Err()
	}

	// Both loops drained their decoders; finalize the writers.
	cell.Set(vEncode.finish())
	cell.Set(vDecode.wait())
	if audio != nil {
		cell.Set(aEncode.finish())
		cell.Set(aDecode.wait())
	}
	if cell.Failed() {
		cleanup()
		return cell.Err()
	}

	if err := f.mux(ctx, videoPath, audioPath, dst, audio != nil); err != nil {
		cleanup()
		return err
	}
	os.Remove(videoPath)
	os.Remove(audioPath)
	return nil
}

func (f *Fallback) mux(ctx context.Context, videoPath, audioPath, dst string, hasAudio bool) error {
	if !hasAudio {
		return os.Rename(videoPath, dst)
	}
	return f.toolchain.Run(ctx,
		"-y", "-nostdin", "-v", "error",
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
		"-movflags", "+faststart",
		dst,
	)
}

// throttledProgress maps presentation time to the encode stage's progress
// window, emitting at most once per progressThrottleS of presentation time.
// Both loops share one throttle; onProgress runs under the throttle's lock so
// an emitter that passed the gate with a lower time cannot deliver after a
// higher one.
func (f *Fallback) throttledProgress(totalS float64, onProgress func(float64)) func(float64) {
	if onProgress == nil || totalS <= 0 {
		return nil
	}
	var mu sync.Mutex
	last := -progressThrottleS
	return func(t float64) {
		mu.Lock()
		defer mu.Unlock()
		if t-last < progressThrottleS {
			return
		}
		last = t
		onProgress(encodeProgressBase + encodeProgressSpan*clamp01(t/totalS))
	}
}

// pumpSamples pulls fixed-size chunks from a decoder and pushes them to an
// encoder input until the decoder is exhausted, reporting accumulated
// presentation time. It stops as soon as the shared cell records an error.
func pumpSamples(cell *ErrorCell, r io.Reader, w io.Writer, chunk int, bytesPerSecond float64, onTime func(float64)) {
	buf := make([]byte, chunk)
	var total int64
	for {
		if cell.Failed() {
			return
		}

		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				cell.Set(fmt.Errorf("push sample: %w", werr))
				return
			}
			total += int64(n)
			if onTime != nil && bytesPerSecond > 0 {
				onTime(float64(total) / bytesPerSecond)
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			return
		}
		if rerr != nil {
			cell.Set(fmt.Errorf("pull sample: %w", rerr))
			return
		}
	}
}

// pipeProc is one ffmpeg process with either a stdout or stdin pipe attached.
type pipeProc struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stdin  io.WriteCloser
	stderr bytes.Buffer
	waited bool
}

func startReader(ctx context.Context, ffmpegPath string, args []string) (*pipeProc, error) {
	p := &pipeProc{cmd: exec.CommandContext(ctx, ffmpegPath, args...)}
	p.cmd.Stderr = &p.stderr

	var err error
	p.stdout, err = p.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := p.cmd.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

func startWriter(ctx context.Context, ffmpegPath string, args []string) (*pipeProc, error) {
	p := &pipeProc{cmd: exec.CommandContext(ctx, ffmpegPath, args...)}
	p.cmd.Stderr = &p.stderr

	var err error
	p.stdin, err = p.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := p.cmd.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

// finish closes the process's stdin and waits for a clean exit.
func (p *pipeProc) finish() error {
	if p.stdin != nil {
		p.stdin.Close()
	}
	return p.wait()
}

func (p *pipeProc) wait() error {
	if p.waited {
		return nil
	}
	p.waited = true
	if err := p.cmd.Wait(); err != nil {
		return &media.CommandError{Err: err, Stderr: p.stderr.String()}
	}
	return nil
}

func (p *pipeProc) kill() {
	if p.stdin != nil {
		p.stdin.Close()
	}
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
}

func videoDecodeArgs(comp *timeline.Composition, size, fps int) []string {
	args := []string{"-y", "-nostdin", "-v", "error"}
	inputs, filterComplex := videoGraph(comp, size, fps)
	args = append(args, inputs...)
	args = append(args,
		"-filter_complex", filterComplex,
		"-map", "[vout]",
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)
	return args
}

func videoEncodeArgs(dst string, size, fps int) []string {
	return []string{
		"-y", "-nostdin", "-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", size, size),
		"-r", strconv.Itoa(fps),
		"-i", "pipe:0",
		"-an",
		"-c:v", "libx264",
		"-preset", "medium",
		"-profile:v", "high",
		"-pix_fmt", "yuv420p",
		dst,
	}
}

// audioDecodeArgs builds the audio leg: source tracks for video entries that
// carry audio, generated silence for everything else, concatenated and
// emitted as raw PCM.
func audioDecodeArgs(comp *timeline.Composition, audio AudioParams) []string {
	args := []string{"-y", "-nostdin", "-v", "error"}

	var filters []string
	var concatIn strings.Builder
	inputIdx := 0
	for i, e := range comp.Entries {
		if e.Kind == timeline.KindVideo && e.SourceHasAudio {
			args = append(args,
				"-ss", formatSeconds(e.TrimStart),
				"-to", formatSeconds(e.TrimEnd),
				"-i", e.Source,
			)
			filters = append(filters, fmt.Sprintf(
				"[%d:a]aresample=%d,aformat=sample_fmts=s16:channel_layouts=%s,asetpts=PTS-STARTPTS[a%d]",
				inputIdx, audio.SampleRate, audio.layout(), i,
			))
			inputIdx++
		} else {
			filters = append(filters, fmt.Sprintf(
				"anullsrc=r=%d:cl=%s,atrim=0:%s,asetpts=PTS-STARTPTS[a%d]",
				audio.SampleRate, audio.layout(), formatSeconds(e.DurationS), i,
			))
		}
		fmt.Fprintf(&concatIn, "[a%d]", i)
	}
	filters = append(filters, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[aout]", concatIn.String(), len(comp.Entries)))

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "[aout]",
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"pipe:1",
	)
	return args
}

func audioEncodeArgs(dst string, audio AudioParams) []string {
	return []string{
		"-y", "-nostdin", "-v", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-i", "pipe:0",
		"-c:a", "aac",
		"-b:a", "128k",
		dst,
	}
}
