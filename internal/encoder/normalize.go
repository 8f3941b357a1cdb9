package encoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/framewall/framewall-agent/internal/media"
)

// Canonical delivery audio settings.
const (
	normalizedSampleRate = 48000
	normalizedChannels   = 2
)

// Normalizer re-encodes a finished export's audio track to the canonical
// sample rate and channel layout. It runs the same dual pull/push loop shape
// as the fallback transcoder over the just-produced file. Normalization
// failure is never fatal; the caller keeps the un-normalized file.
type Normalizer struct {
	toolchain *media.Toolchain
	prober    media.Prober
	fps       int
	logger    *slog.Logger
}

func NewNormalizer(tc *media.Toolchain, prober media.Prober, fps int, logger *slog.Logger) *Normalizer {
	return &Normalizer{toolchain: tc, prober: prober, fps: fps, logger: logger}
}

// Normalize rewrites path in place at canonical audio settings. It reports
// whether a normalization actually ran: files without an audio track are
// left untouched. On any error the original file is kept as-is.
func (n *Normalizer) Normalize(ctx context.Context, path, scratchDir string) (bool, error) {
	if !n.toolchain.HasFFmpeg() {
		return false, fmt.Errorf("ffmpeg not available")
	}

	probe, err := n.prober.Probe(ctx, path)
	if err != nil {
		return false, fmt.Errorf("probe before normalize: %w", err)
	}
	if !probe.HasAudio {
		return false, nil
	}
	if probe.Width <= 0 || probe.Height <= 0 {
		return false, fmt.Errorf("normalize: no video geometry in %s", path)
	}

	videoPath := filepath.Join(scratchDir, "normalize-video.mp4")
	audioPath := filepath.Join(scratchDir, "normalize-audio.m4a")
	audio := AudioParams{SampleRate: normalizedSampleRate, Channels: normalizedChannels}

	cell := &ErrorCell{}
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

	vDecode, err := startReader(ctx, n.toolchain.FFmpegPath, []string{
		"-y", "-nostdin", "-v", "error",
		"-i", path,
		"-map", "0:v:0",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	})
	if err != nil {
		return false, fmt.Errorf("start video decoder: %w", err)
	}
	procs = append(procs, vDecode)

	// Explicit bitrate and profile so the re-encode does not compound
	// quality loss with default rate control.
	vEncode, err := startWriter(ctx, n.toolchain.FFmpegPath, []string{
		"-y", "-nostdin", "-v", "error",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", probe.Width, probe.Height),
		"-r", strconv.Itoa(n.fps),
		"-i", "pipe:0",
		"-an",
		"-c:v", "libx264",
		"-b:v", "8M",
		"-profile:v", "high",
		"-pix_fmt", "yuv420p",
		videoPath,
	})
	if err != nil {
		cleanup()
		return false, fmt.Errorf("start video encoder: %w", err)
	}
	procs = append(procs, vEncode)

	aDecode, err := startReader(ctx, n.toolchain.FFmpegPath, []string{
		"-y", "-nostdin", "-v", "error",
		"-i", path,
		"-map", "0:a:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"pipe:1",
	})
	if err != nil {
		cleanup()
		return false, fmt.Errorf("start audio decoder: %w", err)
	}
	procs = append(procs, aDecode)

	aEncode, err := startWriter(ctx, n.toolchain.FFmpegPath, audioEncodeArgs(audioPath, audio))
	if err != nil {
		cleanup()
		return false, fmt.Errorf("start audio encoder: %w", err)
	}
	procs = append(procs, aEncode)

	frameBytes := probe.Width * probe.Height * 4
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pumpSamples(cell, vDecode.stdout, vEncode.stdin, frameBytes, 0, nil)
	}()
	go func() {
		defer wg.Done()
		pumpSamples(cell, aDecode.stdout, aEncode.stdin, 32768, 0, nil)
	}()
	wg.Wait()
	cell.Set(ctx.Err())

	if cell.Failed() {
		cleanup()
		return false, cell.Err()
	}

	cell.Set(vEncode.finish())
	cell.Set(vDecode.wait())
	cell.Set(aEncode.finish())
	cell.Set(aDecode.wait())
	if cell.Failed() {
		cleanup()
		return false, cell.Err()
	}

	// Mux next to the original so the final swap is a same-volume rename.
	tmp := path + ".norm.mp4"
	if err := n.toolchain.Run(ctx,
		"-y", "-nostdin", "-v", "error",
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
		"-movflags", "+faststart",
		tmp,
	); err != nil {
		cleanup()
		os.Remove(tmp)
		return false, err
	}
	os.Remove(videoPath)
	os.Remove(audioPath)

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("replace with normalized file: %w", err)
	}
	return true, nil
}
