package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
)

// ProbeResult describes the streams of a media file.
type ProbeResult struct {
	DurationS   float64
	Width       int
	Height      int
	VideoCodec  string
	HasAudio    bool
	AudioCodec  string
	SampleRate  int
	Channels    int
	SizeBytes   int64
}

// Prober inspects media files.
type Prober interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

// FFprobeProber shells out to ffprobe with JSON output.
type FFprobeProber struct {
	toolchain *Toolchain
	logger    *slog.Logger
}

func NewProber(tc *Toolchain, logger *slog.Logger) *FFprobeProber {
	return &FFprobeProber{toolchain: tc, logger: logger}
}

func (p *FFprobeProber) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if !p.toolchain.HasFFprobe() {
		return nil, fmt.Errorf("ffprobe not available")
	}

	cmd := exec.CommandContext(ctx, p.toolchain.FFprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	return parseProbeOutput(out)
}

type probeJSON struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

func parseProbeOutput(out []byte) (*ProbeResult, error) {
	var raw probeJSON
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	result := &ProbeResult{}
	result.DurationS, _ = strconv.ParseFloat(raw.Format.Duration, 64)
	result.SizeBytes, _ = strconv.ParseInt(raw.Format.Size, 10, 64)

	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if result.Width == 0 {
				result.Width = s.Width
				result.Height = s.Height
				result.VideoCodec = s.CodecName
			}
		case "audio":
			if !result.HasAudio {
				result.HasAudio = true
				result.AudioCodec = s.CodecName
				result.SampleRate, _ = strconv.Atoi(s.SampleRate)
				result.Channels = s.Channels
			}
		}
	}
	return result, nil
}

// StubProber returns empty results; it stands in when ffprobe is missing.
type StubProber struct {
	logger *slog.Logger
}

func NewStubProber(logger *slog.Logger) *StubProber {
	return &StubProber{logger: logger}
}

func (p *StubProber) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	p.logger.Info("prober stub: probe requested", "path", path)
	return &ProbeResult{}, nil
}
