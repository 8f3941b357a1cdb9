package media

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// Capabilities reports what the resolved toolchain can do.
type Capabilities struct {
	HasFFmpeg   bool      `json:"has_ffmpeg"`
	HasFFprobe  bool      `json:"has_ffprobe"`
	HasH264     bool      `json:"has_h264"`
	HasAAC      bool      `json:"has_aac"`
	FFmpegBuild string    `json:"ffmpeg_build,omitempty"`
	ProbedAt    time.Time `json:"-"`
}

// CachedDoctor probes the toolchain and caches the result with a TTL so
// every export does not re-spawn ffmpeg just to read its banner.
type CachedDoctor struct {
	toolchain *Toolchain
	ttl       time.Duration
	logger    *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

// NewCachedDoctor creates a caching wrapper around capability probes.
func NewCachedDoctor(tc *Toolchain, logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		toolchain: tc,
		ttl:       defaultCacheTTL,
		logger:    logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh forces a new probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps := &Capabilities{
		HasFFmpeg:  d.toolchain.HasFFmpeg(),
		HasFFprobe: d.toolchain.HasFFprobe(),
		ProbedAt:   time.Now(),
	}

	if caps.HasFFmpeg {
		out, err := exec.CommandContext(ctx, d.toolchain.FFmpegPath, "-hide_banner", "-encoders").Output()
		if err != nil {
			d.logger.Warn("encoder probe failed", "error", err)
		} else {
			encoders := string(out)
			caps.HasH264 = strings.Contains(encoders, "libx264") || strings.Contains(encoders, " h264")
			caps.HasAAC = strings.Contains(encoders, " aac")
		}

		if banner, err := exec.CommandContext(ctx, d.toolchain.FFmpegPath, "-version").Output(); err == nil {
			if line, _, ok := strings.Cut(string(banner), "\n"); ok {
				caps.FFmpegBuild = strings.TrimSpace(line)
			}
		}
	}

	d.cached = caps
	return caps, nil
}

// Invalidate clears the cached capabilities.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
