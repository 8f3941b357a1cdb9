// Package media wraps the ffmpeg/ffprobe toolchain the export pipeline
// encodes and decodes through: binary discovery, command execution with
// captured stderr, and stream probing.
package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Toolchain holds the resolved encoder/prober binary paths. Empty paths mean
// the binary is unavailable and the pipeline must degrade.
type Toolchain struct {
	FFmpegPath  string
	FFprobePath string
	logger      *slog.Logger
}

// Locate resolves the toolchain, preferring explicit overrides, then a binary
// bundled next to the executable, then PATH, then well-known locations.
func Locate(ffmpegOverride, ffprobeOverride string, logger *slog.Logger) *Toolchain {
	tc := &Toolchain{logger: logger}
	tc.FFmpegPath = locateBinary("ffmpeg", ffmpegOverride)
	tc.FFprobePath = locateBinary("ffprobe", ffprobeOverride)

	logger.Info("media toolchain resolved",
		"ffmpeg", tc.FFmpegPath,
		"ffprobe", tc.FFprobePath,
	)
	return tc
}

// HasFFmpeg reports whether an encoder binary was found.
func (t *Toolchain) HasFFmpeg() bool {
	return t.FFmpegPath != ""
}

// HasFFprobe reports whether a prober binary was found.
func (t *Toolchain) HasFFprobe() bool {
	return t.FFprobePath != ""
}

// Run executes ffmpeg with the given arguments, returning captured stderr on
// failure. The process is killed when ctx is cancelled.
func (t *Toolchain) Run(ctx context.Context, args ...string) error {
	if !t.HasFFmpeg() {
		return fmt.Errorf("ffmpeg not available")
	}

	cmd := exec.CommandContext(ctx, t.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &CommandError{Err: err, Stderr: stderr.String()}
	}
	return nil
}

// CommandError carries ffmpeg's stderr alongside the exec error so callers
// can classify the failure.
type CommandError struct {
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("ffmpeg: %v: %s", e.Err, tail(e.Stderr, 400))
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

func locateBinary(name, override string) string {
	if override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
		return ""
	}

	if bundled := bundledPath(name); bundled != "" {
		return bundled
	}

	if path, err := exec.LookPath(binaryName(name)); err == nil {
		return path
	}

	for _, p := range wellKnownPaths(name) {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func binaryName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func bundledPath(name string) string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(filepath.Dir(execPath), binaryName(name))
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func wellKnownPaths(name string) []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/usr/local/bin/" + name,
			"/opt/homebrew/bin/" + name,
			"/opt/local/bin/" + name,
		}
	case "linux":
		return []string{
			"/usr/bin/" + name,
			"/usr/local/bin/" + name,
		}
	case "windows":
		return []string{
			`C:\ffmpeg\bin\` + name + ".exe",
		}
	default:
		return nil
	}
}
