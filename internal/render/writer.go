package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/icza/mjpeg"

	"github.com/framewall/framewall-agent/internal/media"
)

// FrameWriter is one clip writer session: raw frames in presentation order
// go in, a finished clip file comes out on Close. Abort discards the session
// without finalizing the output.
type FrameWriter interface {
	WriteFrame(frame *image.RGBA) error
	Close() error
	Abort()
}

// ClipWriterFactory opens a writer session for a clip destination path.
type ClipWriterFactory interface {
	NewClipWriter(dst string, size, fps int) (FrameWriter, error)
	// Ext returns the container extension sessions produce, with dot.
	Ext() string
}

// FFmpegWriterFactory produces H.264 MP4 clip sessions over an ffmpeg
// rawvideo stdin pipe.
type FFmpegWriterFactory struct {
	toolchain *media.Toolchain
	logger    *slog.Logger
}

func NewFFmpegWriterFactory(tc *media.Toolchain, logger *slog.Logger) *FFmpegWriterFactory {
	return &FFmpegWriterFactory{toolchain: tc, logger: logger}
}

func (f *FFmpegWriterFactory) Ext() string { return ".mp4" }

func (f *FFmpegWriterFactory) NewClipWriter(dst string, size, fps int) (FrameWriter, error) {
	if !f.toolchain.HasFFmpeg() {
		return nil, fmt.Errorf("ffmpeg not available")
	}

	dims := strconv.Itoa(size) + "x" + strconv.Itoa(size)
	cmd := exec.Command(f.toolchain.FFmpegPath,
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", dims,
		"-r", strconv.Itoa(fps),
		"-i", "-",
		"-an",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		dst,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("writer stdin: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("writer session start: %w", err)
	}

	return &ffmpegClipWriter{cmd: cmd, stdin: stdin, stderr: &stderr, size: size}, nil
}

type ffmpegClipWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	size   int
}

func (w *ffmpegClipWriter) WriteFrame(frame *image.RGBA) error {
	if frame.Bounds().Dx() != w.size || frame.Bounds().Dy() != w.size {
		return fmt.Errorf("frame size %dx%d, writer expects %dx%d",
			frame.Bounds().Dx(), frame.Bounds().Dy(), w.size, w.size)
	}
	if _, err := w.stdin.Write(frame.Pix); err != nil {
		return fmt.Errorf("frame append: %w", err)
	}
	return nil
}

func (w *ffmpegClipWriter) Close() error {
	if err := w.stdin.Close(); err != nil {
		w.cmd.Process.Kill()
		w.cmd.Wait()
		return fmt.Errorf("close writer input: %w", err)
	}
	if err := w.cmd.Wait(); err != nil {
		return &media.CommandError{Err: err, Stderr: w.stderr.String()}
	}
	return nil
}

func (w *ffmpegClipWriter) Abort() {
	w.stdin.Close()
	w.cmd.Process.Kill()
	w.cmd.Wait()
}

// MJPEGWriterFactory produces Motion-JPEG AVI sessions entirely in-process.
// It is the clip path when no ffmpeg binary is present.
type MJPEGWriterFactory struct {
	quality int
}

func NewMJPEGWriterFactory() *MJPEGWriterFactory {
	return &MJPEGWriterFactory{quality: 90}
}

func (f *MJPEGWriterFactory) Ext() string { return ".avi" }

func (f *MJPEGWriterFactory) NewClipWriter(dst string, size, fps int) (FrameWriter, error) {
	if !strings.HasSuffix(strings.ToLower(dst), ".avi") {
		return nil, fmt.Errorf("mjpeg writer requires .avi destination, got %s", dst)
	}
	aw, err := mjpeg.New(dst, int32(size), int32(size), int32(fps))
	if err != nil {
		return nil, fmt.Errorf("writer session start: %w", err)
	}
	return &mjpegClipWriter{writer: aw, quality: f.quality}, nil
}

type mjpegClipWriter struct {
	writer  mjpeg.AviWriter
	quality int
}

func (w *mjpegClipWriter) WriteFrame(frame *image.RGBA) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: w.quality}); err != nil {
		return fmt.Errorf("frame encode: %w", err)
	}
	if err := w.writer.AddFrame(buf.Bytes()); err != nil {
		return fmt.Errorf("frame append: %w", err)
	}
	return nil
}

func (w *mjpegClipWriter) Close() error {
	return w.writer.Close()
}

func (w *mjpegClipWriter) Abort() {
	w.writer.Close()
}
