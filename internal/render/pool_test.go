package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"

	"github.com/framewall/framewall-agent/internal/transform"
)

type fakeFactory struct {
	mu      sync.Mutex
	failFor string // instance id whose session refuses to open
}

func (f *fakeFactory) Ext() string { return ".avi" }

func (f *fakeFactory) NewClipWriter(dst string, size, fps int) (FrameWriter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor != "" && strings.Contains(dst, f.failFor) {
		return nil, errors.New("session start failed")
	}
	return &countingWriter{}, nil
}

type countingWriter struct {
	mu     sync.Mutex
	frames int
}

func (w *countingWriter) WriteFrame(frame *image.RGBA) error {
	w.mu.Lock()
	w.frames++
	w.mu.Unlock()
	return nil
}

func (w *countingWriter) Close() error { return nil }
func (w *countingWriter) Abort()       {}

func newJobs(n int) []ClipJob {
	jobs := make([]ClipJob, n)
	for i := range jobs {
		jobs[i] = ClipJob{
			InstanceID: fmt.Sprintf("seg-%02d", i),
			Spec: ClipSpec{
				Image:       testImage(64, 64),
				StartAnchor: transform.Center,
				EndAnchor:   transform.Center,
				DurationS:   0.1,
			},
		}
	}
	return jobs
}

func TestConcurrency(t *testing.T) {
	for _, jobs := range []int{0, 1, 3, 100} {
		got := Concurrency(jobs)
		if got < 1 {
			t.Errorf("Concurrency(%d) = %d, want >= 1", jobs, got)
		}
		if got > 8 {
			t.Errorf("Concurrency(%d) = %d, want <= 8", jobs, got)
		}
		if jobs >= 1 && got > jobs {
			t.Errorf("Concurrency(%d) = %d, want <= job count", jobs, got)
		}
	}
}

func TestPool_RendersAllJobs(t *testing.T) {
	pool := NewPool(NewRenderer(16, 10, testLogger()), &fakeFactory{}, testLogger())

	var mu sync.Mutex
	var progress []int
	result, err := pool.RenderAll(context.Background(), newJobs(5), t.TempDir(), func(done, total int) {
		mu.Lock()
		progress = append(progress, done)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}

	if len(result.Clips) != 5 {
		t.Errorf("clips = %d, want 5", len(result.Clips))
	}
	if len(result.Failures) != 0 {
		t.Errorf("failures = %v, want none", result.Failures)
	}
	if len(progress) != 5 {
		t.Errorf("progress callbacks = %d, want 5", len(progress))
	}
	if progress[len(progress)-1] != 5 {
		t.Errorf("final done count = %d, want 5", progress[len(progress)-1])
	}
}

func TestPool_FailedJobIsSkippedNotFatal(t *testing.T) {
	pool := NewPool(NewRenderer(16, 10, testLogger()), &fakeFactory{failFor: "seg-02"}, testLogger())

	result, err := pool.RenderAll(context.Background(), newJobs(4), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("RenderAll() error = %v, want nil (per-job failures are local)", err)
	}

	if len(result.Clips) != 3 {
		t.Errorf("clips = %d, want 3", len(result.Clips))
	}
	if _, ok := result.Failures["seg-02"]; !ok {
		t.Errorf("failures = %v, want seg-02 recorded", result.Failures)
	}
}

func TestPool_EmptyJobs(t *testing.T) {
	pool := NewPool(NewRenderer(16, 10, testLogger()), &fakeFactory{}, testLogger())

	result, err := pool.RenderAll(context.Background(), nil, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("RenderAll() error = %v", err)
	}
	if len(result.Clips) != 0 || len(result.Failures) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestPool_Cancellation(t *testing.T) {
	pool := NewPool(NewRenderer(16, 10, testLogger()), &fakeFactory{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.RenderAll(ctx, newJobs(3), t.TempDir(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RenderAll() error = %v, want context.Canceled", err)
	}
}
