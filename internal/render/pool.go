package render

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ClipJob is one image segment queued for rendering.
type ClipJob struct {
	InstanceID string
	Spec       ClipSpec
}

// PoolResult maps instance IDs to finished clip paths. Failed jobs appear in
// Failures instead; a failed clip is skipped by the assembler, it does not
// abort the export.
type PoolResult struct {
	Clips    map[string]string
	Failures map[string]error
}

// Pool renders many image clips concurrently with a bounded worker count.
type Pool struct {
	renderer *Renderer
	factory  ClipWriterFactory
	logger   *slog.Logger
}

func NewPool(renderer *Renderer, factory ClipWriterFactory, logger *slog.Logger) *Pool {
	return &Pool{renderer: renderer, factory: factory, logger: logger}
}

// Concurrency returns the render slot count for a given job count:
// min(8, jobs, max(1, NumCPU/2)).
func Concurrency(jobs int) int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	if jobs < n {
		n = jobs
	}
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// RenderAll renders every job into scratchDir, admitting jobs in arrival
// order as slots free up. onDone, if set, fires once per finished job with
// the completed count. Only context cancellation stops the pool early.
func (p *Pool) RenderAll(ctx context.Context, jobs []ClipJob, scratchDir string, onDone func(done, total int)) (*PoolResult, error) {
	result := &PoolResult{
		Clips:    make(map[string]string),
		Failures: make(map[string]error),
	}
	if len(jobs) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Concurrency(len(jobs)))

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			err := p.renderOne(gctx, job, scratchDir, result, &mu)
			if err != nil && gctx.Err() != nil {
				// Cancellation is the only error that tears the pool down.
				return gctx.Err()
			}

			mu.Lock()
			done++
			d := done
			mu.Unlock()
			if onDone != nil {
				onDone(d, len(jobs))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, ctx.Err()
}

func (p *Pool) renderOne(ctx context.Context, job ClipJob, scratchDir string, result *PoolResult, mu *sync.Mutex) error {
	dst := filepath.Join(scratchDir, job.InstanceID+p.factory.Ext())

	w, err := p.factory.NewClipWriter(dst, p.renderer.size, p.renderer.fps)
	if err != nil {
		p.logger.Warn("clip writer session failed", "instance_id", job.InstanceID, "error", err)
		mu.Lock()
		result.Failures[job.InstanceID] = err
		mu.Unlock()
		return err
	}

	if err := p.renderer.Render(ctx, job.Spec, w); err != nil {
		w.Abort()
		os.Remove(dst)
		p.logger.Warn("clip render failed", "instance_id", job.InstanceID, "error", err)
		mu.Lock()
		result.Failures[job.InstanceID] = err
		mu.Unlock()
		return err
	}

	if err := w.Close(); err != nil {
		os.Remove(dst)
		p.logger.Warn("clip finalize failed", "instance_id", job.InstanceID, "error", err)
		mu.Lock()
		result.Failures[job.InstanceID] = err
		mu.Unlock()
		return err
	}

	mu.Lock()
	result.Clips[job.InstanceID] = dst
	mu.Unlock()
	return nil
}
