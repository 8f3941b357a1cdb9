package export

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// CancelledMessage is the terminal error text of a cancelled export.
const CancelledMessage = "Cancelled"

type exportRunner interface {
	Export(ctx context.Context, id string, req *Request, onProgress func(float64), onStatus func(string)) (*Result, error)
}

// Runner drains the service queue and executes exports one at a time,
// persisting progress and terminal state on the job record.
type Runner struct {
	service  *Service
	repo     Repository
	exporter exportRunner
	logger   *slog.Logger
	running  atomic.Bool
	paused   atomic.Bool
}

func NewRunner(service *Service, repo Repository, exporter exportRunner, logger *slog.Logger) *Runner {
	return &Runner{
		service:  service,
		repo:     repo,
		exporter: exporter,
		logger:   logger,
	}
}

// Start blocks draining the queue until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}
	defer r.running.Store(false)

	r.logger.Info("export runner started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("export runner stopping")
			return
		case job := <-r.service.queue:
			if err := r.waitWhilePaused(ctx); err != nil {
				return
			}
			r.process(ctx, job)
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("export runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("export runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) waitWhilePaused(ctx context.Context) error {
	for r.paused.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil
}

func (r *Runner) process(ctx context.Context, job *queuedJob) {
	log := r.logger.With("export_id", job.id)
	log.Info("processing export")

	jobCtx, cancel := context.WithCancel(ctx)
	r.service.registerCancel(job.id, cancel)
	defer func() {
		r.service.unregisterCancel(job.id)
		cancel()
	}()

	if err := r.repo.MarkState(ctx, job.id, StateRendering, ""); err != nil {
		log.Error("failed to mark export rendering", "error", err)
		return
	}

	// Persist progress on meaningful movement only; the record is a UI
	// feedback channel, not a trace log. The callbacks arrive from the render
	// pool's workers and the fallback's pump loops concurrently, so the
	// last-seen pair is mutex-guarded.
	var feedbackMu sync.Mutex
	var lastPersisted float64
	var lastStatus string
	onProgress := func(frac float64) {
		feedbackMu.Lock()
		if frac-lastPersisted < 0.01 && frac < 1.0 {
			feedbackMu.Unlock()
			return
		}
		lastPersisted = frac
		status := lastStatus
		feedbackMu.Unlock()
		r.repo.UpdateProgress(jobCtx, job.id, frac, status)
	}
	onStatus := func(line string) {
		feedbackMu.Lock()
		lastStatus = line
		frac := lastPersisted
		feedbackMu.Unlock()
		log.Info("export status", "line", line)
		r.repo.UpdateProgress(context.WithoutCancel(jobCtx), job.id, frac, line)
	}

	result, err := r.exporter.Export(jobCtx, job.id, job.req, onProgress, onStatus)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.Canceled) {
			msg = CancelledMessage
		}
		log.Warn("export failed", "error", err)
		r.repo.MarkState(context.WithoutCancel(ctx), job.id, StateFailed, msg)
		return
	}

	if err := r.repo.CompleteExport(ctx, job.id, result.RelativePath, result.DurationS, result.SizeBytes); err != nil {
		log.Error("failed to record export completion", "error", err)
		return
	}
	log.Info("export ready", "path", result.RelativePath)
}
