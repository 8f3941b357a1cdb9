package export

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// queuedJob pairs a persisted export record with its in-memory request. The
// request itself is never persisted; jobs still queued at shutdown are marked
// interrupted on the next start.
type queuedJob struct {
	id  string
	req *Request
}

// Service owns export submission: it creates the job record, queues the work
// for the runner, and tracks per-export cancellation.
type Service struct {
	repo           Repository
	maxTitleLength int
	queue          chan *queuedJob

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewService(repo Repository, maxTitleLength int) *Service {
	return &Service{
		repo:           repo,
		maxTitleLength: maxTitleLength,
		queue:          make(chan *queuedJob, 32),
		cancels:        make(map[string]context.CancelFunc),
	}
}

// Submit records a new export and queues it. The stored title is already
// sanitized and truncated.
func (s *Service) Submit(ctx context.Context, req *Request) (*Record, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	rec := &Record{
		ID:       uuid.NewString(),
		Title:    SanitizeTitle(req.Title, s.maxTitleLength),
		Subtitle: req.Subtitle,
		State:    StatePending,
	}
	if err := s.repo.CreateExport(ctx, rec); err != nil {
		return nil, fmt.Errorf("create export record: %w", err)
	}

	select {
	case s.queue <- &queuedJob{id: rec.ID, req: req}:
	default:
		s.repo.MarkState(ctx, rec.ID, StateFailed, "export queue full")
		return nil, fmt.Errorf("export queue full")
	}
	return rec, nil
}

// Get returns one export record, or nil when unknown.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.GetExport(ctx, id)
}

// List returns the most recent export records.
func (s *Service) List(ctx context.Context, limit int) ([]*Record, error) {
	return s.repo.ListExports(ctx, limit)
}

// Cancel aborts a running export. It reports whether an export with that id
// was actually running.
func (s *Service) Cancel(id string) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *Service) registerCancel(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancels[id] = cancel
	s.mu.Unlock()
}

func (s *Service) unregisterCancel(id string) {
	s.mu.Lock()
	delete(s.cancels, id)
	s.mu.Unlock()
}
