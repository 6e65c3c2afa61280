package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository"
)

// RunRepository provides an in-memory run ledger
type RunRepository struct {
	mu   sync.Mutex
	runs map[string]domain.RunSummary
}

// NewRunRepository creates a new in-memory run ledger
func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[string]domain.RunSummary)}
}

var _ repository.RunRepository = (*RunRepository)(nil)

func (r *RunRepository) CreateRun(ctx context.Context, run *domain.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.RunID] = cloneRun(run)
	return nil
}

func (r *RunRepository) UpdateRun(ctx context.Context, run *domain.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.RunID]; !ok {
		return domain.ErrRunNotFound
	}
	r.runs[run.RunID] = cloneRun(run)
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id string) (*domain.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return &run, nil
}

// ListRuns returns the most recently started runs first
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.RunSummary, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRun(run *domain.RunSummary) domain.RunSummary {
	c := *run
	c.Results = nil
	return c
}
