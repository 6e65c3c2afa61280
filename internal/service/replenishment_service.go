package service

import (
	"context"

	"github.com/andresuchdata/smart-replenishment/internal/cache"
	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository"
	"github.com/rs/zerolog/log"
)

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 100
)

// RunTrigger starts a replenishment run.
type RunTrigger interface {
	Trigger(ctx context.Context, source string) (*domain.RunSummary, error)
}

type ReplenishmentService struct {
	trigger RunTrigger
	runs    repository.RunRepository
	cache   cache.SummaryCache
	base    context.Context
}

// ServiceOption configures a ReplenishmentService.
type ServiceOption func(*ReplenishmentService)

// WithBaseContext ties API-triggered runs to the process lifetime: cancelling
// ctx cancels them, unlike the request context.
func WithBaseContext(ctx context.Context) ServiceOption {
	return func(s *ReplenishmentService) { s.base = ctx }
}

func NewReplenishmentService(trigger RunTrigger, runs repository.RunRepository, cacheImpl cache.SummaryCache, opts ...ServiceOption) *ReplenishmentService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSummaryCache()
	}
	s := &ReplenishmentService{trigger: trigger, runs: runs, cache: cacheImpl, base: context.Background()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TriggerRun starts a run on behalf of an API caller and waits for it. The run
// ignores the caller's cancellation, so a dropped connection or an expired
// write timeout does not abort it; the summary stays available through
// LatestRun and GetRun. Cancelling the base context does cancel it.
func (s *ReplenishmentService) TriggerRun(ctx context.Context) (*domain.RunSummary, error) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(s.base, cancel)
	defer stop()

	return s.trigger.Trigger(runCtx, "api")
}

// Active reports whether this process is executing a run.
func (s *ReplenishmentService) Active() bool {
	if b, ok := s.trigger.(interface{ Busy() bool }); ok {
		return b.Busy()
	}
	return false
}

// LatestRun returns the most recent run, from cache when possible.
func (s *ReplenishmentService) LatestRun(ctx context.Context) (*domain.RunSummary, error) {
	if summary, ok, err := s.cache.GetLatest(ctx); err == nil && ok {
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("replenishment: cache get latest failed")
	}

	runs, err := s.runs.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, domain.ErrRunNotFound
	}
	return &runs[0], nil
}

func (s *ReplenishmentService) GetRun(ctx context.Context, id string) (*domain.RunSummary, error) {
	if summary, ok, err := s.cache.GetRun(ctx, id); err == nil && ok {
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Str("run_id", id).Msg("replenishment: cache get run failed")
	}

	return s.runs.GetRun(ctx, id)
}

func (s *ReplenishmentService) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	if limit > maxRunListLimit {
		limit = maxRunListLimit
	}
	return s.runs.ListRuns(ctx, limit)
}
