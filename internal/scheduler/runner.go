package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/cache"
	"github.com/andresuchdata/smart-replenishment/internal/config"
	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/replenishment"
	"github.com/andresuchdata/smart-replenishment/internal/storage"
	"github.com/rs/zerolog/log"
)

// ErrRunQueued is returned by Trigger when the busy policy is queue and the
// request was folded into the pending run.
var ErrRunQueued = errors.New("replenishment run queued")

// JobRunner executes a single replenishment pass.
type JobRunner interface {
	Run(ctx context.Context, params replenishment.RunParams) (*domain.RunSummary, error)
}

// ParamsFunc builds run parameters for a run starting at now.
type ParamsFunc func(now time.Time) replenishment.RunParams

// Runner serializes replenishment runs behind a RunLock and publishes each
// finished summary to the cache and the report archive.
type Runner struct {
	job        JobRunner
	params     ParamsFunc
	lock       cache.RunLock
	summaries  cache.SummaryCache
	archiver   storage.ReportArchiver
	busyPolicy string
	retry      time.Duration
	maxWait    time.Duration
	now        func() time.Time

	mu      sync.Mutex
	running bool
	pending bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithSummaryCache(c cache.SummaryCache) RunnerOption {
	return func(r *Runner) { r.summaries = c }
}

func WithReportArchiver(a storage.ReportArchiver) RunnerOption {
	return func(r *Runner) { r.archiver = a }
}

// WithBusyPolicy selects what happens to a trigger while a run is active.
func WithBusyPolicy(policy string) RunnerOption {
	return func(r *Runner) { r.busyPolicy = policy }
}

// WithRetryInterval sets how often a queued run polls a lock held by another process.
func WithRetryInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.retry = d }
}

// WithMaxWait bounds how long a queued run waits for the lock.
func WithMaxWait(d time.Duration) RunnerOption {
	return func(r *Runner) { r.maxWait = d }
}

func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner. Without options it skips busy triggers and
// publishes nowhere.
func NewRunner(job JobRunner, params ParamsFunc, lock cache.RunLock, opts ...RunnerOption) *Runner {
	r := &Runner{
		job:        job,
		params:     params,
		lock:       lock,
		summaries:  cache.NewNoopSummaryCache(),
		archiver:   storage.NewNoopReportArchiver(),
		busyPolicy: config.BusyPolicySkip,
		retry:      30 * time.Second,
		maxWait:    6 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trigger starts a run and blocks until it finishes. When another run holds
// the lock it returns domain.ErrRunInProgress (skip policy) or ErrRunQueued
// (queue policy); queued triggers coalesce into one follow-up run.
func (r *Runner) Trigger(ctx context.Context, source string) (*domain.RunSummary, error) {
	release, ok, err := r.lock.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, r.busy(ctx, source)
	}

	// pending is left alone: a request queued between TryAcquire and here
	// is served by the drain below.
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	summary, err := r.execute(ctx, source)

	if r.takePending() {
		go r.drain(context.WithoutCancel(ctx), release)
	} else {
		release()
	}

	return summary, err
}

// Busy reports whether a run is active in this process.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) busy(ctx context.Context, source string) error {
	if r.busyPolicy != config.BusyPolicyQueue {
		log.Warn().Str("source", source).Msg("replenishment run skipped: another run is in progress")
		return domain.ErrRunInProgress
	}

	r.mu.Lock()
	if r.pending {
		r.mu.Unlock()
		log.Info().Str("source", source).Msg("replenishment run already queued, request coalesced")
		return ErrRunQueued
	}
	r.pending = true
	running := r.running
	r.mu.Unlock()

	log.Info().Str("source", source).Msg("replenishment run queued behind active run")

	// the active run belongs to another process
	if !running {
		go r.waitForLock(context.WithoutCancel(ctx))
	}
	return ErrRunQueued
}

// takePending consumes the pending flag. When nothing is pending the runner
// is marked idle.
func (r *Runner) takePending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending {
		r.pending = false
		return true
	}
	r.running = false
	return false
}

// drain runs queued work while still holding the lock.
func (r *Runner) drain(ctx context.Context, release func()) {
	defer release()
	for {
		if _, err := r.execute(ctx, "queued"); err != nil {
			log.Error().Err(err).Msg("queued replenishment run failed")
		}
		if !r.takePending() {
			return
		}
	}
}

func (r *Runner) waitForLock(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.maxWait)
	defer cancel()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			if r.running || !r.pending {
				// the active run in this process drains it
				r.mu.Unlock()
				return
			}
			r.pending = false
			r.mu.Unlock()
			log.Warn().Dur("waited", r.maxWait).Msg("queued replenishment run dropped: lock never became free")
			return
		case <-ticker.C:
			release, ok, err := r.lock.TryAcquire(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("queued replenishment run: lock check failed")
				continue
			}
			if !ok {
				continue
			}

			r.mu.Lock()
			if !r.pending {
				r.mu.Unlock()
				release()
				log.Debug().Msg("queued replenishment run already served by a direct trigger")
				return
			}
			r.running = true
			r.pending = false
			r.mu.Unlock()

			r.drain(context.WithoutCancel(ctx), release)
			return
		}
	}
}

func (r *Runner) execute(ctx context.Context, source string) (*domain.RunSummary, error) {
	params := r.params(r.now())

	log.Info().Str("source", source).Time("reference_time", params.ReferenceTime).Msg("triggering replenishment run")

	summary, err := r.job.Run(ctx, params)
	if summary != nil {
		r.publish(ctx, summary)
	}
	return summary, err
}

func (r *Runner) publish(ctx context.Context, summary *domain.RunSummary) {
	ctx = context.WithoutCancel(ctx)

	if err := r.summaries.Set(ctx, summary); err != nil {
		log.Warn().Err(err).Str("run_id", summary.RunID).Msg("failed to cache run summary")
	}

	key, err := r.archiver.Archive(ctx, summary)
	if err != nil {
		log.Warn().Err(err).Str("run_id", summary.RunID).Msg("failed to archive run summary")
		return
	}
	if key != "" {
		log.Debug().Str("run_id", summary.RunID).Str("key", key).Msg("run summary archived")
	}
}
