package replenishment

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/forecast"
	"github.com/andresuchdata/smart-replenishment/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Job drives one replenishment pass: Collecting -> Forecasting -> Applying -> Done.
type Job struct {
	aggregator *Aggregator
	updater    *Updater
	oracle     forecast.Oracle
	runs       repository.RunRepository
	now        func() time.Time
	newID      func() string
}

// Option configures a Job.
type Option func(*Job)

// WithRunRepository records every run in the given ledger.
func WithRunRepository(runs repository.RunRepository) Option {
	return func(j *Job) {
		j.runs = runs
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(j *Job) {
		j.newID = newID
	}
}

// NewJob creates a Job reading from and writing to store.
func NewJob(store repository.InventoryStore, oracle forecast.Oracle, opts ...Option) *Job {
	j := &Job{
		aggregator: NewAggregator(store),
		updater:    NewUpdater(store),
		oracle:     oracle,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// decision is the forecasting-stage result of one product.
type decision struct {
	series     domain.ProductSeries
	forecast   domain.Forecast
	thresholds domain.Thresholds
	accepted   bool
	err        error
	done       bool
}

// Run executes a full pass. Only an unreadable store fails the run; every
// per-product problem is recorded in the summary and the run moves on.
// Cancelling ctx stops the run between products. Started products finish and
// completed forecasts are still applied; products never started are recorded
// as cancelled, and the summary is marked cancelled.
func (j *Job) Run(ctx context.Context, params RunParams) (*domain.RunSummary, error) {
	p := params.withDefaults(j.now())

	summary := &domain.RunSummary{
		RunID:         j.newID(),
		Status:        domain.RunStatusProcessing,
		Stage:         domain.StageCollecting,
		ReferenceTime: p.ReferenceTime,
		WindowStart:   p.ReferenceTime.Add(-p.Window),
		StartedAt:     j.now(),
	}
	logger := log.With().Str("run_id", summary.RunID).Logger()

	logger.Info().
		Time("reference_time", p.ReferenceTime).
		Time("window_start", summary.WindowStart).
		Int("min_observations", p.MinObservations).
		Int("n_steps", p.NSteps).
		Int("workers", p.Workers).
		Msg("replenishment run started")

	j.createRun(ctx, summary, logger)

	// Collecting
	series, err := j.aggregator.Collect(ctx, p.ReferenceTime, p.Window)
	if err != nil {
		summary.Status = domain.RunStatusFailed
		summary.Error = err.Error()
		j.finish(ctx, summary, logger)
		logger.Error().Err(err).Msg("replenishment run aborted")
		return summary, err
	}
	summary.Counts.Considered = len(series)

	// Forecasting
	summary.Stage = domain.StageForecasting
	j.saveProgress(ctx, summary, logger)

	policy := NewPolicy(p.MinObservations)
	oracle := forecast.NewGuard(j.oracle, p.NSteps)

	eligible := make([]domain.ProductSeries, 0, len(series))
	for _, s := range series {
		if !policy.Eligible(s) {
			logger.Debug().Int64("product_id", s.ProductID).Int("observations", s.Len()).Msg("insufficient history")
			summary.Record(domain.ProductResult{
				ProductID:    s.ProductID,
				Outcome:      domain.OutcomeInsufficientHistory,
				Observations: s.Len(),
			})
			continue
		}
		eligible = append(eligible, s)
	}

	decisions := make([]decision, len(eligible))
	for i, s := range eligible {
		decisions[i].series = s
	}
	forecastCancelled := forEachProduct(ctx, p.Workers, len(eligible), func(workCtx context.Context, i int) {
		s := eligible[i]
		d := decision{series: s, forecast: domain.Forecast{ProductID: s.ProductID}}
		d.forecast.Value, d.err = oracle.Forecast(workCtx, s.Values(), p.Horizon)
		if d.err == nil {
			d.thresholds, d.accepted = policy.Decide(s.ProductID, d.forecast.Value)
		}
		d.done = true
		decisions[i] = d
	})

	var toApply []int
	for i, d := range decisions {
		if !d.done {
			summary.Record(domain.ProductResult{
				ProductID:    d.series.ProductID,
				Outcome:      domain.OutcomeCancelled,
				Observations: d.series.Len(),
			})
			continue
		}
		switch {
		case d.err != nil:
			logger.Warn().Err(d.err).Int64("product_id", d.series.ProductID).Msg("forecast failed")
			summary.Record(domain.ProductResult{
				ProductID:    d.series.ProductID,
				Outcome:      domain.OutcomeFailed,
				Observations: d.series.Len(),
				Error:        d.err.Error(),
			})
		case !d.accepted:
			logger.Info().Int64("product_id", d.series.ProductID).Float64("forecast", d.forecast.Value).Msg("policy rejected forecast")
			summary.Record(domain.ProductResult{
				ProductID:    d.series.ProductID,
				Outcome:      domain.OutcomePolicySkipped,
				Observations: d.series.Len(),
				Forecast:     d.forecast.Value,
			})
		default:
			toApply = append(toApply, i)
		}
	}

	// Applying
	summary.Stage = domain.StageApplying
	j.saveProgress(ctx, summary, logger)

	// Products whose forecast finished before a cancellation are still
	// written; only products that never started are left out.
	applyCtx := ctx
	if forecastCancelled {
		applyCtx = context.WithoutCancel(ctx)
	}

	type applyResult struct {
		outcome domain.Outcome
		err     error
		done    bool
	}
	applied := make([]applyResult, len(toApply))
	applyCancelled := forEachProduct(applyCtx, p.Workers, len(toApply), func(workCtx context.Context, k int) {
		outcome, err := j.updater.Apply(workCtx, decisions[toApply[k]].thresholds)
		applied[k] = applyResult{outcome: outcome, err: err, done: true}
	})

	for k, r := range applied {
		d := decisions[toApply[k]]
		result := domain.ProductResult{
			ProductID:    d.series.ProductID,
			Outcome:      r.outcome,
			Observations: d.series.Len(),
			Forecast:     d.forecast.Value,
			MinQty:       d.thresholds.MinQty,
			MaxQty:       d.thresholds.MaxQty,
		}
		if !r.done {
			result.Outcome = domain.OutcomeCancelled
			summary.Record(result)
			continue
		}
		if r.err != nil {
			result.Error = r.err.Error()
			logger.Warn().Err(r.err).Int64("product_id", d.series.ProductID).Msg("orderpoint update failed")
		} else if r.outcome == domain.OutcomeNotFound {
			logger.Info().Int64("product_id", d.series.ProductID).Msg("no orderpoint for product, skipped")
		}
		summary.Record(result)
	}

	if forecastCancelled || applyCancelled {
		return j.cancel(ctx, summary, logger), nil
	}

	summary.Stage = domain.StageDone
	summary.Status = domain.RunStatusCompleted
	j.finish(ctx, summary, logger)

	c := summary.Counts
	logger.Info().
		Int("considered", c.Considered).
		Int("insufficient_history", c.InsufficientHistory).
		Int("policy_skipped", c.PolicySkipped).
		Int("updated", c.Updated).
		Int("unchanged", c.Unchanged).
		Int("not_found", c.NotFound).
		Int("failed", c.Failed).
		Int("cancelled", c.Cancelled).
		Dur("duration", summary.Duration()).
		Msg("replenishment run completed")

	return summary, nil
}

// forEachProduct runs fn for indexes [0, n) on at most workers goroutines.
// Each index is handed to exactly one goroutine. fn receives a context that is
// not cancelled with ctx, so started work always completes. It reports whether
// ctx was cancelled before every index was started.
func forEachProduct(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) bool {
	workCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(workers)

	cancelled := false
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		g.Go(func() error {
			fn(workCtx, i)
			return nil
		})
	}
	_ = g.Wait()

	return cancelled
}

func (j *Job) cancel(ctx context.Context, summary *domain.RunSummary, logger zerolog.Logger) *domain.RunSummary {
	summary.Cancelled = true
	summary.Status = domain.RunStatusCancelled
	if err := ctx.Err(); err != nil {
		summary.Error = err.Error()
	}
	j.finish(ctx, summary, logger)
	logger.Warn().Str("stage", string(summary.Stage)).Int("recorded", len(summary.Results)).Msg("replenishment run cancelled")
	return summary
}

func (j *Job) finish(ctx context.Context, summary *domain.RunSummary, logger zerolog.Logger) {
	completed := j.now()
	summary.CompletedAt = &completed
	sort.SliceStable(summary.Results, func(a, b int) bool {
		return summary.Results[a].ProductID < summary.Results[b].ProductID
	})
	j.saveProgress(ctx, summary, logger)
}

func (j *Job) createRun(ctx context.Context, summary *domain.RunSummary, logger zerolog.Logger) {
	if j.runs == nil {
		return
	}
	if err := j.runs.CreateRun(context.WithoutCancel(ctx), summary); err != nil {
		logger.Warn().Err(err).Msg("failed to record run in ledger")
	}
}

func (j *Job) saveProgress(ctx context.Context, summary *domain.RunSummary, logger zerolog.Logger) {
	if j.runs == nil {
		return
	}
	if err := j.runs.UpdateRun(context.WithoutCancel(ctx), summary); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn().Err(err).Str("stage", string(summary.Stage)).Msg("failed to update run in ledger")
	}
}
