package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/rs/zerolog/log"
)

// Trigger starts a replenishment run.
type Trigger interface {
	Trigger(ctx context.Context, source string) (*domain.RunSummary, error)
}

// Scheduler invokes the runner once per interval.
type Scheduler struct {
	trigger    Trigger
	interval   time.Duration
	runOnStart bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler. A non-positive interval falls back to 24h.
func New(trigger Trigger, interval time.Duration, runOnStart bool) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		trigger:    trigger,
		interval:   interval,
		runOnStart: runOnStart,
	}
}

// Start begins the schedule loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	log.Info().Dur("interval", s.interval).Bool("run_on_start", s.runOnStart).Msg("replenishment scheduler started")
}

// Stop cancels the loop, which also cancels an active scheduled run between
// products, and waits for it to exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("replenishment scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.fire()
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.fire()
		}
	}
}

func (s *Scheduler) fire() {
	summary, err := s.trigger.Trigger(s.ctx, "schedule")
	switch {
	case errors.Is(err, domain.ErrRunInProgress), errors.Is(err, ErrRunQueued):
		// logged by the runner
	case err != nil:
		log.Error().Err(err).Msg("scheduled replenishment run failed")
	case summary != nil:
		log.Info().
			Str("run_id", summary.RunID).
			Str("status", string(summary.Status)).
			Int("updated", summary.Counts.Updated).
			Int("failed", summary.Counts.Failed).
			Msg("scheduled replenishment run finished")
	}
}
