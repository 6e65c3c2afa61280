package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/smart-replenishment/internal/cache"
	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository/memory"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTrigger struct {
	ctxErr  error
	source  string
	started chan struct{}
}

func (s *stubTrigger) Trigger(ctx context.Context, source string) (*domain.RunSummary, error) {
	if s.started != nil {
		close(s.started)
		<-ctx.Done()
	}
	s.ctxErr = ctx.Err()
	s.source = source
	return &domain.RunSummary{RunID: "t"}, nil
}

func TestTriggerRunDetachesFromCaller(t *testing.T) {
	trigger := &stubTrigger{}
	svc := NewReplenishmentService(trigger, memory.NewRunRepository(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := svc.TriggerRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t", summary.RunID)
	assert.NoError(t, trigger.ctxErr)
	assert.Equal(t, "api", trigger.source)
}

func TestTriggerRunCancelledWithBaseContext(t *testing.T) {
	base, shutdown := context.WithCancel(context.Background())
	trigger := &stubTrigger{started: make(chan struct{})}
	svc := NewReplenishmentService(trigger, memory.NewRunRepository(), nil, WithBaseContext(base))

	done := make(chan error, 1)
	go func() {
		_, err := svc.TriggerRun(context.Background())
		done <- err
	}()

	<-trigger.started
	shutdown()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run was not cancelled on shutdown")
	}
	assert.ErrorIs(t, trigger.ctxErr, context.Canceled)
}

func TestLatestRunFallsBackToLedger(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunRepository()
	svc := NewReplenishmentService(&stubTrigger{}, runs, cache.NewNoopSummaryCache())

	_, err := svc.LatestRun(ctx)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, runs.CreateRun(ctx, &domain.RunSummary{RunID: "old", StartedAt: base}))
	require.NoError(t, runs.CreateRun(ctx, &domain.RunSummary{RunID: "new", StartedAt: base.Add(time.Hour)}))

	latest, err := svc.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.RunID)
}

func TestLatestRunPrefersCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	summaries := cache.NewSummaryCache(client, time.Minute)
	cached := &domain.RunSummary{
		RunID:   "cached",
		Results: []domain.ProductResult{{ProductID: 1, Outcome: domain.OutcomeApplied}},
	}
	require.NoError(t, summaries.Set(ctx, cached))

	svc := NewReplenishmentService(&stubTrigger{}, memory.NewRunRepository(), summaries)

	latest, err := svc.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cached", latest.RunID)
	assert.Len(t, latest.Results, 1)

	byID, err := svc.GetRun(ctx, "cached")
	require.NoError(t, err)
	assert.Equal(t, "cached", byID.RunID)

	_, err = svc.GetRun(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestListRunsClampsLimit(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		require.NoError(t, runs.CreateRun(ctx, &domain.RunSummary{RunID: string(rune('a' + i)), StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	svc := NewReplenishmentService(&stubTrigger{}, runs, nil)

	list, err := svc.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, defaultRunListLimit)

	list, err = svc.ListRuns(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, list, 25)
}

type busyTrigger struct{ stubTrigger }

func (busyTrigger) Busy() bool { return true }

func TestActive(t *testing.T) {
	assert.False(t, NewReplenishmentService(&stubTrigger{}, memory.NewRunRepository(), nil).Active())
	assert.True(t, NewReplenishmentService(&busyTrigger{}, memory.NewRunRepository(), nil).Active())
}
