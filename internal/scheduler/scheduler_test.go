package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTrigger struct {
	calls atomic.Int32
}

func (c *countingTrigger) Trigger(ctx context.Context, source string) (*domain.RunSummary, error) {
	c.calls.Add(1)
	if c.calls.Load() == 2 {
		return nil, domain.ErrRunInProgress
	}
	return &domain.RunSummary{RunID: "r", Status: domain.RunStatusCompleted}, nil
}

func TestSchedulerTicks(t *testing.T) {
	trigger := &countingTrigger{}
	s := New(trigger, 10*time.Millisecond, true)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return trigger.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	n := trigger.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, trigger.calls.Load())
}

func TestSchedulerRunOnStart(t *testing.T) {
	trigger := &countingTrigger{}
	s := New(trigger, time.Hour, true)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return trigger.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerDefaultsInterval(t *testing.T) {
	s := New(&countingTrigger{}, 0, false)
	assert.Equal(t, 24*time.Hour, s.interval)
}
