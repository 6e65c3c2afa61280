package replenishment

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/forecast"
	"github.com/andresuchdata/smart-replenishment/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestJob(store *memory.InventoryStore, oracle forecast.Oracle, opts ...Option) *Job {
	opts = append([]Option{WithClock(fixedClock), WithIDGenerator(func() string { return "run-1" })}, opts...)
	return NewJob(store, oracle, opts...)
}

func TestRunScenarios(t *testing.T) {
	store := memory.NewInventoryStore()
	seedMovements(store, 1, 35, 1) // P
	seedMovements(store, 2, 10, 1) // Q
	opP := store.AddOrderpoint(domain.Orderpoint{ProductID: 1, MinQty: 1, MaxQty: 2})
	opQ := store.AddOrderpoint(domain.Orderpoint{ProductID: 2, MinQty: 1, MaxQty: 2})

	oracle := new(mockOracle)
	oracle.On("Forecast", mock.MatchedBy(func(s []float64) bool { return len(s) == 30 }), 1).Return(12.5, nil).Once()

	summary, err := newTestJob(store, oracle).Run(context.Background(), testParams())
	require.NoError(t, err)
	oracle.AssertExpectations(t)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, domain.RunStatusCompleted, summary.Status)
	assert.Equal(t, domain.StageDone, summary.Stage)
	assert.False(t, summary.Cancelled)
	assert.Equal(t, domain.RunCounts{Considered: 2, InsufficientHistory: 1, Updated: 1}, summary.Counts)

	ops := store.Orderpoints()
	assert.Equal(t, opP, ops[0].ID)
	assert.Equal(t, 12.5, ops[0].MaxQty)
	assert.Equal(t, 6.25, ops[0].MinQty)
	assert.Equal(t, opQ, ops[1].ID)
	assert.Equal(t, 2.0, ops[1].MaxQty)
	assert.Equal(t, 1.0, ops[1].MinQty)
	assert.Equal(t, 0, store.Writes(opQ))

	require.Len(t, summary.Results, 2)
	assert.Equal(t, domain.ProductResult{
		ProductID: 1, Outcome: domain.OutcomeApplied, Observations: 35,
		Forecast: 12.5, MinQty: 6.25, MaxQty: 12.5,
	}, summary.Results[0])
	assert.Equal(t, domain.OutcomeInsufficientHistory, summary.Results[1].Outcome)
}

func TestRunGateSkipsOracle(t *testing.T) {
	store := memory.NewInventoryStore()
	seedMovements(store, 1, 29, 3)
	store.AddOrderpoint(domain.Orderpoint{ProductID: 1})

	oracle := new(mockOracle)

	summary, err := newTestJob(store, oracle).Run(context.Background(), testParams())
	require.NoError(t, err)

	oracle.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything)
	assert.Equal(t, 1, summary.Counts.InsufficientHistory)
	assert.Zero(t, store.TotalWrites())
}

func TestRunExactHalving(t *testing.T) {
	store := memory.NewInventoryStore()
	seedMovements(store, 1, 30, 3)
	store.AddOrderpoint(domain.Orderpoint{ProductID: 1})

	oracle := forecast.OracleFunc(func(context.Context, []float64, int) (float64, error) { return 7, nil })

	_, err := newTestJob(store, oracle).Run(context.Background(), testParams())
	require.NoError(t, err)

	op := store.Orderpoints()[0]
	assert.Equal(t, 7.0, op.MaxQty)
	assert.Equal(t, 3.5, op.MinQty)
}

func TestRunInvalidForecastWritesNothing(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		err     error
		outcome domain.Outcome
	}{
		{name: "negative", value: -4, outcome: domain.OutcomePolicySkipped},
		{name: "nan", value: math.NaN(), outcome: domain.OutcomeFailed},
		{name: "inf", value: math.Inf(-1), outcome: domain.OutcomeFailed},
		{name: "oracle error", err: errors.New("model unavailable"), outcome: domain.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewInventoryStore()
			seedMovements(store, 1, 30, 3)
			store.AddOrderpoint(domain.Orderpoint{ProductID: 1, MinQty: 4, MaxQty: 8})

			oracle := forecast.OracleFunc(func(context.Context, []float64, int) (float64, error) {
				return tt.value, tt.err
			})

			summary, err := newTestJob(store, oracle).Run(context.Background(), testParams())
			require.NoError(t, err)
			require.Len(t, summary.Results, 1)
			assert.Equal(t, tt.outcome, summary.Results[0].Outcome)
			assert.Zero(t, store.TotalWrites())

			op := store.Orderpoints()[0]
			assert.Equal(t, 4.0, op.MinQty)
			assert.Equal(t, 8.0, op.MaxQty)
		})
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := memory.NewInventoryStore()
	seedMovements(store, 1, 40, 2)
	seedMovements(store, 2, 40, 6)
	op1 := store.AddOrderpoint(domain.Orderpoint{ProductID: 1})
	op2 := store.AddOrderpoint(domain.Orderpoint{ProductID: 2})

	job := newTestJob(store, forecast.MovingAverage{})

	first, err := job.Run(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Counts.Updated)
	before := store.Orderpoints()

	second, err := job.Run(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Counts.Updated)
	assert.Equal(t, 2, second.Counts.Unchanged)

	assert.Equal(t, before, store.Orderpoints())
	assert.Equal(t, 1, store.Writes(op1))
	assert.Equal(t, 1, store.Writes(op2))
}

func TestRunWindowBoundary(t *testing.T) {
	store := memory.NewInventoryStore()
	seedMovements(store, 1, 29, 1)
	store.AddMovement(domain.MovementRecord{ProductID: 1, Timestamp: refTime.Add(-DefaultWindow), Quantity: 1})
	store.AddMovement(domain.MovementRecord{ProductID: 1, Timestamp: refTime.Add(-DefaultWindow - 24*time.Hour), Quantity: 1})
	store.AddOrderpoint(domain.Orderpoint{ProductID: 1})

	var seen atomic.Int32
	oracle := forecast.OracleFunc(func(_ context.Context, series []float64, _ int) (float64, error) {
		seen.Store(int32(len(series)))
		return 1, nil
	})

	summary, err := newTestJob(store, oracle).Run(context.Background(), testParams())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 30, summary.Results[0].Observations)
	assert.Equal(t, int32(30), seen.Load())
	assert.Equal(t, refTime.Add(-DefaultWindow), summary.WindowStart)
}

func TestRunStoreFailureAborts(t *testing.T) {
	store := memory.NewInventoryStore()
	seedMovements(store, 1, 40, 1)
	store.AddOrderpoint(domain.Orderpoint{ProductID: 1})
	store.QueryErr = errors.New("db down")
	runs := memory.NewRunRepository()

	oracle := new(mockOracle)

	summary, err := newTestJob(store, oracle, WithRunRepository(runs)).Run(context.Background(), testParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	require.NotNil(t, summary)
	assert.Equal(t, domain.RunStatusFailed, summary.Status)
	assert.Equal(t, domain.RunCounts{}, summary.Counts)
	assert.Empty(t, summary.Results)
	assert.Zero(t, store.TotalWrites())
	oracle.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything)

	recorded, err := runs.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, recorded.Status)
	assert.Contains(t, recorded.Error, "db down")
}

func TestRunContinuesAfterProductFailures(t *testing.T) {
	store := memory.NewInventoryStore()
	for id := int64(1); id <= 4; id++ {
		seedMovements(store, id, 30, float64(id))
	}
	op1 := store.AddOrderpoint(domain.Orderpoint{ProductID: 1})
	store.AddOrderpoint(domain.Orderpoint{ProductID: 2})
	// product 3 has no orderpoint
	store.AddOrderpoint(domain.Orderpoint{ProductID: 4})
	store.WriteErrs[op1] = errors.New("row locked")

	oracle := new(mockOracle)
	oracle.On("Forecast", mock.MatchedBy(func(s []float64) bool { return s[0] == 4 }), 1).Return(0.0, errors.New("timeout"))
	oracle.On("Forecast", mock.Anything, 1).Return(10.0, nil)

	summary, err := newTestJob(store, oracle).Run(context.Background(), testParams())
	require.NoError(t, err)

	assert.Equal(t, domain.RunCounts{Considered: 4, Updated: 1, NotFound: 1, Failed: 2}, summary.Counts)
	require.Len(t, summary.Results, 4)
	assert.Equal(t, domain.OutcomeFailed, summary.Results[0].Outcome)
	assert.Contains(t, summary.Results[0].Error, "row locked")
	assert.Equal(t, domain.OutcomeApplied, summary.Results[1].Outcome)
	assert.Equal(t, domain.OutcomeNotFound, summary.Results[2].Outcome)
	assert.Equal(t, domain.OutcomeFailed, summary.Results[3].Outcome)
	assert.Contains(t, summary.Results[3].Error, "timeout")
}

func TestRunCancelledBetweenProducts(t *testing.T) {
	store := memory.NewInventoryStore()
	for id := int64(1); id <= 6; id++ {
		seedMovements(store, id, 30, 1)
		store.AddOrderpoint(domain.Orderpoint{ProductID: id})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	oracle := forecast.OracleFunc(func(workCtx context.Context, _ []float64, _ int) (float64, error) {
		calls.Add(1)
		cancel()
		// in-flight work keeps a live context
		if workCtx.Err() != nil {
			return 0, workCtx.Err()
		}
		return 5, nil
	})

	params := testParams()
	params.Workers = 1
	runs := memory.NewRunRepository()

	summary, err := newTestJob(store, oracle, WithRunRepository(runs)).Run(ctx, params)
	require.NoError(t, err)

	assert.True(t, summary.Cancelled)
	assert.Equal(t, domain.RunStatusCancelled, summary.Status)
	forecasted := int(calls.Load())
	assert.GreaterOrEqual(t, forecasted, 1)
	assert.Less(t, forecasted, 6)

	// completed forecasts are still written, the rest are reported cancelled
	assert.Equal(t, domain.StageApplying, summary.Stage)
	assert.Equal(t, 6, summary.Counts.Considered)
	assert.Equal(t, summary.Counts.Considered, summary.Counts.Accounted())
	assert.Len(t, summary.Results, 6)
	assert.Equal(t, forecasted, summary.Counts.Updated)
	assert.Equal(t, 6-forecasted, summary.Counts.Cancelled)
	assert.Equal(t, forecasted, store.TotalWrites())
	for _, r := range summary.Results {
		if r.Outcome == domain.OutcomeApplied {
			assert.InDelta(t, 5.0, r.MaxQty, 1e-9)
			continue
		}
		assert.Equal(t, domain.OutcomeCancelled, r.Outcome, "product %d", r.ProductID)
	}

	recorded, err := runs.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCancelled, recorded.Status)
	assert.Equal(t, recorded.Counts.Considered, recorded.Counts.Accounted())
}

func TestRunCancelledWhileApplying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewInventoryStore()
	for id := int64(1); id <= 4; id++ {
		seedMovements(store, id, 30, 1)
		store.AddOrderpoint(domain.Orderpoint{ProductID: id})
	}

	params := testParams()
	params.Workers = 1
	oracle := forecast.OracleFunc(func(context.Context, []float64, int) (float64, error) {
		return 8, nil
	})
	job := newTestJob(store, oracle)
	job.updater = NewUpdater(cancelAfterWrite{InventoryStore: store, cancel: cancel})

	summary, err := job.Run(ctx, params)
	require.NoError(t, err)

	assert.True(t, summary.Cancelled)
	assert.Equal(t, 4, summary.Counts.Considered)
	assert.Equal(t, summary.Counts.Considered, summary.Counts.Accounted())
	assert.GreaterOrEqual(t, summary.Counts.Updated, 1)
	assert.Equal(t, 4-summary.Counts.Updated, summary.Counts.Cancelled)
	assert.Equal(t, summary.Counts.Updated, store.TotalWrites())
}

func TestRunRecordsLedger(t *testing.T) {
	store := memory.NewInventoryStore()
	seedMovements(store, 1, 30, 2)
	store.AddOrderpoint(domain.Orderpoint{ProductID: 1})
	runs := memory.NewRunRepository()

	_, err := newTestJob(store, forecast.MovingAverage{}, WithRunRepository(runs)).Run(context.Background(), testParams())
	require.NoError(t, err)

	recorded, err := runs.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, recorded.Status)
	assert.Equal(t, domain.StageDone, recorded.Stage)
	assert.Equal(t, 1, recorded.Counts.Updated)
	require.NotNil(t, recorded.CompletedAt)
}

func TestParamsDefaults(t *testing.T) {
	p := RunParams{}.withDefaults(refTime)
	assert.Equal(t, DefaultRunParams(refTime).Window, p.Window)
	assert.Equal(t, 30, p.MinObservations)
	assert.Equal(t, 30, p.NSteps)
	assert.Equal(t, 1, p.Horizon)
	assert.Equal(t, 1, p.Workers)
	assert.Equal(t, refTime, p.ReferenceTime)
}
