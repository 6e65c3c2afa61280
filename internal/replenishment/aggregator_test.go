package replenishment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectGroupsAndOrders(t *testing.T) {
	store := memory.NewInventoryStore()
	store.AddMovement(domain.MovementRecord{ProductID: 9, Timestamp: refTime.Add(-2 * time.Hour), Quantity: 2})
	store.AddMovement(domain.MovementRecord{ProductID: 3, Timestamp: refTime.Add(-1 * time.Hour), Quantity: 5})
	store.AddMovement(domain.MovementRecord{ProductID: 9, Timestamp: refTime.Add(-3 * time.Hour), Quantity: 1})
	store.AddMovement(domain.MovementRecord{ProductID: 3, Timestamp: refTime.Add(-4 * time.Hour), Quantity: 4})
	store.AddMovement(domain.MovementRecord{ProductID: 9, Timestamp: refTime.Add(-2 * time.Hour), Quantity: 3})

	series, err := NewAggregator(store).Collect(context.Background(), refTime, DefaultWindow)
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, int64(3), series[0].ProductID)
	assert.Equal(t, []float64{4, 5}, series[0].Values())

	assert.Equal(t, int64(9), series[1].ProductID)
	// equal timestamps keep encounter order
	assert.Equal(t, []float64{1, 2, 3}, series[1].Values())
}

func TestCollectWindowBoundary(t *testing.T) {
	store := memory.NewInventoryStore()
	store.AddMovement(domain.MovementRecord{ProductID: 1, Timestamp: refTime.Add(-DefaultWindow), Quantity: 1})
	store.AddMovement(domain.MovementRecord{ProductID: 1, Timestamp: refTime.Add(-DefaultWindow - 24*time.Hour), Quantity: 100})
	store.AddMovement(domain.MovementRecord{ProductID: 1, Timestamp: refTime, Quantity: 2})
	store.AddMovement(domain.MovementRecord{ProductID: 2, Timestamp: refTime.Add(time.Minute), Quantity: 7})

	series, err := NewAggregator(store).Collect(context.Background(), refTime, DefaultWindow)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, []float64{1, 2}, series[0].Values())
}

func TestCollectStoreFailure(t *testing.T) {
	store := memory.NewInventoryStore()
	seedMovements(store, 1, 40, 1)
	store.QueryErr = errors.New("connection refused")

	series, err := NewAggregator(store).Collect(context.Background(), refTime, DefaultWindow)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, series)
}

func TestCollectEmpty(t *testing.T) {
	series, err := NewAggregator(memory.NewInventoryStore()).Collect(context.Background(), refTime, DefaultWindow)
	require.NoError(t, err)
	assert.Empty(t, series)
}
