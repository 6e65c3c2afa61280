package replenishment

import (
	"context"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository/memory"
	"github.com/stretchr/testify/mock"
)

var refTime = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) Forecast(ctx context.Context, series []float64, horizon int) (float64, error) {
	args := m.Called(series, horizon)
	return args.Get(0).(float64), args.Error(1)
}

// seedMovements adds n daily movements of qty for a product, the latest one
// an hour before refTime.
func seedMovements(store *memory.InventoryStore, productID int64, n int, qty float64) {
	for i := 0; i < n; i++ {
		store.AddMovement(domain.MovementRecord{
			ProductID: productID,
			Timestamp: refTime.Add(-time.Hour - time.Duration(n-1-i)*24*time.Hour),
			Quantity:  qty,
		})
	}
}

func testParams() RunParams {
	p := DefaultRunParams(refTime)
	p.Workers = 2
	return p
}

func fixedClock() time.Time { return refTime }

// cancelAfterWrite cancels the run context once a write has gone through.
type cancelAfterWrite struct {
	*memory.InventoryStore
	cancel context.CancelFunc
}

func (s cancelAfterWrite) WriteOrderpoint(ctx context.Context, orderpointID int64, minQty, maxQty float64) error {
	err := s.InventoryStore.WriteOrderpoint(ctx, orderpointID, minQty, maxQty)
	s.cancel()
	return err
}

// scaledStore reports a fixed storage scale on top of the memory store.
type scaledStore struct {
	*memory.InventoryStore
	scale int32
}

func (s scaledStore) QuantityScale() int32 { return s.scale }
