package replenishment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository"
)

// Aggregator turns raw outbound movements into one ordered series per product.
type Aggregator struct {
	store repository.InventoryStore
}

// NewAggregator creates a new Aggregator.
func NewAggregator(store repository.InventoryStore) *Aggregator {
	return &Aggregator{store: store}
}

// Collect reads the movements in [ref-window, ref] and groups them by product.
// Series come back ordered by product ID; observations are ascending by
// timestamp with ties kept in the order the store returned them. Products
// without movements are absent. Any store failure yields ErrDataUnavailable
// and no series.
func (a *Aggregator) Collect(ctx context.Context, ref time.Time, window time.Duration) ([]domain.ProductSeries, error) {
	from := ref.Add(-window)

	records, err := a.store.QueryMovements(ctx, from, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}

	byProduct := make(map[int64][]domain.Observation)
	for _, m := range records {
		if m.Timestamp.Before(from) || m.Timestamp.After(ref) {
			continue
		}
		byProduct[m.ProductID] = append(byProduct[m.ProductID], domain.Observation{
			Timestamp: m.Timestamp,
			Quantity:  m.Quantity,
		})
	}

	series := make([]domain.ProductSeries, 0, len(byProduct))
	for productID, obs := range byProduct {
		sort.SliceStable(obs, func(i, j int) bool {
			return obs[i].Timestamp.Before(obs[j].Timestamp)
		})
		series = append(series, domain.ProductSeries{
			ProductID:    productID,
			Observations: obs,
		})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].ProductID < series[j].ProductID
	})

	return series, nil
}
