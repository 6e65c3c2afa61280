package replenishment

import (
	"context"
	"fmt"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository"
)

// Updater writes thresholds onto existing orderpoints. It never creates one.
type Updater struct {
	store repository.InventoryStore
}

// NewUpdater creates a new Updater.
func NewUpdater(store repository.InventoryStore) *Updater {
	return &Updater{store: store}
}

// Apply overwrites min and max of the product's orderpoint. Products without
// an orderpoint yield OutcomeNotFound; an orderpoint that already carries the
// thresholds is left untouched and yields OutcomeUnchanged. Stores with a
// fixed quantity scale are compared at that scale, others exactly.
func (u *Updater) Apply(ctx context.Context, t domain.Thresholds) (domain.Outcome, error) {
	if scaler, ok := u.store.(repository.QuantityScaler); ok {
		t = t.Round(scaler.QuantityScale())
	}

	op, err := u.store.FindOrderpoint(ctx, t.ProductID)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("find orderpoint for product %d: %w", t.ProductID, err)
	}
	if op == nil {
		return domain.OutcomeNotFound, nil
	}
	if op.Matches(t) {
		return domain.OutcomeUnchanged, nil
	}

	if err := u.store.WriteOrderpoint(ctx, op.ID, t.MinQty, t.MaxQty); err != nil {
		return domain.OutcomeFailed, fmt.Errorf("%w: product %d orderpoint %d: %w", domain.ErrWriteFailure, t.ProductID, op.ID, err)
	}

	return domain.OutcomeApplied, nil
}
