// internal/repository/inventory_repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
)

// InventoryStore is the narrow contract the replenishment job has with the
// inventory data store.
type InventoryStore interface {
	// QueryMovements returns completed outbound movements with a timestamp in
	// the closed interval [from, to]. Order is unspecified.
	QueryMovements(ctx context.Context, from, to time.Time) ([]domain.MovementRecord, error)

	// FindOrderpoint returns the orderpoint of a product, or nil when the product
	// has none. When several exist the one with the lowest ID is returned.
	FindOrderpoint(ctx context.Context, productID int64) (*domain.Orderpoint, error)

	// WriteOrderpoint overwrites min and max of an existing orderpoint together.
	WriteOrderpoint(ctx context.Context, orderpointID int64, minQty, maxQty float64) error
}

// QuantityScaler is implemented by stores that persist quantities with a fixed
// number of decimals. Thresholds are rounded to that scale before they are
// compared with the stored orderpoint.
type QuantityScaler interface {
	QuantityScale() int32
}
