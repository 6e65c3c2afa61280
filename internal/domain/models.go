// internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementRecord is one completed outbound stock movement read from the inventory store.
type MovementRecord struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Timestamp time.Time `json:"timestamp" db:"date"`
	Quantity  float64   `json:"quantity" db:"quantity"`
}

// Observation is a single point of a product series.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	Quantity  float64   `json:"quantity"`
}

// ProductSeries holds the outbound quantity history of one product over the
// trailing window, ordered by timestamp ascending.
type ProductSeries struct {
	ProductID    int64         `json:"product_id"`
	Observations []Observation `json:"observations"`
}

// Len returns the number of observations.
func (s ProductSeries) Len() int {
	return len(s.Observations)
}

// Values returns the quantities in chronological order.
func (s ProductSeries) Values() []float64 {
	values := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		values[i] = o.Quantity
	}
	return values
}

// Forecast is the demand estimate produced for one product.
type Forecast struct {
	ProductID int64   `json:"product_id"`
	Value     float64 `json:"value"`
}

// Thresholds are the reorder levels computed for a product.
// MinQty is always MaxQty / 2.
type Thresholds struct {
	ProductID int64   `json:"product_id"`
	MinQty    float64 `json:"min_qty"`
	MaxQty    float64 `json:"max_qty"`
}

// Orderpoint is the min/max reorder rule stored for a product.
type Orderpoint struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	MinQty    float64   `json:"min_qty" db:"product_min_qty"`
	MaxQty    float64   `json:"max_qty" db:"product_max_qty"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Matches reports whether the orderpoint already carries exactly the given
// thresholds.
func (o Orderpoint) Matches(t Thresholds) bool {
	return o.MinQty == t.MinQty && o.MaxQty == t.MaxQty
}

// Round returns the thresholds rounded half away from zero to scale decimals.
func (t Thresholds) Round(scale int32) Thresholds {
	t.MinQty = roundQuantity(t.MinQty, scale)
	t.MaxQty = roundQuantity(t.MaxQty, scale)
	return t
}

func roundQuantity(v float64, scale int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(scale).Float64()
	return f
}
