package replenishment

import (
	"math"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
)

// Policy maps forecasts to reorder thresholds.
type Policy struct {
	MinObservations int
}

// NewPolicy creates a Policy gating on minObservations.
func NewPolicy(minObservations int) Policy {
	return Policy{MinObservations: minObservations}
}

// Eligible reports whether a series has enough history to be forecast.
func (p Policy) Eligible(s domain.ProductSeries) bool {
	return s.Len() >= p.MinObservations
}

// Decide returns max = forecast and min = forecast / 2. Negative, NaN and
// infinite forecasts are rejected.
func (p Policy) Decide(productID int64, forecast float64) (domain.Thresholds, bool) {
	if math.IsNaN(forecast) || math.IsInf(forecast, 0) || forecast < 0 {
		return domain.Thresholds{}, false
	}

	// no safety stock term
	return domain.Thresholds{
		ProductID: productID,
		MinQty:    forecast / 2,
		MaxQty:    forecast,
	}, true
}
