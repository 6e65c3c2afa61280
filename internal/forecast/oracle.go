// Package forecast provides the demand-forecast capability used by the
// replenishment job. An Oracle turns an ordered quantity series into a single
// scalar estimate; the package ships statistical estimators and a client for a
// remote model service.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrForecast is returned when an oracle fails or yields a non-finite value.
var ErrForecast = errors.New("forecast failed")

// Oracle produces a scalar demand forecast from a chronologically ordered series.
// Implementations must not mutate series and must not keep state across calls
// that changes their behaviour.
type Oracle interface {
	Forecast(ctx context.Context, series []float64, horizon int) (float64, error)
}

// OracleFunc is a function adapter for Oracle.
type OracleFunc func(ctx context.Context, series []float64, horizon int) (float64, error)

func (f OracleFunc) Forecast(ctx context.Context, series []float64, horizon int) (float64, error) {
	return f(ctx, series, horizon)
}

// Recent returns a copy of the last n values of series, dropping the oldest first.
func Recent(series []float64, n int) []float64 {
	if n > 0 && len(series) > n {
		series = series[len(series)-n:]
	}
	out := make([]float64, len(series))
	copy(out, series)
	return out
}

// Guard wraps an oracle so that callers only ever see finite forecasts or ErrForecast.
type Guard struct {
	oracle Oracle
	nSteps int
}

// NewGuard returns a Guard feeding at most nSteps recent observations to oracle.
func NewGuard(oracle Oracle, nSteps int) *Guard {
	return &Guard{oracle: oracle, nSteps: nSteps}
}

// Forecast truncates series to the configured recency window, calls the wrapped
// oracle on a private copy and validates its output.
func (g *Guard) Forecast(ctx context.Context, series []float64, horizon int) (float64, error) {
	if len(series) == 0 {
		return 0, fmt.Errorf("%w: empty series", ErrForecast)
	}
	if horizon < 1 {
		horizon = 1
	}

	value, err := g.oracle.Forecast(ctx, Recent(series, g.nSteps), horizon)
	if err != nil {
		if errors.Is(err, ErrForecast) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrForecast, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: non-finite output %v", ErrForecast, value)
	}

	return value, nil
}

var _ Oracle = (*Guard)(nil)
