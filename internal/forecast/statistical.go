package forecast

import (
	"context"
	"fmt"
)

// MovingAverage forecasts the arithmetic mean of the series. The estimate is
// flat, so the horizon does not change it.
type MovingAverage struct{}

func (MovingAverage) Forecast(_ context.Context, series []float64, _ int) (float64, error) {
	if len(series) == 0 {
		return 0, fmt.Errorf("%w: empty series", ErrForecast)
	}

	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series)), nil
}

// ExponentialSmoothing is simple exponential smoothing with a fixed alpha.
// The level after the last observation is the forecast for every horizon.
type ExponentialSmoothing struct {
	Alpha float64
}

func (e ExponentialSmoothing) Forecast(_ context.Context, series []float64, _ int) (float64, error) {
	if len(series) == 0 {
		return 0, fmt.Errorf("%w: empty series", ErrForecast)
	}
	if e.Alpha <= 0 || e.Alpha > 1 {
		return 0, fmt.Errorf("%w: alpha %v out of range (0, 1]", ErrForecast, e.Alpha)
	}

	level := series[0]
	for _, v := range series[1:] {
		level = e.Alpha*v + (1-e.Alpha)*level
	}
	return level, nil
}

var (
	_ Oracle = MovingAverage{}
	_ Oracle = ExponentialSmoothing{}
)
