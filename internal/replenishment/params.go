package replenishment

import (
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/config"
)

const (
	DefaultWindow          = 180 * 24 * time.Hour
	DefaultMinObservations = 30
	DefaultNSteps          = 30
	DefaultHorizon         = 1
	DefaultWorkers         = 4
)

// RunParams are the explicit inputs of one run.
type RunParams struct {
	ReferenceTime   time.Time
	Window          time.Duration
	MinObservations int
	NSteps          int
	Horizon         int
	Workers         int
}

// DefaultRunParams returns the default parameters anchored at now.
func DefaultRunParams(now time.Time) RunParams {
	return RunParams{
		ReferenceTime:   now,
		Window:          DefaultWindow,
		MinObservations: DefaultMinObservations,
		NSteps:          DefaultNSteps,
		Horizon:         DefaultHorizon,
		Workers:         DefaultWorkers,
	}
}

// ParamsFromConfig converts the replenishment settings into run parameters.
func ParamsFromConfig(cfg config.ReplenishmentConfig, now time.Time) RunParams {
	return RunParams{
		ReferenceTime:   now,
		Window:          cfg.Window(),
		MinObservations: cfg.MinObservations,
		NSteps:          cfg.NSteps,
		Horizon:         cfg.Horizon,
		Workers:         cfg.Workers,
	}.withDefaults(now)
}

func (p RunParams) withDefaults(now time.Time) RunParams {
	if p.ReferenceTime.IsZero() {
		p.ReferenceTime = now
	}
	if p.Window <= 0 {
		p.Window = DefaultWindow
	}
	if p.MinObservations < 1 {
		p.MinObservations = DefaultMinObservations
	}
	if p.NSteps < 1 {
		p.NSteps = DefaultNSteps
	}
	if p.Horizon < 1 {
		p.Horizon = DefaultHorizon
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	return p
}
