package forecast

import (
	"fmt"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/config"
)

// NewFromConfig builds the oracle selected by FORECAST_ORACLE.
func NewFromConfig(cfg config.ForecastConfig) (Oracle, error) {
	switch cfg.Oracle {
	case "", "moving_average":
		return MovingAverage{}, nil
	case "ses":
		return ExponentialSmoothing{Alpha: cfg.Alpha}, nil
	case "http":
		if cfg.HTTPEndpoint == "" {
			return nil, fmt.Errorf("http oracle requires an endpoint")
		}
		var opts []HTTPOption
		if cfg.TokenURL != "" {
			opts = append(opts, WithClientCredentials(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Scopes))
		}
		return NewHTTPOracle(cfg.HTTPEndpoint, time.Duration(cfg.HTTPTimeoutSeconds)*time.Second, opts...), nil
	default:
		return nil, fmt.Errorf("unknown forecast oracle %q", cfg.Oracle)
	}
}
