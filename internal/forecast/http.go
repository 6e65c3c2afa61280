package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// HTTPOracle asks a remote model service for a forecast.
//
// Request:  POST <endpoint> {"series": [...], "horizon": n}
// Response: 200 {"forecast": x}
type HTTPOracle struct {
	endpoint   string
	httpClient *http.Client
}

// HTTPOption configures an HTTPOracle.
type HTTPOption func(*HTTPOracle)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(o *HTTPOracle) {
		o.httpClient = hc
	}
}

// WithClientCredentials authenticates requests with an OAuth2 client-credentials
// token fetched from tokenURL. The token is cached and refreshed by the oauth2 transport.
func WithClientCredentials(tokenURL, clientID, clientSecret string, scopes []string) HTTPOption {
	return func(o *HTTPOracle) {
		cc := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
		}
		timeout := o.httpClient.Timeout
		o.httpClient = cc.Client(context.Background())
		o.httpClient.Timeout = timeout
	}
}

// NewHTTPOracle creates an oracle backed by the model service at endpoint.
func NewHTTPOracle(endpoint string, timeout time.Duration, opts ...HTTPOption) *HTTPOracle {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	o := &HTTPOracle{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type forecastRequest struct {
	Series  []float64 `json:"series"`
	Horizon int       `json:"horizon"`
}

type forecastResponse struct {
	Forecast *float64 `json:"forecast"`
	Error    string   `json:"error,omitempty"`
}

func (o *HTTPOracle) Forecast(ctx context.Context, series []float64, horizon int) (float64, error) {
	payload, err := json.Marshal(forecastRequest{Series: series, Horizon: horizon})
	if err != nil {
		return 0, fmt.Errorf("%w: encode request: %v", ErrForecast, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %v", ErrForecast, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: do request: %v", ErrForecast, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("%w: read response: %v", ErrForecast, err)
	}

	var out forecastResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(body, &out)
		return 0, fmt.Errorf("%w: model service returned %d %s", ErrForecast, resp.StatusCode, out.Error)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", ErrForecast, err)
	}
	if out.Forecast == nil {
		return 0, fmt.Errorf("%w: response has no forecast", ErrForecast)
	}

	return *out.Forecast, nil
}

var _ Oracle = (*HTTPOracle)(nil)
