package aviation

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gotour/pkg/client"
	"gotour/pkg/logger"
	"gotour/pkg/metrics"
)

type flightsResponse struct {
	Data  []FlightDetails `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// HTTPProvider queries an aviationstack-compatible /flights endpoint.
type HTTPProvider struct {
	client  *client.HttpClient
	apiKey  string
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration, m *metrics.Metrics, log *logger.Logger) *HTTPProvider {
	return &HTTPProvider{
		client:  client.NewHttpClient(strings.TrimRight(baseURL, "/"), timeout),
		apiKey:  apiKey,
		metrics: m,
		log:     log,
	}
}

func (p *HTTPProvider) FlightDetails(ctx context.Context, code, date string) (*FlightDetails, error) {
	q := url.Values{}
	if p.apiKey != "" {
		q.Set("access_key", p.apiKey)
	}
	q.Set("flight_iata", strings.ToUpper(strings.TrimSpace(code)))
	if date != "" {
		q.Set("flight_date", date)
	}

	resp, err := p.client.GET(ctx, "/flights?"+q.Encode())
	if err != nil {
		p.metrics.FlightLookup("upstream", "error")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !resp.IsSuccess() {
		p.metrics.FlightLookup("upstream", "error")
		p.log.Warn("Flight provider returned an error",
			"status", resp.StatusCode,
			"flight_code", code,
			"message", client.GetErrorMessage(resp),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body flightsResponse
	if err := resp.DecodeJSON(&body); err != nil {
		p.metrics.FlightLookup("upstream", "error")
		return nil, fmt.Errorf("%w: invalid response: %v", ErrUnavailable, err)
	}
	if body.Error != nil {
		p.metrics.FlightLookup("upstream", "error")
		return nil, fmt.Errorf("%w: %s %s", ErrUnavailable, body.Error.Code, body.Error.Message)
	}
	if len(body.Data) == 0 {
		p.metrics.FlightLookup("upstream", "miss")
		return nil, ErrFlightNotFound
	}

	p.metrics.FlightLookup("upstream", "hit")
	return &body.Data[0], nil
}

// Disabled is used when no provider URL is configured.
type Disabled struct{}

func (Disabled) FlightDetails(context.Context, string, string) (*FlightDetails, error) {
	return nil, ErrNotConfigured
}
