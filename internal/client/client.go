package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mwellman/weatherbatch/internal/models"
	"github.com/mwellman/weatherbatch/internal/observability"
)

// DefaultAPIURL is the upstream current-conditions endpoint.
const DefaultAPIURL = "https://api.weatherbit.io/v2.0/current"

// ErrNoWeatherData is returned when a location's response cannot be parsed
// into a weather record. Network failures, unknown locations, and malformed
// upstream bodies all collapse to this error, keyed by the location.
var ErrNoWeatherData = errors.New("no weather data")

// WeatherFetcher obtains weather records from the remote source.
type WeatherFetcher interface {
	FetchOne(ctx context.Context, loc models.Location) (models.WeatherRecord, error)
	FetchAll(ctx context.Context, locations []models.Location) (models.Batch, error)
}

// WeatherbitClient fetches current conditions from a Weatherbit-style API:
// one GET per location, parameterized by city name or postal code plus the
// API credential.
type WeatherbitClient struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewWeatherbitClient creates a client. timeout zero means no client-side
// timeout; a hanging upstream then hangs the batch, so callers wanting a
// bound must set one. The credential is checked by the service layer, not
// here.
func NewWeatherbitClient(apiKey, apiURL string, timeout time.Duration) *WeatherbitClient {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &WeatherbitClient{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type weatherbitResponse struct {
	Data []struct {
		CityName string `json:"city_name"`
		Timezone string `json:"timezone"`
		ObTime   string `json:"ob_time"`
		Datetime string `json:"datetime"`
		Weather  struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"data"`
}

// FetchOne retrieves the current conditions for a single location.
func (c *WeatherbitClient) FetchOne(ctx context.Context, loc models.Location) (models.WeatherRecord, error) {
	start := time.Now()

	req, err := c.buildRequest(ctx, loc)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherRecord{}, notFound(loc)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return models.WeatherRecord{}, notFound(loc)
	}
	defer resp.Body.Close()

	status := observability.StatusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.WeatherRecord{}, notFound(loc)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.WeatherRecord{}, notFound(loc)
	}

	var apiResp weatherbitResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.WeatherRecord{}, notFound(loc)
	}
	if len(apiResp.Data) == 0 {
		return models.WeatherRecord{}, notFound(loc)
	}

	d := apiResp.Data[0]
	return models.WeatherRecord{
		Timezone:   d.Timezone,
		ObservedAt: d.ObTime,
		CityName:   d.CityName,
		Datetime:   d.Datetime,
		Weather:    models.WeatherInfo{Description: d.Weather.Description},
	}, nil
}

// FetchAll fetches every location concurrently and waits for all to finish.
// The fetch phase is all-or-nothing: a single failing location fails the
// whole batch and no partial results are returned.
func (c *WeatherbitClient) FetchAll(ctx context.Context, locations []models.Location) (models.Batch, error) {
	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make(models.Batch, len(locations))
	)

	for _, loc := range locations {
		loc := loc
		g.Go(func() error {
			rec, err := c.FetchOne(ctx, loc)
			if err != nil {
				return err
			}
			mu.Lock()
			out[loc.Key()] = rec
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *WeatherbitClient) buildRequest(ctx context.Context, loc models.Location) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	if loc.IsPostal() {
		params.Set("postal_code", loc.Key())
	} else {
		params.Set("city", loc.Key())
	}
	params.Set("key", c.apiKey)
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func notFound(loc models.Location) error {
	return fmt.Errorf("%w for %s", ErrNoWeatherData, loc.Key())
}
