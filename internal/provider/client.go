// Package provider implements the OpenWeatherMap current-weather client.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jbkim/weather-batch/pkg/config"
)

// CurrentWeather is the subset of the provider payload the collection
// job consumes. Unknown fields are ignored.
type CurrentWeather struct {
	Weather []WeatherItem `json:"weather"`
	Main    struct {
		Temp      float64  `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		TempMin   *float64 `json:"temp_min"`
		TempMax   *float64 `json:"temp_max"`
		Pressure  *int     `json:"pressure"`
		Humidity  *int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed *float64 `json:"speed"`
		Deg   *int     `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All *int `json:"all"`
	} `json:"clouds"`
	Rain       *Precipitation `json:"rain"`
	Snow       *Precipitation `json:"snow"`
	Visibility *int           `json:"visibility"`
	Dt         int64          `json:"dt"`
}

type WeatherItem struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type Precipitation struct {
	OneHour *float64 `json:"1h"`
}

// Client fetches current weather over HTTPS with a bounded timeout and a
// circuit breaker in front of the provider.
type Client struct {
	apiKey  string
	baseURL string
	lang    string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewClient(cfg config.ProviderConfig) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		lang:    cfg.Lang,
		client:  &http.Client{Timeout: timeout},
		circuit: cb,
	}
}

// Fetch retrieves the current weather for a city code. A timeout, a
// non-2xx status, or an open circuit all surface as errors; callers
// treat any error as a skippable fetch failure.
func (c *Client) Fetch(ctx context.Context, cityCode string) (*CurrentWeather, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("provider api key is not configured")
	}

	values := url.Values{}
	values.Set("q", cityCode+",KR")
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")
	values.Set("lang", c.lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("unexpected status %d from provider", resp.StatusCode)
		}

		var payload CurrentWeather
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("failed to decode provider response: %w", err)
		}
		return &payload, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch failed for %s: %w", cityCode, err)
	}

	return result.(*CurrentWeather), nil
}
