package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrPlaceNotFound is returned when the upstream does not recognize the
// requested place. Matched with errors.Is through APIError.
var ErrPlaceNotFound = errors.New("place not found")

// APIError is a non-2xx upstream response with its decoded error body.
type APIError struct {
	StatusCode int
	Cod        string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("weather api error (status %d, cod %s): %s", e.StatusCode, e.Cod, e.Message)
}

// Unwrap exposes ErrPlaceNotFound for the unknown-location case so callers
// can branch with errors.Is.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound || e.Cod == "404" || e.Message == "city not found" {
		return ErrPlaceNotFound
	}
	return nil
}

const (
	owmDefaultURL  = "https://api.openweathermap.org/data/2.5"
	defaultTimeout = 30 * time.Second
)

// Client fetches current conditions and forecasts from OpenWeatherMap.
// Each call is a single request with no internal retry.
type Client struct {
	apiKey  string
	country string
	baseURL string
	client  *http.Client
}

// NewClient constructs a Client with the given API key and country code.
func NewClient(apiKey, country string, timeout time.Duration) *Client {
	return NewClientWithURL(owmDefaultURL, apiKey, country, timeout)
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL, apiKey, country string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:  apiKey,
		country: country,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchCurrent retrieves current conditions for the given search term.
func (c *Client) FetchCurrent(ctx context.Context, term string) (*CurrentPayload, error) {
	var payload CurrentPayload
	if err := c.get(ctx, "weather", term, &payload); err != nil {
		return nil, fmt.Errorf("fetching current weather for %q: %w", term, err)
	}
	return &payload, nil
}

// FetchForecast retrieves the multi-day forecast for the given search term.
func (c *Client) FetchForecast(ctx context.Context, term string) (*ForecastPayload, error) {
	var payload ForecastPayload
	if err := c.get(ctx, "forecast", term, &payload); err != nil {
		return nil, fmt.Errorf("fetching forecast for %q: %w", term, err)
	}
	return &payload, nil
}

// get builds the query and decodes the response into dst. A numeric term is
// sent as a postal code, anything else as a free-text locality; the upstream
// treats the two parameters differently.
func (c *Client) get(ctx context.Context, path, term string, dst any) error {
	values := url.Values{}
	if isNumeric(term) {
		values.Set("zip", term+","+c.country)
	} else {
		values.Set("q", term+","+c.country)
	}
	values.Set("APPID", c.apiKey)
	values.Set("units", "imperial")

	endpoint := c.baseURL + "/" + path + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}

	return nil
}

// decodeAPIError reads the upstream error body. The cod field arrives as a
// string on some errors and a number on others.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Cod     json.RawMessage `json:"cod"`
		Message string          `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Cod = strings.Trim(string(body.Cod), `"`)
		apiErr.Message = body.Message
	}

	return apiErr
}

// isNumeric reports whether term is digits only. Signed numbers do not count:
// "-5" is not a postal code and routes as a free-text locality.
func isNumeric(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	for _, r := range term {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
