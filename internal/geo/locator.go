package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrPositionUnavailable is returned when the device position cannot be
// determined (lookup denied, timed out, or the service reported a failure).
var ErrPositionUnavailable = errors.New("position unavailable")

// Coordinates is a captured device position. Immutable once produced.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Locator yields the current position or fails with ErrPositionUnavailable.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

const ipAPIDefaultURL = "http://ip-api.com/json/"

// IPLocator resolves the host's position from its public IP via ip-api.com.
// It stands in for a device geolocation provider in headless deployments.
type IPLocator struct {
	baseURL string
	client  *http.Client
}

// NewIPLocator constructs an IPLocator with the given lookup timeout.
func NewIPLocator(timeout time.Duration) *IPLocator {
	return NewIPLocatorWithURL(ipAPIDefaultURL, timeout)
}

// NewIPLocatorWithURL constructs an IPLocator pointing at a custom base URL (for tests).
func NewIPLocatorWithURL(baseURL string, timeout time.Duration) *IPLocator {
	return &IPLocator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Locate queries the IP geolocation service for the current position.
func (l *IPLocator) Locate(ctx context.Context) (Coordinates, error) {
	endpoint := l.baseURL + "?fields=status,message,lat,lon"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("creating geolocation request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("%w: geolocation service returned status %d", ErrPositionUnavailable, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Coordinates{}, fmt.Errorf("%w: decoding geolocation response: %v", ErrPositionUnavailable, err)
	}

	if body.Status != "success" {
		return Coordinates{}, fmt.Errorf("%w: %s", ErrPositionUnavailable, body.Message)
	}

	return Coordinates{Lat: body.Lat, Lon: body.Lon}, nil
}
