package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var (
	// ErrGeocodeFailed wraps transport and upstream-status failures.
	ErrGeocodeFailed = errors.New("reverse geocode failed")

	// ErrNoPostalCode is returned when the response carries neither a
	// postal code nor a locality component.
	ErrNoPostalCode = errors.New("no postal code or locality in geocode response")
)

const googleGeocodeDefaultURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Geocoder converts coordinates into a searchable place identifier using the
// Google Maps Geocoding API.
type Geocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGeocoder constructs a Geocoder with the given API key.
func NewGeocoder(apiKey string, timeout time.Duration) *Geocoder {
	return NewGeocoderWithURL(googleGeocodeDefaultURL, apiKey, timeout)
}

// NewGeocoderWithURL constructs a Geocoder pointing at a custom base URL (for tests).
func NewGeocoderWithURL(baseURL, apiKey string, timeout time.Duration) *Geocoder {
	return &Geocoder{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// ReverseGeocode resolves coordinates to a postal code. Components are matched
// by type, never by position, so upstream reordering cannot break extraction.
// When no postal code is present the first locality name is returned instead.
func (g *Geocoder) ReverseGeocode(ctx context.Context, coords Coordinates) (string, error) {
	values := url.Values{}
	values.Set("latlng", fmt.Sprintf("%f,%f", coords.Lat, coords.Lon))
	values.Set("key", g.apiKey)

	endpoint := g.baseURL + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating geocode request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrGeocodeFailed, resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrGeocodeFailed, err)
	}

	if body.Status != "OK" {
		return "", fmt.Errorf("%w: upstream status %q", ErrGeocodeFailed, body.Status)
	}

	locality := ""
	for _, result := range body.Results {
		for _, comp := range result.AddressComponents {
			if hasType(comp.Types, "postal_code") {
				return comp.LongName, nil
			}
			if locality == "" && hasType(comp.Types, "locality") {
				locality = comp.LongName
			}
		}
	}

	if locality != "" {
		return locality, nil
	}
	return "", ErrNoPostalCode
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
