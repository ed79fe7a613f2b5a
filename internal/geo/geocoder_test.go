package geo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherlook/weatherlook/internal/geo"
)

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) *geo.Geocoder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return geo.NewGeocoderWithURL(srv.URL, "test-key", time.Second)
}

func TestGeocoder_PostalCodeMatchedByType(t *testing.T) {
	// The postal_code component sits in the middle of the list; extraction
	// must not depend on its position.
	geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "37.774900,-122.419400", r.URL.Query().Get("latlng"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"address_components": [
					{"long_name": "123", "types": ["street_number"]},
					{"long_name": "Market St", "types": ["route"]},
					{"long_name": "94103", "types": ["postal_code"]},
					{"long_name": "San Francisco", "types": ["locality", "political"]}
				]
			}]
		}`))
	})

	term, err := geocoder.ReverseGeocode(context.Background(), geo.Coordinates{Lat: 37.7749, Lon: -122.4194})
	require.NoError(t, err)
	assert.Equal(t, "94103", term)
}

func TestGeocoder_LocalityFallback(t *testing.T) {
	geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"address_components": [
					{"long_name": "Reykjavik", "types": ["locality", "political"]},
					{"long_name": "Iceland", "types": ["country", "political"]}
				]
			}]
		}`))
	})

	term, err := geocoder.ReverseGeocode(context.Background(), geo.Coordinates{Lat: 64.1466, Lon: -21.9426})
	require.NoError(t, err)
	assert.Equal(t, "Reykjavik", term)
}

func TestGeocoder_NoUsableComponent(t *testing.T) {
	geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"address_components": [
					{"long_name": "Pacific Ocean", "types": ["natural_feature"]}
				]
			}]
		}`))
	})

	_, err := geocoder.ReverseGeocode(context.Background(), geo.Coordinates{})
	assert.ErrorIs(t, err, geo.ErrNoPostalCode)
}

func TestGeocoder_UpstreamStatusError(t *testing.T) {
	geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	_, err := geocoder.ReverseGeocode(context.Background(), geo.Coordinates{})
	assert.ErrorIs(t, err, geo.ErrGeocodeFailed)
}

func TestGeocoder_HTTPError(t *testing.T) {
	geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := geocoder.ReverseGeocode(context.Background(), geo.Coordinates{})
	assert.ErrorIs(t, err, geo.ErrGeocodeFailed)
}
