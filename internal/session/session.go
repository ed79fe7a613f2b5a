package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weatherlook/weatherlook/internal/cache"
	"github.com/weatherlook/weatherlook/internal/geo"
	"github.com/weatherlook/weatherlook/internal/weather"
)

// Dialog button labels. A confirmer that sees OKOpenSettings opens the OS
// location settings instead of resuming the flow.
const (
	OKTryAgain     = "Try Again"
	OKOpenSettings = "Location Settings"
)

// ReverseGeocoder resolves coordinates to a searchable place identifier.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, coords geo.Coordinates) (string, error)
}

// WeatherFetcher fetches the two upstream payloads for a search term.
type WeatherFetcher interface {
	FetchCurrent(ctx context.Context, term string) (*weather.CurrentPayload, error)
	FetchForecast(ctx context.Context, term string) (*weather.ForecastPayload, error)
}

// Store is the cache surface the session needs.
type Store interface {
	GetOrSet(ctx context.Context, key string, producer func(context.Context) (json.RawMessage, error)) (json.RawMessage, error)
	Set(ctx context.Context, key string, payload json.RawMessage) error
	ClearExpired(ctx context.Context) error
}

// Confirmer presents an OK/Cancel dialog and reports whether the user
// confirmed. Confirm must not be called while session locks are held.
type Confirmer interface {
	Confirm(ctx context.Context, title, message, okLabel string) bool
}

// Config carries the session's collaborators.
type Config struct {
	Locator   geo.Locator
	Geocoder  ReverseGeocoder
	Fetcher   WeatherFetcher
	Store     Store
	Confirmer Confirmer
	Logger    *slog.Logger

	// MaxRetries caps confirm-driven re-fetches of the same request.
	MaxRetries int
}

// Session drives the lookup flow end to end: locate, resolve a place, fetch
// current weather and the forecast, normalize, and expose view state. A single
// logical session; concurrent triggers for the same fetch are collapsed.
type Session struct {
	locator    geo.Locator
	geocoder   ReverseGeocoder
	fetcher    WeatherFetcher
	store      Store
	confirmer  Confirmer
	log        *slog.Logger
	maxRetries int

	flight singleflight.Group

	mu         sync.Mutex
	state      State
	loading    bool
	searchTerm string
	generation uint64
	nextMode   FetchMode
	current    *weather.DisplayWeather
	forecast   []weather.DisplayForecastDay
	lastErr    string
}

// New constructs a Session in StateIdle.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Session{
		locator:    cfg.Locator,
		geocoder:   cfg.Geocoder,
		fetcher:    cfg.Fetcher,
		store:      cfg.Store,
		confirmer:  cfg.Confirmer,
		log:        cfg.Logger,
		maxRetries: cfg.MaxRetries,
		state:      StateIdle,
	}
}

// Snapshot is the observable view state.
type Snapshot struct {
	State      State                        `json:"state"`
	Loading    bool                         `json:"loading"`
	SearchTerm string                       `json:"search_term"`
	Current    *weather.DisplayWeather      `json:"current,omitempty"`
	Forecast   []weather.DisplayForecastDay `json:"forecast,omitempty"`
	Err        string                       `json:"error,omitempty"`
}

// Snapshot returns a copy of the current view state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:      s.state,
		Loading:    s.loading,
		SearchTerm: s.searchTerm,
		Err:        s.lastErr,
	}
	if s.current != nil {
		cur := *s.current
		snap.Current = &cur
	}
	if len(s.forecast) > 0 {
		snap.Forecast = append([]weather.DisplayForecastDay(nil), s.forecast...)
	}
	return snap
}

// SetSearchTerm records a manually entered term and supersedes any in-flight
// fetch: results tagged with an older generation are discarded, not applied.
// An empty term re-enters search mode.
func (s *Session) SetSearchTerm(term string) {
	s.mu.Lock()
	s.searchTerm = term
	s.generation++
	s.mu.Unlock()
}

// SearchTerm returns the current term.
func (s *Session) SearchTerm() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchTerm
}

// Initialize starts the flow: geolocate, reverse-geocode, then fetch. A
// geolocation failure offers to open location settings and leaves the session
// idle with no term; the user can still enter one manually.
func (s *Session) Initialize(ctx context.Context) error {
	s.setLoading(true)
	s.setState(StateLocating)

	coords, err := s.locator.Locate(ctx)
	if err != nil {
		s.setLoading(false)
		s.toIdle(err)
		s.log.Error("geolocation failed", "err", err)
		s.confirmer.Confirm(ctx, "Oops!", "Please make sure location services are enabled.", OKOpenSettings)
		return err
	}

	return s.resolvePlace(ctx, coords)
}

// resolvePlace reverse-geocodes the coordinates into a search term and
// proceeds to the weather fetch. Geocode failures surface through the
// snapshot only; no recovery dialog is offered.
func (s *Session) resolvePlace(ctx context.Context, coords geo.Coordinates) error {
	s.setState(StateResolvingPlace)

	term, err := s.geocoder.ReverseGeocode(ctx, coords)
	if err != nil {
		s.setLoading(false)
		s.toIdle(err)
		s.log.Error("reverse geocode failed", "lat", coords.Lat, "lon", coords.Lon, "err", err)
		return err
	}

	s.mu.Lock()
	s.searchTerm = term
	s.mu.Unlock()

	return s.FetchWeather(ctx, CacheEligible)
}

// Fetch runs the weather fetch with the session's pending mode, which resets
// to CacheEligible after each completed forecast.
func (s *Session) Fetch(ctx context.Context) error {
	s.mu.Lock()
	mode := s.nextMode
	s.mu.Unlock()
	return s.FetchWeather(ctx, mode)
}

// Refresh forces a network fetch, bypassing the cache read.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.nextMode = ForceNetwork
	s.mu.Unlock()
	return s.FetchWeather(ctx, ForceNetwork)
}

// FetchWeather fetches current conditions (cache or network per mode),
// normalizes them, and chains into the forecast fetch on success.
func (s *Session) FetchWeather(ctx context.Context, mode FetchMode) error {
	return s.fetchWeather(ctx, mode, 0)
}

func (s *Session) fetchWeather(ctx context.Context, mode FetchMode, attempt int) error {
	gen := s.gen()
	s.setLoading(true)
	s.setState(StateFetchingWeather)

	payload, err := s.loadCurrent(ctx, mode)
	if err != nil {
		return s.recoverWeather(ctx, mode, attempt, err)
	}

	if s.superseded(gen) {
		s.log.Info("discarding stale weather result", "generation", gen)
		s.settle()
		return nil
	}

	display := weather.NormalizeCurrent(payload, time.Now())
	s.mu.Lock()
	s.current = &display
	s.lastErr = ""
	s.mu.Unlock()

	return s.FetchForecast(ctx, mode)
}

// FetchForecast fetches the multi-day forecast and normalizes the full list
// whether it came from cache or network. Completing the forecast clears the
// search term and resets the pending mode to CacheEligible.
func (s *Session) FetchForecast(ctx context.Context, mode FetchMode) error {
	gen := s.gen()
	s.setLoading(true)
	s.setState(StateFetchingForecast)

	payload, err := s.loadForecast(ctx, mode)
	if err != nil {
		s.setLoading(false)
		s.toIdle(err)
		s.log.Error("forecast fetch failed", "term", s.SearchTerm(), "err", err)
		return err
	}

	if s.superseded(gen) {
		s.log.Info("discarding stale forecast result", "generation", gen)
		s.settle()
		return nil
	}

	days := weather.NormalizeForecast(payload.List)

	s.mu.Lock()
	s.forecast = days
	s.searchTerm = ""
	s.nextMode = CacheEligible
	s.loading = false
	s.state = StateReady
	s.lastErr = ""
	s.mu.Unlock()

	return nil
}

// recoverWeather owns the user-facing error loop for the current-conditions
// fetch. The loading indicator always clears before any dialog.
func (s *Session) recoverWeather(ctx context.Context, mode FetchMode, attempt int, cause error) error {
	s.setLoading(false)
	s.log.Error("current weather fetch failed", "term", s.SearchTerm(), "err", cause)

	if errors.Is(cause, weather.ErrPlaceNotFound) {
		msg := fmt.Sprintf("We could not find weather for the city '%s'.", s.SearchTerm())
		if s.confirmer.Confirm(ctx, "Sorry!", msg, OKTryAgain) {
			s.SetSearchTerm("")
		}
		s.toIdle(cause)
		return cause
	}

	if attempt+1 >= s.maxRetries {
		s.fail(cause)
		return cause
	}

	if s.confirmer.Confirm(ctx, "Oops!", "Something went wrong getting the weather.", OKTryAgain) {
		return s.fetchWeather(ctx, mode, attempt+1)
	}

	s.toIdle(cause)
	return cause
}

func (s *Session) loadCurrent(ctx context.Context, mode FetchMode) (*weather.CurrentPayload, error) {
	v, err, _ := s.flight.Do("weather", func() (any, error) {
		raw, err := s.loadRaw(ctx, cache.KeyLocalWeather, mode, func(ctx context.Context) (json.RawMessage, error) {
			p, err := s.fetcher.FetchCurrent(ctx, s.SearchTerm())
			if err != nil {
				return nil, err
			}
			return json.Marshal(p)
		})
		if err != nil {
			return nil, err
		}

		var p weather.CurrentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decoding weather payload: %w", err)
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*weather.CurrentPayload), nil
}

func (s *Session) loadForecast(ctx context.Context, mode FetchMode) (*weather.ForecastPayload, error) {
	v, err, _ := s.flight.Do("forecast", func() (any, error) {
		raw, err := s.loadRaw(ctx, cache.KeyForecastWeather, mode, func(ctx context.Context) (json.RawMessage, error) {
			p, err := s.fetcher.FetchForecast(ctx, s.SearchTerm())
			if err != nil {
				return nil, err
			}
			return json.Marshal(p)
		})
		if err != nil {
			return nil, err
		}

		var p weather.ForecastPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decoding forecast payload: %w", err)
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*weather.ForecastPayload), nil
}

// loadRaw resolves a payload through the cache per mode. ForceNetwork skips
// the cache read but still writes through; a failed write is logged, not
// fatal, since the fresh payload is already in hand.
func (s *Session) loadRaw(ctx context.Context, key string, mode FetchMode, produce func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if mode == CacheEligible {
		return s.store.GetOrSet(ctx, key, produce)
	}

	fresh, err := produce(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, key, fresh); err != nil {
		s.log.Warn("cache set failed", "key", key, "err", err)
	}
	return fresh, nil
}

func (s *Session) gen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Session) superseded(gen uint64) bool {
	return s.gen() != gen
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// settle returns the session to Idle with nothing in flight. Used when a
// result is discarded without error, so the view never shows a stuck spinner.
func (s *Session) settle() {
	s.mu.Lock()
	s.loading = false
	s.state = StateIdle
	s.mu.Unlock()
}

func (s *Session) toIdle(err error) {
	s.mu.Lock()
	s.state = StateIdle
	s.lastErr = err.Error()
	s.mu.Unlock()
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.state = StateFailed
	s.lastErr = err.Error()
	s.mu.Unlock()
}
