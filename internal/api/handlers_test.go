package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherlook/weatherlook/internal/api"
	"github.com/weatherlook/weatherlook/internal/session"
	"github.com/weatherlook/weatherlook/internal/weather"
)

type mockFlow struct {
	snapshotFn func() session.Snapshot
	fetchFn    func(ctx context.Context) error
	refreshFn  func(ctx context.Context) error

	setTermCalls []string
}

func (m *mockFlow) Snapshot() session.Snapshot {
	if m.snapshotFn != nil {
		return m.snapshotFn()
	}
	return session.Snapshot{State: session.StateIdle}
}

func (m *mockFlow) Fetch(ctx context.Context) error {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	return nil
}

func (m *mockFlow) Refresh(ctx context.Context) error {
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return nil
}

func (m *mockFlow) SetSearchTerm(term string) {
	m.setTermCalls = append(m.setTermCalls, term)
}

type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func newTestServer(t *testing.T, flow *mockFlow, pinger *mockPinger) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := api.NewHandlers(flow, log)
	srv := httptest.NewServer(api.NewRouter(handlers, pinger, log))
	t.Cleanup(srv.Close)
	return srv
}

func readySnapshot() session.Snapshot {
	return session.Snapshot{
		State:   session.StateReady,
		Current: &weather.DisplayWeather{Temp: 63, LocaleName: "San Francisco"},
		Forecast: []weather.DisplayForecastDay{
			{Date: "2024-03-10", Temp: 50},
		},
	}
}

func TestGetWeather_Ready(t *testing.T) {
	flow := &mockFlow{snapshotFn: readySnapshot}
	srv := newTestServer(t, flow, &mockPinger{})

	resp, err := http.Get(srv.URL + "/api/v1/weather")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var snap session.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, session.StateReady, snap.State)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "San Francisco", snap.Current.LocaleName)
}

func TestGetWeather_NotReady(t *testing.T) {
	flow := &mockFlow{snapshotFn: func() session.Snapshot {
		return session.Snapshot{State: session.StateFetchingWeather, Loading: true}
	}}
	srv := newTestServer(t, flow, &mockPinger{})

	resp, err := http.Get(srv.URL + "/api/v1/weather")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var snap session.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.True(t, snap.Loading, "the snapshot still ships on 503")
}

func TestRefresh(t *testing.T) {
	refreshed := false
	flow := &mockFlow{
		snapshotFn: readySnapshot,
		refreshFn: func(context.Context) error {
			refreshed = true
			return nil
		},
	}
	srv := newTestServer(t, flow, &mockPinger{})

	resp, err := http.Post(srv.URL+"/api/v1/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, refreshed)
}

func TestRefresh_UpstreamError(t *testing.T) {
	flow := &mockFlow{refreshFn: func(context.Context) error {
		return errors.New("upstream broke")
	}}
	srv := newTestServer(t, flow, &mockPinger{})

	resp, err := http.Post(srv.URL+"/api/v1/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func putSearch(t *testing.T, url, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPut, url+"/api/v1/search", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSetSearch(t *testing.T) {
	fetched := false
	flow := &mockFlow{
		snapshotFn: readySnapshot,
		fetchFn: func(context.Context) error {
			fetched = true
			return nil
		},
	}
	srv := newTestServer(t, flow, &mockPinger{})

	resp := putSearch(t, srv.URL, `{"term":"94103"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"94103"}, flow.setTermCalls)
	assert.True(t, fetched, "setting a term triggers a fetch")
}

func TestSetSearch_MissingTerm(t *testing.T) {
	flow := &mockFlow{}
	srv := newTestServer(t, flow, &mockPinger{})

	resp := putSearch(t, srv.URL, `{}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, flow.setTermCalls)
}

func TestSetSearch_MalformedBody(t *testing.T) {
	flow := &mockFlow{}
	srv := newTestServer(t, flow, &mockPinger{})

	resp := putSearch(t, srv.URL, `{"term":`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, flow.setTermCalls)
}

func TestSetSearch_FetchError(t *testing.T) {
	flow := &mockFlow{fetchFn: func(context.Context) error {
		return errors.New("upstream broke")
	}}
	srv := newTestServer(t, flow, &mockPinger{})

	resp := putSearch(t, srv.URL, `{"term":"nowhere"}`)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestClearSearch(t *testing.T) {
	flow := &mockFlow{snapshotFn: readySnapshot}
	srv := newTestServer(t, flow, &mockPinger{})

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/search", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{""}, flow.setTermCalls)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &mockFlow{}, &mockPinger{})

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["cache"])
}

func TestHealth_CacheDown(t *testing.T) {
	pinger := &mockPinger{pingFn: func(context.Context) error {
		return errors.New("connection refused")
	}}
	srv := newTestServer(t, &mockFlow{}, pinger)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "error", body["cache"])
}
