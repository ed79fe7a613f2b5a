package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/weatherlook/weatherlook/internal/session"
)

var validate = validator.New()

// Handlers binds the session flow to the HTTP view surface.
type Handlers struct {
	flow Flow
	log  *slog.Logger
}

// NewHandlers constructs Handlers.
func NewHandlers(flow Flow, log *slog.Logger) *Handlers {
	return &Handlers{flow: flow, log: log}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GetWeather handles GET /api/v1/weather. The snapshot is always returned;
// the status is 200 once the session is Ready and 503 while it is not, so
// pollers can distinguish "no data yet" without parsing the body.
func (h *Handlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	snap := h.flow.Snapshot()

	status := http.StatusOK
	if snap.State != session.StateReady {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, snap)
}

// Refresh handles POST /api/v1/refresh: a force-network re-fetch.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.Refresh(r.Context()); err != nil {
		h.log.Error("refresh failed", "err", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to refresh weather data"})
		return
	}

	writeJSON(w, http.StatusOK, h.flow.Snapshot())
}

// searchRequest is the PUT /api/v1/search body.
type searchRequest struct {
	Term string `json:"term" validate:"required"`
}

// SetSearch handles PUT /api/v1/search: manual search-term entry plus fetch.
func (h *Handlers) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.flow.SetSearchTerm(req.Term)

	if err := h.flow.Fetch(r.Context()); err != nil {
		h.log.Error("search fetch failed", "term", req.Term, "err", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to fetch weather data"})
		return
	}

	writeJSON(w, http.StatusOK, h.flow.Snapshot())
}

// ClearSearch handles DELETE /api/v1/search: re-enter search mode.
func (h *Handlers) ClearSearch(w http.ResponseWriter, r *http.Request) {
	h.flow.SetSearchTerm("")
	writeJSON(w, http.StatusOK, h.flow.Snapshot())
}

// HealthHandlerFunc returns an http.HandlerFunc that checks cache connectivity.
func HealthHandlerFunc(cache cachePinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		cacheStatus := "ok"

		if err := cache.Ping(ctx); err != nil {
			log.Error("health check: cache ping failed", "err", err)
			cacheStatus = "error"
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, map[string]string{
			"status": func() string {
				if status == http.StatusOK {
					return "ok"
				}
				return "degraded"
			}(),
			"cache": cacheStatus,
		})
	}
}
