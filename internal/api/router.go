package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter builds the Chi router for the view surface.
// Rate limiting is applied globally: 60 requests per minute per IP.
func NewRouter(handlers *Handlers, cacheClient cachePinger, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(cacheClient, log))

	r.Get("/api/v1/weather", handlers.GetWeather)
	r.Post("/api/v1/refresh", handlers.Refresh)
	r.Put("/api/v1/search", handlers.SetSearch)
	r.Delete("/api/v1/search", handlers.ClearSearch)

	return r
}
