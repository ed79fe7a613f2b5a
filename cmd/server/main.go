package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weatherlook/weatherlook/internal/api"
	"github.com/weatherlook/weatherlook/internal/cache"
	"github.com/weatherlook/weatherlook/internal/config"
	"github.com/weatherlook/weatherlook/internal/geo"
	"github.com/weatherlook/weatherlook/internal/session"
	"github.com/weatherlook/weatherlook/internal/weather"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	// Wire dependencies.
	store := cache.NewWithTTL(redisClient, cfg.CacheTTL)
	locator := geo.NewIPLocator(cfg.LocateTimeout)
	geocoder := geo.NewGeocoder(cfg.GoogleAPIKey, cfg.HTTPTimeout)
	fetcher := weather.NewClient(cfg.OpenWeatherAPIKey, cfg.Country, cfg.HTTPTimeout)

	sess := session.New(session.Config{
		Locator:    locator,
		Geocoder:   geocoder,
		Fetcher:    fetcher,
		Store:      store,
		Confirmer:  &logConfirmer{log: log},
		Logger:     log,
		MaxRetries: cfg.MaxRetries,
	})

	handlers := api.NewHandlers(sess, log)
	router := api.NewRouter(handlers, &redisPingerAdapter{client: redisClient}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Kick off the lookup flow; the view surface serves whatever state the
	// session has reached.
	go func() {
		if err := sess.Initialize(ctx); err != nil {
			log.Warn("initial lookup did not complete", "err", err)
		}
	}()

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// logConfirmer is the headless stand-in for an interactive dialog: it logs
// the prompt and declines. Interactive shells supply their own Confirmer.
type logConfirmer struct {
	log *slog.Logger
}

func (c *logConfirmer) Confirm(_ context.Context, title, message, okLabel string) bool {
	if okLabel == session.OKOpenSettings {
		c.log.Warn("location settings prompt suppressed in headless mode", "title", title, "message", message)
		return false
	}
	c.log.Warn("confirm prompt declined in headless mode", "title", title, "message", message, "ok", okLabel)
	return false
}

// redisPingerAdapter adapts redis.Client to the api health-check interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
