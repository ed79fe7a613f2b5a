package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config holds environment-driven settings for the weather lookup service.
type Config struct {
	OpenWeatherAPIKey string `validate:"required"`
	GoogleAPIKey      string `validate:"required"`
	RedisURL          string `validate:"required"`

	// Country is the ISO 3166-1 alpha-2 code appended to weather queries.
	Country string `validate:"required,len=2"`

	Port string

	// CacheTTL is how long cached weather and forecast payloads stay valid.
	CacheTTL time.Duration `validate:"gt=0"`

	// HTTPTimeout bounds every outbound API call.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// LocateTimeout bounds the geolocation lookup only.
	LocateTimeout time.Duration `validate:"gt=0"`

	// MaxRetries caps user-confirmed re-fetches before the session fails.
	MaxRetries int `validate:"gte=1"`
}

// Load reads configuration from the environment with sensible defaults.
// A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "err", err)
	}

	cfg := &Config{
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		GoogleAPIKey:      os.Getenv("GOOGLE_API_KEY"),
		RedisURL:          getenvDefault("REDIS_URL", "redis://localhost:6379/0"),
		Country:           getenvDefault("WEATHER_COUNTRY", "us"),
		Port:              getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.MaxRetries, err = getenvInt("FETCH_MAX_RETRIES", 3); err != nil {
		return nil, fmt.Errorf("invalid FETCH_MAX_RETRIES: %w", err)
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", time.Hour); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if cfg.LocateTimeout, err = getenvDuration("LOCATE_TIMEOUT", 15*time.Second); err != nil {
		return nil, fmt.Errorf("invalid LOCATE_TIMEOUT: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}
