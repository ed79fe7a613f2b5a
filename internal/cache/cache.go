package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Well-known payload keys. The cache acts as a write-through memo for the two
// upstream fetches, not an LRU.
const (
	KeyLocalWeather    = "local-weather"
	KeyForecastWeather = "forecast-weather"
)

const DefaultTTL = time.Hour

// ErrCorrupt is returned when a stored entry no longer decodes. Callers treat
// it as a miss and run ClearExpired to drop the bad entry.
var ErrCorrupt = errors.New("corrupt cache entry")

// Connect parses redisURL, creates a client, and verifies connectivity with a ping.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

// Cache stores raw upstream payloads in Redis under a fixed TTL. Expiry is
// handled natively by Redis; reads of an expired key are plain misses.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a Cache with the default 1-hour TTL.
func New(client *redis.Client) *Cache {
	return NewWithTTL(client, DefaultTTL)
}

// NewWithTTL constructs a Cache with a custom TTL.
func NewWithTTL(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Exists reports whether an un-expired entry is present under key.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists for %s: %w", key, err)
	}
	return n > 0, nil
}

// Get retrieves the payload stored under key.
// Returns nil, nil on a miss (not an error) and ErrCorrupt when the stored
// bytes are not valid JSON.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for %s: %w", key, err)
	}

	if !json.Valid(val) {
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, key)
	}

	return val, nil
}

// Set stores payload under key, overwriting any prior entry and resetting the TTL.
func (c *Cache) Set(ctx context.Context, key string, payload json.RawMessage) error {
	if len(payload) == 0 {
		return nil
	}

	if err := c.client.Set(ctx, key, []byte(payload), c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for %s: %w", key, err)
	}

	return nil
}

// GetOrSet returns the cached payload when present and valid; otherwise it
// invokes producer, stores the result, and returns it. A corrupt entry is
// cleared and treated as a miss.
func (c *Cache) GetOrSet(ctx context.Context, key string, producer func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	cached, err := c.Get(ctx, key)
	switch {
	case err == nil && cached != nil:
		return cached, nil
	case errors.Is(err, ErrCorrupt):
		if err := c.ClearExpired(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	fresh, err := producer(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, key, fresh); err != nil {
		return nil, err
	}

	return fresh, nil
}

// Delete removes the entry under key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete for %s: %w", key, err)
	}
	return nil
}

// ClearExpired drops any well-known entry whose payload no longer decodes.
// Redis evicts expired keys itself; this is the self-healing path for
// corrupted entries, invoked reactively after a failed read.
func (c *Cache) ClearExpired(ctx context.Context) error {
	for _, key := range []string{KeyLocalWeather, KeyForecastWeather} {
		val, err := c.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("cache inspect for %s: %w", key, err)
		}

		if !json.Valid(val) {
			if err := c.Delete(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}
