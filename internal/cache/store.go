// Package cache provides the counter/KV store used for rate limiting and
// short-lived cached values. The backend is selected once at startup from a
// connection URL: redis for shared deployments, an in-process map for single
// instances, or a no-op store when nothing is configured.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
)

// Store is a byte-value cache with TTLs and an atomic fixed-window counter.
type Store interface {
	// Get returns the stored value, or nil with no error when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value and TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes key. Removing an absent key is not an error.
	Del(ctx context.Context, key string) error

	// IncrementWithWindow atomically increments the counter at key. The first
	// increment of a window returns 1 and arms a TTL of window; later
	// increments leave the TTL untouched, so the window only resets once it
	// has fully expired.
	IncrementWithWindow(ctx context.Context, key string, window time.Duration) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// CacheError wraps every failure reported by a Store backend.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// New selects a Store implementation from rawURL. An empty URL yields the
// no-op store, "memory://" an in-process store, and redis:// or rediss:// a
// networked store.
func New(rawURL string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "cache")

	if rawURL == "" {
		log.Info("No cache URL configured, using no-op cache store")
		return NewNoopStore(), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cache url: %w", err)
	}

	switch u.Scheme {
	case "memory":
		log.Info("Using in-process memory cache store")
		return NewMemoryStore(clockwork.NewRealClock()), nil
	case "redis", "rediss":
		s, err := NewRedisStore(rawURL)
		if err != nil {
			return nil, err
		}
		log.Info("Using redis cache store", "host", u.Host)
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported cache url scheme %q", u.Scheme)
	}
}

func windowSeconds(window time.Duration) int64 {
	secs := int64(window / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
