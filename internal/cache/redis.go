package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/edgard/guildwatch/internal/errors"
)

// incrementWithWindowScript runs INCR and arms the expiry in one round trip.
// A key left without a TTL is re-armed so a counter can never outlive its
// window.
var incrementWithWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 or redis.call("TTL", KEYS[1]) == -1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisStore is the networked Store backed by a pooled redis client.
type RedisStore struct {
	Client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore builds a client from a redis:// URL. It does not contact the
// server; call Ping to check connectivity.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &RedisStore{Client: redis.NewClient(opt)}, nil
}

func redisError(op, key string, err error) error {
	return &CacheError{
		Op:  op,
		Key: key,
		Err: apperrors.NewBackendUnavailable("redis "+op+" failed", err),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, redisError("get", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.Client.Set(ctx, key, value, ttl).Err(); err != nil {
		return redisError("set", key, err)
	}
	return nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	if err := s.Client.Del(ctx, key).Err(); err != nil {
		return redisError("del", key, err)
	}
	return nil
}

func (s *RedisStore) IncrementWithWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := incrementWithWindowScript.Run(ctx, s.Client, []string{key}, windowSeconds(window)).Int64()
	if err != nil {
		return 0, redisError("increment", key, err)
	}
	return count, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	resp, err := s.Client.Ping(ctx).Result()
	if err != nil {
		return redisError("ping", "", err)
	}
	if resp != "PONG" {
		return redisError("ping", "", fmt.Errorf("unexpected ping response %q", resp))
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
