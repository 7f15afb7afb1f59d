package cache

import (
	"context"
	"time"
)

// NoopStore never stores anything. Every Get misses and every counter reads
// 1, so rate limits built on it always admit.
type NoopStore struct{}

var _ Store = NoopStore{}

func NewNoopStore() NoopStore {
	return NoopStore{}
}

func (NoopStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, nil
}

func (NoopStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (NoopStore) Del(ctx context.Context, key string) error {
	return nil
}

func (NoopStore) IncrementWithWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 1, nil
}

func (NoopStore) Ping(ctx context.Context) error {
	return nil
}

func (NoopStore) Close() error {
	return nil
}
