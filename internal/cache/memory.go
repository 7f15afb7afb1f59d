package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	apperrors "github.com/edgard/guildwatch/internal/errors"
)

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// MemoryStore keeps values in process memory. Expired entries are dropped
// lazily when touched. Counters are stored as decimal strings, mirroring
// redis, so a counter key can be read back with Get.
type MemoryStore struct {
	clock clockwork.Clock

	mu   sync.Mutex
	data map[string]memoryEntry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		clock: clock,
		data:  make(map[string]memoryEntry),
	}
}

// lookup must be called with mu held.
func (s *MemoryStore) lookup(key string) (memoryEntry, bool) {
	e, ok := s.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expires.IsZero() && !s.clock.Now().Before(e.expires) {
		delete(s.data, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = s.clock.Now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *MemoryStore) IncrementWithWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		s.data[key] = memoryEntry{
			value:   []byte("1"),
			expires: s.clock.Now().Add(time.Duration(windowSeconds(window)) * time.Second),
		}
		return 1, nil
	}

	count, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, &CacheError{
			Op:  "increment",
			Key: key,
			Err: apperrors.NewMalformedRecord("value is not an integer", err),
		}
	}
	count++
	e.value = []byte(strconv.FormatInt(count, 10))
	if e.expires.IsZero() {
		e.expires = s.clock.Now().Add(time.Duration(windowSeconds(window)) * time.Second)
	}
	s.data[key] = e
	return count, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
