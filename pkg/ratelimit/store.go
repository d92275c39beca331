package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps attempt counters with an expiry.
type Store interface {
	// Get returns the counter and its remaining lifetime. A missing or
	// expired key has count 0.
	Get(ctx context.Context, key string) (count int64, ttl time.Duration, err error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Reset(ctx context.Context, key string) error
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Counters are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty store. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]*memoryEntry), now: now}
}

// live returns the entry for key, dropping it when expired. Callers hold mu.
func (s *MemoryStore) live(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return 0, 0, nil
	}
	var ttl time.Duration
	if !e.expiresAt.IsZero() {
		ttl = e.expiresAt.Sub(s.now())
	}
	return e.count, ttl, nil
}

func (s *MemoryStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		e = &memoryEntry{}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.live(key); e != nil {
		e.expiresAt = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// RedisStore keeps counters in redis so every CLI process sees the same
// attempt history.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store using keys "<prefix><key>".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, time.Duration, error) {
	count, err := s.client.Get(ctx, s.key(key)).Int64()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	ttl, err := s.client.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// -1: no expiry, -2: gone between the two calls
		ttl = 0
	}
	return count, ttl, nil
}

func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, s.key(key)).Result()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, s.key(key), ttl).Err()
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
