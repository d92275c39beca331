package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"loan-report-dashboard/pkg/errors"
)

// HistoryLockKey guards history_index.json updates.
const HistoryLockKey = "reportparser:history-lock"

// Locker serializes history index updates. The returned function releases
// the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// LocalLocker serializes writers inside one process.
type LocalLocker struct {
	mu sync.Mutex
}

// Lock blocks until the mutex is held or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeLockFailed, key, err)
	}
	l.mu.Lock()
	return l.mu.Unlock, nil
}

// RedisLocker serializes writers across processes sharing an output
// directory.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedisLocker creates a locker on top of an existing redis client.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    30 * time.Second,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	}
}

// Lock obtains the distributed lock, retrying for about five seconds.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if err == redislock.ErrNotObtained {
		return nil, errors.StorageError(errors.CodeLockFailed, key, err)
	} else if err != nil {
		return nil, errors.StorageError(errors.CodeLockFailed, key, err).
			WithSuggestion("check that redis is reachable at the configured address")
	}

	return func() {
		// a lost lock has expired already; nothing to undo
		_ = lock.Release(context.Background())
	}, nil
}
