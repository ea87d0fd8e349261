// Package locks takes short-lived advisory locks in Redis to shave contention
// off hot rooms. The lock is never a correctness mechanism: the ledger unique
// key and the conditional room reserve stay authoritative when Redis is slow,
// down, or not configured at all.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed holder can block a room.
const DefaultTTL = 30 * time.Second

// ErrNotConfigured is returned when no Redis client is wired in. Callers
// treat it the same as any other lock failure: proceed without the lock.
var ErrNotConfigured = errors.New("locks: redis not configured")

// Locker hands out named advisory locks with a TTL.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker wraps a Redis client. A nil client is allowed and produces a
// locker that never grants locks.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{client: client, ttl: ttl}
}

// TryAcquire attempts to take the named lock without blocking. When acquired,
// the returned release function deletes the lock; the TTL covers holders that
// never get to call it.
func (l *Locker) TryAcquire(ctx context.Context, key string) (release func(), acquired bool, err error) {
	noop := func() {}

	if l == nil || l.client == nil {
		return noop, false, ErrNotConfigured
	}

	name := lockKey(key)
	ok, err := l.client.SetNX(ctx, name, "1", l.ttl).Result()
	if err != nil {
		return noop, false, fmt.Errorf("locks: acquire %s: %w", key, err)
	}
	if !ok {
		return noop, false, nil
	}

	return func() {
		// Release runs on paths where the request context may already be
		// cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		l.client.Del(ctx, name)
	}, true, nil
}

func lockKey(key string) string {
	return "lock:" + key
}
