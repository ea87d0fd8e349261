// Package cache keeps short-lived room snapshots in Redis so the advisory
// availability check on the hot scheduling path does not always hit SQLite.
// Every read that matters for correctness goes to the database; a stale or
// missing snapshot only costs one extra query.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps snapshots fresh enough for display and advisory checks.
const DefaultTTL = 5 * time.Minute

// RoomSnapshot mirrors the room fields read on every scheduling attempt.
type RoomSnapshot struct {
	ID               string  `json:"id_aula"`
	Status           string  `json:"estado"`
	Capacity         int     `json:"capacidad"`
	CurrentSessionID *string `json:"id_asignacion_actual,omitempty"`
}

// RoomCache stores snapshots under aula:{id}. All operations are best effort;
// Redis failures surface as cache misses.
type RoomCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomCache wraps a Redis client. A nil client yields a cache that always
// misses.
func NewRoomCache(client *redis.Client, ttl time.Duration) *RoomCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RoomCache{client: client, ttl: ttl}
}

// Get returns the cached snapshot and whether it was present.
func (c *RoomCache) Get(ctx context.Context, roomID string) (RoomSnapshot, bool) {
	if c == nil || c.client == nil {
		return RoomSnapshot{}, false
	}

	raw, err := c.client.Get(ctx, cacheKey(roomID)).Bytes()
	if err != nil {
		return RoomSnapshot{}, false
	}

	var snapshot RoomSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		// A corrupt entry is treated as a miss and overwritten by the next Set.
		return RoomSnapshot{}, false
	}

	return snapshot, true
}

// Set stores a snapshot with the configured TTL.
func (c *RoomCache) Set(ctx context.Context, snapshot RoomSnapshot) {
	if c == nil || c.client == nil || snapshot.ID == "" {
		return
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}

	c.client.Set(ctx, cacheKey(snapshot.ID), raw, c.ttl)
}

// Invalidate drops the snapshot after any room mutation.
func (c *RoomCache) Invalidate(ctx context.Context, roomID string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, cacheKey(roomID))
}

func cacheKey(roomID string) string {
	return "aula:" + roomID
}
