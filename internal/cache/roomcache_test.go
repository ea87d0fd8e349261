package cache

import (
	"context"
	"testing"
)

func TestRoomCacheWithoutRedis(t *testing.T) {
	cache := NewRoomCache(nil, 0)
	ctx := context.Background()

	// Every operation degrades to a miss or a no-op.
	cache.Set(ctx, RoomSnapshot{ID: "room-1", Status: "disponible", Capacity: 40})

	if _, ok := cache.Get(ctx, "room-1"); ok {
		t.Fatal("cache without backend reported a hit")
	}

	cache.Invalidate(ctx, "room-1")
}

func TestNilRoomCache(t *testing.T) {
	var cache *RoomCache
	ctx := context.Background()

	cache.Set(ctx, RoomSnapshot{ID: "room-1"})
	cache.Invalidate(ctx, "room-1")

	if _, ok := cache.Get(ctx, "room-1"); ok {
		t.Fatal("nil cache reported a hit")
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey("room-1"); got != "aula:room-1" {
		t.Fatalf("cacheKey = %q, want aula:room-1", got)
	}
}
