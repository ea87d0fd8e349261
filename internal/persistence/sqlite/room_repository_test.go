package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/smartcampus/bedelia/internal/persistence"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := NewConnectionPool("file:" + filepath.Join(t.TempDir(), "bedelia.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return pool
}

func seedRoom(t *testing.T, repo *RoomRepository, id string, number, floor, capacity int) persistence.Room {
	t.Helper()

	room := persistence.Room{
		ID:       id,
		Number:   number,
		Floor:    floor,
		Capacity: capacity,
		Status:   persistence.RoomAvailable,
	}
	if err := repo.CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("failed to seed room %s: %v", id, err)
	}
	return room
}

func TestRoomRepositoryCreateAndGet(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	description := "proyector y pizarra"
	room := persistence.Room{
		ID:          "room-1",
		Number:      101,
		Floor:       1,
		Capacity:    40,
		Description: &description,
	}

	if err := repo.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	got, err := repo.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}

	if got.Number != 101 || got.Floor != 1 || got.Capacity != 40 {
		t.Errorf("unexpected room fields: %+v", got)
	}
	if got.Status != persistence.RoomAvailable {
		t.Errorf("new room status = %q, want %q", got.Status, persistence.RoomAvailable)
	}
	if got.CurrentSessionID != nil {
		t.Errorf("new room has current session %q", *got.CurrentSessionID)
	}
	if got.Description == nil || *got.Description != description {
		t.Errorf("description not preserved: %v", got.Description)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestRoomRepositoryGetMissing(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)

	if _, err := repo.GetRoom(context.Background(), "nope"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("GetRoom(missing) = %v, want ErrNotFound", err)
	}
}

func TestRoomRepositoryDuplicateNumberFloor(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	seedRoom(t, repo, "room-1", 101, 1, 40)

	err := repo.CreateRoom(ctx, persistence.Room{ID: "room-2", Number: 101, Floor: 1, Capacity: 30})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("duplicate (number, floor) = %v, want ErrDuplicate", err)
	}

	// Same number on another floor is a different room.
	if err := repo.CreateRoom(ctx, persistence.Room{ID: "room-3", Number: 101, Floor: 2, Capacity: 30}); err != nil {
		t.Fatalf("distinct floor rejected: %v", err)
	}
}

func TestRoomRepositoryInvalidCapacity(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)

	err := repo.CreateRoom(context.Background(), persistence.Room{ID: "room-1", Number: 1, Floor: 1, Capacity: 0})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("zero capacity = %v, want ErrConstraintViolation", err)
	}
}

func TestRoomRepositoryReserve(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	seedRoom(t, repo, "room-1", 101, 1, 40)

	if err := repo.Reserve(ctx, "room-1", "session-1"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	got, err := repo.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.Status != persistence.RoomOccupied {
		t.Errorf("status after reserve = %q, want %q", got.Status, persistence.RoomOccupied)
	}
	if got.CurrentSessionID == nil || *got.CurrentSessionID != "session-1" {
		t.Errorf("current session = %v, want session-1", got.CurrentSessionID)
	}

	t.Run("already occupied", func(t *testing.T) {
		if err := repo.Reserve(ctx, "room-1", "session-2"); !errors.Is(err, persistence.ErrNotAvailable) {
			t.Fatalf("Reserve(occupied) = %v, want ErrNotAvailable", err)
		}

		// The losing caller must not overwrite the owner.
		got, err := repo.GetRoom(ctx, "room-1")
		if err != nil {
			t.Fatalf("GetRoom failed: %v", err)
		}
		if got.CurrentSessionID == nil || *got.CurrentSessionID != "session-1" {
			t.Errorf("owner changed to %v", got.CurrentSessionID)
		}
	})

	t.Run("missing room", func(t *testing.T) {
		if err := repo.Reserve(ctx, "ghost", "session-3"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("Reserve(missing) = %v, want ErrNotFound", err)
		}
	})

	t.Run("disabled room", func(t *testing.T) {
		seedRoom(t, repo, "room-2", 201, 2, 30)
		if err := repo.DisableRoom(ctx, "room-2"); err != nil {
			t.Fatalf("DisableRoom failed: %v", err)
		}
		if err := repo.Reserve(ctx, "room-2", "session-4"); !errors.Is(err, persistence.ErrNotAvailable) {
			t.Fatalf("Reserve(disabled) = %v, want ErrNotAvailable", err)
		}
	})
}

func TestRoomRepositoryRelease(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	seedRoom(t, repo, "room-1", 101, 1, 40)
	if err := repo.Reserve(ctx, "room-1", "session-1"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if err := repo.Release(ctx, "room-1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	got, err := repo.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.Status != persistence.RoomAvailable {
		t.Errorf("status after release = %q, want %q", got.Status, persistence.RoomAvailable)
	}
	if got.CurrentSessionID != nil {
		t.Errorf("current session not cleared: %v", *got.CurrentSessionID)
	}

	// Releasing a free room is a no-op, not an error.
	if err := repo.Release(ctx, "room-1"); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}

	if err := repo.Release(ctx, "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Release(missing) = %v, want ErrNotFound", err)
	}
}

func TestRoomRepositoryDisable(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	seedRoom(t, repo, "room-1", 101, 1, 40)

	if err := repo.DisableRoom(ctx, "room-1"); err != nil {
		t.Fatalf("DisableRoom failed: %v", err)
	}

	got, err := repo.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.Status != persistence.RoomDisabled {
		t.Errorf("status = %q, want %q", got.Status, persistence.RoomDisabled)
	}

	t.Run("occupied room cannot be disabled", func(t *testing.T) {
		seedRoom(t, repo, "room-2", 201, 2, 30)
		if err := repo.Reserve(ctx, "room-2", "session-1"); err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}
		if err := repo.DisableRoom(ctx, "room-2"); !errors.Is(err, persistence.ErrNotAvailable) {
			t.Fatalf("DisableRoom(occupied) = %v, want ErrNotAvailable", err)
		}
	})

	t.Run("missing room", func(t *testing.T) {
		if err := repo.DisableRoom(ctx, "ghost"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("DisableRoom(missing) = %v, want ErrNotFound", err)
		}
	})
}

func TestRoomRepositoryCountByStatus(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	seedRoom(t, repo, "room-1", 101, 1, 40)
	seedRoom(t, repo, "room-2", 102, 1, 40)
	seedRoom(t, repo, "room-3", 103, 1, 40)

	if err := repo.Reserve(ctx, "room-2", "session-1"); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if err := repo.DisableRoom(ctx, "room-3"); err != nil {
		t.Fatalf("DisableRoom failed: %v", err)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}

	if counts[persistence.RoomAvailable] != 1 {
		t.Errorf("available = %d, want 1", counts[persistence.RoomAvailable])
	}
	if counts[persistence.RoomOccupied] != 1 {
		t.Errorf("occupied = %d, want 1", counts[persistence.RoomOccupied])
	}
	if counts[persistence.RoomDisabled] != 1 {
		t.Errorf("disabled = %d, want 1", counts[persistence.RoomDisabled])
	}
}

func TestRoomRepositoryConcurrentReserve(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	ctx := context.Background()

	seedRoom(t, repo, "room-1", 101, 1, 40)

	const attempts = 10

	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = repo.Reserve(ctx, "room-1", "session-"+string(rune('a'+n)))
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, persistence.ErrNotAvailable):
			losses++
		default:
			t.Fatalf("unexpected reserve error: %v", err)
		}
	}

	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	if losses != attempts-1 {
		t.Fatalf("losses = %d, want %d", losses, attempts-1)
	}
}
