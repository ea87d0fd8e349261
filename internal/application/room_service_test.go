package application

import (
	"context"
	"errors"
	"testing"

	"github.com/smartcampus/bedelia/internal/persistence"
)

type roomRepoStub struct {
	rooms      map[string]Room
	createErr  error
	updateErr  error
	disableErr error
	counts     map[string]int
	countErr   error
	created    []Room
	updated    []Room
	disabled   []string
}

func (r *roomRepoStub) CreateRoom(ctx context.Context, room Room) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, room)
	return nil
}

func (r *roomRepoStub) UpdateRoom(ctx context.Context, room Room) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = append(r.updated, room)
	return nil
}

func (r *roomRepoStub) GetRoom(ctx context.Context, id string) (Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (r *roomRepoStub) ListRooms(ctx context.Context) ([]Room, error) {
	var out []Room
	for _, room := range r.rooms {
		out = append(out, room)
	}
	return out, nil
}

func (r *roomRepoStub) DisableRoom(ctx context.Context, id string) error {
	if r.disableErr != nil {
		return r.disableErr
	}
	r.disabled = append(r.disabled, id)
	return nil
}

func (r *roomRepoStub) CountByStatus(ctx context.Context) (map[string]int, error) {
	if r.countErr != nil {
		return nil, r.countErr
	}
	return r.counts, nil
}

func newRoomSvc(repo *roomRepoStub, publisher *publisherStub, roomCache *cacheStub) *RoomService {
	deps := RoomServiceDeps{
		Rooms:       repo,
		IDGenerator: func() string { return "room-1" },
		Now:         fixedClock,
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	if roomCache != nil {
		deps.Cache = roomCache
	}
	return NewRoomService(deps)
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()

	repo := &roomRepoStub{}
	publisher := &publisherStub{}
	svc := newRoomSvc(repo, publisher, nil)

	room, err := svc.CreateRoom(context.Background(), CreateRoomParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
		Input:     RoomInput{Number: 101, Floor: 1, Capacity: 40},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if room.ID != "room-1" {
		t.Fatalf("room ID = %q", room.ID)
	}
	if room.Status != "disponible" {
		t.Fatalf("status = %q, want disponible", room.Status)
	}
	if len(repo.created) != 1 {
		t.Fatalf("inserts = %d, want 1", len(repo.created))
	}
	if len(publisher.newRooms) != 1 {
		t.Fatalf("new room events = %d, want 1", len(publisher.newRooms))
	}
	if got := publisher.newRooms[0]; got.RoomID != "room-1" || got.Number != 101 || got.Capacity != 40 {
		t.Fatalf("event = %+v", got)
	}
}

func TestCreateRoom_RequiresAdmin(t *testing.T) {
	t.Parallel()

	svc := newRoomSvc(&roomRepoStub{}, nil, nil)

	_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
		Principal: Principal{UserID: "prof-1"},
		Input:     RoomInput{Number: 101, Floor: 1, Capacity: 40},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCreateRoom_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input RoomInput
		field string
	}{
		{"zero number", RoomInput{Number: 0, Floor: 1, Capacity: 40}, "nro_aula"},
		{"negative floor", RoomInput{Number: 101, Floor: -1, Capacity: 40}, "piso"},
		{"zero capacity", RoomInput{Number: 101, Floor: 1, Capacity: 0}, "capacidad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := newRoomSvc(&roomRepoStub{}, nil, nil)
			_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
				Principal: Principal{UserID: "admin-1", IsAdmin: true},
				Input:     tt.input,
			})

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tt.field]; !ok {
				t.Fatalf("field errors = %v, want %q", vErr.FieldErrors, tt.field)
			}
		})
	}
}

func TestCreateRoom_DuplicateLocation(t *testing.T) {
	t.Parallel()

	repo := &roomRepoStub{createErr: persistence.ErrDuplicate}
	svc := newRoomSvc(repo, nil, nil)

	_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
		Input:     RoomInput{Number: 101, Floor: 1, Capacity: 40},
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestUpdateRoom_InvalidatesCache(t *testing.T) {
	t.Parallel()

	repo := &roomRepoStub{rooms: map[string]Room{"room-1": availableRoom("room-1", 40)}}
	roomCache := &cacheStub{}
	svc := newRoomSvc(repo, nil, roomCache)

	room, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
		RoomID:    "room-1",
		Input:     RoomInput{Number: 102, Floor: 2, Capacity: 60},
	})
	if err != nil {
		t.Fatalf("UpdateRoom failed: %v", err)
	}
	if room.Number != 102 || room.Floor != 2 || room.Capacity != 60 {
		t.Fatalf("room = %+v", room)
	}
	if room.Status != "disponible" {
		t.Fatal("update must not touch the status")
	}
	if len(roomCache.invalidated) != 1 || roomCache.invalidated[0] != "room-1" {
		t.Fatalf("cache invalidations = %v", roomCache.invalidated)
	}
}

func TestUpdateRoom_Missing(t *testing.T) {
	t.Parallel()

	svc := newRoomSvc(&roomRepoStub{rooms: map[string]Room{}}, nil, nil)

	_, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
		RoomID:    "ghost",
		Input:     RoomInput{Number: 101, Floor: 1, Capacity: 40},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDisableRoom(t *testing.T) {
	t.Parallel()

	repo := &roomRepoStub{}
	roomCache := &cacheStub{}
	svc := newRoomSvc(repo, nil, roomCache)

	if err := svc.DisableRoom(context.Background(), Principal{UserID: "admin-1", IsAdmin: true}, "room-1"); err != nil {
		t.Fatalf("DisableRoom failed: %v", err)
	}
	if len(repo.disabled) != 1 {
		t.Fatalf("disables = %v", repo.disabled)
	}
	if len(roomCache.invalidated) != 1 {
		t.Fatalf("cache invalidations = %v", roomCache.invalidated)
	}
}

func TestDisableRoom_Occupied(t *testing.T) {
	t.Parallel()

	repo := &roomRepoStub{disableErr: persistence.ErrNotAvailable}
	svc := newRoomSvc(repo, nil, nil)

	err := svc.DisableRoom(context.Background(), Principal{UserID: "admin-1", IsAdmin: true}, "room-1")

	var unavailable *RoomUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected RoomUnavailableError, got %v", err)
	}
	if unavailable.Reason != RoomOccupied {
		t.Fatalf("reason = %q, want occupied", unavailable.Reason)
	}
}

func TestDisableRoom_RequiresAdmin(t *testing.T) {
	t.Parallel()

	svc := newRoomSvc(&roomRepoStub{}, nil, nil)

	err := svc.DisableRoom(context.Background(), Principal{UserID: "prof-1"}, "room-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRoomMetrics(t *testing.T) {
	t.Parallel()

	repo := &roomRepoStub{counts: map[string]int{
		"disponible":    5,
		"ocupada":       2,
		"deshabilitada": 1,
	}}
	publisher := &publisherStub{}
	svc := newRoomSvc(repo, publisher, nil)

	metrics, err := svc.Metrics(context.Background(), Principal{UserID: "admin-1", IsAdmin: true})
	if err != nil {
		t.Fatalf("Metrics failed: %v", err)
	}
	want := RoomMetrics{Available: 5, Occupied: 2, Disabled: 1, Total: 8}
	if metrics != want {
		t.Fatalf("metrics = %+v, want %+v", metrics, want)
	}
	if len(publisher.metrics) != 1 {
		t.Fatalf("metrics events = %d, want 1", len(publisher.metrics))
	}
	if publisher.metrics[0].Total != 8 {
		t.Fatalf("event total = %d, want 8", publisher.metrics[0].Total)
	}
}

func TestRoomMetrics_PublishFailureDoesNotFail(t *testing.T) {
	t.Parallel()

	repo := &roomRepoStub{counts: map[string]int{"disponible": 1}}
	publisher := &publisherStub{publishErr: errors.New("broker down")}
	svc := newRoomSvc(repo, publisher, nil)

	metrics, err := svc.Metrics(context.Background(), Principal{UserID: "admin-1", IsAdmin: true})
	if err != nil {
		t.Fatalf("Metrics failed: %v", err)
	}
	if metrics.Total != 1 {
		t.Fatalf("total = %d, want 1", metrics.Total)
	}
}
