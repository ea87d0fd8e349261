package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smartcampus/bedelia/internal/events"
	"github.com/smartcampus/bedelia/internal/persistence"
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DisableRoom(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// RoomService manages the classroom catalog for administrators and serves
// room reads to everyone else.
type RoomService struct {
	rooms       RoomRepository
	publisher   EventPublisher
	cache       RoomCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// RoomServiceDeps wires the collaborators of a RoomService. Publisher and
// Cache are optional.
type RoomServiceDeps struct {
	Rooms       RoomRepository
	Publisher   EventPublisher
	Cache       RoomCache
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(deps RoomServiceDeps) *RoomService {
	idGenerator := deps.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:       deps.Rooms,
		publisher:   deps.Publisher,
		cache:       deps.Cache,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new classroom for administrators.
// The announcement event is best effort.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now().UTC()
	room = Room{
		ID:          s.idGenerator(),
		Number:      params.Input.Number,
		Floor:       params.Input.Floor,
		Capacity:    params.Input.Capacity,
		Status:      roomStatusAvailable,
		Description: normalizeOptionalString(params.Input.Description),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	if createErr := s.rooms.CreateRoom(ctx, room); createErr != nil {
		err = mapRoomRepoError(createErr)
		room = Room{}
		return
	}

	if s.publisher != nil {
		if pubErr := s.publisher.NewRoom(events.RoomCreated{
			RoomID:   room.ID,
			Number:   room.Number,
			Floor:    room.Floor,
			Capacity: room.Capacity,
		}); pubErr != nil {
			logger.WarnContext(ctx, "new room event not published", "room_id", room.ID, "error", pubErr)
		}
	}

	return room, nil
}

// UpdateRoom validates input and updates the catalog fields of a room for
// administrators.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing Room
	existing, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	existing.Number = params.Input.Number
	existing.Floor = params.Input.Floor
	existing.Capacity = params.Input.Capacity
	existing.Description = normalizeOptionalString(params.Input.Description)
	existing.UpdatedAt = s.now().UTC()

	if updateErr := s.rooms.UpdateRoom(ctx, existing); updateErr != nil {
		err = mapRoomRepoError(updateErr)
		return
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, params.RoomID)
	}

	room = existing
	return
}

// DisableRoom takes a classroom out of service for administrators. A room
// that currently hosts a session must be released first.
func (s *RoomService) DisableRoom(ctx context.Context, principal Principal, roomID string) error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "DisableRoom",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)

	if err := s.rooms.DisableRoom(ctx, roomID); err != nil {
		if errors.Is(err, persistence.ErrNotAvailable) {
			err = &RoomUnavailableError{RoomID: roomID, Reason: RoomOccupied}
		} else {
			err = mapRoomRepoError(err)
		}
		logger.ErrorContext(ctx, "failed to disable room", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, roomID)
	}

	logger.InfoContext(ctx, "room disabled")
	return nil
}

// GetRoom returns one classroom for any authenticated user.
func (s *RoomService) GetRoom(ctx context.Context, principal Principal, roomID string) (Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// ListRooms returns the classroom catalog for any authenticated user.
func (s *RoomService) ListRooms(ctx context.Context, principal Principal) ([]Room, error) {
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, mapRoomRepoError(err)
	}
	return rooms, nil
}

// Metrics returns room totals by status and publishes them on the metrics
// feed. The publish is fire and forget.
func (s *RoomService) Metrics(ctx context.Context, principal Principal) (metrics RoomMetrics, err error) {
	logger := s.loggerWith(ctx, "Metrics",
		"principal_id", principal.UserID,
	)

	counts, countErr := s.rooms.CountByStatus(ctx)
	if countErr != nil {
		err = mapRoomRepoError(countErr)
		logger.ErrorContext(ctx, "failed to count rooms", "error", err, "error_kind", ErrorKind(err))
		return
	}

	metrics = RoomMetrics{
		Available: counts[roomStatusAvailable],
		Occupied:  counts[roomStatusOccupied],
		Disabled:  counts[roomStatusDisabled],
	}
	metrics.Total = metrics.Available + metrics.Occupied + metrics.Disabled

	if s.publisher != nil {
		if pubErr := s.publisher.Metrics(events.RoomMetrics{
			Available: metrics.Available,
			Occupied:  metrics.Occupied,
			Disabled:  metrics.Disabled,
			Total:     metrics.Total,
		}); pubErr != nil {
			logger.WarnContext(ctx, "metrics event not published", "error", pubErr)
		}
	}

	return metrics, nil
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Number <= 0 {
		vErr.add("nro_aula", "room number must be positive")
	}
	if input.Floor < 0 {
		vErr.add("piso", "floor must not be negative")
	}
	if input.Capacity <= 0 {
		vErr.add("capacidad", "capacity must be positive")
	}

	return vErr
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("capacidad", "capacity must be positive")
		return vErr
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
