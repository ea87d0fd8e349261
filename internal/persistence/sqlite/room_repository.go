package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/smartcampus/bedelia/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRoom inserts a new room into the database
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = room.CreatedAt
	}
	if room.Status == "" {
		room.Status = persistence.RoomAvailable
	}

	query := `
		INSERT INTO rooms (id, number, floor, capacity, status, current_session_id, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		room.ID,
		room.Number,
		room.Floor,
		room.Capacity,
		string(room.Status),
		room.CurrentSessionID,
		room.Description,
		room.CreatedAt.Format(time.RFC3339),
		room.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// UpdateRoom updates the catalog fields of an existing room. Status changes go
// through Reserve, Release, and DisableRoom instead.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE rooms
		SET number = ?, floor = ?, capacity = ?, description = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		room.Number,
		room.Floor,
		room.Capacity,
		room.Description,
		time.Now().UTC().Format(time.RFC3339),
		room.ID,
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// GetRoom retrieves a room by ID from the database
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, number, floor, capacity, status, current_session_id, description, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`

	room, err := scanRoom(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}

	return room, nil
}

// ListRooms returns all rooms ordered by floor then number
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	query := `
		SELECT id, number, floor, capacity, status, current_session_id, description, created_at, updated_at
		FROM rooms
		ORDER BY floor ASC, number ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room

	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return rooms, nil
}

// DisableRoom takes a room out of service. A room that currently hosts a
// session cannot be disabled.
func (r *RoomRepository) DisableRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE rooms
		SET status = ?, current_session_id = NULL, updated_at = ?
		WHERE id = ? AND status != ?
	`

	result, err := r.helper.Exec(ctx, query,
		string(persistence.RoomDisabled),
		time.Now().UTC().Format(time.RFC3339),
		id,
		string(persistence.RoomOccupied),
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, getErr := r.GetRoom(ctx, id); getErr != nil {
			return getErr
		}
		return persistence.ErrNotAvailable
	}

	return nil
}

// Reserve atomically claims an available room for a session. The WHERE clause
// on status is what makes concurrent claims safe: exactly one caller sees a
// row affected.
func (r *RoomRepository) Reserve(ctx context.Context, roomID, sessionID string) error {
	if roomID == "" {
		return persistence.ErrNotFound
	}
	if sessionID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE rooms
		SET status = ?, current_session_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.helper.Exec(ctx, query,
		string(persistence.RoomOccupied),
		sessionID,
		time.Now().UTC().Format(time.RFC3339),
		roomID,
		string(persistence.RoomAvailable),
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, getErr := r.GetRoom(ctx, roomID); getErr != nil {
			return getErr
		}
		return persistence.ErrNotAvailable
	}

	return nil
}

// Release returns a room to the available pool. The update carries no status
// condition: releasing an already free room rewrites the same values, so
// retries are safe.
func (r *RoomRepository) Release(ctx context.Context, roomID string) error {
	if roomID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE rooms
		SET status = ?, current_session_id = NULL, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		string(persistence.RoomAvailable),
		time.Now().UTC().Format(time.RFC3339),
		roomID,
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// CountByStatus returns room totals grouped by status for the metrics feed.
func (r *RoomRepository) CountByStatus(ctx context.Context) (map[persistence.RoomStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM rooms GROUP BY status`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	counts := map[persistence.RoomStatus]int{
		persistence.RoomAvailable: 0,
		persistence.RoomOccupied:  0,
		persistence.RoomDisabled:  0,
	}

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, r.mapper.MapError(err)
		}
		counts[persistence.RoomStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return counts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var room persistence.Room
	var status string
	var currentSessionID, description sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&room.ID,
		&room.Number,
		&room.Floor,
		&room.Capacity,
		&status,
		&currentSessionID,
		&description,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Room{}, err
	}

	room.Status = persistence.RoomStatus(status)
	if currentSessionID.Valid {
		room.CurrentSessionID = &currentSessionID.String
	}
	if description.Valid {
		room.Description = &description.String
	}

	if room.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return room, nil
}
