package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/smartcampus/bedelia/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
// The unique index on (room_id, date, start_time) makes this table the
// authoritative answer to "is this slot taken".
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSession inserts a new ledger row. A second row for the same room,
// date, and start time fails with ErrDuplicate.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}
	if session.Status == "" {
		session.Status = persistence.SessionScheduled
	}

	query := `
		INSERT INTO sessions (
			id, room_id, course_id, professor_id, program,
			date, start_time, end_time, duration_minutes, weekday,
			kind, status, enrollment, released_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		session.ID,
		session.RoomID,
		session.CourseID,
		session.ProfessorID,
		session.Program,
		session.Date,
		session.StartTime,
		session.EndTime,
		session.DurationMinutes,
		session.Weekday,
		string(session.Kind),
		string(session.Status),
		session.Enrollment,
		formatNullableTime(session.ReleasedAt),
		session.CreatedAt.Format(time.RFC3339),
		session.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetSession retrieves a session by ID from the database
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := sessionSelect + ` WHERE id = ?`

	session, err := scanSession(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	return session, nil
}

// ListSessions returns ledger rows matching the filter, ordered by date and
// start time.
func (r *SessionRepository) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	var conditions []string
	var args []interface{}

	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, "professor_id = ?")
		args = append(args, filter.ProfessorID)
	}
	if filter.Program != "" {
		conditions = append(conditions, "program = ?")
		args = append(args, filter.Program)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, "course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.Date != "" {
		conditions = append(conditions, "date = ?")
		args = append(args, filter.Date)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	query := sessionSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return sessions, nil
}

// TransitionSession conditionally moves a session between statuses. The WHERE
// clause on the expected status keeps concurrent transitions from stepping on
// each other.
func (r *SessionRepository) TransitionSession(ctx context.Context, id string, from, to persistence.SessionStatus, releasedAt *time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE sessions
		SET status = ?, released_at = COALESCE(?, released_at), updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.helper.Exec(ctx, query,
		string(to),
		formatNullableTime(releasedAt),
		time.Now().UTC().Format(time.RFC3339),
		id,
		string(from),
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, getErr := r.GetSession(ctx, id); getErr != nil {
			return getErr
		}
		return persistence.ErrStateMismatch
	}

	return nil
}

// IncrementEnrollment adds one seat while enrollment stays below capacity.
func (r *SessionRepository) IncrementEnrollment(ctx context.Context, id string, capacity int) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE sessions
		SET enrollment = enrollment + 1, updated_at = ?
		WHERE id = ? AND enrollment < ?
	`

	result, err := r.helper.Exec(ctx, query,
		time.Now().UTC().Format(time.RFC3339),
		id,
		capacity,
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, getErr := r.GetSession(ctx, id); getErr != nil {
			return getErr
		}
		return persistence.ErrStateMismatch
	}

	return nil
}

// DecrementEnrollment removes one seat while enrollment stays above zero.
func (r *SessionRepository) DecrementEnrollment(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE sessions
		SET enrollment = enrollment - 1, updated_at = ?
		WHERE id = ? AND enrollment > 0
	`

	result, err := r.helper.Exec(ctx, query,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, getErr := r.GetSession(ctx, id); getErr != nil {
			return getErr
		}
		return persistence.ErrStateMismatch
	}

	return nil
}

// DeleteSession removes a ledger row. Only the scheduling compensation path
// uses this; normal lifecycles end in finalizada or cancelada.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM sessions WHERE id = ?`, id)
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

const sessionSelect = `
	SELECT id, room_id, course_id, professor_id, program,
		date, start_time, end_time, duration_minutes, weekday,
		kind, status, enrollment, released_at, created_at, updated_at
	FROM sessions
`

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var kind, status string
	var releasedAtStr sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&session.ID,
		&session.RoomID,
		&session.CourseID,
		&session.ProfessorID,
		&session.Program,
		&session.Date,
		&session.StartTime,
		&session.EndTime,
		&session.DurationMinutes,
		&session.Weekday,
		&kind,
		&status,
		&session.Enrollment,
		&releasedAtStr,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Session{}, err
	}

	session.Kind = persistence.SessionKind(kind)
	session.Status = persistence.SessionStatus(status)

	if releasedAtStr.Valid {
		releasedAt, err := time.Parse(time.RFC3339, releasedAtStr.String)
		if err != nil {
			return persistence.Session{}, fmt.Errorf("failed to parse released_at: %w", err)
		}
		session.ReleasedAt = &releasedAt
	}

	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return session, nil
}

func formatNullableTime(value *time.Time) interface{} {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339)
}
