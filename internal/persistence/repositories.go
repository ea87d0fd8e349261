package persistence

import (
	"context"
	"time"
)

// RoomRepository stores classroom state. Reserve and Release are the only
// operations that move a room between disponible and ocupada; both are single
// conditional statements so concurrent callers cannot observe a half-applied
// state.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DisableRoom(ctx context.Context, id string) error
	// Reserve atomically moves the room from disponible to ocupada and records
	// the owning session. Returns ErrNotAvailable when the room exists but is
	// not disponible, ErrNotFound when it does not exist.
	Reserve(ctx context.Context, roomID, sessionID string) error
	// Release unconditionally returns the room to disponible and clears the
	// owning session. Releasing an already free room is a no-op.
	Release(ctx context.Context, roomID string) error
	CountByStatus(ctx context.Context) (map[RoomStatus]int, error)
}

// SessionFilter narrows ledger queries. Zero-valued fields are ignored.
type SessionFilter struct {
	RoomID      string
	ProfessorID string
	Program     string
	CourseID    string
	Date        string
	Statuses    []SessionStatus
}

// SessionRepository stores the schedule ledger. The unique index on
// (room, date, start time) is the authoritative double-booking gate:
// CreateSession surfaces it as ErrDuplicate.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	// TransitionSession conditionally moves a session from one status to
	// another. Returns ErrStateMismatch when the row exists but its status is
	// not the expected one.
	TransitionSession(ctx context.Context, id string, from, to SessionStatus, releasedAt *time.Time) error
	// IncrementEnrollment adds one seat, bounded above by capacity.
	// Returns ErrStateMismatch when the session is already full.
	IncrementEnrollment(ctx context.Context, id string, capacity int) error
	// DecrementEnrollment removes one seat, bounded below by zero.
	// Returns ErrStateMismatch when the count is already zero.
	DecrementEnrollment(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
}

// CourseRepository stores the per-program course catalog.
type CourseRepository interface {
	CreateCourse(ctx context.Context, course Course) error
	UpdateCourse(ctx context.Context, course Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	GetCourseByCode(ctx context.Context, code string) (Course, error)
	ListCourses(ctx context.Context, program string, onlyActive bool) ([]Course, error)
	DeactivateCourse(ctx context.Context, id string) error
}

// AssignmentRepository stores professor-course teaching assignments.
type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, assignment TeachingAssignment) error
	DeactivateAssignment(ctx context.Context, professorID, courseID string) error
	ListAssignments(ctx context.Context, professorID string) ([]TeachingAssignment, error)
	// HasActiveAssignment reports whether the professor holds at least one
	// active assignment in the program. Absence is a plain false, not an error.
	HasActiveAssignment(ctx context.Context, professorID, program string) (bool, error)
}
