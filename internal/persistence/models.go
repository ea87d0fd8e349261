package persistence

import "time"

// RoomStatus enumerates the lifecycle states of a classroom. The values are
// stored verbatim and are part of the wire contract with existing clients.
type RoomStatus string

const (
	RoomAvailable RoomStatus = "disponible"
	RoomOccupied  RoomStatus = "ocupada"
	RoomDisabled  RoomStatus = "deshabilitada"
)

// SessionStatus enumerates the lifecycle states of a scheduled class session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "programada"
	SessionActive    SessionStatus = "activa"
	SessionFinished  SessionStatus = "finalizada"
	SessionCancelled SessionStatus = "cancelada"
)

// SessionKind enumerates the class formats accepted by the scheduler.
type SessionKind string

const (
	KindTheory   SessionKind = "teorica"
	KindPractice SessionKind = "practica"
	KindLab      SessionKind = "laboratorio"
)

// Room represents a classroom catalog entry. Status and CurrentSessionID move
// together: a room is ocupada exactly when CurrentSessionID is set.
type Room struct {
	ID               string
	Number           int
	Floor            int
	Capacity         int
	Status           RoomStatus
	CurrentSessionID *string
	Description      *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Session represents one ledger row of the class schedule. Date is YYYY-MM-DD
// and StartTime/EndTime are HH:MM; DurationMinutes and Weekday (Monday == 0)
// are derived at creation and stored denormalized.
type Session struct {
	ID              string
	RoomID          string
	CourseID        string
	ProfessorID     string
	Program         string
	Date            string
	StartTime       string
	EndTime         string
	DurationMinutes int
	Weekday         int
	Kind            SessionKind
	Status          SessionStatus
	Enrollment      int
	ReleasedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Course represents a subject offered within a degree program.
type Course struct {
	ID          string
	Program     string
	Name        string
	Code        string
	Year        int
	Term        int
	WeeklyHours int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TeachingAssignment links a professor to a course within a program.
type TeachingAssignment struct {
	ID          string
	ProfessorID string
	CourseID    string
	Program     string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionScheduled: {SessionActive, SessionCancelled},
	SessionActive:    {SessionFinished, SessionCancelled},
}

// CanTransition reports whether a session may move between the two statuses.
// finalizada and cancelada are terminal.
func CanTransition(from, to SessionStatus) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidRoomStatus reports whether the value is a known room status.
func ValidRoomStatus(status RoomStatus) bool {
	switch status {
	case RoomAvailable, RoomOccupied, RoomDisabled:
		return true
	}
	return false
}

// ValidSessionKind reports whether the value is a known class format.
func ValidSessionKind(kind SessionKind) bool {
	switch kind {
	case KindTheory, KindPractice, KindLab:
		return true
	}
	return false
}
