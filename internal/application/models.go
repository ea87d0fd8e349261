package application

import "time"

// Principal represents the authenticated user invoking a service method. The
// authentication collaborator resolves it before a request reaches this
// layer; professors carry their professor ID as UserID.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// Room represents a classroom exposed by the application services.
type Room struct {
	ID               string
	Number           int
	Floor            int
	Capacity         int
	Status           string
	CurrentSessionID *string
	Description      *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Number      int
	Floor       int
	Capacity    int
	Description *string
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// RoomMetrics summarizes the room pool by status.
type RoomMetrics struct {
	Available int
	Occupied  int
	Disabled  int
	Total     int
}

// Session represents one scheduled class exposed by the application services.
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
	Kind            string
	Status          string
	Enrollment      int
	ReleasedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SessionInput captures caller provided session fields.
type SessionInput struct {
	RoomID      string
	CourseID    string
	ProfessorID string
	Program     string
	Date        string
	StartTime   string
	EndTime     string
	Kind        string
}

// ScheduleSessionParams wraps the data required to schedule a session.
type ScheduleSessionParams struct {
	Principal Principal
	Input     SessionInput
}

// FinalizeOutcome selects how a session ends.
type FinalizeOutcome string

const (
	// OutcomeFinish closes a session that ran to completion.
	OutcomeFinish FinalizeOutcome = "finish"
	// OutcomeCancel withdraws a session before or during its slot.
	OutcomeCancel FinalizeOutcome = "cancel"
)

// FinalizeSessionParams wraps the data required to end a session.
type FinalizeSessionParams struct {
	Principal Principal
	SessionID string
	Outcome   FinalizeOutcome
	Reason    string
}

// ListSessionsParams narrows session listings. Zero-valued fields are ignored.
type ListSessionsParams struct {
	Principal   Principal
	RoomID      string
	ProfessorID string
	Program     string
	CourseID    string
	Date        string
	Statuses    []string
}

// Course represents a catalog entry exposed by the application services.
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

// CourseInput captures caller provided course fields.
type CourseInput struct {
	Program     string
	Name        string
	Code        string
	Year        int
	Term        int
	WeeklyHours int
}

// CreateCourseParams wraps the data required to create a course.
type CreateCourseParams struct {
	Principal Principal
	Input     CourseInput
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

// CreateAssignmentParams wraps the data required to assign a professor to a course.
type CreateAssignmentParams struct {
	Principal   Principal
	ProfessorID string
	CourseID    string
}

// RemoveAssignmentParams wraps the data required to withdraw an assignment.
type RemoveAssignmentParams struct {
	Principal   Principal
	ProfessorID string
	CourseID    string
}
