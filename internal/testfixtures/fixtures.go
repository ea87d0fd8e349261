package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/smartcampus/bedelia/internal/application"
	"github.com/smartcampus/bedelia/internal/persistence"
)

var (
	roomCounter       uint64
	sessionCounter    uint64
	courseCounter     uint64
	assignmentCounter uint64
)

var referenceTime = time.Date(2026, time.September, 7, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// September 7th 2026 is a Monday, so derived weekday fields start at zero.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic classroom record that can be
// materialised for application or persistence tests.
type RoomFixture struct {
	ID               string
	Number           int
	Floor            int
	Capacity         int
	Status           persistence.RoomStatus
	CurrentSessionID *string
	Description      *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic disponible room with optional
// overrides. Numbers and floors are derived from the sequence so two fixtures
// never collide on the (number, floor) unique key.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Number:    100 + int(idx),
		Floor:     int(idx % 5),
		Capacity:  30,
		Status:    persistence.RoomAvailable,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomLocation overrides the room number and floor.
func WithRoomLocation(number, floor int) RoomOption {
	return func(f *RoomFixture) {
		f.Number = number
		f.Floor = floor
	}
}

// WithRoomCapacity overrides the room capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomStatus overrides the room status. Occupied rooms should also carry
// a session via WithRoomSession.
func WithRoomStatus(status persistence.RoomStatus) RoomOption {
	return func(f *RoomFixture) {
		f.Status = status
	}
}

// WithRoomSession marks the room as ocupada by the given session.
func WithRoomSession(sessionID string) RoomOption {
	return func(f *RoomFixture) {
		f.Status = persistence.RoomOccupied
		f.CurrentSessionID = &sessionID
	}
}

// WithRoomDescription sets the optional description.
func WithRoomDescription(description string) RoomOption {
	return func(f *RoomFixture) {
		f.Description = &description
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:               f.ID,
		Number:           f.Number,
		Floor:            f.Floor,
		Capacity:         f.Capacity,
		Status:           f.Status,
		CurrentSessionID: f.CurrentSessionID,
		Description:      f.Description,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:               f.ID,
		Number:           f.Number,
		Floor:            f.Floor,
		Capacity:         f.Capacity,
		Status:           string(f.Status),
		CurrentSessionID: f.CurrentSessionID,
		Description:      f.Description,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// --------------------------- Session fixtures ----------------------------

// SessionFixture represents a deterministic ledger row.
type SessionFixture struct {
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
	Kind            persistence.SessionKind
	Status          persistence.SessionStatus
	Enrollment      int
	ReleasedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic programada session with optional
// overrides. Each fixture lands on a distinct date so two fixtures never
// collide on the (room, date, start time) unique key.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	date := referenceTime.AddDate(0, 0, int(idx))
	fixture := SessionFixture{
		ID:              fmt.Sprintf("session-%03d", idx),
		RoomID:          fmt.Sprintf("room-%03d", idx),
		CourseID:        fmt.Sprintf("course-%03d", idx),
		ProfessorID:     fmt.Sprintf("prof-%03d", idx),
		Program:         "informatica",
		Date:            date.Format("2006-01-02"),
		StartTime:       "10:00",
		EndTime:         "12:00",
		DurationMinutes: 120,
		Weekday:         (int(date.Weekday()) + 6) % 7,
		Kind:            persistence.KindTheory,
		Status:          persistence.SessionScheduled,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionRoom overrides the room reference.
func WithSessionRoom(roomID string) SessionOption {
	return func(f *SessionFixture) {
		f.RoomID = roomID
	}
}

// WithSessionCourse overrides the course and program references.
func WithSessionCourse(courseID, program string) SessionOption {
	return func(f *SessionFixture) {
		f.CourseID = courseID
		f.Program = program
	}
}

// WithSessionProfessor overrides the professor reference.
func WithSessionProfessor(professorID string) SessionOption {
	return func(f *SessionFixture) {
		f.ProfessorID = professorID
	}
}

// WithSessionSlot overrides the date and time window, recomputing the
// denormalized duration and weekday fields.
func WithSessionSlot(date, start, end string) SessionOption {
	return func(f *SessionFixture) {
		f.Date = date
		f.StartTime = start
		f.EndTime = end
		if day, err := time.Parse("2006-01-02", date); err == nil {
			f.Weekday = (int(day.Weekday()) + 6) % 7
		}
		startAt, startErr := time.Parse("15:04", start)
		endAt, endErr := time.Parse("15:04", end)
		if startErr == nil && endErr == nil {
			f.DurationMinutes = int(endAt.Sub(startAt).Minutes())
		}
	}
}

// WithSessionKind overrides the class format.
func WithSessionKind(kind persistence.SessionKind) SessionOption {
	return func(f *SessionFixture) {
		f.Kind = kind
	}
}

// WithSessionStatus overrides the lifecycle status.
func WithSessionStatus(status persistence.SessionStatus) SessionOption {
	return func(f *SessionFixture) {
		f.Status = status
	}
}

// WithSessionEnrollment overrides the enrolled student count.
func WithSessionEnrollment(count int) SessionOption {
	return func(f *SessionFixture) {
		f.Enrollment = count
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:              f.ID,
		RoomID:          f.RoomID,
		CourseID:        f.CourseID,
		ProfessorID:     f.ProfessorID,
		Program:         f.Program,
		Date:            f.Date,
		StartTime:       f.StartTime,
		EndTime:         f.EndTime,
		DurationMinutes: f.DurationMinutes,
		Weekday:         f.Weekday,
		Kind:            f.Kind,
		Status:          f.Status,
		Enrollment:      f.Enrollment,
		ReleasedAt:      f.ReleasedAt,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:              f.ID,
		RoomID:          f.RoomID,
		CourseID:        f.CourseID,
		ProfessorID:     f.ProfessorID,
		Program:         f.Program,
		Date:            f.Date,
		StartTime:       f.StartTime,
		EndTime:         f.EndTime,
		DurationMinutes: f.DurationMinutes,
		Weekday:         f.Weekday,
		Kind:            string(f.Kind),
		Status:          string(f.Status),
		Enrollment:      f.Enrollment,
		ReleasedAt:      f.ReleasedAt,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Input returns the caller supplied portion of the fixture for scheduling
// through the application service.
func (f SessionFixture) Input() application.SessionInput {
	return application.SessionInput{
		RoomID:      f.RoomID,
		CourseID:    f.CourseID,
		ProfessorID: f.ProfessorID,
		Program:     f.Program,
		Date:        f.Date,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		Kind:        string(f.Kind),
	}
}

// ---------------------------- Course fixtures ----------------------------

// CourseFixture represents a deterministic catalog entry.
type CourseFixture struct {
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

// CourseOption configures the generated course fixture.
type CourseOption func(*CourseFixture)

// NewCourseFixture returns a deterministic active course with optional
// overrides. Codes are unique per fixture.
func NewCourseFixture(opts ...CourseOption) CourseFixture {
	idx := atomic.AddUint64(&courseCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := CourseFixture{
		ID:          fmt.Sprintf("course-%03d", idx),
		Program:     "informatica",
		Name:        fmt.Sprintf("Materia %03d", idx),
		Code:        fmt.Sprintf("MAT-%03d", idx),
		Year:        1,
		Term:        1,
		WeeklyHours: 4,
		Active:      true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithCourseID overrides the generated course ID.
func WithCourseID(id string) CourseOption {
	return func(f *CourseFixture) {
		f.ID = id
	}
}

// WithCourseProgram overrides the degree program.
func WithCourseProgram(program string) CourseOption {
	return func(f *CourseFixture) {
		f.Program = program
	}
}

// WithCourseCode overrides the course code.
func WithCourseCode(code string) CourseOption {
	return func(f *CourseFixture) {
		f.Code = code
	}
}

// WithCourseActive sets the active flag.
func WithCourseActive(active bool) CourseOption {
	return func(f *CourseFixture) {
		f.Active = active
	}
}

// Persistence returns the fixture as a persistence.Course value.
func (f CourseFixture) Persistence() persistence.Course {
	return persistence.Course{
		ID:          f.ID,
		Program:     f.Program,
		Name:        f.Name,
		Code:        f.Code,
		Year:        f.Year,
		Term:        f.Term,
		WeeklyHours: f.WeeklyHours,
		Active:      f.Active,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Application returns the fixture as an application.Course value.
func (f CourseFixture) Application() application.Course {
	return application.Course{
		ID:          f.ID,
		Program:     f.Program,
		Name:        f.Name,
		Code:        f.Code,
		Year:        f.Year,
		Term:        f.Term,
		WeeklyHours: f.WeeklyHours,
		Active:      f.Active,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// -------------------------- Assignment fixtures --------------------------

// AssignmentFixture represents a deterministic teaching assignment.
type AssignmentFixture struct {
	ID          string
	ProfessorID string
	CourseID    string
	Program     string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AssignmentOption configures the generated assignment fixture.
type AssignmentOption func(*AssignmentFixture)

// NewAssignmentFixture returns a deterministic active assignment with optional
// overrides.
func NewAssignmentFixture(opts ...AssignmentOption) AssignmentFixture {
	idx := atomic.AddUint64(&assignmentCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := AssignmentFixture{
		ID:          fmt.Sprintf("assignment-%03d", idx),
		ProfessorID: fmt.Sprintf("prof-%03d", idx),
		CourseID:    fmt.Sprintf("course-%03d", idx),
		Program:     "informatica",
		Active:      true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAssignmentProfessor overrides the professor reference.
func WithAssignmentProfessor(professorID string) AssignmentOption {
	return func(f *AssignmentFixture) {
		f.ProfessorID = professorID
	}
}

// WithAssignmentCourse overrides the course and program references.
func WithAssignmentCourse(courseID, program string) AssignmentOption {
	return func(f *AssignmentFixture) {
		f.CourseID = courseID
		f.Program = program
	}
}

// WithAssignmentActive sets the active flag.
func WithAssignmentActive(active bool) AssignmentOption {
	return func(f *AssignmentFixture) {
		f.Active = active
	}
}

// Persistence returns the fixture as a persistence.TeachingAssignment value.
func (f AssignmentFixture) Persistence() persistence.TeachingAssignment {
	return persistence.TeachingAssignment{
		ID:          f.ID,
		ProfessorID: f.ProfessorID,
		CourseID:    f.CourseID,
		Program:     f.Program,
		Active:      f.Active,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
