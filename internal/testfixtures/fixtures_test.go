package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/smartcampus/bedelia/internal/persistence"
)

func TestRoomFixturesAvoidLocationCollisions(t *testing.T) {
	first := NewRoomFixture()
	second := NewRoomFixture()

	if first.Number == second.Number && first.Floor == second.Floor {
		t.Fatalf("fixtures collided on location %d/%d", first.Number, first.Floor)
	}
	if first.Status != persistence.RoomAvailable {
		t.Fatalf("default status = %q, want disponible", first.Status)
	}
}

func TestSessionFixtureSlotOverrideRecomputesDerivedFields(t *testing.T) {
	// 2026-09-09 is a Wednesday.
	session := NewSessionFixture(WithSessionSlot("2026-09-09", "08:30", "10:15"))

	if session.Weekday != 2 {
		t.Fatalf("weekday = %d, want 2", session.Weekday)
	}
	if session.DurationMinutes != 105 {
		t.Fatalf("duration = %d, want 105", session.DurationMinutes)
	}
}

func TestSQLiteHarnessRoundTrip(t *testing.T) {
	harness := NewSQLiteHarness(t)
	ctx := context.Background()

	room := NewRoomFixture()
	if err := harness.Rooms.CreateRoom(ctx, room.Persistence()); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	course := NewCourseFixture()
	if err := harness.Courses.CreateCourse(ctx, course.Persistence()); err != nil {
		t.Fatalf("CreateCourse failed: %v", err)
	}

	assignment := NewAssignmentFixture(WithAssignmentCourse(course.ID, course.Program))
	if err := harness.Assignments.CreateAssignment(ctx, assignment.Persistence()); err != nil {
		t.Fatalf("CreateAssignment failed: %v", err)
	}

	eligible, err := harness.Assignments.HasActiveAssignment(ctx, assignment.ProfessorID, course.Program)
	if err != nil {
		t.Fatalf("HasActiveAssignment failed: %v", err)
	}
	if !eligible {
		t.Fatal("expected the assigned professor to be eligible")
	}

	session := NewSessionFixture(
		WithSessionRoom(room.ID),
		WithSessionCourse(course.ID, course.Program),
		WithSessionProfessor(assignment.ProfessorID),
	)
	if err := harness.Sessions.CreateSession(ctx, session.Persistence()); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := harness.Rooms.Reserve(ctx, room.ID, session.ID); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	stored, err := harness.Rooms.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if stored.Status != persistence.RoomOccupied {
		t.Fatalf("room status = %q, want ocupada", stored.Status)
	}
	if stored.CurrentSessionID == nil || *stored.CurrentSessionID != session.ID {
		t.Fatalf("current session = %v, want %q", stored.CurrentSessionID, session.ID)
	}

	duplicate := NewSessionFixture(
		WithSessionRoom(room.ID),
		WithSessionCourse(course.ID, course.Program),
		WithSessionSlot(session.Date, session.StartTime, session.EndTime),
	)
	err = harness.Sessions.CreateSession(ctx, duplicate.Persistence())
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a double booking, got %v", err)
	}
}
