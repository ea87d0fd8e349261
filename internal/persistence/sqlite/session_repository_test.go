package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartcampus/bedelia/internal/persistence"
)

func seedCourse(t *testing.T, repo *CourseRepository, id, program, code string) persistence.Course {
	t.Helper()

	course := persistence.Course{
		ID:          id,
		Program:     program,
		Name:        "Algoritmos y Estructuras de Datos",
		Code:        code,
		Year:        2,
		Term:        1,
		WeeklyHours: 6,
		Active:      true,
	}
	if err := repo.CreateCourse(context.Background(), course); err != nil {
		t.Fatalf("failed to seed course %s: %v", id, err)
	}
	return course
}

func testSession(id, roomID, courseID string) persistence.Session {
	return persistence.Session{
		ID:              id,
		RoomID:          roomID,
		CourseID:        courseID,
		ProfessorID:     "prof-1",
		Program:         "Ingenieria en Sistemas",
		Date:            "2026-09-07",
		StartTime:       "10:00",
		EndTime:         "12:00",
		DurationMinutes: 120,
		Weekday:         0,
		Kind:            persistence.KindTheory,
		Status:          persistence.SessionScheduled,
	}
}

func seedLedgerFixtures(t *testing.T, pool *ConnectionPool) (*SessionRepository, *RoomRepository, *CourseRepository) {
	t.Helper()

	rooms := NewRoomRepository(pool)
	courses := NewCourseRepository(pool)
	sessions := NewSessionRepository(pool)

	seedRoom(t, rooms, "room-1", 101, 1, 3)
	seedCourse(t, courses, "course-1", "Ingenieria en Sistemas", "AED-201")

	return sessions, rooms, courses
}

func TestSessionRepositoryCreateAndGet(t *testing.T) {
	pool := newTestPool(t)
	sessions, _, _ := seedLedgerFixtures(t, pool)
	ctx := context.Background()

	if err := sessions.CreateSession(ctx, testSession("session-1", "room-1", "course-1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := sessions.GetSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}

	if got.RoomID != "room-1" || got.CourseID != "course-1" || got.ProfessorID != "prof-1" {
		t.Errorf("unexpected references: %+v", got)
	}
	if got.Date != "2026-09-07" || got.StartTime != "10:00" || got.EndTime != "12:00" {
		t.Errorf("unexpected slot: %+v", got)
	}
	if got.DurationMinutes != 120 || got.Weekday != 0 {
		t.Errorf("derived fields not preserved: duration=%d weekday=%d", got.DurationMinutes, got.Weekday)
	}
	if got.Status != persistence.SessionScheduled {
		t.Errorf("status = %q, want %q", got.Status, persistence.SessionScheduled)
	}
	if got.Enrollment != 0 {
		t.Errorf("enrollment = %d, want 0", got.Enrollment)
	}
	if got.ReleasedAt != nil {
		t.Errorf("released_at set on new session: %v", got.ReleasedAt)
	}
}

func TestSessionRepositoryDuplicateSlot(t *testing.T) {
	pool := newTestPool(t)
	sessions, _, _ := seedLedgerFixtures(t, pool)
	ctx := context.Background()

	if err := sessions.CreateSession(ctx, testSession("session-1", "room-1", "course-1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	second := testSession("session-2", "room-1", "course-1")
	if err := sessions.CreateSession(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("same room/date/start = %v, want ErrDuplicate", err)
	}

	// A different start time in the same room is a different slot.
	third := testSession("session-3", "room-1", "course-1")
	third.StartTime = "14:00"
	third.EndTime = "16:00"
	if err := sessions.CreateSession(ctx, third); err != nil {
		t.Fatalf("distinct slot rejected: %v", err)
	}
}

func TestSessionRepositoryForeignKeys(t *testing.T) {
	pool := newTestPool(t)
	sessions, _, _ := seedLedgerFixtures(t, pool)
	ctx := context.Background()

	orphan := testSession("session-1", "ghost-room", "course-1")
	if err := sessions.CreateSession(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("unknown room = %v, want ErrForeignKeyViolation", err)
	}
}

func TestSessionRepositoryTransition(t *testing.T) {
	pool := newTestPool(t)
	sessions, _, _ := seedLedgerFixtures(t, pool)
	ctx := context.Background()

	if err := sessions.CreateSession(ctx, testSession("session-1", "room-1", "course-1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := sessions.TransitionSession(ctx, "session-1", persistence.SessionScheduled, persistence.SessionActive, nil); err != nil {
		t.Fatalf("scheduled->active failed: %v", err)
	}

	t.Run("stale expectation", func(t *testing.T) {
		err := sessions.TransitionSession(ctx, "session-1", persistence.SessionScheduled, persistence.SessionCancelled, nil)
		if !errors.Is(err, persistence.ErrStateMismatch) {
			t.Fatalf("stale transition = %v, want ErrStateMismatch", err)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		err := sessions.TransitionSession(ctx, "ghost", persistence.SessionScheduled, persistence.SessionActive, nil)
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("missing session = %v, want ErrNotFound", err)
		}
	})

	t.Run("finish records release time", func(t *testing.T) {
		releasedAt := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)
		err := sessions.TransitionSession(ctx, "session-1", persistence.SessionActive, persistence.SessionFinished, &releasedAt)
		if err != nil {
			t.Fatalf("active->finished failed: %v", err)
		}

		got, err := sessions.GetSession(ctx, "session-1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.Status != persistence.SessionFinished {
			t.Errorf("status = %q, want %q", got.Status, persistence.SessionFinished)
		}
		if got.ReleasedAt == nil || !got.ReleasedAt.Equal(releasedAt) {
			t.Errorf("released_at = %v, want %v", got.ReleasedAt, releasedAt)
		}
	})
}

func TestSessionRepositoryEnrollment(t *testing.T) {
	pool := newTestPool(t)
	sessions, _, _ := seedLedgerFixtures(t, pool)
	ctx := context.Background()

	if err := sessions.CreateSession(ctx, testSession("session-1", "room-1", "course-1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	const capacity = 3

	for i := 0; i < capacity; i++ {
		if err := sessions.IncrementEnrollment(ctx, "session-1", capacity); err != nil {
			t.Fatalf("increment %d failed: %v", i+1, err)
		}
	}

	if err := sessions.IncrementEnrollment(ctx, "session-1", capacity); !errors.Is(err, persistence.ErrStateMismatch) {
		t.Fatalf("increment beyond capacity = %v, want ErrStateMismatch", err)
	}

	got, err := sessions.GetSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Enrollment != capacity {
		t.Fatalf("enrollment = %d, want %d", got.Enrollment, capacity)
	}

	for i := 0; i < capacity; i++ {
		if err := sessions.DecrementEnrollment(ctx, "session-1"); err != nil {
			t.Fatalf("decrement %d failed: %v", i+1, err)
		}
	}

	if err := sessions.DecrementEnrollment(ctx, "session-1"); !errors.Is(err, persistence.ErrStateMismatch) {
		t.Fatalf("decrement below zero = %v, want ErrStateMismatch", err)
	}
}

func TestSessionRepositoryDelete(t *testing.T) {
	pool := newTestPool(t)
	sessions, _, _ := seedLedgerFixtures(t, pool)
	ctx := context.Background()

	if err := sessions.CreateSession(ctx, testSession("session-1", "room-1", "course-1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := sessions.DeleteSession(ctx, "session-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	if _, err := sessions.GetSession(ctx, "session-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("GetSession after delete = %v, want ErrNotFound", err)
	}

	if err := sessions.DeleteSession(ctx, "session-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}

	// The slot is reusable once the row is gone.
	if err := sessions.CreateSession(ctx, testSession("session-2", "room-1", "course-1")); err != nil {
		t.Fatalf("recreate after delete failed: %v", err)
	}
}

func TestSessionRepositoryListFilter(t *testing.T) {
	pool := newTestPool(t)
	sessions, rooms, _ := seedLedgerFixtures(t, pool)
	ctx := context.Background()

	seedRoom(t, rooms, "room-2", 102, 1, 30)

	first := testSession("session-1", "room-1", "course-1")
	second := testSession("session-2", "room-2", "course-1")
	second.ProfessorID = "prof-2"
	second.StartTime = "08:00"
	second.EndTime = "09:30"
	third := testSession("session-3", "room-1", "course-1")
	third.Date = "2026-09-08"
	third.Weekday = 1

	for _, s := range []persistence.Session{first, second, third} {
		if err := sessions.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession(%s) failed: %v", s.ID, err)
		}
	}

	if err := sessions.TransitionSession(ctx, "session-3", persistence.SessionScheduled, persistence.SessionCancelled, nil); err != nil {
		t.Fatalf("cancel session-3 failed: %v", err)
	}

	t.Run("by professor", func(t *testing.T) {
		got, err := sessions.ListSessions(ctx, persistence.SessionFilter{ProfessorID: "prof-2"})
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "session-2" {
			t.Fatalf("unexpected result: %+v", got)
		}
	})

	t.Run("by room and date", func(t *testing.T) {
		got, err := sessions.ListSessions(ctx, persistence.SessionFilter{RoomID: "room-1", Date: "2026-09-07"})
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "session-1" {
			t.Fatalf("unexpected result: %+v", got)
		}
	})

	t.Run("by status", func(t *testing.T) {
		got, err := sessions.ListSessions(ctx, persistence.SessionFilter{
			Statuses: []persistence.SessionStatus{persistence.SessionScheduled},
		})
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("scheduled sessions = %d, want 2", len(got))
		}
	})

	t.Run("ordering", func(t *testing.T) {
		got, err := sessions.ListSessions(ctx, persistence.SessionFilter{})
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("sessions = %d, want 3", len(got))
		}
		if got[0].ID != "session-2" || got[1].ID != "session-1" || got[2].ID != "session-3" {
			t.Fatalf("unexpected order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
		}
	})
}
