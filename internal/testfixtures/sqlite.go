package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/smartcampus/bedelia/internal/persistence"
	"github.com/smartcampus/bedelia/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Rooms       persistence.RoomRepository
	Sessions    persistence.SessionRepository
	Courses     persistence.CourseRepository
	Assignments persistence.AssignmentRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	pool, err := sqlite.NewConnectionPool("file:" + filepath.Join(tb.TempDir(), "bedelia.db"))
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Rooms:       sqlite.NewRoomRepository(pool),
		Sessions:    sqlite.NewSessionRepository(pool),
		Courses:     sqlite.NewCourseRepository(pool),
		Assignments: sqlite.NewAssignmentRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
