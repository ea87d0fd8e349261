package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order, one transaction each. The version table
// keeps restarts idempotent; statements must never be edited once shipped,
// only appended.
var migrations = []string{
	`
	CREATE TABLE rooms (
		id TEXT PRIMARY KEY,
		number INTEGER NOT NULL,
		floor INTEGER NOT NULL,
		capacity INTEGER NOT NULL CHECK (capacity > 0),
		status TEXT NOT NULL DEFAULT 'disponible'
			CHECK (status IN ('disponible', 'ocupada', 'deshabilitada')),
		current_session_id TEXT,
		description TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX idx_rooms_number_floor ON rooms (number, floor);

	CREATE TABLE courses (
		id TEXT PRIMARY KEY,
		program TEXT NOT NULL,
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		year INTEGER NOT NULL CHECK (year BETWEEN 1 AND 5),
		term INTEGER NOT NULL CHECK (term IN (1, 2)),
		weekly_hours INTEGER NOT NULL CHECK (weekly_hours > 0),
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX idx_courses_code ON courses (code);
	CREATE INDEX idx_courses_program_active ON courses (program, active);

	CREATE TABLE teaching_assignments (
		id TEXT PRIMARY KEY,
		professor_id TEXT NOT NULL,
		course_id TEXT NOT NULL REFERENCES courses (id),
		program TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX idx_assignments_professor_course
		ON teaching_assignments (professor_id, course_id);
	CREATE INDEX idx_assignments_professor_program
		ON teaching_assignments (professor_id, program, active);

	CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms (id),
		course_id TEXT NOT NULL REFERENCES courses (id),
		professor_id TEXT NOT NULL,
		program TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		weekday INTEGER NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('teorica', 'practica', 'laboratorio')),
		status TEXT NOT NULL DEFAULT 'programada'
			CHECK (status IN ('programada', 'activa', 'finalizada', 'cancelada')),
		enrollment INTEGER NOT NULL DEFAULT 0 CHECK (enrollment >= 0),
		released_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX idx_sessions_room_date_start
		ON sessions (room_id, date, start_time);
	CREATE INDEX idx_sessions_professor ON sessions (professor_id, date);
	CREATE INDEX idx_sessions_program_course ON sessions (program, course_id);
	`,
}

// Migrate brings the database schema up to the current version.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	_, err := cp.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	err = cp.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i, stmts := range migrations {
		version := i + 1
		if version <= current {
			continue
		}
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(stmts); err != nil {
				return fmt.Errorf("migration %d failed: %w", version, err)
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`,
				version,
			)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
