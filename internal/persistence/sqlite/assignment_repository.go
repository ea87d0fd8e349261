package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/smartcampus/bedelia/internal/persistence"
)

// AssignmentRepository implements persistence.AssignmentRepository using SQLite
type AssignmentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAssignmentRepository creates a new SQLite assignment repository
func NewAssignmentRepository(pool *ConnectionPool) *AssignmentRepository {
	return &AssignmentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateAssignment inserts a new teaching assignment. A professor can hold at
// most one assignment per course; a second one fails with ErrDuplicate.
func (r *AssignmentRepository) CreateAssignment(ctx context.Context, assignment persistence.TeachingAssignment) error {
	if assignment.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	if assignment.UpdatedAt.IsZero() {
		assignment.UpdatedAt = assignment.CreatedAt
	}

	query := `
		INSERT INTO teaching_assignments (id, professor_id, course_id, program, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		assignment.ID,
		assignment.ProfessorID,
		assignment.CourseID,
		assignment.Program,
		boolToInt(assignment.Active),
		assignment.CreatedAt.Format(time.RFC3339),
		assignment.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// DeactivateAssignment withdraws a professor from a course without erasing
// the record.
func (r *AssignmentRepository) DeactivateAssignment(ctx context.Context, professorID, courseID string) error {
	if professorID == "" || courseID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE teaching_assignments
		SET active = 0, updated_at = ?
		WHERE professor_id = ? AND course_id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		time.Now().UTC().Format(time.RFC3339),
		professorID,
		courseID,
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

// ListAssignments returns all assignments for a professor, active or not.
func (r *AssignmentRepository) ListAssignments(ctx context.Context, professorID string) ([]persistence.TeachingAssignment, error) {
	query := `
		SELECT id, professor_id, course_id, program, active, created_at, updated_at
		FROM teaching_assignments
		WHERE professor_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, professorID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var assignments []persistence.TeachingAssignment

	for rows.Next() {
		var assignment persistence.TeachingAssignment
		var active int
		var createdAtStr, updatedAtStr string

		err := rows.Scan(
			&assignment.ID,
			&assignment.ProfessorID,
			&assignment.CourseID,
			&assignment.Program,
			&active,
			&createdAtStr,
			&updatedAtStr,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}

		assignment.Active = active != 0

		if assignment.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if assignment.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return assignments, nil
}

// HasActiveAssignment answers the eligibility question for the scheduler. No
// row means not eligible, never an error.
func (r *AssignmentRepository) HasActiveAssignment(ctx context.Context, professorID, program string) (bool, error) {
	if professorID == "" || program == "" {
		return false, nil
	}

	query := `
		SELECT COUNT(*)
		FROM teaching_assignments
		WHERE professor_id = ? AND program = ? AND active = 1
	`

	var count int
	if err := r.helper.QueryRow(ctx, query, professorID, program).Scan(&count); err != nil {
		return false, r.mapper.MapError(err)
	}

	return count > 0, nil
}
