package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smartcampus/bedelia/internal/persistence"
)

// CourseRepository implements persistence.CourseRepository using SQLite
type CourseRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCourseRepository creates a new SQLite course repository
func NewCourseRepository(pool *ConnectionPool) *CourseRepository {
	return &CourseRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateCourse inserts a new course. The code is stored upper-cased and a
// second course with the same code fails with ErrDuplicate.
func (r *CourseRepository) CreateCourse(ctx context.Context, course persistence.Course) error {
	if course.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	if course.UpdatedAt.IsZero() {
		course.UpdatedAt = course.CreatedAt
	}

	query := `
		INSERT INTO courses (id, program, name, code, year, term, weekly_hours, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		course.ID,
		course.Program,
		course.Name,
		strings.ToUpper(course.Code),
		course.Year,
		course.Term,
		course.WeeklyHours,
		boolToInt(course.Active),
		course.CreatedAt.Format(time.RFC3339),
		course.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// UpdateCourse updates an existing course in the database
func (r *CourseRepository) UpdateCourse(ctx context.Context, course persistence.Course) error {
	if course.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE courses
		SET program = ?, name = ?, code = ?, year = ?, term = ?, weekly_hours = ?, active = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		course.Program,
		course.Name,
		strings.ToUpper(course.Code),
		course.Year,
		course.Term,
		course.WeeklyHours,
		boolToInt(course.Active),
		time.Now().UTC().Format(time.RFC3339),
		course.ID,
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

// GetCourse retrieves a course by ID from the database
func (r *CourseRepository) GetCourse(ctx context.Context, id string) (persistence.Course, error) {
	if id == "" {
		return persistence.Course{}, persistence.ErrNotFound
	}

	query := courseSelect + ` WHERE id = ?`

	course, err := scanCourse(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Course{}, r.mapper.MapError(err)
	}

	return course, nil
}

// GetCourseByCode retrieves a course by its unique code.
func (r *CourseRepository) GetCourseByCode(ctx context.Context, code string) (persistence.Course, error) {
	if code == "" {
		return persistence.Course{}, persistence.ErrNotFound
	}

	query := courseSelect + ` WHERE code = ?`

	course, err := scanCourse(r.helper.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(code))))
	if err != nil {
		return persistence.Course{}, r.mapper.MapError(err)
	}

	return course, nil
}

// ListCourses returns courses for a program ordered by year and term. An
// empty program lists every course.
func (r *CourseRepository) ListCourses(ctx context.Context, program string, onlyActive bool) ([]persistence.Course, error) {
	var conditions []string
	var args []interface{}

	if program != "" {
		conditions = append(conditions, "program = ?")
		args = append(args, program)
	}
	if onlyActive {
		conditions = append(conditions, "active = 1")
	}

	query := courseSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY year ASC, term ASC, name ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var courses []persistence.Course

	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return courses, nil
}

// DeactivateCourse soft-deletes a course. Historical sessions keep their
// reference, so rows are never removed.
func (r *CourseRepository) DeactivateCourse(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	query := `UPDATE courses SET active = 0, updated_at = ? WHERE id = ?`

	result, err := r.helper.Exec(ctx, query, time.Now().UTC().Format(time.RFC3339), id)
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

const courseSelect = `
	SELECT id, program, name, code, year, term, weekly_hours, active, created_at, updated_at
	FROM courses
`

func scanCourse(row rowScanner) (persistence.Course, error) {
	var course persistence.Course
	var active int
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&course.ID,
		&course.Program,
		&course.Name,
		&course.Code,
		&course.Year,
		&course.Term,
		&course.WeeklyHours,
		&active,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Course{}, err
	}

	course.Active = active != 0

	if course.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Course{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if course.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Course{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return course, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
