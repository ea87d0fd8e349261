package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smartcampus/bedelia/internal/persistence"
)

// CourseCatalog captures the course persistence operations needed by the service.
type CourseCatalog interface {
	CreateCourse(ctx context.Context, course Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	GetCourseByCode(ctx context.Context, code string) (Course, error)
	ListCourses(ctx context.Context, program string, onlyActive bool) ([]Course, error)
	DeactivateCourse(ctx context.Context, id string) error
}

// AssignmentBook captures the teaching assignment operations needed by the service.
type AssignmentBook interface {
	CreateAssignment(ctx context.Context, assignment TeachingAssignment) error
	DeactivateAssignment(ctx context.Context, professorID, courseID string) error
	ListAssignments(ctx context.Context, professorID string) ([]TeachingAssignment, error)
	HasActiveAssignment(ctx context.Context, professorID, program string) (bool, error)
}

// CourseService manages the course catalog and the professor assignments that
// drive scheduling eligibility.
type CourseService struct {
	courses     CourseCatalog
	assignments AssignmentBook
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// CourseServiceDeps wires the collaborators of a CourseService.
type CourseServiceDeps struct {
	Courses     CourseCatalog
	Assignments AssignmentBook
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewCourseService constructs a course service with the provided dependencies.
func NewCourseService(deps CourseServiceDeps) *CourseService {
	idGenerator := deps.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CourseService{
		courses:     deps.Courses,
		assignments: deps.Assignments,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *CourseService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CourseService", operation, attrs...)
}

// CreateCourse validates input and persists a new catalog entry for
// administrators. Codes are stored uppercased.
func (s *CourseService) CreateCourse(ctx context.Context, params CreateCourseParams) (course Course, err error) {
	if s == nil {
		err = fmt.Errorf("CourseService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateCourse",
		"principal_id", params.Principal.UserID,
		"code", params.Input.Code,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create course", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("course_id", course.ID).InfoContext(ctx, "course created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateCourseInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now().UTC()
	course = Course{
		ID:          s.idGenerator(),
		Program:     strings.TrimSpace(params.Input.Program),
		Name:        strings.TrimSpace(params.Input.Name),
		Code:        strings.ToUpper(strings.TrimSpace(params.Input.Code)),
		Year:        params.Input.Year,
		Term:        params.Input.Term,
		WeeklyHours: params.Input.WeeklyHours,
		Active:      true,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	if createErr := s.courses.CreateCourse(ctx, course); createErr != nil {
		err = mapCourseRepoError(createErr)
		course = Course{}
		return
	}

	return course, nil
}

// GetCourseByCode looks up a catalog entry by its code, case insensitively.
func (s *CourseService) GetCourseByCode(ctx context.Context, principal Principal, code string) (Course, error) {
	course, err := s.courses.GetCourseByCode(ctx, code)
	if err != nil {
		return Course{}, mapCourseRepoError(err)
	}
	return course, nil
}

// ListCourses returns catalog entries for any authenticated user, optionally
// narrowed to one program and to active entries only.
func (s *CourseService) ListCourses(ctx context.Context, principal Principal, program string, onlyActive bool) ([]Course, error) {
	courses, err := s.courses.ListCourses(ctx, strings.TrimSpace(program), onlyActive)
	if err != nil {
		return nil, mapCourseRepoError(err)
	}
	return courses, nil
}

// DeactivateCourse soft deletes a catalog entry for administrators. Existing
// sessions keep their reference; new assignments stop matching.
func (s *CourseService) DeactivateCourse(ctx context.Context, principal Principal, courseID string) error {
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "DeactivateCourse",
		"principal_id", principal.UserID,
		"course_id", courseID,
	)

	if err := s.courses.DeactivateCourse(ctx, courseID); err != nil {
		err = mapCourseRepoError(err)
		logger.ErrorContext(ctx, "failed to deactivate course", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "course deactivated")
	return nil
}

// AssignProfessor links a professor to an active course for administrators.
// The assignment carries the course's program, which is what eligibility
// checks match against.
func (s *CourseService) AssignProfessor(ctx context.Context, params CreateAssignmentParams) (assignment TeachingAssignment, err error) {
	logger := s.loggerWith(ctx, "AssignProfessor",
		"principal_id", params.Principal.UserID,
		"professor_id", params.ProfessorID,
		"course_id", params.CourseID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to assign professor", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("assignment_id", assignment.ID).InfoContext(ctx, "professor assigned")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	professorID := strings.TrimSpace(params.ProfessorID)
	if professorID == "" {
		vErr := &ValidationError{}
		vErr.add("id_profesor", "professor id is required")
		err = vErr
		return
	}

	var course Course
	course, err = s.courses.GetCourse(ctx, params.CourseID)
	if err != nil {
		err = mapCourseRepoError(err)
		return
	}
	if !course.Active {
		vErr := &ValidationError{}
		vErr.add("id_materia", "course is no longer active")
		err = vErr
		return
	}

	createdAt := s.now().UTC()
	assignment = TeachingAssignment{
		ID:          s.idGenerator(),
		ProfessorID: professorID,
		CourseID:    course.ID,
		Program:     course.Program,
		Active:      true,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	if createErr := s.assignments.CreateAssignment(ctx, assignment); createErr != nil {
		err = mapCourseRepoError(createErr)
		assignment = TeachingAssignment{}
		return
	}

	return assignment, nil
}

// WithdrawProfessor deactivates an assignment for administrators.
func (s *CourseService) WithdrawProfessor(ctx context.Context, params RemoveAssignmentParams) error {
	if !params.Principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "WithdrawProfessor",
		"principal_id", params.Principal.UserID,
		"professor_id", params.ProfessorID,
		"course_id", params.CourseID,
	)

	if err := s.assignments.DeactivateAssignment(ctx, params.ProfessorID, params.CourseID); err != nil {
		err = mapCourseRepoError(err)
		logger.ErrorContext(ctx, "failed to withdraw professor", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "professor withdrawn")
	return nil
}

// ListAssignments returns a professor's assignments for any authenticated user.
func (s *CourseService) ListAssignments(ctx context.Context, principal Principal, professorID string) ([]TeachingAssignment, error) {
	assignments, err := s.assignments.ListAssignments(ctx, professorID)
	if err != nil {
		return nil, mapCourseRepoError(err)
	}
	return assignments, nil
}

// IsEligible reports whether the professor holds an active assignment in the
// program. A repository failure is returned as is so callers fail closed.
func (s *CourseService) IsEligible(ctx context.Context, professorID, program string) (bool, error) {
	return s.assignments.HasActiveAssignment(ctx, professorID, program)
}

func validateCourseInput(input CourseInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Program) == "" {
		vErr.add("carrera", "program is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("nombre", "name is required")
	}
	if strings.TrimSpace(input.Code) == "" {
		vErr.add("codigo", "code is required")
	}
	if input.Year < 1 || input.Year > 5 {
		vErr.add("anio", "year must be between 1 and 5")
	}
	if input.Term != 1 && input.Term != 2 {
		vErr.add("cuatrimestre", "term must be 1 or 2")
	}
	if input.WeeklyHours <= 0 {
		vErr.add("horas_semanales", "weekly hours must be positive")
	}

	return vErr
}

func mapCourseRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	}
	return err
}
