package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/smartcampus/bedelia/internal/application"
)

type courseService interface {
	CreateCourse(ctx context.Context, params application.CreateCourseParams) (application.Course, error)
	ListCourses(ctx context.Context, principal application.Principal, program string, onlyActive bool) ([]application.Course, error)
	DeactivateCourse(ctx context.Context, principal application.Principal, courseID string) error
	AssignProfessor(ctx context.Context, params application.CreateAssignmentParams) (application.TeachingAssignment, error)
	WithdrawProfessor(ctx context.Context, params application.RemoveAssignmentParams) error
}

type CourseHandler struct {
	service   courseService
	responder responder
	logger    *slog.Logger
}

func NewCourseHandler(service courseService, logger *slog.Logger) *CourseHandler {
	base := defaultLogger(logger)
	return &CourseHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CourseHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CourseHandler", operation, attrs...)
}

func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode course request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "code", req.Code)

	course, err := h.service.CreateCourse(r.Context(), application.CreateCourseParams{
		Principal: principal,
		Input: application.CourseInput{
			Program:     req.Program,
			Name:        req.Name,
			Code:        req.Code,
			Year:        req.Year,
			Term:        req.Term,
			WeeklyHours: req.WeeklyHours,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "course creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("course_id", course.ID).InfoContext(r.Context(), "course created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, courseResponse{Course: toCourseDTO(course)})
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	program := strings.TrimSpace(query.Get("carrera"))
	onlyActive := query.Get("solo_activas") == "true"

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	courses, err := h.service.ListCourses(r.Context(), principal, program, onlyActive)
	if err != nil {
		logger.ErrorContext(r.Context(), "course list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(courses)).InfoContext(r.Context(), "courses listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCoursesResponse{Courses: toCourseDTOs(courses)})
}

func (h *CourseHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	courseID, ok := CourseIDFromContext(r.Context())
	if !ok || strings.TrimSpace(courseID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCourseID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Deactivate", "principal_id", principal.UserID, "course_id", courseID)
	if err := h.service.DeactivateCourse(r.Context(), principal, courseID); err != nil {
		logger.ErrorContext(r.Context(), "course deactivation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "course deactivated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *CourseHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Assign", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode assignment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Assign",
		"principal_id", principal.UserID,
		"professor_id", req.ProfessorID,
		"course_id", req.CourseID,
	)

	assignment, err := h.service.AssignProfessor(r.Context(), application.CreateAssignmentParams{
		Principal:   principal,
		ProfessorID: req.ProfessorID,
		CourseID:    req.CourseID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("assignment_id", assignment.ID).InfoContext(r.Context(), "professor assigned")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, assignmentResponse{Assignment: toAssignmentDTO(assignment)})
}

func (h *CourseHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Withdraw", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode withdrawal request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Withdraw",
		"principal_id", principal.UserID,
		"professor_id", req.ProfessorID,
		"course_id", req.CourseID,
	)

	if err := h.service.WithdrawProfessor(r.Context(), application.RemoveAssignmentParams{
		Principal:   principal,
		ProfessorID: req.ProfessorID,
		CourseID:    req.CourseID,
	}); err != nil {
		logger.ErrorContext(r.Context(), "withdrawal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "professor withdrawn")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type courseRequest struct {
	Program     string `json:"carrera"`
	Name        string `json:"nombre"`
	Code        string `json:"codigo"`
	Year        int    `json:"anio"`
	Term        int    `json:"cuatrimestre"`
	WeeklyHours int    `json:"horas_semanales"`
}

type courseResponse struct {
	Course courseDTO `json:"materia"`
}

type listCoursesResponse struct {
	Courses []courseDTO `json:"materias"`
}

type courseDTO struct {
	ID          string `json:"id"`
	Program     string `json:"carrera"`
	Name        string `json:"nombre"`
	Code        string `json:"codigo"`
	Year        int    `json:"anio"`
	Term        int    `json:"cuatrimestre"`
	WeeklyHours int    `json:"horas_semanales"`
	Active      bool   `json:"activa"`
	CreatedAt   string `json:"fecha_creacion"`
	UpdatedAt   string `json:"fecha_actualizacion"`
}

func toCourseDTO(course application.Course) courseDTO {
	return courseDTO{
		ID:          course.ID,
		Program:     course.Program,
		Name:        course.Name,
		Code:        course.Code,
		Year:        course.Year,
		Term:        course.Term,
		WeeklyHours: course.WeeklyHours,
		Active:      course.Active,
		CreatedAt:   course.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   course.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toCourseDTOs(courses []application.Course) []courseDTO {
	if len(courses) == 0 {
		return nil
	}
	out := make([]courseDTO, 0, len(courses))
	for _, course := range courses {
		out = append(out, toCourseDTO(course))
	}
	return out
}

type assignmentRequest struct {
	ProfessorID string `json:"id_profesor"`
	CourseID    string `json:"id_materia"`
}

type assignmentResponse struct {
	Assignment assignmentDTO `json:"asignacion"`
}

type assignmentDTO struct {
	ID          string `json:"id"`
	ProfessorID string `json:"id_profesor"`
	CourseID    string `json:"id_materia"`
	Program     string `json:"carrera"`
	Active      bool   `json:"activa"`
	CreatedAt   string `json:"fecha_creacion"`
}

func toAssignmentDTO(assignment application.TeachingAssignment) assignmentDTO {
	return assignmentDTO{
		ID:          assignment.ID,
		ProfessorID: assignment.ProfessorID,
		CourseID:    assignment.CourseID,
		Program:     assignment.Program,
		Active:      assignment.Active,
		CreatedAt:   assignment.CreatedAt.UTC().Format(time.RFC3339),
	}
}
