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

type schedulingService interface {
	Schedule(ctx context.Context, params application.ScheduleSessionParams) (application.Session, error)
	Activate(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error)
	Finalize(ctx context.Context, params application.FinalizeSessionParams) (application.Session, error)
	Subscribe(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error)
	Unsubscribe(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error)
	GetSession(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error)
	ListSessions(ctx context.Context, params application.ListSessionsParams) ([]application.Session, error)
}

type SessionHandler struct {
	service   schedulingService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service schedulingService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode schedule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create",
		"principal_id", principal.UserID,
		"room_id", req.RoomID,
	)

	session, err := h.service.Schedule(r.Context(), application.ScheduleSessionParams{
		Principal: principal,
		Input: application.SessionInput{
			RoomID:      req.RoomID,
			CourseID:    req.CourseID,
			ProfessorID: req.ProfessorID,
			Program:     req.Program,
			Date:        req.Date,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Kind:        req.Kind,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "scheduling failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", session.ID).InfoContext(r.Context(), "session scheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	session, err := h.service.GetSession(r.Context(), principal, sessionID)
	if err != nil {
		h.log(r.Context(), "Get", "session_id", sessionID).ErrorContext(r.Context(), "session read failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	sessions, err := h.service.ListSessions(r.Context(), application.ListSessionsParams{
		Principal:   principal,
		RoomID:      strings.TrimSpace(query.Get("id_aula")),
		ProfessorID: strings.TrimSpace(query.Get("id_profesor")),
		Program:     strings.TrimSpace(query.Get("carrera")),
		CourseID:    strings.TrimSpace(query.Get("id_materia")),
		Date:        strings.TrimSpace(query.Get("fecha")),
		Statuses:    query["estado"],
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "session list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(sessions)).InfoContext(r.Context(), "sessions listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func (h *SessionHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "Activate", func(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error) {
		return h.service.Activate(ctx, principal, sessionID)
	})
}

func (h *SessionHandler) Finish(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "Finish", func(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error) {
		return h.service.Finalize(ctx, application.FinalizeSessionParams{
			Principal: principal,
			SessionID: sessionID,
			Outcome:   application.OutcomeFinish,
		})
	})
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	// The cancellation reason is optional; an empty body is accepted.
	var req cancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	logger := h.log(r.Context(), "Cancel", "principal_id", principal.UserID, "session_id", sessionID)
	session, err := h.service.Finalize(r.Context(), application.FinalizeSessionParams{
		Principal: principal,
		SessionID: sessionID,
		Outcome:   application.OutcomeCancel,
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "Subscribe", func(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error) {
		return h.service.Subscribe(ctx, principal, sessionID)
	})
}

func (h *SessionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "Unsubscribe", func(ctx context.Context, principal application.Principal, sessionID string) (application.Session, error) {
		return h.service.Unsubscribe(ctx, principal, sessionID)
	})
}

func (h *SessionHandler) lifecycle(w http.ResponseWriter, r *http.Request, operation string, fn func(context.Context, application.Principal, string) (application.Session, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.UserID, "session_id", sessionID)

	session, err := fn(r.Context(), principal, sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "session operation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session operation completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

type scheduleRequest struct {
	RoomID      string `json:"id_aula"`
	CourseID    string `json:"id_materia"`
	ProfessorID string `json:"id_profesor"`
	Program     string `json:"carrera"`
	Date        string `json:"fecha"`
	StartTime   string `json:"hora_inicio"`
	EndTime     string `json:"hora_fin"`
	Kind        string `json:"tipo"`
}

type cancelRequest struct {
	Reason string `json:"motivo"`
}

type sessionResponse struct {
	Session sessionDTO `json:"cronograma"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"cronogramas"`
}

type sessionDTO struct {
	ID              string `json:"id"`
	RoomID          string `json:"id_aula"`
	CourseID        string `json:"id_materia"`
	ProfessorID     string `json:"id_profesor"`
	Program         string `json:"carrera"`
	Date            string `json:"fecha"`
	StartTime       string `json:"hora_inicio"`
	EndTime         string `json:"hora_fin"`
	DurationMinutes int    `json:"duracion_minutos"`
	Weekday         int    `json:"dia_semana"`
	Kind            string `json:"tipo"`
	Status          string `json:"estado"`
	Enrollment      int    `json:"inscriptos"`
	ReleasedAt      string `json:"fecha_liberacion,omitempty"`
	CreatedAt       string `json:"fecha_creacion"`
	UpdatedAt       string `json:"fecha_actualizacion"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := sessionDTO{
		ID:              session.ID,
		RoomID:          session.RoomID,
		CourseID:        session.CourseID,
		ProfessorID:     session.ProfessorID,
		Program:         session.Program,
		Date:            session.Date,
		StartTime:       session.StartTime,
		EndTime:         session.EndTime,
		DurationMinutes: session.DurationMinutes,
		Weekday:         session.Weekday,
		Kind:            session.Kind,
		Status:          session.Status,
		Enrollment:      session.Enrollment,
		CreatedAt:       session.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       session.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if session.ReleasedAt != nil {
		dto.ReleasedAt = session.ReleasedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toSessionDTOs(sessions []application.Session) []sessionDTO {
	if len(sessions) == 0 {
		return nil
	}
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}
