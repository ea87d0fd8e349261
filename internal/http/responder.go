package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/smartcampus/bedelia/internal/application"
	"github.com/smartcampus/bedelia/internal/rules"
)

var (
	errBadRequestBody  = errors.New("el cuerpo de la solicitud no es válido")
	errInvalidRoomID   = errors.New("el identificador de aula no es válido")
	errInvalidCourseID = errors.New("el identificador de materia no es válido")
	errInvalidID       = errors.New("el identificador de cronograma no es válido")
	errMissingToken    = errors.New("debe indicar un token de autenticación")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "no tiene permisos para realizar esta operación",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "el recurso solicitado no existe"})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "el recurso ya existe"})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_CONFLICT",
			Message:   "el aula ya tiene una clase asignada en ese horario",
		})
	case errors.Is(err, application.ErrIneligible):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "NOT_ELIGIBLE",
			Message:   "el profesor no está habilitado para dictar en esa carrera",
		})
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "la clase no admite ese cambio de estado"})
	case errors.Is(err, application.ErrWouldExceedCapacity):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "no quedan cupos disponibles"})
	case errors.Is(err, application.ErrWouldUnderflow):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "no hay inscripciones para dar de baja"})
	default:
		var unavailable *application.RoomUnavailableError
		if errors.As(err, &unavailable) {
			r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
				ErrorCode: "ROOM_UNAVAILABLE",
				Message:   roomUnavailableMessage(unavailable.Reason),
			})
			return
		}

		var violation *rules.Violation
		if errors.As(err, &violation) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "la solicitud no cumple las reglas de asignación",
				Errors:  map[string]string{violation.Field: violationMessage(violation)},
			})
			return
		}

		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "los datos enviados no son válidos",
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "ocurrió un error interno en el servidor"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "la solicitud no es válida"
	case http.StatusUnauthorized:
		return "debe autenticarse para continuar"
	case http.StatusForbidden:
		return "no tiene permisos para realizar esta operación"
	case http.StatusNotFound:
		return "el recurso solicitado no existe"
	case http.StatusConflict:
		return "la solicitud entra en conflicto con el estado actual del recurso"
	case http.StatusUnprocessableEntity:
		return "los datos enviados no son válidos"
	default:
		return "ocurrió un error interno en el servidor"
	}
}

func roomUnavailableMessage(reason application.RoomUnavailableReason) string {
	switch reason {
	case application.RoomDisabled:
		return "el aula está deshabilitada"
	case application.RoomMissing:
		return "el aula no existe"
	default:
		return "el aula no está disponible"
	}
}

func violationMessage(violation *rules.Violation) string {
	switch violation.Kind {
	case rules.OutOfWindow:
		return "el horario debe estar entre las 06:00 y las 23:00"
	case rules.TooShort:
		return "la clase debe durar al menos 45 minutos"
	case rules.TooLong:
		return "la clase no puede durar más de 240 minutos"
	case rules.InvertedRange:
		return "la hora de fin debe ser posterior a la de inicio"
	default:
		return violation.Reason
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "room number must be positive":
		return "el número de aula debe ser positivo"
	case "floor must not be negative":
		return "el piso no puede ser negativo"
	case "capacity must be positive":
		return "la capacidad debe ser un entero positivo"
	case "program is required":
		return "la carrera es obligatoria"
	case "name is required":
		return "el nombre es obligatorio"
	case "code is required":
		return "el código es obligatorio"
	case "year must be between 1 and 5":
		return "el año debe estar entre 1 y 5"
	case "term must be 1 or 2":
		return "el cuatrimestre debe ser 1 o 2"
	case "weekly hours must be positive":
		return "las horas semanales deben ser positivas"
	case "professor id is required":
		return "el identificador de profesor es obligatorio"
	case "course is no longer active":
		return "la materia ya no está activa"
	case "outcome must be finish or cancel":
		return "la acción debe ser finalizar o cancelar"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
