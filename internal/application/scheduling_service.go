package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smartcampus/bedelia/internal/cache"
	"github.com/smartcampus/bedelia/internal/events"
	"github.com/smartcampus/bedelia/internal/persistence"
	"github.com/smartcampus/bedelia/internal/rules"
)

// RoomStore captures the room operations needed by the scheduler.
type RoomStore interface {
	GetRoom(ctx context.Context, id string) (Room, error)
	Reserve(ctx context.Context, roomID, sessionID string) error
	Release(ctx context.Context, roomID string) error
}

// SessionQuery narrows ledger listings. Zero-valued fields are ignored.
type SessionQuery struct {
	RoomID      string
	ProfessorID string
	Program     string
	CourseID    string
	Date        string
	Statuses    []string
}

// SessionLedger captures the ledger operations needed by the scheduler.
type SessionLedger interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, query SessionQuery) ([]Session, error)
	TransitionSession(ctx context.Context, id, from, to string, releasedAt *time.Time) error
	IncrementEnrollment(ctx context.Context, id string, capacity int) error
	DecrementEnrollment(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
}

// EligibilityChecker answers whether a professor may teach in a program.
type EligibilityChecker interface {
	IsEligible(ctx context.Context, professorID, program string) (bool, error)
}

// EventPublisher is the outbound event surface. Implementations never block
// beyond a single bounded publish attempt.
type EventPublisher interface {
	RoomAssigned(event events.SessionEvent) error
	RoomReleased(event events.SessionEvent) error
	Notify(program, courseID string, notification events.Notification) error
	ProfessorError(professorID string, event events.ErrorEvent) error
	UserError(userID string, event events.ErrorEvent) error
	NewRoom(event events.RoomCreated) error
	Metrics(metrics events.RoomMetrics) error
}

// RoomLocker hands out best-effort advisory locks.
type RoomLocker interface {
	TryAcquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}

// RoomCache stores best-effort room snapshots.
type RoomCache interface {
	Get(ctx context.Context, roomID string) (cache.RoomSnapshot, bool)
	Set(ctx context.Context, snapshot cache.RoomSnapshot)
	Invalidate(ctx context.Context, roomID string)
}

// Room and session status values shared with persistence and the wire format.
const (
	roomStatusAvailable = "disponible"
	roomStatusOccupied  = "ocupada"
	roomStatusDisabled  = "deshabilitada"

	sessionStatusScheduled = "programada"
	sessionStatusActive    = "activa"
	sessionStatusFinished  = "finalizada"
	sessionStatusCancelled = "cancelada"
)

// SchedulingServiceDeps wires the collaborators of a SchedulingService.
// Publisher, Locker, and Cache are optional; the scheduler degrades to
// working without them.
type SchedulingServiceDeps struct {
	Rooms       RoomStore
	Sessions    SessionLedger
	Eligibility EligibilityChecker
	Publisher   EventPublisher
	Locker      RoomLocker
	Cache       RoomCache
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// SchedulingService drives the reservation pipeline: static rules, professor
// eligibility, ledger insert, and the atomic room claim, with compensation
// when the claim is lost.
type SchedulingService struct {
	rooms       RoomStore
	sessions    SessionLedger
	eligibility EligibilityChecker
	publisher   EventPublisher
	locker      RoomLocker
	cache       RoomCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSchedulingService constructs the scheduler from its dependencies.
func NewSchedulingService(deps SchedulingServiceDeps) *SchedulingService {
	idGenerator := deps.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &SchedulingService{
		rooms:       deps.Rooms,
		sessions:    deps.Sessions,
		eligibility: deps.Eligibility,
		publisher:   deps.Publisher,
		locker:      deps.Locker,
		cache:       deps.Cache,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *SchedulingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SchedulingService", operation, attrs...)
}

// Schedule validates a session request, records it in the ledger, and claims
// the room. The ledger insert is the authoritative conflict gate; losing the
// subsequent room claim rolls the insert back.
func (s *SchedulingService) Schedule(ctx context.Context, params ScheduleSessionParams) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("SchedulingService is nil")
		return
	}

	input := params.Input
	logger := s.loggerWith(ctx, "Schedule",
		"principal_id", params.Principal.UserID,
		"room_id", input.RoomID,
		"professor_id", input.ProfessorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to schedule session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID).InfoContext(ctx, "session scheduled")
	}()

	if !params.Principal.IsAdmin && params.Principal.UserID != input.ProfessorID {
		err = ErrUnauthorized
		return
	}

	if vErr := rules.Validate(rules.Request{
		RoomID:      input.RoomID,
		CourseID:    input.CourseID,
		ProfessorID: input.ProfessorID,
		Program:     input.Program,
		Date:        input.Date,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Kind:        input.Kind,
	}); vErr != nil {
		err = vErr
		s.emitProfessorError(ctx, logger, input, err)
		return
	}

	eligible, checkErr := s.eligibility.IsEligible(ctx, input.ProfessorID, input.Program)
	if checkErr != nil {
		err = fmt.Errorf("eligibility check failed: %w", checkErr)
		return
	}
	if !eligible {
		err = ErrIneligible
		s.emitProfessorError(ctx, logger, input, err)
		return
	}

	if s.locker != nil {
		release, acquired, lockErr := s.locker.TryAcquire(ctx, "aula:"+input.RoomID)
		switch {
		case lockErr != nil:
			// The lock is advisory; correctness is carried by the ledger
			// unique key and the conditional reserve below.
			logger.WarnContext(ctx, "advisory lock unavailable", "error", lockErr)
		case !acquired:
			err = &RoomUnavailableError{RoomID: input.RoomID, Reason: RoomOccupied}
			s.emitProfessorError(ctx, logger, input, err)
			return
		default:
			defer release()
		}
	}

	if err = s.checkRoomAvailable(ctx, input.RoomID); err != nil {
		s.emitProfessorError(ctx, logger, input, err)
		return
	}

	duration, _ := rules.Duration(input.StartTime, input.EndTime)
	weekday, _ := rules.Weekday(input.Date)

	createdAt := s.now().UTC()
	session = Session{
		ID:              s.idGenerator(),
		RoomID:          input.RoomID,
		CourseID:        input.CourseID,
		ProfessorID:     input.ProfessorID,
		Program:         input.Program,
		Date:            input.Date,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		DurationMinutes: duration,
		Weekday:         weekday,
		Kind:            input.Kind,
		Status:          sessionStatusScheduled,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	if createErr := s.sessions.CreateSession(ctx, session); createErr != nil {
		err = mapLedgerError(createErr)
		s.emitProfessorError(ctx, logger, input, err)
		session = Session{}
		return
	}

	// From here on the ledger row exists, so the claim and any compensation
	// must finish even if the caller gives up.
	detached := context.WithoutCancel(ctx)

	if reserveErr := s.rooms.Reserve(detached, input.RoomID, session.ID); reserveErr != nil {
		if deleteErr := s.sessions.DeleteSession(detached, session.ID); deleteErr != nil {
			logger.ErrorContext(ctx, "rollback failed, ledger row stranded without reservation",
				"session_id", session.ID, "error", deleteErr)
		}
		err = s.reserveFailure(detached, input.RoomID, reserveErr)
		s.emitProfessorError(ctx, logger, input, err)
		session = Session{}
		return
	}

	if s.cache != nil {
		s.cache.Invalidate(detached, input.RoomID)
	}

	if s.publisher != nil {
		if pubErr := s.publisher.RoomAssigned(sessionEvent(session)); pubErr != nil {
			logger.WarnContext(ctx, "assignment event not published", "session_id", session.ID, "error", pubErr)
		}
	}

	return session, nil
}

// checkRoomAvailable is the advisory fast path: it rejects requests for rooms
// that are already known to be busy, disabled, or missing. The conditional
// reserve remains the authoritative claim.
func (s *SchedulingService) checkRoomAvailable(ctx context.Context, roomID string) error {
	if s.cache != nil {
		if snapshot, ok := s.cache.Get(ctx, roomID); ok {
			if snapshot.Status != roomStatusAvailable {
				return &RoomUnavailableError{RoomID: roomID, Reason: unavailableReason(snapshot.Status)}
			}
			return nil
		}
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return &RoomUnavailableError{RoomID: roomID, Reason: RoomMissing}
		}
		return err
	}

	if s.cache != nil {
		s.cache.Set(ctx, cache.RoomSnapshot{
			ID:               room.ID,
			Status:           room.Status,
			Capacity:         room.Capacity,
			CurrentSessionID: room.CurrentSessionID,
		})
	}

	if room.Status != roomStatusAvailable {
		return &RoomUnavailableError{RoomID: roomID, Reason: unavailableReason(room.Status)}
	}

	return nil
}

// reserveFailure translates a lost room claim into the caller-facing error,
// distinguishing a disabled room from one another scheduler beat us to.
func (s *SchedulingService) reserveFailure(ctx context.Context, roomID string, reserveErr error) error {
	if errors.Is(reserveErr, persistence.ErrNotFound) || errors.Is(reserveErr, ErrNotFound) {
		return &RoomUnavailableError{RoomID: roomID, Reason: RoomMissing}
	}

	reason := RoomOccupied
	if room, err := s.rooms.GetRoom(ctx, roomID); err == nil && room.Status == roomStatusDisabled {
		reason = RoomDisabled
	}
	return &RoomUnavailableError{RoomID: roomID, Reason: reason}
}

// Activate marks a scheduled session as in progress.
func (s *SchedulingService) Activate(ctx context.Context, principal Principal, sessionID string) (session Session, err error) {
	logger := s.loggerWith(ctx, "Activate",
		"principal_id", principal.UserID,
		"session_id", sessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to activate session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session activated")
	}()

	session, err = s.ownedSession(ctx, principal, sessionID)
	if err != nil {
		return Session{}, err
	}

	if err = s.transition(ctx, &session, sessionStatusActive, nil); err != nil {
		return Session{}, err
	}

	return session, nil
}

// Finalize ends a session. Finishing works from programada or activa and
// records the release time; cancelling works from any non-terminal status.
// Both give the room back and notify subscribers.
func (s *SchedulingService) Finalize(ctx context.Context, params FinalizeSessionParams) (session Session, err error) {
	logger := s.loggerWith(ctx, "Finalize",
		"principal_id", params.Principal.UserID,
		"session_id", params.SessionID,
		"outcome", string(params.Outcome),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to finalize session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session finalized")
	}()

	var target string
	var releasedAt *time.Time
	switch params.Outcome {
	case OutcomeFinish:
		target = sessionStatusFinished
		at := s.now().UTC()
		releasedAt = &at
	case OutcomeCancel:
		target = sessionStatusCancelled
	default:
		vErr := &ValidationError{}
		vErr.add("outcome", "outcome must be finish or cancel")
		err = vErr
		return
	}

	session, err = s.ownedSession(ctx, params.Principal, params.SessionID)
	if err != nil {
		return Session{}, err
	}

	// Finishing a session that never went through activa is allowed; the
	// ledger records the intermediate step so the state machine stays intact.
	if params.Outcome == OutcomeFinish && session.Status == sessionStatusScheduled {
		if err = s.transition(ctx, &session, sessionStatusActive, nil); err != nil {
			return Session{}, err
		}
	}

	if err = s.transition(ctx, &session, target, releasedAt); err != nil {
		return Session{}, err
	}

	// The ledger row is final; releasing the room and telling subscribers
	// must not be lost to a caller timeout.
	detached := context.WithoutCancel(ctx)

	if releaseErr := s.rooms.Release(detached, session.RoomID); releaseErr != nil {
		// The session is already closed, so surface the stuck room in the
		// logs instead of failing the operation. Release is idempotent and
		// can be repeated by an operator.
		logger.ErrorContext(ctx, "room not released after finalize",
			"room_id", session.RoomID, "error", releaseErr)
	} else if s.cache != nil {
		s.cache.Invalidate(detached, session.RoomID)
	}

	if s.publisher != nil {
		var pubErr error
		switch params.Outcome {
		case OutcomeFinish:
			pubErr = s.publisher.RoomReleased(sessionEvent(session))
		case OutcomeCancel:
			pubErr = s.publisher.Notify(session.Program, session.CourseID, events.Notification{
				SessionID: session.ID,
				Message:   "clase cancelada",
				Reason:    params.Reason,
			})
		}
		if pubErr != nil {
			logger.WarnContext(ctx, "finalize event not published", "session_id", session.ID, "error", pubErr)
		}
	}

	return session, nil
}

// Subscribe adds one student to a session, bounded by the room capacity.
func (s *SchedulingService) Subscribe(ctx context.Context, principal Principal, sessionID string) (session Session, err error) {
	logger := s.loggerWith(ctx, "Subscribe",
		"principal_id", principal.UserID,
		"session_id", sessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to subscribe", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "student subscribed")
	}()

	session, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapLedgerError(err)
		return Session{}, err
	}

	if session.Status != sessionStatusScheduled && session.Status != sessionStatusActive {
		err = ErrInvalidTransition
		s.emitUserError(ctx, logger, principal.UserID, err)
		return Session{}, err
	}

	room, roomErr := s.rooms.GetRoom(ctx, session.RoomID)
	if roomErr != nil {
		err = fmt.Errorf("failed to load room for capacity: %w", roomErr)
		return Session{}, err
	}

	if incErr := s.sessions.IncrementEnrollment(ctx, sessionID, room.Capacity); incErr != nil {
		if errors.Is(incErr, persistence.ErrStateMismatch) {
			err = ErrWouldExceedCapacity
		} else {
			err = mapLedgerError(incErr)
		}
		s.emitUserError(ctx, logger, principal.UserID, err)
		return Session{}, err
	}

	session.Enrollment++
	return session, nil
}

// Unsubscribe removes one student from a session, never going below zero.
func (s *SchedulingService) Unsubscribe(ctx context.Context, principal Principal, sessionID string) (session Session, err error) {
	logger := s.loggerWith(ctx, "Unsubscribe",
		"principal_id", principal.UserID,
		"session_id", sessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to unsubscribe", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "student unsubscribed")
	}()

	session, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapLedgerError(err)
		return Session{}, err
	}

	if decErr := s.sessions.DecrementEnrollment(ctx, sessionID); decErr != nil {
		if errors.Is(decErr, persistence.ErrStateMismatch) {
			err = ErrWouldUnderflow
		} else {
			err = mapLedgerError(decErr)
		}
		s.emitUserError(ctx, logger, principal.UserID, err)
		return Session{}, err
	}

	session.Enrollment--
	return session, nil
}

// GetSession returns one ledger row for any authenticated user.
func (s *SchedulingService) GetSession(ctx context.Context, principal Principal, sessionID string) (Session, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapLedgerError(err)
	}
	return session, nil
}

// ListSessions returns ledger rows matching the filter for any authenticated user.
func (s *SchedulingService) ListSessions(ctx context.Context, params ListSessionsParams) ([]Session, error) {
	sessions, err := s.sessions.ListSessions(ctx, SessionQuery{
		RoomID:      params.RoomID,
		ProfessorID: params.ProfessorID,
		Program:     params.Program,
		CourseID:    params.CourseID,
		Date:        params.Date,
		Statuses:    params.Statuses,
	})
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return sessions, nil
}

// ownedSession loads a session and checks the principal may manage it.
func (s *SchedulingService) ownedSession(ctx context.Context, principal Principal, sessionID string) (Session, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, mapLedgerError(err)
	}
	if !principal.IsAdmin && principal.UserID != session.ProfessorID {
		return Session{}, ErrUnauthorized
	}
	return session, nil
}

// transition applies the session state machine and persists the move.
func (s *SchedulingService) transition(ctx context.Context, session *Session, target string, releasedAt *time.Time) error {
	if !persistence.CanTransition(persistence.SessionStatus(session.Status), persistence.SessionStatus(target)) {
		return ErrInvalidTransition
	}

	err := s.sessions.TransitionSession(ctx, session.ID, session.Status, target, releasedAt)
	if err != nil {
		if errors.Is(err, persistence.ErrStateMismatch) {
			return ErrInvalidTransition
		}
		return mapLedgerError(err)
	}

	session.Status = target
	if releasedAt != nil {
		session.ReleasedAt = releasedAt
	}
	return nil
}

func (s *SchedulingService) emitProfessorError(ctx context.Context, logger *slog.Logger, input SessionInput, cause error) {
	if s.publisher == nil {
		return
	}
	event := events.ErrorEvent{
		Reason: motivoFor(cause),
		Details: map[string]string{
			"id_aula":     input.RoomID,
			"id_materia":  input.CourseID,
			"fecha":       input.Date,
			"hora_inicio": input.StartTime,
		},
	}
	if err := s.publisher.ProfessorError(input.ProfessorID, event); err != nil {
		logger.WarnContext(ctx, "professor error event not published", "error", err)
	}
}

func (s *SchedulingService) emitUserError(ctx context.Context, logger *slog.Logger, userID string, cause error) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.UserError(userID, events.ErrorEvent{Reason: motivoFor(cause)}); err != nil {
		logger.WarnContext(ctx, "user error event not published", "error", err)
	}
}

func sessionEvent(session Session) events.SessionEvent {
	return events.SessionEvent{
		SessionID:   session.ID,
		RoomID:      session.RoomID,
		CourseID:    session.CourseID,
		Program:     session.Program,
		ProfessorID: session.ProfessorID,
		Date:        session.Date,
		StartTime:   session.StartTime,
		EndTime:     session.EndTime,
		Kind:        session.Kind,
	}
}

// motivoFor renders the user-facing Spanish reason carried on error events.
func motivoFor(err error) string {
	var violation *rules.Violation
	if errors.As(err, &violation) {
		switch violation.Kind {
		case rules.OutOfWindow:
			return "horario fuera de la ventana permitida"
		case rules.TooShort:
			return "duracion menor a la minima permitida"
		case rules.TooLong:
			return "duracion mayor a la maxima permitida"
		case rules.InvertedRange:
			return "rango horario invertido"
		default:
			return "solicitud invalida"
		}
	}

	var unavailable *RoomUnavailableError
	if errors.As(err, &unavailable) {
		switch unavailable.Reason {
		case RoomDisabled:
			return "el aula esta deshabilitada"
		case RoomMissing:
			return "el aula no existe"
		default:
			return "el aula no esta disponible"
		}
	}

	switch {
	case errors.Is(err, ErrIneligible):
		return "profesor no habilitado para la carrera"
	case errors.Is(err, ErrConflict):
		return "el aula ya tiene una clase asignada en ese horario"
	case errors.Is(err, ErrWouldExceedCapacity):
		return "no quedan cupos disponibles"
	case errors.Is(err, ErrWouldUnderflow):
		return "no hay inscripciones para dar de baja"
	case errors.Is(err, ErrInvalidTransition):
		return "la clase no admite ese cambio de estado"
	case errors.Is(err, ErrNotFound):
		return "el recurso no existe"
	}
	return "error interno"
}

func unavailableReason(status string) RoomUnavailableReason {
	if status == roomStatusDisabled {
		return RoomDisabled
	}
	return RoomOccupied
}

// mapLedgerError translates persistence sentinels to application errors.
func mapLedgerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrConflict
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	case errors.Is(err, persistence.ErrStateMismatch):
		return ErrInvalidTransition
	}
	return err
}
