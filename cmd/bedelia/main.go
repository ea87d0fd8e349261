package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/smartcampus/bedelia/internal/application"
	"github.com/smartcampus/bedelia/internal/cache"
	"github.com/smartcampus/bedelia/internal/config"
	"github.com/smartcampus/bedelia/internal/events"
	httptransport "github.com/smartcampus/bedelia/internal/http"
	"github.com/smartcampus/bedelia/internal/locks"
	"github.com/smartcampus/bedelia/internal/persistence"
	"github.com/smartcampus/bedelia/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := func() string { return uuid.NewString() }
	now := time.Now

	roomRepo := sqlite.NewRoomRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)
	courseRepo := sqlite.NewCourseRepository(pool)
	assignmentRepo := sqlite.NewAssignmentRepository(pool)

	var publisher *events.Publisher
	if cfg.MQTTBrokerURL != "" {
		broker, err := events.ConnectBroker(events.BrokerConfig{
			URL:      cfg.MQTTBrokerURL,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Timeout:  cfg.MQTTTimeout,
		})
		if err != nil {
			// Events are best effort; the service keeps scheduling without them.
			logger.Error("failed to connect to the MQTT broker, events disabled", "error", err)
		} else {
			defer broker.Close()
			publisher = events.NewPublisher(broker, logger, now)
		}
	}

	var locker *locks.Locker
	var roomCache *cache.RoomCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.Error("failed to close redis client", "error", cerr)
			}
		}()
		locker = locks.NewLocker(redisClient, cfg.LockTTL)
		roomCache = cache.NewRoomCache(redisClient, cfg.CacheTTL)
	}

	roomStore := newRoomStoreAdapter(roomRepo)
	sessionLedger := newSessionLedgerAdapter(sessionRepo)
	courseCatalog := newCourseCatalogAdapter(courseRepo)
	assignmentBook := newAssignmentBookAdapter(assignmentRepo)

	courseService := application.NewCourseService(application.CourseServiceDeps{
		Courses:     courseCatalog,
		Assignments: assignmentBook,
		IDGenerator: idGenerator,
		Now:         now,
		Logger:      logger,
	})

	roomDeps := application.RoomServiceDeps{
		Rooms:       roomStore,
		IDGenerator: idGenerator,
		Now:         now,
		Logger:      logger,
	}
	schedulingDeps := application.SchedulingServiceDeps{
		Rooms:       roomStore,
		Sessions:    sessionLedger,
		Eligibility: courseService,
		IDGenerator: idGenerator,
		Now:         now,
		Logger:      logger,
	}
	if publisher != nil {
		roomDeps.Publisher = publisher
		schedulingDeps.Publisher = publisher
	}
	if locker != nil {
		schedulingDeps.Locker = locker
	}
	if roomCache != nil {
		roomDeps.Cache = roomCache
		schedulingDeps.Cache = roomCache
	}

	roomService := application.NewRoomService(roomDeps)
	schedulingService := application.NewSchedulingService(schedulingDeps)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:    httptransport.NewRoomHandler(roomService, logger),
		Courses:  httptransport.NewCourseHandler(courseService, logger),
		Sessions: httptransport.NewSessionHandler(schedulingService, logger),
	})

	protected := httptransport.RequirePrincipal(gatewayTokenValidator{}, logger)(router)
	handler := httptransport.RequestLogger(logger)(protected)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("bedelia API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// gatewayTokenValidator decodes the identity claims minted by the campus API
// gateway. The gateway authenticates users and signs requests before they
// reach this service, so the token here is a base64url JSON document of the
// form {"sub":"<user id>","admin":bool}.
type gatewayTokenValidator struct{}

type gatewayClaims struct {
	Subject string `json:"sub"`
	Admin   bool   `json:"admin"`
}

func (gatewayTokenValidator) ValidateToken(ctx context.Context, token string) (application.Principal, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return application.Principal{}, application.ErrUnauthorized
	}

	var claims gatewayClaims
	if err := json.Unmarshal(raw, &claims); err != nil || strings.TrimSpace(claims.Subject) == "" {
		return application.Principal{}, application.ErrUnauthorized
	}

	return application.Principal{UserID: claims.Subject, IsAdmin: claims.Admin}, nil
}

type roomStoreAdapter struct {
	repo persistence.RoomRepository
}

func newRoomStoreAdapter(repo persistence.RoomRepository) *roomStoreAdapter {
	return &roomStoreAdapter{repo: repo}
}

func (a *roomStoreAdapter) CreateRoom(ctx context.Context, room application.Room) error {
	return a.repo.CreateRoom(ctx, toPersistenceRoom(room))
}

func (a *roomStoreAdapter) UpdateRoom(ctx context.Context, room application.Room) error {
	return a.repo.UpdateRoom(ctx, toPersistenceRoom(room))
}

func (a *roomStoreAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomStoreAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

func (a *roomStoreAdapter) DisableRoom(ctx context.Context, id string) error {
	return a.repo.DisableRoom(ctx, id)
}

func (a *roomStoreAdapter) Reserve(ctx context.Context, roomID, sessionID string) error {
	return a.repo.Reserve(ctx, roomID, sessionID)
}

func (a *roomStoreAdapter) Release(ctx context.Context, roomID string) error {
	return a.repo.Release(ctx, roomID)
}

func (a *roomStoreAdapter) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts, err := a.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(counts))
	for status, count := range counts {
		out[string(status)] = count
	}
	return out, nil
}

type sessionLedgerAdapter struct {
	repo persistence.SessionRepository
}

func newSessionLedgerAdapter(repo persistence.SessionRepository) *sessionLedgerAdapter {
	return &sessionLedgerAdapter{repo: repo}
}

func (a *sessionLedgerAdapter) CreateSession(ctx context.Context, session application.Session) error {
	return a.repo.CreateSession(ctx, toPersistenceSession(session))
}

func (a *sessionLedgerAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionLedgerAdapter) ListSessions(ctx context.Context, query application.SessionQuery) ([]application.Session, error) {
	statuses := make([]persistence.SessionStatus, 0, len(query.Statuses))
	for _, status := range query.Statuses {
		statuses = append(statuses, persistence.SessionStatus(status))
	}
	models, err := a.repo.ListSessions(ctx, persistence.SessionFilter{
		RoomID:      query.RoomID,
		ProfessorID: query.ProfessorID,
		Program:     query.Program,
		CourseID:    query.CourseID,
		Date:        query.Date,
		Statuses:    statuses,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	sessions := make([]application.Session, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toApplicationSession(model))
	}
	return sessions, nil
}

func (a *sessionLedgerAdapter) TransitionSession(ctx context.Context, id, from, to string, releasedAt *time.Time) error {
	return a.repo.TransitionSession(ctx, id, persistence.SessionStatus(from), persistence.SessionStatus(to), releasedAt)
}

func (a *sessionLedgerAdapter) IncrementEnrollment(ctx context.Context, id string, capacity int) error {
	return a.repo.IncrementEnrollment(ctx, id, capacity)
}

func (a *sessionLedgerAdapter) DecrementEnrollment(ctx context.Context, id string) error {
	return a.repo.DecrementEnrollment(ctx, id)
}

func (a *sessionLedgerAdapter) DeleteSession(ctx context.Context, id string) error {
	return a.repo.DeleteSession(ctx, id)
}

type courseCatalogAdapter struct {
	repo persistence.CourseRepository
}

func newCourseCatalogAdapter(repo persistence.CourseRepository) *courseCatalogAdapter {
	return &courseCatalogAdapter{repo: repo}
}

func (a *courseCatalogAdapter) CreateCourse(ctx context.Context, course application.Course) error {
	return a.repo.CreateCourse(ctx, toPersistenceCourse(course))
}

func (a *courseCatalogAdapter) GetCourse(ctx context.Context, id string) (application.Course, error) {
	stored, err := a.repo.GetCourse(ctx, id)
	if err != nil {
		return application.Course{}, err
	}
	return toApplicationCourse(stored), nil
}

func (a *courseCatalogAdapter) GetCourseByCode(ctx context.Context, code string) (application.Course, error) {
	stored, err := a.repo.GetCourseByCode(ctx, code)
	if err != nil {
		return application.Course{}, err
	}
	return toApplicationCourse(stored), nil
}

func (a *courseCatalogAdapter) ListCourses(ctx context.Context, program string, onlyActive bool) ([]application.Course, error) {
	models, err := a.repo.ListCourses(ctx, program, onlyActive)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	courses := make([]application.Course, 0, len(models))
	for _, model := range models {
		courses = append(courses, toApplicationCourse(model))
	}
	return courses, nil
}

func (a *courseCatalogAdapter) DeactivateCourse(ctx context.Context, id string) error {
	return a.repo.DeactivateCourse(ctx, id)
}

type assignmentBookAdapter struct {
	repo persistence.AssignmentRepository
}

func newAssignmentBookAdapter(repo persistence.AssignmentRepository) *assignmentBookAdapter {
	return &assignmentBookAdapter{repo: repo}
}

func (a *assignmentBookAdapter) CreateAssignment(ctx context.Context, assignment application.TeachingAssignment) error {
	return a.repo.CreateAssignment(ctx, persistence.TeachingAssignment{
		ID:          assignment.ID,
		ProfessorID: assignment.ProfessorID,
		CourseID:    assignment.CourseID,
		Program:     assignment.Program,
		Active:      assignment.Active,
		CreatedAt:   assignment.CreatedAt,
		UpdatedAt:   assignment.UpdatedAt,
	})
}

func (a *assignmentBookAdapter) DeactivateAssignment(ctx context.Context, professorID, courseID string) error {
	return a.repo.DeactivateAssignment(ctx, professorID, courseID)
}

func (a *assignmentBookAdapter) ListAssignments(ctx context.Context, professorID string) ([]application.TeachingAssignment, error) {
	models, err := a.repo.ListAssignments(ctx, professorID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	assignments := make([]application.TeachingAssignment, 0, len(models))
	for _, model := range models {
		assignments = append(assignments, application.TeachingAssignment{
			ID:          model.ID,
			ProfessorID: model.ProfessorID,
			CourseID:    model.CourseID,
			Program:     model.Program,
			Active:      model.Active,
			CreatedAt:   model.CreatedAt,
			UpdatedAt:   model.UpdatedAt,
		})
	}
	return assignments, nil
}

func (a *assignmentBookAdapter) HasActiveAssignment(ctx context.Context, professorID, program string) (bool, error) {
	return a.repo.HasActiveAssignment(ctx, professorID, program)
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:               model.ID,
		Number:           model.Number,
		Floor:            model.Floor,
		Capacity:         model.Capacity,
		Status:           string(model.Status),
		CurrentSessionID: cloneString(model.CurrentSessionID),
		Description:      cloneString(model.Description),
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:               room.ID,
		Number:           room.Number,
		Floor:            room.Floor,
		Capacity:         room.Capacity,
		Status:           persistence.RoomStatus(room.Status),
		CurrentSessionID: cloneString(room.CurrentSessionID),
		Description:      cloneString(room.Description),
		CreatedAt:        room.CreatedAt,
		UpdatedAt:        room.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:              model.ID,
		RoomID:          model.RoomID,
		CourseID:        model.CourseID,
		ProfessorID:     model.ProfessorID,
		Program:         model.Program,
		Date:            model.Date,
		StartTime:       model.StartTime,
		EndTime:         model.EndTime,
		DurationMinutes: model.DurationMinutes,
		Weekday:         model.Weekday,
		Kind:            string(model.Kind),
		Status:          string(model.Status),
		Enrollment:      model.Enrollment,
		ReleasedAt:      cloneTime(model.ReleasedAt),
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
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
		Kind:            persistence.SessionKind(session.Kind),
		Status:          persistence.SessionStatus(session.Status),
		Enrollment:      session.Enrollment,
		ReleasedAt:      cloneTime(session.ReleasedAt),
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}
}

func toApplicationCourse(model persistence.Course) application.Course {
	return application.Course{
		ID:          model.ID,
		Program:     model.Program,
		Name:        model.Name,
		Code:        model.Code,
		Year:        model.Year,
		Term:        model.Term,
		WeeklyHours: model.WeeklyHours,
		Active:      model.Active,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceCourse(course application.Course) persistence.Course {
	return persistence.Course{
		ID:          course.ID,
		Program:     course.Program,
		Name:        course.Name,
		Code:        course.Code,
		Year:        course.Year,
		Term:        course.Term,
		WeeklyHours: course.WeeklyHours,
		Active:      course.Active,
		CreatedAt:   course.CreatedAt,
		UpdatedAt:   course.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
