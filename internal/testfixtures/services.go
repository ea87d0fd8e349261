package testfixtures

import (
	"time"

	"github.com/smartcampus/bedelia/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithFactoryClock overrides the clock used by the factory.
func WithFactoryClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithFactoryIDGenerator overrides the identifier generator used by the factory.
func WithFactoryIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// NewSchedulingService builds a scheduling service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewSchedulingService(deps application.SchedulingServiceDeps) *application.SchedulingService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	return application.NewSchedulingService(deps)
}

// NewRoomService builds a room service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewRoomService(deps application.RoomServiceDeps) *application.RoomService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	return application.NewRoomService(deps)
}

// NewCourseService builds a course service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewCourseService(deps application.CourseServiceDeps) *application.CourseService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	return application.NewCourseService(deps)
}
