// Package events publishes scheduling domain events over MQTT. Publication is
// always best effort: the scheduler treats a failed emit as a logging matter,
// never as a failed operation.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// QoS levels per topic family. Metrics tolerate loss; everything else is
// delivered at least once.
const (
	qosEvents  byte = 1
	qosMetrics byte = 0
)

// ErrUnreachable is returned when the broker connection is down. Callers log
// it and move on; no event is ever retried.
var ErrUnreachable = errors.New("events: broker unreachable")

// Client is the transport the publisher needs. *PahoClient satisfies it in
// production; tests substitute a recorder.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	IsConnected() bool
}

// SessionEvent is the payload for room assignment and release events. Field
// names follow the Spanish wire contract.
type SessionEvent struct {
	Event       string `json:"evento"`
	SessionID   string `json:"id_cronograma"`
	RoomID      string `json:"id_aula"`
	CourseID    string `json:"id_materia"`
	Program     string `json:"id_carrera"`
	ProfessorID string `json:"id_profesor"`
	Date        string `json:"fecha"`
	StartTime   string `json:"hora_inicio"`
	EndTime     string `json:"hora_fin"`
	Kind        string `json:"tipo"`
	Timestamp   string `json:"timestamp"`
}

// Notification is the payload for the warning channel.
type Notification struct {
	Event     string `json:"evento"`
	SessionID string `json:"id_cronograma,omitempty"`
	Message   string `json:"mensaje"`
	Reason    string `json:"motivo,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ErrorEvent is the payload for the per-professor and per-user error channels.
type ErrorEvent struct {
	Event     string            `json:"evento"`
	Reason    string            `json:"motivo"`
	Details   map[string]string `json:"detalles,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// RoomCreated is the payload announcing a new classroom.
type RoomCreated struct {
	Event     string `json:"evento"`
	RoomID    string `json:"id_aula"`
	Number    int    `json:"nro_aula"`
	Floor     int    `json:"piso"`
	Capacity  int    `json:"capacidad"`
	Timestamp string `json:"timestamp"`
}

// RoomMetrics is the payload for the room occupancy feed.
type RoomMetrics struct {
	Available int    `json:"disponibles"`
	Occupied  int    `json:"ocupadas"`
	Disabled  int    `json:"deshabilitadas"`
	Total     int    `json:"total"`
	Timestamp string `json:"timestamp"`
}

// Publisher serializes domain events and hands them to the MQTT client. The
// timestamp on every payload is stamped at publish time, not at build time.
type Publisher struct {
	client Client
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher constructs a publisher. A nil client yields a publisher whose
// emits all report ErrUnreachable, which keeps broker-less deployments and
// tests running.
func NewPublisher(client Client, logger *slog.Logger, now func() time.Time) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Publisher{client: client, logger: logger, now: now}
}

// RoomAssigned announces a successful reservation to the course subscribers.
func (p *Publisher) RoomAssigned(event SessionEvent) error {
	event.Event = "aula_asignada"
	event.Timestamp = p.timestamp()
	return p.publish(TopicRoomAssigned(event.Program, event.CourseID), qosEvents, event)
}

// RoomReleased announces that a session gave its room back.
func (p *Publisher) RoomReleased(event SessionEvent) error {
	event.Event = "aula_liberada"
	event.Timestamp = p.timestamp()
	return p.publish(TopicRoomReleased(event.Program, event.CourseID), qosEvents, event)
}

// Notify sends a warning, such as a cancellation, to the course subscribers.
func (p *Publisher) Notify(program, courseID string, notification Notification) error {
	notification.Event = "notificacion"
	notification.Timestamp = p.timestamp()
	return p.publish(TopicNotification(program, courseID), qosEvents, notification)
}

// ProfessorError reports a rejected scheduling attempt to the professor.
func (p *Publisher) ProfessorError(professorID string, event ErrorEvent) error {
	event.Event = "error_profesor"
	event.Timestamp = p.timestamp()
	return p.publish(TopicProfessorError(professorID), qosEvents, event)
}

// UserError reports a rejected operation to a non-professor user.
func (p *Publisher) UserError(userID string, event ErrorEvent) error {
	event.Event = "error_usuario"
	event.Timestamp = p.timestamp()
	return p.publish(TopicUserError(userID), qosEvents, event)
}

// NewRoom announces a freshly created classroom.
func (p *Publisher) NewRoom(event RoomCreated) error {
	event.Event = "aula_creada"
	event.Timestamp = p.timestamp()
	return p.publish(TopicNewRoom, qosEvents, event)
}

// Metrics publishes the room occupancy totals. Fire and forget.
func (p *Publisher) Metrics(metrics RoomMetrics) error {
	metrics.Timestamp = p.timestamp()
	return p.publish(TopicRoomMetrics, qosMetrics, metrics)
}

func (p *Publisher) timestamp() string {
	return p.now().UTC().Format(time.RFC3339)
}

// publish is the single funnel to the transport. It absorbs panics so a
// misbehaving client library cannot take the scheduling path down with it.
func (p *Publisher) publish(topic string, qos byte, payload interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("events: publish to %s panicked: %v", topic, r)
		}
	}()

	if p == nil || p.client == nil {
		return ErrUnreachable
	}
	if !p.client.IsConnected() {
		return ErrUnreachable
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: encode payload for %s: %w", topic, err)
	}

	if err := p.client.Publish(topic, qos, false, body); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	p.logger.Debug("event published", "topic", topic, "qos", qos)
	return nil
}
