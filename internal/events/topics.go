package events

import "fmt"

// Fixed topics consumed by existing clients. These strings are a wire
// contract and must not change.
const (
	TopicNewRoom     = "universidad/aulas/nueva"
	TopicRoomMetrics = "universidad/metricas/aulas"
)

// TopicRoomAssigned addresses the subscribers of one course within a program.
func TopicRoomAssigned(program, courseID string) string {
	return fmt.Sprintf("universidad/eventos/aula/asignada/%s/%s", program, courseID)
}

// TopicRoomReleased mirrors TopicRoomAssigned for the release side.
func TopicRoomReleased(program, courseID string) string {
	return fmt.Sprintf("universidad/eventos/aula/liberada/%s/%s", program, courseID)
}

// TopicNotification carries warnings such as cancellations.
func TopicNotification(program, courseID string) string {
	return fmt.Sprintf("universidad/notificaciones/aula/%s/%s", program, courseID)
}

// TopicProfessorError is the per-professor rejection channel.
func TopicProfessorError(professorID string) string {
	return fmt.Sprintf("universidad/errores/profesor/%s", professorID)
}

// TopicUserError is the per-user rejection channel.
func TopicUserError(userID string) string {
	return fmt.Sprintf("universidad/errores/%s", userID)
}
