// Package http provides the HTTP handlers and middleware of the classroom API.
//
// The router exposes the following endpoints:
//   - POST /aulas, GET /aulas, GET /aulas/{id}, PUT /aulas/{id}: classroom
//     catalog endpoints exchanging the `roomDTO` payload defined in
//     room_handler.go. Listing and reads are available to any authenticated
//     principal while mutations require admin privileges.
//   - POST /aulas/{id}/deshabilitar: takes a classroom out of service.
//   - GET /aulas/metricas: room totals by status.
//   - POST /materias, GET /materias, POST /materias/{id}/baja: course catalog
//     endpoints exchanging the `courseDTO` payload defined in course_handler.go.
//   - POST /asignaciones, POST /asignaciones/baja: teaching assignment
//     endpoints linking professors to courses.
//   - POST /cronogramas, GET /cronogramas, GET /cronogramas/{id}: class
//     session endpoints exchanging the `sessionDTO` payload defined in
//     session_handler.go.
//   - POST /cronogramas/{id}/activar, /finalizar, /cancelar: session lifecycle.
//   - POST /cronogramas/{id}/suscribir, /desuscribir: student enrollment.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
