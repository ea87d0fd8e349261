package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create collides with an existing record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrIneligible is returned when the professor holds no active assignment in the program.
	ErrIneligible = errors.New("application: professor not eligible")
	// ErrConflict is returned when the requested slot is already taken in the ledger.
	ErrConflict = errors.New("application: slot conflict")
	// ErrInvalidTransition is returned when a session cannot move to the requested status.
	ErrInvalidTransition = errors.New("application: invalid session transition")
	// ErrWouldExceedCapacity is returned when one more enrollment would overflow the room.
	ErrWouldExceedCapacity = errors.New("application: enrollment would exceed capacity")
	// ErrWouldUnderflow is returned when an unsubscribe would push enrollment below zero.
	ErrWouldUnderflow = errors.New("application: enrollment would underflow")
)

// RoomUnavailableReason narrows why a room could not be claimed.
type RoomUnavailableReason string

const (
	RoomOccupied RoomUnavailableReason = "occupied"
	RoomDisabled RoomUnavailableReason = "disabled"
	RoomMissing  RoomUnavailableReason = "not_found"
)

// RoomUnavailableError reports a room that cannot host the requested session
// right now, including losing the atomic claim to a concurrent scheduler.
type RoomUnavailableError struct {
	RoomID string
	Reason RoomUnavailableReason
}

func (e *RoomUnavailableError) Error() string {
	return fmt.Sprintf("application: room %s unavailable (%s)", e.RoomID, e.Reason)
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
