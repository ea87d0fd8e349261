// Package rules checks a proposed class session against the static
// scheduling rules before it touches any storage. Every check is pure so the
// same rejection happens no matter which replica evaluates it.
package rules

import (
	"fmt"
	"strings"
	"time"
)

// Scheduling window and duration bounds for a single class session.
const (
	MinDurationMinutes = 45
	MaxDurationMinutes = 240
	WindowOpenHour     = 6
	WindowCloseHour    = 23
)

// ViolationKind classifies why a request was rejected.
type ViolationKind string

const (
	OutOfWindow      ViolationKind = "out_of_window"
	TooShort         ViolationKind = "too_short"
	TooLong          ViolationKind = "too_long"
	InvertedRange    ViolationKind = "inverted_range"
	MalformedRequest ViolationKind = "malformed_request"
)

// Violation is the typed rejection returned by Validate.
type Violation struct {
	Kind   ViolationKind
	Field  string
	Reason string
}

func (v *Violation) Error() string {
	if v.Field != "" {
		return fmt.Sprintf("rules: %s: %s (%s)", v.Field, v.Reason, v.Kind)
	}
	return fmt.Sprintf("rules: %s (%s)", v.Reason, v.Kind)
}

// Request carries the fields checked before a session reaches the ledger.
// Date is YYYY-MM-DD, StartTime and EndTime are zero-padded HH:MM.
type Request struct {
	RoomID      string
	CourseID    string
	ProfessorID string
	Program     string
	Date        string
	StartTime   string
	EndTime     string
	Kind        string
}

var validKinds = map[string]struct{}{
	"teorica":     {},
	"practica":    {},
	"laboratorio": {},
}

// Validate applies every static rule and returns the first violation found.
// Structural problems are reported before semantic ones so a malformed
// request never reaches the window or duration checks.
func Validate(req Request) error {
	for field, value := range map[string]string{
		"id_aula":     req.RoomID,
		"id_materia":  req.CourseID,
		"id_profesor": req.ProfessorID,
		"carrera":     req.Program,
	} {
		if strings.TrimSpace(value) == "" {
			return &Violation{Kind: MalformedRequest, Field: field, Reason: "required field is empty"}
		}
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return &Violation{Kind: MalformedRequest, Field: "fecha", Reason: "date must be YYYY-MM-DD"}
	}

	startHour, startMinute, err := ParseClock(req.StartTime)
	if err != nil {
		return &Violation{Kind: MalformedRequest, Field: "hora_inicio", Reason: "time must be HH:MM"}
	}
	endHour, endMinute, err := ParseClock(req.EndTime)
	if err != nil {
		return &Violation{Kind: MalformedRequest, Field: "hora_fin", Reason: "time must be HH:MM"}
	}

	if _, ok := validKinds[req.Kind]; !ok {
		return &Violation{Kind: MalformedRequest, Field: "tipo", Reason: "unknown session kind"}
	}

	start := startHour*60 + startMinute
	end := endHour*60 + endMinute

	if end <= start {
		return &Violation{Kind: InvertedRange, Reason: "end time must be after start time"}
	}

	if startHour < WindowOpenHour || startHour >= WindowCloseHour {
		return &Violation{
			Kind:   OutOfWindow,
			Field:  "hora_inicio",
			Reason: fmt.Sprintf("start hour must be between %02d:00 and %02d:00", WindowOpenHour, WindowCloseHour),
		}
	}

	switch duration := end - start; {
	case duration < MinDurationMinutes:
		return &Violation{Kind: TooShort, Reason: fmt.Sprintf("session must last at least %d minutes", MinDurationMinutes)}
	case duration > MaxDurationMinutes:
		return &Violation{Kind: TooLong, Reason: fmt.Sprintf("session must last at most %d minutes", MaxDurationMinutes)}
	}

	return nil
}

// ParseClock parses a zero-padded HH:MM value.
func ParseClock(value string) (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock value %q: %w", value, err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// Duration returns the span between two HH:MM values in minutes.
func Duration(start, end string) (int, error) {
	startHour, startMinute, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	endHour, endMinute, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	return (endHour*60 + endMinute) - (startHour*60 + startMinute), nil
}

// Weekday returns the day of week for a YYYY-MM-DD date with Monday as 0,
// matching the convention the downstream clients expect.
func Weekday(date string) (int, error) {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return (int(parsed.Weekday()) + 6) % 7, nil
}
