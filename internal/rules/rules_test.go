package rules

import (
	"errors"
	"testing"
)

func validRequest() Request {
	return Request{
		RoomID:      "room-1",
		CourseID:    "course-1",
		ProfessorID: "prof-1",
		Program:     "Ingenieria en Sistemas",
		Date:        "2026-09-07",
		StartTime:   "10:00",
		EndTime:     "12:00",
		Kind:        "teorica",
	}
}

func TestValidateAccepts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"typical morning lecture", func(r *Request) {}},
		{"window opens at six", func(r *Request) { r.StartTime = "06:00"; r.EndTime = "07:00" }},
		{"last slot before closing", func(r *Request) { r.StartTime = "22:00"; r.EndTime = "23:30" }},
		{"minimum duration", func(r *Request) { r.StartTime = "10:00"; r.EndTime = "10:45" }},
		{"maximum duration", func(r *Request) { r.StartTime = "08:00"; r.EndTime = "12:00" }},
		{"lab session", func(r *Request) { r.Kind = "laboratorio" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			if err := Validate(req); err != nil {
				t.Fatalf("Validate rejected valid request: %v", err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
		want   ViolationKind
	}{
		{"missing room", func(r *Request) { r.RoomID = "" }, MalformedRequest},
		{"missing professor", func(r *Request) { r.ProfessorID = "  " }, MalformedRequest},
		{"missing program", func(r *Request) { r.Program = "" }, MalformedRequest},
		{"bad date", func(r *Request) { r.Date = "07/09/2026" }, MalformedRequest},
		{"bad start time", func(r *Request) { r.StartTime = "10am" }, MalformedRequest},
		{"single digit hour", func(r *Request) { r.StartTime = "9:00" }, MalformedRequest},
		{"unknown kind", func(r *Request) { r.Kind = "seminario" }, MalformedRequest},
		{"before window", func(r *Request) { r.StartTime = "05:30"; r.EndTime = "07:00" }, OutOfWindow},
		{"at closing hour", func(r *Request) { r.StartTime = "23:00"; r.EndTime = "23:50" }, OutOfWindow},
		{"just before opening", func(r *Request) { r.StartTime = "05:59"; r.EndTime = "07:00" }, OutOfWindow},
		{"too short", func(r *Request) { r.StartTime = "10:00"; r.EndTime = "10:44" }, TooShort},
		{"too long", func(r *Request) { r.StartTime = "08:00"; r.EndTime = "12:01" }, TooLong},
		{"inverted", func(r *Request) { r.StartTime = "12:00"; r.EndTime = "10:00" }, InvertedRange},
		{"zero length", func(r *Request) { r.StartTime = "10:00"; r.EndTime = "10:00" }, InvertedRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			err := Validate(req)
			if err == nil {
				t.Fatal("Validate accepted invalid request")
			}

			var violation *Violation
			if !errors.As(err, &violation) {
				t.Fatalf("error is %T, want *Violation", err)
			}
			if violation.Kind != tc.want {
				t.Fatalf("violation kind = %q, want %q", violation.Kind, tc.want)
			}
		})
	}
}

func TestValidateInversionBeatsWindow(t *testing.T) {
	// An inverted range outside the window reports the inversion, not the
	// window, so the caller fixes the contradiction first.
	req := validRequest()
	req.StartTime = "23:30"
	req.EndTime = "23:00"

	var violation *Violation
	if err := Validate(req); !errors.As(err, &violation) || violation.Kind != InvertedRange {
		t.Fatalf("Validate = %v, want InvertedRange", err)
	}
}

func TestDuration(t *testing.T) {
	got, err := Duration("10:00", "12:15")
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if got != 135 {
		t.Fatalf("Duration = %d, want 135", got)
	}

	if _, err := Duration("10:00", "mediodia"); err == nil {
		t.Fatal("Duration accepted malformed end time")
	}
}

func TestWeekday(t *testing.T) {
	cases := []struct {
		date string
		want int
	}{
		{"2026-09-07", 0}, // Monday
		{"2026-09-09", 2}, // Wednesday
		{"2026-09-12", 5}, // Saturday
		{"2026-09-13", 6}, // Sunday
	}

	for _, tc := range cases {
		got, err := Weekday(tc.date)
		if err != nil {
			t.Fatalf("Weekday(%s) failed: %v", tc.date, err)
		}
		if got != tc.want {
			t.Errorf("Weekday(%s) = %d, want %d", tc.date, got, tc.want)
		}
	}

	if _, err := Weekday("septiembre 7"); err == nil {
		t.Fatal("Weekday accepted malformed date")
	}
}
