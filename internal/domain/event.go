package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidEvent is returned when event fields fail validation.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrNotFound is returned when no event has the requested ID.
	ErrNotFound = errors.New("event not found")
)

// Event represents a single entry on the calendar page
type Event struct {
	ID          int64
	Title       string
	Description string
	EventDate   string // "YYYY-MM-DD", no timezone
	EventTime   string // "HH:MM", local clock
	Attendees   int
	CalDAVUID   string // UID of the pushed CalDAV object, empty if never pushed
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventInput holds the form fields for create and update (Event minus ID)
type EventInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	EventDate   string `json:"event_date"`
	EventTime   string `json:"event_time"`
	Attendees   int    `json:"attendees"`
}

// Input returns the editable fields of the event
func (e Event) Input() EventInput {
	return EventInput{
		Title:       e.Title,
		Description: e.Description,
		EventDate:   e.EventDate,
		EventTime:   e.EventTime,
		Attendees:   e.Attendees,
	}
}

// Apply copies the editable fields from in
func (e *Event) Apply(in EventInput) {
	e.Title = in.Title
	e.Description = in.Description
	e.EventDate = in.EventDate
	e.EventTime = in.EventTime
	e.Attendees = in.Attendees
}

// DetailLine returns the "time • description" line used in the day dialog
func (e Event) DetailLine() string {
	if e.Description == "" {
		return e.EventTime
	}
	return e.EventTime + " • " + e.Description
}

// AttendeesLabel returns a human readable attendee count
func (e Event) AttendeesLabel() string {
	if e.Attendees == 1 {
		return "1 attendee"
	}
	return fmt.Sprintf("%d attendees", e.Attendees)
}

// FieldError wraps ErrInvalidEvent with the offending field
func FieldError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidEvent, field, reason)
}
