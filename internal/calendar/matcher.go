package calendar

import (
	"time"

	"github.com/tazhate/familycal/internal/domain"
)

// EventsOn returns the events scheduled on day's calendar date, in list order.
func EventsOn(day time.Time, events []domain.Event) []domain.Event {
	return EventsOnDate(ISODate(day), events)
}

// EventsOnDate returns the events whose EventDate equals date, in list order.
// The result is never nil.
func EventsOnDate(date string, events []domain.Event) []domain.Event {
	out := make([]domain.Event, 0)
	for _, e := range events {
		if e.EventDate == date {
			out = append(out, e)
		}
	}
	return out
}
