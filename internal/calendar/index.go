package calendar

import (
	"sort"

	"github.com/tazhate/familycal/internal/domain"
)

// DateSet is the set of ISO dates that carry at least one event.
type DateSet map[string]struct{}

// HighlightedDates returns the distinct event dates of events.
func HighlightedDates(events []domain.Event) DateSet {
	set := make(DateSet, len(events))
	for _, e := range events {
		if e.EventDate == "" {
			continue
		}
		set[e.EventDate] = struct{}{}
	}
	return set
}

// Has reports whether date is highlighted.
func (s DateSet) Has(date string) bool {
	_, ok := s[date]
	return ok
}

// Len returns the number of distinct dates
func (s DateSet) Len() int {
	return len(s)
}

// Sorted returns the dates in ascending order.
func (s DateSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
