package calendar

import (
	"time"

	"github.com/tazhate/familycal/internal/domain"
)

// Summary is the "today" card: today's events and the soonest one still ahead.
type Summary struct {
	Date   string
	Events []domain.Event
	Next   *domain.Event
}

// Summarize computes the summary for now. Event timestamps are built in
// now's location; only events strictly after now can be Next, and equal
// timestamps keep list order.
func Summarize(events []domain.Event, now time.Time) Summary {
	today := EventsOn(now, events)
	s := Summary{
		Date:   ISODate(now),
		Events: today,
	}

	var best time.Time
	for i := range today {
		ts, err := Timestamp(today[i].EventDate, today[i].EventTime, now.Location())
		if err != nil || !ts.After(now) {
			continue
		}
		if s.Next == nil || ts.Before(best) {
			next := today[i]
			s.Next = &next
			best = ts
		}
	}
	return s
}

// Count returns the number of events today.
func (s Summary) Count() int {
	return len(s.Events)
}

// AllDone reports whether there were events today and none is left.
func (s Summary) AllDone() bool {
	return len(s.Events) > 0 && s.Next == nil
}
