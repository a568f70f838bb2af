// Package ics converts calendar page events to and from iCalendar.
package ics

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
)

const (
	ProductID = "-//FamilyCal//Calendar//EN"

	// PropAttendees carries the attendee count, which has no standard property.
	PropAttendees = "X-FAMILYCAL-ATTENDEES"

	// DefaultDuration is used for DTEND since events only have a start time.
	DefaultDuration = time.Hour
)

// UID returns the iCalendar UID of e. Pushed events keep their CalDAV UID.
func UID(e domain.Event) string {
	if e.CalDAVUID != "" {
		return e.CalDAVUID
	}
	return fmt.Sprintf("familycal-%d@familycal", e.ID)
}

// NewEvent builds a VEVENT for e. Start and end are written in UTC.
func NewEvent(e domain.Event, uid string, loc *time.Location) (*ical.Event, error) {
	start, err := calendar.Timestamp(e.EventDate, e.EventTime, loc)
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", e.ID, err)
	}

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetText(ical.PropSummary, e.Title)
	if e.Description != "" {
		vevent.Props.SetText(ical.PropDescription, e.Description)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(DefaultDuration).UTC())
	vevent.Props.SetText(PropAttendees, strconv.Itoa(e.Attendees))

	stamp := e.UpdatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	return vevent, nil
}

// NewCalendar wraps events into a VCALENDAR. Events with unparseable
// date/time are skipped and reported in the returned slice.
func NewCalendar(events []domain.Event, loc *time.Location) (*ical.Calendar, []error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	var errs []error
	for _, e := range events {
		vevent, err := NewEvent(e, UID(e), loc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cal.Children = append(cal.Children, vevent.Component)
	}
	return cal, errs
}

// EncodeError reports a failure to write the stream itself, as opposed to
// individual events left out of it
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "encode calendar: " + e.Err.Error() }

func (e *EncodeError) Unwrap() error { return e.Err }

// Encode writes events as an iCalendar stream. The returned error joins the
// events that were left out; the stream is complete either way.
func Encode(w io.Writer, events []domain.Event, loc *time.Location) error {
	cal, errs := NewCalendar(events, loc)
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return &EncodeError{Err: err}
	}
	return errors.Join(errs...)
}

// Decode reads every VEVENT from r as event input. Times are converted to
// loc; all-day events start at 00:00. Entries that cannot be read are
// skipped and reported in the second return value; the error is only set
// when the stream itself is not iCalendar.
func Decode(r io.Reader, loc *time.Location) ([]domain.EventInput, []error, error) {
	dec := ical.NewDecoder(r)

	var (
		inputs  []domain.EventInput
		skipped []error
	)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("decode calendar: %w", err)
		}

		for _, ev := range cal.Events() {
			in, err := eventInput(ev, loc)
			if err != nil {
				skipped = append(skipped, err)
				continue
			}
			inputs = append(inputs, in)
		}
	}
	return inputs, skipped, nil
}

func eventInput(ev ical.Event, loc *time.Location) (domain.EventInput, error) {
	in := domain.EventInput{}

	if prop := ev.Props.Get(ical.PropSummary); prop != nil {
		text, err := prop.Text()
		if err != nil {
			return in, fmt.Errorf("read summary: %w", err)
		}
		in.Title = text
	}
	if prop := ev.Props.Get(ical.PropDescription); prop != nil {
		text, err := prop.Text()
		if err != nil {
			return in, fmt.Errorf("read description: %w", err)
		}
		in.Description = text
	}

	prop := ev.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return in, fmt.Errorf("event %q has no DTSTART", in.Title)
	}
	start, err := prop.DateTime(loc)
	if err != nil {
		return in, fmt.Errorf("read DTSTART of %q: %w", in.Title, err)
	}
	start = start.In(loc)
	in.EventDate = calendar.ISODate(start)
	in.EventTime = start.Format(calendar.TimeLayout)

	if prop := ev.Props.Get(PropAttendees); prop != nil {
		if n, err := strconv.Atoi(prop.Value); err == nil {
			in.Attendees = n
		}
	} else {
		in.Attendees = len(ev.Props[ical.PropAttendee])
	}

	return in, nil
}
