// Package calendar holds the date logic behind the calendar page: ISO date
// normalization, the highlighted-date index, same-day lookup, the today
// summary and the month grid of the date picker.
//
// All functions are pure. Dates are compared as "YYYY-MM-DD" strings and
// carry no timezone; a time.Time is reduced to the calendar date it shows in
// its own location.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO calendar date layout used everywhere.
	DateLayout = "2006-01-02"
	// TimeLayout is the time-of-day layout of Event.EventTime.
	TimeLayout = "15:04"
	// DisplayLayout matches the "Sat Jun 01 2024" form shown in dialogs and toasts.
	DisplayLayout = "Mon Jan 02 2006"
)

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var timeLayouts = []string{
	TimeLayout,
	"15:04:05",
}

// ISODate returns the calendar date of t in t's own location.
func ISODate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeDate returns the ISO form of s. It accepts a bare date or a
// date-time; for date-times the date as written is kept, offsets are not
// applied. ok is false when s is not a date.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ISODate(t), true
		}
	}
	return "", false
}

// NormalizeTime returns s as "HH:MM". Seconds are dropped.
func NormalizeTime(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), true
		}
	}
	return "", false
}

// ParseClock splits a time of day into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	hm, ok := NormalizeTime(s)
	if !ok {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	t, err := time.Parse(TimeLayout, hm)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

// ParseDate parses an ISO date as midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	iso, ok := NormalizeDate(date)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q", date)
	}
	return time.ParseInLocation(DateLayout, iso, loc)
}

// Timestamp combines a date and a clock value into a moment in loc.
func Timestamp(date, clock string, loc *time.Location) (time.Time, error) {
	iso, ok := NormalizeDate(date)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q", date)
	}
	hm, ok := NormalizeTime(clock)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time %q", clock)
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, iso+" "+hm, loc)
}

// DisplayDate formats an ISO date as "Mon Jan 02 2006". Unparseable input is
// returned unchanged.
func DisplayDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(DisplayLayout)
}
