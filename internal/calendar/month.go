package calendar

import (
	"fmt"
	"strings"
	"time"
)

const monthKeyLayout = "2006-01"

// Day is one cell of the date picker.
type Day struct {
	Date        string
	Number      int
	InMonth     bool
	Highlighted bool
	Selected    bool
	Today       bool
}

// Month is the date picker grid for one month, split into full weeks.
type Month struct {
	Year      int
	Month     time.Month
	WeekStart time.Weekday
	Weeks     [][]Day
}

// NewMonth builds the grid for year/month. Leading and trailing days of the
// neighbouring months fill the first and last week.
func NewMonth(year int, month time.Month, weekStart time.Weekday, highlighted DateSet, selected, today string) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7
	day := first.AddDate(0, 0, -offset)

	m := Month{
		Year:      first.Year(),
		Month:     first.Month(),
		WeekStart: weekStart,
	}
	for {
		week := make([]Day, 0, 7)
		for i := 0; i < 7; i++ {
			iso := ISODate(day)
			week = append(week, Day{
				Date:        iso,
				Number:      day.Day(),
				InMonth:     day.Month() == first.Month(),
				Highlighted: highlighted.Has(iso),
				Selected:    iso == selected,
				Today:       iso == today,
			})
			day = day.AddDate(0, 0, 1)
		}
		m.Weeks = append(m.Weeks, week)
		if day.Month() != first.Month() {
			break
		}
	}
	return m
}

// ParseMonthKey parses "YYYY-MM".
func ParseMonthKey(key string) (int, time.Month, bool) {
	t, err := time.Parse(monthKeyLayout, strings.TrimSpace(key))
	if err != nil {
		return 0, 0, false
	}
	return t.Year(), t.Month(), true
}

// Key returns the "YYYY-MM" form of the month.
func (m Month) Key() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Title returns e.g. "June 2024".
func (m Month) Title() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// Prev returns the key of the previous month.
func (m Month) Prev() string {
	return time.Date(m.Year, m.Month-1, 1, 0, 0, 0, 0, time.UTC).Format(monthKeyLayout)
}

// Next returns the key of the following month.
func (m Month) Next() string {
	return time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC).Format(monthKeyLayout)
}

// WeekdayNames returns short weekday headers starting at WeekStart.
func (m Month) WeekdayNames() []string {
	names := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		names = append(names, time.Weekday((int(m.WeekStart)+i)%7).String()[:2])
	}
	return names
}
