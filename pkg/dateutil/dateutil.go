package dateutil

import (
	"fmt"
	"time"
)

// TimespanLayout is the timestamp layout accepted by the absence.io timespan API.
// Example: 2019-08-12T08:30:00Z
const TimespanLayout = "2006-01-02T15:04:05Z"

// DateLayout is the plain calendar date layout
const DateLayout = "2006-01-02"

// Date returns midnight UTC of the given calendar day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns the start of the day (00:00:00) for the given date
func StartOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// StartOfMonth returns the first day of the month (00:00 UTC)
func StartOfMonth(year int, month time.Month) time.Time {
	return Date(year, month, 1)
}

// EndOfMonth returns the last day of the month (00:00 UTC)
func EndOfMonth(year int, month time.Month) time.Time {
	// Day 0 of the next month normalizes to the last day of this one
	return Date(year, month+1, 0)
}

// DaysInMonth returns the number of days in the month
func DaysInMonth(year int, month time.Month) int {
	return EndOfMonth(year, month).Day()
}

// IsWeekday returns true if the date is Monday-Friday
func IsWeekday(date time.Time) bool {
	weekday := date.Weekday()
	return weekday >= time.Monday && weekday <= time.Friday
}

// IsWeekend returns true if the date is Saturday or Sunday
func IsWeekend(date time.Time) bool {
	weekday := date.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// IsSameDay returns true if two dates are on the same day
func IsSameDay(date1, date2 time.Time) bool {
	return date1.Year() == date2.Year() &&
		date1.Month() == date2.Month() &&
		date1.Day() == date2.Day()
}

// IsSameMonth returns true if two dates are in the same year and month
func IsSameMonth(date1, date2 time.Time) bool {
	return date1.Year() == date2.Year() && date1.Month() == date2.Month()
}

// InMonth reports whether date falls within the given year and month
func InMonth(date time.Time, year int, month time.Month) bool {
	return date.Year() == year && date.Month() == month
}

// FormatTimespan formats a timestamp for the timespan API
func FormatTimespan(t time.Time) string {
	return t.Format(TimespanLayout)
}

// ParseDate parses a date or datetime string in the formats returned by the API.
// The result is normalized to UTC.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := parse(dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ParseDay parses a date string and truncates it to the calendar day.
// The day is taken in the offset written in the string, so
// 2019-08-19T00:00:00+02:00 is August 19th.
func ParseDay(dateStr string) (time.Time, error) {
	t, err := parse(dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return Date(t.Year(), t.Month(), t.Day()), nil
}

func parse(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000Z0700",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", dateStr)
}

// Today returns today's date (midnight UTC)
func Today() time.Time {
	now := time.Now()
	return Date(now.Year(), now.Month(), now.Day())
}
