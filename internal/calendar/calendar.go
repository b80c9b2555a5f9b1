package calendar

import (
	"sort"
	"time"

	"github.com/username/absence-clockin/pkg/dateutil"
)

// DayType represents the type of day
type DayType int

const (
	DayTypeWorkday DayType = iota + 1
	DayTypeHoliday // national holiday
	DayTypeAbsence // approved personal absence
)

// String returns a human readable label
func (t DayType) String() string {
	switch t {
	case DayTypeWorkday:
		return "workday"
	case DayTypeHoliday:
		return "holiday"
	case DayTypeAbsence:
		return "absence"
	default:
		return "unknown"
	}
}

// DayInfo represents a single day of a HolidaySet
type DayInfo struct {
	Date time.Time
	Type DayType
}

// HolidaySet holds the days of one month for which no attendance is submitted.
// Only dates inside the set's year/month are ever stored.
type HolidaySet struct {
	year  int
	month time.Month
	days  map[int]DayType // day of month -> reason
}

// NewHolidaySet creates an empty set for the given month
func NewHolidaySet(year int, month time.Month) *HolidaySet {
	return &HolidaySet{
		year:  year,
		month: month,
		days:  make(map[int]DayType),
	}
}

// Year returns the set's year
func (h *HolidaySet) Year() int { return h.year }

// Month returns the set's month
func (h *HolidaySet) Month() time.Month { return h.month }

// Add marks date as a day off. Dates outside the set's month are ignored.
// The first reason recorded for a day wins. Reports whether a new day was added.
func (h *HolidaySet) Add(date time.Time, reason DayType) bool {
	if !dateutil.InMonth(date, h.year, h.month) {
		return false
	}
	if _, ok := h.days[date.Day()]; ok {
		return false
	}
	h.days[date.Day()] = reason
	return true
}

// AddRange marks every day in [from, to] (inclusive) as a day off,
// clipped to the set's month. Returns the number of newly added days.
func (h *HolidaySet) AddRange(from, to time.Time, reason DayType) int {
	added := 0
	from = dateutil.StartOfDay(from)
	to = dateutil.StartOfDay(to)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if h.Add(d, reason) {
			added++
		}
	}
	return added
}

// Contains reports whether date is a day off
func (h *HolidaySet) Contains(date time.Time) bool {
	if h == nil || !dateutil.InMonth(date, h.year, h.month) {
		return false
	}
	_, ok := h.days[date.Day()]
	return ok
}

// Reason returns why date is a day off, or DayTypeWorkday if it is not
func (h *HolidaySet) Reason(date time.Time) DayType {
	if !h.Contains(date) {
		return DayTypeWorkday
	}
	return h.days[date.Day()]
}

// Len returns the number of days off in the set
func (h *HolidaySet) Len() int {
	if h == nil {
		return 0
	}
	return len(h.days)
}

// Days returns all days off in ascending order
func (h *HolidaySet) Days() []DayInfo {
	if h == nil {
		return nil
	}

	days := make([]int, 0, len(h.days))
	for d := range h.days {
		days = append(days, d)
	}
	sort.Ints(days)

	result := make([]DayInfo, 0, len(days))
	for _, d := range days {
		result = append(result, DayInfo{
			Date: dateutil.Date(h.year, h.month, d),
			Type: h.days[d],
		})
	}
	return result
}

// Dates returns all days off in ascending order
func (h *HolidaySet) Dates() []time.Time {
	days := h.Days()
	dates := make([]time.Time, len(days))
	for i, d := range days {
		dates[i] = d.Date
	}
	return dates
}
