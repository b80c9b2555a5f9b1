package absence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/username/absence-clockin/internal/calendar"
	"github.com/username/absence-clockin/pkg/dateutil"
	"go.uber.org/zap"
)

// Session is an authenticated run against one target month.
// The token, user id and holiday set are fixed at construction.
type Session struct {
	client   *Client
	token    string
	userID   string
	year     int
	month    time.Month
	national []time.Time
	holidays *calendar.HolidaySet
	logger   *zap.Logger
}

// NewSession logs in, resolves the user and builds the holiday set for year/month.
// A non-empty userIDOverride replaces the resolved id as owner of submitted spans.
func NewSession(ctx context.Context, client *Client, creds Credentials, userIDOverride string, year int, month time.Month, logger *zap.Logger) (*Session, error) {
	token, err := client.Login(ctx, creds)
	if err != nil {
		return nil, err
	}

	user, err := client.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}

	userID := user.ID.String()
	if userIDOverride != "" {
		userID = userIDOverride
	}

	s := &Session{
		client:   client,
		token:    token,
		userID:   userID,
		year:     year,
		month:    month,
		holidays: calendar.NewHolidaySet(year, month),
		logger:   logger,
	}

	national, err := nationalHolidays(user.HolidayDates, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to parse national holidays: %w", err)
	}
	s.national = national
	for _, d := range national {
		s.holidays.Add(d, calendar.DayTypeHoliday)
	}

	records, err := client.ListApprovedAbsences(ctx, token, userID, dateutil.StartOfMonth(year, month))
	if err != nil {
		return nil, err
	}
	if err := addAbsences(s.holidays, records); err != nil {
		return nil, fmt.Errorf("failed to expand absences: %w", err)
	}

	logger.Info("Session ready",
		zap.String("user", userID),
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Int("national_holidays", len(national)),
		zap.Int("days_off", s.holidays.Len()))

	return s, nil
}

// nationalHolidays keeps the holiday dates that fall inside the target month
func nationalHolidays(raw []string, year int, month time.Month) ([]time.Time, error) {
	var result []time.Time
	seen := make(map[time.Time]bool)

	for _, s := range raw {
		day, err := dateutil.ParseDay(s)
		if err != nil {
			return nil, err
		}
		if !dateutil.InMonth(day, year, month) || seen[day] {
			continue
		}
		seen[day] = true
		result = append(result, day)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result, nil
}

// addAbsences expands approved absence ranges into the holiday set.
//
// Records are walked in ascending start order; the walk stops at the first
// record starting outside the target month, since every later one does too.
// The records are sorted here so that this holds whatever order the server used.
// A range ending in a later month is clipped to the month's last day.
func addAbsences(set *calendar.HolidaySet, records []AbsenceRecord) error {
	type span struct{ start, end time.Time }

	spans := make([]span, 0, len(records))
	for _, r := range records {
		start, err := dateutil.ParseDay(r.Start)
		if err != nil {
			return fmt.Errorf("absence %s start: %w", r.ID, err)
		}
		end, err := dateutil.ParseDay(r.End)
		if err != nil {
			return fmt.Errorf("absence %s end: %w", r.ID, err)
		}
		spans = append(spans, span{start: start, end: end})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	for _, sp := range spans {
		if !dateutil.InMonth(sp.start, set.Year(), set.Month()) {
			break
		}

		last := sp.end
		if !dateutil.IsSameMonth(sp.start, sp.end) {
			last = dateutil.EndOfMonth(set.Year(), set.Month())
		}
		set.AddRange(sp.start, last, calendar.DayTypeAbsence)
	}

	return nil
}

// UserID returns the owner of submitted spans
func (s *Session) UserID() string {
	return s.userID
}

// IsHoliday reports whether no attendance should be submitted on date
func (s *Session) IsHoliday(date time.Time) bool {
	return s.holidays.Contains(date)
}

// HolidayReason returns why date is a day off
func (s *Session) HolidayReason(date time.Time) calendar.DayType {
	return s.holidays.Reason(date)
}

// HolidayDays returns every day off of the month with its reason, ascending
func (s *Session) HolidayDays() []calendar.DayInfo {
	return s.holidays.Days()
}

// HolidayDates returns every day off of the month, ascending
func (s *Session) HolidayDates() []time.Time {
	return s.holidays.Dates()
}

// NationalHolidays returns the national holidays inside the month, ascending
func (s *Session) NationalHolidays() []time.Time {
	return append([]time.Time(nil), s.national...)
}

// Submit records one work time span. It returns false without error when the
// start day is a day off (no request is sent) or the service reports an overlap.
// Any other rejection is returned as *SubmissionError.
func (s *Session) Submit(ctx context.Context, start, end time.Time) (bool, error) {
	if s.holidays.Contains(start) {
		s.logger.Info("Day is off, not submitting",
			zap.String("date", start.Format(dateutil.DateLayout)),
			zap.String("reason", s.holidays.Reason(start).String()))
		return false, nil
	}

	err := s.client.CreateWorkTimespan(ctx, s.token, s.userID, start, end)
	if err != nil {
		if errors.Is(err, ErrOverlap) {
			s.logger.Warn("Day already has registered hours",
				zap.String("date", start.Format(dateutil.DateLayout)),
				zap.Time("start", start),
				zap.Time("end", end))
			return false, nil
		}
		return false, &SubmissionError{Start: start, End: end, Err: err}
	}

	s.logger.Info("Time span submitted",
		zap.Time("start", start),
		zap.Time("end", end))

	return true, nil
}
