package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/username/absence-clockin/pkg/dateutil"
	"github.com/username/absence-clockin/pkg/random"
	"go.uber.org/zap"
)

// Submitter records time spans and knows which days are off.
// *absence.Session implements it.
type Submitter interface {
	IsHoliday(date time.Time) bool
	Submit(ctx context.Context, start, end time.Time) (bool, error)
}

// TimeSpan is a same-day work interval, End after Start
type TimeSpan struct {
	Start time.Time
	End   time.Time
}

// Duration returns the span length
func (s TimeSpan) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// DayStatus is the outcome of processing a day
type DayStatus int

const (
	DayStatusWorked DayStatus = iota + 1
	DayStatusHoliday
	DayStatusWeekend
)

// String returns a human readable label
func (s DayStatus) String() string {
	switch s {
	case DayStatusWorked:
		return "worked"
	case DayStatusHoliday:
		return "on holiday"
	case DayStatusWeekend:
		return "weekend"
	default:
		return "unknown"
	}
}

// DayResult describes what happened on one day
type DayResult struct {
	Date      time.Time
	Status    DayStatus
	Policy    WorkdayPolicy
	Spans     []TimeSpan
	Submitted int // spans accepted by the service
	Conflicts int // spans rejected as overlapping or skipped as day off
}

// MonthSummary aggregates a month run
type MonthSummary struct {
	Year           int
	Month          time.Month
	Days           []DayResult
	WorkedDays     int
	HolidayDays    int
	WeekendDays    int
	SubmittedSpans int
	ConflictSpans  int
	Duration       time.Duration
}

// Generator produces and submits plausible attendance for one month
type Generator struct {
	year      int
	month     time.Month
	submitter Submitter
	rules     Rules
	rng       random.Source
	logger    *zap.Logger
}

// NewGenerator creates a generator for year/month
func NewGenerator(year int, month time.Month, submitter Submitter, rules Rules, rng random.Source, logger *zap.Logger) *Generator {
	return &Generator{
		year:      year,
		month:     month,
		submitter: submitter,
		rules:     rules,
		rng:       rng,
		logger:    logger,
	}
}

// Policy returns the workday policy for date
func (g *Generator) Policy(date time.Time) WorkdayPolicy {
	return g.rules.PolicyFor(date)
}

// Plan draws the time spans for date under policy.
//
// With a meal break the morning runs from entry to meal start (capped at
// MaxMorning), the break lasts MealDuration, and the afternoon runs until
// meal end + Workday - morning. Without one, a single span of Workday.
func (g *Generator) Plan(date time.Time, policy WorkdayPolicy) []TimeSpan {
	rules := g.rules.Policies[policy]

	entry := g.drawTime(date, rules.MorningHours)

	if len(rules.MealHours) == 0 {
		return []TimeSpan{{Start: entry, End: entry.Add(rules.Workday)}}
	}

	mealStart := g.drawTime(date, rules.MealHours)
	if mealStart.Sub(entry) > g.rules.MaxMorning {
		mealStart = entry.Add(g.rules.MaxMorning)
	}
	mealEnd := mealStart.Add(g.rules.MealDuration)
	morning := mealStart.Sub(entry)
	departure := mealEnd.Add(rules.Workday - morning)

	return []TimeSpan{
		{Start: entry, End: mealStart},
		{Start: mealEnd, End: departure},
	}
}

func (g *Generator) drawTime(date time.Time, hours []int) time.Time {
	hour := random.Choice(g.rng, hours)
	minute := random.Choice(g.rng, g.rules.Minutes)
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
}

// ProcessDay plans and submits the given day of the month.
// Holidays are skipped. Overlap conflicts are counted and processing goes on;
// any other submission failure is returned.
func (g *Generator) ProcessDay(ctx context.Context, day int, dryRun bool) (*DayResult, error) {
	date := dateutil.Date(g.year, g.month, day)
	result := &DayResult{Date: date}

	if g.submitter.IsHoliday(date) {
		result.Status = DayStatusHoliday
		g.logger.Info("On holiday, skipping",
			zap.String("date", date.Format(dateutil.DateLayout)))
		return result, nil
	}

	result.Status = DayStatusWorked
	result.Policy = g.Policy(date)
	result.Spans = g.Plan(date, result.Policy)

	g.logger.Info("Day planned",
		zap.String("date", date.Format(dateutil.DateLayout)),
		zap.String("policy", result.Policy.String()),
		zap.Int("spans", len(result.Spans)),
		zap.Bool("dry_run", dryRun))

	if dryRun {
		return result, nil
	}

	for _, span := range result.Spans {
		ok, err := g.submitter.Submit(ctx, span.Start, span.End)
		if err != nil {
			return result, fmt.Errorf("day %s: %w", date.Format(dateutil.DateLayout), err)
		}
		if ok {
			result.Submitted++
		} else {
			result.Conflicts++
		}
	}

	return result, nil
}

// ProcessMonth runs ProcessDay for every Monday-Friday of the month.
// Weekends are always skipped. Stops at the first fatal error.
func (g *Generator) ProcessMonth(ctx context.Context, dryRun bool) (*MonthSummary, error) {
	startTime := time.Now()
	summary := &MonthSummary{Year: g.year, Month: g.month}

	g.logger.Info("Starting month",
		zap.Int("year", g.year),
		zap.Int("month", int(g.month)),
		zap.Bool("dry_run", dryRun))

	for day := 1; day <= dateutil.DaysInMonth(g.year, g.month); day++ {
		date := dateutil.Date(g.year, g.month, day)

		if dateutil.IsWeekend(date) {
			summary.WeekendDays++
			summary.Days = append(summary.Days, DayResult{Date: date, Status: DayStatusWeekend})
			continue
		}

		result, err := g.ProcessDay(ctx, day, dryRun)
		if result != nil {
			summary.add(*result)
		}
		if err != nil {
			summary.Duration = time.Since(startTime)
			return summary, err
		}
	}

	summary.Duration = time.Since(startTime)

	g.logger.Info("Month completed",
		zap.Int("worked_days", summary.WorkedDays),
		zap.Int("holiday_days", summary.HolidayDays),
		zap.Int("submitted_spans", summary.SubmittedSpans),
		zap.Int("conflict_spans", summary.ConflictSpans),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

func (s *MonthSummary) add(r DayResult) {
	s.Days = append(s.Days, r)
	switch r.Status {
	case DayStatusWorked:
		s.WorkedDays++
	case DayStatusHoliday:
		s.HolidayDays++
	}
	s.SubmittedSpans += r.Submitted
	s.ConflictSpans += r.Conflicts
}
