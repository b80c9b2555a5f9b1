package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/username/absence-clockin/internal/config"
	"github.com/username/absence-clockin/pkg/dateutil"
	"github.com/username/absence-clockin/pkg/random"
	"go.uber.org/zap"
)

// scriptedSource returns preset indices in order
type scriptedSource struct {
	indices []int
	calls   int
}

func (s *scriptedSource) Intn(n int) int {
	idx := s.indices[s.calls%len(s.indices)]
	s.calls++
	return idx % n
}

// fakeSubmitter records submissions; failOn makes the n-th call (1-based) fail
type fakeSubmitter struct {
	holidays  map[string]bool
	conflicts map[string]bool // days answered with false
	failOn    int
	calls     []TimeSpan
}

func newFakeSubmitter(holidays ...string) *fakeSubmitter {
	f := &fakeSubmitter{holidays: make(map[string]bool), conflicts: make(map[string]bool)}
	for _, h := range holidays {
		f.holidays[h] = true
	}
	return f
}

func (f *fakeSubmitter) IsHoliday(date time.Time) bool {
	return f.holidays[date.Format(dateutil.DateLayout)]
}

func (f *fakeSubmitter) Submit(ctx context.Context, start, end time.Time) (bool, error) {
	f.calls = append(f.calls, TimeSpan{Start: start, End: end})
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return false, errors.New("service unavailable")
	}
	if f.IsHoliday(start) {
		return false, nil
	}
	if f.conflicts[start.Format(dateutil.DateLayout)] {
		return false, nil
	}
	return true, nil
}

func clock(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
}

func TestGenerator_Policy(t *testing.T) {
	g := NewGenerator(2021, time.February, newFakeSubmitter(), DefaultRules(), random.NewSource(), zap.NewNop())

	tests := []struct {
		name string
		date time.Time
		want WorkdayPolicy
	}{
		{"Thursday in February", dateutil.Date(2021, time.February, 11), PolicyStandard},
		{"Friday in February", dateutil.Date(2021, time.February, 12), PolicyReduced},
		{"Monday in July", dateutil.Date(2021, time.July, 5), PolicyReduced},
		{"Wednesday in August", dateutil.Date(2019, time.August, 14), PolicyReduced},
		{"Monday in September", dateutil.Date(2019, time.September, 2), PolicyStandard},
		{"Tuesday in June", dateutil.Date(2021, time.June, 29), PolicyStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Policy(tt.date); got != tt.want {
				t.Errorf("Policy(%s) = %v, want %v", tt.date.Format("2006-01-02 Mon"), got, tt.want)
			}
		})
	}
}

func TestGenerator_PlanClampsMorning(t *testing.T) {
	// entry 08:00 (hour idx 0, minute idx 0), meal drawn 15:40 (hour idx 2, minute idx 4)
	src := &scriptedSource{indices: []int{0, 0, 2, 4}}
	g := NewGenerator(2021, time.February, newFakeSubmitter(), DefaultRules(), src, zap.NewNop())

	date := dateutil.Date(2021, time.February, 11)
	spans := g.Plan(date, PolicyStandard)

	if len(spans) != 2 {
		t.Fatalf("Plan() returned %d spans, want 2", len(spans))
	}

	want := []TimeSpan{
		{Start: clock(date, 8, 0), End: clock(date, 14, 0)},
		{Start: clock(date, 15, 0), End: clock(date, 17, 15)},
	}
	for i := range want {
		if !spans[i].Start.Equal(want[i].Start) || !spans[i].End.Equal(want[i].End) {
			t.Errorf("span %d = %s-%s, want %s-%s", i,
				spans[i].Start.Format("15:04"), spans[i].End.Format("15:04"),
				want[i].Start.Format("15:04"), want[i].End.Format("15:04"))
		}
	}
}

func TestGenerator_PlanWithoutClamp(t *testing.T) {
	// entry 09:30, meal 13:20
	src := &scriptedSource{indices: []int{1, 3, 0, 2}}
	g := NewGenerator(2021, time.February, newFakeSubmitter(), DefaultRules(), src, zap.NewNop())

	date := dateutil.Date(2021, time.February, 10)
	spans := g.Plan(date, PolicyStandard)

	if !spans[0].Start.Equal(clock(date, 9, 30)) || !spans[0].End.Equal(clock(date, 13, 20)) {
		t.Errorf("morning = %s-%s, want 09:30-13:20",
			spans[0].Start.Format("15:04"), spans[0].End.Format("15:04"))
	}
	// 14:20 + 8h15m - 3h50m
	if !spans[1].Start.Equal(clock(date, 14, 20)) || !spans[1].End.Equal(clock(date, 18, 45)) {
		t.Errorf("afternoon = %s-%s, want 14:20-18:45",
			spans[1].Start.Format("15:04"), spans[1].End.Format("15:04"))
	}
	if worked := spans[0].Duration() + spans[1].Duration(); worked != 8*time.Hour+15*time.Minute {
		t.Errorf("worked = %v, want 8h15m", worked)
	}
}

func TestGenerator_PlanStandardInvariants(t *testing.T) {
	g := NewGenerator(2021, time.February, newFakeSubmitter(), DefaultRules(), random.NewSource(), zap.NewNop())
	date := dateutil.Date(2021, time.February, 11)

	for i := 0; i < 1000; i++ {
		spans := g.Plan(date, PolicyStandard)

		if len(spans) != 2 {
			t.Fatalf("Plan() returned %d spans, want 2", len(spans))
		}

		entry, mealStart := spans[0].Start, spans[0].End
		mealEnd, departure := spans[1].Start, spans[1].End

		if h := entry.Hour(); h != 8 && h != 9 {
			t.Fatalf("entry hour = %d, want 8 or 9", h)
		}
		if entry.Minute()%10 != 0 {
			t.Fatalf("entry minute = %d, want multiple of 10", entry.Minute())
		}
		if mealStart.Sub(entry) > 6*time.Hour {
			t.Fatalf("morning = %v, want <= 6h", mealStart.Sub(entry))
		}
		if mealEnd.Sub(mealStart) != time.Hour {
			t.Fatalf("meal = %v, want exactly 1h", mealEnd.Sub(mealStart))
		}
		if worked := spans[0].Duration() + spans[1].Duration(); worked != 8*time.Hour+15*time.Minute {
			t.Fatalf("worked = %v, want 8h15m", worked)
		}
		if !dateutil.IsSameDay(entry, departure) || !departure.After(mealEnd) {
			t.Fatalf("departure %v not after meal end %v on the same day", departure, mealEnd)
		}
	}
}

func TestGenerator_PlanReducedInvariants(t *testing.T) {
	g := NewGenerator(2021, time.February, newFakeSubmitter(), DefaultRules(), random.NewSource(), zap.NewNop())
	date := dateutil.Date(2021, time.February, 12)

	for i := 0; i < 500; i++ {
		spans := g.Plan(date, PolicyReduced)

		if len(spans) != 1 {
			t.Fatalf("Plan() returned %d spans, want 1", len(spans))
		}
		if spans[0].Start.Hour() != 8 {
			t.Fatalf("entry hour = %d, want 8", spans[0].Start.Hour())
		}
		if spans[0].Duration() != 7*time.Hour {
			t.Fatalf("duration = %v, want 7h", spans[0].Duration())
		}
	}
}

func TestGenerator_ProcessDay(t *testing.T) {
	tests := []struct {
		name       string
		day        int
		holidays   []string
		wantStatus DayStatus
		wantPolicy WorkdayPolicy
		wantCalls  int
	}{
		{"Thursday is standard", 11, nil, DayStatusWorked, PolicyStandard, 2},
		{"Friday is reduced", 12, nil, DayStatusWorked, PolicyReduced, 1},
		{"Holiday is skipped", 15, []string{"2021-02-15"}, DayStatusHoliday, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newFakeSubmitter(tt.holidays...)
			g := NewGenerator(2021, time.February, sub, DefaultRules(), random.NewSource(), zap.NewNop())

			result, err := g.ProcessDay(context.Background(), tt.day, false)
			if err != nil {
				t.Fatalf("ProcessDay() error = %v", err)
			}

			if result.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", result.Status, tt.wantStatus)
			}
			if result.Policy != tt.wantPolicy {
				t.Errorf("Policy = %v, want %v", result.Policy, tt.wantPolicy)
			}
			if len(sub.calls) != tt.wantCalls {
				t.Errorf("Submit called %d times, want %d", len(sub.calls), tt.wantCalls)
			}
			if result.Submitted != tt.wantCalls {
				t.Errorf("Submitted = %d, want %d", result.Submitted, tt.wantCalls)
			}
		})
	}
}

func TestGenerator_ProcessDayDryRun(t *testing.T) {
	sub := newFakeSubmitter()
	g := NewGenerator(2021, time.February, sub, DefaultRules(), random.NewSource(), zap.NewNop())

	result, err := g.ProcessDay(context.Background(), 11, true)
	if err != nil {
		t.Fatalf("ProcessDay() error = %v", err)
	}

	if len(result.Spans) != 2 {
		t.Errorf("Spans = %d, want 2", len(result.Spans))
	}
	if len(sub.calls) != 0 {
		t.Errorf("dry run submitted %d spans, want 0", len(sub.calls))
	}
}

func TestGenerator_ProcessMonth(t *testing.T) {
	// February 2021 starts on a Monday: 20 weekdays, 4 of them Fridays
	sub := newFakeSubmitter("2021-02-15")
	g := NewGenerator(2021, time.February, sub, DefaultRules(), random.NewSource(), zap.NewNop())

	summary, err := g.ProcessMonth(context.Background(), false)
	if err != nil {
		t.Fatalf("ProcessMonth() error = %v", err)
	}

	if summary.WeekendDays != 8 {
		t.Errorf("WeekendDays = %d, want 8", summary.WeekendDays)
	}
	if summary.HolidayDays != 1 {
		t.Errorf("HolidayDays = %d, want 1", summary.HolidayDays)
	}
	if summary.WorkedDays != 19 {
		t.Errorf("WorkedDays = %d, want 19", summary.WorkedDays)
	}
	// 4 Fridays x 1 span + 15 other days x 2 spans
	if summary.SubmittedSpans != 34 {
		t.Errorf("SubmittedSpans = %d, want 34", summary.SubmittedSpans)
	}
	if len(summary.Days) != 28 {
		t.Errorf("Days = %d, want 28", len(summary.Days))
	}

	for _, span := range sub.calls {
		if dateutil.IsWeekend(span.Start) {
			t.Errorf("span submitted on weekend %s", span.Start.Format("2006-01-02 Mon"))
		}
		if sub.IsHoliday(span.Start) {
			t.Errorf("span submitted on holiday %s", span.Start.Format(dateutil.DateLayout))
		}
	}
}

func TestGenerator_ProcessMonthSummer(t *testing.T) {
	// August 2019 with days 10..31 off: only 1..9 remain, weekdays 1,2,5,6,7,8,9
	holidays := []string{}
	for day := 10; day <= 31; day++ {
		holidays = append(holidays, dateutil.Date(2019, time.August, day).Format(dateutil.DateLayout))
	}
	sub := newFakeSubmitter(holidays...)
	g := NewGenerator(2019, time.August, sub, DefaultRules(), random.NewSource(), zap.NewNop())

	summary, err := g.ProcessMonth(context.Background(), false)
	if err != nil {
		t.Fatalf("ProcessMonth() error = %v", err)
	}

	if summary.WorkedDays != 7 {
		t.Errorf("WorkedDays = %d, want 7", summary.WorkedDays)
	}
	if len(sub.calls) != 7 {
		t.Errorf("Submit called %d times, want 7 (one reduced span per day)", len(sub.calls))
	}
	for _, span := range sub.calls {
		if span.Duration() != 7*time.Hour {
			t.Errorf("summer span %s lasts %v, want 7h", span.Start.Format(dateutil.DateLayout), span.Duration())
		}
	}
}

func TestGenerator_ProcessMonthConflictsContinue(t *testing.T) {
	sub := newFakeSubmitter()
	sub.conflicts["2021-02-01"] = true
	sub.conflicts["2021-02-02"] = true
	g := NewGenerator(2021, time.February, sub, DefaultRules(), random.NewSource(), zap.NewNop())

	summary, err := g.ProcessMonth(context.Background(), false)
	if err != nil {
		t.Fatalf("ProcessMonth() error = %v", err)
	}

	if summary.ConflictSpans != 4 {
		t.Errorf("ConflictSpans = %d, want 4", summary.ConflictSpans)
	}
	// 4 Fridays x 1 + 16 other days x 2 = 36 spans attempted
	if len(sub.calls) != 36 {
		t.Errorf("Submit called %d times, want 36", len(sub.calls))
	}
	if summary.SubmittedSpans != 32 {
		t.Errorf("SubmittedSpans = %d, want 32", summary.SubmittedSpans)
	}
}

func TestGenerator_ProcessMonthAbortsOnError(t *testing.T) {
	sub := newFakeSubmitter()
	sub.failOn = 3 // first span of Tuesday 2021-02-02
	g := NewGenerator(2021, time.February, sub, DefaultRules(), random.NewSource(), zap.NewNop())

	summary, err := g.ProcessMonth(context.Background(), false)
	if err == nil {
		t.Fatal("ProcessMonth() expected error, got nil")
	}

	if len(sub.calls) != 3 {
		t.Errorf("Submit called %d times after failure, want 3", len(sub.calls))
	}
	if summary.SubmittedSpans != 2 {
		t.Errorf("SubmittedSpans = %d, want 2", summary.SubmittedSpans)
	}
}

func TestRulesFromConfig(t *testing.T) {
	cfg := &config.ScheduleConfig{
		StandardMorningHours: []int{7},
		ReducedMorningHours:  []int{7},
		MealHours:            []int{12},
		Minutes:              []int{15},
		StandardWorkday:      "8h",
		ReducedWorkday:       "6h",
		MealDuration:         "30m",
		MaxMorning:           "5h",
		SummerMonths:         []int{6},
	}
	rules := RulesFromConfig(cfg)

	if rules.PolicyFor(dateutil.Date(2021, time.June, 1)) != PolicyReduced {
		t.Error("June should be reduced with summer_months [6]")
	}
	if rules.PolicyFor(dateutil.Date(2021, time.July, 6)) != PolicyStandard {
		t.Error("July should be standard with summer_months [6]")
	}

	g := NewGenerator(2021, time.March, newFakeSubmitter(), rules, random.NewSource(), zap.NewNop())
	date := dateutil.Date(2021, time.March, 2)
	spans := g.Plan(date, PolicyStandard)

	// 07:15 entry, 12:15 meal start (5h exactly), 12:45 meal end, departure 12:45 + 8h - 5h
	want := []TimeSpan{
		{Start: clock(date, 7, 15), End: clock(date, 12, 15)},
		{Start: clock(date, 12, 45), End: clock(date, 15, 45)},
	}
	for i := range want {
		if !spans[i].Start.Equal(want[i].Start) || !spans[i].End.Equal(want[i].End) {
			t.Errorf("span %d = %s-%s, want %s-%s", i,
				spans[i].Start.Format("15:04"), spans[i].End.Format("15:04"),
				want[i].Start.Format("15:04"), want[i].End.Format("15:04"))
		}
	}

	reduced := g.Plan(date, PolicyReduced)
	if len(reduced) != 1 || reduced[0].Duration() != 6*time.Hour {
		t.Errorf("reduced plan = %v, want one 6h span", reduced)
	}
}
