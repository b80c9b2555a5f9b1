package schedule

import (
	"time"

	"github.com/username/absence-clockin/internal/config"
)

// WorkdayPolicy decides the shape of a worked day
type WorkdayPolicy int

const (
	// PolicyStandard is a split day: morning, unpaid meal break, afternoon
	PolicyStandard WorkdayPolicy = iota + 1
	// PolicyReduced is a single continuous span with no meal break (Fridays, summer)
	PolicyReduced
)

// String returns a human readable label
func (p WorkdayPolicy) String() string {
	switch p {
	case PolicyStandard:
		return "standard"
	case PolicyReduced:
		return "reduced"
	default:
		return "unknown"
	}
}

// PolicyRules holds the random choice sets and length of one kind of day
type PolicyRules struct {
	MorningHours []int
	MealHours    []int // empty: no meal break is submitted
	Workday      time.Duration
}

// Rules is the complete table driving the generator
type Rules struct {
	Policies     map[WorkdayPolicy]PolicyRules
	Minutes      []int
	MealDuration time.Duration
	MaxMorning   time.Duration // cap on entry -> meal start
	SummerMonths []time.Month
}

// DefaultRules returns the stock schedule: standard days start at 8 or 9,
// break for lunch between 13 and 15 and work 8h15m; reduced days start at 8
// and work 7h straight.
func DefaultRules() Rules {
	return Rules{
		Policies: map[WorkdayPolicy]PolicyRules{
			PolicyStandard: {
				MorningHours: []int{8, 9},
				MealHours:    []int{13, 14, 15},
				Workday:      8*time.Hour + 15*time.Minute,
			},
			PolicyReduced: {
				MorningHours: []int{8},
				Workday:      7 * time.Hour,
			},
		},
		Minutes:      []int{0, 10, 20, 30, 40, 50},
		MealDuration: time.Hour,
		MaxMorning:   6 * time.Hour,
		SummerMonths: []time.Month{time.July, time.August},
	}
}

// RulesFromConfig builds the rules table from validated configuration
func RulesFromConfig(cfg *config.ScheduleConfig) Rules {
	summer := make([]time.Month, 0, len(cfg.SummerMonths))
	for _, m := range cfg.SummerMonths {
		summer = append(summer, time.Month(m))
	}

	return Rules{
		Policies: map[WorkdayPolicy]PolicyRules{
			PolicyStandard: {
				MorningHours: cfg.StandardMorningHours,
				MealHours:    cfg.MealHours,
				Workday:      cfg.GetStandardWorkday(),
			},
			PolicyReduced: {
				MorningHours: cfg.ReducedMorningHours,
				Workday:      cfg.GetReducedWorkday(),
			},
		},
		Minutes:      cfg.Minutes,
		MealDuration: cfg.GetMealDuration(),
		MaxMorning:   cfg.GetMaxMorning(),
		SummerMonths: summer,
	}
}

// PolicyFor returns PolicyReduced on Fridays and in summer months
func (r Rules) PolicyFor(date time.Time) WorkdayPolicy {
	if date.Weekday() == time.Friday || r.isSummer(date.Month()) {
		return PolicyReduced
	}
	return PolicyStandard
}

func (r Rules) isSummer(month time.Month) bool {
	for _, m := range r.SummerMonths {
		if m == month {
			return true
		}
	}
	return false
}
