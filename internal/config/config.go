package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig represents absence.io API configuration
type APIConfig struct {
	Endpoint          string  `mapstructure:"endpoint"`
	Timeout           string  `mapstructure:"timeout"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	OverlapMessage    string  `mapstructure:"overlap_message"` // body of the 412 answer for overlapping spans
	TimezoneName      string  `mapstructure:"timezone_name"`
}

// AuthConfig holds credentials. Populated from ABSENCE_EMAIL, ABSENCE_PASS and USER_ID.
type AuthConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	UserID   string `mapstructure:"user_id"` // optional override of the resolved identity
}

// ScheduleConfig represents the randomization tables for generated workdays
type ScheduleConfig struct {
	StandardMorningHours []int  `mapstructure:"standard_morning_hours"`
	ReducedMorningHours  []int  `mapstructure:"reduced_morning_hours"`
	MealHours            []int  `mapstructure:"meal_hours"`
	Minutes              []int  `mapstructure:"minutes"`
	StandardWorkday      string `mapstructure:"standard_workday"`
	ReducedWorkday       string `mapstructure:"reduced_workday"`
	MealDuration         string `mapstructure:"meal_duration"`
	MaxMorning           string `mapstructure:"max_morning"`
	SummerMonths         []int  `mapstructure:"summer_months"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.endpoint", "https://app.absence.io/api")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.requests_per_second", 2.0)
	v.SetDefault("api.overlap_message", "Los registros no se pueden solapar")
	v.SetDefault("api.timezone_name", "hora de verano de Europa central")

	v.SetDefault("schedule.standard_morning_hours", []int{8, 9})
	v.SetDefault("schedule.reduced_morning_hours", []int{8})
	v.SetDefault("schedule.meal_hours", []int{13, 14, 15})
	v.SetDefault("schedule.minutes", []int{0, 10, 20, 30, 40, 50})
	v.SetDefault("schedule.standard_workday", "8h15m")
	v.SetDefault("schedule.reduced_workday", "7h")
	v.SetDefault("schedule.meal_duration", "1h")
	v.SetDefault("schedule.max_morning", "6h")
	v.SetDefault("schedule.summer_months", []int{7, 8})

	v.SetDefault("log.level", "info")
}

// Load loads configuration from an optional file and the environment
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.absence-clockin")
		v.AddConfigPath("/etc/absence-clockin")
	}

	// Credentials keep their historical variable names
	_ = v.BindEnv("auth.email", "ABSENCE_EMAIL")
	_ = v.BindEnv("auth.password", "ABSENCE_PASS")
	_ = v.BindEnv("auth.user_id", "USER_ID")
	_ = v.BindEnv("api.endpoint", "ABSENCE_API_ENDPOINT")
	_ = v.BindEnv("log.level", "LOG_LEVEL")

	// Read config file; without an explicit path a missing file is fine
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.Endpoint == "" {
		return fmt.Errorf("api.endpoint is required")
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second must not be negative")
	}

	if c.Auth.Email == "" {
		return fmt.Errorf("auth.email is required (ABSENCE_EMAIL)")
	}
	if c.Auth.Password == "" {
		return fmt.Errorf("auth.password is required (ABSENCE_PASS)")
	}

	return c.Schedule.Validate()
}

// Validate checks the randomization tables for consistency
func (s *ScheduleConfig) Validate() error {
	if len(s.StandardMorningHours) == 0 || len(s.ReducedMorningHours) == 0 {
		return fmt.Errorf("schedule morning hours must not be empty")
	}
	if len(s.MealHours) == 0 {
		return fmt.Errorf("schedule.meal_hours must not be empty")
	}
	if len(s.Minutes) == 0 {
		return fmt.Errorf("schedule.minutes must not be empty")
	}

	for _, m := range s.Minutes {
		if m < 0 || m > 59 {
			return fmt.Errorf("schedule.minutes: %d out of range 0-59", m)
		}
	}
	for _, h := range append(append(append([]int{}, s.StandardMorningHours...), s.ReducedMorningHours...), s.MealHours...) {
		if h < 0 || h > 23 {
			return fmt.Errorf("schedule hour %d out of range 0-23", h)
		}
	}
	if maxInt(s.StandardMorningHours) >= minInt(s.MealHours) {
		return fmt.Errorf("schedule.meal_hours must start after every standard morning hour")
	}
	for _, m := range s.SummerMonths {
		if m < 1 || m > 12 {
			return fmt.Errorf("schedule.summer_months: %d is not a month", m)
		}
	}

	for name, raw := range map[string]string{
		"standard_workday": s.StandardWorkday,
		"reduced_workday":  s.ReducedWorkday,
		"meal_duration":    s.MealDuration,
		"max_morning":      s.MaxMorning,
	} {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("schedule.%s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("schedule.%s must be positive", name)
		}
	}

	// The afternoon span lasts standard_workday minus the morning, so it is
	// only positive while the morning cap stays below the workday.
	if s.GetMaxMorning() >= s.GetStandardWorkday() {
		return fmt.Errorf("schedule.max_morning (%s) must be shorter than schedule.standard_workday (%s)",
			s.MaxMorning, s.StandardWorkday)
	}

	// Spans must end on the day they start. A standard day leaves at
	// entry + meal_duration + standard_workday whatever the meal hour.
	latestMinute := time.Duration(maxInt(s.Minutes)) * time.Minute
	standardEnd := time.Duration(maxInt(s.StandardMorningHours))*time.Hour + latestMinute +
		s.GetMealDuration() + s.GetStandardWorkday()
	if standardEnd >= 24*time.Hour {
		return fmt.Errorf("schedule: latest standard day would end at %s, past midnight", standardEnd)
	}
	reducedEnd := time.Duration(maxInt(s.ReducedMorningHours))*time.Hour + latestMinute + s.GetReducedWorkday()
	if reducedEnd >= 24*time.Hour {
		return fmt.Errorf("schedule: latest reduced day would end at %s, past midnight", reducedEnd)
	}

	return nil
}

// GetTimeout returns the HTTP client timeout
func (c *APIConfig) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return 30 * time.Second
	}
	duration, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return duration
}

// GetStandardWorkday returns the worked length of a standard day, meal excluded
func (s *ScheduleConfig) GetStandardWorkday() time.Duration {
	return parseDurationOr(s.StandardWorkday, 8*time.Hour+15*time.Minute)
}

// GetReducedWorkday returns the length of a reduced day
func (s *ScheduleConfig) GetReducedWorkday() time.Duration {
	return parseDurationOr(s.ReducedWorkday, 7*time.Hour)
}

// GetMealDuration returns the unpaid meal break length
func (s *ScheduleConfig) GetMealDuration() time.Duration {
	return parseDurationOr(s.MealDuration, time.Hour)
}

// GetMaxMorning returns the cap on the morning segment
func (s *ScheduleConfig) GetMaxMorning() time.Duration {
	return parseDurationOr(s.MaxMorning, 6*time.Hour)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return duration
}

func minInt(values []int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxInt(values []int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
