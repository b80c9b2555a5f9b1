package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/username/absence-clockin/internal/absence"
	"github.com/username/absence-clockin/internal/config"
	"github.com/username/absence-clockin/internal/schedule"
	"github.com/username/absence-clockin/pkg/dateutil"
	"github.com/username/absence-clockin/pkg/random"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	configPath string
	cfg        *config.Config
	cfgErr     error
	logger     *zap.Logger
	out        io.Writer = os.Stdout
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clockin",
		Short:         "absence.io attendance filler",
		Long:          "Submit plausible clock-in/clock-out time spans to absence.io, skipping weekends, holidays and approved absences",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: config.yaml in ., $HOME/.absence-clockin, /etc/absence-clockin)")

	rootCmd.AddCommand(monthCmd())
	rootCmd.AddCommand(dayCmd())
	rootCmd.AddCommand(holidaysCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func monthCmd() *cobra.Command {
	var year, month int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "month",
		Short: "Fill every weekday of a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			y, m, err := resolveMonth(year, month)
			if err != nil {
				return err
			}

			cfg, err := loadedConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			session, err := newSession(ctx, cfg, y, m)
			if err != nil {
				return err
			}

			generator := schedule.NewGenerator(y, m, session, schedule.RulesFromConfig(&cfg.Schedule), random.NewSource(), logger)

			outf("⏳ Filling %d-%02d for user %s\n", y, m, session.UserID())
			summary, err := generator.ProcessMonth(ctx, dryRun)
			if summary != nil {
				printMonthSummary(summary, dryRun)
			}
			if err != nil {
				return fmt.Errorf("month run aborted: %w", err)
			}

			if dryRun {
				outln("\n[DRY RUN] No time spans were submitted")
			} else {
				outln("\n✅ Month completed")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Target year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "Target month 1-12 (default: current)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and print spans without submitting them")

	return cmd
}

func dayCmd() *cobra.Command {
	var dateStr string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Fill a single day",
		RunE: func(cmd *cobra.Command, args []string) error {
			date := dateutil.Today()
			if dateStr != "" {
				parsed, err := dateutil.ParseDay(dateStr)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				date = parsed
			}

			if dateutil.IsWeekend(date) {
				outf("🛌 %s is a weekend day, nothing to do\n", date.Format("2006-01-02 Mon"))
				return nil
			}

			cfg, err := loadedConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			session, err := newSession(ctx, cfg, date.Year(), date.Month())
			if err != nil {
				return err
			}

			generator := schedule.NewGenerator(date.Year(), date.Month(), session, schedule.RulesFromConfig(&cfg.Schedule), random.NewSource(), logger)

			result, err := generator.ProcessDay(ctx, date.Day(), dryRun)
			if result != nil {
				printDay(*result, dryRun)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "Target day YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and print spans without submitting them")

	return cmd
}

// setup loads the configuration once per process and initializes the logger from it
func setup() {
	cfg, cfgErr = config.Load(configPath)
	if cfgErr == nil && cfg.Log.File != "" {
		var err error
		logger, err = initFileLogger(cfg.Log.File, cfg.Log.Level)
		if err != nil {
			initLogger("info") // Fallback to console
		}
	} else if cfgErr == nil {
		initLogger(cfg.Log.Level)
	} else {
		initLogger("info")
	}
}

// loadedConfig returns the configuration read by setup
func loadedConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("failed to load config: %w", cfgErr)
	}
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	return cfg, nil
}

// newSession builds the API client from configuration and opens a session for the month
func newSession(ctx context.Context, cfg *config.Config, year int, month time.Month) (*absence.Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client := absence.NewClient(cfg.API.Endpoint, absence.ClientOptions{
		Timeout:           cfg.API.GetTimeout(),
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		OverlapMessage:    cfg.API.OverlapMessage,
		TimezoneName:      cfg.API.TimezoneName,
	}, logger)

	creds := absence.Credentials{Email: cfg.Auth.Email, Password: cfg.Auth.Password}

	session, err := absence.NewSession(ctx, client, creds, cfg.Auth.UserID, year, month, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return session, nil
}

// resolveMonth fills missing --year/--month from today and validates them
func resolveMonth(year, month int) (int, time.Month, error) {
	today := dateutil.Today()
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = int(today.Month())
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("--month must be between 1 and 12, got %d", month)
	}
	return year, time.Month(month), nil
}

func printMonthSummary(summary *schedule.MonthSummary, dryRun bool) {
	outf("\n📋 Summary %d-%02d:\n", summary.Year, summary.Month)
	outln("═══════════════════════════════════════════════════════")
	for _, day := range summary.Days {
		if day.Status == schedule.DayStatusWeekend {
			continue
		}
		printDay(day, dryRun)
	}
	outln("───────────────────────────────────────────────────────")
	outf("  Worked days:     %d\n", summary.WorkedDays)
	outf("  Days off:        %d\n", summary.HolidayDays)
	outf("  Weekend days:    %d\n", summary.WeekendDays)
	outf("  Submitted spans: %d\n", summary.SubmittedSpans)
	outf("  Skipped spans:   %d (already registered)\n", summary.ConflictSpans)
	outf("  Took:            %s\n", summary.Duration.Round(time.Millisecond))
}

func printDay(day schedule.DayResult, dryRun bool) {
	if day.Status != schedule.DayStatusWorked {
		outf("  %s  %s\n", day.Date.Format("2006-01-02 Mon"), day.Status)
		return
	}

	outf("  %s  %-8s", day.Date.Format("2006-01-02 Mon"), day.Policy)
	for _, span := range day.Spans {
		outf("  %s-%s", span.Start.Format("15:04"), span.End.Format("15:04"))
	}
	if !dryRun && day.Conflicts > 0 {
		outf("  (%d already registered)", day.Conflicts)
	}
	outln()
}

func outf(format string, a ...interface{}) {
	fmt.Fprintf(out, format, a...)
}

func outln(a ...interface{}) {
	fmt.Fprintln(out, a...)
}

func initLogger(level string) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	}

	var err error
	logger, err = zapConfig.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
}

func initFileLogger(logFile string, level string) (*zap.Logger, error) {
	// Setup lumberjack for log rotation
	logWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,  // MB
		MaxBackups: 3,    // Keep max 3 old log files
		MaxAge:     28,   // days
		Compress:   true, // Compress old logs with gzip
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(logWriter),
		zapLevel,
	)

	return zap.New(core), nil
}
