package main

import (
	"github.com/spf13/cobra"
	"github.com/username/absence-clockin/pkg/dateutil"
)

func holidaysCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Show days off (national holidays and approved absences) for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			y, m, err := resolveMonth(year, month)
			if err != nil {
				return err
			}

			cfg, err := loadedConfig()
			if err != nil {
				return err
			}

			session, err := newSession(cmd.Context(), cfg, y, m)
			if err != nil {
				return err
			}

			days := session.HolidayDays()

			outf("\n🏖  Days off %d-%02d (user %s):\n", y, m, session.UserID())
			outln("═══════════════════════════════════════════════════════")
			if len(days) == 0 {
				outln("  none")
			}
			for _, day := range days {
				outf("  %s  %s\n", day.Date.Format("2006-01-02 Mon"), day.Type)
			}
			outln("───────────────────────────────────────────────────────")
			outf("  National holidays: %d\n", len(session.NationalHolidays()))
			outf("  Total days off:    %d\n", len(days))

			workdays := 0
			for d := 1; d <= dateutil.DaysInMonth(y, m); d++ {
				date := dateutil.Date(y, m, d)
				if dateutil.IsWeekday(date) && !session.IsHoliday(date) {
					workdays++
				}
			}
			outf("  Days to fill:      %d\n", workdays)

			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Target year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "Target month 1-12 (default: current)")

	return cmd
}
