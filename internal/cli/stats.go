package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"focusflow/backend/internal/config"
	"focusflow/backend/internal/db"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a focus report for a user",
	Long: `Print a focus report for a user straight from the database.

The report covers the last seven calendar days plus streaks and a
suggested next session type.

Examples:
  focusd stats --email dev@example.com
  focusd stats --email dev@example.com --tz Europe/Rome`,
	RunE: runStats,
}

var (
	statsEmail string
	statsTZ    string
)

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsEmail, "email", "", "Email of the user to report on")
	statsCmd.Flags().StringVar(&statsTZ, "tz", "", "IANA timezone for day boundaries (overrides DEFAULT_TZ)")
	_ = statsCmd.MarkFlagRequired("email")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	tzName := cfg.DefaultTimezone
	if statsTZ != "" {
		tzName = statsTZ
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return fmt.Errorf("unknown timezone %q", tzName)
	}

	users := repository.NewUserRepository(database)
	user, err := users.GetByEmail(ctx, statsEmail)
	if err != nil {
		return fmt.Errorf("look up user %s: %w", statsEmail, err)
	}

	records, err := repository.NewRecordStore(database).AllSessionRecords(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load session records: %w", err)
	}

	week := stats.Weekly(records, time.Now().In(loc), loc)

	fmt.Printf("Focus report for %s (%s)\n\n", user.Email, loc)
	fmt.Printf("Week %s to %s\n", week.From, week.To)
	fmt.Printf("  Sessions completed: %d\n", week.SessionsCompleted)
	fmt.Printf("  Focus time:         %s\n", time.Duration(week.TotalFocusSeconds)*time.Second)
	if week.AverageFocusQuality > 0 {
		fmt.Printf("  Average quality:    %.1f\n", week.AverageFocusQuality)
	}
	for _, day := range week.DailyBreakdown {
		fmt.Printf("    %s  %2d sessions  %s\n", day.Date, day.SessionsCompleted, time.Duration(day.FocusSeconds)*time.Second)
	}

	fmt.Printf("\nStreak: %d days (longest %d)\n", stats.CurrentStreak(records, loc), stats.LongestStreak(records, loc))

	peak := stats.PeakProductivityHour(records, loc)
	if peak.SampleCount > 0 {
		fmt.Printf("Peak hour: %02d:00 (avg quality %.1f over %d rated sessions)\n", peak.Hour, peak.AverageQuality, peak.SampleCount)
	}

	rec := stats.Recommend(records)
	fmt.Printf("Suggested next session: %s (%s)\n", rec.Type, rec.Reason)
	return nil
}
