package commands

import (
	"fmt"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"log/slog"

	"github.com/spf13/cobra"
)

var runOnStart bool

func init() {
	daemonCmd.Flags().BoolVar(&runOnStart, "now", false, "Also run every scheduled check once on startup.")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Runs the checks on their cron schedules until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := loadApp()
		if err != nil {
			return err
		}
		a.Close()

		cron := chrono.NewStandardCron(a.time, a.tel)
		schedule := a.config.Schedule

		var jobs []func()
		if schedule.Grades != "" {
			job := func() {
				// failures are reported by the checker itself
				_ = runCheck(ctx, "grades")
			}
			err = cron.Cron(schedule.Grades, job)
			if err != nil {
				return fmt.Errorf("grades schedule: %w", err)
			}
			jobs = append(jobs, job)
		}
		if schedule.Content != "" {
			job := func() {
				_ = runCheck(ctx, "content")
			}
			err = cron.Cron(schedule.Content, job)
			if err != nil {
				return fmt.Errorf("content schedule: %w", err)
			}
			jobs = append(jobs, job)
		}
		if len(jobs) == 0 {
			return fmt.Errorf("nothing to schedule, set schedule.grades or schedule.content")
		}

		telemetry.InstrumentPerfStats(ctx)
		if runOnStart {
			for _, job := range jobs {
				job()
			}
		}

		slog.Info("daemon started", "grades", schedule.Grades, "content", schedule.Content, "timezone", a.time.Location().String())
		cron.Run(ctx)
		slog.Info("daemon stopped")
		return nil
	},
}
