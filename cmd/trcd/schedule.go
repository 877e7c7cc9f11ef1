package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule [cron-expression]",
		Aliases: []string{"sch", "sche", "sched"},
		Short:   "Manage the automatic session schedule",
		Long: `Manage the automatic measurement session schedule.

The schedule command can be used in multiple ways:
  trcd schedule 'minute hour day month weekday' Set schedule with cron expression
  trcd schedule disable                         Disable the schedule
  trcd schedule postpone [duration]             Postpone next run
  trcd schedule skip                            Skip next run`,
		Example: `  trcd schedule '0 22 * * *'   (every day at 22:00)
  trcd schedule '@every 6h'    (every six hours)`,
		GroupID: gAdvanced,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ret, err := apiClient.SetSchedule(args[0])
			if err != nil {
				return fmt.Errorf("failed to set schedule: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully scheduled sessions")

			return nil
		},
	}

	cmd.AddCommand(
		newScheduleDisableCommand(),
		newSchedulePostponeCommand(),
		newScheduleSkipCommand(),
	)

	return cmd
}

func newScheduleDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable the session schedule",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.SetSchedule("")
			if err != nil {
				return fmt.Errorf("failed to disable schedule: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully disabled the session schedule")

			return nil
		},
	}
}

func newSchedulePostponeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "postpone [duration]",
		Short: "Postpone the next scheduled session",
		Example: `  trcd schedule postpone      (postpone by 1 hour)
  trcd schedule postpone 90m  (postpone by 90 minutes)`,
		Long: `Postpone the next scheduled session by a specified duration.
If no duration is provided, defaults to 1 hour.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			d := time.Hour // default
			if len(args) > 0 {
				parsed, err := time.ParseDuration(args[0])
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", args[0], err)
				}
				d = parsed
			}

			ret, err := apiClient.PostponeSchedule(int(d.Minutes()))
			if err != nil {
				return fmt.Errorf("failed to postpone schedule: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			return nil
		},
	}
}

func newScheduleSkipCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Skip the next scheduled session",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.SkipSchedule()
			if err != nil {
				return fmt.Errorf("failed to skip next session: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			return nil
		},
	}
}
