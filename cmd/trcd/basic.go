package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tracelab/trcd/pkg/client"
	"github.com/tracelab/trcd/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Short:   "Start a measurement session",
		GroupID: gBasic,
		Long: `Start a measurement session.

The daemon acquires pump/no-pump pairs until the measurement budget (see 'trcd max-measurements') is reached or the session is stopped. If saving is enabled, the destination directory is cleared before the first acquisition.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.StartSession()
			if err != nil {
				return fmt.Errorf("failed to start session: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully started a measurement session")

			return nil
		},
	}
}

func NewStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "stop",
		Short:   "Stop the running measurement session",
		GroupID: gBasic,
		Long: `Stop the running measurement session.

The acquisition in flight is finished before the session ends, so no partial pair is ever recorded.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.StopSession()
			if err != nil {
				return fmt.Errorf("failed to stop session: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully stopped the measurement session")

			return nil
		},
	}
}

func NewResetAveragesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "reset-averages",
		Aliases: []string{"reset"},
		Short:   "Restart the running averages",
		GroupID: gBasic,
		Long: `Restart the running averages of the current session.

The reset takes effect on the next completed pump/no-pump pair: its signals replace the averages and the average count restarts at 1. The measurement budget counter is unaffected.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.ResetAverages()
			if err != nil {
				return fmt.Errorf("failed to reset averages: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			return nil
		},
	}
}

func NewMaxMeasurementsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "max-measurements [count]",
		Short:   "Set the measurement budget",
		GroupID: gBasic,
		Long: `Set the measurement budget.

A session stops automatically once this many pump/no-pump pairs have completed. Takes effect on the next session.`,
		RunE: func(_ *cobra.Command, args []string) error {
			m, err := parseIntArg(args, "max measurements")
			if err != nil {
				return err
			}

			ret, err := apiClient.SetMaxMeasurements(m)
			if err != nil {
				return fmt.Errorf("failed to set max measurements: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully set max measurements to %d", m)

			return nil
		},
	}
}

func NewDarkCurrentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dark-current [par] [perp] [ref]",
		Short:   "Set per-channel dark-current constants",
		GroupID: gAdvanced,
		Long: `Set the per-channel dark-current constants, in volts.

The constants are subtracted from the calibrated traces of the corresponding channels. Run with no arguments to disable compensation on all channels. Measure the constants with the probe beam blocked.`,
		Example: `  trcd dark-current 0.013 0.011 0.009
  trcd dark-current           (disable compensation)`,
		RunE: func(_ *cobra.Command, args []string) error {
			var d client.DarkCurrent

			if len(args) != 0 {
				if len(args) != 3 {
					return fmt.Errorf("expected 3 values (par, perp, ref) or none, got %d", len(args))
				}
				par, err := parseFloatArg(args[0], "par dark current")
				if err != nil {
					return err
				}
				perp, err := parseFloatArg(args[1], "perp dark current")
				if err != nil {
					return err
				}
				ref, err := parseFloatArg(args[2], "ref dark current")
				if err != nil {
					return err
				}
				d = client.DarkCurrent{Par: &par, Perp: &perp, Ref: &ref}
			}

			ret, err := apiClient.SetDarkCurrent(d)
			if err != nil {
				return fmt.Errorf("failed to set dark current: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			if len(args) == 0 {
				logrus.Infof("successfully disabled dark-current compensation")
			} else {
				logrus.Infof("successfully set dark-current constants")
			}

			return nil
		},
	}

	return cmd
}

func NewSaveCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:     "save",
		Short:   "Enable or disable measurement persistence",
		GroupID: gAdvanced,
		Long: `Enable or disable measurement persistence.

When enabled, every completed measurement is written to its own subdirectory of the destination, named by the 1-based measurement index. The destination is cleared when a session starts.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Enable measurement persistence",
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := apiClient.SetSave(true, dir)
				if err != nil {
					return fmt.Errorf("failed to enable saving: %v", err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Infof("successfully enabled measurement persistence")
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Disable measurement persistence",
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := apiClient.SetSave(false, "")
				if err != nil {
					return fmt.Errorf("failed to disable saving: %v", err)
				}
				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Infof("successfully disabled measurement persistence")
				return nil
			},
		},
	)

	cmd.PersistentFlags().StringVar(&dir, "dir", "", "destination directory (keeps the configured one when empty)")

	return cmd
}
