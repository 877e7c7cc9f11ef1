package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tracelab/trcd/pkg/client"
	"github.com/tracelab/trcd/pkg/config"
)

type statusData struct {
	session *client.SessionStatus
	config  *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	session, err := apiClient.GetSession()
	if err != nil {
		return nil, fmt.Errorf("failed to get session status: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		session: session,
		config:  conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of trcd",
		Long:    `Get trcd session status and configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Get various info first.
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			conf := config.NewFileFromConfig(data.config, "")

			// Session status.
			cmd.Println(bold("Session status:"))

			cmd.Println("  Running: " + bool2Text(data.session.Running))
			if data.session.Running {
				if data.session.StartedAt != "" {
					cmd.Printf("  Started at: %s\n", bold("%s", data.session.StartedAt))
				}
				cmd.Printf("  Measurements: %s\n", bold("%d / %d", data.session.MeasurementCount, data.session.MaxMeasurements))
				cmd.Printf("  Samples in average: %s\n", bold("%d", data.session.AverageCount))
				if data.session.MeasurementCount != data.session.AverageCount {
					cmd.Println("    The averages were reset during this session; the measurement budget keeps counting.")
				}
			} else {
				cmd.Println("    Start one with \"trcd start\".")
			}

			cmd.Println()

			// Config.
			cmd.Println(bold("Configuration:"))
			cmd.Printf("  Measurement budget: %s\n", bold("%d", conf.MaxMeasurements()))
			cmd.Println("  Save measurements: " + bool2Text(conf.SaveEnabled()))
			if conf.SaveEnabled() {
				cmd.Printf("    Destination: %s (cleared when a session starts)\n", bold("%s", conf.SaveDir()))
			}
			if par, perp, ref := conf.DarkCurrentPar(), conf.DarkCurrentPerp(), conf.DarkCurrentRef(); par != nil || perp != nil || ref != nil {
				cmd.Println("  Dark-current compensation: " + bool2Text(true))
				if par != nil {
					cmd.Printf("    par:  %s\n", bold("%g V", *par))
				}
				if perp != nil {
					cmd.Printf("    perp: %s\n", bold("%g V", *perp))
				}
				if ref != nil {
					cmd.Printf("    ref:  %s\n", bold("%g V", *ref))
				}
			} else {
				cmd.Println("  Dark-current compensation: " + bool2Text(false))
			}
			if broker := conf.MQTTBroker(); broker != "" {
				cmd.Printf("  MQTT bridge: %s (topic %s)\n", bold("%s", broker), bold("%s", conf.MQTTTopic()))
			}
			cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
			return nil
		},
	}
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
