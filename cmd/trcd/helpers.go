package main

import (
	"fmt"
	"strconv"

	"github.com/tracelab/trcd/pkg/client"
	"github.com/tracelab/trcd/pkg/version"
)

// apiClient is bound in PersistentPreRunE, after the --daemon-socket flag
// has been parsed.
var apiClient *client.Client

func parseIntArg(args []string, valueName string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

func parseFloatArg(arg, valueName string) (float64, error) {
	value, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

// getVersion returns the client version and the daemon version.
func getVersion() (string, string, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}
