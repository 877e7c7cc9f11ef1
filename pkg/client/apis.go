package client

import (
	"encoding/json"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/tracelab/trcd/pkg/config"
	"github.com/tracelab/trcd/pkg/trace"
)

func (c *Client) SetMaxMeasurements(m int) (string, error) {
	return c.Put("/max-measurements", strconv.Itoa(m))
}

func (c *Client) GetMaxMeasurements() (int, error) {
	ret, err := c.Get("/max-measurements")
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to get max measurements")
	}
	m, err := strconv.Atoi(ret)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to unmarshal max measurements")
	}
	return m, nil
}

// DarkCurrent mirrors the daemon's dark-current request: a nil field
// disables compensation for that channel.
type DarkCurrent struct {
	Par  *float64 `json:"par"`
	Perp *float64 `json:"perp"`
	Ref  *float64 `json:"ref"`
}

func (c *Client) SetDarkCurrent(d DarkCurrent) (string, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return c.Put("/dark-current", string(payload))
}

type saveRequest struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir,omitempty"`
}

func (c *Client) SetSave(enabled bool, dir string) (string, error) {
	payload, err := json.Marshal(saveRequest{Enabled: enabled, Dir: dir})
	if err != nil {
		return "", err
	}
	return c.Put("/save", string(payload))
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	// Remove "" around JSON string. I don't want to use a JSON decoder just for this.
	ret = ret[1 : len(ret)-1] // remove the surrounding quotes
	return ret, nil
}

// ===== Session APIs =====

// SessionStatus mirrors the daemon's session status response.
type SessionStatus struct {
	Running          bool   `json:"running"`
	StartedAt        string `json:"startedAt,omitempty"`
	MeasurementCount int    `json:"measurementCount"`
	AverageCount     int    `json:"averageCount"`
	MaxMeasurements  int    `json:"maxMeasurements"`
	SaveEnabled      bool   `json:"saveEnabled"`
	SaveDir          string `json:"saveDir,omitempty"`
}

func (c *Client) GetSession() (*SessionStatus, error) {
	ret, err := c.Get("/session")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get session status")
	}

	var st SessionStatus
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal session status")
	}

	return &st, nil
}

func (c *Client) StartSession() (string, error) {
	return c.Send("POST", "/session/start", "")
}

func (c *Client) StopSession() (string, error) {
	return c.Send("POST", "/session/stop", "")
}

func (c *Client) ResetAverages() (string, error) {
	return c.Send("POST", "/session/reset-averages", "")
}

func (c *Client) GetSnapshot() (*trace.Snapshot, error) {
	ret, err := c.Get("/snapshot")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get snapshot")
	}

	var snap trace.Snapshot
	if err := json.Unmarshal([]byte(ret), &snap); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal snapshot")
	}

	return &snap, nil
}

func (c *Client) GetTimeAxis() ([]float64, error) {
	ret, err := c.Get("/time-axis")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get time axis")
	}

	var axis []float64
	if err := json.Unmarshal([]byte(ret), &axis); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal time axis")
	}

	return axis, nil
}

// ===== Schedule APIs =====

func (c *Client) SetSchedule(cronExpr string) (string, error) {
	payload, err := json.Marshal(cronExpr)
	if err != nil {
		return "", err
	}
	return c.Put("/schedule", string(payload))
}

func (c *Client) PostponeSchedule(minutes int) (string, error) {
	return c.Send("POST", "/schedule/postpone", strconv.Itoa(minutes))
}

func (c *Client) SkipSchedule() (string, error) {
	return c.Send("POST", "/schedule/skip", "")
}
