package events

import "encoding/json"

// Event name constants
const (
	// Snapshot is published once per ingested acquisition.
	Snapshot = "snapshot"
	// SessionStarted is published when a measurement session begins.
	SessionStarted = "session.started"
	// SessionDone is published when the acquisition loop exits.
	SessionDone = "session.done"
	// AveragesReset is published when an average reset was requested.
	AveragesReset = "averages.reset"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// SessionStartedEvent is the typed payload for session.started.
type SessionStartedEvent struct {
	MaxMeasurements int     `json:"maxMeasurements"`
	Points          uint32  `json:"points"`
	TimeResolution  float64 `json:"timeResolution"`
	Ts              int64   `json:"ts"`
}

// SessionDoneEvent is the typed payload for session.done.
type SessionDoneEvent struct {
	Measurements int    `json:"measurements"`
	Reason       string `json:"reason"`
	Ts           int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.SessionDoneEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Measurements, payload.Reason)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
