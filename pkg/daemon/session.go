package daemon

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tracelab/trcd/pkg/events"
	"github.com/tracelab/trcd/pkg/pipeline"
	"github.com/tracelab/trcd/pkg/scope"
	"github.com/tracelab/trcd/pkg/trace"
)

var ErrSessionRunning = &sessionError{"session already running"}
var ErrSessionNotRunning = &sessionError{"no session running"}

type sessionError struct{ msg string }

func (e *sessionError) Error() string { return e.msg }

// session is one measurement run: a source, a pipeline and the acquisition
// loop goroutine connecting them. Everything is set up before the loop
// starts; afterwards only the stop flag and lastSnapshot are touched.
type session struct {
	source scope.Source
	pipe   *pipeline.Pipeline
	stop   *pipeline.StopFlag

	startedAt time.Time
	done      chan struct{}

	lastSnapshot *trace.Snapshot
}

var (
	sessionMu      = &sync.Mutex{}
	currentSession *session
)

// SessionStatus is the wire representation of the running (or idle) session.
type SessionStatus struct {
	Running          bool      `json:"running"`
	StartedAt        time.Time `json:"startedAt,omitempty"`
	MeasurementCount int       `json:"measurementCount"`
	AverageCount     int       `json:"averageCount"`
	MaxMeasurements  int       `json:"maxMeasurements"`
	SaveEnabled      bool      `json:"saveEnabled"`
	SaveDir          string    `json:"saveDir,omitempty"`
}

// sessionPreCheck is the scheduler health check: a scheduled session must
// not preempt a running one.
func sessionPreCheck() error {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if currentSession != nil {
		return ErrSessionRunning
	}
	return nil
}

// startSession builds a pipeline from the current config and starts the
// acquisition loop. The destination directory is cleared first when saving
// is enabled.
func startSession() error {
	sessionMu.Lock()
	defer sessionMu.Unlock()

	if currentSession != nil {
		return ErrSessionRunning
	}

	opts := pipeline.Options{
		MaxMeasurements: conf.MaxMeasurements(),
		DarkCurrent: pipeline.DarkCurrent{
			Par:  conf.DarkCurrentPar(),
			Perp: conf.DarkCurrentPerp(),
			Ref:  conf.DarkCurrentRef(),
		},
	}

	if conf.SaveEnabled() {
		dir := conf.SaveDir()
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		store := pipeline.NewStore(dir)
		if err := store.Prepare(); err != nil {
			return err
		}
		opts.Store = store
	}

	src := newSource()
	stop := &pipeline.StopFlag{}
	pipe := pipeline.New(opts, stop)

	pre, err := src.Preamble()
	if err != nil {
		return err
	}
	if err := pipe.StorePreamble(pre); err != nil {
		return err
	}

	s := &session{
		source:    src,
		pipe:      pipe,
		stop:      stop,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	currentSession = s

	started := events.SessionStartedEvent{
		MaxMeasurements: opts.MaxMeasurements,
		Points:          pre.Points,
		TimeResolution:  pre.TimeResolution,
		Ts:              time.Now().Unix(),
	}
	hub.Publish(events.SessionStarted, started)
	publishMQTTEvent(events.SessionStarted, started)

	logrus.WithFields(logrus.Fields{
		"maxMeasurements": opts.MaxMeasurements,
		"points":          pre.Points,
		"saveEnabled":     opts.Store != nil,
	}).Info("session started")

	go acquisitionLoop(s)

	return nil
}

// acquisitionLoop drives the source until a stop is requested. The stop
// flag is checked after every acquisition, so the loop always finishes the
// shot in flight before exiting.
func acquisitionLoop(s *session) {
	reason := "stopped"

	for !s.stop.Stopped() {
		raw, err := s.source.Acquire()
		if err != nil {
			logrus.Errorf("acquisition failed: %v", err)
			reason = err.Error()
			s.stop.Set()
			break
		}

		snap, err := s.pipe.Ingest(raw)
		if err != nil {
			logrus.Errorf("ingest failed: %v", err)
			reason = err.Error()
			s.stop.Set()
			break
		}

		sessionMu.Lock()
		s.lastSnapshot = snap
		sessionMu.Unlock()

		hub.Publish(events.Snapshot, snap)
		if snap.NewDA() {
			publishMQTTSnapshot(snap)
		}
	}

	measurements := s.pipe.MeasurementCount()
	if reason == "stopped" && conf.MaxMeasurements() > 0 && measurements >= conf.MaxMeasurements() {
		reason = "budget reached"
	}

	sessionMu.Lock()
	currentSession = nil
	sessionMu.Unlock()

	done := events.SessionDoneEvent{
		Measurements: measurements,
		Reason:       reason,
		Ts:           time.Now().Unix(),
	}
	hub.Publish(events.SessionDone, done)
	publishMQTTEvent(events.SessionDone, done)

	logrus.WithFields(logrus.Fields{
		"measurements": measurements,
		"reason":       reason,
	}).Info("session finished")

	close(s.done)
}

// stopSession raises the stop flag and waits for the acquisition loop to
// finish its current shot and exit.
func stopSession() error {
	sessionMu.Lock()
	s := currentSession
	sessionMu.Unlock()

	if s == nil {
		return ErrSessionNotRunning
	}

	s.stop.Set()
	<-s.done
	return nil
}

// resetAverages requests an averaging restart on the running session.
func resetAverages() error {
	sessionMu.Lock()
	s := currentSession
	sessionMu.Unlock()

	if s == nil {
		return ErrSessionNotRunning
	}

	s.pipe.ResetAverages()
	hub.Publish(events.AveragesReset, nil)
	return nil
}

func getSessionStatus() *SessionStatus {
	sessionMu.Lock()
	s := currentSession
	sessionMu.Unlock()

	status := &SessionStatus{
		MaxMeasurements: conf.MaxMeasurements(),
		SaveEnabled:     conf.SaveEnabled(),
	}
	if status.SaveEnabled {
		status.SaveDir = conf.SaveDir()
	}

	if s == nil {
		return status
	}

	status.Running = true
	status.StartedAt = s.startedAt
	status.MeasurementCount = s.pipe.MeasurementCount()
	status.AverageCount = s.pipe.AverageCount()
	return status
}

// latestSnapshot returns the most recent snapshot of the running session,
// or nil when idle or before the first acquisition.
func latestSnapshot() *trace.Snapshot {
	sessionMu.Lock()
	defer sessionMu.Unlock()

	if currentSession == nil {
		return nil
	}
	return currentSession.lastSnapshot
}

// sessionTimeAxis returns the time axis of the running session, or nil.
func sessionTimeAxis() []float64 {
	sessionMu.Lock()
	s := currentSession
	sessionMu.Unlock()

	if s == nil {
		return nil
	}
	return s.pipe.TimeAxis()
}
