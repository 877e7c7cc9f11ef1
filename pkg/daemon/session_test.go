package daemon

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tracelab/trcd/pkg/config"
	"github.com/tracelab/trcd/pkg/events"
	"github.com/tracelab/trcd/pkg/scope"
	"github.com/tracelab/trcd/pkg/utils/ptr"
)

func setupSessionTest(t *testing.T, raw *config.RawFileConfig) {
	t.Helper()

	conf = config.NewFileFromConfig(raw, filepath.Join(t.TempDir(), "config.json"))

	origSource := newSource
	t.Cleanup(func() {
		newSource = origSource
		sessionMu.Lock()
		currentSession = nil
		sessionMu.Unlock()
	})
}

func waitSessionDone(t *testing.T, sub chan events.Event) events.SessionDoneEvent {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-sub:
			if ev.Name != events.SessionDone {
				continue
			}
			payload, err := events.DecodeAs[events.SessionDoneEvent](ev)
			if err != nil {
				t.Fatalf("failed to decode session.done: %v", err)
			}
			return payload
		case <-deadline:
			t.Fatalf("session did not finish in time")
		}
	}
}

func TestSessionRunsToBudget(t *testing.T) {
	setupSessionTest(t, &config.RawFileConfig{
		MaxMeasurements: ptr.To(3),
		SaveEnabled:     ptr.To(false),
	})
	newSource = func() scope.Source { return &scope.SimSource{Points: 16} }

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	if err := startSession(); err != nil {
		t.Fatalf("startSession failed: %v", err)
	}

	done := waitSessionDone(t, sub)
	if done.Measurements != 3 {
		t.Fatalf("expected 3 measurements, got %d", done.Measurements)
	}
	if done.Reason != "budget reached" {
		t.Fatalf("expected budget reached, got %q", done.Reason)
	}

	if getSessionStatus().Running {
		t.Fatalf("session must not be running after the budget is reached")
	}
}

func TestSessionDoubleStart(t *testing.T) {
	setupSessionTest(t, &config.RawFileConfig{
		MaxMeasurements: ptr.To(100000),
		SaveEnabled:     ptr.To(false),
	})
	newSource = func() scope.Source {
		return &scope.SimSource{Points: 16, Interval: 5 * time.Millisecond}
	}

	if err := startSession(); err != nil {
		t.Fatalf("startSession failed: %v", err)
	}
	if err := startSession(); err != ErrSessionRunning {
		t.Fatalf("expected ErrSessionRunning, got %v", err)
	}

	if err := stopSession(); err != nil {
		t.Fatalf("stopSession failed: %v", err)
	}
	if getSessionStatus().Running {
		t.Fatalf("session must not be running after stop")
	}
}

func TestStopWithoutSession(t *testing.T) {
	setupSessionTest(t, &config.RawFileConfig{})

	if err := stopSession(); err != ErrSessionNotRunning {
		t.Fatalf("expected ErrSessionNotRunning, got %v", err)
	}
	if err := resetAverages(); err != ErrSessionNotRunning {
		t.Fatalf("expected ErrSessionNotRunning, got %v", err)
	}
}

func TestResetAveragesDuringSession(t *testing.T) {
	setupSessionTest(t, &config.RawFileConfig{
		MaxMeasurements: ptr.To(100000),
		SaveEnabled:     ptr.To(false),
	})
	newSource = func() scope.Source {
		return &scope.SimSource{Points: 16, Interval: 5 * time.Millisecond}
	}

	if err := startSession(); err != nil {
		t.Fatalf("startSession failed: %v", err)
	}
	defer func() { _ = stopSession() }()

	if err := resetAverages(); err != nil {
		t.Fatalf("resetAverages failed: %v", err)
	}
}

func TestSessionPreCheck(t *testing.T) {
	setupSessionTest(t, &config.RawFileConfig{
		MaxMeasurements: ptr.To(100000),
		SaveEnabled:     ptr.To(false),
	})
	newSource = func() scope.Source {
		return &scope.SimSource{Points: 16, Interval: 5 * time.Millisecond}
	}

	if err := sessionPreCheck(); err != nil {
		t.Fatalf("precheck must pass when idle: %v", err)
	}

	if err := startSession(); err != nil {
		t.Fatalf("startSession failed: %v", err)
	}
	defer func() { _ = stopSession() }()

	if err := sessionPreCheck(); err != ErrSessionRunning {
		t.Fatalf("precheck must fail while a session runs, got %v", err)
	}
}
