// Package pipeline converts raw digitizer acquisitions into calibrated
// voltage traces, pairs pump and no-pump shots, derives the dA/CD signals
// from each pair and maintains numerically stable running averages until
// the configured measurement budget is reached.
package pipeline

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tracelab/trcd/pkg/trace"
)

var (
	// ErrNoPreamble is returned when an acquisition arrives before the
	// calibration preamble was stored. This is a caller contract
	// violation, not a transient failure.
	ErrNoPreamble = errors.New("no preamble stored")
	// ErrPreambleStored is returned when a second preamble arrives within
	// the same session.
	ErrPreambleStored = errors.New("preamble already stored")
)

// DarkCurrent holds the optional per-channel dark-current constants. A nil
// field leaves the corresponding channel uncompensated.
type DarkCurrent struct {
	Par  *float64
	Perp *float64
	Ref  *float64
}

// Options configures a Pipeline for one measurement session.
type Options struct {
	// MaxMeasurements is the measurement budget. When this many
	// pump/no-pump pairs have completed, the shared stop flag is raised.
	MaxMeasurements int
	DarkCurrent     DarkCurrent
	// Store persists every completed measurement when non-nil.
	Store *Store
}

// Pipeline is the acquisition-pairing and averaging core. It owns the
// buffered pump/no-pump traces and the running averages exclusively; the
// only state it shares with other goroutines is the StopFlag handed to New.
type Pipeline struct {
	mu   sync.Mutex
	opts Options
	stop *StopFlag

	preamble    *trace.Preamble
	withPump    *trace.Calibrated
	withoutPump *trace.Calibrated

	avg          runningAverage
	pendingReset bool

	measurementCount int
}

// New returns a Pipeline for a fresh session. stop may be shared with the
// acquisition source; it is only ever set, never cleared, by the pipeline.
func New(opts Options, stop *StopFlag) *Pipeline {
	if stop == nil {
		stop = &StopFlag{}
	}
	return &Pipeline{opts: opts, stop: stop}
}

// StorePreamble stores the per-session calibration record. It must be
// called exactly once, before the first Ingest.
func (p *Pipeline) StorePreamble(pre trace.Preamble) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.preamble != nil {
		return ErrPreambleStored
	}
	p.preamble = &pre

	logrus.WithFields(logrus.Fields{
		"timeResolution": pre.TimeResolution,
		"points":         pre.Points,
	}).Debug("preamble stored")

	return nil
}

// TimeAxis returns the time axis for the stored preamble, or nil when no
// preamble has been stored yet.
func (p *Pipeline) TimeAxis() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.preamble == nil {
		return nil
	}
	return p.preamble.TimeAxis()
}

// Ingest calibrates one raw acquisition, buffers it by pump classification
// and, when it completes a pump/no-pump pair, derives the dA/CD signals,
// updates the running averages, persists the measurement (when configured)
// and advances the measurement count. A snapshot is returned on every call;
// its derived fields are only set when a pair completed.
func (p *Pipeline) Ingest(raw trace.RawAcquisition) (*trace.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.preamble == nil {
		return nil, ErrNoPreamble
	}

	cal := calibrate(raw, *p.preamble, p.opts.DarkCurrent)

	// Replacement semantics: a same-kind acquisition overwrites the
	// buffered one, so a derivation never mixes stale halves.
	if raw.HasPump {
		if p.withPump != nil {
			logrus.Debug("replacing buffered with-pump acquisition")
		}
		p.withPump = &cal
	} else {
		if p.withoutPump != nil {
			logrus.Debug("replacing buffered without-pump acquisition")
		}
		p.withoutPump = &cal
	}

	snap := &trace.Snapshot{
		Par:  cal.Par,
		Perp: cal.Perp,
		Ref:  cal.Ref,
	}

	if p.withPump == nil || p.withoutPump == nil {
		return snap, nil
	}

	wp, wo := *p.withPump, *p.withoutPump
	p.withPump = nil
	p.withoutPump = nil

	derived := derive(wp, wo)

	p.avg.add(derived, p.pendingReset)
	p.pendingReset = false

	p.measurementCount++

	snap.Derived = &derived
	snap.Average = p.avg.signals()
	snap.MeasurementCount = p.measurementCount

	if p.opts.Store != nil {
		if err := p.opts.Store.WriteMeasurement(p.measurementCount, wp, wo, derived); err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"measurement":  p.measurementCount,
		"averageCount": p.avg.count,
	}).Debug("measurement complete")

	if p.opts.MaxMeasurements > 0 && p.measurementCount >= p.opts.MaxMeasurements {
		p.stop.Set()
		logrus.WithField("measurements", p.measurementCount).Info("measurement budget reached, requesting stop")
	}

	return snap, nil
}

// ResetAverages requests an averaging restart. The reset is deferred: the
// next derived sample replaces the running averages outright and the
// average count restarts at 1. The measurement count is unaffected.
func (p *Pipeline) ResetAverages() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pendingReset = true
	logrus.Debug("average reset pending")
}

// MeasurementCount returns the number of completed pump/no-pump pairs.
func (p *Pipeline) MeasurementCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.measurementCount
}

// AverageCount returns the number of samples in the current averaging
// epoch. It restarts at 1 after a reset; the measurement count does not.
func (p *Pipeline) AverageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.avg.count
}

// calibrate converts one raw acquisition to volts (v*scale + offset per
// channel) and subtracts the configured dark-current constants.
func calibrate(raw trace.RawAcquisition, pre trace.Preamble, dark DarkCurrent) trace.Calibrated {
	return trace.Calibrated{
		Par:  scaleChannel(raw.Par, pre.ScalePar, pre.OffsetPar, dark.Par),
		Perp: scaleChannel(raw.Perp, pre.ScalePerp, pre.OffsetPerp, dark.Perp),
		Ref:  scaleChannel(raw.Ref, pre.ScaleRef, pre.OffsetRef, dark.Ref),
	}
}

func scaleChannel(raw []float64, scale, offset float64, dark *float64) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = v*scale + offset
	}
	if dark != nil {
		for i := range out {
			out[i] -= *dark
		}
	}
	return out
}
