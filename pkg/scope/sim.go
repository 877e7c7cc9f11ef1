package scope

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tracelab/trcd/pkg/trace"
)

// SimSource is a deterministic stand-in for the digitizer: it alternates
// pump and no-pump shots and synthesizes a small absorbance transient on
// the pump shots, so the derived signals are non-trivial but repeatable.
type SimSource struct {
	// Points is the trace length. Defaults to 1000.
	Points uint32
	// Interval is the simulated trigger period. Zero means no delay.
	Interval time.Duration

	shot int
}

// NewSimSource returns a simulator with the default trace length.
func NewSimSource() *SimSource {
	return &SimSource{Points: 1000}
}

// Preamble returns a fixed calibration record matching the simulated
// digitizer: 20ns horizontal resolution, unity vertical scale.
func (s *SimSource) Preamble() (trace.Preamble, error) {
	points := s.Points
	if points == 0 {
		points = 1000
	}
	return trace.Preamble{
		TimeResolution: 20e-9,
		ScalePar:       1.0,
		ScalePerp:      1.0,
		ScaleRef:       1.0,
		Points:         points,
	}, nil
}

// Acquire synthesizes the next shot. Shots alternate pump/no-pump starting
// with pump; the classification goes through ClassifyShutter exactly like a
// hardware shutter monitor trace would.
func (s *SimSource) Acquire() (trace.RawAcquisition, error) {
	if s.Interval > 0 {
		time.Sleep(s.Interval)
	}

	points := int(s.Points)
	if points == 0 {
		points = 1000
	}

	pumped := s.shot%2 == 0
	s.shot++

	shutterLevel := 0.0
	if pumped {
		shutterLevel = 5.0
	}
	shutter := make([]float64, points)
	for i := range shutter {
		shutter[i] = shutterLevel
	}

	raw := trace.RawAcquisition{
		Par:     make([]float64, points),
		Perp:    make([]float64, points),
		Ref:     make([]float64, points),
		HasPump: ClassifyShutter(shutter),
	}

	for i := 0; i < points; i++ {
		raw.Par[i] = 1.0
		raw.Perp[i] = 1.0
		raw.Ref[i] = 1.0
		if pumped {
			// Exponentially decaying bleach on the parallel channel.
			raw.Par[i] -= 0.05 * math.Exp(-float64(i)/float64(points)*4)
		}
	}

	logrus.WithFields(logrus.Fields{
		"shot":    s.shot,
		"hasPump": raw.HasPump,
	}).Trace("simulated acquisition")

	return raw, nil
}
