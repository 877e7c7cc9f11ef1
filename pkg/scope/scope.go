// Package scope abstracts the digitizer that produces raw acquisitions.
// Real hardware and the built-in simulator both satisfy Source; the rest
// of the system never talks to an instrument directly.
package scope

import "github.com/tracelab/trcd/pkg/trace"

// shutterThreshold separates the open and closed shutter voltage levels.
// The monitor photodiode sits near 0V closed and near 5V open, so anything
// above the midpoint counts as open.
const shutterThreshold = 2.5

// Source produces calibration preambles and raw acquisitions. Preamble is
// called once per session, before the first Acquire; implementations may
// block in Acquire until the instrument triggers.
type Source interface {
	// Preamble reads the per-session calibration record.
	Preamble() (trace.Preamble, error)
	// Acquire reads one triggered acquisition with its pump classification
	// already resolved.
	Acquire() (trace.RawAcquisition, error)
}

// ClassifyShutter resolves the pump classification from the shutter monitor
// trace: the shot had the pump when the mean monitor voltage is above the
// open/closed midpoint. An empty trace classifies as no pump.
func ClassifyShutter(shutter []float64) bool {
	if len(shutter) == 0 {
		return false
	}
	sum := 0.0
	for _, v := range shutter {
		sum += v
	}
	return sum/float64(len(shutter)) > shutterThreshold
}
