package trace

// Preamble is the per-session calibration record. It is produced once by
// the acquisition source (the scope's waveform preamble) before the first
// acquisition and stays immutable for the rest of the session.
type Preamble struct {
	// TimeResolution is the horizontal resolution in seconds per sample.
	TimeResolution float64 `json:"timeResolution"`

	ScalePar  float64 `json:"scalePar"`
	OffsetPar float64 `json:"offsetPar"`

	ScalePerp  float64 `json:"scalePerp"`
	OffsetPerp float64 `json:"offsetPerp"`

	ScaleRef  float64 `json:"scaleRef"`
	OffsetRef float64 `json:"offsetRef"`

	// Points is the trace length in samples.
	Points uint32 `json:"points"`
}

// TimeAxis builds the time axis for this preamble: t[i] = TimeResolution*i.
func (p Preamble) TimeAxis() []float64 {
	axis := make([]float64, p.Points)
	for i := range axis {
		axis[i] = p.TimeResolution * float64(i)
	}
	return axis
}

// RawAcquisition is a single digitizer read: the three detector channels in
// raw digitizer units plus the pump classification, which the acquisition
// source has already resolved (see scope.ClassifyShutter).
type RawAcquisition struct {
	Par  []float64 `json:"par"`
	Perp []float64 `json:"perp"`
	Ref  []float64 `json:"ref"`

	HasPump bool `json:"hasPump"`
}

// Calibrated is one acquisition converted to physical units, with dark
// current subtracted where configured.
type Calibrated struct {
	Par  []float64 `json:"par"`
	Perp []float64 `json:"perp"`
	Ref  []float64 `json:"ref"`
}

// Derived holds the dA/CD signals computed from one pump/no-pump pair.
type Derived struct {
	DAPar  []float64 `json:"daPar"`
	DAPerp []float64 `json:"daPerp"`
	DACD   []float64 `json:"daCD"`
}

// Snapshot is emitted once per ingested acquisition. The live channels are
// always present; Derived, Average and MeasurementCount are only set when
// this acquisition completed a pump/no-pump pair.
type Snapshot struct {
	Par  []float64 `json:"par"`
	Perp []float64 `json:"perp"`
	Ref  []float64 `json:"ref"`

	Derived *Derived `json:"derived,omitempty"`
	Average *Derived `json:"average,omitempty"`

	// MeasurementCount is the 1-based index of the completed measurement,
	// monotonically increasing within a session. Zero when no pair
	// completed on this ingest.
	MeasurementCount int `json:"measurementCount,omitempty"`
}

// NewDA reports whether this snapshot carries freshly derived signals.
func (s *Snapshot) NewDA() bool { return s.Derived != nil }
