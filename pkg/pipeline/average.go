package pipeline

import "github.com/tracelab/trcd/pkg/trace"

// runningAverage maintains the incremental arithmetic mean of the derived
// signals. The online recurrence is preferred over sum-then-divide so the
// average can be read at any point without a finalize step and without
// accumulating a large sum.
type runningAverage struct {
	count  int
	daPar  []float64
	daPerp []float64
	daCD   []float64
}

// add folds one derived sample into the average. When reset is true (or on
// the very first sample of an epoch) the sample replaces the average and
// the count restarts at 1.
func (a *runningAverage) add(d trace.Derived, reset bool) {
	if reset || a.count == 0 {
		a.count = 1
		a.daPar = append([]float64(nil), d.DAPar...)
		a.daPerp = append([]float64(nil), d.DAPerp...)
		a.daCD = append([]float64(nil), d.DACD...)
		return
	}

	a.count++
	keep := float64(a.count-1) / float64(a.count)
	take := 1.0 / float64(a.count)
	for i := range a.daPar {
		a.daPar[i] = keep*a.daPar[i] + take*d.DAPar[i]
		a.daPerp[i] = keep*a.daPerp[i] + take*d.DAPerp[i]
		a.daCD[i] = keep*a.daCD[i] + take*d.DACD[i]
	}
}

// signals returns the current averages as a Derived, or nil before the
// first sample. The slices are copied: the accumulator keeps mutating in
// place on later samples, and returned snapshots must stay frozen.
func (a *runningAverage) signals() *trace.Derived {
	if a.count == 0 {
		return nil
	}
	return &trace.Derived{
		DAPar:  append([]float64(nil), a.daPar...),
		DAPerp: append([]float64(nil), a.daPerp...),
		DACD:   append([]float64(nil), a.daCD...),
	}
}
