package pipeline

import (
	"math"
	"testing"

	"github.com/tracelab/trcd/pkg/trace"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func testPreamble() trace.Preamble {
	return trace.Preamble{
		TimeResolution: 20e-9,
		ScalePar:       1.0,
		ScalePerp:      1.0,
		ScaleRef:       1.0,
		Points:         1000,
	}
}

func flat(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func acquisition(par, perp, ref float64, hasPump bool) trace.RawAcquisition {
	return trace.RawAcquisition{
		Par:     flat(par, 100),
		Perp:    flat(perp, 100),
		Ref:     flat(ref, 100),
		HasPump: hasPump,
	}
}

func newTestPipeline(t *testing.T, opts Options) (*Pipeline, *StopFlag) {
	t.Helper()
	stop := &StopFlag{}
	p := New(opts, stop)
	if err := p.StorePreamble(testPreamble()); err != nil {
		t.Fatalf("StorePreamble failed: %v", err)
	}
	return p, stop
}

func TestIngestBeforePreamble(t *testing.T) {
	p := New(Options{}, nil)
	if _, err := p.Ingest(acquisition(1, 1, 1, true)); err != ErrNoPreamble {
		t.Fatalf("expected ErrNoPreamble, got %v", err)
	}
}

func TestDoublePreamble(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})
	if err := p.StorePreamble(testPreamble()); err != ErrPreambleStored {
		t.Fatalf("expected ErrPreambleStored, got %v", err)
	}
}

func TestTimeAxis(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})
	axis := p.TimeAxis()
	if len(axis) != 1000 {
		t.Fatalf("expected 1000 points, got %d", len(axis))
	}
	if axis[0] != 0 {
		t.Fatalf("axis must start at 0, got %v", axis[0])
	}
	if !almostEqual(axis[1], 20e-9) {
		t.Fatalf("expected 20ns step, got %v", axis[1])
	}
}

func TestSingleAcquisitionIsPending(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	snap, err := p.Ingest(acquisition(1, 1, 1, false))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if snap.NewDA() {
		t.Fatalf("single acquisition must not derive")
	}
	if p.MeasurementCount() != 0 {
		t.Fatalf("expected count 0, got %d", p.MeasurementCount())
	}
}

func TestDoublePumpReplaces(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	if _, err := p.Ingest(acquisition(1, 1, 1, true)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	snap, err := p.Ingest(acquisition(2, 1, 1, true))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if snap.NewDA() {
		t.Fatalf("two same-kind acquisitions must not derive")
	}
	if p.MeasurementCount() != 0 {
		t.Fatalf("expected count 0, got %d", p.MeasurementCount())
	}

	// The replacement (par=2) must win: pairing with an all-ones no-pump
	// shot yields da_par = -log10(2), not 0.
	snap, err = p.Ingest(acquisition(1, 1, 1, false))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !snap.NewDA() {
		t.Fatalf("completed pair must derive")
	}
	want := -math.Log10(2)
	if !almostEqual(snap.Derived.DAPar[0], want) {
		t.Fatalf("expected da_par %v from replaced acquisition, got %v", want, snap.Derived.DAPar[0])
	}
}

func TestDoubleNoPumpReplaces(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	if _, err := p.Ingest(acquisition(1, 1, 1, false)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	snap, err := p.Ingest(acquisition(2, 1, 1, false))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if snap.NewDA() {
		t.Fatalf("two same-kind acquisitions must not derive")
	}
	if p.MeasurementCount() != 0 {
		t.Fatalf("expected count 0, got %d", p.MeasurementCount())
	}
}

func TestDarkCurrentCompensation(t *testing.T) {
	dark := 0.5
	p, _ := newTestPipeline(t, Options{DarkCurrent: DarkCurrent{Par: &dark}})

	snap, err := p.Ingest(acquisition(1, 1, 1, false))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	mean := 0.0
	for _, v := range snap.Par {
		mean += v
	}
	mean /= float64(len(snap.Par))
	if !almostEqual(mean, 0.5) {
		t.Fatalf("expected par mean 0.5 after dark-current subtraction, got %v", mean)
	}

	// Other channels are untouched.
	if !almostEqual(snap.Perp[0], 1.0) || !almostEqual(snap.Ref[0], 1.0) {
		t.Fatalf("perp/ref must not be compensated: %v %v", snap.Perp[0], snap.Ref[0])
	}
}

func TestAllOnesPairDerivesZero(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	if _, err := p.Ingest(acquisition(1, 1, 1, true)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	snap, err := p.Ingest(acquisition(1, 1, 1, false))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if !snap.NewDA() {
		t.Fatalf("completed pair must derive")
	}
	if snap.MeasurementCount != 1 {
		t.Fatalf("expected measurement count 1, got %d", snap.MeasurementCount)
	}
	for i := range snap.Derived.DAPar {
		if !almostEqual(snap.Derived.DAPar[i], 0) ||
			!almostEqual(snap.Derived.DAPerp[i], 0) ||
			!almostEqual(snap.Derived.DACD[i], 0) {
			t.Fatalf("identical pump/no-pump shots must derive zero at %d: %v %v %v",
				i, snap.Derived.DAPar[i], snap.Derived.DAPerp[i], snap.Derived.DACD[i])
		}
	}
}

func TestSlotsClearAfterDerive(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	if _, err := p.Ingest(acquisition(1, 1, 1, true)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if _, err := p.Ingest(acquisition(1, 1, 1, false)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	// A lone follow-up shot must be pending again, not paired with a
	// stale half.
	snap, err := p.Ingest(acquisition(1, 1, 1, true))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if snap.NewDA() {
		t.Fatalf("slots must be cleared after a derivation")
	}
}

func TestOrderDoesNotMatter(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	if _, err := p.Ingest(acquisition(1, 1, 1, false)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	snap, err := p.Ingest(acquisition(1, 1, 1, true))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !snap.NewDA() {
		t.Fatalf("no-pump then pump must also complete a pair")
	}
}

func TestStopFlagAtBudget(t *testing.T) {
	p, stop := newTestPipeline(t, Options{MaxMeasurements: 1})

	if stop.Stopped() {
		t.Fatalf("stop flag must start cleared")
	}
	if _, err := p.Ingest(acquisition(1, 1, 1, true)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if stop.Stopped() {
		t.Fatalf("stop flag must stay cleared before the pair completes")
	}
	if _, err := p.Ingest(acquisition(1, 1, 1, false)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !stop.Stopped() {
		t.Fatalf("stop flag must be set once the budget is reached")
	}
}

// ingestPair feeds one pump/no-pump pair with the given sample value on
// every channel and returns the completing snapshot.
func ingestPair(t *testing.T, p *Pipeline, v float64) *trace.Snapshot {
	t.Helper()
	if _, err := p.Ingest(acquisition(v, v, 1, true)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	snap, err := p.Ingest(acquisition(1, 1, 1, false))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !snap.NewDA() {
		t.Fatalf("pair did not derive")
	}
	return snap
}

func TestAverageOfIdenticalSamples(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	var last *trace.Snapshot
	for i := 0; i < 5; i++ {
		last = ingestPair(t, p, 2)
	}

	want := -math.Log10(2)
	for i := range last.Average.DAPar {
		if !almostEqual(last.Average.DAPar[i], want) {
			t.Fatalf("average of identical samples must equal the sample: got %v want %v", last.Average.DAPar[i], want)
		}
	}
	if p.AverageCount() != 5 {
		t.Fatalf("expected average count 5, got %d", p.AverageCount())
	}
}

func TestAverageOfTwoValues(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	ingestPair(t, p, 2)
	snap := ingestPair(t, p, 4)

	v1 := -math.Log10(2)
	v2 := -math.Log10(4)
	want := (v1 + v2) / 2
	if !almostEqual(snap.Average.DAPar[0], want) {
		t.Fatalf("expected average %v, got %v", want, snap.Average.DAPar[0])
	}
}

func TestSnapshotAverageIsFrozen(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	held := ingestPair(t, p, 2)
	want := held.Average.DAPar[0]

	// Later ingests keep folding into the accumulator; a snapshot handed
	// out earlier must not change under the caller.
	ingestPair(t, p, 8)

	if !almostEqual(held.Average.DAPar[0], want) {
		t.Fatalf("held snapshot average changed after a later ingest: was %v, now %v", want, held.Average.DAPar[0])
	}
	if !almostEqual(held.Average.DAPerp[0], want) || !almostEqual(held.Average.DACD[0], 0) {
		t.Fatalf("held snapshot perp/cd averages changed: %v %v", held.Average.DAPerp[0], held.Average.DACD[0])
	}
}

func TestResetAverages(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	ingestPair(t, p, 2)
	ingestPair(t, p, 2)
	p.ResetAverages()

	snap := ingestPair(t, p, 4)
	want := -math.Log10(4)
	if !almostEqual(snap.Average.DAPar[0], want) {
		t.Fatalf("average after reset must equal the next sample: got %v want %v", snap.Average.DAPar[0], want)
	}
	if p.AverageCount() != 1 {
		t.Fatalf("average count must restart at 1, got %d", p.AverageCount())
	}
	// The measurement budget counter keeps climbing.
	if p.MeasurementCount() != 3 {
		t.Fatalf("measurement count must be unaffected by a reset, got %d", p.MeasurementCount())
	}
}

func TestZeroReferenceRecovery(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	raw := acquisition(1, 1, 1, true)
	raw.Ref[10] = 0
	if _, err := p.Ingest(raw); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	snap, err := p.Ingest(acquisition(1, 1, 1, false))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if !snap.NewDA() {
		t.Fatalf("pair did not derive")
	}
	for i, v := range snap.Derived.DAPar {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("da_par[%d] must be finite after epsilon recovery, got %v", i, v)
		}
	}
	for i, v := range snap.Derived.DAPerp {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("da_perp[%d] must be finite after epsilon recovery, got %v", i, v)
		}
	}
}

func TestZeroReferenceBothSides(t *testing.T) {
	p, _ := newTestPipeline(t, Options{})

	wp := acquisition(1, 1, 1, true)
	wp.Ref[0] = 0
	wo := acquisition(1, 1, 1, false)
	wo.Ref[0] = 0

	if _, err := p.Ingest(wp); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	snap, err := p.Ingest(wo)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	// Both references recover to the same epsilon; the ratios cancel.
	if !almostEqual(snap.Derived.DAPar[0], 0) {
		t.Fatalf("matched epsilon recovery must cancel, got %v", snap.Derived.DAPar[0])
	}
}
