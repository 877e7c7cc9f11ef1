package scope

import "testing"

func TestClassifyShutter(t *testing.T) {
	cases := []struct {
		name    string
		shutter []float64
		want    bool
	}{
		{"open", []float64{5, 5, 5, 5}, true},
		{"closed", []float64{0, 0, 0, 0}, false},
		{"noisy open", []float64{4.8, 5.1, 4.9, 5.0}, true},
		{"noisy closed", []float64{0.1, -0.05, 0.2, 0.0}, false},
		{"exact midpoint", []float64{2.5, 2.5}, false},
		{"empty", nil, false},
	}

	for _, c := range cases {
		if got := ClassifyShutter(c.shutter); got != c.want {
			t.Fatalf("%s: ClassifyShutter = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSimSourceAlternates(t *testing.T) {
	src := NewSimSource()

	pre, err := src.Preamble()
	if err != nil {
		t.Fatalf("Preamble failed: %v", err)
	}
	if pre.Points != 1000 {
		t.Fatalf("expected 1000 points, got %d", pre.Points)
	}

	for i := 0; i < 6; i++ {
		raw, err := src.Acquire()
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		wantPump := i%2 == 0
		if raw.HasPump != wantPump {
			t.Fatalf("shot %d: HasPump = %v, want %v", i, raw.HasPump, wantPump)
		}
		if len(raw.Par) != 1000 || len(raw.Perp) != 1000 || len(raw.Ref) != 1000 {
			t.Fatalf("shot %d: unexpected trace lengths %d/%d/%d", i, len(raw.Par), len(raw.Perp), len(raw.Ref))
		}
	}
}

func TestSimSourcePumpShotDiffers(t *testing.T) {
	src := NewSimSource()

	pumped, err := src.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	unpumped, err := src.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if pumped.Par[0] >= unpumped.Par[0] {
		t.Fatalf("pump shot must carry a bleach on par: %v vs %v", pumped.Par[0], unpumped.Par[0])
	}
	if pumped.Ref[0] != unpumped.Ref[0] {
		t.Fatalf("reference must be identical across shots")
	}
}
