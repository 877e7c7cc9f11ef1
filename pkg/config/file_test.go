package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tracelab/trcd/pkg/utils/ptr"
)

func TestDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trcd.json")

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	if f.MaxMeasurements() != 1000 {
		t.Fatalf("expected default max measurements 1000, got %d", f.MaxMeasurements())
	}
	if f.SaveEnabled() {
		t.Fatalf("saving must be disabled by default")
	}
	if f.DarkCurrentPar() != nil || f.DarkCurrentPerp() != nil || f.DarkCurrentRef() != nil {
		t.Fatalf("dark-current compensation must be disabled by default")
	}
	if f.MQTTBroker() != "" {
		t.Fatalf("mqtt bridge must be disabled by default, got %q", f.MQTTBroker())
	}
	if f.MQTTTopic() != "trcd/snapshot" {
		t.Fatalf("unexpected default mqtt topic %q", f.MQTTTopic())
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trcd.json")

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	f.SetMaxMeasurements(250)
	f.SetDarkCurrentPar(ptr.To(0.013))
	f.SetSaveEnabled(true)
	f.SetSaveDir("/data/run1")
	if err := f.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	g, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed on reload: %v", err)
	}

	if g.MaxMeasurements() != 250 {
		t.Fatalf("expected max measurements 250, got %d", g.MaxMeasurements())
	}
	if v := g.DarkCurrentPar(); v == nil || *v != 0.013 {
		t.Fatalf("dark current par did not roundtrip: %v", v)
	}
	if g.DarkCurrentPerp() != nil {
		t.Fatalf("unset dark current perp must stay nil")
	}
	if !g.SaveEnabled() || g.SaveDir() != "/data/run1" {
		t.Fatalf("save settings did not roundtrip: %v %q", g.SaveEnabled(), g.SaveDir())
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trcd.json")
	if err := os.WriteFile(path, []byte("  \n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed on empty file: %v", err)
	}
	if f.MaxMeasurements() != 1000 {
		t.Fatalf("empty file must fall back to defaults, got %d", f.MaxMeasurements())
	}
}

func TestRawFileConfigFromConfig(t *testing.T) {
	f := NewFileFromConfig(&RawFileConfig{
		MaxMeasurements: ptr.To(42),
		DarkCurrentRef:  ptr.To(0.002),
	}, "")

	raw, err := NewRawFileConfigFromConfig(f)
	if err != nil {
		t.Fatalf("NewRawFileConfigFromConfig failed: %v", err)
	}

	if raw.MaxMeasurements == nil || *raw.MaxMeasurements != 42 {
		t.Fatalf("max measurements did not carry over: %v", raw.MaxMeasurements)
	}
	if raw.DarkCurrentRef == nil || *raw.DarkCurrentRef != 0.002 {
		t.Fatalf("dark current ref did not carry over: %v", raw.DarkCurrentRef)
	}
	if raw.MQTTBroker != nil {
		t.Fatalf("empty broker must stay unset")
	}
}
