package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tracelab/trcd/pkg/trace"
)

// Store writes one subdirectory per completed measurement, named by the
// 1-based measurement index, each holding nine JSON array artifacts: the
// calibrated pump and no-pump triples plus the three derived signals.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory must exist;
// Prepare clears it before the session starts.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the destination directory.
func (s *Store) Dir() string { return s.dir }

// Prepare removes everything inside the destination directory. This is a
// deliberate, destructive pre-session operation; the caller is responsible
// for having confirmed it with the user.
func (s *Store) Prepare() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read save directory %s", s.dir)
	}

	for _, e := range entries {
		p := filepath.Join(s.dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			return pkgerrors.Wrapf(err, "failed to clear %s", p)
		}
	}

	logrus.WithField("dir", s.dir).Info("save directory cleared")
	return nil
}

// WriteMeasurement persists one completed measurement. Failures are fatal
// to the session; no partial-write cleanup is attempted.
func (s *Store) WriteMeasurement(n int, withPump, withoutPump trace.Calibrated, d trace.Derived) error {
	dir := filepath.Join(s.dir, strconv.Itoa(n))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create measurement directory %s", dir)
	}

	artifacts := map[string][]float64{
		"with_pump_par":     withPump.Par,
		"with_pump_perp":    withPump.Perp,
		"with_pump_ref":     withPump.Ref,
		"without_pump_par":  withoutPump.Par,
		"without_pump_perp": withoutPump.Perp,
		"without_pump_ref":  withoutPump.Ref,
		"da_par":            d.DAPar,
		"da_perp":           d.DAPerp,
		"da_cd":             d.DACD,
	}

	for name, values := range artifacts {
		if err := writeArray(filepath.Join(dir, name+".json"), values); err != nil {
			return err
		}
	}

	return nil
}

func writeArray(path string, values []float64) error {
	fp, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", path)
	}
	defer func(fp *os.File) {
		if err := fp.Close(); err != nil {
			logrus.Warnf("failed to close file %s", path)
		}
	}(fp)

	if err := json.NewEncoder(fp).Encode(values); err != nil {
		return pkgerrors.Wrapf(err, "failed to encode %s", path)
	}

	return nil
}
