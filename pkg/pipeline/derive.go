package pipeline

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/tracelab/trcd/pkg/trace"
)

// refEpsilon replaces exact-zero reference samples so the transmittance
// ratios stay defined. The substitution is a documented recovery, not an
// error: the offending sample is measurement noise around zero.
const refEpsilon = 1e-12

// cdScale converts the perpendicular/parallel ratio difference into the CD
// proxy signal.
const cdScale = 4.0 / 2.3

// derive computes the dA/CD signals from one pump/no-pump pair.
//
//	da_par  = -log10((wp.par/wp.ref) / (wo.par/wo.ref))
//	da_perp = -log10((wp.perp/wp.ref) / (wo.perp/wo.ref))
//	da_cd   = (4/2.3) * ((wp.perp/wp.par) - (wo.perp/wo.par))
//
// Zero samples in either reference trace are substituted with refEpsilon
// before the ratio/log pass, so the result is always finite where the
// inputs are. The recovery happens at most once per derivation.
func derive(wp, wo trace.Calibrated) trace.Derived {
	wpRef := sanitizeRef(wp.Ref, "withPump")
	woRef := sanitizeRef(wo.Ref, "withoutPump")

	n := len(wp.Par)
	d := trace.Derived{
		DAPar:  make([]float64, n),
		DAPerp: make([]float64, n),
		DACD:   make([]float64, n),
	}

	for i := 0; i < n; i++ {
		d.DAPar[i] = -math.Log10((wp.Par[i] / wpRef[i]) / (wo.Par[i] / woRef[i]))
		d.DAPerp[i] = -math.Log10((wp.Perp[i] / wpRef[i]) / (wo.Perp[i] / woRef[i]))
		d.DACD[i] = cdScale * ((wp.Perp[i] / wp.Par[i]) - (wo.Perp[i] / wo.Par[i]))
	}

	return d
}

// sanitizeRef returns ref with exact-zero samples replaced by refEpsilon.
// The input is returned untouched when no sample is zero.
func sanitizeRef(ref []float64, which string) []float64 {
	zeros := 0
	for _, v := range ref {
		if v == 0 {
			zeros++
		}
	}
	if zeros == 0 {
		return ref
	}

	logrus.WithFields(logrus.Fields{
		"channel": which,
		"samples": zeros,
	}).Warn("zero reference samples, substituting epsilon")

	out := make([]float64, len(ref))
	for i, v := range ref {
		if v == 0 {
			out[i] = refEpsilon
		} else {
			out[i] = v
		}
	}
	return out
}
