// Package coherence assembles per-timepoint phase-coherence matrices
// from a cohort phase matrix.
package coherence

import (
	"math"

	"dynaconn/domain/connectivity"
	"dynaconn/domain/core"
	"dynaconn/domain/series"
)

// Kernel maps an absolute phase difference onto [-1, 1] coherence. The
// difference is folded onto the principal interval before the cosine so
// antiphase pairs land at -1 regardless of wrap direction.
func Kernel(phiA, phiB float64) float64 {
	d := math.Abs(phiA - phiB)
	if d > math.Pi {
		return math.Cos(2*math.Pi - d)
	}
	return math.Cos(d)
}

// Build produces the coherence matrix for timepoint t. The result is
// freshly allocated, symmetric by construction, with an exact unit
// diagonal. Inputs are never mutated.
func Build(pm *series.PhaseMatrix, t int) (*connectivity.CoherenceMatrix, error) {
	if t < 0 || t >= pm.Timepoints {
		return nil, core.ConfigError("timepoint",
			"index out of range for phase matrix")
	}

	n := pm.Areas
	cm := connectivity.NewCoherenceMatrix(n)
	col := pm.Column(t, nil)

	for i := 0; i < n; i++ {
		cm.Data[i*n+i] = 1.0
		for z := i + 1; z < n; z++ {
			cm.SetSym(i, z, Kernel(col[i], col[z]))
		}
	}
	return cm, nil
}

// BuildInto is the allocation-free variant used by the batch hot loop.
// col and cm are caller-owned scratch sized for the phase matrix.
func BuildInto(pm *series.PhaseMatrix, t int, col []float64, cm *connectivity.CoherenceMatrix) error {
	if t < 0 || t >= pm.Timepoints {
		return core.ConfigError("timepoint", "index out of range for phase matrix")
	}
	if len(col) != pm.Areas || cm.Areas != pm.Areas {
		return core.ShapeError(cm.Areas, len(col), pm.Areas, pm.Areas)
	}

	pm.Column(t, col)
	n := pm.Areas
	for i := 0; i < n; i++ {
		cm.Data[i*n+i] = 1.0
		for z := i + 1; z < n; z++ {
			cm.SetSym(i, z, Kernel(col[i], col[z]))
		}
	}
	return nil
}
