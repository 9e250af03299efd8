// Package connectivity defines the phase-coherence representations of a
// cohort: per-timepoint coherence matrices, reduced trajectories, and
// trajectory-similarity matrices.
package connectivity

import (
	"math"

	"dynaconn/domain/core"
)

// CoherenceMatrix is a dense symmetric areas-by-areas matrix of pairwise
// phase coherence at a single timepoint. Data is row-major with the full
// square stored, so it can back a symmetric matrix view without copying.
type CoherenceMatrix struct {
	Areas int
	Data  []float64
}

// NewCoherenceMatrix allocates a zeroed coherence matrix.
func NewCoherenceMatrix(areas int) *CoherenceMatrix {
	return &CoherenceMatrix{
		Areas: areas,
		Data:  make([]float64, areas*areas),
	}
}

// At returns the coherence between areas i and j.
func (cm *CoherenceMatrix) At(i, j int) float64 {
	return cm.Data[i*cm.Areas+j]
}

// SetSym assigns both (i,j) and (j,i) in one call.
func (cm *CoherenceMatrix) SetSym(i, j int, v float64) {
	cm.Data[i*cm.Areas+j] = v
	cm.Data[j*cm.Areas+i] = v
}

// Validate checks the structural invariants: unit diagonal, exact
// symmetry, all entries finite and within [-1, 1].
func (cm *CoherenceMatrix) Validate() error {
	n := cm.Areas
	if len(cm.Data) != n*n {
		return core.ShapeError(len(cm.Data), 1, n, n)
	}
	for i := 0; i < n; i++ {
		if d := cm.Data[i*n+i]; d != 1.0 {
			return core.DegeneracyError("diagonal entry (%d,%d) = %v, want 1", i, i, d)
		}
		for j := i + 1; j < n; j++ {
			v := cm.Data[i*n+j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.DegeneracyError("non-finite coherence at (%d,%d)", i, j)
			}
			if v < -1.0 || v > 1.0 {
				return core.DegeneracyError("coherence %v at (%d,%d) outside [-1, 1]", v, i, j)
			}
			if v != cm.Data[j*n+i] {
				return core.DegeneracyError("asymmetry at (%d,%d)", i, j)
			}
		}
	}
	return nil
}
