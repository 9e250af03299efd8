package reduce

import (
	"gonum.org/v1/gonum/mat"

	"dynaconn/domain/connectivity"
	"dynaconn/domain/core"
)

// Spectral reduces a coherence matrix to the eigenvector of its largest
// eigenvalue. No diagnostics are emitted.
type Spectral struct{}

// NewSpectral creates a spectral reducer.
func NewSpectral() *Spectral {
	return &Spectral{}
}

// Variant implements ports.TrajectoryReducer.
func (s *Spectral) Variant() connectivity.Variant {
	return connectivity.VariantSpectral
}

// FeatureLen implements ports.TrajectoryReducer.
func (s *Spectral) FeatureLen(areas int) int {
	return areas
}

// Reduce implements ports.TrajectoryReducer. Eigenvalue ties keep the
// first maximal position in the solver's ascending order, so repeated
// spectra select deterministically.
func (s *Spectral) Reduce(cm *connectivity.CoherenceMatrix) ([]float64, connectivity.Diagnostics, error) {
	n := cm.Areas

	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(n, cm.Data), true); !ok {
		return nil, nil, core.DegeneracyError("eigendecomposition failed to converge")
	}

	vals := eig.Values(nil)
	leading := 0
	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[leading] {
			leading = i
		}
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	out := make([]float64, n)
	mat.Col(out, leading, &vecs)
	return out, nil, nil
}
