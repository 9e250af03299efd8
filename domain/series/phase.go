package series

import (
	"math"

	"dynaconn/domain/core"
)

// PhaseMatrix holds instantaneous phases in row-major order. Rows index
// brain areas, columns index timepoints. Every entry lies in (-pi, pi].
type PhaseMatrix struct {
	Areas      int
	Timepoints int
	Data       []float64
}

// NewPhaseMatrix allocates a zeroed phase matrix.
func NewPhaseMatrix(areas, timepoints int) *PhaseMatrix {
	return &PhaseMatrix{
		Areas:      areas,
		Timepoints: timepoints,
		Data:       make([]float64, areas*timepoints),
	}
}

// At returns the phase of area a at timepoint t.
func (pm *PhaseMatrix) At(a, t int) float64 {
	return pm.Data[a*pm.Timepoints+t]
}

// Set assigns the phase of area a at timepoint t.
func (pm *PhaseMatrix) Set(a, t int, phi float64) {
	pm.Data[a*pm.Timepoints+t] = phi
}

// Row returns the phase trace of one area as a view into the backing slice.
func (pm *PhaseMatrix) Row(a int) []float64 {
	return pm.Data[a*pm.Timepoints : (a+1)*pm.Timepoints]
}

// Column copies the phases of all areas at timepoint t into dst, which
// is allocated when nil.
func (pm *PhaseMatrix) Column(t int, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, pm.Areas)
	}
	for a := 0; a < pm.Areas; a++ {
		dst[a] = pm.Data[a*pm.Timepoints+t]
	}
	return dst
}

// Validate checks that every phase is finite and within the principal
// interval (-pi, pi]. Non-finite phases indicate malformed raw input
// propagated through the analytic-signal transform.
func (pm *PhaseMatrix) Validate() error {
	for a := 0; a < pm.Areas; a++ {
		row := pm.Row(a)
		for t, phi := range row {
			if math.IsNaN(phi) || math.IsInf(phi, 0) {
				return core.DegeneracyError("non-finite phase at area %d, timepoint %d", a, t)
			}
			if phi > math.Pi || phi <= -math.Pi {
				return core.DegeneracyError("phase %v at area %d, timepoint %d outside (-pi, pi]", phi, a, t)
			}
		}
	}
	return nil
}
