package ports

import (
	"dynaconn/domain/connectivity"
)

// TrajectoryReducer collapses one per-timepoint coherence matrix into a
// fixed-length feature vector. Reducers are pure and safe for concurrent
// use across subjects.
type TrajectoryReducer interface {
	// Variant names the reduction strategy.
	Variant() connectivity.Variant

	// FeatureLen reports the output vector length for a given number of
	// brain areas.
	FeatureLen(areas int) int

	// Reduce produces the feature vector and an optional diagnostics
	// payload. Diagnostics is nil for variants that emit none.
	Reduce(cm *connectivity.CoherenceMatrix) ([]float64, connectivity.Diagnostics, error)
}
