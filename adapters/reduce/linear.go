// Package reduce collapses per-timepoint coherence matrices into
// fixed-length feature vectors under three strategies: linear principal
// components, the leading spectral eigenvector, and a locally linear
// manifold embedding.
package reduce

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"dynaconn/domain/connectivity"
	"dynaconn/domain/core"
)

// linearComponents is fixed: the trajectory keeps exactly two principal
// axes per timepoint.
const linearComponents = 2

// Linear reduces a coherence matrix by treating its rows as
// observations and projecting onto the first two principal component
// directions. The feature vector is the two axes stacked end to end.
type Linear struct{}

// NewLinear creates a linear reducer.
func NewLinear() *Linear {
	return &Linear{}
}

// Variant implements ports.TrajectoryReducer.
func (l *Linear) Variant() connectivity.Variant {
	return connectivity.VariantLinear
}

// FeatureLen implements ports.TrajectoryReducer.
func (l *Linear) FeatureLen(areas int) int {
	return linearComponents * areas
}

// Reduce implements ports.TrajectoryReducer. Alongside the stacked
// component vector it emits the full projection state as diagnostics.
func (l *Linear) Reduce(cm *connectivity.CoherenceMatrix) ([]float64, connectivity.Diagnostics, error) {
	n := cm.Areas
	if n < linearComponents {
		return nil, nil, core.ConfigError("linear",
			"matrix must have at least as many areas as components")
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(mat.NewDense(n, n, cm.Data), nil); !ok {
		return nil, nil, core.DegeneracyError("principal component analysis failed")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	out := make([]float64, linearComponents*n)
	components := make([][]float64, linearComponents)
	for c := 0; c < linearComponents; c++ {
		axis := out[c*n : (c+1)*n]
		mat.Col(axis, c, &vecs)
		components[c] = append([]float64(nil), axis...)
	}

	kept := append([]float64(nil), vars[:linearComponents]...)
	ratio := make([]float64, linearComponents)
	if total := floats.Sum(vars); total > 0 {
		for i, v := range kept {
			ratio[i] = v / total
		}
	}

	noise := 0.0
	if len(vars) > linearComponents {
		noise = stat.Mean(vars[linearComponents:], nil)
	}

	mean := make([]float64, n)
	for j := 0; j < n; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += cm.Data[i*n+j]
		}
		mean[j] = sum / float64(n)
	}

	diag := &connectivity.LinearDiagnostics{
		Components:             components,
		ExplainedVariance:      kept,
		MeanExplainedVariance:  stat.Mean(kept, nil),
		ExplainedVarianceRatio: ratio,
		Mean:                   mean,
		NComponents:            linearComponents,
		NoiseVariance:          noise,
	}
	return out, diag, nil
}
