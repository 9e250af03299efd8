// Package similarity computes functional connectivity dynamics: the
// time-by-time cosine similarity of each subject's reduced trajectory.
package similarity

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"dynaconn/domain/connectivity"
	"dynaconn/domain/core"
)

// Subject computes one subject's similarity matrix. Timepoints whose
// feature vector has zero norm produce NaN rows and columns; their
// count is returned so outcomes can record the degeneracy instead of
// silently coercing values.
func Subject(tt *connectivity.TrajectoryTensor, s int) (*connectivity.SimilarityMatrix, int, error) {
	if s < 0 || s >= tt.Subjects {
		return nil, 0, core.ConfigError("subject", "index out of range for trajectory tensor")
	}

	n := tt.Timepoints
	norms := make([]float64, n)
	degenerate := 0
	for t := 0; t < n; t++ {
		norms[t] = floats.Norm(tt.Feature(s, t), 2)
		if norms[t] == 0 {
			degenerate++
		}
	}

	sm := connectivity.NewSimilarityMatrix(n)
	for t1 := 0; t1 < n; t1++ {
		v1 := tt.Feature(s, t1)
		for t2 := t1; t2 < n; t2++ {
			// A zero denominator yields NaN, never a fabricated zero.
			sm.SetSym(t1, t2, floats.Dot(v1, tt.Feature(s, t2))/(norms[t1]*norms[t2]))
		}
	}
	return sm, degenerate, nil
}

// All computes every subject's similarity matrix in subject order,
// checking cancellation between subjects. The second return is the
// total count of zero-norm timepoints across the cohort.
func All(ctx context.Context, tt *connectivity.TrajectoryTensor) ([]*connectivity.SimilarityMatrix, int, error) {
	out := make([]*connectivity.SimilarityMatrix, tt.Subjects)
	total := 0
	for s := 0; s < tt.Subjects; s++ {
		if err := ctx.Err(); err != nil {
			return nil, total, err
		}
		sm, degenerate, err := Subject(tt, s)
		if err != nil {
			return nil, total, err
		}
		out[s] = sm
		total += degenerate
	}
	return out, total, nil
}
