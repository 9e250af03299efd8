package connectivity

import (
	"fmt"

	"dynaconn/domain/core"
)

// TrajectoryTensor stores the reduced feature vector of every subject at
// every timepoint. Features are written by index, never appended, so a
// failed subject leaves its region zeroed without shifting any other
// subject's data. Subject regions are disjoint, which makes concurrent
// writes for different subjects safe.
type TrajectoryTensor struct {
	Subjects   int
	Timepoints int
	FeatureLen int
	data       []float64
}

// NewTrajectoryTensor allocates a zeroed tensor.
func NewTrajectoryTensor(subjects, timepoints, featureLen int) (*TrajectoryTensor, error) {
	if subjects <= 0 || timepoints <= 0 || featureLen <= 0 {
		return nil, core.ConfigError("trajectory",
			fmt.Sprintf("non-positive dimensions %dx%dx%d", subjects, timepoints, featureLen))
	}
	return &TrajectoryTensor{
		Subjects:   subjects,
		Timepoints: timepoints,
		FeatureLen: featureLen,
		data:       make([]float64, subjects*timepoints*featureLen),
	}, nil
}

// SetFeature copies vec into the slot for subject s at timepoint t.
func (tt *TrajectoryTensor) SetFeature(s, t int, vec []float64) error {
	if len(vec) != tt.FeatureLen {
		return core.ShapeError(1, len(vec), 1, tt.FeatureLen)
	}
	off := (s*tt.Timepoints + t) * tt.FeatureLen
	copy(tt.data[off:off+tt.FeatureLen], vec)
	return nil
}

// Feature returns the stored vector for subject s at timepoint t as a
// view into the backing slice.
func (tt *TrajectoryTensor) Feature(s, t int) []float64 {
	off := (s*tt.Timepoints + t) * tt.FeatureLen
	return tt.data[off : off+tt.FeatureLen]
}

// SubjectBlock returns the full timepoints-by-featureLen block of one
// subject as a view into the backing slice.
func (tt *TrajectoryTensor) SubjectBlock(s int) []float64 {
	off := s * tt.Timepoints * tt.FeatureLen
	return tt.data[off : off+tt.Timepoints*tt.FeatureLen]
}

// SimilarityMatrix is the timepoints-by-timepoints cosine-similarity
// matrix of one subject's trajectory, row-major.
type SimilarityMatrix struct {
	Timepoints int
	Data       []float64
}

// NewSimilarityMatrix allocates a zeroed similarity matrix.
func NewSimilarityMatrix(timepoints int) *SimilarityMatrix {
	return &SimilarityMatrix{
		Timepoints: timepoints,
		Data:       make([]float64, timepoints*timepoints),
	}
}

// At returns the similarity between timepoints t1 and t2.
func (sm *SimilarityMatrix) At(t1, t2 int) float64 {
	return sm.Data[t1*sm.Timepoints+t2]
}

// SetSym assigns both (t1,t2) and (t2,t1) in one call.
func (sm *SimilarityMatrix) SetSym(t1, t2 int, v float64) {
	sm.Data[t1*sm.Timepoints+t2] = v
	sm.Data[t2*sm.Timepoints+t1] = v
}
