package connectivity

// Diagnostics is the reducer-specific sidecar payload persisted next to
// a reduced feature vector. Spectral reduction produces none.
type Diagnostics interface {
	// Kind names the payload family used in artifact keys.
	Kind() string
}

// LinearDiagnostics captures the state of a two-component principal
// component projection at one timepoint.
type LinearDiagnostics struct {
	// Components holds the principal axes, one row per component, each
	// of length areas.
	Components [][]float64 `json:"components"`

	// ExplainedVariance is the variance captured by each kept component.
	ExplainedVariance []float64 `json:"explained_variance"`

	// MeanExplainedVariance is the mean of the kept variances.
	MeanExplainedVariance float64 `json:"mean_explained_variance"`

	// ExplainedVarianceRatio is each kept variance over the total
	// variance of the full spectrum.
	ExplainedVarianceRatio []float64 `json:"explained_variance_ratio"`

	// Mean is the per-column mean removed before projection.
	Mean []float64 `json:"mean"`

	// NComponents is the number of kept components.
	NComponents int `json:"n_components"`

	// NoiseVariance is the mean of the discarded variances, zero when
	// nothing was discarded.
	NoiseVariance float64 `json:"noise_variance"`
}

func (*LinearDiagnostics) Kind() string { return "pca" }

// ManifoldDiagnostics captures the locally-linear-embedding state at one
// timepoint.
type ManifoldDiagnostics struct {
	NNeighbors          int     `json:"n_neighbors"`
	NComponents         int     `json:"n_components"`
	ReconstructionError float64 `json:"reconstruction_error"`
}

func (*ManifoldDiagnostics) Kind() string { return "lle" }
