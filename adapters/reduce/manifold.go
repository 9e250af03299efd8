package reduce

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"dynaconn/domain/connectivity"
	"dynaconn/domain/core"
)

// manifoldComponents is fixed: each area embeds to two coordinates.
const manifoldComponents = 2

// weightRegularization conditions the local Gram systems, scaled by the
// Gram trace when it is positive.
const weightRegularization = 1e-3

// Manifold reduces a coherence matrix with locally linear embedding:
// each row is reconstructed from its k nearest rows, and the embedding
// preserving those reconstruction weights is read off the bottom
// non-constant eigenvectors of (I-W)'(I-W).
type Manifold struct {
	neighbors int
}

// NewManifold creates a manifold reducer with the given neighbor count.
func NewManifold(neighbors int) *Manifold {
	return &Manifold{neighbors: neighbors}
}

// Variant implements ports.TrajectoryReducer.
func (m *Manifold) Variant() connectivity.Variant {
	return connectivity.VariantManifold
}

// FeatureLen implements ports.TrajectoryReducer. The embedding rows are
// flattened area-major: both coordinates of area 0, then area 1, and so
// on.
func (m *Manifold) FeatureLen(areas int) int {
	return manifoldComponents * areas
}

// Neighbors returns the configured neighbor count.
func (m *Manifold) Neighbors() int {
	return m.neighbors
}

// Reduce implements ports.TrajectoryReducer.
func (m *Manifold) Reduce(cm *connectivity.CoherenceMatrix) ([]float64, connectivity.Diagnostics, error) {
	n := cm.Areas
	k := m.neighbors

	if k < 1 {
		return nil, nil, core.ConfigError("manifold", "neighbors must be positive")
	}
	if k >= n {
		return nil, nil, core.ConfigError("manifold",
			"neighbors must be strictly smaller than the number of areas")
	}
	if n <= manifoldComponents {
		return nil, nil, core.ConfigError("manifold",
			"embedding needs more areas than components")
	}

	neighborIdx := nearestNeighbors(cm.Data, n, k)

	weights, err := reconstructionWeights(cm.Data, n, k, neighborIdx)
	if err != nil {
		return nil, nil, err
	}

	embedding, reconErr, err := embeddingFromWeights(weights, neighborIdx, n, k)
	if err != nil {
		return nil, nil, err
	}

	diag := &connectivity.ManifoldDiagnostics{
		NNeighbors:          k,
		NComponents:         manifoldComponents,
		ReconstructionError: reconErr,
	}
	return embedding, diag, nil
}

// nearestNeighbors returns, for each row, the indices of its k closest
// other rows by Euclidean distance. Distance ties resolve to the lower
// index so selection is deterministic.
func nearestNeighbors(data []float64, n, k int) [][]int {
	sq := make([]float64, n*n)
	for i := 0; i < n; i++ {
		ri := data[i*n : (i+1)*n]
		for j := i + 1; j < n; j++ {
			rj := data[j*n : (j+1)*n]
			var d float64
			for c := range ri {
				diff := ri[c] - rj[c]
				d += diff * diff
			}
			sq[i*n+j] = d
			sq[j*n+i] = d
		}
	}

	out := make([][]int, n)
	candidates := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		candidates = candidates[:0]
		for j := 0; j < n; j++ {
			if j != i {
				candidates = append(candidates, j)
			}
		}
		di := sq[i*n : (i+1)*n]
		sort.SliceStable(candidates, func(a, b int) bool {
			return di[candidates[a]] < di[candidates[b]]
		})
		out[i] = append([]int(nil), candidates[:k]...)
	}
	return out
}

// reconstructionWeights solves one regularized Gram system per row for
// the barycentric weights of its neighbors.
func reconstructionWeights(data []float64, n, k int, neighborIdx [][]int) ([][]float64, error) {
	weights := make([][]float64, n)
	gram := make([]float64, k*k)
	diffs := make([]float64, k*n)
	ones := mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		ones.SetVec(i, 1)
	}

	for i := 0; i < n; i++ {
		ri := data[i*n : (i+1)*n]
		for j, nb := range neighborIdx[i] {
			rn := data[nb*n : (nb+1)*n]
			row := diffs[j*n : (j+1)*n]
			floats.SubTo(row, ri, rn)
		}

		trace := 0.0
		for a := 0; a < k; a++ {
			ra := diffs[a*n : (a+1)*n]
			for b := a; b < k; b++ {
				dot := floats.Dot(ra, diffs[b*n:(b+1)*n])
				gram[a*k+b] = dot
				gram[b*k+a] = dot
				if a == b {
					trace += dot
				}
			}
		}

		ridge := weightRegularization
		if trace > 0 {
			ridge *= trace
		}
		for a := 0; a < k; a++ {
			gram[a*k+a] += ridge
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(mat.NewSymDense(k, gram)); !ok {
			return nil, core.DegeneracyError(
				"local Gram matrix for area %d is not positive definite", i)
		}
		var w mat.VecDense
		if err := chol.SolveVecTo(&w, ones); err != nil {
			return nil, core.DegeneracyError(
				"weight solve for area %d failed: %v", i, err)
		}

		raw := make([]float64, k)
		for j := 0; j < k; j++ {
			raw[j] = w.AtVec(j)
		}
		sum := floats.Sum(raw)
		if sum == 0 {
			return nil, core.DegeneracyError("weights for area %d sum to zero", i)
		}
		floats.Scale(1/sum, raw)
		weights[i] = raw
	}
	return weights, nil
}

// embeddingFromWeights builds M = (I-W)'(I-W) and reads the embedding
// from its second-lowest eigenvectors, skipping the constant bottom one.
func embeddingFromWeights(weights [][]float64, neighborIdx [][]int, n, k int) ([]float64, float64, error) {
	iw := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		iw.Set(i, i, 1)
		for j, nb := range neighborIdx[i] {
			iw.Set(i, nb, iw.At(i, nb)-weights[i][j])
		}
	}

	var prod mat.Dense
	prod.Mul(iw.T(), iw)

	msym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			msym.SetSym(i, j, (prod.At(i, j)+prod.At(j, i))/2)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(msym, true); !ok {
		return nil, 0, core.DegeneracyError("embedding eigendecomposition failed to converge")
	}

	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	out := make([]float64, manifoldComponents*n)
	reconErr := 0.0
	for c := 0; c < manifoldComponents; c++ {
		col := 1 + c
		reconErr += vals[col]
		for a := 0; a < n; a++ {
			out[a*manifoldComponents+c] = vecs.At(a, col)
		}
	}
	return out, reconErr, nil
}
