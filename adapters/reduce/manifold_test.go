package reduce

import (
	"math"
	"testing"

	"dynaconn/domain/connectivity"
	"dynaconn/domain/core"
)

// circleMatrix builds a smooth rank-2 coherence matrix from phases
// spread around the circle, the same structure identical oscillators at
// different offsets produce.
func circleMatrix(n int) *connectivity.CoherenceMatrix {
	cm := connectivity.NewCoherenceMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			phi := 2 * math.Pi * float64(i-j) / float64(2*n)
			cm.Data[i*n+j] = math.Cos(phi)
		}
	}
	return cm
}

func TestManifoldGuards(t *testing.T) {
	tests := []struct {
		name      string
		neighbors int
		areas     int
	}{
		{"neighbors equal areas", 4, 4},
		{"neighbors above areas", 12, 4},
		{"zero neighbors", 0, 4},
		{"two areas", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := circleMatrix(tt.areas)
			if _, _, err := NewManifold(tt.neighbors).Reduce(cm); !core.IsConfigError(err) {
				t.Errorf("err = %v, want config error", err)
			}
		})
	}
}

func TestManifoldFeatureShape(t *testing.T) {
	m := NewManifold(3)
	if m.Variant() != connectivity.VariantManifold {
		t.Errorf("variant = %s", m.Variant())
	}
	if got := m.FeatureLen(8); got != 16 {
		t.Errorf("FeatureLen(8) = %d, want 16", got)
	}
	if m.Neighbors() != 3 {
		t.Errorf("Neighbors() = %d", m.Neighbors())
	}

	vec, diag, err := m.Reduce(circleMatrix(8))
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if len(vec) != 16 {
		t.Fatalf("vector length = %d, want 16", len(vec))
	}

	md, ok := diag.(*connectivity.ManifoldDiagnostics)
	if !ok {
		t.Fatalf("diagnostics type = %T", diag)
	}
	if md.Kind() != "lle" {
		t.Errorf("diagnostics kind = %s", md.Kind())
	}
	if md.NNeighbors != 3 || md.NComponents != 2 {
		t.Errorf("diagnostics = %+v", md)
	}
	if md.ReconstructionError < -1e-9 {
		t.Errorf("reconstruction error = %v, want >= 0", md.ReconstructionError)
	}
}

// Reconstruction weights sum to one, so the constant vector spans the
// embedding matrix's null space and every kept coordinate must be
// orthogonal to it: the embedding columns sum to zero.
func TestManifoldEmbeddingOrthogonalToConstant(t *testing.T) {
	const n = 10
	vec, _, err := NewManifold(3).Reduce(circleMatrix(n))
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	for c := 0; c < 2; c++ {
		var sum float64
		for a := 0; a < n; a++ {
			sum += vec[a*2+c]
		}
		if math.Abs(sum) > 1e-7 {
			t.Errorf("embedding coordinate %d sums to %v, want ~0", c, sum)
		}
	}
}

func TestManifoldCoordinatesAreUnitNorm(t *testing.T) {
	const n = 10
	vec, _, err := NewManifold(3).Reduce(circleMatrix(n))
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	for c := 0; c < 2; c++ {
		var ss float64
		for a := 0; a < n; a++ {
			ss += vec[a*2+c] * vec[a*2+c]
		}
		if math.Abs(math.Sqrt(ss)-1) > 1e-9 {
			t.Errorf("coordinate %d norm = %v, want 1", c, math.Sqrt(ss))
		}
	}
}

func TestManifoldDeterminism(t *testing.T) {
	cm := circleMatrix(9)
	first, _, err := NewManifold(4).Reduce(cm)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	second, _, err := NewManifold(4).Reduce(cm)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("embedding differs at %d: %v != %v", i, first[i], second[i])
		}
	}
}

func TestNearestNeighborsOrdering(t *testing.T) {
	// Rows behave as points 0, 1, 3, 7 on a line.
	n := 4
	data := make([]float64, n*n)
	for i, v := range []float64{0, 1, 3, 7} {
		data[i*n] = v
	}

	got := nearestNeighbors(data, n, 2)

	want := [][]int{
		{1, 2}, // from 0: distances 1, 3, 7
		{0, 2}, // from 1: distances 1, 2, 6
		{1, 0}, // from 3: distances 2, 3, 4
		{2, 1}, // from 7: distances 4, 6, 7
	}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("neighbors[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	}
}

func TestNearestNeighborsTieBreaksToLowerIndex(t *testing.T) {
	// Three identical rows: all pairwise distances are zero.
	n := 3
	data := make([]float64, n*n)

	got := nearestNeighbors(data, n, 2)
	want := [][]int{{1, 2}, {0, 2}, {0, 1}}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("neighbors[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	}
}
