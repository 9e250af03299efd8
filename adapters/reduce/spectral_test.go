package reduce

import (
	"math"
	"testing"

	"dynaconn/domain/connectivity"
)

func TestSpectralFeatureShape(t *testing.T) {
	s := NewSpectral()
	if s.Variant() != connectivity.VariantSpectral {
		t.Errorf("variant = %s", s.Variant())
	}
	if got := s.FeatureLen(9); got != 9 {
		t.Errorf("FeatureLen(9) = %d, want 9", got)
	}

	vec, diag, err := s.Reduce(testMatrix4(t))
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("vector length = %d, want 4", len(vec))
	}
	if diag != nil {
		t.Errorf("spectral reduction should emit no diagnostics, got %T", diag)
	}
	if math.Abs(norm(vec)-1) > 1e-9 {
		t.Errorf("leading eigenvector norm = %v, want 1", norm(vec))
	}
}

// The identity matrix has a fully degenerate spectrum; the reducer must
// still deterministically return a standard basis vector.
func TestSpectralIdentityGivesBasisVector(t *testing.T) {
	n := 4
	cm := connectivity.NewCoherenceMatrix(n)
	for i := 0; i < n; i++ {
		cm.Data[i*n+i] = 1.0
	}

	vec, _, err := NewSpectral().Reduce(cm)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	unit := 0
	for _, v := range vec {
		switch {
		case math.Abs(math.Abs(v)-1) < 1e-10:
			unit++
		case math.Abs(v) < 1e-10:
		default:
			t.Fatalf("entry %v is neither 0 nor +-1", v)
		}
	}
	if unit != 1 {
		t.Fatalf("want exactly one unit entry, got %d in %v", unit, vec)
	}

	again, _, err := NewSpectral().Reduce(cm)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	for i := range vec {
		if vec[i] != again[i] {
			t.Fatal("degenerate spectrum selection is not deterministic")
		}
	}
}

func TestSpectralKnownTwoAreaEigenvector(t *testing.T) {
	// [[1, 0.6], [0.6, 1]] has leading eigenvalue 1.6 with eigenvector
	// (1, 1)/sqrt(2), up to global sign.
	cm := connectivity.NewCoherenceMatrix(2)
	cm.Data[0], cm.Data[3] = 1, 1
	cm.SetSym(0, 1, 0.6)

	vec, _, err := NewSpectral().Reduce(cm)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	want := 1 / math.Sqrt2
	if math.Abs(math.Abs(vec[0])-want) > 1e-12 || math.Abs(math.Abs(vec[1])-want) > 1e-12 {
		t.Errorf("vector = %v, want +-(%v, %v)", vec, want, want)
	}
	if vec[0]*vec[1] <= 0 {
		t.Errorf("components of the leading eigenvector must share a sign: %v", vec)
	}
}

// Identical phases across areas give the all-ones matrix, whose leading
// eigenvector is uniform.
func TestSpectralAllOnesMatrix(t *testing.T) {
	cm := symmetricMatrix(t, 4, []float64{1, 1, 1, 1, 1, 1})

	vec, _, err := NewSpectral().Reduce(cm)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	want := 0.5 // 1/sqrt(4)
	sign := math.Copysign(1, vec[0])
	for i, v := range vec {
		if math.Abs(v-sign*want) > 1e-10 {
			t.Errorf("vec[%d] = %v, want uniform %v", i, v, sign*want)
		}
	}
}
