package phase

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"dynaconn/domain/core"
	"dynaconn/domain/series"
)

func wrapPhase(phi float64) float64 {
	for phi > math.Pi {
		phi -= 2 * math.Pi
	}
	for phi <= -math.Pi {
		phi += 2 * math.Pi
	}
	return phi
}

// A cosine with an integer number of cycles has the exact analytic
// signal e^{i*omega*k}, so the extracted phase is the wrapped linear
// ramp omega*k.
func TestAnalyticPhaseOfPureCosine(t *testing.T) {
	const n = 64
	const cycles = 5
	omega := 2 * math.Pi * cycles / float64(n)

	x := make([]float64, n)
	for k := range x {
		x[k] = math.Cos(omega * float64(k))
	}

	dst := make([]float64, n)
	newHilbert(n).phases(x, dst)

	for k, got := range dst {
		want := wrapPhase(omega * float64(k))
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("phase[%d] = %v, want %v", k, got, want)
		}
	}
}

func TestAnalyticPhaseOddLength(t *testing.T) {
	const n = 63
	const cycles = 7
	omega := 2 * math.Pi * cycles / float64(n)

	x := make([]float64, n)
	for k := range x {
		x[k] = math.Cos(omega*float64(k) + 0.3)
	}

	dst := make([]float64, n)
	newHilbert(n).phases(x, dst)

	for k, got := range dst {
		want := wrapPhase(omega*float64(k) + 0.3)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("phase[%d] = %v, want %v", k, got, want)
		}
	}
}

// The phase of sin must trail the phase of cos by a quarter cycle at
// every sample.
func TestSineTrailsCosineByQuarterCycle(t *testing.T) {
	const n = 128
	const cycles = 9
	omega := 2 * math.Pi * cycles / float64(n)

	cosTrace := make([]float64, n)
	sinTrace := make([]float64, n)
	for k := range cosTrace {
		cosTrace[k] = math.Cos(omega * float64(k))
		sinTrace[k] = math.Sin(omega * float64(k))
	}

	h := newHilbert(n)
	cosPhase := make([]float64, n)
	sinPhase := make([]float64, n)
	h.phases(cosTrace, cosPhase)
	h.phases(sinTrace, sinPhase)

	for k := 0; k < n; k++ {
		diff := wrapPhase(cosPhase[k] - sinPhase[k])
		if math.Abs(diff-math.Pi/2) > 1e-9 {
			t.Fatalf("phase lead at %d = %v, want pi/2", k, diff)
		}
	}
}

func TestExtractorPhaseRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const areas, timepoints = 7, 201

	data := make([]float64, areas*timepoints)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	ts, err := series.NewTimeSeries(areas, timepoints, data)
	if err != nil {
		t.Fatalf("series: %v", err)
	}

	pm, err := NewExtractor(nil).ExtractPhases(context.Background(), ts)
	if err != nil {
		t.Fatalf("ExtractPhases: %v", err)
	}

	if pm.Areas != areas || pm.Timepoints != timepoints {
		t.Fatalf("phase shape = %dx%d, want %dx%d", pm.Areas, pm.Timepoints, areas, timepoints)
	}
	for a := 0; a < areas; a++ {
		for _, phi := range pm.Row(a) {
			if phi <= -math.Pi || phi > math.Pi {
				t.Fatalf("phase %v outside (-pi, pi]", phi)
			}
		}
	}
}

func TestExtractorWithBandpassPhaseRange(t *testing.T) {
	filter, err := NewBandpass(0.04, 0.07, 0.5)
	if err != nil {
		t.Fatalf("NewBandpass: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	const areas, timepoints = 3, 400
	data := make([]float64, areas*timepoints)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	ts, _ := series.NewTimeSeries(areas, timepoints, data)

	pm, err := NewExtractor(filter).ExtractPhases(context.Background(), ts)
	if err != nil {
		t.Fatalf("ExtractPhases: %v", err)
	}
	if err := pm.Validate(); err != nil {
		t.Errorf("filtered phases failed validation: %v", err)
	}
}

func TestExtractorRejectsNonFiniteInput(t *testing.T) {
	data := []float64{1, 2, math.NaN(), 4, 5, 6, 7, 8}
	ts, _ := series.NewTimeSeries(2, 4, data)

	_, err := NewExtractor(nil).ExtractPhases(context.Background(), ts)
	if !core.IsDegeneracyError(err) {
		t.Errorf("err = %v, want degeneracy error", err)
	}
}

func TestExtractorHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ts, _ := series.NewTimeSeries(2, 8, make([]float64, 16))
	if _, err := NewExtractor(nil).ExtractPhases(ctx, ts); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
