package profiling

import (
	"math"
	"testing"

	"dynaconn/domain/series"
)

func TestProfileSeries(t *testing.T) {
	// Raw layout: 5 time samples (rows) of 3 areas (columns).
	ts := &series.TimeSeries{
		Rows: 5,
		Cols: 3,
		Data: []float64{
			1, 7, -2,
			2, 7, 0,
			3, 7, 2,
			4, 7, 0,
			5, 7, -2,
		},
	}

	profiles, err := ProfileSeries(ts)
	if err != nil {
		t.Fatalf("ProfileSeries: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("got %d profiles, want 3", len(profiles))
	}

	first := profiles[0]
	if first.Mean != 3 || first.Min != 1 || first.Max != 5 || first.Median != 3 {
		t.Errorf("area 0 = %+v", first)
	}
	if math.Abs(first.StdDev-math.Sqrt2) > 1e-12 {
		t.Errorf("area 0 std dev = %v, want sqrt(2)", first.StdDev)
	}
	if first.Flat {
		t.Error("area 0 wrongly marked flat")
	}

	if !profiles[1].Flat || profiles[1].StdDev != 0 {
		t.Errorf("constant area not marked flat: %+v", profiles[1])
	}
	if profiles[2].Mean != -0.4 {
		t.Errorf("area 2 mean = %v, want -0.4", profiles[2].Mean)
	}
}

func TestFlatAreas(t *testing.T) {
	profiles := []AreaProfile{
		{Area: 0, StdDev: 1.5},
		{Area: 1, Flat: true},
		{Area: 2, StdDev: 0.1},
		{Area: 3, Flat: true},
	}
	flat := FlatAreas(profiles)
	if len(flat) != 2 || flat[0] != 1 || flat[1] != 3 {
		t.Errorf("flat = %v, want [1 3]", flat)
	}
}
