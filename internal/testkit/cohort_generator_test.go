package testkit

import (
	"context"
	"io"
	"math"
	"os"
	"testing"

	"dynaconn/adapters/store"
	"dynaconn/ports"
)

func TestGenerateSeriesShapeAndFiniteness(t *testing.T) {
	g := NewCohortGenerator(DefaultCohortConfig())
	ts := g.GenerateSeries(0)

	if ts.Rows != 6 || ts.Cols != 120 {
		t.Fatalf("shape = %dx%d, want 6x120", ts.Rows, ts.Cols)
	}
	for i, v := range ts.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("value %d is not finite: %v", i, v)
		}
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	cfg := DefaultCohortConfig()
	a := NewCohortGenerator(cfg).GenerateSeries(0)
	b := NewCohortGenerator(cfg).GenerateSeries(0)

	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("value %d differs across identical seeds: %v vs %v", i, a.Data[i], b.Data[i])
		}
	}
}

func TestWriteCohortProducesReadableFiles(t *testing.T) {
	cfg := DefaultCohortConfig()
	cfg.Subjects = 2
	g := NewCohortGenerator(cfg)

	paths, err := g.WriteCohort(t.TempDir())
	if err != nil {
		t.Fatalf("WriteCohort: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2", len(paths))
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}

func TestInMemoryStoreMatchesDiskEncoding(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemoryStore()

	table := ports.Table{Rows: 2, Cols: 2, Values: []float64{1.25, -2.5, math.Pi, 0}}
	const key = "runs/r/trajectory/spectral/subject_0.csv.gz"
	if err := mem.PutTable(ctx, key, table); err != nil {
		t.Fatalf("PutTable: %v", err)
	}

	rc, err := mem.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	decoded, err := store.DecodeTable(key, raw)
	if err != nil {
		t.Fatalf("DecodeTable: %v", err)
	}
	for i, v := range table.Values {
		if decoded.Values[i] != v {
			t.Errorf("value %d = %v, want %v", i, decoded.Values[i], v)
		}
	}
}
