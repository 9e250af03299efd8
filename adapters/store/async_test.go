package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"dynaconn/internal/errors"
	"dynaconn/ports"
)

// memWriter records writes for inspection. Failing keys simulate a
// broken backend.
type memWriter struct {
	mu      sync.Mutex
	tables  map[string]ports.Table
	jsons   map[string]any
	failing map[string]bool
}

func newMemWriter() *memWriter {
	return &memWriter{
		tables:  make(map[string]ports.Table),
		jsons:   make(map[string]any),
		failing: make(map[string]bool),
	}
}

func (m *memWriter) PutTable(_ context.Context, key string, table ports.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[key] {
		return fmt.Errorf("backend unavailable")
	}
	m.tables[key] = table
	return nil
}

func (m *memWriter) PutJSON(_ context.Context, key string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[key] {
		return fmt.Errorf("backend unavailable")
	}
	m.jsons[key] = payload
	return nil
}

func (m *memWriter) table(key string) (ports.Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[key]
	return t, ok
}

func TestAsyncWriterDrainsAllWrites(t *testing.T) {
	mem := newMemWriter()
	w := NewAsyncWriter(mem, 4, 2, 1<<20, nil)
	ctx := context.Background()

	const n = 50
	for i := 0; i < n; i++ {
		table := ports.Table{Rows: 1, Cols: 2, Values: []float64{float64(i), float64(-i)}}
		if err := w.PutTable(ctx, fmt.Sprintf("t/%d.csv", i), table); err != nil {
			t.Fatalf("PutTable %d: %v", i, err)
		}
	}
	if err := w.PutJSON(ctx, "diag.json", map[string]int{"n": n}); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for i := 0; i < n; i++ {
		got, ok := mem.table(fmt.Sprintf("t/%d.csv", i))
		if !ok {
			t.Fatalf("table %d never written", i)
		}
		if got.Values[0] != float64(i) {
			t.Errorf("table %d values = %v", i, got.Values)
		}
	}
	if _, ok := mem.jsons["diag.json"]; !ok {
		t.Error("json payload never written")
	}
}

func TestAsyncWriterCopiesValues(t *testing.T) {
	mem := newMemWriter()
	w := NewAsyncWriter(mem, 4, 1, 1<<20, nil)

	values := []float64{1, 2, 3}
	table := ports.Table{Rows: 1, Cols: 3, Values: values}
	if err := w.PutTable(context.Background(), "t.csv", table); err != nil {
		t.Fatalf("PutTable: %v", err)
	}
	values[0] = -99

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, _ := mem.table("t.csv")
	if got.Values[0] != 1 {
		t.Errorf("stored values share the caller's buffer: %v", got.Values)
	}
}

func TestAsyncWriterReportsFailures(t *testing.T) {
	mem := newMemWriter()
	mem.failing["bad.csv"] = true
	w := NewAsyncWriter(mem, 4, 2, 1<<20, nil)
	ctx := context.Background()

	one := ports.Table{Rows: 1, Cols: 1, Values: []float64{1}}
	if err := w.PutTable(ctx, "good.csv", one); err != nil {
		t.Fatalf("PutTable: %v", err)
	}
	if err := w.PutTable(ctx, "bad.csv", one); err != nil {
		t.Fatalf("PutTable: %v", err)
	}

	err := w.Close()
	if errors.GetCode(err) != errors.CodePersistence {
		t.Fatalf("Close = %v, want persistence error", err)
	}
	if w.Failures() != 1 {
		t.Errorf("Failures = %d, want 1", w.Failures())
	}
	if _, ok := mem.table("good.csv"); !ok {
		t.Error("healthy write lost alongside the failing one")
	}
}

func TestAsyncWriterRejectsAfterClose(t *testing.T) {
	w := NewAsyncWriter(newMemWriter(), 4, 1, 1<<20, nil)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	one := ports.Table{Rows: 1, Cols: 1, Values: []float64{1}}
	err := w.PutTable(context.Background(), "late.csv", one)
	if errors.GetCode(err) != errors.CodePersistence {
		t.Errorf("err = %v, want persistence error", err)
	}
}

func TestAsyncWriterOversizedTableClampsToBudget(t *testing.T) {
	mem := newMemWriter()
	w := NewAsyncWriter(mem, 1, 1, 128, nil)

	big := ports.Table{Rows: 1, Cols: 64, Values: make([]float64, 64)}
	if err := w.PutTable(context.Background(), "big.csv", big); err != nil {
		t.Fatalf("PutTable: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := mem.table("big.csv"); !ok {
		t.Error("oversized table never written")
	}
}
