package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"dynaconn/internal/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadSeriesDelimiterAutodetect(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"comma", "s.csv", "1.5,2.5,3.5\n4.5,5.5,6.5\n"},
		{"tab", "s.tsv", "1.5\t2.5\t3.5\n4.5\t5.5\t6.5\n"},
		{"semicolon", "s.txt", "1.5;2.5;3.5\n4.5;5.5;6.5\n"},
		{"whitespace", "s.dat", "1.5  2.5 3.5\n4.5 5.5   6.5\n"},
		{"blank lines skipped", "s.csv", "\n1.5,2.5,3.5\n\n4.5,5.5,6.5\n\n"},
	}

	r := NewReader(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			ts, err := r.ReadSeries(context.Background(), path)
			if err != nil {
				t.Fatalf("ReadSeries: %v", err)
			}
			if ts.Rows != 2 || ts.Cols != 3 {
				t.Fatalf("shape = %dx%d, want 2x3", ts.Rows, ts.Cols)
			}
			if ts.At(0, 0) != 1.5 || ts.At(1, 2) != 6.5 {
				t.Errorf("values misparsed: %v", ts.Data)
			}
		})
	}
}

func TestReadSeriesScientificNotation(t *testing.T) {
	path := writeFile(t, "s.csv", "1e-3,-2.5E2\n0.0,3.25e+1\n")
	ts, err := NewReader(nil).ReadSeries(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if ts.At(0, 0) != 1e-3 || ts.At(0, 1) != -250 || ts.At(1, 1) != 32.5 {
		t.Errorf("scientific notation misparsed: %v", ts.Data)
	}
}

func TestReadSeriesErrors(t *testing.T) {
	r := NewReader(nil)
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := r.ReadSeries(ctx, filepath.Join(t.TempDir(), "absent.csv"))
		if errors.GetCode(err) != errors.CodeIngest {
			t.Errorf("err = %v, want ingest error", err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, "empty.csv", "")
		_, err := r.ReadSeries(ctx, path)
		if errors.GetCode(err) != errors.CodeInputShape {
			t.Errorf("err = %v, want input shape error", err)
		}
	})

	t.Run("ragged rows", func(t *testing.T) {
		path := writeFile(t, "ragged.csv", "1,2,3\n4,5\n")
		_, err := r.ReadSeries(ctx, path)
		if errors.GetCode(err) != errors.CodeInputShape {
			t.Errorf("err = %v, want input shape error", err)
		}
	})

	t.Run("non-numeric cell", func(t *testing.T) {
		path := writeFile(t, "bad.csv", "1,2\n3,abc\n")
		_, err := r.ReadSeries(ctx, path)
		if errors.GetCode(err) != errors.CodeIngest {
			t.Errorf("err = %v, want ingest error", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		path := writeFile(t, "ok.csv", "1,2\n3,4\n")
		if _, err := r.ReadSeries(cancelled, path); err != context.Canceled {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestReadSeriesWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subject.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{1.5, 2.5, 3.5},
		{4.5, 5.5, 6.5},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	ts, err := NewReader(nil).ReadSeries(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if ts.Rows != 2 || ts.Cols != 3 {
		t.Fatalf("shape = %dx%d, want 2x3", ts.Rows, ts.Cols)
	}
	if ts.At(1, 1) != 5.5 {
		t.Errorf("At(1,1) = %v, want 5.5", ts.At(1, 1))
	}
}

func TestResolveInputsGlobOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"subject_2.csv", "subject_0.csv", "subject_1.csv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("1,2\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := ResolveInputs(dir, "*.csv", nil)
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}
	want := []string{
		filepath.Join(dir, "subject_0.csv"),
		filepath.Join(dir, "subject_1.csv"),
		filepath.Join(dir, "subject_2.csv"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d inputs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("inputs[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestResolveInputsExplicitListWins(t *testing.T) {
	explicit := []string{"z.csv", "a.csv"}
	got, err := ResolveInputs("ignored", "*.csv", explicit)
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}
	if got[0] != "z.csv" || got[1] != "a.csv" {
		t.Errorf("explicit order not preserved: %v", got)
	}

	got[0] = "mutated"
	if explicit[0] != "z.csv" {
		t.Error("ResolveInputs must copy the explicit list")
	}
}

func TestResolveInputsEmptyGlob(t *testing.T) {
	if _, err := ResolveInputs(t.TempDir(), "*.csv", nil); errors.GetCode(err) != errors.CodeConfiguration {
		t.Errorf("err = %v, want configuration error", err)
	}
}
