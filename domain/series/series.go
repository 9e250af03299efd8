// Package series defines the raw and phase-domain representations of
// multi-area brain signal recordings.
package series

import (
	"fmt"

	"dynaconn/domain/core"
)

// TimeSeries holds a 2D signal table in row-major order. Loaded subject
// files carry one row per time sample and one column per brain area;
// Window reorients them area-major for the pipeline, after which rows
// index areas and columns index timepoints.
type TimeSeries struct {
	Rows int
	Cols int
	Data []float64
}

// NewTimeSeries constructs a TimeSeries, verifying the backing slice
// matches the declared dimensions.
func NewTimeSeries(rows, cols int, data []float64) (*TimeSeries, error) {
	if rows <= 0 || cols <= 0 {
		return nil, core.ConfigError("series", fmt.Sprintf("non-positive dimensions %dx%d", rows, cols))
	}
	if len(data) != rows*cols {
		return nil, core.ShapeError(len(data)/max(cols, 1), cols, rows, cols)
	}
	return &TimeSeries{Rows: rows, Cols: cols, Data: data}, nil
}

// At returns the signal value for area r at timepoint c.
func (ts *TimeSeries) At(r, c int) float64 {
	return ts.Data[r*ts.Cols+c]
}

// Row returns the full signal of one area as a view into the backing
// slice. Callers must not hold the slice across mutations.
func (ts *TimeSeries) Row(r int) []float64 {
	return ts.Data[r*ts.Cols : (r+1)*ts.Cols]
}

// Window reconciles a raw table, rows indexing time samples and columns
// indexing brain areas, against the declared cohort dimensions, and
// returns it reoriented area-major (areas x timepoints). Tables smaller
// than declared in either dimension are rejected with a shape error.
// Larger tables are truncated to the declared window, and each
// truncation is reported as a warning so the run record preserves what
// was discarded.
func (ts *TimeSeries) Window(areas, timepoints int) (*TimeSeries, []string, error) {
	if ts.Rows < timepoints || ts.Cols < areas {
		return nil, nil, core.ShapeError(ts.Rows, ts.Cols, timepoints, areas)
	}

	var warnings []string
	if ts.Rows > timepoints {
		warnings = append(warnings, fmt.Sprintf("input has %d rows, truncated to declared %d timepoints", ts.Rows, timepoints))
	}
	if ts.Cols > areas {
		warnings = append(warnings, fmt.Sprintf("input has %d columns, truncated to declared %d areas", ts.Cols, areas))
	}

	out := make([]float64, areas*timepoints)
	for t := 0; t < timepoints; t++ {
		row := ts.Data[t*ts.Cols : t*ts.Cols+areas]
		for a, v := range row {
			out[a*timepoints+t] = v
		}
	}
	return &TimeSeries{Rows: areas, Cols: timepoints, Data: out}, warnings, nil
}
