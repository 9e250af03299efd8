// Package phase extracts instantaneous phases from raw area signals via
// the analytic signal, with an optional Butterworth band-pass applied
// first.
package phase

import (
	"context"

	"dynaconn/domain/series"
	"dynaconn/internal/errors"
)

// Extractor computes one phase trace per brain area. It is safe for
// concurrent use: all scratch state is allocated per call.
type Extractor struct {
	filter *Bandpass
}

// NewExtractor creates an extractor. A nil filter skips band-pass
// filtering, which is the default pipeline behavior.
func NewExtractor(filter *Bandpass) *Extractor {
	return &Extractor{filter: filter}
}

// Filtered reports whether a band-pass is applied before extraction.
func (e *Extractor) Filtered() bool {
	return e.filter != nil
}

// ExtractPhases transforms every area trace into instantaneous phases.
// The returned matrix is validated: all phases are finite and lie in
// (-pi, pi], or a numeric-degeneracy error identifies the offending
// area. Cancellation is checked between areas.
func (e *Extractor) ExtractPhases(ctx context.Context, ts *series.TimeSeries) (*series.PhaseMatrix, error) {
	h := newHilbert(ts.Cols)
	pm := series.NewPhaseMatrix(ts.Rows, ts.Cols)

	for a := 0; a < ts.Rows; a++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x := ts.Row(a)
		if e.filter != nil {
			x = e.filter.Apply(x)
		}
		h.phases(x, pm.Row(a))
	}

	if err := pm.Validate(); err != nil {
		return nil, errors.Wrap(err, "phase extraction produced invalid phases")
	}
	return pm, nil
}
