package ports

import (
	"context"

	"dynaconn/domain/series"
)

// PhaseExtractor turns a raw signal table into instantaneous phases via
// the analytic signal of each area. The input must already match the
// declared cohort window.
type PhaseExtractor interface {
	ExtractPhases(ctx context.Context, ts *series.TimeSeries) (*series.PhaseMatrix, error)
}
