package ports

import (
	"context"

	"dynaconn/domain/series"
)

// SeriesReader loads one subject's raw signal table from an input file.
// Implementations dispatch on file extension and must return tables as
// stored on disk: rows indexing time samples, columns indexing brain
// areas. series.TimeSeries.Window reorients them for the pipeline.
type SeriesReader interface {
	ReadSeries(ctx context.Context, path string) (*series.TimeSeries, error)
}
