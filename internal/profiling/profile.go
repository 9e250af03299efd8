// Package profiling summarizes raw signal quality per brain area before
// the pipeline runs, surfacing dead channels and implausible scales.
package profiling

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"dynaconn/domain/series"
)

// AreaProfile summarizes the raw signal of one area.
type AreaProfile struct {
	Area   int     `json:"area"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	// Flat marks an area whose signal never moves. Its analytic phase
	// is meaningless and will trip the degeneracy checks downstream.
	Flat bool `json:"flat"`
}

// ProfileSeries computes per-area summary statistics over a raw subject
// table as stored on disk: rows indexing time samples, columns indexing
// areas.
func ProfileSeries(ts *series.TimeSeries) ([]AreaProfile, error) {
	profiles := make([]AreaProfile, 0, ts.Cols)
	row := make([]float64, ts.Rows)
	for a := 0; a < ts.Cols; a++ {
		for t := 0; t < ts.Rows; t++ {
			row[t] = ts.At(t, a)
		}

		mean, err := stats.Mean(row)
		if err != nil {
			return nil, fmt.Errorf("profile area %d: %w", a, err)
		}
		sd, err := stats.StandardDeviation(row)
		if err != nil {
			return nil, fmt.Errorf("profile area %d: %w", a, err)
		}
		min, err := stats.Min(row)
		if err != nil {
			return nil, fmt.Errorf("profile area %d: %w", a, err)
		}
		max, err := stats.Max(row)
		if err != nil {
			return nil, fmt.Errorf("profile area %d: %w", a, err)
		}
		median, err := stats.Median(row)
		if err != nil {
			return nil, fmt.Errorf("profile area %d: %w", a, err)
		}

		profiles = append(profiles, AreaProfile{
			Area:   a,
			Mean:   mean,
			StdDev: sd,
			Min:    min,
			Max:    max,
			Median: median,
			Flat:   sd == 0,
		})
	}
	return profiles, nil
}

// FlatAreas lists the indices of areas with constant signal.
func FlatAreas(profiles []AreaProfile) []int {
	var flat []int
	for _, p := range profiles {
		if p.Flat {
			flat = append(flat, p.Area)
		}
	}
	return flat
}
