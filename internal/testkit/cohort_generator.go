package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dynaconn/domain/series"
)

// CohortConfig configures the synthetic cohort generator.
type CohortConfig struct {
	Subjects   int     `json:"subjects"`
	Areas      int     `json:"areas"`
	Timepoints int     `json:"timepoints"`
	// SampleRate is 1/TR in Hz.
	SampleRate float64 `json:"sample_rate_hz"`
	// CarrierHz is the shared oscillation frequency. The default sits
	// inside the 0.04-0.07 Hz band so bandpass tests keep the signal.
	CarrierHz float64 `json:"carrier_hz"`
	NoiseSD   float64 `json:"noise_sd"`
	Seed      int64   `json:"seed"`
}

// DefaultCohortConfig returns a small cohort that exercises every
// pipeline stage quickly.
func DefaultCohortConfig() CohortConfig {
	return CohortConfig{
		Subjects:   3,
		Areas:      6,
		Timepoints: 120,
		SampleRate: 0.5,
		CarrierHz:  0.055,
		NoiseSD:    0.1,
		Seed:       42,
	}
}

// CohortGenerator produces synthetic resting-state series: every area
// oscillates at the carrier frequency with an area-dependent phase lag,
// so coherence structure is known by construction.
type CohortGenerator struct {
	config CohortConfig
	rng    *rand.Rand
}

func NewCohortGenerator(config CohortConfig) *CohortGenerator {
	return &CohortGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateSeries builds one subject's series in memory, area-major
// (areas x timepoints) as the pipeline consumes it after Window.
func (g *CohortGenerator) GenerateSeries(subject int) *series.TimeSeries {
	cfg := g.config
	data := make([]float64, cfg.Areas*cfg.Timepoints)

	subjectJitter := g.rng.Float64() * 0.2
	for a := 0; a < cfg.Areas; a++ {
		amplitude := 1 + 0.2*g.rng.Float64()
		lag := 2*math.Pi*float64(a)/float64(cfg.Areas) + subjectJitter
		for t := 0; t < cfg.Timepoints; t++ {
			phase := 2*math.Pi*cfg.CarrierHz*float64(t)/cfg.SampleRate + lag
			value := amplitude * math.Sin(phase)
			value += 0.15 * math.Sin(2*phase)
			value += cfg.NoiseSD * g.rng.NormFloat64()
			data[a*cfg.Timepoints+t] = value
		}
	}

	return &series.TimeSeries{
		Rows: cfg.Areas,
		Cols: cfg.Timepoints,
		Data: data,
	}
}

// WriteCohort writes one CSV per subject under dir and returns the
// paths in subject order. Files follow the input convention: one row
// per time sample, one column per area.
func (g *CohortGenerator) WriteCohort(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cohort directory: %w", err)
	}

	paths := make([]string, 0, g.config.Subjects)
	for s := 0; s < g.config.Subjects; s++ {
		ts := g.GenerateSeries(s)
		path := filepath.Join(dir, fmt.Sprintf("subject_%d.csv", s))
		if err := writeSeriesCSV(path, ts); err != nil {
			return nil, fmt.Errorf("write subject %d: %w", s, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writeSeriesCSV transposes the area-major series onto disk as one
// time sample per line.
func writeSeriesCSV(path string, ts *series.TimeSeries) error {
	var b strings.Builder
	for t := 0; t < ts.Cols; t++ {
		for a := 0; a < ts.Rows; a++ {
			if a > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatFloat(ts.At(a, t), 'g', -1, 64))
		}
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
