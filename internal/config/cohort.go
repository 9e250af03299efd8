package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dynaconn/domain/connectivity"
	"dynaconn/domain/run"
	"dynaconn/internal/errors"
)

// BandpassSpec describes the optional Butterworth band-pass applied to
// each area signal before phase extraction. Disabled by default.
type BandpassSpec struct {
	Enabled bool    `yaml:"enabled"`
	LowHz   float64 `yaml:"low_hz"`
	HighHz  float64 `yaml:"high_hz"`
}

// PersistSpec selects which intermediate artifacts are written.
type PersistSpec struct {
	Phases    bool `yaml:"phases"`
	Coherence bool `yaml:"coherence"`
}

// CohortSpec is the scientific parameterization of a batch, loaded from
// a YAML file. It declares the expected input geometry; inputs that do
// not match are rejected or truncated per the shape policy.
type CohortSpec struct {
	Name string `yaml:"name"`

	// InputDir is scanned for input files matching Pattern, sorted
	// lexically. Inputs overrides the scan with an explicit ordered list.
	InputDir string   `yaml:"input_dir"`
	Pattern  string   `yaml:"pattern"`
	Inputs   []string `yaml:"inputs,omitempty"`

	Areas      int `yaml:"areas"`
	Timepoints int `yaml:"timepoints"`

	// RepetitionTime is the sampling interval in seconds.
	RepetitionTime float64 `yaml:"repetition_time_s"`

	Variant    string `yaml:"variant"`
	Neighbors  int    `yaml:"neighbors"`
	Components int    `yaml:"components"`

	Bandpass BandpassSpec `yaml:"bandpass"`
	Persist  PersistSpec  `yaml:"persist"`
}

// DefaultCohortSpec returns a spec with the standard defaults applied.
func DefaultCohortSpec() CohortSpec {
	return CohortSpec{
		Pattern:        "*.csv",
		RepetitionTime: 2.0,
		Variant:        string(connectivity.VariantSpectral),
		Neighbors:      12,
		Components:     2,
		Bandpass: BandpassSpec{
			Enabled: false,
			LowHz:   0.04,
			HighHz:  0.07,
		},
		Persist: PersistSpec{
			Phases:    true,
			Coherence: true,
		},
	}
}

// LoadCohort reads a cohort spec from a YAML file, overlaying it on the
// defaults, and validates the result.
func LoadCohort(path string) (*CohortSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read cohort spec %s", path)
	}

	spec := DefaultCohortSpec()
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrapf(err, "parse cohort spec %s", path)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Save writes the spec as YAML, used by the init command to scaffold a
// starting point.
func (s *CohortSpec) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal cohort spec")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write cohort spec %s", path)
	}
	return nil
}

// Nyquist returns the Nyquist frequency in Hz implied by the repetition
// time.
func (s *CohortSpec) Nyquist() float64 {
	return 1.0 / (2.0 * s.RepetitionTime)
}

// Validate checks the spec for internal consistency.
func (s *CohortSpec) Validate() error {
	if s.InputDir == "" && len(s.Inputs) == 0 {
		return errors.Configuration("cohort needs input_dir or an explicit inputs list")
	}
	if s.Areas < 2 {
		return errors.Configuration("areas must be at least 2")
	}
	if s.Timepoints < 1 {
		return errors.Configuration("timepoints must be positive")
	}
	if s.RepetitionTime <= 0 {
		return errors.Configuration("repetition_time_s must be positive")
	}

	variant, err := connectivity.ParseVariant(s.Variant)
	if err != nil {
		return err
	}

	if s.Components != 2 {
		return errors.Configuration("components is fixed at 2")
	}
	if variant == connectivity.VariantManifold {
		if s.Neighbors < 1 {
			return errors.Configuration("neighbors must be positive")
		}
		if s.Neighbors >= s.Areas {
			return errors.Configuration(fmt.Sprintf(
				"neighbors (%d) must be smaller than areas (%d)", s.Neighbors, s.Areas))
		}
	}

	if s.Bandpass.Enabled {
		nyq := s.Nyquist()
		if s.Bandpass.LowHz <= 0 {
			return errors.Configuration("bandpass low_hz must be positive")
		}
		if s.Bandpass.HighHz <= s.Bandpass.LowHz {
			return errors.Configuration("bandpass high_hz must exceed low_hz")
		}
		if s.Bandpass.HighHz >= nyq {
			return errors.Configuration(fmt.Sprintf(
				"bandpass high_hz (%.4f) must stay below the Nyquist frequency (%.4f)",
				s.Bandpass.HighHz, nyq))
		}
	}
	return nil
}

// ReductionVariant returns the parsed variant. Validate must have
// succeeded first.
func (s *CohortSpec) ReductionVariant() connectivity.Variant {
	v, _ := connectivity.ParseVariant(s.Variant)
	return v
}

// Params converts the spec into the manifest record for a resolved
// cohort of the given size.
func (s *CohortSpec) Params(subjects int) run.CohortParams {
	return run.CohortParams{
		Name:             s.Name,
		Areas:            s.Areas,
		Timepoints:       s.Timepoints,
		Subjects:         subjects,
		RepetitionTime:   s.RepetitionTime,
		Variant:          s.Variant,
		Neighbors:        s.Neighbors,
		Components:       s.Components,
		BandpassEnabled:  s.Bandpass.Enabled,
		BandLowHz:        s.Bandpass.LowHz,
		BandHighHz:       s.Bandpass.HighHz,
		PersistPhases:    s.Persist.Phases,
		PersistCoherence: s.Persist.Coherence,
	}
}
