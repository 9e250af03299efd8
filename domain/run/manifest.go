// Package run defines the batch-execution records of the pipeline: the
// manifest written before processing starts, per-subject outcomes, and
// the final summary.
package run

import (
	"dynaconn/domain/core"
)

// CohortParams is the scientific parameterization of a batch, recorded
// verbatim in the manifest so a run can be reproduced from its record.
type CohortParams struct {
	Name             string  `json:"name"`
	Areas            int     `json:"areas"`
	Timepoints       int     `json:"timepoints"`
	Subjects         int     `json:"subjects"`
	RepetitionTime   float64 `json:"repetition_time_s"`
	Variant          string  `json:"variant"`
	Neighbors        int     `json:"neighbors"`
	Components       int     `json:"components"`
	BandpassEnabled  bool    `json:"bandpass_enabled"`
	BandLowHz        float64 `json:"band_low_hz"`
	BandHighHz       float64 `json:"band_high_hz"`
	PersistPhases    bool    `json:"persist_phases"`
	PersistCoherence bool    `json:"persist_coherence"`
}

// BatchManifest is the truth source for a run. It must be persisted
// before any subject artifact so partial runs remain interpretable.
type BatchManifest struct {
	RunID       core.RunID      `json:"run_id"`
	Params      CohortParams    `json:"params"`
	ConfigHash  core.ConfigHash `json:"config_hash"`
	CohortHash  core.CohortHash `json:"cohort_hash"`
	CodeVersion string          `json:"code_version"`
	Fingerprint core.Hash       `json:"fingerprint"`
	CreatedAt   core.Timestamp  `json:"created_at"`
}

// NewBatchManifest assembles a manifest and its determinism fingerprint.
func NewBatchManifest(
	runID core.RunID,
	params CohortParams,
	configHash core.ConfigHash,
	cohortHash core.CohortHash,
	codeVersion string,
) *BatchManifest {
	fingerprint := core.NewHash([]byte(
		configHash.String() + "|" + cohortHash.String() + "|" + codeVersion,
	))
	return &BatchManifest{
		RunID:       runID,
		Params:      params,
		ConfigHash:  configHash,
		CohortHash:  cohortHash,
		CodeVersion: codeVersion,
		Fingerprint: fingerprint,
		CreatedAt:   core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *BatchManifest) Validate() error {
	if m.RunID.IsEmpty() {
		return core.ConfigError("manifest", "run_id cannot be empty")
	}
	if m.ConfigHash.IsEmpty() {
		return core.ConfigError("manifest", "config_hash cannot be empty")
	}
	if m.CohortHash.IsEmpty() {
		return core.ConfigError("manifest", "cohort_hash cannot be empty")
	}
	if m.CodeVersion == "" {
		return core.ConfigError("manifest", "code_version cannot be empty")
	}
	if m.Params.Areas < 2 {
		return core.ConfigError("manifest", "areas must be at least 2")
	}
	if m.Params.Timepoints < 1 {
		return core.ConfigError("manifest", "timepoints must be positive")
	}
	if m.Params.Subjects < 1 {
		return core.ConfigError("manifest", "subjects must be positive")
	}
	return nil
}
