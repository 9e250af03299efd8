package run

import (
	"time"

	"dynaconn/domain/core"
)

// SubjectStatus is the terminal state of one subject within a batch.
type SubjectStatus string

const (
	SubjectSucceeded SubjectStatus = "succeeded"
	SubjectFailed    SubjectStatus = "failed"
	SubjectSkipped   SubjectStatus = "skipped"
)

// SubjectOutcome records how one subject fared. A failed subject never
// aborts the batch; its outcome carries the classified error instead.
type SubjectOutcome struct {
	Subject      int            `json:"subject"`
	InputPath    string         `json:"input_path"`
	Status       SubjectStatus  `json:"status"`
	ErrorCode    string         `json:"error_code,omitempty"`
	Error        string         `json:"error,omitempty"`
	Warnings     []string       `json:"warnings,omitempty"`
	Degeneracies int            `json:"degeneracies"`
	Duration     time.Duration  `json:"duration_ns"`
	CompletedAt  core.Timestamp `json:"completed_at"`
}

// RunStatus is the terminal state of a whole batch.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// BatchSummary aggregates a finished batch.
type BatchSummary struct {
	RunID           core.RunID     `json:"run_id"`
	Status          RunStatus      `json:"status"`
	Subjects        int            `json:"subjects"`
	Succeeded       int            `json:"succeeded"`
	Failed          int            `json:"failed"`
	Skipped         int            `json:"skipped"`
	Degeneracies    int            `json:"degeneracies"`
	PersistFailures int            `json:"persist_failures"`
	Duration        time.Duration  `json:"duration_ns"`
	CompletedAt     core.Timestamp `json:"completed_at"`
}

// Resolve derives the terminal run status from the counts: completed
// when every subject succeeded, failed when none did, partial otherwise.
func (s *BatchSummary) Resolve() RunStatus {
	switch {
	case s.Succeeded == s.Subjects && s.PersistFailures == 0:
		s.Status = RunCompleted
	case s.Succeeded == 0:
		s.Status = RunFailed
	default:
		s.Status = RunPartial
	}
	return s.Status
}

// RunRecord is the registry's composite view of a run.
type RunRecord struct {
	Manifest BatchManifest `json:"manifest"`
	Summary  *BatchSummary `json:"summary,omitempty"`
	Status   RunStatus     `json:"status"`
}
