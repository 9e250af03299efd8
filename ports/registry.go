package ports

import (
	"context"

	"dynaconn/domain/core"
	"dynaconn/domain/run"
)

// RunRegistry records batch executions and their per-subject outcomes
// in durable storage, separate from the bulk artifact store.
type RunRegistry interface {
	// CreateRun persists the manifest before any processing starts.
	CreateRun(ctx context.Context, manifest *run.BatchManifest) error

	// RecordSubject appends one subject outcome to a running batch.
	RecordSubject(ctx context.Context, runID core.RunID, outcome run.SubjectOutcome) error

	// CompleteRun stores the final summary and terminal status.
	CompleteRun(ctx context.Context, summary *run.BatchSummary) error

	// GetRun fetches a run with its summary when finished.
	GetRun(ctx context.Context, runID core.RunID) (*run.RunRecord, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]run.RunRecord, error)

	// ListSubjects returns the outcomes of one run in subject order.
	ListSubjects(ctx context.Context, runID core.RunID) ([]run.SubjectOutcome, error)

	// Close releases the underlying connection.
	Close() error
}
