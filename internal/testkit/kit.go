// Package testkit provides in-memory port implementations and a
// synthetic cohort generator shared across package tests.
package testkit

import (
	"context"
	"fmt"
	"time"

	"dynaconn/adapters/store"
	"dynaconn/domain/connectivity"
	"dynaconn/domain/core"
	"dynaconn/domain/run"
	"dynaconn/ports"
)

// TestKit bundles the in-memory ports most tests wire together.
type TestKit struct {
	store    *InMemoryStore
	registry *InMemoryRegistry
}

func NewTestKit() *TestKit {
	return &TestKit{
		store:    NewInMemoryStore(),
		registry: NewInMemoryRegistry(),
	}
}

func (t *TestKit) Store() *InMemoryStore {
	return t.store
}

func (t *TestKit) Registry() *InMemoryRegistry {
	return t.registry
}

// SeedRun registers a completed run with per-subject outcomes and a
// minimal artifact set, for read-path tests.
func (t *TestKit) SeedRun(ctx context.Context, subjects int) (*run.BatchManifest, error) {
	params := run.CohortParams{
		Name:           "seeded",
		Areas:          6,
		Timepoints:     120,
		Subjects:       subjects,
		RepetitionTime: 2.0,
		Variant:        string(connectivity.VariantSpectral),
		Neighbors:      12,
		Components:     2,
		BandLowHz:      0.04,
		BandHighHz:     0.07,
	}
	manifest := run.NewBatchManifest(
		core.NewRunID(), params,
		core.NewHash([]byte("seed-config")), core.NewHash([]byte("seed-cohort")),
		"test",
	)

	if err := t.registry.CreateRun(ctx, manifest); err != nil {
		return nil, err
	}
	if err := t.store.PutJSON(ctx, store.ManifestKey(manifest.RunID), manifest); err != nil {
		return nil, err
	}

	for s := 0; s < subjects; s++ {
		outcome := run.SubjectOutcome{
			Subject:     s,
			InputPath:   fmt.Sprintf("/data/subject_%d.csv", s),
			Status:      run.SubjectSucceeded,
			Duration:    time.Second,
			CompletedAt: core.Now(),
		}
		if err := t.registry.RecordSubject(ctx, manifest.RunID, outcome); err != nil {
			return nil, err
		}

		key := store.TrajectoryKey(manifest.RunID, connectivity.VariantSpectral, s)
		table := ports.Table{
			Rows:   2,
			Cols:   params.Areas,
			Values: make([]float64, 2*params.Areas),
		}
		for i := range table.Values {
			table.Values[i] = float64(s*10 + i)
		}
		if err := t.store.PutTable(ctx, key, table); err != nil {
			return nil, err
		}
	}

	summary := &run.BatchSummary{
		RunID:       manifest.RunID,
		Subjects:    subjects,
		Succeeded:   subjects,
		Duration:    time.Duration(subjects) * time.Second,
		CompletedAt: core.Now(),
	}
	summary.Resolve()
	if err := t.registry.CompleteRun(ctx, summary); err != nil {
		return nil, err
	}
	return manifest, nil
}
