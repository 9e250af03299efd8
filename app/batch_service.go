// Package app orchestrates batch executions of the connectivity
// pipeline: input resolution, per-subject processing with failure
// isolation, artifact persistence, and run registration.
package app

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"dynaconn/adapters/coherence"
	"dynaconn/adapters/ingest"
	"dynaconn/adapters/phase"
	"dynaconn/adapters/reduce"
	"dynaconn/adapters/similarity"
	"dynaconn/adapters/store"
	"dynaconn/domain/connectivity"
	"dynaconn/domain/core"
	"dynaconn/domain/run"
	"dynaconn/internal"
	"dynaconn/internal/config"
	"dynaconn/internal/errors"
	"dynaconn/ports"
)

// BatchService runs one cohort through the full pipeline: phase
// extraction, per-timepoint coherence, trajectory reduction, and
// per-subject FCD similarity. Subjects fan out over a bounded worker
// pool; one subject's failure never aborts the others unless FailFast
// is set.
type BatchService struct {
	reader   ports.SeriesReader
	store    ports.ArtifactStore
	registry ports.RunRegistry
	pipeline config.PipelineConfig
	version  string
	log      *internal.Logger
}

// NewBatchService wires a batch service. version is recorded in the
// run manifest for reproducibility.
func NewBatchService(
	reader ports.SeriesReader,
	artifacts ports.ArtifactStore,
	registry ports.RunRegistry,
	pipeline config.PipelineConfig,
	version string,
	log *internal.Logger,
) *BatchService {
	if log == nil {
		log = internal.DefaultLogger
	}
	if version == "" {
		version = "dev"
	}
	return &BatchService{
		reader:   reader,
		store:    artifacts,
		registry: registry,
		pipeline: pipeline,
		version:  version,
		log:      log.Tagged("batch"),
	}
}

// Run executes one batch over the cohort described by spec and returns
// its summary. Configuration problems fail before any subject is
// touched; subject-level failures are isolated into their outcomes and
// reflected in the summary status instead.
func (s *BatchService) Run(ctx context.Context, spec *config.CohortSpec) (*run.BatchSummary, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	inputs, err := ingest.ResolveInputs(spec.InputDir, spec.Pattern, spec.Inputs)
	if err != nil {
		return nil, err
	}
	subjects := len(inputs)

	variant := spec.ReductionVariant()
	reducer, err := reduce.ForVariant(variant, spec.Neighbors)
	if err != nil {
		return nil, err
	}

	var filter *phase.Bandpass
	if spec.Bandpass.Enabled {
		filter, err = phase.NewBandpass(spec.Bandpass.LowHz, spec.Bandpass.HighHz, 1.0/spec.RepetitionTime)
		if err != nil {
			return nil, err
		}
	}
	extractor := phase.NewExtractor(filter)

	configHash, err := core.ComputeConfigHash(spec)
	if err != nil {
		return nil, errors.Wrap(err, "fingerprint configuration")
	}
	manifest := run.NewBatchManifest(
		core.NewRunID(),
		spec.Params(subjects),
		configHash,
		core.ComputeCohortHash(inputs),
		s.version,
	)

	if err := s.registry.CreateRun(ctx, manifest); err != nil {
		return nil, errors.Wrap(err, "register run")
	}
	s.log.Info("run %s: %d subjects, variant=%s, %dx%d window",
		manifest.RunID, subjects, variant, spec.Areas, spec.Timepoints)

	writer := store.NewAsyncWriter(s.store, s.pipeline.WriterQueue, s.pipeline.WriterWorkers, s.pipeline.WriterBudgetBytes, s.log)
	if err := writer.PutJSON(ctx, store.ManifestKey(manifest.RunID), manifest); err != nil {
		writer.Close()
		return nil, errors.Wrap(err, "persist manifest")
	}

	tensor, err := connectivity.NewTrajectoryTensor(subjects, spec.Timepoints, reducer.FeatureLen(spec.Areas))
	if err != nil {
		writer.Close()
		return nil, err
	}

	workers := s.pipeline.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	started := time.Now()
	outcomes := make([]run.SubjectOutcome, subjects)
	// Registry and summary writes must land even when the run context
	// is cancelled, or an interrupted batch leaves no trace of what ran.
	recordCtx := context.WithoutCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for idx, path := range inputs {
		g.Go(func() error {
			outcome := s.processSubject(gctx, manifest, spec, extractor, reducer, writer, tensor, idx, path)
			outcomes[idx] = outcome
			if err := s.registry.RecordSubject(recordCtx, manifest.RunID, outcome); err != nil {
				s.log.Error("record subject %d outcome: %v", idx, err)
			}
			if s.pipeline.FailFast && outcome.Status == run.SubjectFailed {
				return fmt.Errorf("subject %d (%s): %s", idx, path, outcome.Error)
			}
			return nil
		})
	}
	runErr := g.Wait()

	// Drain every queued artifact before summarizing; failures surface
	// in the summary, never as mid-loop aborts.
	if err := writer.Close(); err != nil {
		s.log.Error("artifact writer: %v", err)
	}

	summary := &run.BatchSummary{
		RunID:           manifest.RunID,
		Subjects:        subjects,
		PersistFailures: writer.Failures(),
		Duration:        time.Since(started),
		CompletedAt:     core.Now(),
	}
	for _, outcome := range outcomes {
		switch outcome.Status {
		case run.SubjectSucceeded:
			summary.Succeeded++
		case run.SubjectFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
		summary.Degeneracies += outcome.Degeneracies
	}
	summary.Resolve()

	if err := s.registry.CompleteRun(recordCtx, summary); err != nil {
		s.log.Error("complete run %s: %v", manifest.RunID, err)
	}
	s.log.Info("run %s %s: %d/%d subjects succeeded in %s",
		manifest.RunID, summary.Status, summary.Succeeded, subjects, summary.Duration.Round(time.Millisecond))

	if runErr != nil {
		return summary, runErr
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// processSubject runs the full per-subject pipeline. It never returns
// an error; every failure mode is classified into the outcome so the
// batch can keep going.
func (s *BatchService) processSubject(
	ctx context.Context,
	manifest *run.BatchManifest,
	spec *config.CohortSpec,
	extractor ports.PhaseExtractor,
	reducer ports.TrajectoryReducer,
	writer ports.ArtifactWriter,
	tensor *connectivity.TrajectoryTensor,
	subject int,
	path string,
) (outcome run.SubjectOutcome) {
	outcome = run.SubjectOutcome{Subject: subject, InputPath: path}
	started := time.Now()
	defer func() {
		outcome.Duration = time.Since(started)
		outcome.CompletedAt = core.Now()
	}()

	skip := func(err error) {
		outcome.Status = run.SubjectSkipped
		outcome.Error = err.Error()
	}
	fail := func(err error) {
		outcome.Status = run.SubjectFailed
		outcome.ErrorCode = errors.GetCode(err)
		outcome.Error = err.Error()
		s.log.Error("subject %d (%s): %v", subject, path, err)
	}

	if err := ctx.Err(); err != nil {
		skip(err)
		return
	}

	raw, err := s.reader.ReadSeries(ctx, path)
	if err != nil {
		fail(err)
		return
	}
	ts, warnings, err := raw.Window(spec.Areas, spec.Timepoints)
	if err != nil {
		fail(err)
		return
	}
	outcome.Warnings = warnings
	for _, w := range warnings {
		s.log.Warn("subject %d: %s", subject, w)
	}

	pm, err := extractor.ExtractPhases(ctx, ts)
	if err != nil {
		fail(err)
		return
	}
	if spec.Persist.Phases {
		key := store.PhaseKey(manifest.RunID, subject)
		table := ports.Table{Rows: pm.Areas, Cols: pm.Timepoints, Values: pm.Data}
		if err := writer.PutTable(ctx, key, table); err != nil {
			fail(err)
			return
		}
	}

	variant := reducer.Variant()
	col := make([]float64, spec.Areas)
	cm := connectivity.NewCoherenceMatrix(spec.Areas)
	for t := 0; t < spec.Timepoints; t++ {
		if err := ctx.Err(); err != nil {
			skip(err)
			return
		}
		if err := coherence.BuildInto(pm, t, col, cm); err != nil {
			fail(err)
			return
		}
		if spec.Persist.Coherence {
			key := store.CoherenceKey(manifest.RunID, subject, t)
			table := ports.Table{Rows: cm.Areas, Cols: cm.Areas, Values: cm.Data}
			if err := writer.PutTable(ctx, key, table); err != nil {
				fail(err)
				return
			}
		}

		vec, diags, err := reducer.Reduce(cm)
		if err != nil {
			fail(errors.Wrapf(err, "reduce timepoint %d", t))
			return
		}
		if err := tensor.SetFeature(subject, t, vec); err != nil {
			fail(err)
			return
		}
		if diags != nil {
			key := store.DiagnosticsKey(manifest.RunID, diags.Kind(), subject, t)
			if err := writer.PutJSON(ctx, key, diags); err != nil {
				fail(err)
				return
			}
		}
	}

	trajectoryKey := store.TrajectoryKey(manifest.RunID, variant, subject)
	trajectory := ports.Table{
		Rows:   tensor.Timepoints,
		Cols:   tensor.FeatureLen,
		Values: tensor.SubjectBlock(subject),
	}
	if err := writer.PutTable(ctx, trajectoryKey, trajectory); err != nil {
		fail(err)
		return
	}

	sm, degenerate, err := similarity.Subject(tensor, subject)
	if err != nil {
		fail(err)
		return
	}
	outcome.Degeneracies = degenerate
	if degenerate > 0 {
		s.log.Warn("subject %d: %d zero-norm timepoints in similarity matrix", subject, degenerate)
	}
	similarityKey := store.SimilarityKey(manifest.RunID, variant, subject)
	fcd := ports.Table{Rows: sm.Timepoints, Cols: sm.Timepoints, Values: sm.Data}
	if err := writer.PutTable(ctx, similarityKey, fcd); err != nil {
		fail(err)
		return
	}

	outcome.Status = run.SubjectSucceeded
	return
}
