package testkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"dynaconn/adapters/store"
	"dynaconn/domain/core"
	"dynaconn/domain/run"
	"dynaconn/internal/errors"
	"dynaconn/ports"
)

// InMemoryStore implements ports.ArtifactStore on maps. Blobs hold the
// same bytes a LocalStore would write, while tables stay accessible in
// typed form for direct assertions.
type InMemoryStore struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	tables map[string]ports.Table
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		blobs:  make(map[string][]byte),
		tables: make(map[string]ports.Table),
	}
}

var _ ports.ArtifactStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) PutTable(ctx context.Context, key string, table ports.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := store.EncodeTable(key, table)
	if err != nil {
		return errors.Persistence(key, err)
	}

	owned := ports.Table{
		Rows:   table.Rows,
		Cols:   table.Cols,
		Values: append([]float64(nil), table.Values...),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	s.tables[key] = owned
	return nil
}

func (s *InMemoryStore) PutJSON(ctx context.Context, key string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Persistence(key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append(data, '\n')
	return nil
}

func (s *InMemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("artifact " + key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *InMemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Table returns a stored table in typed form.
func (s *InMemoryStore) Table(key string) (ports.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[key]
	return t, ok
}

// JSON unmarshals a stored JSON artifact into v.
func (s *InMemoryStore) JSON(key string, v any) error {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return errors.NotFound("artifact " + key)
	}
	return json.Unmarshal(data, v)
}

// Len reports the number of stored artifacts.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// InMemoryRegistry implements ports.RunRegistry on maps, preserving
// creation order for ListRuns.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	runs     map[core.RunID]*run.RunRecord
	order    []core.RunID
	subjects map[core.RunID][]run.SubjectOutcome
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		runs:     make(map[core.RunID]*run.RunRecord),
		subjects: make(map[core.RunID][]run.SubjectOutcome),
	}
}

var _ ports.RunRegistry = (*InMemoryRegistry)(nil)

func (r *InMemoryRegistry) CreateRun(ctx context.Context, manifest *run.BatchManifest) error {
	if err := manifest.Validate(); err != nil {
		return errors.Wrap(err, "validate manifest")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[manifest.RunID]; exists {
		return errors.DatabaseError(fmt.Sprintf("run %s already exists", manifest.RunID))
	}
	r.runs[manifest.RunID] = &run.RunRecord{
		Manifest: *manifest,
		Status:   run.RunRunning,
	}
	r.order = append(r.order, manifest.RunID)
	return nil
}

func (r *InMemoryRegistry) RecordSubject(ctx context.Context, runID core.RunID, outcome run.SubjectOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[runID]; !exists {
		return errors.NotFound("run " + runID.String())
	}
	outcome.Warnings = append([]string(nil), outcome.Warnings...)
	r.subjects[runID] = append(r.subjects[runID], outcome)
	return nil
}

func (r *InMemoryRegistry) CompleteRun(ctx context.Context, summary *run.BatchSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, exists := r.runs[summary.RunID]
	if !exists {
		return errors.NotFound("run " + summary.RunID.String())
	}
	owned := *summary
	record.Summary = &owned
	record.Status = summary.Status
	return nil
}

func (r *InMemoryRegistry) GetRun(ctx context.Context, runID core.RunID) (*run.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, exists := r.runs[runID]
	if !exists {
		return nil, errors.NotFound("run " + runID.String())
	}
	copied := *record
	if record.Summary != nil {
		summary := *record.Summary
		copied.Summary = &summary
	}
	return &copied, nil
}

func (r *InMemoryRegistry) ListRuns(ctx context.Context, limit int) ([]run.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []run.RunRecord
	for i := len(r.order) - 1; i >= 0; i-- {
		if limit > 0 && len(records) == limit {
			break
		}
		record := r.runs[r.order[i]]
		copied := *record
		if record.Summary != nil {
			summary := *record.Summary
			copied.Summary = &summary
		}
		records = append(records, copied)
	}
	return records, nil
}

func (r *InMemoryRegistry) ListSubjects(ctx context.Context, runID core.RunID) ([]run.SubjectOutcome, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, exists := r.runs[runID]; !exists {
		return nil, errors.NotFound("run " + runID.String())
	}

	outcomes := append([]run.SubjectOutcome(nil), r.subjects[runID]...)
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Subject < outcomes[j].Subject
	})
	return outcomes, nil
}

func (r *InMemoryRegistry) Close() error {
	return nil
}
