package store

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"dynaconn/internal"
	"dynaconn/internal/errors"
	"dynaconn/ports"
)

const (
	defaultQueueDepth  = 256
	defaultWorkers     = 4
	defaultBudgetBytes = 256 << 20

	// JSON payloads are small diagnostics; charge a flat weight rather
	// than serializing twice.
	jsonWeight = 4 << 10
)

type writeJob struct {
	key    string
	table  *ports.Table
	json   any
	weight int64
}

// AsyncWriter decouples artifact persistence from the compute path. It
// implements ports.ArtifactWriter by queueing jobs for a fixed worker
// pool, with a weighted semaphore bounding the bytes held in flight so
// a slow disk applies backpressure instead of exhausting memory.
type AsyncWriter struct {
	inner  ports.ArtifactWriter
	log    *internal.Logger
	jobs   chan writeJob
	budget *semaphore.Weighted
	cap    int64
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	failures int
	errs     []error
}

// NewAsyncWriter starts workers draining a queue of writes against the
// wrapped writer. Non-positive sizes fall back to defaults.
func NewAsyncWriter(inner ports.ArtifactWriter, queueDepth, workers int, budgetBytes int64, log *internal.Logger) *AsyncWriter {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	if budgetBytes <= 0 {
		budgetBytes = defaultBudgetBytes
	}
	if log == nil {
		log = internal.DefaultLogger
	}

	w := &AsyncWriter{
		inner:  inner,
		log:    log.Tagged("writer"),
		jobs:   make(chan writeJob, queueDepth),
		budget: semaphore.NewWeighted(budgetBytes),
		cap:    budgetBytes,
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.work()
	}
	return w
}

// PutTable queues a table write. The values are copied, so the caller
// may reuse its buffer immediately. Blocks when the in-flight byte
// budget or the queue is full.
func (w *AsyncWriter) PutTable(ctx context.Context, key string, table ports.Table) error {
	owned := ports.Table{
		Rows:   table.Rows,
		Cols:   table.Cols,
		Values: append([]float64(nil), table.Values...),
	}
	weight := int64(len(owned.Values))*8 + 64
	return w.submit(ctx, writeJob{key: key, table: &owned, weight: weight})
}

// PutJSON queues a JSON write. The payload must not be mutated after
// submission.
func (w *AsyncWriter) PutJSON(ctx context.Context, key string, payload any) error {
	return w.submit(ctx, writeJob{key: key, json: payload, weight: jsonWeight})
}

func (w *AsyncWriter) submit(ctx context.Context, job writeJob) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return errors.Persistence(job.key, fmt.Errorf("writer already closed"))
	}

	if job.weight > w.cap {
		job.weight = w.cap
	}
	if err := w.budget.Acquire(ctx, job.weight); err != nil {
		return err
	}

	select {
	case w.jobs <- job:
		return nil
	case <-ctx.Done():
		w.budget.Release(job.weight)
		return ctx.Err()
	}
}

func (w *AsyncWriter) work() {
	defer w.wg.Done()
	ctx := context.Background()
	for job := range w.jobs {
		var err error
		if job.table != nil {
			err = w.inner.PutTable(ctx, job.key, *job.table)
		} else {
			err = w.inner.PutJSON(ctx, job.key, job.json)
		}
		w.budget.Release(job.weight)
		if err != nil {
			w.recordFailure(job.key, err)
		}
	}
}

func (w *AsyncWriter) recordFailure(key string, err error) {
	w.log.Error("write %s failed: %v", key, err)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures++
	if len(w.errs) < 8 {
		w.errs = append(w.errs, errors.Persistence(key, err))
	}
}

// Failures reports how many queued writes have failed so far.
func (w *AsyncWriter) Failures() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failures
}

// Close stops accepting writes, drains the queue, and reports an error
// when any queued write failed. Safe to call once.
func (w *AsyncWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.jobs)
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failures == 0 {
		return nil
	}
	return errors.Wrap(w.errs[0], fmt.Sprintf("%d artifact writes failed", w.failures))
}
