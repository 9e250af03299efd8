// Package registry persists batch runs and per-subject outcomes in a
// relational database, keeping the durable record of what ran separate
// from the bulk artifact store.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"dynaconn/domain/core"
	"dynaconn/domain/run"
	"dynaconn/internal"
	"dynaconn/internal/errors"
	"dynaconn/ports"
)

// SQLRegistry implements ports.RunRegistry on SQLite or PostgreSQL.
// Timestamps are stored as RFC 3339 text and durations as integer
// milliseconds, keeping the schema identical across drivers.
type SQLRegistry struct {
	db  *sqlx.DB
	log *internal.Logger
}

// Open connects to the registry database and applies pending
// migrations. The driver is "sqlite" or "postgres"; SQLite DSNs gain
// WAL journaling and a busy timeout when none is configured.
func Open(ctx context.Context, driver, dsn string, log *internal.Logger) (*SQLRegistry, error) {
	if log == nil {
		log = internal.DefaultLogger
	}

	var driverName string
	switch driver {
	case "", "sqlite":
		driverName = "sqlite"
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case "postgres":
		driverName = "postgres"
	default:
		return nil, errors.Configuration("unknown registry driver " + driver)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect registry database")
	}

	r := &SQLRegistry{db: db, log: log.Tagged("registry")}
	if err := r.Migrate(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate registry schema")
	}
	return r, nil
}

var _ ports.RunRegistry = (*SQLRegistry)(nil)

// CreateRun implements ports.RunRegistry.
func (r *SQLRegistry) CreateRun(ctx context.Context, manifest *run.BatchManifest) error {
	if err := manifest.Validate(); err != nil {
		return errors.Wrap(err, "validate manifest")
	}
	params, err := json.Marshal(manifest.Params)
	if err != nil {
		return errors.Wrap(err, "marshal run params")
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO runs (id, status, params_json, config_hash, cohort_hash,
			code_version, fingerprint, subjects, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		manifest.RunID.String(), string(run.RunRunning), string(params),
		manifest.ConfigHash.String(), manifest.CohortHash.String(),
		manifest.CodeVersion, manifest.Fingerprint.String(),
		manifest.Params.Subjects, formatTime(manifest.CreatedAt))
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	return nil
}

// RecordSubject implements ports.RunRegistry.
func (r *SQLRegistry) RecordSubject(ctx context.Context, runID core.RunID, outcome run.SubjectOutcome) error {
	warnings, err := json.Marshal(outcome.Warnings)
	if err != nil {
		return errors.Wrap(err, "marshal subject warnings")
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO subject_outcomes (run_id, subject, input_path, status,
			error_code, error_message, warnings_json, degeneracies,
			duration_ms, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		runID.String(), outcome.Subject, outcome.InputPath, string(outcome.Status),
		outcome.ErrorCode, outcome.Error, string(warnings), outcome.Degeneracies,
		outcome.Duration.Milliseconds(), formatTime(outcome.CompletedAt))
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	return nil
}

// CompleteRun implements ports.RunRegistry.
func (r *SQLRegistry) CompleteRun(ctx context.Context, summary *run.BatchSummary) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE runs
		SET status = ?, succeeded = ?, failed = ?, skipped = ?,
			degeneracies = ?, persist_failures = ?, duration_ms = ?,
			completed_at = ?
		WHERE id = ?`),
		string(summary.Status), summary.Succeeded, summary.Failed, summary.Skipped,
		summary.Degeneracies, summary.PersistFailures, summary.Duration.Milliseconds(),
		formatTime(summary.CompletedAt), summary.RunID.String())
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("run " + summary.RunID.String())
	}
	return nil
}

// GetRun implements ports.RunRegistry.
func (r *SQLRegistry) GetRun(ctx context.Context, runID core.RunID) (*run.RunRecord, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT id, status, params_json, config_hash, cohort_hash, code_version,
			fingerprint, subjects, succeeded, failed, skipped, degeneracies,
			persist_failures, duration_ms, created_at, completed_at
		FROM runs WHERE id = ?`), runID.String())

	record, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("run " + runID.String())
		}
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	return record, nil
}

// ListRuns implements ports.RunRegistry.
func (r *SQLRegistry) ListRuns(ctx context.Context, limit int) ([]run.RunRecord, error) {
	query := `
		SELECT id, status, params_json, config_hash, cohort_hash, code_version,
			fingerprint, subjects, succeeded, failed, skipped, degeneracies,
			persist_failures, duration_ms, created_at, completed_at
		FROM runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	defer rows.Close()

	var records []run.RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, errors.WithCode(errors.CodeDatabaseError, err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	return records, nil
}

// ListSubjects implements ports.RunRegistry.
func (r *SQLRegistry) ListSubjects(ctx context.Context, runID core.RunID) ([]run.SubjectOutcome, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT subject, input_path, status, error_code, error_message,
			warnings_json, degeneracies, duration_ms, completed_at
		FROM subject_outcomes WHERE run_id = ? ORDER BY subject`), runID.String())
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	defer rows.Close()

	var outcomes []run.SubjectOutcome
	for rows.Next() {
		var (
			o           run.SubjectOutcome
			status      string
			warnings    string
			durationMS  int64
			completedAt string
		)
		err := rows.Scan(&o.Subject, &o.InputPath, &status, &o.ErrorCode,
			&o.Error, &warnings, &o.Degeneracies, &durationMS, &completedAt)
		if err != nil {
			return nil, errors.WithCode(errors.CodeDatabaseError, err)
		}
		o.Status = run.SubjectStatus(status)
		o.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(warnings), &o.Warnings); err != nil {
			return nil, errors.Wrap(err, "unmarshal subject warnings")
		}
		if o.CompletedAt, err = parseTime(completedAt); err != nil {
			return nil, errors.Wrap(err, "parse subject completion time")
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	return outcomes, nil
}

// Close implements ports.RunRegistry.
func (r *SQLRegistry) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*run.RunRecord, error) {
	var (
		id          string
		status      string
		paramsJSON  string
		configHash  string
		cohortHash  string
		codeVersion string
		fingerprint string
		subjects    int
		succeeded   int
		failed      int
		skipped     int
		degen       int
		persistFail int
		durationMS  int64
		createdAt   string
		completedAt sql.NullString
	)
	err := row.Scan(&id, &status, &paramsJSON, &configHash, &cohortHash,
		&codeVersion, &fingerprint, &subjects, &succeeded, &failed, &skipped,
		&degen, &persistFail, &durationMS, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	var params run.CohortParams
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return nil, fmt.Errorf("unmarshal run params: %w", err)
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse run creation time: %w", err)
	}

	record := &run.RunRecord{
		Manifest: run.BatchManifest{
			RunID:       core.RunID(id),
			Params:      params,
			ConfigHash:  core.ConfigHash(configHash),
			CohortHash:  core.CohortHash(cohortHash),
			CodeVersion: codeVersion,
			Fingerprint: core.Hash(fingerprint),
			CreatedAt:   created,
		},
		Status: run.RunStatus(status),
	}

	if completedAt.Valid {
		completed, err := parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse run completion time: %w", err)
		}
		record.Summary = &run.BatchSummary{
			RunID:           core.RunID(id),
			Status:          record.Status,
			Subjects:        subjects,
			Succeeded:       succeeded,
			Failed:          failed,
			Skipped:         skipped,
			Degeneracies:    degen,
			PersistFailures: persistFail,
			Duration:        time.Duration(durationMS) * time.Millisecond,
			CompletedAt:     completed,
		}
	}
	return record, nil
}

// timeLayout keeps a fixed-width fraction so text comparison orders
// timestamps chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(ts core.Timestamp) string {
	return ts.Time().UTC().Format(timeLayout)
}

func parseTime(raw string) (core.Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return core.Timestamp{}, err
	}
	return core.NewTimestamp(t), nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(timeLayout)
}
