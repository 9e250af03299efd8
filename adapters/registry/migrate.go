package registry

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// migration is one versioned schema step. Statements stick to the
// SQL subset shared by SQLite and PostgreSQL, so the same list drives
// both drivers.
type migration struct {
	Version string
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: "001",
		Name:    "runs",
		SQL: `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			params_json TEXT NOT NULL,
			config_hash TEXT NOT NULL,
			cohort_hash TEXT NOT NULL,
			code_version TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			subjects INTEGER NOT NULL,
			succeeded INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			degeneracies INTEGER NOT NULL DEFAULT 0,
			persist_failures INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			completed_at TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
		`,
	},
	{
		Version: "002",
		Name:    "subject_outcomes",
		SQL: `
		CREATE TABLE IF NOT EXISTS subject_outcomes (
			run_id TEXT NOT NULL,
			subject INTEGER NOT NULL,
			input_path TEXT NOT NULL,
			status TEXT NOT NULL,
			error_code TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			warnings_json TEXT NOT NULL DEFAULT '[]',
			degeneracies INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			completed_at TEXT NOT NULL,
			PRIMARY KEY (run_id, subject)
		);
		CREATE INDEX IF NOT EXISTS idx_outcomes_run ON subject_outcomes(run_id);
		`,
	},
}

// Migrate applies pending schema migrations, recording each with a
// checksum so a tampered statement is detectable.
func (r *SQLRegistry) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := r.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("load applied migrations: %w", err)
	}

	for _, m := range migrations {
		checksum := checksumSQL(m.SQL)
		if prev, ok := applied[m.Version]; ok {
			if prev != checksum {
				return fmt.Errorf("migration %s (%s) changed after being applied", m.Version, m.Name)
			}
			continue
		}
		if err := r.applyMigration(ctx, m, checksum); err != nil {
			return fmt.Errorf("apply migration %s (%s): %w", m.Version, m.Name, err)
		}
		r.log.Info("applied migration %s (%s)", m.Version, m.Name)
	}
	return nil
}

func (r *SQLRegistry) appliedMigrations(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

func (r *SQLRegistry) applyMigration(ctx context.Context, m migration, checksum string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		r.db.Rebind("INSERT INTO schema_migrations (version, checksum, applied_at) VALUES (?, ?, ?)"),
		m.Version, checksum, nowRFC3339())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func checksumSQL(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return fmt.Sprintf("%x", sum)
}
