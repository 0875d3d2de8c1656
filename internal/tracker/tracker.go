// Package tracker persists migration history in the _schema_migrations
// ledger table. Every apply writes a record whose lifecycle is Pending,
// then Applied or Failed, and for failed records optionally RolledBack.
// Rolling back is one-way and only legal for failed records.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one row of the migrations ledger.
type Record struct {
	ID                string
	Checksum          string
	StartedAt         time.Time
	FinishedAt        *time.Time
	MigrationName     string
	Logs              string
	RolledBackAt      *time.Time
	AppliedStepsCount int32
}

// Succeeded reports whether the migration ran to completion.
func (r Record) Succeeded() bool { return r.FinishedAt != nil }

// Failed reports whether the migration started but never finished and has
// not been rolled back.
func (r Record) Failed() bool { return r.FinishedAt == nil && r.RolledBackAt == nil }

// RolledBack reports whether a failed run was acknowledged.
func (r Record) RolledBack() bool { return r.RolledBackAt != nil }

// BaselineEntry names one migration adopted as applied without running it.
type BaselineEntry struct {
	Name     string
	Checksum string
}

// Ledger manages the _schema_migrations table.
type Ledger struct {
	pool *pgxpool.Pool
}

// New creates a Ledger backed by the given connection pool.
func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// EnsureTable creates the ledger table if it does not exist.
func (l *Ledger) EnsureTable(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, createLedgerSQL); err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// HasTable reports whether the ledger table exists. A database without it
// has never been migrated by this tool.
func (l *Ledger) HasTable(ctx context.Context) (bool, error) {
	var exists bool

	err := l.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, ledgerTable).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking for %s: %w", ledgerTable, err)
	}

	return exists, nil
}

// ListRecords returns every ledger record in the order the migrations were
// started. Ties (baselined records share one timestamp) break by migration
// name, which the timestamp prefix makes history order.
func (l *Ledger) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, checksum, started_at, finished_at, migration_name, COALESCE(logs, ''), rolled_back_at, applied_steps_count
		 FROM _schema_migrations
		 ORDER BY started_at, migration_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying migration records: %w", err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record

		scanErr := row.Scan(&r.ID, &r.Checksum, &r.StartedAt, &r.FinishedAt,
			&r.MigrationName, &r.Logs, &r.RolledBackAt, &r.AppliedStepsCount)

		return r, scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("scanning migration records: %w", err)
	}

	return records, nil
}

// RecordStarted opens a pending record for a migration about to run and
// returns its id. The checksum never changes after this point.
func (l *Ledger) RecordStarted(ctx context.Context, name, checksum string) (string, error) {
	id := uuid.NewString()

	_, err := l.pool.Exec(ctx,
		`INSERT INTO _schema_migrations (id, checksum, migration_name) VALUES ($1, $2, $3)`,
		id, checksum, name,
	)
	if err != nil {
		return "", fmt.Errorf("recording start of migration %s: %w", name, err)
	}

	return id, nil
}

// RecordAppliedStep bumps the record's applied step counter after each
// successfully executed statement.
func (l *Ledger) RecordAppliedStep(ctx context.Context, id string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE _schema_migrations SET applied_steps_count = applied_steps_count + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("recording applied step: %w", err)
	}

	return nil
}

// RecordFinished closes a pending record as applied.
func (l *Ledger) RecordFinished(ctx context.Context, id string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE _schema_migrations SET finished_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("recording finish of migration: %w", err)
	}

	return nil
}

// RecordFailed stores the failure logs on a pending record. finished_at
// stays NULL, which is what marks the record failed.
func (l *Ledger) RecordFailed(ctx context.Context, id, logs string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE _schema_migrations SET logs = $2 WHERE id = $1`,
		id, logs,
	)
	if err != nil {
		return fmt.Errorf("recording failure of migration: %w", err)
	}

	return nil
}

// MarkRolledBackByName acknowledges the failed records of one migration so
// a fixed version can run under the same name. Succeeded records cannot be
// rolled back, and a name with no records at all cannot either. Repeating
// the acknowledgement is a no-op.
func (l *Ledger) MarkRolledBackByName(ctx context.Context, name string) error {
	var total, succeeded int

	err := l.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(finished_at) FROM _schema_migrations WHERE migration_name = $1`,
		name,
	).Scan(&total, &succeeded)
	if err != nil {
		return fmt.Errorf("inspecting records of migration %s: %w", name, err)
	}

	if total == 0 {
		return fmt.Errorf("migration %s: %w", name, ErrCannotRollBackUnappliedMigration)
	}

	if succeeded > 0 {
		return fmt.Errorf("migration %s: %w", name, ErrCannotRollBackSucceededMigration)
	}

	_, err = l.pool.Exec(ctx,
		`UPDATE _schema_migrations SET rolled_back_at = now()
		 WHERE migration_name = $1 AND finished_at IS NULL AND rolled_back_at IS NULL`,
		name,
	)
	if err != nil {
		return fmt.Errorf("rolling back migration %s: %w", name, err)
	}

	return nil
}

// MarkApplied adopts a migration as applied without running it. A previous
// failed record is rolled back first; a succeeded record makes this an
// error, since adopting the same migration twice would fork the history.
func (l *Ledger) MarkApplied(ctx context.Context, name, checksum string) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("opening transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var succeeded, failed int

	err = tx.QueryRow(ctx,
		`SELECT COUNT(finished_at), COUNT(*) FILTER (WHERE finished_at IS NULL AND rolled_back_at IS NULL)
		 FROM _schema_migrations WHERE migration_name = $1`,
		name,
	).Scan(&succeeded, &failed)
	if err != nil {
		return fmt.Errorf("inspecting records of migration %s: %w", name, err)
	}

	if succeeded > 0 {
		return fmt.Errorf("migration %s: %w", name, ErrMigrationAlreadyApplied)
	}

	if failed > 0 {
		_, err = tx.Exec(ctx,
			`UPDATE _schema_migrations SET rolled_back_at = now()
			 WHERE migration_name = $1 AND finished_at IS NULL AND rolled_back_at IS NULL`,
			name,
		)
		if err != nil {
			return fmt.Errorf("rolling back failed records of migration %s: %w", name, err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO _schema_migrations (id, checksum, migration_name, finished_at)
		 VALUES ($1, $2, $3, now())`,
		uuid.NewString(), checksum, name,
	)
	if err != nil {
		return fmt.Errorf("adopting migration %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing adoption of migration %s: %w", name, err)
	}

	return nil
}

// BaselineInitialize creates the ledger and records every given migration
// as applied, without running any DDL. It refuses to baseline a database
// that already has history.
func (l *Ledger) BaselineInitialize(ctx context.Context, entries []BaselineEntry) error {
	if err := l.EnsureTable(ctx); err != nil {
		return err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("opening transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var existing int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM _schema_migrations`).Scan(&existing); err != nil {
		return fmt.Errorf("inspecting ledger: %w", err)
	}

	if existing > 0 {
		return fmt.Errorf("baseline: ledger already holds %d records", existing)
	}

	for _, e := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO _schema_migrations (id, checksum, migration_name, finished_at)
			 VALUES ($1, $2, $3, now())`,
			uuid.NewString(), e.Checksum, e.Name,
		)
		if err != nil {
			return fmt.Errorf("baselining migration %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing baseline: %w", err)
	}

	return nil
}
