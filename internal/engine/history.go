package engine

import (
	"context"
	"fmt"

	"github.com/aqasim81/database-schema-engine/internal/migration"
	"github.com/aqasim81/database-schema-engine/internal/tracker"
)

// HistoryDiagnostic describes how the migrations directory and the ledger
// disagree. A nil HistoryDiagnostic means they are in sync.
type HistoryDiagnostic interface {
	isHistoryDiagnostic()
}

// DatabaseIsBehind reports that every applied migration exists locally but
// some local migrations have not been applied yet. An apply fixes it.
type DatabaseIsBehind struct {
	UnappliedMigrationNames []string
}

// MigrationsDirectoryIsBehind reports that the ledger holds applied
// migrations that no longer exist in the migrations directory.
type MigrationsDirectoryIsBehind struct {
	UnpersistedMigrationNames []string
}

// HistoriesDiverge reports that the directory and the ledger share a
// common prefix and then each continues with migrations the other does
// not know about.
type HistoriesDiverge struct {
	LastCommonMigrationName   string
	UnappliedMigrationNames   []string
	UnpersistedMigrationNames []string
}

func (DatabaseIsBehind) isHistoryDiagnostic()            {}
func (MigrationsDirectoryIsBehind) isHistoryDiagnostic() {}
func (HistoriesDiverge) isHistoryDiagnostic()            {}

// DiagnoseMigrationHistory compares the migrations directory against the
// ledger by presence and by checksum. Missing-locally, never-applied and
// edited-after-apply are reported separately, never collapsed into one
// finding.
func (e *Engine) DiagnoseMigrationHistory(ctx context.Context) (*DiagnoseResult, error) {
	migrations, err := e.loadMigrations()
	if err != nil {
		return nil, err
	}

	has, err := e.ledger.HasTable(ctx)
	if err != nil {
		return nil, err
	}

	result := &DiagnoseResult{HasMigrationsTable: has}

	if !has {
		if len(migrations) > 0 {
			result.History = DatabaseIsBehind{UnappliedMigrationNames: migrationNames(migrations)}
		}

		return result, nil
	}

	records, err := e.ledger.ListRecords(ctx)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		if r.Failed() {
			result.FailedMigrationNames = append(result.FailedMigrationNames, r.MigrationName)
		}
	}

	result.History, result.EditedMigrationNames = compareHistories(migrations, records)

	return result, nil
}

// MarkMigrationRolledBack acknowledges a failed migration so a later apply
// retries it. It fails for names with no ledger record at all and for
// migrations that finished successfully.
func (e *Engine) MarkMigrationRolledBack(ctx context.Context, name string) error {
	return e.ledger.MarkRolledBackByName(ctx, name)
}

// MarkMigrationApplied records a local migration as applied without
// executing it, cleaning up any failed records for the same name.
func (e *Engine) MarkMigrationApplied(ctx context.Context, name string) error {
	migrations, err := e.loadMigrations()
	if err != nil {
		return err
	}

	var found *migration.Migration

	for i := range migrations {
		if migrations[i].Name == name {
			found = &migrations[i]
			break
		}
	}

	if found == nil {
		return fmt.Errorf("%w: %s", ErrUnknownMigration, name)
	}

	if err := e.ledger.EnsureTable(ctx); err != nil {
		return err
	}

	return e.ledger.MarkApplied(ctx, found.Name, found.Checksum)
}

// BaselineInitialize adopts an already-populated database by recording
// every local migration as applied, without emitting any DDL.
func (e *Engine) BaselineInitialize(ctx context.Context) error {
	migrations, err := e.loadMigrations()
	if err != nil {
		return err
	}

	entries := make([]tracker.BaselineEntry, len(migrations))
	for i, m := range migrations {
		entries[i] = tracker.BaselineEntry{Name: m.Name, Checksum: m.Checksum}
	}

	return e.ledger.BaselineInitialize(ctx, entries)
}

// compareHistories pairs local migrations with ledger records in order.
// Rolled-back records are out of the effective history; a later apply
// re-runs those migrations. Name mismatches end the common prefix, and a
// checksum mismatch inside the prefix marks the migration as edited.
func compareHistories(migrations []migration.Migration, records []tracker.Record) (HistoryDiagnostic, []string) {
	var applied []tracker.Record

	for _, r := range records {
		if r.RolledBack() {
			continue
		}

		applied = append(applied, r)
	}

	var edited []string

	common := 0
	for common < len(migrations) && common < len(applied) {
		if migrations[common].Name != applied[common].MigrationName {
			break
		}

		if migrations[common].Checksum != applied[common].Checksum {
			edited = append(edited, migrations[common].Name)
		}

		common++
	}

	var unapplied, unpersisted []string

	for _, m := range migrations[common:] {
		unapplied = append(unapplied, m.Name)
	}

	for _, r := range applied[common:] {
		unpersisted = append(unpersisted, r.MigrationName)
	}

	switch {
	case len(unapplied) == 0 && len(unpersisted) == 0:
		return nil, edited
	case len(unpersisted) == 0:
		return DatabaseIsBehind{UnappliedMigrationNames: unapplied}, edited
	case len(unapplied) == 0:
		return MigrationsDirectoryIsBehind{UnpersistedMigrationNames: unpersisted}, edited
	default:
		var last string
		if common > 0 {
			last = migrations[common-1].Name
		}

		return HistoriesDiverge{
			LastCommonMigrationName:   last,
			UnappliedMigrationNames:   unapplied,
			UnpersistedMigrationNames: unpersisted,
		}, edited
	}
}

func migrationNames(migrations []migration.Migration) []string {
	names := make([]string, len(migrations))
	for i, m := range migrations {
		names[i] = m.Name
	}

	return names
}
