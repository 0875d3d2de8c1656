package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/aqasim81/database-schema-engine/internal/check"
	"github.com/aqasim81/database-schema-engine/internal/diff"
	"github.com/aqasim81/database-schema-engine/internal/migration"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// Apply executes every pending migration in history order. The advisory
// lock is held for the whole operation so the history preflight, the drift
// check and execution all see one consistent database.
func (e *Engine) Apply(ctx context.Context) (*ApplyResult, error) {
	migrations, err := e.loadMigrations()
	if err != nil {
		return nil, err
	}

	lock, err := e.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx) //nolint:errcheck // closing the pool releases it regardless

	appliedCount, err := e.preflight(ctx, migrations)
	if err != nil {
		return nil, err
	}

	if e.source != nil {
		if err := e.driftCheck(ctx, migrations[:appliedCount]); err != nil {
			return nil, err
		}
	}

	result, err := e.applier.Apply(ctx, migrations)
	if err != nil {
		return nil, err
	}

	return &ApplyResult{AppliedMigrationNames: result.Applied}, nil
}

// preflight verifies that the ledger and the migrations directory agree
// before anything executes. It returns how many local migrations the
// ledger already holds as succeeded; only states an apply can fix (the
// database being behind) pass.
func (e *Engine) preflight(ctx context.Context, migrations []migration.Migration) (int, error) {
	has, err := e.ledger.HasTable(ctx)
	if err != nil {
		return 0, err
	}

	if !has {
		return 0, nil
	}

	records, err := e.ledger.ListRecords(ctx)
	if err != nil {
		return 0, err
	}

	var failed []string

	applied := 0

	for _, r := range records {
		if r.Failed() {
			failed = append(failed, r.MigrationName)
		}

		if r.Succeeded() {
			applied++
		}
	}

	if len(failed) > 0 {
		return 0, fmt.Errorf("%w: migrations previously failed: %s; roll them back before applying again",
			ErrHistoryInconsistent, strings.Join(failed, ", "))
	}

	history, edited := compareHistories(migrations, records)
	if len(edited) > 0 {
		return 0, fmt.Errorf("%w: migrations were edited after being applied: %s",
			ErrHistoryInconsistent, strings.Join(edited, ", "))
	}

	switch h := history.(type) {
	case nil, DatabaseIsBehind:
		return applied, nil
	case MigrationsDirectoryIsBehind:
		return 0, fmt.Errorf("%w: the ledger holds migrations missing locally: %s",
			ErrHistoryInconsistent, strings.Join(h.UnpersistedMigrationNames, ", "))
	case HistoriesDiverge:
		return 0, fmt.Errorf("%w: local and applied histories diverge after %q",
			ErrHistoryInconsistent, h.LastCommonMigrationName)
	default:
		return 0, fmt.Errorf("%w: unrecognized history state %T", ErrHistoryInconsistent, h)
	}
}

// driftCheck re-introspects the live database and compares it with the
// schema the applied history builds. External schema changes fail the
// apply instead of letting a stale plan run.
func (e *Engine) driftCheck(ctx context.Context, applied []migration.Migration) error {
	expected, err := e.source.FromHistory(ctx, applied)
	if err != nil {
		return err
	}

	live, err := e.source.FromLive(ctx)
	if err != nil {
		return err
	}

	if d := diff.Diff(expected, live, e.dialect); !d.IsEmpty() {
		return fmt.Errorf("%w:\n%s", ErrDriftDetected, d.Summary())
	}

	return nil
}

// Push diffs the live database directly against the target schema and
// executes the resulting steps, bypassing migration files and the ledger.
// Unexecutable steps always block; warnings block unless force is set.
func (e *Engine) Push(ctx context.Context, target *schema.Schema, force bool) (*PushResult, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	if e.source == nil {
		return nil, ErrNoSchemaSource
	}

	live, err := e.source.FromLive(ctx)
	if err != nil {
		return nil, err
	}

	m := diff.Diff(live, target, e.dialect)
	if m.IsEmpty() {
		return &PushResult{}, nil
	}

	diags, err := e.diagnose(ctx, m)
	if err != nil {
		return nil, err
	}

	if diags.Blocks(force) {
		return nil, fmt.Errorf("%w:\n%s", ErrDestructiveChangesRejected, formatDiagnostics(diags))
	}

	script, err := e.dialect.RenderScript(m)
	if err != nil {
		return nil, err
	}

	statements, err := e.dialect.SplitStatements(script)
	if err != nil {
		return nil, err
	}

	lock, err := e.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx) //nolint:errcheck // closing the pool releases it regardless

	if err := e.runStatements(ctx, statements); err != nil {
		return nil, err
	}

	return &PushResult{
		ExecutedSteps: uint32(len(statements)),
		Warnings:      feedback(diags.Warnings),
	}, nil
}

func formatDiagnostics(d check.Diagnostics) string {
	var b strings.Builder

	for _, diag := range d.Unexecutables {
		fmt.Fprintf(&b, "  unexecutable: %s\n", diag.Message)
	}

	for _, diag := range d.Warnings {
		fmt.Fprintf(&b, "  warning: %s\n", diag.Message)
	}

	return strings.TrimRight(b.String(), "\n")
}
