package engine

import (
	"context"
	"fmt"

	"github.com/aqasim81/database-schema-engine/internal/check"
	"github.com/aqasim81/database-schema-engine/internal/diff"
	"github.com/aqasim81/database-schema-engine/internal/migration"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// Infer computes the migration that takes the schema built by the local
// history to the target schema. It renders the script and runs the
// conservative checker, but touches neither the database nor the
// migrations directory.
func (e *Engine) Infer(ctx context.Context, target *schema.Schema) (*InferResult, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	if e.source == nil {
		return nil, ErrNoSchemaSource
	}

	migrations, err := e.loadMigrations()
	if err != nil {
		return nil, err
	}

	previous, err := e.source.FromHistory(ctx, migrations)
	if err != nil {
		return nil, err
	}

	m := diff.Diff(previous, target, e.dialect)

	script, err := e.dialect.RenderScript(m)
	if err != nil {
		return nil, err
	}

	return &InferResult{
		Migration:   m,
		Script:      script,
		Diagnostics: check.New(m).PureCheck(),
	}, nil
}

// CreateMigration infers the migration to the target schema and persists it
// as a new timestamped directory, recording it in the lockfile. An empty
// diff creates nothing and returns nil unless draft is set, in which case
// an empty migration is written for the caller to fill in by hand.
func (e *Engine) CreateMigration(ctx context.Context, name string, target *schema.Schema, draft bool) (*CreatedMigration, error) {
	res, err := e.Infer(ctx, target)
	if err != nil {
		return nil, err
	}

	if res.Migration.IsEmpty() && !draft {
		return nil, nil
	}

	m, err := migration.Write(e.migrationsDir, migration.Format(e.now(), name), res.Script)
	if err != nil {
		return nil, err
	}

	lf, err := migration.ReadLockfile(e.migrationsDir)
	if err != nil {
		return nil, err
	}

	lf.Record(e.dialect.Name(), m)

	if err := migration.WriteLockfile(e.migrationsDir, lf); err != nil {
		return nil, fmt.Errorf("recording migration %s in lockfile: %w", m.Name, err)
	}

	return &CreatedMigration{
		Name:        m.Name,
		Directory:   m.Directory,
		Script:      res.Script,
		Diagnostics: res.Diagnostics,
	}, nil
}

// EvaluateDataLoss diffs the local history against the target schema and
// classifies every step using live inspection data where an inspector is
// available. Nothing is mutated.
func (e *Engine) EvaluateDataLoss(ctx context.Context, target *schema.Schema) (*DataLossReport, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	if e.source == nil {
		return nil, ErrNoSchemaSource
	}

	migrations, err := e.loadMigrations()
	if err != nil {
		return nil, err
	}

	previous, err := e.source.FromHistory(ctx, migrations)
	if err != nil {
		return nil, err
	}

	m := diff.Diff(previous, target, e.dialect)

	diags, err := e.diagnose(ctx, m)
	if err != nil {
		return nil, err
	}

	return &DataLossReport{
		MigrationSteps:    uint32(len(m.Steps)),
		Warnings:          feedback(diags.Warnings),
		UnexecutableSteps: feedback(diags.Unexecutables),
	}, nil
}

// diagnose runs the checker with live inspection when an inspector is
// wired, and the conservative pure check otherwise.
func (e *Engine) diagnose(ctx context.Context, m *diff.Migration) (check.Diagnostics, error) {
	plan := check.New(m)

	if e.inspector == nil {
		return plan.PureCheck(), nil
	}

	return plan.Check(ctx, e.inspector)
}
