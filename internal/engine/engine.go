// Package engine ties the schema pipeline together: it loads the migration
// history from disk, obtains schema snapshots through a SchemaSource, diffs
// them with the configured dialect, screens the result for destructive
// changes, and drives the executor and the ledger. Everything below it is
// mechanism; the operations here are what callers actually invoke.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/database-schema-engine/internal/check"
	"github.com/aqasim81/database-schema-engine/internal/database"
	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/executor"
	"github.com/aqasim81/database-schema-engine/internal/migration"
	"github.com/aqasim81/database-schema-engine/internal/schema"
	"github.com/aqasim81/database-schema-engine/internal/tracker"
)

// SchemaSource produces schema snapshots for diffing. Replaying a history
// and introspecting a live database are collaborator concerns; the engine
// only consumes the snapshots.
type SchemaSource interface {
	// FromHistory returns the schema the given migrations build up to.
	FromHistory(ctx context.Context, migrations []migration.Migration) (*schema.Schema, error)
	// FromLive returns the database's current structure.
	FromLive(ctx context.Context) (*schema.Schema, error)
}

// Ledger is the slice of the migrations ledger the engine drives directly.
// The executor holds its own, narrower view.
type Ledger interface {
	EnsureTable(ctx context.Context) error
	HasTable(ctx context.Context) (bool, error)
	ListRecords(ctx context.Context) ([]tracker.Record, error)
	MarkRolledBackByName(ctx context.Context, name string) error
	MarkApplied(ctx context.Context, name, checksum string) error
	BaselineInitialize(ctx context.Context, entries []tracker.BaselineEntry) error
}

// Applier runs pending migrations. *executor.Executor is the production
// implementation.
type Applier interface {
	Apply(ctx context.Context, migrations []migration.Migration) (*executor.Result, error)
}

// lockReleaser is returned by lockFn and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires the advisory lock and returns a releaser.
type lockFunc func(ctx context.Context) (lockReleaser, error)

// statementsFunc executes rendered DDL statements in order.
type statementsFunc func(ctx context.Context, statements []string) error

// Engine orchestrates the migration operations for one database and one
// migrations directory.
type Engine struct {
	dialect       dialect.Dialect
	pool          *pgxpool.Pool
	migrationsDir string

	ledger    Ledger
	applier   Applier
	source    SchemaSource
	inspector check.Inspector

	executorOpts []executor.Option

	acquireLock   lockFunc
	runStatements statementsFunc
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithSchemaSource wires the snapshot producer. Infer, CreateMigration and
// EvaluateDataLoss require it; Apply uses it for the drift check when
// present.
func WithSchemaSource(s SchemaSource) Option {
	return func(e *Engine) { e.source = s }
}

// WithInspector wires the live data counter the destructive change checker
// queries. Without one, checks assume the worst.
func WithInspector(i check.Inspector) Option {
	return func(e *Engine) { e.inspector = i }
}

// WithLedger replaces the default pgx-backed ledger.
func WithLedger(l Ledger) Option {
	return func(e *Engine) { e.ledger = l }
}

// WithApplier replaces the default executor.
func WithApplier(a Applier) Option {
	return func(e *Engine) { e.applier = a }
}

// WithExecutorOptions passes options through to the default executor. They
// are ignored when WithApplier is set.
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(e *Engine) { e.executorOpts = opts }
}

// New creates an Engine for the given pool, dialect, and migrations
// directory. The pool may be nil for purely local operations (Infer,
// CreateMigration against a SchemaSource that needs no database).
func New(pool *pgxpool.Pool, d dialect.Dialect, migrationsDir string, opts ...Option) *Engine {
	e := &Engine{
		dialect:       d,
		pool:          pool,
		migrationsDir: migrationsDir,
	}

	for _, opt := range opts {
		opt(e)
	}

	// Defaults come after the options; internal tests pre-set the seams.
	if e.ledger == nil {
		e.ledger = tracker.New(pool)
	}

	if e.applier == nil {
		e.applier = executor.New(pool, tracker.New(pool), d, e.executorOpts...)
	}

	if e.acquireLock == nil {
		e.acquireLock = func(ctx context.Context) (lockReleaser, error) {
			return database.TryAcquireLock(ctx, e.pool)
		}
	}

	if e.runStatements == nil {
		e.runStatements = e.execStatements
	}

	if e.now == nil {
		e.now = time.Now
	}

	return e
}

// loadMigrations reads the migrations directory in history order after
// verifying that the lockfile pins this engine's provider. The provider
// gate runs before anything is diffed. A directory that does not exist yet
// is an empty history, not an error.
func (e *Engine) loadMigrations() ([]migration.Migration, error) {
	lf, err := migration.ReadLockfile(e.migrationsDir)
	if err != nil {
		return nil, err
	}

	if err := lf.CheckProvider(e.dialect.Name()); err != nil {
		return nil, err
	}

	migrations, err := migration.LoadFromDir(e.migrationsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	return migration.Sort(migrations), nil
}

// execStatements runs rendered DDL directly on the pool, one statement at a
// time. Push uses it; migration scripts go through the executor instead.
func (e *Engine) execStatements(ctx context.Context, statements []string) error {
	for i, stmt := range statements {
		if _, err := e.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing statement %d: %w", i, err)
		}
	}

	return nil
}
