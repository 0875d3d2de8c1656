// Package executor applies migration scripts against a postgres database,
// driving the ledger record lifecycle: a record is opened before the first
// statement, advanced after each applied statement, and closed as finished
// or failed. Already-applied migrations are skipped after their recorded
// checksum is verified against the local script. The caller holds the
// advisory lock; session advisory locks are per-connection, so the engine
// acquires it once for the whole apply operation.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/database-schema-engine/internal/migration"
	"github.com/aqasim81/database-schema-engine/internal/tracker"
)

// Ledger is the slice of the migrations ledger the executor drives.
type Ledger interface {
	EnsureTable(ctx context.Context) error
	ListRecords(ctx context.Context) ([]tracker.Record, error)
	RecordStarted(ctx context.Context, name, checksum string) (string, error)
	RecordAppliedStep(ctx context.Context, id string) error
	RecordFinished(ctx context.Context, id string) error
	RecordFailed(ctx context.Context, id, logs string) error
}

// Splitter cuts a migration script into individually executable statements.
// The provider's dialect implements it.
type Splitter interface {
	SplitStatements(script string) ([]string, error)
}

// Progress receives execution events. Any nil field is skipped, so callers
// subscribe only to the events they care about.
type Progress struct {
	// MigrationStarted fires before a migration's first statement runs.
	MigrationStarted func(name string, statements int)
	// StatementApplied fires after each statement, with 1-based position.
	StatementApplied func(name string, applied, total int)
	// MigrationApplied fires after a migration's record is finished.
	MigrationApplied func(name string, duration time.Duration)
	// MigrationSkipped fires for already-applied (and dry-run) migrations.
	MigrationSkipped func(name string)
	// MigrationFailed fires when a migration fails. statementIndex is the
	// zero-based index of the failing statement, or -1 when the failure was
	// not tied to one statement.
	MigrationFailed func(name string, statementIndex int, err error)
}

func (p Progress) migrationStarted(name string, statements int) {
	if p.MigrationStarted != nil {
		p.MigrationStarted(name, statements)
	}
}

func (p Progress) statementApplied(name string, applied, total int) {
	if p.StatementApplied != nil {
		p.StatementApplied(name, applied, total)
	}
}

func (p Progress) migrationApplied(name string, duration time.Duration) {
	if p.MigrationApplied != nil {
		p.MigrationApplied(name, duration)
	}
}

func (p Progress) migrationSkipped(name string) {
	if p.MigrationSkipped != nil {
		p.MigrationSkipped(name)
	}
}

func (p Progress) migrationFailed(name string, statementIndex int, err error) {
	if p.MigrationFailed != nil {
		p.MigrationFailed(name, statementIndex, err)
	}
}

// Result reports what an apply run did.
type Result struct {
	Applied []string
	Skipped []string
}

// scriptExecFunc runs the split statements of one migration, calling
// applied with the zero-based index after each statement succeeds.
type scriptExecFunc func(ctx context.Context, statements []string, applied func(index int) error) error

// statementError marks an execution failure with the zero-based index of
// the statement that caused it.
type statementError struct {
	index int
	err   error
}

func (e *statementError) Error() string {
	return fmt.Sprintf("statement %d failed: %v", e.index, e.err)
}

func (e *statementError) Unwrap() error { return e.err }

// Executor applies pending migrations in history order with transaction
// safety and timeouts.
type Executor struct {
	pool             *pgxpool.Pool
	ledger           Ledger
	splitter         Splitter
	lockTimeout      time.Duration
	statementTimeout time.Duration
	dryRun           bool
	progress         Progress
	execScript       scriptExecFunc
	now              func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithDryRun makes Apply report what it would do without executing SQL or
// writing ledger records.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithProgress subscribes the given callbacks to execution events.
func WithProgress(p Progress) Option {
	return func(e *Executor) { e.progress = p }
}

// New creates an Executor with the given pool, ledger, splitter, and options.
func New(pool *pgxpool.Pool, ledger Ledger, splitter Splitter, opts ...Option) *Executor {
	e := &Executor{
		pool:     pool,
		ledger:   ledger,
		splitter: splitter,
	}

	for _, opt := range opts {
		opt(e)
	}

	// Defaults for the injectable functions come after the options, so
	// internal tests can pre-set them.
	if e.execScript == nil {
		e.execScript = e.executeStatements
	}

	if e.now == nil {
		e.now = time.Now
	}

	return e
}

// Apply executes pending migrations in order. Already-applied migrations
// are skipped after their checksum is verified; a migration with a failed
// record that was never rolled back stops the run before anything executes
// it.
func (e *Executor) Apply(ctx context.Context, migrations []migration.Migration) (*Result, error) {
	if err := e.ledger.EnsureTable(ctx); err != nil {
		return nil, err
	}

	records, err := e.ledger.ListRecords(ctx)
	if err != nil {
		return nil, err
	}

	states := foldRecords(records)
	result := &Result{}

	for _, m := range migrations {
		applied, err := e.applyOne(ctx, m, states[m.Name])
		if err != nil {
			return nil, err
		}

		if applied {
			result.Applied = append(result.Applied, m.Name)
		} else {
			result.Skipped = append(result.Skipped, m.Name)
		}
	}

	return result, nil
}

// recordState folds one migration's ledger records into what the
// skip/verify decision needs. Rolled-back records count as neither, so a
// fixed migration runs again under its own name.
type recordState struct {
	succeeded bool
	checksum  string
	failed    bool
}

func foldRecords(records []tracker.Record) map[string]recordState {
	states := make(map[string]recordState, len(records))

	for _, r := range records {
		s := states[r.MigrationName]

		switch {
		case r.Succeeded():
			s.succeeded = true
			s.checksum = r.Checksum
		case r.Failed():
			s.failed = true
		}

		states[r.MigrationName] = s
	}

	return states
}

// applyOne handles a single migration: skip if applied, refuse if it
// previously failed, execute statement by statement, and close the record.
// It reports whether the migration actually ran.
func (e *Executor) applyOne(ctx context.Context, m migration.Migration, state recordState) (bool, error) {
	if state.succeeded {
		if state.checksum != m.Checksum {
			return false, fmt.Errorf("migration %s: %w: ledger has %s, local script has %s",
				m.Name, tracker.ErrChecksumMismatch, state.checksum, m.Checksum)
		}

		e.progress.migrationSkipped(m.Name)

		return false, nil
	}

	if state.failed {
		return false, fmt.Errorf("migration %s: %w", m.Name, ErrMigrationPreviouslyFailed)
	}

	if e.dryRun {
		e.progress.migrationSkipped(m.Name)

		return false, nil
	}

	statements, err := e.splitter.SplitStatements(m.Script)
	if err != nil {
		return false, fmt.Errorf("splitting migration %s: %w", m.Name, err)
	}

	e.progress.migrationStarted(m.Name, len(statements))

	id, err := e.ledger.RecordStarted(ctx, m.Name, m.Checksum)
	if err != nil {
		return false, err
	}

	start := e.now()

	execErr := e.execScript(ctx, statements, func(index int) error {
		if err := e.ledger.RecordAppliedStep(ctx, id); err != nil {
			return err
		}

		e.progress.statementApplied(m.Name, index+1, len(statements))

		return nil
	})
	if execErr != nil {
		index := -1

		var stmtErr *statementError
		if errors.As(execErr, &stmtErr) {
			index = stmtErr.index
		}

		// The execution error is the one to surface; storing the logs is
		// best effort.
		_ = e.ledger.RecordFailed(ctx, id, execErr.Error())

		e.progress.migrationFailed(m.Name, index, execErr)

		return false, fmt.Errorf("%w: %s: %w", ErrExecutionFailed, m.Name, execErr)
	}

	if err := e.ledger.RecordFinished(ctx, id); err != nil {
		return false, err
	}

	e.progress.migrationApplied(m.Name, e.now().Sub(start))

	return true, nil
}

// executeStatements runs a migration's statements, inside one transaction
// unless the script creates an index concurrently, which postgres refuses
// to do in a transaction block.
func (e *Executor) executeStatements(ctx context.Context, statements []string, applied func(index int) error) error {
	concurrent, err := containsConcurrentIndex(statements)
	if err != nil {
		return err
	}

	if concurrent {
		return e.executeOnPool(ctx, statements, applied)
	}

	return ExecInTransaction(ctx, e.pool, func(tx pgx.Tx) error {
		if e.lockTimeout > 0 {
			if err := SetLockTimeout(ctx, tx, e.lockTimeout); err != nil {
				return err
			}
		}

		if e.statementTimeout > 0 {
			if err := SetStatementTimeout(ctx, tx, e.statementTimeout); err != nil {
				return err
			}
		}

		for i, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return &statementError{index: i, err: err}
			}

			if err := applied(i); err != nil {
				return err
			}
		}

		return nil
	})
}

// executeOnPool runs statements one by one directly on the pool, outside
// any transaction. A failure leaves the earlier statements applied.
func (e *Executor) executeOnPool(ctx context.Context, statements []string, applied func(index int) error) error {
	for i, stmt := range statements {
		if _, err := e.pool.Exec(ctx, stmt); err != nil {
			return &statementError{index: i, err: err}
		}

		if err := applied(i); err != nil {
			return err
		}
	}

	return nil
}
