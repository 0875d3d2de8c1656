package executor

import "errors"

// ErrExecutionFailed indicates a migration script failed partway through.
var ErrExecutionFailed = errors.New("migration execution failed")

// ErrMigrationPreviouslyFailed indicates a migration has a failed ledger
// record that was never rolled back. The record must be acknowledged or
// the migration adopted before another apply can run.
var ErrMigrationPreviouslyFailed = errors.New("migration previously failed and was not rolled back")
