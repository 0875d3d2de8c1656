package tracker

import "errors"

// ErrTableCreation indicates the ledger table could not be created.
var ErrTableCreation = errors.New("creating _schema_migrations table")

// ErrChecksumMismatch indicates a migration script changed after its
// checksum was recorded in the ledger.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// ErrCannotRollBackSucceededMigration indicates an attempt to roll back a
// migration whose record finished successfully.
var ErrCannotRollBackSucceededMigration = errors.New("cannot roll back a migration that succeeded")

// ErrCannotRollBackUnappliedMigration indicates an attempt to roll back a
// migration the ledger has no record of.
var ErrCannotRollBackUnappliedMigration = errors.New("cannot roll back a migration that was never applied")

// ErrMigrationAlreadyApplied indicates an attempt to adopt a migration that
// already has a succeeded record.
var ErrMigrationAlreadyApplied = errors.New("migration is already recorded as applied")
