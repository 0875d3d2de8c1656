package engine

import "errors"

var (
	// ErrNoSchemaSource is returned by operations that need schema
	// snapshots when the engine was built without a SchemaSource.
	ErrNoSchemaSource = errors.New("no schema source configured")

	// ErrDestructiveChangesRejected is returned when a push would lose
	// data and force was not given, or when a step cannot execute at all.
	ErrDestructiveChangesRejected = errors.New("destructive changes rejected")

	// ErrDriftDetected is returned by Apply when the live database no
	// longer matches what the applied history says it should look like.
	ErrDriftDetected = errors.New("database drift detected")

	// ErrHistoryInconsistent is returned by Apply when the ledger and the
	// migrations directory disagree in a way applying cannot fix.
	ErrHistoryInconsistent = errors.New("migration history inconsistent")

	// ErrUnknownMigration is returned when a named migration does not
	// exist in the migrations directory.
	ErrUnknownMigration = errors.New("unknown migration")
)
