package engine

import (
	"github.com/aqasim81/database-schema-engine/internal/check"
	"github.com/aqasim81/database-schema-engine/internal/diff"
)

// MigrationFeedback is one finding about a migration step. StepIndex is the
// step's position in the migration so callers can correlate the message
// with the rendered DDL.
type MigrationFeedback struct {
	Message   string
	StepIndex int
}

func feedback(diags []check.Diagnostic) []MigrationFeedback {
	if len(diags) == 0 {
		return nil
	}

	out := make([]MigrationFeedback, len(diags))
	for i, d := range diags {
		out[i] = MigrationFeedback{Message: d.Message, StepIndex: d.StepIndex}
	}

	return out
}

// InferResult is the outcome of diffing the local history against a target
// schema, without applying anything.
type InferResult struct {
	// Migration holds the computed steps, empty when already in sync.
	Migration *diff.Migration
	// Script is the rendered DDL for Migration.
	Script string
	// Diagnostics are the conservative, no-inspection findings.
	Diagnostics check.Diagnostics
}

// CreatedMigration describes a migration newly written to the migrations
// directory.
type CreatedMigration struct {
	Name        string
	Directory   string
	Script      string
	Diagnostics check.Diagnostics
}

// DataLossReport classifies the steps needed to reach a target schema.
// Warnings lose data but execute; unexecutable steps will be rejected by
// the database no matter what.
type DataLossReport struct {
	MigrationSteps    uint32
	Warnings          []MigrationFeedback
	UnexecutableSteps []MigrationFeedback
}

// ApplyResult names the migrations an Apply run executed, in order.
type ApplyResult struct {
	AppliedMigrationNames []string
}

// PushResult is the outcome of pushing a target schema directly, without
// migration files.
type PushResult struct {
	ExecutedSteps uint32
	Warnings      []MigrationFeedback
}

// DiagnoseResult reports how the migrations directory and the ledger
// relate. History is nil when they agree.
type DiagnoseResult struct {
	HasMigrationsTable   bool
	FailedMigrationNames []string
	EditedMigrationNames []string
	History              HistoryDiagnostic
}
