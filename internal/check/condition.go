package check

import (
	"fmt"

	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// checkKind identifies what a condition is watching for.
type checkKind int

const (
	dropTable checkKind = iota
	dropColumn
	recreateColumn
	riskyCast
	notCastableChange
	addedRequiredColumn
	madeColumnRequired
	primaryKeyChange
	addedPrimaryKey
	uniqueIndexAdded
	enumVariantsRemoved
)

// dataScope is which live count gates a condition.
type dataScope int

const (
	// scopeAlways holds regardless of data; no count is taken.
	scopeAlways dataScope = iota
	// scopeTableRows is gated on the table's row count.
	scopeTableRows
	// scopeColumnValues is gated on the column's non-null value count.
	scopeColumnValues
	// scopeColumnNulls is gated on the column's NULL count.
	scopeColumnNulls
)

// condition is one extracted destructive-change check. Fields past stepIndex
// are sparse: namespace and table drive the count queries, column scopes the
// value counts, and the remaining fields carry per-kind message context.
type condition struct {
	kind      checkKind
	stepIndex int

	namespace string
	table     string
	column    string

	cast     string // type-change description, the cast kinds
	index    string // index name, uniqueIndexAdded
	enum     string // enum name, enumVariantsRemoved
	variants string // removed variant list, enumVariantsRemoved
}

// unexecutable reports whether the condition blocks unconditionally once it
// holds. Everything else is a warning, clearable by force.
func (c condition) unexecutable() bool {
	switch c.kind {
	case notCastableChange, addedRequiredColumn, madeColumnRequired:
		return true
	default:
		return false
	}
}

func (c condition) scope() dataScope {
	switch c.kind {
	case dropTable, addedRequiredColumn, addedPrimaryKey, uniqueIndexAdded:
		return scopeTableRows
	case dropColumn, recreateColumn, riskyCast, notCastableChange:
		return scopeColumnValues
	case madeColumnRequired:
		return scopeColumnNulls
	default:
		return scopeAlways
	}
}

// pureMessage phrases the finding without live counts, assuming the data is
// there.
func (c condition) pureMessage() string {
	switch c.kind {
	case dropTable:
		return fmt.Sprintf("Dropping table %q; any rows it holds are lost.", c.table)
	case dropColumn:
		return fmt.Sprintf("Dropping column %q on table %q; any values it holds are lost.", c.column, c.table)
	case recreateColumn:
		return fmt.Sprintf("Column %q on table %q is dropped and recreated; any values it holds are lost.", c.column, c.table)
	case riskyCast:
		return fmt.Sprintf("Changing the type of column %q on table %q (%s); existing values may fail to convert.", c.column, c.table, c.cast)
	case notCastableChange:
		return fmt.Sprintf("Cannot change the type of column %q on table %q (%s) while it holds values.", c.column, c.table, c.cast)
	case addedRequiredColumn:
		return fmt.Sprintf("Cannot add required column %q without a default to table %q unless the table is empty.", c.column, c.table)
	case madeColumnRequired:
		return fmt.Sprintf("Cannot make column %q on table %q required while it holds NULL values.", c.column, c.table)
	case primaryKeyChange:
		return fmt.Sprintf("The primary key of table %q changes; a failure mid-step can leave the table without a primary key.", c.table)
	case addedPrimaryKey:
		return fmt.Sprintf("Adding a primary key to table %q fails if the keyed columns hold duplicate or NULL values.", c.table)
	case uniqueIndexAdded:
		return fmt.Sprintf("Adding unique index %q on table %q fails if the indexed columns hold duplicate values.", c.index, c.table)
	case enumVariantsRemoved:
		return fmt.Sprintf("Removing variants [%s] from enum %q; rows still using them make the migration fail.", c.variants, c.enum)
	default:
		return "unknown check"
	}
}

// liveMessage phrases the finding with the count that triggered it. Kinds
// that hold regardless of data keep their pure phrasing.
func (c condition) liveMessage(count int64) string {
	switch c.kind {
	case dropTable:
		return fmt.Sprintf("Dropping table %q, which holds %d rows.", c.table, count)
	case dropColumn:
		return fmt.Sprintf("Dropping column %q on table %q, which holds %d non-null values.", c.column, c.table, count)
	case recreateColumn:
		return fmt.Sprintf("Column %q on table %q is dropped and recreated; %d non-null values are lost.", c.column, c.table, count)
	case riskyCast:
		return fmt.Sprintf("Changing the type of column %q on table %q (%s); %d values may fail to convert.", c.column, c.table, c.cast, count)
	case notCastableChange:
		return fmt.Sprintf("Cannot change the type of column %q on table %q (%s); it holds %d values.", c.column, c.table, c.cast, count)
	case addedRequiredColumn:
		return fmt.Sprintf("Cannot add required column %q without a default to table %q; the table holds %d rows.", c.column, c.table, count)
	case madeColumnRequired:
		return fmt.Sprintf("Cannot make column %q on table %q required; it holds %d NULL values.", c.column, c.table, count)
	case addedPrimaryKey:
		return fmt.Sprintf("Adding a primary key to table %q, which holds %d rows; duplicate or NULL key values make this fail.", c.table, count)
	case uniqueIndexAdded:
		return fmt.Sprintf("Adding unique index %q on table %q, which holds %d rows; duplicate values make this fail.", c.index, c.table, count)
	default:
		return c.pureMessage()
	}
}

// castDescription names a type transition for messages. Enum-to-enum changes
// name the enums; everything else names the type families.
func castDescription(previous, next schema.ColumnWalker) string {
	prevEnum, prevOK := previous.EnumType()
	nextEnum, nextOK := next.EnumType()
	if prevOK && nextOK {
		return fmt.Sprintf("enum %q to enum %q", prevEnum.Name(), nextEnum.Name())
	}

	return fmt.Sprintf("%s to %s", previous.Type().Family, next.Type().Family)
}

// Diagnostic is one finding, tied to the migration step that raised it.
type Diagnostic struct {
	// StepIndex is the position of the offending step in Migration.Steps.
	StepIndex int
	// Message is the finding. Live checks embed the row or value counts that
	// triggered them.
	Message string
}

// Diagnostics is the outcome of checking one migration.
type Diagnostics struct {
	// Warnings flag changes that execute but lose data or risk a partial
	// failure. They block an apply unless the caller forces past them.
	Warnings []Diagnostic
	// Unexecutables flag steps the database will reject against its current
	// data. They always block; forcing does not clear them.
	Unexecutables []Diagnostic
}

// HasWarnings reports whether any warning was found.
func (d Diagnostics) HasWarnings() bool { return len(d.Warnings) > 0 }

// HasUnexecutables reports whether any unexecutable step was found.
func (d Diagnostics) HasUnexecutables() bool { return len(d.Unexecutables) > 0 }

// Blocks reports whether the findings stop an apply. force clears warnings,
// never unexecutables.
func (d Diagnostics) Blocks(force bool) bool {
	if d.HasUnexecutables() {
		return true
	}

	return !force && d.HasWarnings()
}

func (d *Diagnostics) add(c condition, message string) {
	diag := Diagnostic{StepIndex: c.stepIndex, Message: message}

	if c.unexecutable() {
		d.Unexecutables = append(d.Unexecutables, diag)
		return
	}

	d.Warnings = append(d.Warnings, diag)
}
