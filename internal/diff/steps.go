// Package diff computes the ordered sequence of DDL-level steps that
// transforms one schema snapshot into another. Diffing is pure: it performs
// no I/O, matches entities across snapshots by name, and consults an
// injected Policy for the behavioral differences between database engines.
package diff

import (
	"sort"

	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// Pair couples the ids of one entity in the previous and next snapshots.
// The two sides index different schemas and are never comparable.
type Pair[T any] struct {
	Previous T
	Next     T
}

// StepKind is a step's dependency class. The ordinal is the execution order:
// steps sort by kind, stably, so everything a step depends on runs first.
type StepKind int

// Kinds in execution order. The placement constraints:
// indexes and foreign keys drop before their tables; tables drop before new
// tables and indexes are created, since the new names may clash with names
// on the dropped tables; enums drop after the tables using them and before
// new tables reuse the names; indexes are created after column-level changes
// so they can cover new columns; foreign keys come last so they can rely on
// freshly created unique indexes.
const (
	KindCreateSchema StepKind = iota
	KindCreateEnum
	KindAlterEnum
	KindDropForeignKey
	KindDropIndex
	KindAlterTable
	KindDropTable
	KindDropEnum
	KindCreateTable
	KindRedefineTables
	KindCreateIndex
	KindRenameForeignKey
	KindAddForeignKey
	KindRenameIndex
)

// Step is one abstract DDL operation. Concrete steps carry schema ids: ids
// named Previous resolve against the migration's previous snapshot, ids
// named Next (or held by create steps) against the next one.
type Step interface {
	// Kind returns the step's dependency class.
	Kind() StepKind
}

// CreateSchema creates a namespace that exists only in the next snapshot.
type CreateSchema struct {
	Namespace schema.NamespaceID // next
}

// Kind implements Step.
func (CreateSchema) Kind() StepKind { return KindCreateSchema }

// CreateEnum creates an enum that exists only in the next snapshot.
type CreateEnum struct {
	Enum schema.EnumID // next
}

// Kind implements Step.
func (CreateEnum) Kind() StepKind { return KindCreateEnum }

// AlterEnum reconciles the variant lists of a paired enum.
type AlterEnum struct {
	Enum            Pair[schema.EnumID]
	CreatedVariants []string
	DroppedVariants []string
}

// Kind implements Step.
func (AlterEnum) Kind() StepKind { return KindAlterEnum }

// DropForeignKey drops a foreign key present only in the previous snapshot.
type DropForeignKey struct {
	ForeignKey schema.ForeignKeyID // previous
}

// Kind implements Step.
func (DropForeignKey) Kind() StepKind { return KindDropForeignKey }

// DropIndex drops an index present only in the previous snapshot.
type DropIndex struct {
	Index schema.IndexID // previous
}

// Kind implements Step.
func (DropIndex) Kind() StepKind { return KindDropIndex }

// AlterTable applies column and primary-key changes to a paired table, in
// the order given by Changes.
type AlterTable struct {
	Table   Pair[schema.TableID]
	Changes []TableChange
}

// Kind implements Step.
func (AlterTable) Kind() StepKind { return KindAlterTable }

// DropTable drops a table present only in the previous snapshot.
type DropTable struct {
	Table schema.TableID // previous
}

// Kind implements Step.
func (DropTable) Kind() StepKind { return KindDropTable }

// DropEnum drops an enum present only in the previous snapshot.
type DropEnum struct {
	Enum schema.EnumID // previous
}

// Kind implements Step.
func (DropEnum) Kind() StepKind { return KindDropEnum }

// CreateTable creates a table that exists only in the next snapshot.
type CreateTable struct {
	Table schema.TableID // next
}

// Kind implements Step.
func (CreateTable) Kind() StepKind { return KindCreateTable }

// RedefineTables rebuilds tables that cannot be altered in place: create a
// shadow table, copy the data, drop the original, rename the shadow. The
// step is atomic; its tables are never interleaved with unrelated steps.
type RedefineTables struct {
	Tables []RedefineTable
}

// Kind implements Step.
func (RedefineTables) Kind() StepKind { return KindRedefineTables }

// RedefineTable is one table's redefinition plan inside a RedefineTables
// step.
type RedefineTable struct {
	Table              Pair[schema.TableID]
	AddedColumns       []schema.ColumnID // next
	DroppedColumns     []schema.ColumnID // previous
	ColumnPairs        []ColumnPair
	DroppedPrimaryKey  bool
	VirtualDefaultCols []schema.ColumnID // subset of AddedColumns needing a temporary default
}

// CreateIndexStep creates an index present only in the next snapshot, or one
// that must be rebuilt after its columns were recreated.
type CreateIndexStep struct {
	Index schema.IndexID // next
}

// Kind implements Step.
func (CreateIndexStep) Kind() StepKind { return KindCreateIndex }

// RenameForeignKey renames a content-matched foreign key in place.
type RenameForeignKey struct {
	ForeignKey Pair[schema.ForeignKeyID]
}

// Kind implements Step.
func (RenameForeignKey) Kind() StepKind { return KindRenameForeignKey }

// AddForeignKey creates a foreign key present only in the next snapshot.
type AddForeignKey struct {
	ForeignKey schema.ForeignKeyID // next
}

// Kind implements Step.
func (AddForeignKey) Kind() StepKind { return KindAddForeignKey }

// RenameIndex renames a content-matched index in place.
type RenameIndex struct {
	Index Pair[schema.IndexID]
}

// Kind implements Step.
func (RenameIndex) Kind() StepKind { return KindRenameIndex }

// TableChange is one change inside an AlterTable step.
type TableChange interface {
	tableChange()
}

// AddColumn adds a column. HasVirtualDefault marks columns the engine gives
// a temporary default during the addition (dropped immediately after).
type AddColumn struct {
	Column            schema.ColumnID // next
	HasVirtualDefault bool
}

func (AddColumn) tableChange() {}

// AlterColumn changes a paired column in place. Type carries the cast
// classification when the column's type changed.
type AlterColumn struct {
	Column  Pair[schema.ColumnID]
	Changes ColumnChanges
	Type    TypeChange
}

func (AlterColumn) tableChange() {}

// DropColumn drops a column present only in the previous snapshot.
type DropColumn struct {
	Column schema.ColumnID // previous
}

func (DropColumn) tableChange() {}

// DropAndRecreateColumn replaces a column whose change cannot be expressed
// as an in-place alteration. Existing values are lost.
type DropAndRecreateColumn struct {
	Column  Pair[schema.ColumnID]
	Changes ColumnChanges
}

func (DropAndRecreateColumn) tableChange() {}

// DropPrimaryKey drops the table's primary key constraint.
type DropPrimaryKey struct {
	Index schema.IndexID // previous
}

func (DropPrimaryKey) tableChange() {}

// AddPrimaryKey adds a primary key constraint.
type AddPrimaryKey struct {
	Index schema.IndexID // next
}

func (AddPrimaryKey) tableChange() {}

// RenamePrimaryKey renames the primary key constraint in place.
type RenamePrimaryKey struct {
	Index Pair[schema.IndexID]
}

func (RenamePrimaryKey) tableChange() {}

// ColumnChanges is the set of ways a paired column differs.
type ColumnChanges uint8

const (
	// ColumnTypeChanged marks a change of type family, native type, or
	// referenced enum.
	ColumnTypeChanged ColumnChanges = 1 << iota
	// ColumnArityChanged marks a required/nullable/list transition.
	ColumnArityChanged
	// ColumnDefaultChanged marks a default added, removed, or altered.
	ColumnDefaultChanged
	// ColumnAutoIncrementChanged marks the autoincrement flag flipping.
	ColumnAutoIncrementChanged
)

// Any reports whether any change is set.
func (c ColumnChanges) Any() bool { return c != 0 }

// TypeChanged reports whether the column's type changed.
func (c ColumnChanges) TypeChanged() bool { return c&ColumnTypeChanged != 0 }

// ArityChanged reports whether the column's arity changed.
func (c ColumnChanges) ArityChanged() bool { return c&ColumnArityChanged != 0 }

// DefaultChanged reports whether the column's default changed.
func (c ColumnChanges) DefaultChanged() bool { return c&ColumnDefaultChanged != 0 }

// AutoIncrementChanged reports whether the autoincrement flag changed.
func (c ColumnChanges) AutoIncrementChanged() bool { return c&ColumnAutoIncrementChanged != 0 }

// TypeChange classifies how risky a column type change is. The
// classification is engine-specific and feeds the destructive change
// checker.
type TypeChange int

const (
	// TypeChangeNone means the types are equivalent for this engine.
	TypeChangeNone TypeChange = iota
	// SafeCast casts implicitly without data loss.
	SafeCast
	// RiskyCast requires an explicit cast and may truncate or reject values.
	RiskyCast
	// NotCastable has no lossless cast; existing values cannot be carried
	// over.
	NotCastable
)

// String returns the classification name.
func (t TypeChange) String() string {
	switch t {
	case TypeChangeNone:
		return "none"
	case SafeCast:
		return "safe"
	case RiskyCast:
		return "risky"
	case NotCastable:
		return "not_castable"
	default:
		return "unknown"
	}
}

// Migration is the ordered step sequence the differ produced, together with
// the snapshots the steps' ids resolve against. It is produced once,
// consumed read-only, and its step order is authoritative.
type Migration struct {
	Previous *schema.Schema
	Next     *schema.Schema
	Steps    []Step
}

// IsEmpty reports whether the migration contains no steps.
func (m *Migration) IsEmpty() bool { return len(m.Steps) == 0 }

// sortSteps orders steps by dependency class, preserving insertion order
// within a class, then fixes the one case class ordering gets wrong.
func sortSteps(steps []Step, previous, next *schema.Schema) {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Kind() < steps[j].Kind()
	})

	applyPartialOrderFixes(steps, previous, next)
}

// applyPartialOrderFixes moves the drop of a unique index behind an
// AlterTable that adds a primary key on the same columns of the same table.
// Engines that back foreign keys with the unique index reject the drop while
// it is the only candidate; once the primary key exists it can take over.
func applyPartialOrderFixes(steps []Step, previous, next *schema.Schema) {
	for i := 0; i < len(steps); i++ {
		drop, ok := steps[i].(DropIndex)
		if !ok {
			continue
		}

		dropped := previous.Index(drop.Index)
		if !dropped.IsUnique() {
			continue
		}

		target := alterTableReplacingIndex(steps, dropped, next)
		if target <= i {
			continue
		}

		// Rotate the DropIndex to just after the AlterTable.
		step := steps[i]
		copy(steps[i:target], steps[i+1:target+1])
		steps[target] = step
		i--
	}
}

// alterTableReplacingIndex finds the position of an AlterTable step that adds
// a primary key covering the same columns as the dropped unique index, on
// the same table. Returns -1 if there is none.
func alterTableReplacingIndex(steps []Step, dropped schema.IndexWalker, next *schema.Schema) int {
	droppedCols := dropped.ColumnNames()

	for i, step := range steps {
		alter, ok := step.(AlterTable)
		if !ok {
			continue
		}

		if alter.Table.Previous != dropped.Table().ID {
			continue
		}

		for _, change := range alter.Changes {
			add, ok := change.(AddPrimaryKey)
			if !ok {
				continue
			}

			if stringsEqual(next.Index(add.Index).ColumnNames(), droppedCols) {
				return i
			}
		}
	}

	return -1
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
