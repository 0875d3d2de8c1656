package diff

import (
	"strings"

	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// Policy is the set of engine-specific rules the differ consults. The hook
// set is constant: every engine implements all of them, and the differ never
// branches on an engine name.
type Policy interface {
	// LowerCasesTableNames reports whether the engine treats table names
	// case-insensitively; pairing then matches on the lowercased name.
	LowerCasesTableNames() bool

	// CanRenameIndex reports whether the engine renames indexes in place.
	// When false, a detected rename is lowered to drop plus create.
	CanRenameIndex() bool

	// CanRenameForeignKey reports whether the engine renames foreign key
	// constraints in place. When false, a rename is lowered to drop plus
	// add.
	CanRenameForeignKey() bool

	// ShouldCreateIndexesFromCreatedTables reports whether secondary
	// indexes of newly created tables get their own CreateIndex steps.
	// Engines that inline index definitions into CREATE TABLE return false.
	ShouldCreateIndexesFromCreatedTables() bool

	// ShouldDropForeignKeysFromDroppedTables reports whether a dropped
	// table's own foreign keys need explicit DropForeignKey steps before
	// the DropTable.
	ShouldDropForeignKeysFromDroppedTables() bool

	// ShouldPushForeignKeysFromCreatedTables reports whether a created
	// table's foreign keys get their own AddForeignKey steps. Engines that
	// inline them into CREATE TABLE return false.
	ShouldPushForeignKeysFromCreatedTables() bool

	// ShouldRecreateIndexesFromRecreatedColumns reports whether dropping
	// and recreating a column silently destroys indexes covering it, so
	// the differ must emit CreateIndex steps to rebuild them.
	ShouldRecreateIndexesFromRecreatedColumns() bool

	// ShouldRecreateColumn reports whether the given change set cannot be
	// expressed as an in-place alteration and the column must be dropped
	// and recreated.
	ShouldRecreateColumn(changes ColumnChanges) bool

	// CanRedefineTablesWithInboundForeignKeys reports whether the engine's
	// table redefinition supports tables other tables reference. A policy
	// that puts such a table in the redefine set while returning false here
	// has violated its contract.
	CanRedefineTablesWithInboundForeignKeys() bool

	// IndexShouldBeSkipped reports whether an index the differ would create
	// already exists implicitly, for engines that create indexes as side
	// effects of foreign keys.
	IndexShouldBeSkipped(index schema.IndexWalker) bool

	// HasVirtualDefault reports whether adding this column requires the
	// engine to fill existing rows with a temporary default that is dropped
	// right after.
	HasVirtualDefault(column schema.ColumnWalker) bool

	// ColumnTypeChange classifies a structural type change between a paired
	// column's two sides. TypeChangeNone means the engine considers the
	// types equivalent.
	ColumnTypeChange(previous, next schema.ColumnWalker) TypeChange

	// TablesToRedefine returns the paired tables that cannot be altered in
	// place and must be rebuilt through a shadow table.
	TablesToRedefine(db *DifferDatabase) []Pair[schema.TableID]
}

// ColumnPair is a name-matched column across the two snapshots, with its
// computed change set and cast classification.
type ColumnPair struct {
	Column  Pair[schema.ColumnID]
	Changes ColumnChanges
	Type    TypeChange
}

// TableColumnChanges is the column-level difference of one paired table.
type TableColumnChanges struct {
	Created []schema.ColumnID // next
	Dropped []schema.ColumnID // previous
	Pairs   []ColumnPair
}

// DifferDatabase indexes two snapshots by name so the differ and the policy
// hooks can iterate created, dropped, and paired entities without rescanning
// the arenas. It is built once per diff.
type DifferDatabase struct {
	previous *schema.Schema
	next     *schema.Schema
	policy   Policy

	createdTables []schema.TableID
	droppedTables []schema.TableID
	tablePairs    []Pair[schema.TableID]
	columnChanges map[Pair[schema.TableID]]TableColumnChanges
}

func newDifferDatabase(previous, next *schema.Schema, policy Policy) *DifferDatabase {
	db := &DifferDatabase{
		previous:      previous,
		next:          next,
		policy:        policy,
		columnChanges: make(map[Pair[schema.TableID]]TableColumnChanges),
	}

	db.pairTables()

	for _, pair := range db.tablePairs {
		db.columnChanges[pair] = db.diffColumns(pair)
	}

	return db
}

// Previous returns the previous snapshot.
func (db *DifferDatabase) Previous() *schema.Schema { return db.previous }

// Next returns the next snapshot.
func (db *DifferDatabase) Next() *schema.Schema { return db.next }

// CreatedTables returns tables present only in the next snapshot, in
// snapshot order.
func (db *DifferDatabase) CreatedTables() []schema.TableID { return db.createdTables }

// DroppedTables returns tables present only in the previous snapshot, in
// snapshot order.
func (db *DifferDatabase) DroppedTables() []schema.TableID { return db.droppedTables }

// TablePairs returns the name-matched tables, in previous-snapshot order.
func (db *DifferDatabase) TablePairs() []Pair[schema.TableID] { return db.tablePairs }

// ColumnChanges returns the column-level difference of a paired table.
func (db *DifferDatabase) ColumnChanges(pair Pair[schema.TableID]) TableColumnChanges {
	return db.columnChanges[pair]
}

// tableKey normalizes a table's identity for cross-snapshot matching.
func (db *DifferDatabase) tableKey(namespace, name string) [2]string {
	if db.policy.LowerCasesTableNames() {
		return [2]string{strings.ToLower(namespace), strings.ToLower(name)}
	}

	return [2]string{namespace, name}
}

func (db *DifferDatabase) pairTables() {
	nextByKey := make(map[[2]string]schema.TableID, len(db.next.Tables))
	for i := range db.next.Tables {
		w := db.next.Table(schema.TableID(i))
		nextByKey[db.tableKey(w.Namespace(), w.Name())] = w.ID
	}

	paired := make(map[schema.TableID]struct{}, len(db.previous.Tables))

	for i := range db.previous.Tables {
		w := db.previous.Table(schema.TableID(i))

		nextID, ok := nextByKey[db.tableKey(w.Namespace(), w.Name())]
		if !ok {
			db.droppedTables = append(db.droppedTables, w.ID)

			continue
		}

		paired[nextID] = struct{}{}
		db.tablePairs = append(db.tablePairs, Pair[schema.TableID]{Previous: w.ID, Next: nextID})
	}

	for i := range db.next.Tables {
		if _, ok := paired[schema.TableID(i)]; !ok {
			db.createdTables = append(db.createdTables, schema.TableID(i))
		}
	}
}

func (db *DifferDatabase) diffColumns(pair Pair[schema.TableID]) TableColumnChanges {
	var out TableColumnChanges

	prevTable := db.previous.Table(pair.Previous)
	nextTable := db.next.Table(pair.Next)

	for _, prevCol := range prevTable.Columns() {
		nextCol, ok := nextTable.Column(prevCol.Name())
		if !ok {
			out.Dropped = append(out.Dropped, prevCol.ID)

			continue
		}

		changes, typeChange := db.columnPairChanges(prevCol, nextCol)
		out.Pairs = append(out.Pairs, ColumnPair{
			Column:  Pair[schema.ColumnID]{Previous: prevCol.ID, Next: nextCol.ID},
			Changes: changes,
			Type:    typeChange,
		})
	}

	for _, nextCol := range nextTable.Columns() {
		if _, ok := prevTable.Column(nextCol.Name()); !ok {
			out.Created = append(out.Created, nextCol.ID)
		}
	}

	return out
}

func (db *DifferDatabase) columnPairChanges(prev, next schema.ColumnWalker) (ColumnChanges, TypeChange) {
	var changes ColumnChanges

	typeChange := TypeChangeNone

	if columnTypesDiffer(prev, next) {
		typeChange = db.policy.ColumnTypeChange(prev, next)
		if typeChange != TypeChangeNone {
			changes |= ColumnTypeChanged
		}
	}

	if prev.Arity() != next.Arity() {
		changes |= ColumnArityChanged
	}

	if !defaultsEqual(prev.Default(), next.Default()) {
		changes |= ColumnDefaultChanged
	}

	if prev.AutoIncrement() != next.AutoIncrement() {
		changes |= ColumnAutoIncrementChanged
	}

	return changes, typeChange
}

// columnTypesDiffer is the structural pre-check before the policy
// classifies the cast. Arity is tracked separately.
func columnTypesDiffer(prev, next schema.ColumnWalker) bool {
	pt, nt := prev.Type(), next.Type()

	if pt.Family != nt.Family {
		return true
	}

	if pt.Family == schema.FamilyEnum {
		prevEnum, _ := prev.EnumType()
		nextEnum, _ := next.EnumType()

		// Variant changes are reconciled by AlterEnum; the column's type
		// differs only when it points at a differently named enum.
		return prevEnum.Name() != nextEnum.Name()
	}

	if pt.Native != "" && nt.Native != "" && pt.Native != nt.Native {
		return true
	}

	return false
}

// defaultsEqual compares two column defaults. Constraint names are cosmetic
// and ignored.
func defaultsEqual(prev, next *schema.Default) bool {
	if prev == nil || next == nil {
		return prev == next
	}

	if prev.Kind != next.Kind {
		return false
	}

	switch prev.Kind {
	case schema.DefaultNow, schema.DefaultUniqueRowID:
		return true
	case schema.DefaultValue, schema.DefaultSequence, schema.DefaultDBGenerated:
		return prev.Value == next.Value
	default:
		return prev.Value == next.Value
	}
}
