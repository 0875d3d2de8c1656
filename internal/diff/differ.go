package diff

import (
	"fmt"
	"sort"

	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// Diff computes the steps that transform the previous snapshot into the next
// one. It is pure and reentrant: both snapshots are read-only, and the only
// engine-specific behavior comes from the policy. Diffing two identical
// snapshots yields an empty migration.
//
// Diff panics only on a policy contract violation; malformed snapshots must
// be rejected with Validate before diffing.
func Diff(previous, next *schema.Schema, policy Policy) *Migration {
	d := &differ{
		db:     newDifferDatabase(previous, next, policy),
		policy: policy,
	}

	d.redefined = make(map[Pair[schema.TableID]]struct{})
	for _, pair := range policy.TablesToRedefine(d.db) {
		d.redefined[pair] = struct{}{}
	}

	d.pushCreatedNamespaces()
	d.pushEnumSteps()
	d.pushCreatedTables()
	d.pushDroppedTables()
	d.pushAlteredTables()
	d.pushRedefinedTables()

	sortSteps(d.steps, previous, next)

	return &Migration{Previous: previous, Next: next, Steps: d.steps}
}

type differ struct {
	db        *DifferDatabase
	policy    Policy
	steps     []Step
	redefined map[Pair[schema.TableID]]struct{}
}

func (d *differ) push(step Step) {
	d.steps = append(d.steps, step)
}

func (d *differ) pushCreatedNamespaces() {
	previous := make(map[string]struct{}, len(d.db.previous.Namespaces))
	for _, ns := range d.db.previous.Namespaces {
		previous[ns] = struct{}{}
	}

	for i, ns := range d.db.next.Namespaces {
		if _, ok := previous[ns]; !ok && ns != "" {
			d.push(CreateSchema{Namespace: schema.NamespaceID(i)})
		}
	}
}

func (d *differ) pushEnumSteps() {
	matchedNext := make(map[schema.EnumID]struct{})

	for _, prevEnum := range d.db.previous.WalkEnums() {
		nextEnum, ok := d.db.next.FindEnum(prevEnum.Namespace(), prevEnum.Name())
		if !ok {
			d.push(DropEnum{Enum: prevEnum.ID})

			continue
		}

		matchedNext[nextEnum.ID] = struct{}{}

		created := missingVariants(nextEnum.Variants(), prevEnum.Variants())
		dropped := missingVariants(prevEnum.Variants(), nextEnum.Variants())

		if len(created) > 0 || len(dropped) > 0 {
			d.push(AlterEnum{
				Enum:            Pair[schema.EnumID]{Previous: prevEnum.ID, Next: nextEnum.ID},
				CreatedVariants: created,
				DroppedVariants: dropped,
			})
		}
	}

	for _, nextEnum := range d.db.next.WalkEnums() {
		if _, ok := matchedNext[nextEnum.ID]; !ok {
			d.push(CreateEnum{Enum: nextEnum.ID})
		}
	}
}

// missingVariants returns the entries of list absent from other, preserving
// list order.
func missingVariants(list, other []string) []string {
	seen := make(map[string]struct{}, len(other))
	for _, v := range other {
		seen[v] = struct{}{}
	}

	var out []string

	for _, v := range list {
		if _, ok := seen[v]; !ok {
			out = append(out, v)
		}
	}

	return out
}

func (d *differ) pushCreatedTables() {
	for _, id := range d.db.CreatedTables() {
		d.push(CreateTable{Table: id})

		table := d.db.next.Table(id)

		if d.policy.ShouldPushForeignKeysFromCreatedTables() {
			for _, fk := range table.ForeignKeys() {
				d.push(AddForeignKey{ForeignKey: fk.ID})
			}
		}

		if d.policy.ShouldCreateIndexesFromCreatedTables() {
			for _, ix := range table.Indexes() {
				if ix.IsPrimaryKey() || d.policy.IndexShouldBeSkipped(ix) {
					continue
				}

				d.push(CreateIndexStep{Index: ix.ID})
			}
		}
	}
}

func (d *differ) pushDroppedTables() {
	for _, id := range d.db.DroppedTables() {
		d.push(DropTable{Table: id})

		if d.policy.ShouldDropForeignKeysFromDroppedTables() {
			for _, fk := range d.db.previous.Table(id).ForeignKeys() {
				d.push(DropForeignKey{ForeignKey: fk.ID})
			}
		}
	}
}

func (d *differ) pushAlteredTables() {
	for _, pair := range d.db.TablePairs() {
		if _, ok := d.redefined[pair]; ok {
			continue
		}

		d.pushAlteredTable(pair)
	}
}

func (d *differ) pushAlteredTable(pair Pair[schema.TableID]) {
	d.diffForeignKeys(pair)

	createIndexes := d.diffIndexes(pair)

	changes := d.tableChanges(pair)

	if d.policy.ShouldRecreateIndexesFromRecreatedColumns() {
		createIndexes = append(createIndexes, d.indexesOnRecreatedColumns(pair, changes)...)
	}

	for _, id := range dedupeIndexIDs(createIndexes) {
		d.push(CreateIndexStep{Index: id})
	}

	if len(changes) > 0 {
		d.push(AlterTable{Table: pair, Changes: changes})
	}
}

func (d *differ) diffForeignKeys(pair Pair[schema.TableID]) {
	prevFKs := d.db.previous.Table(pair.Previous).ForeignKeys()
	nextFKs := d.db.next.Table(pair.Next).ForeignKeys()

	matchedNext := make(map[schema.ForeignKeyID]struct{}, len(nextFKs))

	for _, prevFK := range prevFKs {
		var (
			match schema.ForeignKeyWalker
			found bool
		)

		for _, nextFK := range nextFKs {
			if _, taken := matchedNext[nextFK.ID]; taken {
				continue
			}

			if d.foreignKeysMatch(prevFK, nextFK) {
				match, found = nextFK, true

				break
			}
		}

		if !found {
			d.push(DropForeignKey{ForeignKey: prevFK.ID})

			continue
		}

		matchedNext[match.ID] = struct{}{}

		if prevFK.ConstraintName() == match.ConstraintName() {
			continue
		}

		fkPair := Pair[schema.ForeignKeyID]{Previous: prevFK.ID, Next: match.ID}
		if d.policy.CanRenameForeignKey() {
			d.push(RenameForeignKey{ForeignKey: fkPair})
		} else {
			d.push(DropForeignKey{ForeignKey: prevFK.ID})
			d.push(AddForeignKey{ForeignKey: match.ID})
		}
	}

	for _, nextFK := range nextFKs {
		if _, ok := matchedNext[nextFK.ID]; !ok {
			d.push(AddForeignKey{ForeignKey: nextFK.ID})
		}
	}
}

// foreignKeysMatch compares everything but the constraint name: the column
// pairs, the referenced table, and the referential actions.
func (d *differ) foreignKeysMatch(prev, next schema.ForeignKeyWalker) bool {
	if !stringsEqual(prev.ConstrainedColumnNames(), next.ConstrainedColumnNames()) {
		return false
	}

	if !stringsEqual(prev.ReferencedColumnNames(), next.ReferencedColumnNames()) {
		return false
	}

	prevRef := prev.ReferencedTable()
	nextRef := next.ReferencedTable()

	if d.db.tableKey(prevRef.Namespace(), prevRef.Name()) != d.db.tableKey(nextRef.Namespace(), nextRef.Name()) {
		return false
	}

	return prev.OnDelete() == next.OnDelete() && prev.OnUpdate() == next.OnUpdate()
}

// diffIndexes emits DropIndex and RenameIndex steps for a paired table and
// returns the next-snapshot indexes that need CreateIndex steps. Primary
// keys are handled with the table changes, not here.
func (d *differ) diffIndexes(pair Pair[schema.TableID]) []schema.IndexID {
	var creates []schema.IndexID

	prevIdx := secondaryIndexes(d.db.previous.Table(pair.Previous))
	nextIdx := secondaryIndexes(d.db.next.Table(pair.Next))

	matchedPrev := make(map[schema.IndexID]struct{}, len(prevIdx))
	matchedNext := make(map[schema.IndexID]struct{}, len(nextIdx))

	// First pass: same name. Equal content means no step; changed content
	// lowers to drop plus create.
	for _, prev := range prevIdx {
		for _, next := range nextIdx {
			if _, taken := matchedNext[next.ID]; taken || prev.Name() != next.Name() {
				continue
			}

			matchedPrev[prev.ID] = struct{}{}
			matchedNext[next.ID] = struct{}{}

			if !indexContentMatches(prev, next) {
				d.push(DropIndex{Index: prev.ID})
				creates = append(creates, next.ID)
			}

			break
		}
	}

	// Second pass: same content, different name. A rename where the engine
	// supports it, drop plus create where it does not.
	for _, prev := range prevIdx {
		if _, done := matchedPrev[prev.ID]; done {
			continue
		}

		for _, next := range nextIdx {
			if _, taken := matchedNext[next.ID]; taken || !indexContentMatches(prev, next) {
				continue
			}

			matchedPrev[prev.ID] = struct{}{}
			matchedNext[next.ID] = struct{}{}

			if d.policy.CanRenameIndex() {
				d.push(RenameIndex{Index: Pair[schema.IndexID]{Previous: prev.ID, Next: next.ID}})
			} else {
				d.push(DropIndex{Index: prev.ID})
				creates = append(creates, next.ID)
			}

			break
		}
	}

	for _, prev := range prevIdx {
		if _, done := matchedPrev[prev.ID]; !done {
			d.push(DropIndex{Index: prev.ID})
		}
	}

	for _, next := range nextIdx {
		if _, done := matchedNext[next.ID]; done {
			continue
		}

		if !d.policy.IndexShouldBeSkipped(next) {
			creates = append(creates, next.ID)
		}
	}

	return creates
}

func secondaryIndexes(table schema.TableWalker) []schema.IndexWalker {
	all := table.Indexes()
	out := make([]schema.IndexWalker, 0, len(all))

	for _, ix := range all {
		if !ix.IsPrimaryKey() {
			out = append(out, ix)
		}
	}

	return out
}

func indexContentMatches(a, b schema.IndexWalker) bool {
	if a.Type() != b.Type() || a.Clustered() != b.Clustered() {
		return false
	}

	aCols, bCols := a.Columns(), b.Columns()
	if len(aCols) != len(bCols) {
		return false
	}

	for i := range aCols {
		if aCols[i].Column().Name() != bCols[i].Column().Name() {
			return false
		}

		if aCols[i].SortOrder() != bCols[i].SortOrder() || aCols[i].Length() != bCols[i].Length() {
			return false
		}
	}

	return true
}

// tableChanges computes the ordered change list of one AlterTable step:
// primary key drops and renames first, then dropped columns, added columns,
// altered columns, and finally the new primary key.
func (d *differ) tableChanges(pair Pair[schema.TableID]) []TableChange {
	var changes []TableChange

	pkBefore, pkAfter := d.primaryKeyChanges(pair)
	changes = append(changes, pkBefore...)

	cc := d.db.ColumnChanges(pair)

	for _, id := range cc.Dropped {
		changes = append(changes, DropColumn{Column: id})
	}

	for _, id := range cc.Created {
		col := d.db.next.WalkColumn(id)
		changes = append(changes, AddColumn{
			Column:            id,
			HasVirtualDefault: d.policy.HasVirtualDefault(col),
		})
	}

	for _, colPair := range cc.Pairs {
		if !colPair.Changes.Any() {
			continue
		}

		if d.policy.ShouldRecreateColumn(colPair.Changes) {
			changes = append(changes, DropAndRecreateColumn{Column: colPair.Column, Changes: colPair.Changes})
		} else {
			changes = append(changes, AlterColumn{Column: colPair.Column, Changes: colPair.Changes, Type: colPair.Type})
		}
	}

	changes = append(changes, pkAfter...)

	return changes
}

// primaryKeyChanges returns the key changes that go before the column
// changes (drops and renames) and after them (the new key).
func (d *differ) primaryKeyChanges(pair Pair[schema.TableID]) (before, after []TableChange) {
	prevPK, prevHas := d.db.previous.Table(pair.Previous).PrimaryKey()
	nextPK, nextHas := d.db.next.Table(pair.Next).PrimaryKey()

	switch {
	case !prevHas && !nextHas:
	case prevHas && !nextHas:
		before = append(before, DropPrimaryKey{Index: prevPK.ID})
	case !prevHas && nextHas:
		after = append(after, AddPrimaryKey{Index: nextPK.ID})
	case !stringsEqual(prevPK.ColumnNames(), nextPK.ColumnNames()):
		before = append(before, DropPrimaryKey{Index: prevPK.ID})
		after = append(after, AddPrimaryKey{Index: nextPK.ID})
	case prevPK.Name() != nextPK.Name() && d.policy.CanRenameIndex():
		before = append(before, RenamePrimaryKey{Index: Pair[schema.IndexID]{Previous: prevPK.ID, Next: nextPK.ID}})
	}

	return before, after
}

// indexesOnRecreatedColumns returns next-snapshot indexes covering a column
// that a DropAndRecreateColumn change will rebuild. The recreation silently
// destroys those indexes on engines where the policy hook is set.
func (d *differ) indexesOnRecreatedColumns(pair Pair[schema.TableID], changes []TableChange) []schema.IndexID {
	recreated := make(map[schema.ColumnID]struct{})

	for _, change := range changes {
		if rec, ok := change.(DropAndRecreateColumn); ok {
			recreated[rec.Column.Next] = struct{}{}
		}
	}

	if len(recreated) == 0 {
		return nil
	}

	var out []schema.IndexID

	for _, ix := range secondaryIndexes(d.db.next.Table(pair.Next)) {
		for id := range recreated {
			if ix.ContainsColumn(id) {
				out = append(out, ix.ID)

				break
			}
		}
	}

	return out
}

func dedupeIndexIDs(ids []schema.IndexID) []schema.IndexID {
	if len(ids) == 0 {
		return nil
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := ids[:1]

	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}

	return out
}

func (d *differ) pushRedefinedTables() {
	if len(d.redefined) == 0 {
		return
	}

	var tables []RedefineTable

	for _, pair := range d.db.TablePairs() {
		if _, ok := d.redefined[pair]; !ok {
			continue
		}

		d.checkRedefineContract(pair)

		cc := d.db.ColumnChanges(pair)

		var virtualDefaults []schema.ColumnID

		for _, id := range cc.Created {
			if d.policy.HasVirtualDefault(d.db.next.WalkColumn(id)) {
				virtualDefaults = append(virtualDefaults, id)
			}
		}

		tables = append(tables, RedefineTable{
			Table:              pair,
			AddedColumns:       cc.Created,
			DroppedColumns:     cc.Dropped,
			ColumnPairs:        cc.Pairs,
			DroppedPrimaryKey:  d.primaryKeyDropped(pair),
			VirtualDefaultCols: virtualDefaults,
		})

		// The rebuilt table comes up without secondary indexes; recreate
		// every index of the next snapshot.
		for _, ix := range secondaryIndexes(d.db.next.Table(pair.Next)) {
			if !d.policy.IndexShouldBeSkipped(ix) {
				d.push(CreateIndexStep{Index: ix.ID})
			}
		}
	}

	d.push(RedefineTables{Tables: tables})
}

func (d *differ) primaryKeyDropped(pair Pair[schema.TableID]) bool {
	prevPK, prevHas := d.db.previous.Table(pair.Previous).PrimaryKey()
	if !prevHas {
		return false
	}

	nextPK, nextHas := d.db.next.Table(pair.Next).PrimaryKey()
	if !nextHas {
		return true
	}

	return !stringsEqual(prevPK.ColumnNames(), nextPK.ColumnNames())
}

// checkRedefineContract panics when the policy redefines a table that other,
// surviving tables reference while declaring it cannot. This is a
// programming error in the policy, not a user-facing failure.
func (d *differ) checkRedefineContract(pair Pair[schema.TableID]) {
	if d.policy.CanRedefineTablesWithInboundForeignKeys() {
		return
	}

	for _, fk := range d.db.previous.Table(pair.Previous).ReferencingForeignKeys() {
		owner := fk.Table()
		if !d.redefinesPrevious(owner.ID) {
			panic(fmt.Sprintf(
				"policy violation: table %q is redefined but %q still references it and the policy cannot redefine referenced tables",
				d.db.previous.Table(pair.Previous).Name(), owner.Name(),
			))
		}
	}
}

func (d *differ) redefinesPrevious(id schema.TableID) bool {
	for pair := range d.redefined {
		if pair.Previous == id {
			return true
		}
	}

	return false
}
