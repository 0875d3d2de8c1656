package diff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqasim81/database-schema-engine/internal/diff"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// stubPolicy is a configurable Policy for driving the differ. The zero value
// matches names case-sensitively, renames nothing in place, pushes no extra
// steps, and redefines no tables.
type stubPolicy struct {
	lowerCasesTableNames         bool
	canRenameIndex               bool
	canRenameForeignKey          bool
	createIndexesFromCreated     bool
	dropForeignKeysFromDropped   bool
	pushForeignKeysFromCreated   bool
	recreateIndexesFromRecreated bool
	redefineWithInboundFKs       bool

	recreateColumn   func(changes diff.ColumnChanges) bool
	skipIndex        func(index schema.IndexWalker) bool
	virtualDefault   func(column schema.ColumnWalker) bool
	typeChange       func(previous, next schema.ColumnWalker) diff.TypeChange
	tablesToRedefine func(db *diff.DifferDatabase) []diff.Pair[schema.TableID]
}

func (p *stubPolicy) LowerCasesTableNames() bool { return p.lowerCasesTableNames }

func (p *stubPolicy) CanRenameIndex() bool { return p.canRenameIndex }

func (p *stubPolicy) CanRenameForeignKey() bool { return p.canRenameForeignKey }

func (p *stubPolicy) ShouldCreateIndexesFromCreatedTables() bool { return p.createIndexesFromCreated }

func (p *stubPolicy) ShouldDropForeignKeysFromDroppedTables() bool {
	return p.dropForeignKeysFromDropped
}

func (p *stubPolicy) ShouldPushForeignKeysFromCreatedTables() bool {
	return p.pushForeignKeysFromCreated
}

func (p *stubPolicy) ShouldRecreateIndexesFromRecreatedColumns() bool {
	return p.recreateIndexesFromRecreated
}

func (p *stubPolicy) ShouldRecreateColumn(changes diff.ColumnChanges) bool {
	if p.recreateColumn != nil {
		return p.recreateColumn(changes)
	}

	return false
}

func (p *stubPolicy) CanRedefineTablesWithInboundForeignKeys() bool {
	return p.redefineWithInboundFKs
}

func (p *stubPolicy) IndexShouldBeSkipped(index schema.IndexWalker) bool {
	if p.skipIndex != nil {
		return p.skipIndex(index)
	}

	return false
}

func (p *stubPolicy) HasVirtualDefault(column schema.ColumnWalker) bool {
	if p.virtualDefault != nil {
		return p.virtualDefault(column)
	}

	return false
}

func (p *stubPolicy) ColumnTypeChange(previous, next schema.ColumnWalker) diff.TypeChange {
	if p.typeChange != nil {
		return p.typeChange(previous, next)
	}

	return diff.RiskyCast
}

func (p *stubPolicy) TablesToRedefine(db *diff.DifferDatabase) []diff.Pair[schema.TableID] {
	if p.tablesToRedefine != nil {
		return p.tablesToRedefine(db)
	}

	return nil
}

// expandingPolicy is a stubPolicy behaving like an engine that alters tables
// in place and supports every rename and standalone step.
func expandingPolicy() *stubPolicy {
	return &stubPolicy{
		canRenameIndex:             true,
		canRenameForeignKey:        true,
		createIndexesFromCreated:   true,
		dropForeignKeysFromDropped: true,
		pushForeignKeysFromCreated: true,
	}
}

// buildSchema assembles a snapshot inside a "public" namespace and asserts
// it is well formed.
func buildSchema(t *testing.T, build func(s *schema.Schema, ns schema.NamespaceID)) *schema.Schema {
	t.Helper()

	s := schema.New()
	build(s, s.AddNamespace("public"))
	require.NoError(t, s.Validate())

	return s
}

func intColumn(name string) schema.Column {
	return schema.Column{Name: name, Type: schema.ColumnType{Family: schema.FamilyInt, Arity: schema.Required}}
}

func textColumn(name string) schema.Column {
	return schema.Column{Name: name, Type: schema.ColumnType{Family: schema.FamilyString, Arity: schema.Required}}
}

func nullableTextColumn(name string) schema.Column {
	return schema.Column{Name: name, Type: schema.ColumnType{Family: schema.FamilyString, Arity: schema.Nullable}}
}

// addIndex attaches an index over the given columns, in order.
func addIndex(s *schema.Schema, table schema.TableID, name string, typ schema.IndexType, cols ...schema.ColumnID) schema.IndexID {
	id := s.AddIndex(schema.Index{Table: table, Name: name, Type: typ})
	for _, col := range cols {
		s.AddIndexColumn(schema.IndexColumn{Index: id, Column: col})
	}

	return id
}

// addForeignKey attaches a single-column foreign key with NO ACTION rules.
func addForeignKey(s *schema.Schema, name string, from schema.TableID, fromCol schema.ColumnID, to schema.TableID, toCol schema.ColumnID) schema.ForeignKeyID {
	id := s.AddForeignKey(schema.ForeignKey{
		ConstrainedTable: from,
		ReferencedTable:  to,
		ConstraintName:   name,
	})
	s.AddForeignKeyColumn(schema.ForeignKeyColumn{ForeignKey: id, ConstrainedColumn: fromCol, ReferencedColumn: toCol})

	return id
}

// redefineChangedTables is a TablesToRedefine hook that redefines every
// paired table with any column-level change, the way engines without ALTER
// TABLE support plan their diffs.
func redefineChangedTables(db *diff.DifferDatabase) []diff.Pair[schema.TableID] {
	var out []diff.Pair[schema.TableID]

	for _, pair := range db.TablePairs() {
		cc := db.ColumnChanges(pair)

		if len(cc.Created) > 0 || len(cc.Dropped) > 0 {
			out = append(out, pair)

			continue
		}

		for _, colPair := range cc.Pairs {
			if colPair.Changes.Any() {
				out = append(out, pair)

				break
			}
		}
	}

	return out
}

// stepKinds flattens a migration into its ordered kind sequence.
func stepKinds(m *diff.Migration) []diff.StepKind {
	kinds := make([]diff.StepKind, len(m.Steps))
	for i, step := range m.Steps {
		kinds[i] = step.Kind()
	}

	return kinds
}

// singleAlterTable asserts the migration holds exactly one AlterTable step
// and returns it.
func singleAlterTable(t *testing.T, m *diff.Migration) diff.AlterTable {
	t.Helper()

	var found []diff.AlterTable

	for _, step := range m.Steps {
		if alter, ok := step.(diff.AlterTable); ok {
			found = append(found, alter)
		}
	}

	require.Len(t, found, 1, "expected exactly one AlterTable step")

	return found[0]
}
