package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/diff"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// buildSchema assembles a snapshot inside a "public" namespace and asserts
// it is well formed.
func buildSchema(t *testing.T, build func(s *schema.Schema, ns schema.NamespaceID)) *schema.Schema {
	t.Helper()

	s := schema.New()
	build(s, s.AddNamespace("public"))
	require.NoError(t, s.Validate())

	return s
}

// render diffs the two snapshots under the dialect's own policy and renders
// the resulting script.
func render(t *testing.T, d dialect.Dialect, previous, next *schema.Schema) string {
	t.Helper()

	script, err := d.RenderScript(diff.Diff(previous, next, d))
	require.NoError(t, err)

	return script
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

// serialColumn is an auto-incremented integer column, the usual surrogate
// key shape.
func serialColumn(name string) schema.Column {
	col := intColumn(name)
	col.AutoIncrement = true

	return col
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

// familyColumn builds a one-column table and returns the column's walker,
// for driving ColumnTypeChange directly.
func familyColumn(t *testing.T, family schema.ColumnTypeFamily) schema.ColumnWalker {
	t.Helper()

	var id schema.ColumnID

	s := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		table := s.AddTable(ns, "t")
		id = s.AddColumn(table, schema.Column{Name: "c", Type: schema.ColumnType{Family: family, Arity: schema.Required}})
	})

	return s.WalkColumn(id)
}

// stepKinds flattens a migration into its ordered kind sequence.
func stepKinds(m *diff.Migration) []diff.StepKind {
	kinds := make([]diff.StepKind, len(m.Steps))
	for i, step := range m.Steps {
		kinds[i] = step.Kind()
	}

	return kinds
}
