package dialect

import (
	"fmt"
	"strings"

	"github.com/aqasim81/database-schema-engine/internal/diff"
	"github.com/aqasim81/database-schema-engine/internal/parser"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// Postgres is the PostgreSQL dialect. Tables are altered in place, indexes
// and constraints rename in place, and every type change goes through an
// explicit cast.
type Postgres struct{}

// NewPostgres returns the postgres dialect.
func NewPostgres() *Postgres { return &Postgres{} }

// Name implements Dialect.
func (d *Postgres) Name() string { return "postgres" }

// LowerCasesTableNames implements diff.Policy. Snapshots carry the exact
// identifier casing, so matching is case-sensitive.
func (d *Postgres) LowerCasesTableNames() bool { return false }

// CanRenameIndex implements diff.Policy. ALTER INDEX ... RENAME TO.
func (d *Postgres) CanRenameIndex() bool { return true }

// CanRenameForeignKey implements diff.Policy. ALTER TABLE ... RENAME
// CONSTRAINT.
func (d *Postgres) CanRenameForeignKey() bool { return true }

// ShouldCreateIndexesFromCreatedTables implements diff.Policy. Indexes are
// standalone statements on postgres.
func (d *Postgres) ShouldCreateIndexesFromCreatedTables() bool { return true }

// ShouldDropForeignKeysFromDroppedTables implements diff.Policy.
func (d *Postgres) ShouldDropForeignKeysFromDroppedTables() bool { return true }

// ShouldPushForeignKeysFromCreatedTables implements diff.Policy.
func (d *Postgres) ShouldPushForeignKeysFromCreatedTables() bool { return true }

// ShouldRecreateIndexesFromRecreatedColumns implements diff.Policy.
// Dropping a column drops every index covering it.
func (d *Postgres) ShouldRecreateIndexesFromRecreatedColumns() bool { return true }

// ShouldRecreateColumn implements diff.Policy. Every tracked change has an
// in-place ALTER COLUMN form.
func (d *Postgres) ShouldRecreateColumn(diff.ColumnChanges) bool { return false }

// CanRedefineTablesWithInboundForeignKeys implements diff.Policy. Postgres
// never redefines tables, so the question does not arise.
func (d *Postgres) CanRedefineTablesWithInboundForeignKeys() bool { return false }

// IndexShouldBeSkipped implements diff.Policy. Postgres creates no implicit
// secondary indexes.
func (d *Postgres) IndexShouldBeSkipped(schema.IndexWalker) bool { return false }

// HasVirtualDefault implements diff.Policy.
func (d *Postgres) HasVirtualDefault(schema.ColumnWalker) bool { return false }

// TablesToRedefine implements diff.Policy. Postgres alters everything in
// place.
func (d *Postgres) TablesToRedefine(*diff.DifferDatabase) []diff.Pair[schema.TableID] { return nil }

// ColumnTypeChange implements diff.Policy.
func (d *Postgres) ColumnTypeChange(previous, next schema.ColumnWalker) diff.TypeChange {
	prev, nxt := previous.Type(), next.Type()

	if prev.Family == nxt.Family {
		if prev.Native == nxt.Native && prev.Family != schema.FamilyEnum {
			return diff.TypeChangeNone
		}

		// Differing native types, or a column repointed at another enum.
		// Both cast through text.
		return diff.RiskyCast
	}

	return postgresCast(prev.Family, nxt.Family)
}

// postgresCast classifies a cross-family cast. Anything casts to text;
// everything else depends on whether an assignment cast exists and whether
// it can reject rows.
func postgresCast(from, to schema.ColumnTypeFamily) diff.TypeChange {
	if to == schema.FamilyString {
		return diff.SafeCast
	}

	switch from {
	case schema.FamilyInt:
		switch to {
		case schema.FamilyBigInt, schema.FamilyFloat, schema.FamilyDecimal:
			return diff.SafeCast
		case schema.FamilyBoolean:
			return diff.RiskyCast
		default:
			return diff.NotCastable
		}
	case schema.FamilyBigInt:
		switch to {
		case schema.FamilyFloat, schema.FamilyDecimal:
			return diff.SafeCast
		case schema.FamilyInt, schema.FamilyBoolean:
			return diff.RiskyCast
		default:
			return diff.NotCastable
		}
	case schema.FamilyFloat, schema.FamilyDecimal:
		switch to {
		case schema.FamilyInt, schema.FamilyBigInt, schema.FamilyFloat, schema.FamilyDecimal:
			return diff.RiskyCast
		default:
			return diff.NotCastable
		}
	case schema.FamilyBoolean:
		switch to {
		case schema.FamilyInt, schema.FamilyBigInt:
			return diff.SafeCast
		default:
			return diff.NotCastable
		}
	case schema.FamilyString:
		// The USING cast exists for every target but can reject rows.
		return diff.RiskyCast
	case schema.FamilyUUID, schema.FamilyJSON, schema.FamilyEnum:
		// Only the text cast above is lossless.
		return diff.NotCastable
	default:
		return diff.NotCastable
	}
}

// RenderScript implements Dialect.
func (d *Postgres) RenderScript(m *diff.Migration) (string, error) {
	return renderScript(m, d)
}

// SplitStatements implements Dialect through pg_query statement spans.
func (d *Postgres) SplitStatements(script string) ([]string, error) {
	return parser.SplitStatements(script)
}

func (d *Postgres) renderStep(m *diff.Migration, step diff.Step) ([]string, error) {
	switch s := step.(type) {
	case diff.CreateSchema:
		return []string{"CREATE SCHEMA IF NOT EXISTS " + quoteIdent(m.Next.NamespaceName(s.Namespace))}, nil
	case diff.CreateEnum:
		enum := m.Next.Enum(s.Enum)

		return []string{fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", d.enumRef(enum), quotedLiteralList(enum.Variants()))}, nil
	case diff.AlterEnum:
		return d.renderAlterEnum(m, s), nil
	case diff.DropEnum:
		return []string{"DROP TYPE " + d.enumRef(m.Previous.Enum(s.Enum))}, nil
	case diff.DropForeignKey:
		fk := m.Previous.ForeignKey(s.ForeignKey)

		return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.tableRef(fk.Table()), quoteIdent(fk.ConstraintName()))}, nil
	case diff.AddForeignKey:
		return []string{d.renderAddForeignKey(m.Next.ForeignKey(s.ForeignKey))}, nil
	case diff.RenameForeignKey:
		prev := m.Previous.ForeignKey(s.ForeignKey.Previous)
		next := m.Next.ForeignKey(s.ForeignKey.Next)

		return []string{fmt.Sprintf("ALTER TABLE %s RENAME CONSTRAINT %s TO %s",
			d.tableRef(next.Table()), quoteIdent(prev.ConstraintName()), quoteIdent(next.ConstraintName()))}, nil
	case diff.DropIndex:
		ix := m.Previous.Index(s.Index)

		return []string{"DROP INDEX " + d.indexRef(ix)}, nil
	case diff.CreateIndexStep:
		return []string{d.renderCreateIndex(m.Next.Index(s.Index), false)}, nil
	case diff.RenameIndex:
		prev := m.Previous.Index(s.Index.Previous)
		next := m.Next.Index(s.Index.Next)

		return []string{fmt.Sprintf("ALTER INDEX %s RENAME TO %s", d.indexRef(prev), quoteIdent(next.Name()))}, nil
	case diff.DropTable:
		return []string{"DROP TABLE " + d.tableRef(m.Previous.Table(s.Table))}, nil
	case diff.CreateTable:
		return []string{d.renderCreateTable(m.Next.Table(s.Table))}, nil
	case diff.AlterTable:
		return d.renderAlterTable(m, s), nil
	case diff.RedefineTables:
		return nil, fmt.Errorf("%w: postgres alters tables in place", ErrUnsupportedStep)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedStep, step)
	}
}

func (d *Postgres) renderAlterEnum(m *diff.Migration, s diff.AlterEnum) []string {
	enum := m.Next.Enum(s.Enum.Next)

	if len(s.DroppedVariants) == 0 {
		statements := make([]string, 0, len(s.CreatedVariants))
		for _, variant := range s.CreatedVariants {
			statements = append(statements, fmt.Sprintf("ALTER TYPE %s ADD VALUE %s", d.enumRef(enum), quoteLiteral(variant)))
		}

		return statements
	}

	// Removed variants force a type rebuild: create the replacement, repoint
	// every using column through text, then swap the names.
	tmp := enum.Name() + "_new"
	statements := []string{fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", quoteIdent(tmp), quotedLiteralList(enum.Variants()))}

	for _, table := range m.Next.WalkTables() {
		for _, col := range table.Columns() {
			using, ok := col.EnumType()
			if !ok || using.ID != enum.ID {
				continue
			}

			statements = append(statements, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DATA TYPE %s USING (%s::text::%s)",
				d.tableRef(table), quoteIdent(col.Name()), quoteIdent(tmp), quoteIdent(col.Name()), quoteIdent(tmp)))
		}
	}

	return append(statements,
		"DROP TYPE "+d.enumRef(enum),
		fmt.Sprintf("ALTER TYPE %s RENAME TO %s", quoteIdent(tmp), quoteIdent(enum.Name())),
	)
}

func (d *Postgres) renderCreateTable(table schema.TableWalker) string {
	var lines []string

	for _, col := range table.Columns() {
		lines = append(lines, "    "+d.columnDefinition(col))
	}

	if pk, ok := table.PrimaryKey(); ok {
		lines = append(lines, fmt.Sprintf("\n    CONSTRAINT %s PRIMARY KEY (%s)",
			quoteIdent(pk.Name()), joinQuoted(pk.ColumnNames(), quoteIdent)))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", d.tableRef(table), strings.Join(lines, ",\n"))
}

func (d *Postgres) renderCreateIndex(ix schema.IndexWalker, ifNotExists bool) string {
	var b strings.Builder

	b.WriteString("CREATE ")

	if ix.IsUnique() {
		b.WriteString("UNIQUE ")
	}

	b.WriteString("INDEX ")

	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}

	fmt.Fprintf(&b, "%s ON %s(%s)", quoteIdent(ix.Name()), d.tableRef(ix.Table()), d.indexColumns(ix))

	return b.String()
}

func (d *Postgres) renderAddForeignKey(fk schema.ForeignKeyWalker) string {
	var b strings.Builder

	fmt.Fprintf(&b, "ALTER TABLE %s ADD ", d.tableRef(fk.Table()))

	if name := fk.ConstraintName(); name != "" {
		fmt.Fprintf(&b, "CONSTRAINT %s ", quoteIdent(name))
	}

	fmt.Fprintf(&b, "FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE %s ON UPDATE %s",
		joinQuoted(fk.ConstrainedColumnNames(), quoteIdent),
		d.tableRef(fk.ReferencedTable()),
		joinQuoted(fk.ReferencedColumnNames(), quoteIdent),
		fk.OnDelete(), fk.OnUpdate())

	return b.String()
}

func (d *Postgres) renderAlterTable(m *diff.Migration, s diff.AlterTable) []string {
	table := m.Next.Table(s.Table.Next)

	var (
		statements []string
		clauses    []string
		trailing   []string
	)

	flush := func() {
		if len(clauses) > 0 {
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s %s", d.tableRef(table), strings.Join(clauses, ", ")))
			clauses = nil
		}
	}

	for _, change := range s.Changes {
		switch c := change.(type) {
		case diff.DropPrimaryKey:
			clauses = append(clauses, "DROP CONSTRAINT "+quoteIdent(m.Previous.Index(c.Index).Name()))
		case diff.RenamePrimaryKey:
			// RENAME CONSTRAINT cannot share a statement with other actions.
			flush()
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s RENAME CONSTRAINT %s TO %s",
				d.tableRef(table), quoteIdent(m.Previous.Index(c.Index.Previous).Name()), quoteIdent(m.Next.Index(c.Index.Next).Name())))
		case diff.DropColumn:
			clauses = append(clauses, "DROP COLUMN "+quoteIdent(m.Previous.WalkColumn(c.Column).Name()))
		case diff.AddColumn:
			clauses = append(clauses, "ADD COLUMN "+d.columnDefinition(m.Next.WalkColumn(c.Column)))
		case diff.DropAndRecreateColumn:
			prev := m.Previous.WalkColumn(c.Column.Previous)
			next := m.Next.WalkColumn(c.Column.Next)
			clauses = append(clauses, "DROP COLUMN "+quoteIdent(prev.Name()), "ADD COLUMN "+d.columnDefinition(next))
		case diff.AlterColumn:
			altered, extra := d.alterColumnClauses(m, c)
			clauses = append(clauses, altered...)
			trailing = append(trailing, extra...)
		case diff.AddPrimaryKey:
			pk := m.Next.Index(c.Index)
			clauses = append(clauses, fmt.Sprintf("ADD CONSTRAINT %s PRIMARY KEY (%s)",
				quoteIdent(pk.Name()), joinQuoted(pk.ColumnNames(), quoteIdent)))
		}
	}

	flush()

	return append(statements, trailing...)
}

// alterColumnClauses renders one AlterColumn as ALTER TABLE actions. A type
// change with no possible cast becomes a drop and re-add; the indexes that
// the drop takes down are recreated in trailing statements.
func (d *Postgres) alterColumnClauses(m *diff.Migration, c diff.AlterColumn) (clauses, trailing []string) {
	prev := m.Previous.WalkColumn(c.Column.Previous)
	next := m.Next.WalkColumn(c.Column.Next)
	name := quoteIdent(next.Name())

	if c.Type == diff.NotCastable {
		clauses = []string{"DROP COLUMN " + quoteIdent(prev.Name()), "ADD COLUMN " + d.columnDefinition(next)}

		for _, ix := range next.Table().Indexes() {
			if !ix.IsPrimaryKey() && ix.ContainsColumn(next.ID) {
				trailing = append(trailing, d.renderCreateIndex(ix, true))
			}
		}

		return clauses, trailing
	}

	if c.Changes.TypeChanged() {
		clause := fmt.Sprintf("ALTER COLUMN %s SET DATA TYPE %s", name, d.columnType(next))

		if c.Type == diff.RiskyCast {
			cast := fmt.Sprintf("%s::%s", name, d.columnType(next))
			if _, isEnum := next.EnumType(); isEnum {
				// No direct cast exists between enum types.
				cast = fmt.Sprintf("%s::text::%s", name, d.columnType(next))
			}

			clause += fmt.Sprintf(" USING (%s)", cast)
		}

		clauses = append(clauses, clause)
	}

	if c.Changes.ArityChanged() {
		if next.Arity().IsNullable() {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", name))
		} else {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", name))
		}
	}

	if c.Changes.DefaultChanged() {
		if dflt := d.renderDefault(next); dflt != "" {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", name, dflt))
		} else {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", name))
		}
	}

	if c.Changes.AutoIncrementChanged() {
		if next.AutoIncrement() {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s ADD GENERATED BY DEFAULT AS IDENTITY", name))
		} else {
			clauses = append(clauses, fmt.Sprintf("ALTER COLUMN %s DROP IDENTITY IF EXISTS", name))
		}
	}

	return clauses, trailing
}

func (d *Postgres) columnDefinition(col schema.ColumnWalker) string {
	def := quoteIdent(col.Name()) + " " + d.columnType(col)

	if !col.Arity().IsNullable() {
		def += " NOT NULL"
	}

	if dflt := d.renderDefault(col); dflt != "" {
		def += " DEFAULT " + dflt
	}

	return def
}

func (d *Postgres) columnType(col schema.ColumnWalker) string {
	t := col.Type()

	if t.Native != "" {
		return t.Native
	}

	var base string

	switch t.Family {
	case schema.FamilyInt:
		if col.AutoIncrement() {
			return "SERIAL"
		}

		base = "INTEGER"
	case schema.FamilyBigInt:
		if col.AutoIncrement() {
			return "BIGSERIAL"
		}

		base = "BIGINT"
	case schema.FamilyFloat:
		base = "DOUBLE PRECISION"
	case schema.FamilyDecimal:
		base = "DECIMAL(65,30)"
	case schema.FamilyBoolean:
		base = "BOOLEAN"
	case schema.FamilyString:
		base = "TEXT"
	case schema.FamilyDateTime:
		base = "TIMESTAMP(3)"
	case schema.FamilyBinary:
		base = "BYTEA"
	case schema.FamilyJSON:
		base = "JSONB"
	case schema.FamilyUUID:
		base = "UUID"
	case schema.FamilyEnum:
		if enum, ok := col.EnumType(); ok {
			base = d.enumRef(enum)
		} else {
			base = "TEXT"
		}
	default:
		base = "TEXT"
	}

	if t.Arity == schema.List {
		base += "[]"
	}

	return base
}

func (d *Postgres) renderDefault(col schema.ColumnWalker) string {
	dflt := col.Default()
	if dflt == nil {
		return ""
	}

	switch dflt.Kind {
	case schema.DefaultValue, schema.DefaultDBGenerated:
		return dflt.Value
	case schema.DefaultNow:
		return "CURRENT_TIMESTAMP"
	case schema.DefaultSequence:
		return fmt.Sprintf("nextval(%s)", quoteLiteral(dflt.Value))
	default:
		return ""
	}
}

func (d *Postgres) indexColumns(ix schema.IndexWalker) string {
	parts := make([]string, 0, len(ix.Columns()))

	for _, ic := range ix.Columns() {
		part := quoteIdent(ic.Column().Name())
		if ic.SortOrder() == schema.Desc {
			part += " DESC"
		}

		parts = append(parts, part)
	}

	return strings.Join(parts, ", ")
}

// tableRef qualifies the table name with its namespace outside the default
// public schema.
func (d *Postgres) tableRef(table schema.TableWalker) string {
	if ns := table.Namespace(); ns != "" && ns != "public" {
		return quoteIdent(ns) + "." + quoteIdent(table.Name())
	}

	return quoteIdent(table.Name())
}

func (d *Postgres) indexRef(ix schema.IndexWalker) string {
	if ns := ix.Table().Namespace(); ns != "" && ns != "public" {
		return quoteIdent(ns) + "." + quoteIdent(ix.Name())
	}

	return quoteIdent(ix.Name())
}

func (d *Postgres) enumRef(enum schema.EnumWalker) string {
	if ns := enum.Namespace(); ns != "" && ns != "public" {
		return quoteIdent(ns) + "." + quoteIdent(enum.Name())
	}

	return quoteIdent(enum.Name())
}
