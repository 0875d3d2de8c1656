package dialect

import (
	"fmt"
	"strings"

	"github.com/aqasim81/database-schema-engine/internal/diff"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// SQLite is the SQLite dialect. ALTER TABLE can only add columns, so every
// other table change goes through a shadow-table rebuild. Foreign keys and
// primary keys exist only inside CREATE TABLE.
type SQLite struct{}

// NewSQLite returns the sqlite dialect.
func NewSQLite() *SQLite { return &SQLite{} }

// Name implements Dialect.
func (d *SQLite) Name() string { return "sqlite" }

// LowerCasesTableNames implements diff.Policy.
func (d *SQLite) LowerCasesTableNames() bool { return false }

// CanRenameIndex implements diff.Policy. There is no rename syntax for
// indexes.
func (d *SQLite) CanRenameIndex() bool { return false }

// CanRenameForeignKey implements diff.Policy.
func (d *SQLite) CanRenameForeignKey() bool { return false }

// ShouldCreateIndexesFromCreatedTables implements diff.Policy. Indexes are
// separate statements after CREATE TABLE.
func (d *SQLite) ShouldCreateIndexesFromCreatedTables() bool { return true }

// ShouldDropForeignKeysFromDroppedTables implements diff.Policy. Keys live
// inside the table definition and disappear with it.
func (d *SQLite) ShouldDropForeignKeysFromDroppedTables() bool { return false }

// ShouldPushForeignKeysFromCreatedTables implements diff.Policy. Keys are
// inlined into CREATE TABLE.
func (d *SQLite) ShouldPushForeignKeysFromCreatedTables() bool { return false }

// ShouldRecreateIndexesFromRecreatedColumns implements diff.Policy. Column
// recreation happens only inside a table rebuild, which recreates indexes
// itself.
func (d *SQLite) ShouldRecreateIndexesFromRecreatedColumns() bool { return false }

// ShouldRecreateColumn implements diff.Policy. Changed columns force a
// table rebuild instead.
func (d *SQLite) ShouldRecreateColumn(diff.ColumnChanges) bool { return false }

// CanRedefineTablesWithInboundForeignKeys implements diff.Policy. Inbound
// references survive a rebuild because enforcement is suspended around it.
func (d *SQLite) CanRedefineTablesWithInboundForeignKeys() bool { return true }

// IndexShouldBeSkipped implements diff.Policy.
func (d *SQLite) IndexShouldBeSkipped(schema.IndexWalker) bool { return false }

// HasVirtualDefault implements diff.Policy.
func (d *SQLite) HasVirtualDefault(schema.ColumnWalker) bool { return false }

// ColumnTypeChange implements diff.Policy. Column affinity coerces anything
// into anything, so no change is impossible; the question is only whether
// values survive intact.
func (d *SQLite) ColumnTypeChange(previous, next schema.ColumnWalker) diff.TypeChange {
	prev, nxt := previous.Type(), next.Type()

	if prev.Family == nxt.Family {
		if prev.Native == nxt.Native && prev.Family != schema.FamilyEnum {
			return diff.TypeChangeNone
		}

		return diff.RiskyCast
	}

	if nxt.Family == schema.FamilyString {
		return diff.SafeCast
	}

	switch prev.Family {
	case schema.FamilyInt:
		switch nxt.Family {
		case schema.FamilyBigInt, schema.FamilyFloat, schema.FamilyDecimal:
			return diff.SafeCast
		}
	case schema.FamilyBigInt:
		switch nxt.Family {
		case schema.FamilyFloat, schema.FamilyDecimal:
			return diff.SafeCast
		}
	case schema.FamilyBoolean:
		switch nxt.Family {
		case schema.FamilyInt, schema.FamilyBigInt:
			return diff.SafeCast
		}
	}

	return diff.RiskyCast
}

// TablesToRedefine implements diff.Policy. Any change ALTER TABLE cannot
// express forces the rebuild: dropped or altered columns, added required
// columns without a default, and any primary or foreign key change.
func (d *SQLite) TablesToRedefine(db *diff.DifferDatabase) []diff.Pair[schema.TableID] {
	var out []diff.Pair[schema.TableID]

	for _, pair := range db.TablePairs() {
		if d.tableNeedsRedefine(db, pair) {
			out = append(out, pair)
		}
	}

	return out
}

func (d *SQLite) tableNeedsRedefine(db *diff.DifferDatabase, pair diff.Pair[schema.TableID]) bool {
	changes := db.ColumnChanges(pair)

	if len(changes.Dropped) > 0 {
		return true
	}

	for _, cp := range changes.Pairs {
		if cp.Changes.Any() {
			return true
		}
	}

	for _, id := range changes.Created {
		col := db.Next().WalkColumn(id)
		if col.Arity().IsRequired() && col.Default() == nil {
			return true
		}
	}

	prev := db.Previous().Table(pair.Previous)
	next := db.Next().Table(pair.Next)

	return primaryKeyChanged(prev, next) || foreignKeysChanged(prev, next)
}

func primaryKeyChanged(prev, next schema.TableWalker) bool {
	prevPK, prevOK := prev.PrimaryKey()
	nextPK, nextOK := next.PrimaryKey()

	if prevOK != nextOK {
		return true
	}

	if !prevOK {
		return false
	}

	return !stringSlicesEqual(prevPK.ColumnNames(), nextPK.ColumnNames())
}

func foreignKeysChanged(prev, next schema.TableWalker) bool {
	prevKeys := prev.ForeignKeys()
	nextKeys := next.ForeignKeys()

	if len(prevKeys) != len(nextKeys) {
		return true
	}

	matched := make([]bool, len(nextKeys))

outer:
	for _, prevKey := range prevKeys {
		for i, nextKey := range nextKeys {
			if matched[i] || !foreignKeyContentEqual(prevKey, nextKey) {
				continue
			}

			matched[i] = true

			continue outer
		}

		return true
	}

	return false
}

func foreignKeyContentEqual(a, b schema.ForeignKeyWalker) bool {
	return a.ReferencedTable().Name() == b.ReferencedTable().Name() &&
		a.OnDelete() == b.OnDelete() &&
		a.OnUpdate() == b.OnUpdate() &&
		stringSlicesEqual(a.ConstrainedColumnNames(), b.ConstrainedColumnNames()) &&
		stringSlicesEqual(a.ReferencedColumnNames(), b.ReferencedColumnNames())
}

// RenderScript implements Dialect.
func (d *SQLite) RenderScript(m *diff.Migration) (string, error) {
	return renderScript(m, d)
}

// SplitStatements implements Dialect with the text splitter.
func (d *SQLite) SplitStatements(script string) ([]string, error) {
	return splitStatements(script), nil
}

func (d *SQLite) renderStep(m *diff.Migration, step diff.Step) ([]string, error) {
	switch s := step.(type) {
	case diff.CreateEnum, diff.AlterEnum, diff.DropEnum:
		// Enum columns are plain TEXT.
		return nil, nil
	case diff.DropIndex:
		return []string{"DROP INDEX " + quoteIdent(m.Previous.Index(s.Index).Name())}, nil
	case diff.CreateIndexStep:
		ix := m.Next.Index(s.Index)

		return []string{fmt.Sprintf("CREATE %sINDEX %s ON %s(%s)",
			uniqueKeyword(ix), quoteIdent(ix.Name()), quoteIdent(ix.Table().Name()), joinQuoted(ix.ColumnNames(), quoteIdent))}, nil
	case diff.DropTable:
		return []string{"DROP TABLE " + quoteIdent(m.Previous.Table(s.Table).Name())}, nil
	case diff.CreateTable:
		table := m.Next.Table(s.Table)

		return []string{d.renderCreateTable(table, table.Name())}, nil
	case diff.AlterTable:
		return d.renderAlterTable(m, s)
	case diff.RedefineTables:
		return d.renderRedefineTables(m, s), nil
	case diff.CreateSchema:
		return nil, fmt.Errorf("%w: sqlite has a single unnamed schema", ErrUnsupportedStep)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedStep, step)
	}
}

// renderAlterTable renders added columns, one statement each. Every other
// change is routed to a table rebuild before rendering.
func (d *SQLite) renderAlterTable(m *diff.Migration, s diff.AlterTable) ([]string, error) {
	table := m.Next.Table(s.Table.Next)

	var statements []string

	for _, change := range s.Changes {
		c, ok := change.(diff.AddColumn)
		if !ok {
			return nil, fmt.Errorf("%w: sqlite alters tables only by adding columns", ErrUnsupportedStep)
		}

		statements = append(statements, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
			quoteIdent(table.Name()), d.columnDefinition(m.Next.WalkColumn(c.Column), false)))
	}

	return statements, nil
}

// renderRedefineTables emits the shadow-table dance: build the new shape
// under a temporary name, copy the surviving rows, drop the original, and
// rename the shadow into place. Foreign key enforcement is suspended for the
// whole step and verified once at the end.
func (d *SQLite) renderRedefineTables(m *diff.Migration, s diff.RedefineTables) []string {
	statements := []string{"PRAGMA foreign_keys=OFF"}

	for _, t := range s.Tables {
		prev := m.Previous.Table(t.Table.Previous)
		next := m.Next.Table(t.Table.Next)
		shadow := "_new_" + next.Name()

		statements = append(statements, d.renderCreateTable(next, shadow))

		var insertCols, selectCols []string

		for _, cp := range t.ColumnPairs {
			if cp.Type == diff.NotCastable {
				continue
			}

			insertCols = append(insertCols, quoteIdent(m.Next.WalkColumn(cp.Column.Next).Name()))
			selectCols = append(selectCols, quoteIdent(m.Previous.WalkColumn(cp.Column.Previous).Name()))
		}

		if len(insertCols) > 0 {
			statements = append(statements, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
				quoteIdent(shadow), strings.Join(insertCols, ", "), strings.Join(selectCols, ", "), quoteIdent(prev.Name())))
		}

		statements = append(statements,
			"DROP TABLE "+quoteIdent(prev.Name()),
			fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(shadow), quoteIdent(next.Name())))
	}

	return append(statements, "PRAGMA foreign_key_check", "PRAGMA foreign_keys=ON")
}

func (d *SQLite) renderCreateTable(table schema.TableWalker, name string) string {
	pk, hasPK := table.PrimaryKey()
	inlinePK := hasPK && isRowIDAlias(pk)

	var lines []string

	for _, col := range table.Columns() {
		lines = append(lines, "    "+d.columnDefinition(col, inlinePK && col.IsPartOfPrimaryKey()))
	}

	for _, fk := range table.ForeignKeys() {
		lines = append(lines, "    "+d.inlineForeignKey(fk))
	}

	if hasPK && !inlinePK {
		lines = append(lines, fmt.Sprintf("    PRIMARY KEY (%s)", joinQuoted(pk.ColumnNames(), quoteIdent)))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", quoteIdent(name), strings.Join(lines, ",\n"))
}

// isRowIDAlias reports whether the key must be declared on its column: a
// single autoincrement column is only valid as INTEGER PRIMARY KEY
// AUTOINCREMENT.
func isRowIDAlias(pk schema.IndexWalker) bool {
	cols := pk.Columns()

	return len(cols) == 1 && cols[0].Column().AutoIncrement()
}

func (d *SQLite) columnDefinition(col schema.ColumnWalker, inlinePK bool) string {
	def := quoteIdent(col.Name()) + " " + d.columnType(col)

	if col.Arity().IsRequired() {
		def += " NOT NULL"
	}

	if inlinePK {
		def += " PRIMARY KEY AUTOINCREMENT"
	}

	if dflt := d.renderDefault(col); dflt != "" {
		def += " DEFAULT " + dflt
	}

	return def
}

func (d *SQLite) inlineForeignKey(fk schema.ForeignKeyWalker) string {
	var b strings.Builder

	if name := fk.ConstraintName(); name != "" {
		fmt.Fprintf(&b, "CONSTRAINT %s ", quoteIdent(name))
	}

	fmt.Fprintf(&b, "FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		joinQuoted(fk.ConstrainedColumnNames(), quoteIdent),
		quoteIdent(fk.ReferencedTable().Name()),
		joinQuoted(fk.ReferencedColumnNames(), quoteIdent),
		fk.OnDelete(), fk.OnUpdate())

	return b.String()
}

func (d *SQLite) columnType(col schema.ColumnWalker) string {
	t := col.Type()

	if t.Native != "" {
		return t.Native
	}

	switch t.Family {
	case schema.FamilyInt:
		return "INTEGER"
	case schema.FamilyBigInt:
		return "BIGINT"
	case schema.FamilyFloat:
		return "REAL"
	case schema.FamilyDecimal:
		return "DECIMAL"
	case schema.FamilyBoolean:
		return "BOOLEAN"
	case schema.FamilyDateTime:
		return "DATETIME"
	case schema.FamilyBinary:
		return "BLOB"
	case schema.FamilyJSON:
		return "JSONB"
	default:
		// Strings, UUIDs, and enum values are all text.
		return "TEXT"
	}
}

func (d *SQLite) renderDefault(col schema.ColumnWalker) string {
	dflt := col.Default()
	if dflt == nil {
		return ""
	}

	switch dflt.Kind {
	case schema.DefaultValue, schema.DefaultDBGenerated:
		return dflt.Value
	case schema.DefaultNow:
		return "CURRENT_TIMESTAMP"
	default:
		return ""
	}
}
