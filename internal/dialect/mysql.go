package dialect

import (
	"fmt"
	"strings"

	"github.com/aqasim81/database-schema-engine/internal/diff"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// MySQL is the MySQL dialect. Foreign keys cannot be renamed, index renames
// need an 8.0 server, enums are inline column types, and foreign keys get
// backing indexes created implicitly.
type MySQL struct {
	majorVersion       int
	caseSensitiveNames bool
}

// MySQLOption configures the mysql dialect.
type MySQLOption func(*MySQL)

// WithMySQLVersion sets the target server's major version. Index renames
// require 8; older servers lower index renames to drop plus create.
func WithMySQLVersion(major int) MySQLOption {
	return func(d *MySQL) { d.majorVersion = major }
}

// WithCaseSensitiveTableNames matches table names exactly, for servers
// running with lower_case_table_names=0.
func WithCaseSensitiveTableNames() MySQLOption {
	return func(d *MySQL) { d.caseSensitiveNames = true }
}

// NewMySQL returns the mysql dialect, assuming an 8.x server unless
// configured otherwise.
func NewMySQL(opts ...MySQLOption) *MySQL {
	d := &MySQL{majorVersion: 8}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Name implements Dialect.
func (d *MySQL) Name() string { return "mysql" }

// LowerCasesTableNames implements diff.Policy. Table name comparison
// follows the filesystem on most deployments.
func (d *MySQL) LowerCasesTableNames() bool { return !d.caseSensitiveNames }

// CanRenameIndex implements diff.Policy. RENAME INDEX arrived in 8.0.
func (d *MySQL) CanRenameIndex() bool { return d.majorVersion >= 8 }

// CanRenameForeignKey implements diff.Policy. There is no rename syntax for
// foreign keys.
func (d *MySQL) CanRenameForeignKey() bool { return false }

// ShouldCreateIndexesFromCreatedTables implements diff.Policy. Indexes are
// inlined into CREATE TABLE.
func (d *MySQL) ShouldCreateIndexesFromCreatedTables() bool { return false }

// ShouldDropForeignKeysFromDroppedTables implements diff.Policy. DROP TABLE
// fails while inbound references exist, so the keys go first.
func (d *MySQL) ShouldDropForeignKeysFromDroppedTables() bool { return true }

// ShouldPushForeignKeysFromCreatedTables implements diff.Policy. Keys are
// added after all tables exist so forward references resolve.
func (d *MySQL) ShouldPushForeignKeysFromCreatedTables() bool { return true }

// ShouldRecreateIndexesFromRecreatedColumns implements diff.Policy. MODIFY
// keeps indexes alive.
func (d *MySQL) ShouldRecreateIndexesFromRecreatedColumns() bool { return false }

// ShouldRecreateColumn implements diff.Policy. MODIFY COLUMN covers every
// tracked change.
func (d *MySQL) ShouldRecreateColumn(diff.ColumnChanges) bool { return false }

// CanRedefineTablesWithInboundForeignKeys implements diff.Policy.
func (d *MySQL) CanRedefineTablesWithInboundForeignKeys() bool { return false }

// IndexShouldBeSkipped implements diff.Policy. An index exactly covering a
// foreign key's constrained columns is created implicitly with the key.
func (d *MySQL) IndexShouldBeSkipped(index schema.IndexWalker) bool {
	if index.IsUnique() {
		return false
	}

	for _, fk := range index.Table().ForeignKeys() {
		if stringSlicesEqual(fk.ConstrainedColumnNames(), index.ColumnNames()) {
			return true
		}
	}

	return false
}

// HasVirtualDefault implements diff.Policy.
func (d *MySQL) HasVirtualDefault(schema.ColumnWalker) bool { return false }

// TablesToRedefine implements diff.Policy. MySQL alters tables in place.
func (d *MySQL) TablesToRedefine(*diff.DifferDatabase) []diff.Pair[schema.TableID] { return nil }

// ColumnTypeChange implements diff.Policy. Text to number is not castable:
// the server coerces unparseable strings to zero instead of failing, which
// corrupts data silently.
func (d *MySQL) ColumnTypeChange(previous, next schema.ColumnWalker) diff.TypeChange {
	prev, nxt := previous.Type(), next.Type()

	if prev.Family == nxt.Family {
		if prev.Native == nxt.Native && prev.Family != schema.FamilyEnum {
			return diff.TypeChangeNone
		}

		return diff.RiskyCast
	}

	return mysqlCast(prev.Family, nxt.Family)
}

func mysqlCast(from, to schema.ColumnTypeFamily) diff.TypeChange {
	if from == schema.FamilyString || from == schema.FamilyEnum || from == schema.FamilyUUID {
		switch to {
		case schema.FamilyInt, schema.FamilyBigInt, schema.FamilyFloat, schema.FamilyDecimal,
			schema.FamilyBoolean, schema.FamilyDateTime:
			return diff.NotCastable
		default:
			return diff.RiskyCast
		}
	}

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
	case schema.FamilyDateTime:
		return diff.NotCastable
	default:
		return diff.NotCastable
	}
}

// RenderScript implements Dialect.
func (d *MySQL) RenderScript(m *diff.Migration) (string, error) {
	return renderScript(m, d)
}

// SplitStatements implements Dialect with the text splitter; there is no
// mysql parser in the stack.
func (d *MySQL) SplitStatements(script string) ([]string, error) {
	return splitStatements(script), nil
}

func (d *MySQL) renderStep(m *diff.Migration, step diff.Step) ([]string, error) {
	switch s := step.(type) {
	case diff.CreateSchema:
		return []string{"CREATE SCHEMA " + backquoteIdent(m.Next.NamespaceName(s.Namespace))}, nil
	case diff.CreateEnum, diff.DropEnum:
		// Enums are inline column types; they appear and disappear with
		// their columns.
		return nil, nil
	case diff.AlterEnum:
		return d.renderAlterEnum(m, s), nil
	case diff.DropForeignKey:
		fk := m.Previous.ForeignKey(s.ForeignKey)

		return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s",
			backquoteIdent(fk.Table().Name()), backquoteIdent(fk.ConstraintName()))}, nil
	case diff.AddForeignKey:
		return []string{d.renderAddForeignKey(m.Next.ForeignKey(s.ForeignKey))}, nil
	case diff.DropIndex:
		ix := m.Previous.Index(s.Index)

		return []string{fmt.Sprintf("DROP INDEX %s ON %s",
			backquoteIdent(ix.Name()), backquoteIdent(ix.Table().Name()))}, nil
	case diff.CreateIndexStep:
		ix := m.Next.Index(s.Index)

		return []string{fmt.Sprintf("CREATE %sINDEX %s ON %s(%s)",
			uniqueKeyword(ix), backquoteIdent(ix.Name()), backquoteIdent(ix.Table().Name()), d.indexColumns(ix))}, nil
	case diff.RenameIndex:
		prev := m.Previous.Index(s.Index.Previous)
		next := m.Next.Index(s.Index.Next)

		return []string{fmt.Sprintf("ALTER TABLE %s RENAME INDEX %s TO %s",
			backquoteIdent(next.Table().Name()), backquoteIdent(prev.Name()), backquoteIdent(next.Name()))}, nil
	case diff.DropTable:
		return []string{"DROP TABLE " + backquoteIdent(m.Previous.Table(s.Table).Name())}, nil
	case diff.CreateTable:
		return []string{d.renderCreateTable(m.Next.Table(s.Table))}, nil
	case diff.AlterTable:
		return d.renderAlterTable(m, s)
	case diff.RenameForeignKey:
		return nil, fmt.Errorf("%w: mysql cannot rename foreign keys", ErrUnsupportedStep)
	case diff.RedefineTables:
		return nil, fmt.Errorf("%w: mysql alters tables in place", ErrUnsupportedStep)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedStep, step)
	}
}

// renderAlterEnum reissues the full column definition for every column using
// the enum; inline enums change through MODIFY.
func (d *MySQL) renderAlterEnum(m *diff.Migration, s diff.AlterEnum) []string {
	enum := m.Next.Enum(s.Enum.Next)

	var statements []string

	for _, table := range m.Next.WalkTables() {
		for _, col := range table.Columns() {
			using, ok := col.EnumType()
			if !ok || using.ID != enum.ID {
				continue
			}

			statements = append(statements, fmt.Sprintf("ALTER TABLE %s MODIFY %s",
				backquoteIdent(table.Name()), d.columnDefinition(col)))
		}
	}

	return statements
}

func (d *MySQL) renderCreateTable(table schema.TableWalker) string {
	var lines []string

	for _, col := range table.Columns() {
		lines = append(lines, "    "+d.columnDefinition(col))
	}

	var constraints []string

	for _, ix := range table.Indexes() {
		if ix.IsPrimaryKey() {
			continue
		}

		keyword := "INDEX"
		if ix.IsUnique() {
			keyword = "UNIQUE INDEX"
		}

		constraints = append(constraints, fmt.Sprintf("    %s %s(%s)", keyword, backquoteIdent(ix.Name()), d.indexColumns(ix)))
	}

	if pk, ok := table.PrimaryKey(); ok {
		constraints = append(constraints, fmt.Sprintf("    PRIMARY KEY (%s)", joinQuoted(pk.ColumnNames(), backquoteIdent)))
	}

	if len(constraints) > 0 {
		lines = append(lines, "\n"+strings.Join(constraints, ",\n"))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n) DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci",
		backquoteIdent(table.Name()), strings.Join(lines, ",\n"))
}

func (d *MySQL) renderAddForeignKey(fk schema.ForeignKeyWalker) string {
	var b strings.Builder

	fmt.Fprintf(&b, "ALTER TABLE %s ADD ", backquoteIdent(fk.Table().Name()))

	if name := fk.ConstraintName(); name != "" {
		fmt.Fprintf(&b, "CONSTRAINT %s ", backquoteIdent(name))
	}

	fmt.Fprintf(&b, "FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE %s ON UPDATE %s",
		joinQuoted(fk.ConstrainedColumnNames(), backquoteIdent),
		backquoteIdent(fk.ReferencedTable().Name()),
		joinQuoted(fk.ReferencedColumnNames(), backquoteIdent),
		fk.OnDelete(), fk.OnUpdate())

	return b.String()
}

// renderAlterTable combines every change into a single ALTER TABLE; one
// statement per table keeps the non-transactional DDL window as small as
// mysql allows.
func (d *MySQL) renderAlterTable(m *diff.Migration, s diff.AlterTable) ([]string, error) {
	table := m.Next.Table(s.Table.Next)

	var clauses []string

	for _, change := range s.Changes {
		switch c := change.(type) {
		case diff.DropPrimaryKey:
			clauses = append(clauses, "DROP PRIMARY KEY")
		case diff.AddPrimaryKey:
			pk := m.Next.Index(c.Index)
			clauses = append(clauses, fmt.Sprintf("ADD PRIMARY KEY (%s)", joinQuoted(pk.ColumnNames(), backquoteIdent)))
		case diff.RenamePrimaryKey:
			return nil, fmt.Errorf("%w: mysql primary keys have no name to rename", ErrUnsupportedStep)
		case diff.DropColumn:
			clauses = append(clauses, "DROP COLUMN "+backquoteIdent(m.Previous.WalkColumn(c.Column).Name()))
		case diff.AddColumn:
			clauses = append(clauses, "ADD COLUMN "+d.columnDefinition(m.Next.WalkColumn(c.Column)))
		case diff.DropAndRecreateColumn:
			prev := m.Previous.WalkColumn(c.Column.Previous)
			next := m.Next.WalkColumn(c.Column.Next)
			clauses = append(clauses, "DROP COLUMN "+backquoteIdent(prev.Name()), "ADD COLUMN "+d.columnDefinition(next))
		case diff.AlterColumn:
			prev := m.Previous.WalkColumn(c.Column.Previous)
			next := m.Next.WalkColumn(c.Column.Next)

			if c.Type == diff.NotCastable {
				clauses = append(clauses, "DROP COLUMN "+backquoteIdent(prev.Name()), "ADD COLUMN "+d.columnDefinition(next))
			} else {
				clauses = append(clauses, "MODIFY "+d.columnDefinition(next))
			}
		}
	}

	if len(clauses) == 0 {
		return nil, nil
	}

	return []string{fmt.Sprintf("ALTER TABLE %s %s", backquoteIdent(table.Name()), strings.Join(clauses, ", "))}, nil
}

func (d *MySQL) columnDefinition(col schema.ColumnWalker) string {
	def := backquoteIdent(col.Name()) + " " + d.columnType(col)

	if col.Arity().IsNullable() {
		def += " NULL"
	} else {
		def += " NOT NULL"
	}

	if dflt := d.renderDefault(col); dflt != "" {
		def += " DEFAULT " + dflt
	}

	if col.AutoIncrement() {
		def += " AUTO_INCREMENT"
	}

	return def
}

func (d *MySQL) columnType(col schema.ColumnWalker) string {
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
		return "DOUBLE"
	case schema.FamilyDecimal:
		return "DECIMAL(65,30)"
	case schema.FamilyBoolean:
		return "BOOLEAN"
	case schema.FamilyString:
		return "VARCHAR(191)"
	case schema.FamilyDateTime:
		return "DATETIME(3)"
	case schema.FamilyBinary:
		return "LONGBLOB"
	case schema.FamilyJSON:
		return "JSON"
	case schema.FamilyUUID:
		return "CHAR(36)"
	case schema.FamilyEnum:
		if enum, ok := col.EnumType(); ok {
			return fmt.Sprintf("ENUM(%s)", quotedLiteralList(enum.Variants()))
		}

		return "VARCHAR(191)"
	default:
		return "VARCHAR(191)"
	}
}

func (d *MySQL) renderDefault(col schema.ColumnWalker) string {
	dflt := col.Default()
	if dflt == nil {
		return ""
	}

	switch dflt.Kind {
	case schema.DefaultValue, schema.DefaultDBGenerated:
		return dflt.Value
	case schema.DefaultNow:
		return "CURRENT_TIMESTAMP(3)"
	default:
		return ""
	}
}

func (d *MySQL) indexColumns(ix schema.IndexWalker) string {
	parts := make([]string, 0, len(ix.Columns()))

	for _, ic := range ix.Columns() {
		part := backquoteIdent(ic.Column().Name())

		if length := ic.Length(); length > 0 {
			part += fmt.Sprintf("(%d)", length)
		}

		if ic.SortOrder() == schema.Desc {
			part += " DESC"
		}

		parts = append(parts, part)
	}

	return strings.Join(parts, ", ")
}

func uniqueKeyword(ix schema.IndexWalker) string {
	if ix.IsUnique() {
		return "UNIQUE "
	}

	return ""
}

func stringSlicesEqual(a, b []string) bool {
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
