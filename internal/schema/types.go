package schema

// ColumnTypeFamily classifies a column's type independently of the engine's
// native type name.
type ColumnTypeFamily int

const (
	// FamilyInt is a 32-bit (or smaller) integer type.
	FamilyInt ColumnTypeFamily = iota
	// FamilyBigInt is a 64-bit integer type.
	FamilyBigInt
	// FamilyFloat is a floating-point type.
	FamilyFloat
	// FamilyDecimal is an arbitrary-precision numeric type.
	FamilyDecimal
	// FamilyBoolean is a boolean type.
	FamilyBoolean
	// FamilyString is a character or text type.
	FamilyString
	// FamilyDateTime is a date, time, or timestamp type.
	FamilyDateTime
	// FamilyBinary is a byte-string type.
	FamilyBinary
	// FamilyJSON is a JSON or JSONB type.
	FamilyJSON
	// FamilyUUID is a UUID type.
	FamilyUUID
	// FamilyEnum is an engine-level enumerated type; ColumnType.Enum points
	// at the definition.
	FamilyEnum
	// FamilyUnsupported is a type the model does not understand; the native
	// type string is carried through verbatim.
	FamilyUnsupported
)

// String returns the lowercase family name.
func (f ColumnTypeFamily) String() string {
	switch f {
	case FamilyInt:
		return "int"
	case FamilyBigInt:
		return "bigint"
	case FamilyFloat:
		return "float"
	case FamilyDecimal:
		return "decimal"
	case FamilyBoolean:
		return "boolean"
	case FamilyString:
		return "string"
	case FamilyDateTime:
		return "datetime"
	case FamilyBinary:
		return "binary"
	case FamilyJSON:
		return "json"
	case FamilyUUID:
		return "uuid"
	case FamilyEnum:
		return "enum"
	case FamilyUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether the family is one of the numeric families.
func (f ColumnTypeFamily) IsNumeric() bool {
	return f == FamilyInt || f == FamilyBigInt || f == FamilyFloat || f == FamilyDecimal
}

// ColumnArity describes how many values a column holds per row.
type ColumnArity int

const (
	// Required means NOT NULL, single value.
	Required ColumnArity = iota
	// Nullable means the column admits NULL.
	Nullable
	// List means an array type (engines that support them).
	List
)

// String returns the lowercase arity name.
func (a ColumnArity) String() string {
	switch a {
	case Required:
		return "required"
	case Nullable:
		return "nullable"
	case List:
		return "list"
	default:
		return "unknown"
	}
}

// IsRequired reports whether the arity is Required.
func (a ColumnArity) IsRequired() bool { return a == Required }

// IsNullable reports whether the arity is Nullable.
func (a ColumnArity) IsNullable() bool { return a == Nullable }

// ColumnType is the engine-independent description of a column's type.
type ColumnType struct {
	Family ColumnTypeFamily
	Arity  ColumnArity
	// Enum is the enum definition id; meaningful only when Family is
	// FamilyEnum.
	Enum EnumID
	// Native is the engine's own type name ("varchar(191)", "timestamptz"),
	// carried through for rendering. Empty means the renderer picks a
	// default for the family.
	Native string
}

// DefaultKind distinguishes the sources a column default can have.
type DefaultKind int

const (
	// DefaultValue is a constant literal.
	DefaultValue DefaultKind = iota
	// DefaultNow is the current-timestamp function.
	DefaultNow
	// DefaultSequence draws from a named sequence.
	DefaultSequence
	// DefaultUniqueRowID is an engine-generated unique row id.
	DefaultUniqueRowID
	// DefaultDBGenerated is an arbitrary database-side expression.
	DefaultDBGenerated
)

// String returns the lowercase kind name.
func (k DefaultKind) String() string {
	switch k {
	case DefaultValue:
		return "value"
	case DefaultNow:
		return "now"
	case DefaultSequence:
		return "sequence"
	case DefaultUniqueRowID:
		return "unique_row_id"
	case DefaultDBGenerated:
		return "db_generated"
	default:
		return "unknown"
	}
}

// Default is a column default. Value holds the literal, sequence name, or
// expression depending on Kind.
type Default struct {
	Kind           DefaultKind
	Value          string
	ConstraintName string
}

// ValueDefault builds a constant-literal default.
func ValueDefault(literal string) *Default {
	return &Default{Kind: DefaultValue, Value: literal}
}

// NowDefault builds a current-timestamp default.
func NowDefault() *Default {
	return &Default{Kind: DefaultNow}
}

// SequenceDefault builds a default drawing from the named sequence.
func SequenceDefault(sequence string) *Default {
	return &Default{Kind: DefaultSequence, Value: sequence}
}

// DBGeneratedDefault builds a database-side expression default.
func DBGeneratedDefault(expression string) *Default {
	return &Default{Kind: DefaultDBGenerated, Value: expression}
}

// IndexType tags the role of an index.
type IndexType int

const (
	// IndexNormal is a plain secondary index.
	IndexNormal IndexType = iota
	// IndexUnique enforces uniqueness.
	IndexUnique
	// IndexPrimaryKey is the table's primary key. At most one per table.
	IndexPrimaryKey
	// IndexFulltext is a full-text search index.
	IndexFulltext
)

// String returns the lowercase index type name.
func (t IndexType) String() string {
	switch t {
	case IndexNormal:
		return "normal"
	case IndexUnique:
		return "unique"
	case IndexPrimaryKey:
		return "primary_key"
	case IndexFulltext:
		return "fulltext"
	default:
		return "unknown"
	}
}

// SortOrder is the direction of one index column.
type SortOrder int

const (
	// Asc sorts ascending.
	Asc SortOrder = iota
	// Desc sorts descending.
	Desc
)

// String returns the SQL keyword for the sort order.
func (o SortOrder) String() string {
	if o == Desc {
		return "DESC"
	}

	return "ASC"
}

// ForeignKeyAction is a referential action on delete or update.
type ForeignKeyAction int

const (
	// NoAction defers the integrity check to the end of the statement.
	NoAction ForeignKeyAction = iota
	// Restrict rejects the delete or update immediately.
	Restrict
	// Cascade propagates the delete or update to referencing rows.
	Cascade
	// SetNull nulls the referencing columns.
	SetNull
	// SetDefault resets the referencing columns to their defaults.
	SetDefault
)

// String returns the SQL clause for the action.
func (a ForeignKeyAction) String() string {
	switch a {
	case Restrict:
		return "RESTRICT"
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

// Table is a base table. Columns, indexes, and foreign keys live in the
// schema's side-tables keyed by the table's id.
type Table struct {
	Namespace NamespaceID
	Name      string
}

// Column is one column definition, before attachment to a table.
type Column struct {
	Name          string
	Type          ColumnType
	Default       *Default
	AutoIncrement bool
}

// TableColumn is the side-table entry tying a Column to its owning table.
type TableColumn struct {
	Table TableID
	Column
}

// Index is an index header; its column list lives in the IndexColumns
// side-table.
type Index struct {
	Table     TableID
	Name      string
	Type      IndexType
	Clustered bool
}

// IndexColumn is one (index, column) participation with per-column options.
type IndexColumn struct {
	Index     IndexID
	Column    ColumnID
	SortOrder SortOrder
	// Length is the indexed prefix length, 0 when unset.
	Length int
}

// ForeignKey is a foreign key header; its column pairs live in the
// ForeignKeyColumns side-table.
type ForeignKey struct {
	ConstrainedTable TableID
	ReferencedTable  TableID
	// ConstraintName is empty for unnamed constraints.
	ConstraintName string
	OnDelete       ForeignKeyAction
	OnUpdate       ForeignKeyAction
}

// ForeignKeyColumn is one constrained/referenced column pair.
type ForeignKeyColumn struct {
	ForeignKey        ForeignKeyID
	ConstrainedColumn ColumnID
	ReferencedColumn  ColumnID
}

// Enum is an engine-level enumerated type. Variant order is significant.
type Enum struct {
	Namespace NamespaceID
	Name      string
}

// EnumVariant is one variant of an enum, in declaration order.
type EnumVariant struct {
	Enum EnumID
	Name string
}

// View is a named view. The definition is opaque to the differ; views are
// matched and compared by name and definition text.
type View struct {
	Namespace  NamespaceID
	Name       string
	Definition string
}
