package schema

// A walker is an (id, schema) pair: a read-only view over one entity that
// derives its relationships by range scans over the schema's side-tables.
// Walkers are values; copying one is free.

// TableWalker is a view over one table.
type TableWalker struct {
	schema *Schema
	ID     TableID
}

// Table returns a walker for the given table id.
func (s *Schema) Table(id TableID) TableWalker {
	return TableWalker{schema: s, ID: id}
}

// WalkTables returns walkers for every table in the snapshot.
func (s *Schema) WalkTables() []TableWalker {
	out := make([]TableWalker, len(s.Tables))
	for i := range s.Tables {
		out[i] = s.Table(TableID(i))
	}

	return out
}

// Schema returns the snapshot the walker belongs to.
func (w TableWalker) Schema() *Schema { return w.schema }

// Name returns the table name.
func (w TableWalker) Name() string { return w.schema.Tables[w.ID].Name }

// Namespace returns the name of the table's namespace.
func (w TableWalker) Namespace() string {
	return w.schema.Namespaces[w.schema.Tables[w.ID].Namespace]
}

// Columns returns the table's columns in definition order.
func (w TableWalker) Columns() []ColumnWalker {
	lo, hi := w.schema.columnRange(w.ID)
	out := make([]ColumnWalker, 0, hi-lo)

	for i := lo; i < hi; i++ {
		out = append(out, ColumnWalker{schema: w.schema, ID: ColumnID(i)})
	}

	return out
}

// Column looks a column up by name.
func (w TableWalker) Column(name string) (ColumnWalker, bool) {
	lo, hi := w.schema.columnRange(w.ID)
	for i := lo; i < hi; i++ {
		if w.schema.Columns[i].Name == name {
			return ColumnWalker{schema: w.schema, ID: ColumnID(i)}, true
		}
	}

	return ColumnWalker{}, false
}

// Indexes returns the table's indexes, the primary key included.
func (w TableWalker) Indexes() []IndexWalker {
	lo, hi := w.schema.indexRange(w.ID)
	out := make([]IndexWalker, 0, hi-lo)

	for i := lo; i < hi; i++ {
		out = append(out, IndexWalker{schema: w.schema, ID: IndexID(i)})
	}

	return out
}

// PrimaryKey returns the table's primary key index, if it has one.
func (w TableWalker) PrimaryKey() (IndexWalker, bool) {
	lo, hi := w.schema.indexRange(w.ID)
	for i := lo; i < hi; i++ {
		if w.schema.Indexes[i].Type == IndexPrimaryKey {
			return IndexWalker{schema: w.schema, ID: IndexID(i)}, true
		}
	}

	return IndexWalker{}, false
}

// ForeignKeys returns the foreign keys constrained on this table.
func (w TableWalker) ForeignKeys() []ForeignKeyWalker {
	lo, hi := w.schema.foreignKeyRange(w.ID)
	out := make([]ForeignKeyWalker, 0, hi-lo)

	for i := lo; i < hi; i++ {
		out = append(out, ForeignKeyWalker{schema: w.schema, ID: ForeignKeyID(i)})
	}

	return out
}

// ReferencingForeignKeys returns foreign keys on other tables that reference
// this table. This scans all foreign keys; the side-table is sorted by
// constrained table, not referenced table.
func (w TableWalker) ReferencingForeignKeys() []ForeignKeyWalker {
	var out []ForeignKeyWalker

	for i := range w.schema.ForeignKeys {
		fk := &w.schema.ForeignKeys[i]
		if fk.ReferencedTable == w.ID && fk.ConstrainedTable != w.ID {
			out = append(out, ForeignKeyWalker{schema: w.schema, ID: ForeignKeyID(i)})
		}
	}

	return out
}

// ColumnWalker is a view over one table column.
type ColumnWalker struct {
	schema *Schema
	ID     ColumnID
}

// WalkColumn returns a walker for the given column id.
func (s *Schema) WalkColumn(id ColumnID) ColumnWalker {
	return ColumnWalker{schema: s, ID: id}
}

// Name returns the column name.
func (w ColumnWalker) Name() string { return w.schema.Columns[w.ID].Name }

// Type returns the column's type description.
func (w ColumnWalker) Type() ColumnType { return w.schema.Columns[w.ID].Type }

// Arity returns the column's arity.
func (w ColumnWalker) Arity() ColumnArity { return w.schema.Columns[w.ID].Type.Arity }

// Default returns the column default, or nil.
func (w ColumnWalker) Default() *Default { return w.schema.Columns[w.ID].Default }

// AutoIncrement reports whether the column is auto-incrementing.
func (w ColumnWalker) AutoIncrement() bool { return w.schema.Columns[w.ID].AutoIncrement }

// Table returns the owning table.
func (w ColumnWalker) Table() TableWalker {
	return TableWalker{schema: w.schema, ID: w.schema.Columns[w.ID].Table}
}

// EnumType returns the enum definition behind a FamilyEnum column.
func (w ColumnWalker) EnumType() (EnumWalker, bool) {
	t := w.Type()
	if t.Family != FamilyEnum {
		return EnumWalker{}, false
	}

	return w.schema.Enum(t.Enum), true
}

// IsPartOfPrimaryKey reports whether the column participates in the table's
// primary key.
func (w ColumnWalker) IsPartOfPrimaryKey() bool {
	pk, ok := w.Table().PrimaryKey()
	if !ok {
		return false
	}

	for _, ic := range pk.Columns() {
		if ic.Column().ID == w.ID {
			return true
		}
	}

	return false
}

// IndexWalker is a view over one index.
type IndexWalker struct {
	schema *Schema
	ID     IndexID
}

// Index returns a walker for the given index id.
func (s *Schema) Index(id IndexID) IndexWalker {
	return IndexWalker{schema: s, ID: id}
}

// Name returns the index name.
func (w IndexWalker) Name() string { return w.schema.Indexes[w.ID].Name }

// Type returns the index type tag.
func (w IndexWalker) Type() IndexType { return w.schema.Indexes[w.ID].Type }

// IsUnique reports whether the index is a unique index.
func (w IndexWalker) IsUnique() bool { return w.Type() == IndexUnique }

// IsPrimaryKey reports whether the index is the table's primary key.
func (w IndexWalker) IsPrimaryKey() bool { return w.Type() == IndexPrimaryKey }

// Clustered reports whether the index is clustered.
func (w IndexWalker) Clustered() bool { return w.schema.Indexes[w.ID].Clustered }

// Table returns the owning table.
func (w IndexWalker) Table() TableWalker {
	return TableWalker{schema: w.schema, ID: w.schema.Indexes[w.ID].Table}
}

// Columns returns the indexed columns in key order.
func (w IndexWalker) Columns() []IndexColumnWalker {
	lo, hi := w.schema.indexColumnRange(w.ID)
	out := make([]IndexColumnWalker, 0, hi-lo)

	for i := lo; i < hi; i++ {
		out = append(out, IndexColumnWalker{schema: w.schema, ID: IndexColumnID(i)})
	}

	return out
}

// ColumnNames returns the indexed column names in key order.
func (w IndexWalker) ColumnNames() []string {
	cols := w.Columns()
	out := make([]string, len(cols))

	for i, c := range cols {
		out[i] = c.Column().Name()
	}

	return out
}

// ContainsColumn reports whether the index covers the given column.
func (w IndexWalker) ContainsColumn(id ColumnID) bool {
	lo, hi := w.schema.indexColumnRange(w.ID)
	for i := lo; i < hi; i++ {
		if w.schema.IndexColumns[i].Column == id {
			return true
		}
	}

	return false
}

// IndexColumnWalker is a view over one column's participation in an index.
type IndexColumnWalker struct {
	schema *Schema
	ID     IndexColumnID
}

// Column returns the underlying table column.
func (w IndexColumnWalker) Column() ColumnWalker {
	return ColumnWalker{schema: w.schema, ID: w.schema.IndexColumns[w.ID].Column}
}

// SortOrder returns the column's sort direction in the index.
func (w IndexColumnWalker) SortOrder() SortOrder {
	return w.schema.IndexColumns[w.ID].SortOrder
}

// Length returns the indexed prefix length, 0 when unset.
func (w IndexColumnWalker) Length() int {
	return w.schema.IndexColumns[w.ID].Length
}

// ForeignKeyWalker is a view over one foreign key.
type ForeignKeyWalker struct {
	schema *Schema
	ID     ForeignKeyID
}

// ForeignKey returns a walker for the given foreign key id.
func (s *Schema) ForeignKey(id ForeignKeyID) ForeignKeyWalker {
	return ForeignKeyWalker{schema: s, ID: id}
}

// ConstraintName returns the constraint name, empty for unnamed constraints.
func (w ForeignKeyWalker) ConstraintName() string {
	return w.schema.ForeignKeys[w.ID].ConstraintName
}

// Table returns the constrained (referencing) table.
func (w ForeignKeyWalker) Table() TableWalker {
	return TableWalker{schema: w.schema, ID: w.schema.ForeignKeys[w.ID].ConstrainedTable}
}

// ReferencedTable returns the referenced table.
func (w ForeignKeyWalker) ReferencedTable() TableWalker {
	return TableWalker{schema: w.schema, ID: w.schema.ForeignKeys[w.ID].ReferencedTable}
}

// OnDelete returns the on-delete action.
func (w ForeignKeyWalker) OnDelete() ForeignKeyAction {
	return w.schema.ForeignKeys[w.ID].OnDelete
}

// OnUpdate returns the on-update action.
func (w ForeignKeyWalker) OnUpdate() ForeignKeyAction {
	return w.schema.ForeignKeys[w.ID].OnUpdate
}

// Columns returns the constrained/referenced column pairs in constraint
// order.
func (w ForeignKeyWalker) Columns() []ForeignKeyColumnWalker {
	lo, hi := w.schema.foreignKeyColumnRange(w.ID)
	out := make([]ForeignKeyColumnWalker, 0, hi-lo)

	for i := lo; i < hi; i++ {
		out = append(out, ForeignKeyColumnWalker{schema: w.schema, ID: ForeignKeyColumnID(i)})
	}

	return out
}

// ConstrainedColumnNames returns the names of the constrained columns in
// constraint order.
func (w ForeignKeyWalker) ConstrainedColumnNames() []string {
	pairs := w.Columns()
	out := make([]string, len(pairs))

	for i, p := range pairs {
		out[i] = p.ConstrainedColumn().Name()
	}

	return out
}

// ReferencedColumnNames returns the names of the referenced columns in
// constraint order.
func (w ForeignKeyWalker) ReferencedColumnNames() []string {
	pairs := w.Columns()
	out := make([]string, len(pairs))

	for i, p := range pairs {
		out[i] = p.ReferencedColumn().Name()
	}

	return out
}

// ForeignKeyColumnWalker is a view over one column pair of a foreign key.
type ForeignKeyColumnWalker struct {
	schema *Schema
	ID     ForeignKeyColumnID
}

// ConstrainedColumn returns the referencing-side column.
func (w ForeignKeyColumnWalker) ConstrainedColumn() ColumnWalker {
	return ColumnWalker{schema: w.schema, ID: w.schema.ForeignKeyColumns[w.ID].ConstrainedColumn}
}

// ReferencedColumn returns the referenced-side column.
func (w ForeignKeyColumnWalker) ReferencedColumn() ColumnWalker {
	return ColumnWalker{schema: w.schema, ID: w.schema.ForeignKeyColumns[w.ID].ReferencedColumn}
}

// EnumWalker is a view over one enum definition.
type EnumWalker struct {
	schema *Schema
	ID     EnumID
}

// Enum returns a walker for the given enum id.
func (s *Schema) Enum(id EnumID) EnumWalker {
	return EnumWalker{schema: s, ID: id}
}

// WalkEnums returns walkers for every enum in the snapshot.
func (s *Schema) WalkEnums() []EnumWalker {
	out := make([]EnumWalker, len(s.Enums))
	for i := range s.Enums {
		out[i] = s.Enum(EnumID(i))
	}

	return out
}

// Name returns the enum name.
func (w EnumWalker) Name() string { return w.schema.Enums[w.ID].Name }

// Namespace returns the name of the enum's namespace.
func (w EnumWalker) Namespace() string {
	return w.schema.Namespaces[w.schema.Enums[w.ID].Namespace]
}

// Variants returns the variant names in declaration order.
func (w EnumWalker) Variants() []string {
	lo, hi := w.schema.enumVariantRange(w.ID)
	out := make([]string, 0, hi-lo)

	for i := lo; i < hi; i++ {
		out = append(out, w.schema.EnumVariants[i].Name)
	}

	return out
}

// ViewWalker is a view over one database view.
type ViewWalker struct {
	schema *Schema
	ID     ViewID
}

// View returns a walker for the given view id.
func (s *Schema) View(id ViewID) ViewWalker {
	return ViewWalker{schema: s, ID: id}
}

// WalkViews returns walkers for every view in the snapshot.
func (s *Schema) WalkViews() []ViewWalker {
	out := make([]ViewWalker, len(s.Views))
	for i := range s.Views {
		out[i] = s.View(ViewID(i))
	}

	return out
}

// Name returns the view name.
func (w ViewWalker) Name() string { return w.schema.Views[w.ID].Name }

// Namespace returns the name of the view's namespace.
func (w ViewWalker) Namespace() string {
	return w.schema.Namespaces[w.schema.Views[w.ID].Namespace]
}

// Definition returns the view's defining query text.
func (w ViewWalker) Definition() string { return w.schema.Views[w.ID].Definition }
