// Package schema holds the immutable, id-addressed model of a database's
// structure. A Schema is a flat arena: entities live in slices and refer to
// each other through small integer ids, never pointers. Relationships
// ("columns of table T") are derived on demand by binary search over
// side-tables sorted by owning id, which keeps snapshots cheap to share and
// free of cycles. Ids are only meaningful within the snapshot that minted
// them; across two snapshots, entities compare by name.
package schema

import "sort"

// Ids are indexes into the owning Schema's slices.
type (
	// NamespaceID identifies a namespace (schema in SQL terms).
	NamespaceID uint32
	// TableID identifies a table.
	TableID uint32
	// ColumnID identifies a table column.
	ColumnID uint32
	// IndexID identifies an index.
	IndexID uint32
	// IndexColumnID identifies one column's participation in an index.
	IndexColumnID uint32
	// ForeignKeyID identifies a foreign key.
	ForeignKeyID uint32
	// ForeignKeyColumnID identifies one column pair of a foreign key.
	ForeignKeyColumnID uint32
	// EnumID identifies an enum definition.
	EnumID uint32
	// EnumVariantID identifies one variant of an enum.
	EnumVariantID uint32
	// ViewID identifies a view.
	ViewID uint32
)

// Schema is one snapshot of a database's structure. Build it with the Add
// methods, then treat it as read-only. Side-table entries must be added in
// nondecreasing owner-id order; Validate reports violations.
type Schema struct {
	Namespaces        []string
	Tables            []Table
	Columns           []TableColumn
	Indexes           []Index
	IndexColumns      []IndexColumn
	ForeignKeys       []ForeignKey
	ForeignKeyColumns []ForeignKeyColumn
	Enums             []Enum
	EnumVariants      []EnumVariant
	Views             []View
}

// New returns an empty schema snapshot.
func New() *Schema {
	return &Schema{}
}

// AddNamespace appends a namespace and returns its id.
func (s *Schema) AddNamespace(name string) NamespaceID {
	s.Namespaces = append(s.Namespaces, name)

	return NamespaceID(len(s.Namespaces) - 1)
}

// AddTable appends a table and returns its id.
func (s *Schema) AddTable(namespace NamespaceID, name string) TableID {
	s.Tables = append(s.Tables, Table{Namespace: namespace, Name: name})

	return TableID(len(s.Tables) - 1)
}

// AddColumn appends a column to the given table and returns its id. Columns
// must be added grouped by table, in table-id order.
func (s *Schema) AddColumn(table TableID, column Column) ColumnID {
	s.Columns = append(s.Columns, TableColumn{Table: table, Column: column})

	return ColumnID(len(s.Columns) - 1)
}

// AddIndex appends an index header and returns its id. Indexes must be added
// grouped by table, in table-id order.
func (s *Schema) AddIndex(index Index) IndexID {
	s.Indexes = append(s.Indexes, index)

	return IndexID(len(s.Indexes) - 1)
}

// AddIndexColumn appends one column participation to an index. Entries must
// be added grouped by index, in index-id order; within one index, order is
// the key order of the index itself.
func (s *Schema) AddIndexColumn(entry IndexColumn) IndexColumnID {
	s.IndexColumns = append(s.IndexColumns, entry)

	return IndexColumnID(len(s.IndexColumns) - 1)
}

// AddForeignKey appends a foreign key header and returns its id. Foreign keys
// must be added grouped by constrained table, in table-id order.
func (s *Schema) AddForeignKey(fk ForeignKey) ForeignKeyID {
	s.ForeignKeys = append(s.ForeignKeys, fk)

	return ForeignKeyID(len(s.ForeignKeys) - 1)
}

// AddForeignKeyColumn appends one constrained/referenced column pair. Entries
// must be added grouped by foreign key, in foreign-key-id order; within one
// key, order is the constraint's column order.
func (s *Schema) AddForeignKeyColumn(entry ForeignKeyColumn) ForeignKeyColumnID {
	s.ForeignKeyColumns = append(s.ForeignKeyColumns, entry)

	return ForeignKeyColumnID(len(s.ForeignKeyColumns) - 1)
}

// AddEnum appends an enum definition and returns its id.
func (s *Schema) AddEnum(namespace NamespaceID, name string) EnumID {
	s.Enums = append(s.Enums, Enum{Namespace: namespace, Name: name})

	return EnumID(len(s.Enums) - 1)
}

// AddEnumVariant appends one variant to an enum. Variants must be added
// grouped by enum, in enum-id order; within one enum, order is declaration
// order.
func (s *Schema) AddEnumVariant(enum EnumID, name string) EnumVariantID {
	s.EnumVariants = append(s.EnumVariants, EnumVariant{Enum: enum, Name: name})

	return EnumVariantID(len(s.EnumVariants) - 1)
}

// AddView appends a view and returns its id.
func (s *Schema) AddView(namespace NamespaceID, name, definition string) ViewID {
	s.Views = append(s.Views, View{Namespace: namespace, Name: name, Definition: definition})

	return ViewID(len(s.Views) - 1)
}

// NamespaceName returns the name for a namespace id.
func (s *Schema) NamespaceName(id NamespaceID) string {
	return s.Namespaces[id]
}

// FindNamespace looks a namespace up by name.
func (s *Schema) FindNamespace(name string) (NamespaceID, bool) {
	for i, ns := range s.Namespaces {
		if ns == name {
			return NamespaceID(i), true
		}
	}

	return 0, false
}

// FindTable looks a table up by namespace and name.
func (s *Schema) FindTable(namespace, name string) (TableWalker, bool) {
	for i, t := range s.Tables {
		if t.Name == name && s.Namespaces[t.Namespace] == namespace {
			return s.Table(TableID(i)), true
		}
	}

	return TableWalker{}, false
}

// FindEnum looks an enum up by namespace and name.
func (s *Schema) FindEnum(namespace, name string) (EnumWalker, bool) {
	for i, e := range s.Enums {
		if e.Name == name && s.Namespaces[e.Namespace] == namespace {
			return s.Enum(EnumID(i)), true
		}
	}

	return EnumWalker{}, false
}

// FindView looks a view up by namespace and name.
func (s *Schema) FindView(namespace, name string) (ViewWalker, bool) {
	for i, v := range s.Views {
		if v.Name == name && s.Namespaces[v.Namespace] == namespace {
			return s.View(ViewID(i)), true
		}
	}

	return ViewWalker{}, false
}

// columnRange returns the half-open range of s.Columns owned by the table.
func (s *Schema) columnRange(table TableID) (int, int) {
	lo := sort.Search(len(s.Columns), func(i int) bool { return s.Columns[i].Table >= table })
	hi := sort.Search(len(s.Columns), func(i int) bool { return s.Columns[i].Table > table })

	return lo, hi
}

// indexRange returns the half-open range of s.Indexes owned by the table.
func (s *Schema) indexRange(table TableID) (int, int) {
	lo := sort.Search(len(s.Indexes), func(i int) bool { return s.Indexes[i].Table >= table })
	hi := sort.Search(len(s.Indexes), func(i int) bool { return s.Indexes[i].Table > table })

	return lo, hi
}

// indexColumnRange returns the half-open range of s.IndexColumns owned by the
// index.
func (s *Schema) indexColumnRange(index IndexID) (int, int) {
	lo := sort.Search(len(s.IndexColumns), func(i int) bool { return s.IndexColumns[i].Index >= index })
	hi := sort.Search(len(s.IndexColumns), func(i int) bool { return s.IndexColumns[i].Index > index })

	return lo, hi
}

// foreignKeyRange returns the half-open range of s.ForeignKeys constrained by
// the table.
func (s *Schema) foreignKeyRange(table TableID) (int, int) {
	lo := sort.Search(len(s.ForeignKeys), func(i int) bool { return s.ForeignKeys[i].ConstrainedTable >= table })
	hi := sort.Search(len(s.ForeignKeys), func(i int) bool { return s.ForeignKeys[i].ConstrainedTable > table })

	return lo, hi
}

// foreignKeyColumnRange returns the half-open range of s.ForeignKeyColumns
// owned by the foreign key.
func (s *Schema) foreignKeyColumnRange(fk ForeignKeyID) (int, int) {
	lo := sort.Search(len(s.ForeignKeyColumns), func(i int) bool { return s.ForeignKeyColumns[i].ForeignKey >= fk })
	hi := sort.Search(len(s.ForeignKeyColumns), func(i int) bool { return s.ForeignKeyColumns[i].ForeignKey > fk })

	return lo, hi
}

// enumVariantRange returns the half-open range of s.EnumVariants owned by the
// enum.
func (s *Schema) enumVariantRange(enum EnumID) (int, int) {
	lo := sort.Search(len(s.EnumVariants), func(i int) bool { return s.EnumVariants[i].Enum >= enum })
	hi := sort.Search(len(s.EnumVariants), func(i int) bool { return s.EnumVariants[i].Enum > enum })

	return lo, hi
}
