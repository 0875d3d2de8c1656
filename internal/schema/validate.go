package schema

import "fmt"

// Validate checks the snapshot's internal consistency: every id resolves,
// side-tables are sorted by owning id, names are unique within their scope,
// foreign keys connect real columns of the right tables, and no table has
// more than one primary key. It returns the first problem found, wrapping
// ErrStructuralIntegrity. A snapshot built from introspection or a compiled
// schema must pass before it is handed to the differ.
func (s *Schema) Validate() error {
	if err := s.validateTables(); err != nil {
		return err
	}

	if err := s.validateColumns(); err != nil {
		return err
	}

	if err := s.validateIndexes(); err != nil {
		return err
	}

	if err := s.validateForeignKeys(); err != nil {
		return err
	}

	if err := s.validateEnums(); err != nil {
		return err
	}

	return s.validateViews()
}

func (s *Schema) validateTables() error {
	seen := make(map[[2]string]struct{}, len(s.Tables))

	for i, t := range s.Tables {
		if int(t.Namespace) >= len(s.Namespaces) {
			return fmt.Errorf("%w: table %q references missing namespace %d", ErrStructuralIntegrity, t.Name, t.Namespace)
		}

		if t.Name == "" {
			return fmt.Errorf("%w: table %d has an empty name", ErrStructuralIntegrity, i)
		}

		key := [2]string{s.Namespaces[t.Namespace], t.Name}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate table %q in namespace %q", ErrStructuralIntegrity, t.Name, key[0])
		}
		seen[key] = struct{}{}
	}

	return nil
}

func (s *Schema) validateColumns() error {
	var prev TableID

	names := make(map[string]struct{})

	for i, c := range s.Columns {
		if int(c.Table) >= len(s.Tables) {
			return fmt.Errorf("%w: column %q references missing table %d", ErrStructuralIntegrity, c.Name, c.Table)
		}

		if i > 0 && c.Table < prev {
			return fmt.Errorf("%w: columns side-table not sorted at entry %d", ErrStructuralIntegrity, i)
		}

		if c.Table != prev || i == 0 {
			names = make(map[string]struct{})
		}

		if _, dup := names[c.Name]; dup {
			return fmt.Errorf("%w: duplicate column %q on table %q", ErrStructuralIntegrity, c.Name, s.Tables[c.Table].Name)
		}
		names[c.Name] = struct{}{}

		if c.Type.Family == FamilyEnum && int(c.Type.Enum) >= len(s.Enums) {
			return fmt.Errorf("%w: column %q references missing enum %d", ErrStructuralIntegrity, c.Name, c.Type.Enum)
		}

		prev = c.Table
	}

	return nil
}

func (s *Schema) validateIndexes() error {
	var prevTable TableID

	pks := make(map[TableID]struct{})

	for i, idx := range s.Indexes {
		if int(idx.Table) >= len(s.Tables) {
			return fmt.Errorf("%w: index %q references missing table %d", ErrStructuralIntegrity, idx.Name, idx.Table)
		}

		if i > 0 && idx.Table < prevTable {
			return fmt.Errorf("%w: indexes side-table not sorted at entry %d", ErrStructuralIntegrity, i)
		}

		if idx.Type == IndexPrimaryKey {
			if _, dup := pks[idx.Table]; dup {
				return fmt.Errorf("%w: table %q has more than one primary key", ErrStructuralIntegrity, s.Tables[idx.Table].Name)
			}
			pks[idx.Table] = struct{}{}
		}

		prevTable = idx.Table
	}

	var prevIndex IndexID

	for i, ic := range s.IndexColumns {
		if int(ic.Index) >= len(s.Indexes) {
			return fmt.Errorf("%w: index column entry %d references missing index %d", ErrStructuralIntegrity, i, ic.Index)
		}

		if int(ic.Column) >= len(s.Columns) {
			return fmt.Errorf("%w: index column entry %d references missing column %d", ErrStructuralIntegrity, i, ic.Column)
		}

		if i > 0 && ic.Index < prevIndex {
			return fmt.Errorf("%w: index columns side-table not sorted at entry %d", ErrStructuralIntegrity, i)
		}

		if s.Columns[ic.Column].Table != s.Indexes[ic.Index].Table {
			return fmt.Errorf("%w: index %q covers column %q of a different table",
				ErrStructuralIntegrity, s.Indexes[ic.Index].Name, s.Columns[ic.Column].Name)
		}

		prevIndex = ic.Index
	}

	for i := range s.Indexes {
		lo, hi := s.indexColumnRange(IndexID(i))
		if lo == hi {
			return fmt.Errorf("%w: index %q has no columns", ErrStructuralIntegrity, s.Indexes[i].Name)
		}
	}

	return nil
}

func (s *Schema) validateForeignKeys() error {
	var prevTable TableID

	for i, fk := range s.ForeignKeys {
		if int(fk.ConstrainedTable) >= len(s.Tables) {
			return fmt.Errorf("%w: foreign key %d constrains missing table %d", ErrStructuralIntegrity, i, fk.ConstrainedTable)
		}

		if int(fk.ReferencedTable) >= len(s.Tables) {
			return fmt.Errorf("%w: foreign key %d references missing table %d", ErrStructuralIntegrity, i, fk.ReferencedTable)
		}

		if i > 0 && fk.ConstrainedTable < prevTable {
			return fmt.Errorf("%w: foreign keys side-table not sorted at entry %d", ErrStructuralIntegrity, i)
		}

		prevTable = fk.ConstrainedTable
	}

	var prevFK ForeignKeyID

	for i, fc := range s.ForeignKeyColumns {
		if int(fc.ForeignKey) >= len(s.ForeignKeys) {
			return fmt.Errorf("%w: foreign key column entry %d references missing foreign key %d", ErrStructuralIntegrity, i, fc.ForeignKey)
		}

		if int(fc.ConstrainedColumn) >= len(s.Columns) || int(fc.ReferencedColumn) >= len(s.Columns) {
			return fmt.Errorf("%w: foreign key column entry %d references a missing column", ErrStructuralIntegrity, i)
		}

		if i > 0 && fc.ForeignKey < prevFK {
			return fmt.Errorf("%w: foreign key columns side-table not sorted at entry %d", ErrStructuralIntegrity, i)
		}

		fk := s.ForeignKeys[fc.ForeignKey]
		if s.Columns[fc.ConstrainedColumn].Table != fk.ConstrainedTable {
			return fmt.Errorf("%w: foreign key %d constrains column %q outside its table",
				ErrStructuralIntegrity, fc.ForeignKey, s.Columns[fc.ConstrainedColumn].Name)
		}

		if s.Columns[fc.ReferencedColumn].Table != fk.ReferencedTable {
			return fmt.Errorf("%w: foreign key %d references column %q outside the referenced table",
				ErrStructuralIntegrity, fc.ForeignKey, s.Columns[fc.ReferencedColumn].Name)
		}

		prevFK = fc.ForeignKey
	}

	for i := range s.ForeignKeys {
		lo, hi := s.foreignKeyColumnRange(ForeignKeyID(i))
		if lo == hi {
			return fmt.Errorf("%w: foreign key %d has no column pairs", ErrStructuralIntegrity, i)
		}
	}

	return nil
}

func (s *Schema) validateEnums() error {
	seen := make(map[[2]string]struct{}, len(s.Enums))

	for _, e := range s.Enums {
		if int(e.Namespace) >= len(s.Namespaces) {
			return fmt.Errorf("%w: enum %q references missing namespace %d", ErrStructuralIntegrity, e.Name, e.Namespace)
		}

		key := [2]string{s.Namespaces[e.Namespace], e.Name}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate enum %q in namespace %q", ErrStructuralIntegrity, e.Name, key[0])
		}
		seen[key] = struct{}{}
	}

	var prev EnumID

	variants := make(map[string]struct{})

	for i, v := range s.EnumVariants {
		if int(v.Enum) >= len(s.Enums) {
			return fmt.Errorf("%w: enum variant %q references missing enum %d", ErrStructuralIntegrity, v.Name, v.Enum)
		}

		if i > 0 && v.Enum < prev {
			return fmt.Errorf("%w: enum variants side-table not sorted at entry %d", ErrStructuralIntegrity, i)
		}

		if v.Enum != prev || i == 0 {
			variants = make(map[string]struct{})
		}

		if _, dup := variants[v.Name]; dup {
			return fmt.Errorf("%w: duplicate variant %q on enum %q", ErrStructuralIntegrity, v.Name, s.Enums[v.Enum].Name)
		}
		variants[v.Name] = struct{}{}

		prev = v.Enum
	}

	return nil
}

func (s *Schema) validateViews() error {
	seen := make(map[[2]string]struct{}, len(s.Views))

	for _, v := range s.Views {
		if int(v.Namespace) >= len(s.Namespaces) {
			return fmt.Errorf("%w: view %q references missing namespace %d", ErrStructuralIntegrity, v.Name, v.Namespace)
		}

		key := [2]string{s.Namespaces[v.Namespace], v.Name}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate view %q in namespace %q", ErrStructuralIntegrity, v.Name, key[0])
		}
		seen[key] = struct{}{}
	}

	return nil
}
