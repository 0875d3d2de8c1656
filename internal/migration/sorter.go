package migration

import "sort"

// Sort returns a new slice of migrations in history order, which the
// timestamp prefix makes lexicographic order on Name. The sort is stable so
// equal names keep their insertion order.
func Sort(migrations []Migration) []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	return sorted
}
