package check

import "context"

// Inspector answers the data questions live checking needs. Implementations
// sit next to the dialects; tests use in-memory fakes.
type Inspector interface {
	// RowCount returns the number of rows in the table.
	RowCount(ctx context.Context, namespace, table string) (int64, error)
	// NonNullCount returns the number of rows with a non-null value in the
	// column.
	NonNullCount(ctx context.Context, namespace, table, column string) (int64, error)
}

// cachedCount is one memoized inspector answer. known is false when the
// inspector could not produce the count; the failure is cached too, so a
// broken table is asked about once.
type cachedCount struct {
	n     int64
	known bool
}

// countCache memoizes inspector answers for the duration of one Check.
type countCache struct {
	inspector Inspector
	rows      map[string]cachedCount
	values    map[string]cachedCount
}

func newCountCache(inspector Inspector) *countCache {
	return &countCache{
		inspector: inspector,
		rows:      make(map[string]cachedCount),
		values:    make(map[string]cachedCount),
	}
}

func (cc *countCache) rowCount(ctx context.Context, namespace, table string) (int64, bool) {
	key := namespace + "." + table
	if c, ok := cc.rows[key]; ok {
		return c.n, c.known
	}

	n, err := cc.inspector.RowCount(ctx, namespace, table)
	c := cachedCount{n: n, known: err == nil}
	cc.rows[key] = c

	return c.n, c.known
}

func (cc *countCache) nonNullCount(ctx context.Context, namespace, table, column string) (int64, bool) {
	key := namespace + "." + table + "." + column
	if c, ok := cc.values[key]; ok {
		return c.n, c.known
	}

	n, err := cc.inspector.NonNullCount(ctx, namespace, table, column)
	c := cachedCount{n: n, known: err == nil}
	cc.values[key] = c

	return c.n, c.known
}
