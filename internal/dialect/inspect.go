package dialect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresInspector answers live-data questions over a pgx pool. It backs
// destructive-change checks with real row counts instead of the conservative
// assumptions used when no connection is available.
type PostgresInspector struct {
	pool *pgxpool.Pool
}

// NewPostgresInspector returns an inspector reading through pool.
func NewPostgresInspector(pool *pgxpool.Pool) *PostgresInspector {
	return &PostgresInspector{pool: pool}
}

// RowCount returns the number of rows in the table.
func (i *PostgresInspector) RowCount(ctx context.Context, namespace, table string) (int64, error) {
	var count int64

	query := "SELECT COUNT(*) FROM " + qualifiedRef(namespace, table, quoteIdent)
	if err := i.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}

	return count, nil
}

// NonNullCount returns the number of rows holding a non-null value in the
// column.
func (i *PostgresInspector) NonNullCount(ctx context.Context, namespace, table, column string) (int64, error) {
	var count int64

	query := fmt.Sprintf("SELECT COUNT(%s) FROM %s", quoteIdent(column), qualifiedRef(namespace, table, quoteIdent))
	if err := i.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting values in %s.%s: %w", table, column, err)
	}

	return count, nil
}

// SQLInspector answers live-data questions over a database/sql handle; it
// serves the engines driven through standard drivers.
type SQLInspector struct {
	db    *sql.DB
	quote func(string) string
}

// NewMySQLInspector returns an inspector for a mysql connection.
func NewMySQLInspector(db *sql.DB) *SQLInspector {
	return &SQLInspector{db: db, quote: backquoteIdent}
}

// NewSQLiteInspector returns an inspector for a sqlite connection.
func NewSQLiteInspector(db *sql.DB) *SQLInspector {
	return &SQLInspector{db: db, quote: quoteIdent}
}

// RowCount returns the number of rows in the table.
func (i *SQLInspector) RowCount(ctx context.Context, namespace, table string) (int64, error) {
	var count int64

	query := "SELECT COUNT(*) FROM " + qualifiedRef(namespace, table, i.quote)
	if err := i.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}

	return count, nil
}

// NonNullCount returns the number of rows holding a non-null value in the
// column.
func (i *SQLInspector) NonNullCount(ctx context.Context, namespace, table, column string) (int64, error) {
	var count int64

	query := fmt.Sprintf("SELECT COUNT(%s) FROM %s", i.quote(column), qualifiedRef(namespace, table, i.quote))
	if err := i.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting values in %s.%s: %w", table, column, err)
	}

	return count, nil
}

func qualifiedRef(namespace, table string, quote func(string) string) string {
	if namespace == "" {
		return quote(table)
	}

	return quote(namespace) + "." + quote(table)
}
