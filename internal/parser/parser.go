package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseResult holds the parsed AST and original SQL.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string and returns the AST.
// Returns an empty result (zero statements) for empty or whitespace-only input.
func Parse(sql string) (*ParseResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   sql,
	}, nil
}

// SplitStatements splits a script into individual statements using the
// parser's statement spans. Semicolons inside string literals, dollar-quoted
// bodies, and comments never cut a statement in half. Comments between
// statements stay attached to the statement that follows them.
func SplitStatements(sql string) ([]string, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return nil, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	statements := make([]string, 0, len(tree.Stmts))

	for _, raw := range tree.Stmts {
		start := int(raw.StmtLocation)
		end := len(trimmed)

		if raw.StmtLen > 0 {
			end = start + int(raw.StmtLen)
		}

		if stmt := strings.TrimSpace(trimmed[start:end]); stmt != "" {
			statements = append(statements, stmt)
		}
	}

	return statements, nil
}
