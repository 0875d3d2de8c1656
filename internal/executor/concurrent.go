package executor

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/database-schema-engine/internal/parser"
)

// containsConcurrentIndex reports whether any statement is a CREATE INDEX
// CONCURRENTLY. Such statements cannot run inside a transaction block and
// force the whole script onto plain pool connections.
func containsConcurrentIndex(statements []string) (bool, error) {
	for _, stmt := range statements {
		result, err := parser.Parse(stmt)
		if err != nil {
			return false, fmt.Errorf("parsing statement for concurrent index detection: %w", err)
		}

		for _, raw := range result.Stmts {
			node, ok := raw.Stmt.Node.(*pg_query.Node_IndexStmt)
			if !ok {
				continue
			}

			if node.IndexStmt != nil && node.IndexStmt.Concurrent {
				return true, nil
			}
		}
	}

	return false, nil
}
