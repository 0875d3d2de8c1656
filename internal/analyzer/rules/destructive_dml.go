package rules

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/database-schema-engine/internal/analyzer"
)

// DestructiveDMLRule flags TRUNCATE and DELETE without a WHERE clause. Both
// wipe every row, and neither can be undone without a backup.
type DestructiveDMLRule struct{}

// NewDestructiveDMLRule creates a new DestructiveDMLRule.
func NewDestructiveDMLRule() *DestructiveDMLRule { return &DestructiveDMLRule{} }

// ID returns the rule identifier.
func (r *DestructiveDMLRule) ID() string { return "destructive-dml" }

// Check examines a statement for TRUNCATE or an unfiltered DELETE.
func (r *DestructiveDMLRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_TruncateStmt:
		return r.checkTruncate(node.TruncateStmt, ctx)
	case *pg_query.Node_DeleteStmt:
		return r.checkDelete(node.DeleteStmt, ctx)
	default:
		return nil
	}
}

func (r *DestructiveDMLRule) checkTruncate(trunc *pg_query.TruncateStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	if trunc == nil {
		return nil
	}

	var tables []string

	for _, rel := range trunc.Relations {
		rv, ok := rel.Node.(*pg_query.Node_RangeVar)
		if !ok {
			continue
		}

		tables = append(tables, analyzer.TableName(rv.RangeVar))
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Critical,
		Table:      strings.Join(tables, ", "),
		Message:    "TRUNCATE removes every row from the table",
		Suggestion: "Take a backup first, or delete in batches with a WHERE clause",
		LockType:   "ACCESS EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}}
}

func (r *DestructiveDMLRule) checkDelete(del *pg_query.DeleteStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	if del == nil || del.WhereClause != nil {
		return nil
	}

	return []analyzer.Finding{{
		Rule:       r.ID(),
		Severity:   analyzer.Critical,
		Table:      analyzer.TableName(del.Relation),
		Message:    "DELETE without a WHERE clause removes every row from the table",
		Suggestion: "Add a WHERE clause, or use TRUNCATE deliberately after taking a backup",
		LockType:   "ROW EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}}
}
