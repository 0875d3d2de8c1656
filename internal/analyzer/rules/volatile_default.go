package rules

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/database-schema-engine/internal/analyzer"
)

const pgVersionSafeNonVolatileDefault = 11

// VolatileDefaultRule flags ADD COLUMN with a DEFAULT that forces a table
// rewrite.
type VolatileDefaultRule struct{}

// NewVolatileDefaultRule creates a new VolatileDefaultRule.
func NewVolatileDefaultRule() *VolatileDefaultRule { return &VolatileDefaultRule{} }

// ID returns the rule identifier.
func (r *VolatileDefaultRule) ID() string { return "add-column-volatile-default" }

// Check examines a statement for ADD COLUMN with a volatile DEFAULT.
func (r *VolatileDefaultRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt

	// A table this script just created is empty; defaults fill no rows.
	if ctx.CreatedTables[analyzer.TableName(alt.Relation)] {
		return nil
	}

	var findings []analyzer.Finding

	for _, cmdNode := range alt.Cmds {
		cmd, ok := cmdNode.Node.(*pg_query.Node_AlterTableCmd)
		if !ok {
			continue
		}

		if cmd.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_AddColumn {
			continue
		}

		if f := r.checkAddColumn(cmd.AlterTableCmd, alt.Relation, ctx); f != nil {
			findings = append(findings, *f)
		}
	}

	return findings
}

func (r *VolatileDefaultRule) checkAddColumn(
	cmd *pg_query.AlterTableCmd,
	relation *pg_query.RangeVar,
	ctx *analyzer.RuleContext,
) *analyzer.Finding {
	if cmd.Def == nil {
		return nil
	}

	colDefNode, ok := cmd.Def.Node.(*pg_query.Node_ColumnDef)
	if !ok {
		return nil
	}

	defaultExpr := extractDefaultExpr(colDefNode.ColumnDef)
	if defaultExpr == nil {
		return nil // no DEFAULT
	}

	if ctx.TargetPGVersion >= pgVersionSafeNonVolatileDefault && !isVolatileDefault(defaultExpr) {
		return nil // PG 11+ stores non-volatile defaults without a rewrite
	}

	msg := "ADD COLUMN with a volatile DEFAULT rewrites the entire table"
	if ctx.TargetPGVersion < pgVersionSafeNonVolatileDefault {
		msg = "ADD COLUMN with DEFAULT rewrites the entire table on PG < 11"
	}

	return &analyzer.Finding{
		Rule:       r.ID(),
		Severity:   analyzer.Warning,
		Table:      analyzer.TableName(relation),
		Message:    msg,
		Suggestion: "Add the column without DEFAULT, then backfill in batches",
		LockType:   "ACCESS EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}
}

// extractDefaultExpr finds the DEFAULT expression of a ColumnDef. DEFAULT
// is stored as a CONSTR_DEFAULT constraint with the expression in RawExpr.
func extractDefaultExpr(colDef *pg_query.ColumnDef) *pg_query.Node {
	for _, c := range colDef.Constraints {
		cn, ok := c.Node.(*pg_query.Node_Constraint)
		if !ok {
			continue
		}

		if cn.Constraint.Contype == pg_query.ConstrType_CONSTR_DEFAULT {
			return cn.Constraint.RawExpr
		}
	}

	return nil
}

// isVolatileDefault reports whether a DEFAULT expression is volatile.
// Constants and casts of constants are not; everything else, including
// function calls like now() or gen_random_uuid(), is assumed to be.
func isVolatileDefault(node *pg_query.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_AConst:
		return false
	case *pg_query.Node_TypeCast:
		if n.TypeCast.Arg != nil {
			if _, ok := n.TypeCast.Arg.Node.(*pg_query.Node_AConst); ok {
				return false
			}
		}

		return true
	default:
		return true
	}
}
