package rules

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/database-schema-engine/internal/analyzer"
)

const pgVersionSafeSetNotNull = 12

// NotNullRule flags statements that introduce NOT NULL where existing rows
// can violate it: SET NOT NULL scans the whole table under lock, and ADD
// COLUMN ... NOT NULL without a default fails outright on a non-empty
// table.
type NotNullRule struct{}

// NewNotNullRule creates a new NotNullRule.
func NewNotNullRule() *NotNullRule { return &NotNullRule{} }

// ID returns the rule identifier.
func (r *NotNullRule) ID() string { return "not-null-addition" }

// Check examines a statement for NOT NULL additions.
func (r *NotNullRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_AlterTableStmt)
	if !ok {
		return nil
	}

	alt := node.AlterTableStmt

	// A table this script just created has no rows to scan or violate.
	if ctx.CreatedTables[analyzer.TableName(alt.Relation)] {
		return nil
	}

	var findings []analyzer.Finding

	for _, cmdNode := range alt.Cmds {
		cmd, ok := cmdNode.Node.(*pg_query.Node_AlterTableCmd)
		if !ok {
			continue
		}

		switch cmd.AlterTableCmd.Subtype {
		case pg_query.AlterTableType_AT_SetNotNull:
			findings = append(findings, r.setNotNullFinding(alt, ctx))
		case pg_query.AlterTableType_AT_AddColumn:
			if f := r.addRequiredColumnFinding(cmd.AlterTableCmd, alt, ctx); f != nil {
				findings = append(findings, *f)
			}
		}
	}

	return findings
}

func (r *NotNullRule) setNotNullFinding(alt *pg_query.AlterTableStmt, ctx *analyzer.RuleContext) analyzer.Finding {
	suggestion := "Enforce in the application first, then schedule the scan in a quiet window"
	if ctx.TargetPGVersion >= pgVersionSafeSetNotNull {
		suggestion = "Add CHECK (col IS NOT NULL) NOT VALID, VALIDATE CONSTRAINT, then SET NOT NULL"
	}

	return analyzer.Finding{
		Rule:       r.ID(),
		Severity:   analyzer.Warning,
		Table:      analyzer.TableName(alt.Relation),
		Message:    "SET NOT NULL scans the entire table to verify no NULL values exist",
		Suggestion: suggestion,
		LockType:   "ACCESS EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}
}

func (r *NotNullRule) addRequiredColumnFinding(
	cmd *pg_query.AlterTableCmd,
	alt *pg_query.AlterTableStmt,
	ctx *analyzer.RuleContext,
) *analyzer.Finding {
	if cmd.Def == nil {
		return nil
	}

	colDefNode, ok := cmd.Def.Node.(*pg_query.Node_ColumnDef)
	if !ok {
		return nil
	}

	colDef := colDefNode.ColumnDef
	if !hasNotNullConstraint(colDef) || extractDefaultExpr(colDef) != nil {
		return nil
	}

	return &analyzer.Finding{
		Rule:       r.ID(),
		Severity:   analyzer.Warning,
		Table:      analyzer.TableName(alt.Relation),
		Message:    fmt.Sprintf("ADD COLUMN %q NOT NULL without a default fails on any non-empty table", colDef.Colname),
		Suggestion: "Add a DEFAULT, or add the column nullable, backfill, then SET NOT NULL",
		LockType:   "ACCESS EXCLUSIVE",
		StmtIndex:  ctx.StmtIndex,
	}
}

func hasNotNullConstraint(colDef *pg_query.ColumnDef) bool {
	for _, c := range colDef.Constraints {
		cn, ok := c.Node.(*pg_query.Node_Constraint)
		if !ok {
			continue
		}

		if cn.Constraint.Contype == pg_query.ConstrType_CONSTR_NOTNULL {
			return true
		}
	}

	return false
}
