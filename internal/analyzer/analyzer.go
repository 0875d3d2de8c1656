// Package analyzer lints migration scripts for operational hazards the
// step checker cannot see. Hand-written SQL reaches the history through
// draft migrations, and even generated DDL can lock a busy table; the
// findings here are advisory because a script alone cannot prove how much
// data is at stake.
package analyzer

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/database-schema-engine/internal/migration"
	"github.com/aqasim81/database-schema-engine/internal/parser"
)

// Option configures the Analyzer.
type Option func(*Analyzer)

// Analyzer runs registered rules against parsed migration scripts.
type Analyzer struct {
	registry  *Registry
	parseFn   func(string) (*parser.ParseResult, error)
	pgVersion int
}

// New creates an Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry:  NewRegistry(),
		parseFn:   parser.Parse,
		pgVersion: 14, //nolint:mnd // default PostgreSQL version
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// WithPGVersion sets the target PostgreSQL version. Some hazards depend on
// it; non-volatile ADD COLUMN defaults stopped rewriting tables in 11.
func WithPGVersion(v int) Option {
	return func(a *Analyzer) { a.pgVersion = v }
}

// WithParser overrides the SQL parser function (useful for testing).
func WithParser(fn func(string) (*parser.ParseResult, error)) Option {
	return func(a *Analyzer) { a.parseFn = fn }
}

// maxStatementDisplayLen caps the statement text carried on a finding.
const maxStatementDisplayLen = 120

// Analyze parses one migration's script and returns all findings.
func (a *Analyzer) Analyze(m migration.Migration) (*AnalysisResult, error) {
	result, err := a.parseFn(m.Script)
	if err != nil {
		return nil, fmt.Errorf("parsing migration %s: %w", m.Name, err)
	}

	var findings []Finding

	maxSeverity := Info
	createdTables := make(map[string]bool)

	for i, stmt := range result.Stmts {
		ctx := &RuleContext{
			MigrationName:   m.Name,
			TargetPGVersion: a.pgVersion,
			StmtIndex:       i,
			SQL:             m.Script,
			CreatedTables:   createdTables,
		}

		stmtSQL := TruncateSQL(ExtractStmtSQL(result.Stmts, i, m.Script), maxStatementDisplayLen)

		for _, rule := range a.registry.Rules() {
			fs := rule.Check(stmt, ctx)
			for j := range fs {
				if fs[j].Severity > maxSeverity {
					maxSeverity = fs[j].Severity
				}

				if fs[j].Statement == "" {
					fs[j].Statement = stmtSQL
				}
			}

			findings = append(findings, fs...)
		}

		// Later statements get to treat this table as empty. IF NOT EXISTS
		// is excluded: the table may predate the script, data included.
		if create, ok := stmt.Stmt.Node.(*pg_query.Node_CreateStmt); ok && !create.CreateStmt.IfNotExists {
			createdTables[TableName(create.CreateStmt.Relation)] = true
		}
	}

	return &AnalysisResult{
		MigrationName: m.Name,
		Findings:      findings,
		MaxSeverity:   maxSeverity,
	}, nil
}

// AnalyzeAll analyzes migrations in history order and returns one result
// per migration.
func (a *Analyzer) AnalyzeAll(migrations []migration.Migration) ([]AnalysisResult, error) {
	results := make([]AnalysisResult, 0, len(migrations))

	for _, m := range migrations {
		r, err := a.Analyze(m)
		if err != nil {
			return nil, err
		}

		results = append(results, *r)
	}

	return results, nil
}
