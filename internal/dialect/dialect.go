// Package dialect implements the engine-specific halves of the migration
// pipeline: the diff policies, DDL script rendering, script statement
// splitting, and the live row inspectors behind the destructive change
// checker. Everything engine-agnostic lives in diff and check; everything
// that knows SQL syntax lives here.
package dialect

import (
	"fmt"
	"strings"

	"github.com/aqasim81/database-schema-engine/internal/diff"
)

// Dialect is one database engine's personality. It drives the differ
// through the embedded policy and turns the resulting steps into an
// executable SQL script.
type Dialect interface {
	diff.Policy

	// Name returns the provider name the dialect registers under.
	Name() string

	// RenderScript renders the migration's steps as a SQL script, one
	// statement per step section, each introduced by a comment naming the
	// step.
	RenderScript(m *diff.Migration) (string, error)

	// SplitStatements cuts a SQL script into individually executable
	// statements, stripping statement terminators.
	SplitStatements(script string) ([]string, error)
}

// ByName returns the dialect registered under the given provider name.
// Recognized providers: postgres (postgresql), mysql, sqlite (sqlite3).
func ByName(provider string) (Dialect, error) {
	switch strings.ToLower(provider) {
	case "postgres", "postgresql":
		return NewPostgres(), nil
	case "mysql":
		return NewMySQL(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

// stepRenderer is the per-dialect step-to-statements translation behind
// renderScript.
type stepRenderer interface {
	renderStep(m *diff.Migration, step diff.Step) ([]string, error)
}

// renderScript assembles the full script: each step's statements under a
// comment naming the step kind, statements terminated with semicolons and
// separated by blank lines.
func renderScript(m *diff.Migration, r stepRenderer) (string, error) {
	var b strings.Builder

	for i, step := range m.Steps {
		statements, err := r.renderStep(m, step)
		if err != nil {
			return "", fmt.Errorf("rendering step %d: %w", i, err)
		}

		if len(statements) == 0 {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "-- %s\n", stepLabel(step))

		for _, stmt := range statements {
			b.WriteString(stmt)
			b.WriteString(";\n")
		}
	}

	return b.String(), nil
}

func stepLabel(step diff.Step) string {
	switch step.(type) {
	case diff.CreateSchema:
		return "CreateSchema"
	case diff.CreateEnum:
		return "CreateEnum"
	case diff.AlterEnum:
		return "AlterEnum"
	case diff.DropForeignKey:
		return "DropForeignKey"
	case diff.DropIndex:
		return "DropIndex"
	case diff.AlterTable:
		return "AlterTable"
	case diff.DropTable:
		return "DropTable"
	case diff.DropEnum:
		return "DropEnum"
	case diff.CreateTable:
		return "CreateTable"
	case diff.RedefineTables:
		return "RedefineTables"
	case diff.CreateIndexStep:
		return "CreateIndex"
	case diff.RenameForeignKey:
		return "RenameForeignKey"
	case diff.AddForeignKey:
		return "AddForeignKey"
	case diff.RenameIndex:
		return "RenameIndex"
	default:
		return "Step"
	}
}

// quoteIdent double-quotes an identifier, escaping embedded quotes. Used by
// the postgres and sqlite renderers.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// backquoteIdent backtick-quotes an identifier for mysql.
func backquoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// quoteLiteral single-quotes a string literal, escaping embedded quotes.
func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// joinQuoted renders a comma-separated identifier list with the given
// quoting function.
func joinQuoted(names []string, quote func(string) string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quote(name)
	}

	return strings.Join(quoted, ", ")
}

// quotedLiteralList renders a comma-separated list of string literals.
func quotedLiteralList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteLiteral(v)
	}

	return strings.Join(quoted, ", ")
}

// splitStatements is the text-level statement splitter used by engines
// without a SQL parser in the stack. It understands single quotes, double
// quotes, backticks, line comments (-- and #) and block comments, and cuts
// on semicolons outside all of them. Statement terminators are dropped,
// blank statements skipped.
func splitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
	)

	const (
		plain = iota
		singleQuoted
		doubleQuoted
		backQuoted
		lineComment
		blockComment
	)

	state := plain

	for i := 0; i < len(script); i++ {
		c := script[i]

		switch state {
		case plain:
			switch {
			case c == ';':
				if stmt := strings.TrimSpace(current.String()); hasSQLContent(stmt) {
					statements = append(statements, stmt)
				}

				current.Reset()

				continue
			case c == '\'':
				state = singleQuoted
			case c == '"':
				state = doubleQuoted
			case c == '`':
				state = backQuoted
			case c == '-' && i+1 < len(script) && script[i+1] == '-':
				state = lineComment
			case c == '#':
				state = lineComment
			case c == '/' && i+1 < len(script) && script[i+1] == '*':
				state = blockComment
			}
		case singleQuoted:
			if c == '\'' {
				state = plain
			}
		case doubleQuoted:
			if c == '"' {
				state = plain
			}
		case backQuoted:
			if c == '`' {
				state = plain
			}
		case lineComment:
			if c == '\n' {
				state = plain
			}
		case blockComment:
			if c == '*' && i+1 < len(script) && script[i+1] == '/' {
				current.WriteByte(c)
				i++
				c = script[i]
				state = plain
			}
		}

		current.WriteByte(c)
	}

	if stmt := strings.TrimSpace(current.String()); hasSQLContent(stmt) {
		statements = append(statements, stmt)
	}

	return statements
}

// hasSQLContent reports whether the statement holds anything besides
// whitespace and comments.
func hasSQLContent(stmt string) bool {
	for i := 0; i < len(stmt); i++ {
		switch c := stmt[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		case c == '#':
			for i < len(stmt) && stmt[i] != '\n' {
				i++
			}
		case c == '-' && i+1 < len(stmt) && stmt[i+1] == '-':
			for i < len(stmt) && stmt[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(stmt) && stmt[i+1] == '*':
			i += 2
			for i+1 < len(stmt) && (stmt[i] != '*' || stmt[i+1] != '/') {
				i++
			}

			i++
		default:
			return true
		}
	}

	return false
}
