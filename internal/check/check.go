// Package check screens a computed migration for destructive changes before
// anything runs against the database. Building a Plan is pure; evaluating it
// either assumes the worst about the data (PureCheck) or asks the database
// how much data is actually at stake (Check). For any database state,
// PureCheck's findings are a superset of Check's.
package check

import (
	"context"
	"strings"

	"github.com/aqasim81/database-schema-engine/internal/diff"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// Plan is the set of data-dependent conditions extracted from one migration.
// It references nothing but resolved names, so it stays valid after the
// migration's snapshots are gone.
type Plan struct {
	conditions []condition
}

// New extracts the destructive conditions from a migration's steps. The
// returned plan can be evaluated any number of times.
func New(m *diff.Migration) *Plan {
	p := &Plan{}

	for i, step := range m.Steps {
		switch s := step.(type) {
		case diff.DropTable:
			table := m.Previous.Table(s.Table)
			p.add(condition{kind: dropTable, stepIndex: i, namespace: table.Namespace(), table: table.Name()})

		case diff.AlterTable:
			p.addTableChanges(m, i, s)

		case diff.AlterEnum:
			if len(s.DroppedVariants) == 0 {
				break
			}

			p.add(condition{
				kind:      enumVariantsRemoved,
				stepIndex: i,
				enum:      m.Next.Enum(s.Enum.Next).Name(),
				variants:  strings.Join(s.DroppedVariants, ", "),
			})

		case diff.CreateIndexStep:
			p.addCreatedIndex(m, i, s)

		case diff.RedefineTables:
			for _, rt := range s.Tables {
				p.addRedefineTable(m, i, rt)
			}
		}
	}

	return p
}

// PureCheck evaluates the plan without touching a database: every table is
// assumed non-empty and every column assumed to hold values.
func (p *Plan) PureCheck() Diagnostics {
	var d Diagnostics

	for _, c := range p.conditions {
		d.add(c, c.pureMessage())
	}

	return d
}

// Check evaluates the plan against live data. Conditions whose table or
// column turns out to be empty produce no finding. A count that cannot be
// gathered (the table is gone, permissions, a transient failure) counts as
// unknown, and the condition fires with its conservative message; a gap in
// inspectability never produces a false "safe". Counts are cached, so
// repeated conditions on the same table cost one query. The only error
// returned is the context's.
func (p *Plan) Check(ctx context.Context, inspector Inspector) (Diagnostics, error) {
	var d Diagnostics

	counts := newCountCache(inspector)

	for _, c := range p.conditions {
		if err := ctx.Err(); err != nil {
			return Diagnostics{}, err
		}

		fires, count, known := evaluate(ctx, counts, c)
		if !fires {
			continue
		}

		if known {
			d.add(c, c.liveMessage(count))
		} else {
			d.add(c, c.pureMessage())
		}
	}

	return d, nil
}

// evaluate resolves one condition against live counts. The returned count is
// the figure that triggered the condition: rows, values, or NULLs depending
// on the condition's scope. known is false when the counts could not be
// gathered, in which case the condition fires.
func evaluate(ctx context.Context, counts *countCache, c condition) (fires bool, count int64, known bool) {
	switch c.scope() {
	case scopeTableRows:
		rows, ok := counts.rowCount(ctx, c.namespace, c.table)
		if !ok {
			return true, 0, false
		}

		return rows > 0, rows, true

	case scopeColumnValues:
		values, ok := counts.nonNullCount(ctx, c.namespace, c.table, c.column)
		if !ok {
			return true, 0, false
		}

		return values > 0, values, true

	case scopeColumnNulls:
		rows, rowsOK := counts.rowCount(ctx, c.namespace, c.table)
		values, valuesOK := counts.nonNullCount(ctx, c.namespace, c.table, c.column)

		if !rowsOK || !valuesOK {
			return true, 0, false
		}

		nulls := rows - values

		return nulls > 0, nulls, true

	default:
		return true, 0, false
	}
}

func (p *Plan) add(c condition) {
	p.conditions = append(p.conditions, c)
}

// addTableChanges extracts the conditions hiding in an AlterTable's change
// list. A dropped and re-added primary key counts as one change, not two.
func (p *Plan) addTableChanges(m *diff.Migration, stepIndex int, step diff.AlterTable) {
	table := m.Previous.Table(step.Table.Previous)

	droppedPK := false
	for _, change := range step.Changes {
		if _, ok := change.(diff.DropPrimaryKey); ok {
			droppedPK = true
		}
	}

	for _, change := range step.Changes {
		switch c := change.(type) {
		case diff.DropColumn:
			p.add(condition{
				kind:      dropColumn,
				stepIndex: stepIndex,
				namespace: table.Namespace(),
				table:     table.Name(),
				column:    m.Previous.WalkColumn(c.Column).Name(),
			})

		case diff.AddColumn:
			col := m.Next.WalkColumn(c.Column)
			if requiredWithoutDefault(col) && !c.HasVirtualDefault {
				p.add(condition{
					kind:      addedRequiredColumn,
					stepIndex: stepIndex,
					namespace: table.Namespace(),
					table:     table.Name(),
					column:    col.Name(),
				})
			}

		case diff.AlterColumn:
			p.addColumnPair(m, stepIndex, table, diff.ColumnPair{Column: c.Column, Changes: c.Changes, Type: c.Type})

		case diff.DropAndRecreateColumn:
			p.add(condition{
				kind:      recreateColumn,
				stepIndex: stepIndex,
				namespace: table.Namespace(),
				table:     table.Name(),
				column:    m.Previous.WalkColumn(c.Column.Previous).Name(),
			})

		case diff.DropPrimaryKey:
			p.add(condition{kind: primaryKeyChange, stepIndex: stepIndex, namespace: table.Namespace(), table: table.Name()})

		case diff.AddPrimaryKey:
			if !droppedPK {
				p.add(condition{kind: addedPrimaryKey, stepIndex: stepIndex, namespace: table.Namespace(), table: table.Name()})
			}
		}
	}
}

// addColumnPair extracts the conditions of one matched column: unsafe casts
// and nullable-to-required transitions.
func (p *Plan) addColumnPair(m *diff.Migration, stepIndex int, table schema.TableWalker, cp diff.ColumnPair) {
	previous := m.Previous.WalkColumn(cp.Column.Previous)
	next := m.Next.WalkColumn(cp.Column.Next)

	if cp.Changes.TypeChanged() {
		base := condition{
			stepIndex: stepIndex,
			namespace: table.Namespace(),
			table:     table.Name(),
			column:    previous.Name(),
			cast:      castDescription(previous, next),
		}

		switch cp.Type {
		case diff.RiskyCast:
			base.kind = riskyCast
			p.add(base)
		case diff.NotCastable:
			base.kind = notCastableChange
			p.add(base)
		}
	}

	if cp.Changes.ArityChanged() && previous.Arity().IsNullable() && next.Arity().IsRequired() {
		p.add(condition{
			kind:      madeColumnRequired,
			stepIndex: stepIndex,
			namespace: table.Namespace(),
			table:     table.Name(),
			column:    previous.Name(),
		})
	}
}

// addCreatedIndex flags unique indexes added to tables that already exist.
// Indexes on freshly created tables cover no data, and an index that carries
// the same name as one on the previous table is a rebuild of already-unique
// contents, not a new constraint.
func (p *Plan) addCreatedIndex(m *diff.Migration, stepIndex int, step diff.CreateIndexStep) {
	index := m.Next.Index(step.Index)
	if !index.IsUnique() {
		return
	}

	table := index.Table()

	previous, ok := m.Previous.FindTable(table.Namespace(), table.Name())
	if !ok {
		return
	}

	for _, prevIndex := range previous.Indexes() {
		if prevIndex.Name() == index.Name() {
			return
		}
	}

	p.add(condition{
		kind:      uniqueIndexAdded,
		stepIndex: stepIndex,
		namespace: table.Namespace(),
		table:     table.Name(),
		index:     index.Name(),
	})
}

// addRedefineTable recurses into one table's rebuild plan. Every condition
// points at the enclosing RedefineTables step.
func (p *Plan) addRedefineTable(m *diff.Migration, stepIndex int, rt diff.RedefineTable) {
	table := m.Previous.Table(rt.Table.Previous)

	for _, id := range rt.DroppedColumns {
		p.add(condition{
			kind:      dropColumn,
			stepIndex: stepIndex,
			namespace: table.Namespace(),
			table:     table.Name(),
			column:    m.Previous.WalkColumn(id).Name(),
		})
	}

	virtual := make(map[schema.ColumnID]bool, len(rt.VirtualDefaultCols))
	for _, id := range rt.VirtualDefaultCols {
		virtual[id] = true
	}

	for _, id := range rt.AddedColumns {
		col := m.Next.WalkColumn(id)
		if requiredWithoutDefault(col) && !virtual[id] {
			p.add(condition{
				kind:      addedRequiredColumn,
				stepIndex: stepIndex,
				namespace: table.Namespace(),
				table:     table.Name(),
				column:    col.Name(),
			})
		}
	}

	for _, cp := range rt.ColumnPairs {
		p.addColumnPair(m, stepIndex, table, cp)
	}

	if rt.DroppedPrimaryKey {
		p.add(condition{kind: primaryKeyChange, stepIndex: stepIndex, namespace: table.Namespace(), table: table.Name()})
	}
}

// requiredWithoutDefault reports whether adding this column needs a value for
// existing rows that nothing provides.
func requiredWithoutDefault(col schema.ColumnWalker) bool {
	return col.Arity().IsRequired() && col.Default() == nil && !col.AutoIncrement()
}
