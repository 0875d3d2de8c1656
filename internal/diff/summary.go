package diff

import (
	"fmt"
	"strings"

	"github.com/aqasim81/database-schema-engine/internal/schema"
)

// Summary renders a human-readable account of the migration's steps, one
// line per object, with column details for changed tables. An empty
// migration renders as an empty string. The output is meant for terminals
// and drift error messages, not for machine parsing.
func (m *Migration) Summary() string {
	var b strings.Builder

	for _, step := range m.Steps {
		m.summarizeStep(&b, step)
	}

	return b.String()
}

func (m *Migration) summarizeStep(b *strings.Builder, step Step) {
	switch s := step.(type) {
	case CreateSchema:
		fmt.Fprintf(b, "[+] Added schema %q\n", m.Next.NamespaceName(s.Namespace))
	case CreateEnum:
		fmt.Fprintf(b, "[+] Added enum %q\n", m.Next.Enum(s.Enum).Name())
	case AlterEnum:
		fmt.Fprintf(b, "[*] Changed enum %q", m.Next.Enum(s.Enum.Next).Name())

		if len(s.CreatedVariants) > 0 {
			fmt.Fprintf(b, ", added variants %s", quoteJoin(s.CreatedVariants))
		}

		if len(s.DroppedVariants) > 0 {
			fmt.Fprintf(b, ", removed variants %s", quoteJoin(s.DroppedVariants))
		}

		b.WriteString("\n")
	case DropEnum:
		fmt.Fprintf(b, "[-] Removed enum %q\n", m.Previous.Enum(s.Enum).Name())
	case DropForeignKey:
		fk := m.Previous.ForeignKey(s.ForeignKey)
		fmt.Fprintf(b, "[-] Removed foreign key %s on table %q\n", foreignKeyLabel(fk), fk.Table().Name())
	case AddForeignKey:
		fk := m.Next.ForeignKey(s.ForeignKey)
		fmt.Fprintf(b, "[+] Added foreign key %s on table %q\n", foreignKeyLabel(fk), fk.Table().Name())
	case RenameForeignKey:
		prev := m.Previous.ForeignKey(s.ForeignKey.Previous)
		next := m.Next.ForeignKey(s.ForeignKey.Next)
		fmt.Fprintf(b, "[*] Renamed foreign key %q to %q on table %q\n",
			prev.ConstraintName(), next.ConstraintName(), next.Table().Name())
	case DropIndex:
		ix := m.Previous.Index(s.Index)
		fmt.Fprintf(b, "[-] Removed index %q on table %q\n", ix.Name(), ix.Table().Name())
	case CreateIndexStep:
		ix := m.Next.Index(s.Index)
		fmt.Fprintf(b, "[+] Added index %q on table %q (%s)\n", ix.Name(), ix.Table().Name(), strings.Join(ix.ColumnNames(), ", "))
	case RenameIndex:
		prev := m.Previous.Index(s.Index.Previous)
		next := m.Next.Index(s.Index.Next)
		fmt.Fprintf(b, "[*] Renamed index %q to %q on table %q\n", prev.Name(), next.Name(), next.Table().Name())
	case DropTable:
		fmt.Fprintf(b, "[-] Removed table %q\n", m.Previous.Table(s.Table).Name())
	case CreateTable:
		fmt.Fprintf(b, "[+] Added table %q\n", m.Next.Table(s.Table).Name())
	case AlterTable:
		fmt.Fprintf(b, "[*] Changed table %q\n", m.Next.Table(s.Table.Next).Name())

		for _, change := range s.Changes {
			m.summarizeTableChange(b, change)
		}
	case RedefineTables:
		for _, t := range s.Tables {
			fmt.Fprintf(b, "[*] Redefined table %q\n", m.Next.Table(t.Table.Next).Name())
		}
	}
}

func (m *Migration) summarizeTableChange(b *strings.Builder, change TableChange) {
	switch c := change.(type) {
	case AddColumn:
		fmt.Fprintf(b, "  [+] Added column %q\n", m.Next.WalkColumn(c.Column).Name())
	case DropColumn:
		fmt.Fprintf(b, "  [-] Removed column %q\n", m.Previous.WalkColumn(c.Column).Name())
	case AlterColumn:
		fmt.Fprintf(b, "  [*] Altered column %q", m.Next.WalkColumn(c.Column.Next).Name())

		if c.Type != TypeChangeNone {
			fmt.Fprintf(b, " (%s cast)", c.Type)
		}

		b.WriteString("\n")
	case DropAndRecreateColumn:
		fmt.Fprintf(b, "  [*] Recreated column %q\n", m.Next.WalkColumn(c.Column.Next).Name())
	case DropPrimaryKey:
		b.WriteString("  [-] Dropped primary key\n")
	case AddPrimaryKey:
		fmt.Fprintf(b, "  [+] Added primary key on (%s)\n", strings.Join(m.Next.Index(c.Index).ColumnNames(), ", "))
	case RenamePrimaryKey:
		b.WriteString("  [*] Renamed primary key\n")
	}
}

func foreignKeyLabel(fk schema.ForeignKeyWalker) string {
	if name := fk.ConstraintName(); name != "" {
		return fmt.Sprintf("%q", name)
	}

	return fmt.Sprintf("on (%s)", strings.Join(fk.ConstrainedColumnNames(), ", "))
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}

	return strings.Join(quoted, ", ")
}
