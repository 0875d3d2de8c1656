package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/diff"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

func TestSQLite_renderScript_createdTablesInlineForeignKeys(t *testing.T) {
	t.Parallel()

	previous := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {})

	next := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		userID := s.AddColumn(users, serialColumn("id"))
		addIndex(s, users, "users_pkey", schema.IndexPrimaryKey, userID)

		posts := s.AddTable(ns, "posts")
		s.AddColumn(posts, intColumn("id"))
		authorID := s.AddColumn(posts, intColumn("author_id"))
		addForeignKey(s, "posts_author_fkey", posts, authorID, users, userID)
	})

	want := `-- CreateTable
CREATE TABLE "users" (
    "id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT
);

-- CreateTable
CREATE TABLE "posts" (
    "id" INTEGER NOT NULL,
    "author_id" INTEGER NOT NULL,
    CONSTRAINT "posts_author_fkey" FOREIGN KEY ("author_id") REFERENCES "users" ("id") ON DELETE NO ACTION ON UPDATE NO ACTION
);
`

	assert.Equal(t, want, render(t, dialect.NewSQLite(), previous, next))
}

func TestSQLite_redefineTriggers(t *testing.T) {
	t.Parallel()

	base := func(s *schema.Schema, ns schema.NamespaceID) (schema.TableID, schema.ColumnID) {
		users := s.AddTable(ns, "users")
		id := s.AddColumn(users, intColumn("id"))

		return users, id
	}

	tests := []struct {
		name     string
		previous func(s *schema.Schema, ns schema.NamespaceID)
		next     func(s *schema.Schema, ns schema.NamespaceID)
		want     []diff.StepKind
	}{
		{
			name: "dropped column rebuilds",
			previous: func(s *schema.Schema, ns schema.NamespaceID) {
				users, _ := base(s, ns)
				s.AddColumn(users, textColumn("name"))
			},
			next: func(s *schema.Schema, ns schema.NamespaceID) {
				base(s, ns)
			},
			want: []diff.StepKind{diff.KindRedefineTables},
		},
		{
			name: "altered column rebuilds",
			previous: func(s *schema.Schema, ns schema.NamespaceID) {
				users, _ := base(s, ns)
				s.AddColumn(users, textColumn("name"))
			},
			next: func(s *schema.Schema, ns schema.NamespaceID) {
				users, _ := base(s, ns)
				s.AddColumn(users, intColumn("name"))
			},
			want: []diff.StepKind{diff.KindRedefineTables},
		},
		{
			name: "added required column without default rebuilds",
			previous: func(s *schema.Schema, ns schema.NamespaceID) {
				base(s, ns)
			},
			next: func(s *schema.Schema, ns schema.NamespaceID) {
				users, _ := base(s, ns)
				s.AddColumn(users, textColumn("name"))
			},
			want: []diff.StepKind{diff.KindRedefineTables},
		},
		{
			name: "added nullable column alters in place",
			previous: func(s *schema.Schema, ns schema.NamespaceID) {
				base(s, ns)
			},
			next: func(s *schema.Schema, ns schema.NamespaceID) {
				users, _ := base(s, ns)
				s.AddColumn(users, nullableTextColumn("bio"))
			},
			want: []diff.StepKind{diff.KindAlterTable},
		},
		{
			name: "added required column with default alters in place",
			previous: func(s *schema.Schema, ns schema.NamespaceID) {
				base(s, ns)
			},
			next: func(s *schema.Schema, ns schema.NamespaceID) {
				users, _ := base(s, ns)
				col := intColumn("score")
				col.Default = schema.ValueDefault("0")
				s.AddColumn(users, col)
			},
			want: []diff.StepKind{diff.KindAlterTable},
		},
		{
			name: "added primary key rebuilds",
			previous: func(s *schema.Schema, ns schema.NamespaceID) {
				base(s, ns)
			},
			next: func(s *schema.Schema, ns schema.NamespaceID) {
				users, id := base(s, ns)
				addIndex(s, users, "users_pkey", schema.IndexPrimaryKey, id)
			},
			want: []diff.StepKind{diff.KindRedefineTables},
		},
		{
			name: "added foreign key rebuilds",
			previous: func(s *schema.Schema, ns schema.NamespaceID) {
				base(s, ns)
				posts := s.AddTable(ns, "posts")
				s.AddColumn(posts, intColumn("author_id"))
			},
			next: func(s *schema.Schema, ns schema.NamespaceID) {
				users, userID := base(s, ns)
				posts := s.AddTable(ns, "posts")
				authorID := s.AddColumn(posts, intColumn("author_id"))
				addForeignKey(s, "posts_author_fkey", posts, authorID, users, userID)
			},
			want: []diff.StepKind{diff.KindRedefineTables},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			previous := buildSchema(t, tt.previous)
			next := buildSchema(t, tt.next)

			m := diff.Diff(previous, next, dialect.NewSQLite())
			assert.Equal(t, tt.want, stepKinds(m))
		})
	}
}

func TestSQLite_renderScript_redefineDance(t *testing.T) {
	t.Parallel()

	build := func(nameCol schema.Column) *schema.Schema {
		return buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
			users := s.AddTable(ns, "users")
			id := s.AddColumn(users, serialColumn("id"))
			name := s.AddColumn(users, nameCol)
			addIndex(s, users, "users_pkey", schema.IndexPrimaryKey, id)
			addIndex(s, users, "users_name_key", schema.IndexUnique, name)
		})
	}

	want := `-- RedefineTables
PRAGMA foreign_keys=OFF;
CREATE TABLE "_new_users" (
    "id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
    "name" INTEGER NOT NULL
);
INSERT INTO "_new_users" ("id", "name") SELECT "id", "name" FROM "users";
DROP TABLE "users";
ALTER TABLE "_new_users" RENAME TO "users";
PRAGMA foreign_key_check;
PRAGMA foreign_keys=ON;

-- CreateIndex
CREATE UNIQUE INDEX "users_name_key" ON "users"("name");
`

	assert.Equal(t, want, render(t, dialect.NewSQLite(), build(textColumn("name")), build(intColumn("name"))))
}

func TestSQLite_renderScript_addedColumns(t *testing.T) {
	t.Parallel()

	previous := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		s.AddColumn(users, intColumn("id"))
	})

	next := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		s.AddColumn(users, intColumn("id"))
		s.AddColumn(users, nullableTextColumn("bio"))

		active := schema.Column{Name: "active", Type: schema.ColumnType{Family: schema.FamilyBoolean, Arity: schema.Required}}
		active.Default = schema.ValueDefault("true")
		s.AddColumn(users, active)
	})

	want := `-- AlterTable
ALTER TABLE "users" ADD COLUMN "bio" TEXT;
ALTER TABLE "users" ADD COLUMN "active" BOOLEAN NOT NULL DEFAULT true;
`

	assert.Equal(t, want, render(t, dialect.NewSQLite(), previous, next))
}

func TestSQLite_renderScript_droppedTable(t *testing.T) {
	t.Parallel()

	previous := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		name := s.AddColumn(users, textColumn("name"))
		addIndex(s, users, "users_name_key", schema.IndexUnique, name)
	})

	next := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {})

	// Indexes die with the table; no separate DROP INDEX.
	want := `-- DropTable
DROP TABLE "users";
`

	assert.Equal(t, want, render(t, dialect.NewSQLite(), previous, next))
}
