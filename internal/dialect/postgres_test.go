package dialect_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/diff"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

func TestPostgres_renderScript_createdTable(t *testing.T) {
	t.Parallel()

	previous := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {})

	next := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		id := s.AddColumn(users, serialColumn("id"))
		email := s.AddColumn(users, textColumn("email"))
		addIndex(s, users, "users_pkey", schema.IndexPrimaryKey, id)
		addIndex(s, users, "users_email_key", schema.IndexUnique, email)
	})

	want := `-- CreateTable
CREATE TABLE "users" (
    "id" SERIAL NOT NULL,
    "email" TEXT NOT NULL,

    CONSTRAINT "users_pkey" PRIMARY KEY ("id")
);

-- CreateIndex
CREATE UNIQUE INDEX "users_email_key" ON "users"("email");
`

	assert.Equal(t, want, render(t, dialect.NewPostgres(), previous, next))
}

func TestPostgres_renderScript_droppedReferencedTable(t *testing.T) {
	t.Parallel()

	previous := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		userID := s.AddColumn(users, intColumn("id"))
		posts := s.AddTable(ns, "posts")
		authorID := s.AddColumn(posts, intColumn("author_id"))
		addForeignKey(s, "posts_author_fkey", posts, authorID, users, userID)
	})

	next := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		posts := s.AddTable(ns, "posts")
		s.AddColumn(posts, intColumn("author_id"))
	})

	want := `-- DropForeignKey
ALTER TABLE "posts" DROP CONSTRAINT "posts_author_fkey";

-- DropTable
DROP TABLE "users";
`

	assert.Equal(t, want, render(t, dialect.NewPostgres(), previous, next))
}

func TestPostgres_renderScript_renamedForeignKey(t *testing.T) {
	t.Parallel()

	build := func(fkName string) *schema.Schema {
		return buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
			users := s.AddTable(ns, "users")
			userID := s.AddColumn(users, intColumn("id"))
			posts := s.AddTable(ns, "posts")
			authorID := s.AddColumn(posts, intColumn("author_id"))
			addForeignKey(s, fkName, posts, authorID, users, userID)
		})
	}

	want := `-- RenameForeignKey
ALTER TABLE "posts" RENAME CONSTRAINT "posts_author_fkey" TO "posts_writer_fkey";
`

	assert.Equal(t, want, render(t, dialect.NewPostgres(), build("posts_author_fkey"), build("posts_writer_fkey")))
}

func TestPostgres_renderScript_riskyCastUsesExplicitCast(t *testing.T) {
	t.Parallel()

	previous := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		s.AddColumn(users, textColumn("age"))
	})

	next := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		s.AddColumn(users, intColumn("age"))
	})

	want := `-- AlterTable
ALTER TABLE "users" ALTER COLUMN "age" SET DATA TYPE INTEGER USING ("age"::INTEGER);
`

	assert.Equal(t, want, render(t, dialect.NewPostgres(), previous, next))
}

func TestPostgres_renderScript_notCastableRebuildsColumnAndIndexes(t *testing.T) {
	t.Parallel()

	previous := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		payload := s.AddColumn(users, schema.Column{Name: "payload", Type: schema.ColumnType{Family: schema.FamilyUUID, Arity: schema.Required}})
		addIndex(s, users, "users_payload_idx", schema.IndexNormal, payload)
	})

	next := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		payload := s.AddColumn(users, schema.Column{Name: "payload", Type: schema.ColumnType{Family: schema.FamilyJSON, Arity: schema.Required}})
		addIndex(s, users, "users_payload_idx", schema.IndexNormal, payload)
	})

	want := `-- AlterTable
ALTER TABLE "users" DROP COLUMN "payload", ADD COLUMN "payload" JSONB NOT NULL;
CREATE INDEX IF NOT EXISTS "users_payload_idx" ON "users"("payload");
`

	assert.Equal(t, want, render(t, dialect.NewPostgres(), previous, next))
}

func TestPostgres_renderScript_enumVariantAdded(t *testing.T) {
	t.Parallel()

	build := func(variants ...string) *schema.Schema {
		return buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
			color := s.AddEnum(ns, "color")
			for _, v := range variants {
				s.AddEnumVariant(color, v)
			}

			paints := s.AddTable(ns, "paints")
			s.AddColumn(paints, schema.Column{Name: "color", Type: schema.ColumnType{Family: schema.FamilyEnum, Arity: schema.Required, Enum: color}})
		})
	}

	want := `-- AlterEnum
ALTER TYPE "color" ADD VALUE 'blue';
`

	assert.Equal(t, want, render(t, dialect.NewPostgres(), build("red", "green"), build("red", "green", "blue")))
}

func TestPostgres_renderScript_enumVariantRemoved_rebuildsType(t *testing.T) {
	t.Parallel()

	build := func(variants ...string) *schema.Schema {
		return buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
			color := s.AddEnum(ns, "color")
			for _, v := range variants {
				s.AddEnumVariant(color, v)
			}

			paints := s.AddTable(ns, "paints")
			s.AddColumn(paints, schema.Column{Name: "color", Type: schema.ColumnType{Family: schema.FamilyEnum, Arity: schema.Required, Enum: color}})
		})
	}

	want := `-- AlterEnum
CREATE TYPE "color_new" AS ENUM ('red');
ALTER TABLE "paints" ALTER COLUMN "color" SET DATA TYPE "color_new" USING ("color"::text::"color_new");
DROP TYPE "color";
ALTER TYPE "color_new" RENAME TO "color";
`

	assert.Equal(t, want, render(t, dialect.NewPostgres(), build("red", "green"), build("red")))
}

func TestPostgres_renderScript_createdNamespaceQualifiesNames(t *testing.T) {
	t.Parallel()

	previous := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {})

	next := buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		auth := s.AddNamespace("auth")
		users := s.AddTable(auth, "users")
		s.AddColumn(users, intColumn("id"))
	})

	want := `-- CreateSchema
CREATE SCHEMA IF NOT EXISTS "auth";

-- CreateTable
CREATE TABLE "auth"."users" (
    "id" INTEGER NOT NULL
);
`

	assert.Equal(t, want, render(t, dialect.NewPostgres(), previous, next))
}

func TestPostgres_columnTypeChange_castMatrix(t *testing.T) {
	t.Parallel()

	d := dialect.NewPostgres()

	tests := []struct {
		name string
		from schema.ColumnTypeFamily
		to   schema.ColumnTypeFamily
		want diff.TypeChange
	}{
		{name: "unchanged int", from: schema.FamilyInt, to: schema.FamilyInt, want: diff.TypeChangeNone},
		{name: "int widens to bigint", from: schema.FamilyInt, to: schema.FamilyBigInt, want: diff.SafeCast},
		{name: "int to text", from: schema.FamilyInt, to: schema.FamilyString, want: diff.SafeCast},
		{name: "boolean to int", from: schema.FamilyBoolean, to: schema.FamilyInt, want: diff.SafeCast},
		{name: "json to text", from: schema.FamilyJSON, to: schema.FamilyString, want: diff.SafeCast},
		{name: "bigint narrows to int", from: schema.FamilyBigInt, to: schema.FamilyInt, want: diff.RiskyCast},
		{name: "text to int can reject rows", from: schema.FamilyString, to: schema.FamilyInt, want: diff.RiskyCast},
		{name: "float to decimal", from: schema.FamilyFloat, to: schema.FamilyDecimal, want: diff.RiskyCast},
		{name: "uuid to json has no cast", from: schema.FamilyUUID, to: schema.FamilyJSON, want: diff.NotCastable},
		{name: "datetime to int has no cast", from: schema.FamilyDateTime, to: schema.FamilyInt, want: diff.NotCastable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, d.ColumnTypeChange(familyColumn(t, tt.from), familyColumn(t, tt.to)))
		})
	}
}

func TestPostgres_splitStatements_keepsLiteralsAndComments(t *testing.T) {
	t.Parallel()

	script := `-- CreateTable
CREATE TABLE "logs" (
    "message" TEXT NOT NULL DEFAULT 'a;b'
);

-- CreateIndex
CREATE INDEX "logs_message_idx" ON "logs"("message");
`

	statements, err := dialect.NewPostgres().SplitStatements(script)
	require.NoError(t, err)

	require.Len(t, statements, 2)
	assert.True(t, strings.HasPrefix(statements[0], "-- CreateTable"))
	assert.Contains(t, statements[0], "DEFAULT 'a;b'")
	assert.Equal(t, "-- CreateIndex\nCREATE INDEX \"logs_message_idx\" ON \"logs\"(\"message\")", statements[1])
}

func TestPostgres_splitStatements_emptyScript(t *testing.T) {
	t.Parallel()

	statements, err := dialect.NewPostgres().SplitStatements("  \n\t")
	require.NoError(t, err)
	assert.Empty(t, statements)
}

func TestPostgres_splitStatements_malformedSQL(t *testing.T) {
	t.Parallel()

	_, err := dialect.NewPostgres().SplitStatements("CREATE TABLE (")
	assert.Error(t, err)
}
