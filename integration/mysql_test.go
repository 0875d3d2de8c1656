package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/schema"
)

func TestMySQLInspector_countsRowsAndValues(t *testing.T) {
	t.Parallel()

	db := SetupMySQL(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		"CREATE TABLE users (id INTEGER PRIMARY KEY AUTO_INCREMENT, email VARCHAR(191) NULL)")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		"INSERT INTO users (email) VALUES ('a@example.com'), (NULL), ('c@example.com')")
	require.NoError(t, err)

	insp := dialect.NewMySQLInspector(db)

	rows, err := insp.RowCount(ctx, "", "users")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)

	rows, err = insp.RowCount(ctx, testDB, "users")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)

	values, err := insp.NonNullCount(ctx, "", "users", "email")
	require.NoError(t, err)
	assert.Equal(t, int64(2), values)

	_, err = insp.RowCount(ctx, "", "missing")
	require.Error(t, err)
}

func TestMySQLDialect_renderedScriptExecutes(t *testing.T) {
	t.Parallel()

	db := SetupMySQL(t)
	ctx := context.Background()
	d := dialect.NewMySQL()

	empty := buildSnapshot(t, func(s *schema.Schema, ns schema.NamespaceID) {})
	target := usersSnapshot(t)

	applyRendered(t, d, db, empty, target)

	_, err := db.ExecContext(ctx, "INSERT INTO users (email) VALUES ('a@example.com'), (NULL)")
	require.NoError(t, err)

	insp := dialect.NewMySQLInspector(db)

	rows, err := insp.RowCount(ctx, "", "users")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	// The follow-up diff adds a nullable column to the populated table.
	applyRendered(t, d, db, target, usersWithBioSnapshot(t))

	_, err = db.ExecContext(ctx, "INSERT INTO users (email, bio) VALUES ('b@example.com', 'hi')")
	require.NoError(t, err)

	values, err := insp.NonNullCount(ctx, "", "users", "bio")
	require.NoError(t, err)
	assert.Equal(t, int64(1), values)
}
