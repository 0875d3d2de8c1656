package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/database-schema-engine/internal/database"
)

func TestAdvisoryLock_lifecycle(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	handle, err := database.TryAcquireLock(ctx, pool)
	require.NoError(t, err)
	require.NotNil(t, handle)

	// Releasing twice must be as safe as releasing once.
	require.NoError(t, handle.Release(ctx))
	require.NoError(t, handle.Release(ctx))

	// A released lock is free for the next taker.
	handle, err = database.TryAcquireLock(ctx, pool)
	require.NoError(t, err)
	require.NotNil(t, handle)
	require.NoError(t, handle.Release(ctx))
}

func TestAdvisoryLock_contention_returnsLockNotAcquired(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	held, err := database.TryAcquireLock(ctx, pool)
	require.NoError(t, err)
	require.NotNil(t, held)

	t.Cleanup(func() {
		_ = held.Release(context.Background())
	})

	blocked, err := database.TryAcquireLock(ctx, pool)
	assert.Nil(t, blocked)
	require.ErrorIs(t, err, database.ErrLockNotAcquired)
}

// The engine contends on its own lock id only. A held engine lock must not
// interfere with advisory locks other tools take on different keys.
func TestAdvisoryLock_otherKeysStayFree(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	held, err := database.TryAcquireLock(ctx, pool)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = held.Release(context.Background())
	})

	// Session locks are per-connection, so take and release on the same one.
	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	var acquired bool
	err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", database.EngineLockID+1).Scan(&acquired)
	require.NoError(t, err)
	assert.True(t, acquired)

	_, err = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", database.EngineLockID+1)
	require.NoError(t, err)
}

func TestLockHandle_Release_nilHandle_noError(t *testing.T) {
	t.Parallel()

	var handle *database.LockHandle

	err := handle.Release(context.Background())
	require.NoError(t, err)
}
