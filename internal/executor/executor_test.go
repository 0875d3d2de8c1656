package executor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/database-schema-engine/internal/executor"
)

func TestNew_defaultOptions(t *testing.T) {
	t.Parallel()

	exec := executor.New(nil, nil, nil)

	require.NotNil(t, exec)
}

func TestNew_withOptions(t *testing.T) {
	t.Parallel()

	exec := executor.New(nil, nil, nil,
		executor.WithLockTimeout(10*time.Second),
		executor.WithStatementTimeout(30*time.Second),
		executor.WithDryRun(true),
		executor.WithProgress(executor.Progress{
			MigrationApplied: func(string, time.Duration) {},
		}),
	)

	require.NotNil(t, exec)
}

func TestErrors_sentinel(t *testing.T) {
	t.Parallel()

	t.Run("ErrExecutionFailed", func(t *testing.T) {
		t.Parallel()
		assert.EqualError(t, executor.ErrExecutionFailed, "migration execution failed")
	})

	t.Run("ErrMigrationPreviouslyFailed", func(t *testing.T) {
		t.Parallel()
		assert.EqualError(t, executor.ErrMigrationPreviouslyFailed,
			"migration previously failed and was not rolled back")
	})
}
