package cli

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/database-schema-engine/internal/analyzer"
	"github.com/aqasim81/database-schema-engine/internal/config"
	"github.com/aqasim81/database-schema-engine/internal/migration"
)

// setupTestConfig sets AppConfig for the duration of the test and restores it on cleanup.
func setupTestConfig(t *testing.T, migrationsDir string) {
	t.Helper()

	old := AppConfig
	AppConfig = &config.Config{
		Provider:        config.DefaultProvider,
		MigrationsDir:   migrationsDir,
		TargetPGVersion: config.DefaultTargetPGVersion,
	}

	t.Cleanup(func() { AppConfig = old })
}

// writeMigrations creates a migrations directory holding the given scripts,
// one migration each, named in history order.
func writeMigrations(t *testing.T, scripts ...string) string {
	t.Helper()

	dir := t.TempDir()

	for i, script := range scripts {
		name := fmt.Sprintf("202401011200%02d_m%d", i, i)

		_, err := migration.Write(dir, name, script)
		require.NoError(t, err)
	}

	return dir
}

// newAnalyzeCmd creates a fresh cobra.Command wired to runAnalyze with a captured output buffer.
func newAnalyzeCmd(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{
		Use:  "analyze [migrations-dir]",
		RunE: runAnalyze,
	}
	cmd.Flags().String("format", "", "output format (text, json)")
	cmd.Flags().Bool("fail-on-critical", false, "exit non-zero when critical findings exist")
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	return cmd, buf
}

func TestCountMigrationsWithFindings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		results  []analyzer.AnalysisResult
		expected int
	}{
		{
			name:     "empty results",
			results:  nil,
			expected: 0,
		},
		{
			name: "no findings",
			results: []analyzer.AnalysisResult{
				{MigrationName: "20240101120000_a", Findings: nil},
			},
			expected: 0,
		},
		{
			name: "one with findings",
			results: []analyzer.AnalysisResult{
				{MigrationName: "20240101120000_a", Findings: nil},
				{MigrationName: "20240101120001_b", Findings: []analyzer.Finding{{Rule: "test"}}},
			},
			expected: 1,
		},
		{
			name: "all with findings",
			results: []analyzer.AnalysisResult{
				{MigrationName: "20240101120000_a", Findings: []analyzer.Finding{{Rule: "a"}}},
				{MigrationName: "20240101120001_b", Findings: []analyzer.Finding{{Rule: "b"}}},
			},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, countMigrationsWithFindings(tt.results))
		})
	}
}

func TestPrintAnalysisText_noFindings_printsNoHazards(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)

	results := []analyzer.AnalysisResult{
		{MigrationName: "20240101120000_safe", Findings: nil},
	}

	hasCritical := printAnalysisText(buf, results)
	assert.False(t, hasCritical)
	assert.Contains(t, buf.String(), "No hazardous operations detected.")
}

func TestPrintAnalysisText_withCriticalFindings_formatsOutput(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)

	results := []analyzer.AnalysisResult{
		{
			MigrationName: "20240101120000_dangerous",
			MaxSeverity:   analyzer.Critical,
			Findings: []analyzer.Finding{
				{
					Rule:       "drop-table",
					Severity:   analyzer.Critical,
					Table:      "users",
					Statement:  "DROP TABLE users",
					Message:    "DROP TABLE permanently deletes the table",
					Suggestion: "Take a backup first",
				},
			},
		},
	}

	hasCritical := printAnalysisText(buf, results)
	assert.True(t, hasCritical)

	output := buf.String()
	assert.Contains(t, output, "=== 20240101120000_dangerous ===")
	assert.Contains(t, output, "[CRITICAL]")
	assert.Contains(t, output, "Table: users")
	assert.Contains(t, output, "Rule:  drop-table")
	assert.Contains(t, output, "SQL:   DROP TABLE users")
	assert.Contains(t, output, "Fix:   Take a backup first")
	assert.Contains(t, output, "Found 1 finding(s) across 1 migration(s).")
}

func TestPrintAnalysisText_warningOnly_returnsFalse(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)

	results := []analyzer.AnalysisResult{
		{
			MigrationName: "20240101120000_mild",
			MaxSeverity:   analyzer.Warning,
			Findings: []analyzer.Finding{
				{Rule: "create-index-not-concurrent", Severity: analyzer.Warning, Message: "blocks writes"},
			},
		},
	}

	hasCritical := printAnalysisText(buf, results)
	assert.False(t, hasCritical)
	assert.Contains(t, buf.String(), "Found 1 finding(s)")
}

func TestPrintAnalysisText_noStatement_skipsSQL(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)

	results := []analyzer.AnalysisResult{
		{
			MigrationName: "20240101120000_test",
			MaxSeverity:   analyzer.Warning,
			Findings: []analyzer.Finding{
				{Rule: "test-rule", Severity: analyzer.Warning, Message: "test", Statement: ""},
			},
		},
	}

	printAnalysisText(buf, results)
	assert.NotContains(t, buf.String(), "SQL:")
}

func TestPrintAnalysisJSON_rendersSeverityLabels(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)

	results := []analyzer.AnalysisResult{
		{
			MigrationName: "20240101120000_dangerous",
			MaxSeverity:   analyzer.Critical,
			Findings: []analyzer.Finding{
				{Rule: "drop-table", Severity: analyzer.Critical, Table: "users", Message: "gone"},
			},
		},
	}

	hasCritical, err := printAnalysisJSON(buf, results)
	require.NoError(t, err)
	assert.True(t, hasCritical)

	output := buf.String()
	assert.Contains(t, output, `"migration": "20240101120000_dangerous"`)
	assert.Contains(t, output, `"rule": "drop-table"`)
	assert.Contains(t, output, `"severity": "CRITICAL"`)
	assert.Contains(t, output, `"max_severity": "CRITICAL"`)
}

func TestRunAnalyze_withFindings_producesOutput(t *testing.T) { // not parallel: mutates global AppConfig
	dir := writeMigrations(t,
		"CREATE TABLE users (id bigint PRIMARY KEY);",
		"CREATE INDEX idx_users_id ON users (id);",
	)
	setupTestConfig(t, dir)

	cmd, buf := newAnalyzeCmd(t)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "finding(s)")
}

func TestRunAnalyze_emptyDir_printsNoMigrations(t *testing.T) { // not parallel: mutates global AppConfig
	dir := t.TempDir()
	setupTestConfig(t, dir)

	cmd, buf := newAnalyzeCmd(t)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No migration files found.")
}

func TestRunAnalyze_failOnCritical_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	dir := writeMigrations(t, "DROP TABLE users;")
	setupTestConfig(t, dir)

	cmd, _ := newAnalyzeCmd(t)
	cmd.SetArgs([]string{"--fail-on-critical", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, errCriticalSeverityFindings)
}

func TestRunAnalyze_jsonFormat_rendersJSON(t *testing.T) { // not parallel: mutates global AppConfig
	dir := writeMigrations(t, "DROP TABLE users;")
	setupTestConfig(t, dir)

	cmd, buf := newAnalyzeCmd(t)
	cmd.SetArgs([]string{"--format", "json", dir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"rule": "drop-table"`)
}

func TestRunAnalyze_unknownFormat_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	dir := writeMigrations(t, "CREATE TABLE users (id bigint);")
	setupTestConfig(t, dir)

	cmd, _ := newAnalyzeCmd(t)
	cmd.SetArgs([]string{"--format", "xml", dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnknownFormat)
}

func TestRunAnalyze_usesConfigDir_whenNoArgs(t *testing.T) { // not parallel: mutates global AppConfig
	dir := writeMigrations(t, "CREATE INDEX idx_users_id ON users (id);")
	setupTestConfig(t, dir)

	cmd, buf := newAnalyzeCmd(t)

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "finding(s)")
}
