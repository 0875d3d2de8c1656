package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/executor"
	"github.com/aqasim81/database-schema-engine/internal/migration"
	"github.com/aqasim81/database-schema-engine/internal/schema"
	"github.com/aqasim81/database-schema-engine/internal/tracker"
)

// lockProbe stands in for the advisory lock and counts its lifecycle.
type lockProbe struct {
	acquired int
	released int
	err      error
}

func (p *lockProbe) acquire(context.Context) (lockReleaser, error) {
	if p.err != nil {
		return nil, p.err
	}

	p.acquired++

	return probeReleaser{probe: p}, nil
}

type probeReleaser struct{ probe *lockProbe }

func (r probeReleaser) Release(context.Context) error {
	r.probe.released++

	return nil
}

// mockLedger implements Ledger in memory.
type mockLedger struct {
	hasTable  bool
	records   []tracker.Record
	listErr   error
	ensureErr error

	ensured    bool
	rolledBack []string
	marked     map[string]string
	baseline   []tracker.BaselineEntry
}

func (m *mockLedger) EnsureTable(context.Context) error {
	m.ensured = true

	return m.ensureErr
}

func (m *mockLedger) HasTable(context.Context) (bool, error) {
	return m.hasTable, nil
}

func (m *mockLedger) ListRecords(context.Context) ([]tracker.Record, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}

	return m.records, nil
}

func (m *mockLedger) MarkRolledBackByName(_ context.Context, name string) error {
	m.rolledBack = append(m.rolledBack, name)

	return nil
}

func (m *mockLedger) MarkApplied(_ context.Context, name, checksum string) error {
	if m.marked == nil {
		m.marked = make(map[string]string)
	}

	m.marked[name] = checksum

	return nil
}

func (m *mockLedger) BaselineInitialize(_ context.Context, entries []tracker.BaselineEntry) error {
	m.baseline = entries

	return nil
}

// mockApplier records the names it was asked to run.
type mockApplier struct {
	result *executor.Result
	err    error
	got    []string
}

func (m *mockApplier) Apply(_ context.Context, migrations []migration.Migration) (*executor.Result, error) {
	for _, mig := range migrations {
		m.got = append(m.got, mig.Name)
	}

	if m.err != nil {
		return nil, m.err
	}

	if m.result != nil {
		return m.result, nil
	}

	return &executor.Result{}, nil
}

type fakeSource struct {
	history *schema.Schema
	live    *schema.Schema

	historyGot [][]string
}

func (f *fakeSource) FromHistory(_ context.Context, migrations []migration.Migration) (*schema.Schema, error) {
	names := make([]string, 0, len(migrations))
	for _, m := range migrations {
		names = append(names, m.Name)
	}

	f.historyGot = append(f.historyGot, names)

	return f.history, nil
}

func (f *fakeSource) FromLive(context.Context) (*schema.Schema, error) {
	return f.live, nil
}

type fakeInspector struct {
	rows map[string]int64
}

func (f *fakeInspector) RowCount(_ context.Context, namespace, table string) (int64, error) {
	return f.rows[namespace+"."+table], nil
}

func (f *fakeInspector) NonNullCount(_ context.Context, namespace, table, _ string) (int64, error) {
	return f.rows[namespace+"."+table], nil
}

func buildSchema(t *testing.T, build func(s *schema.Schema, ns schema.NamespaceID)) *schema.Schema {
	t.Helper()

	s := schema.New()
	build(s, s.AddNamespace("public"))
	require.NoError(t, s.Validate())

	return s
}

func emptySchema(t *testing.T) *schema.Schema {
	return buildSchema(t, func(*schema.Schema, schema.NamespaceID) {})
}

func usersSchema(t *testing.T) *schema.Schema {
	return buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		s.AddColumn(users, schema.Column{Name: "id", Type: schema.ColumnType{Family: schema.FamilyInt, Arity: schema.Required}})
		s.AddColumn(users, schema.Column{Name: "name", Type: schema.ColumnType{Family: schema.FamilyString, Arity: schema.Nullable}})
	})
}

func usersWithPostsSchema(t *testing.T) *schema.Schema {
	return buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		s.AddColumn(users, schema.Column{Name: "id", Type: schema.ColumnType{Family: schema.FamilyInt, Arity: schema.Required}})
		s.AddColumn(users, schema.Column{Name: "name", Type: schema.ColumnType{Family: schema.FamilyString, Arity: schema.Nullable}})
		posts := s.AddTable(ns, "posts")
		s.AddColumn(posts, schema.Column{Name: "id", Type: schema.ColumnType{Family: schema.FamilyInt, Arity: schema.Required}})
	})
}

func usersWithRequiredAgeSchema(t *testing.T) *schema.Schema {
	return buildSchema(t, func(s *schema.Schema, ns schema.NamespaceID) {
		users := s.AddTable(ns, "users")
		s.AddColumn(users, schema.Column{Name: "id", Type: schema.ColumnType{Family: schema.FamilyInt, Arity: schema.Required}})
		s.AddColumn(users, schema.Column{Name: "name", Type: schema.ColumnType{Family: schema.FamilyString, Arity: schema.Nullable}})
		s.AddColumn(users, schema.Column{Name: "age", Type: schema.ColumnType{Family: schema.FamilyInt, Arity: schema.Required}})
	})
}

// newTestEngine wires an engine whose ledger, applier and lock are all test
// doubles. Further seams are set on the returned Engine directly.
func newTestEngine(dir string, ledger *mockLedger, applier *mockApplier, opts ...Option) (*Engine, *lockProbe) {
	probe := &lockProbe{}

	opts = append([]Option{WithLedger(ledger), WithApplier(applier)}, opts...)
	e := New(nil, dialect.NewPostgres(), dir, opts...)
	e.acquireLock = probe.acquire

	return e, probe
}

// writeMigration persists a migration directory and records it in the
// lockfile, the way CreateMigration does.
func writeMigration(t *testing.T, dir, name, script string) migration.Migration {
	t.Helper()

	m, err := migration.Write(dir, name, script)
	require.NoError(t, err)

	lf, err := migration.ReadLockfile(dir)
	require.NoError(t, err)

	lf.Record("postgres", m)
	require.NoError(t, migration.WriteLockfile(dir, lf))

	return m
}

func succeededRecord(name, checksum string) tracker.Record {
	finished := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	return tracker.Record{
		ID:            "rec-" + name,
		MigrationName: name,
		Checksum:      checksum,
		StartedAt:     finished.Add(-time.Second),
		FinishedAt:    &finished,
	}
}

func failedRecord(name, checksum string) tracker.Record {
	return tracker.Record{
		ID:            "rec-" + name,
		MigrationName: name,
		Checksum:      checksum,
		StartedAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Logs:          "statement 0 failed",
	}
}

func rolledBackRecord(name, checksum string) tracker.Record {
	r := failedRecord(name, checksum)
	rolledBack := r.StartedAt.Add(time.Minute)
	r.RolledBackAt = &rolledBack

	return r
}

func localMigration(name, checksum string) migration.Migration {
	return migration.Migration{Name: name, Checksum: checksum}
}

func TestNew_defaults(t *testing.T) {
	t.Parallel()

	e := New(nil, dialect.NewPostgres(), "migrations")

	assert.Equal(t, "migrations", e.migrationsDir)
	assert.NotNil(t, e.ledger)
	assert.NotNil(t, e.applier)
	assert.NotNil(t, e.acquireLock)
	assert.NotNil(t, e.runStatements)
	assert.NotNil(t, e.now)
	assert.Nil(t, e.source)
	assert.Nil(t, e.inspector)
}

func TestNew_optionsReplaceCollaborators(t *testing.T) {
	t.Parallel()

	ledger := &mockLedger{}
	applier := &mockApplier{}
	source := &fakeSource{}
	inspector := &fakeInspector{}

	e := New(nil, dialect.NewPostgres(), "migrations",
		WithLedger(ledger),
		WithApplier(applier),
		WithSchemaSource(source),
		WithInspector(inspector),
	)

	assert.Same(t, ledger, e.ledger)
	assert.Same(t, applier, e.applier)
	assert.Same(t, source, e.source)
	assert.Same(t, inspector, e.inspector)
}

func TestLoadMigrations_missingDirectoryIsEmptyHistory(t *testing.T) {
	t.Parallel()

	e := New(nil, dialect.NewPostgres(), filepath.Join(t.TempDir(), "absent"))

	migrations, err := e.loadMigrations()
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestLoadMigrations_providerMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, migration.WriteLockfile(dir, migration.Lockfile{Provider: "mysql"}))

	e := New(nil, dialect.NewPostgres(), dir)

	_, err := e.loadMigrations()
	require.ErrorIs(t, err, migration.ErrProviderMismatch)
}

func TestLoadMigrations_returnsHistoryOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	second := writeMigration(t, dir, "20240102000000_second", "SELECT 2;")
	first := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")

	e := New(nil, dialect.NewPostgres(), dir)

	migrations, err := e.loadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, first.Name, migrations[0].Name)
	assert.Equal(t, second.Name, migrations[1].Name)
}

func TestApply_appliesPendingMigrations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeMigration(t, dir, "20240101000000_first", `CREATE TABLE "users" (id INT);`)
	second := writeMigration(t, dir, "20240102000000_second", `CREATE TABLE "posts" (id INT);`)

	ledger := &mockLedger{}
	applier := &mockApplier{result: &executor.Result{Applied: []string{first.Name, second.Name}}}
	e, probe := newTestEngine(dir, ledger, applier)

	res, err := e.Apply(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{first.Name, second.Name}, res.AppliedMigrationNames)
	assert.Equal(t, []string{first.Name, second.Name}, applier.got)
	assert.Equal(t, 1, probe.acquired)
	assert.Equal(t, 1, probe.released)
}

func TestApply_lockFailureStopsRun(t *testing.T) {
	t.Parallel()

	applier := &mockApplier{}
	e, probe := newTestEngine(t.TempDir(), &mockLedger{}, applier)
	probe.err = errors.New("lock busy")

	_, err := e.Apply(context.Background())
	require.EqualError(t, err, "lock busy")
	assert.Empty(t, applier.got)
}

func TestApply_failedMigrationsBlock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")

	ledger := &mockLedger{hasTable: true, records: []tracker.Record{failedRecord(m.Name, m.Checksum)}}
	applier := &mockApplier{}
	e, probe := newTestEngine(dir, ledger, applier)

	_, err := e.Apply(context.Background())
	require.ErrorIs(t, err, ErrHistoryInconsistent)
	assert.Contains(t, err.Error(), m.Name)
	assert.Contains(t, err.Error(), "failed")
	assert.Empty(t, applier.got)
	assert.Equal(t, 1, probe.released)
}

func TestApply_editedMigrationsBlock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")

	ledger := &mockLedger{hasTable: true, records: []tracker.Record{succeededRecord(m.Name, "another checksum")}}
	applier := &mockApplier{}
	e, _ := newTestEngine(dir, ledger, applier)

	_, err := e.Apply(context.Background())
	require.ErrorIs(t, err, ErrHistoryInconsistent)
	assert.Contains(t, err.Error(), "edited")
	assert.Contains(t, err.Error(), m.Name)
	assert.Empty(t, applier.got)
}

func TestApply_missingLocalMigrationsBlock(t *testing.T) {
	t.Parallel()

	ledger := &mockLedger{hasTable: true, records: []tracker.Record{succeededRecord("20240101000000_ghost", "abc")}}
	applier := &mockApplier{}
	e, _ := newTestEngine(t.TempDir(), ledger, applier)

	_, err := e.Apply(context.Background())
	require.ErrorIs(t, err, ErrHistoryInconsistent)
	assert.Contains(t, err.Error(), "ghost")
	assert.Empty(t, applier.got)
}

func TestApply_divergedHistoriesBlock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")
	writeMigration(t, dir, "20240103000000_third", "SELECT 3;")

	ledger := &mockLedger{hasTable: true, records: []tracker.Record{
		succeededRecord(first.Name, first.Checksum),
		succeededRecord("20240102000000_ghost", "abc"),
	}}
	applier := &mockApplier{}
	e, _ := newTestEngine(dir, ledger, applier)

	_, err := e.Apply(context.Background())
	require.ErrorIs(t, err, ErrHistoryInconsistent)
	assert.Contains(t, err.Error(), "diverge")
	assert.Contains(t, err.Error(), first.Name)
	assert.Empty(t, applier.got)
}

func TestApply_driftDetected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")
	writeMigration(t, dir, "20240102000000_second", "SELECT 2;")

	ledger := &mockLedger{hasTable: true, records: []tracker.Record{succeededRecord(first.Name, first.Checksum)}}
	applier := &mockApplier{}
	source := &fakeSource{history: usersSchema(t), live: usersWithPostsSchema(t)}
	e, probe := newTestEngine(dir, ledger, applier, WithSchemaSource(source))

	_, err := e.Apply(context.Background())
	require.ErrorIs(t, err, ErrDriftDetected)
	assert.Contains(t, err.Error(), "posts")
	assert.Empty(t, applier.got)
	assert.Equal(t, 1, probe.released)

	// Only the applied prefix feeds the expected-schema replay.
	require.Len(t, source.historyGot, 1)
	assert.Equal(t, []string{first.Name}, source.historyGot[0])
}

func TestApply_liveMatchingHistoryRuns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")
	second := writeMigration(t, dir, "20240102000000_second", "SELECT 2;")

	ledger := &mockLedger{hasTable: true, records: []tracker.Record{succeededRecord(first.Name, first.Checksum)}}
	applier := &mockApplier{result: &executor.Result{Applied: []string{second.Name}}}
	source := &fakeSource{history: usersSchema(t), live: usersSchema(t)}
	e, _ := newTestEngine(dir, ledger, applier, WithSchemaSource(source))

	res, err := e.Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{second.Name}, res.AppliedMigrationNames)
	assert.Equal(t, []string{first.Name, second.Name}, applier.got)
}

func TestApply_withoutSourceSkipsDriftCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")

	ledger := &mockLedger{}
	applier := &mockApplier{result: &executor.Result{Applied: []string{m.Name}}}
	e, _ := newTestEngine(dir, ledger, applier)

	res, err := e.Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{m.Name}, res.AppliedMigrationNames)
}

func TestPush_inSyncDoesNothing(t *testing.T) {
	t.Parallel()

	source := &fakeSource{live: usersSchema(t)}
	e, probe := newTestEngine(t.TempDir(), &mockLedger{}, &mockApplier{}, WithSchemaSource(source))

	var executed []string

	e.runStatements = func(_ context.Context, statements []string) error {
		executed = append(executed, statements...)

		return nil
	}

	res, err := e.Push(context.Background(), usersSchema(t), false)
	require.NoError(t, err)
	assert.Zero(t, res.ExecutedSteps)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, executed)
	assert.Zero(t, probe.acquired)
}

func TestPush_executesRenderedStatements(t *testing.T) {
	t.Parallel()

	source := &fakeSource{live: emptySchema(t)}
	e, probe := newTestEngine(t.TempDir(), &mockLedger{}, &mockApplier{}, WithSchemaSource(source))

	var executed []string

	e.runStatements = func(_ context.Context, statements []string) error {
		executed = append(executed, statements...)

		return nil
	}

	res, err := e.Push(context.Background(), usersSchema(t), false)
	require.NoError(t, err)

	require.NotEmpty(t, executed)
	assert.Contains(t, executed[0], `CREATE TABLE "users"`)
	assert.Equal(t, uint32(len(executed)), res.ExecutedSteps)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 1, probe.acquired)
	assert.Equal(t, 1, probe.released)
}

func TestPush_destructiveChangesRejected(t *testing.T) {
	t.Parallel()

	source := &fakeSource{live: usersSchema(t)}
	e, probe := newTestEngine(t.TempDir(), &mockLedger{}, &mockApplier{}, WithSchemaSource(source))

	var executed []string

	e.runStatements = func(_ context.Context, statements []string) error {
		executed = append(executed, statements...)

		return nil
	}

	_, err := e.Push(context.Background(), emptySchema(t), false)
	require.ErrorIs(t, err, ErrDestructiveChangesRejected)
	assert.Contains(t, err.Error(), "users")
	assert.Empty(t, executed)
	assert.Zero(t, probe.acquired)
}

func TestPush_forceRunsDespiteWarnings(t *testing.T) {
	t.Parallel()

	source := &fakeSource{live: usersSchema(t)}
	e, _ := newTestEngine(t.TempDir(), &mockLedger{}, &mockApplier{}, WithSchemaSource(source))

	var executed []string

	e.runStatements = func(_ context.Context, statements []string) error {
		executed = append(executed, statements...)

		return nil
	}

	res, err := e.Push(context.Background(), emptySchema(t), true)
	require.NoError(t, err)

	require.NotEmpty(t, executed)
	assert.Contains(t, executed[0], "DROP TABLE")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "users")
}

func TestPush_unexecutableBlocksEvenWithForce(t *testing.T) {
	t.Parallel()

	source := &fakeSource{live: usersSchema(t)}
	inspector := &fakeInspector{rows: map[string]int64{"public.users": 2}}
	e, probe := newTestEngine(t.TempDir(), &mockLedger{}, &mockApplier{},
		WithSchemaSource(source), WithInspector(inspector))

	_, err := e.Push(context.Background(), usersWithRequiredAgeSchema(t), true)
	require.ErrorIs(t, err, ErrDestructiveChangesRejected)
	assert.Contains(t, err.Error(), "age")
	assert.Zero(t, probe.acquired)
}

func TestDiagnose_missingLedgerTable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")

	e, _ := newTestEngine(dir, &mockLedger{}, &mockApplier{})

	res, err := e.DiagnoseMigrationHistory(context.Background())
	require.NoError(t, err)

	assert.False(t, res.HasMigrationsTable)
	behind, ok := res.History.(DatabaseIsBehind)
	require.True(t, ok, "history is %T", res.History)
	assert.Equal(t, []string{m.Name}, behind.UnappliedMigrationNames)
}

func TestDiagnose_inSync(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")

	ledger := &mockLedger{hasTable: true, records: []tracker.Record{succeededRecord(m.Name, m.Checksum)}}
	e, _ := newTestEngine(dir, ledger, &mockApplier{})

	res, err := e.DiagnoseMigrationHistory(context.Background())
	require.NoError(t, err)

	assert.True(t, res.HasMigrationsTable)
	assert.Nil(t, res.History)
	assert.Empty(t, res.FailedMigrationNames)
	assert.Empty(t, res.EditedMigrationNames)
}

func TestDiagnose_reportsFailedAndEdited(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")
	second := writeMigration(t, dir, "20240102000000_second", "SELECT 2;")

	ledger := &mockLedger{hasTable: true, records: []tracker.Record{
		succeededRecord(first.Name, "another checksum"),
		failedRecord(second.Name, second.Checksum),
	}}
	e, _ := newTestEngine(dir, ledger, &mockApplier{})

	res, err := e.DiagnoseMigrationHistory(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{second.Name}, res.FailedMigrationNames)
	assert.Equal(t, []string{first.Name}, res.EditedMigrationNames)
	assert.Nil(t, res.History)
}

func TestMarkMigrationRolledBack_delegates(t *testing.T) {
	t.Parallel()

	ledger := &mockLedger{}
	e, _ := newTestEngine(t.TempDir(), ledger, &mockApplier{})

	require.NoError(t, e.MarkMigrationRolledBack(context.Background(), "20240101000000_first"))
	assert.Equal(t, []string{"20240101000000_first"}, ledger.rolledBack)
}

func TestMarkMigrationApplied_unknownMigration(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t.TempDir(), &mockLedger{}, &mockApplier{})

	err := e.MarkMigrationApplied(context.Background(), "20240101000000_ghost")
	require.ErrorIs(t, err, ErrUnknownMigration)
	assert.Contains(t, err.Error(), "ghost")
}

func TestMarkMigrationApplied_recordsChecksum(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")

	ledger := &mockLedger{}
	e, _ := newTestEngine(dir, ledger, &mockApplier{})

	require.NoError(t, e.MarkMigrationApplied(context.Background(), m.Name))
	assert.True(t, ledger.ensured)
	assert.Equal(t, map[string]string{m.Name: m.Checksum}, ledger.marked)
}

func TestBaselineInitialize_adoptsLocalHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeMigration(t, dir, "20240101000000_first", "SELECT 1;")
	second := writeMigration(t, dir, "20240102000000_second", "SELECT 2;")

	ledger := &mockLedger{}
	e, _ := newTestEngine(dir, ledger, &mockApplier{})

	require.NoError(t, e.BaselineInitialize(context.Background()))
	assert.Equal(t, []tracker.BaselineEntry{
		{Name: first.Name, Checksum: first.Checksum},
		{Name: second.Name, Checksum: second.Checksum},
	}, ledger.baseline)
}

func TestCompareHistories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		migrations []migration.Migration
		records    []tracker.Record
		history    HistoryDiagnostic
		edited     []string
	}{
		{
			name: "in sync",
			migrations: []migration.Migration{
				localMigration("20240101000000_init", "c1"),
				localMigration("20240102000000_add_users", "c2"),
			},
			records: []tracker.Record{
				succeededRecord("20240101000000_init", "c1"),
				succeededRecord("20240102000000_add_users", "c2"),
			},
			history: nil,
		},
		{
			name: "database behind",
			migrations: []migration.Migration{
				localMigration("20240101000000_init", "c1"),
				localMigration("20240102000000_add_users", "c2"),
			},
			records: []tracker.Record{
				succeededRecord("20240101000000_init", "c1"),
			},
			history: DatabaseIsBehind{UnappliedMigrationNames: []string{"20240102000000_add_users"}},
		},
		{
			name: "migrations directory behind",
			migrations: []migration.Migration{
				localMigration("20240101000000_init", "c1"),
			},
			records: []tracker.Record{
				succeededRecord("20240101000000_init", "c1"),
				succeededRecord("20240102000000_add_users", "c2"),
			},
			history: MigrationsDirectoryIsBehind{UnpersistedMigrationNames: []string{"20240102000000_add_users"}},
		},
		{
			name: "histories diverge",
			migrations: []migration.Migration{
				localMigration("20240101000000_init", "c1"),
				localMigration("20240103000000_add_posts", "c3"),
			},
			records: []tracker.Record{
				succeededRecord("20240101000000_init", "c1"),
				succeededRecord("20240102000000_add_users", "c2"),
			},
			history: HistoriesDiverge{
				LastCommonMigrationName:   "20240101000000_init",
				UnappliedMigrationNames:   []string{"20240103000000_add_posts"},
				UnpersistedMigrationNames: []string{"20240102000000_add_users"},
			},
		},
		{
			name: "rolled back records are out of the history",
			migrations: []migration.Migration{
				localMigration("20240101000000_init", "c1"),
			},
			records: []tracker.Record{
				rolledBackRecord("20240101000000_init", "c1"),
			},
			history: DatabaseIsBehind{UnappliedMigrationNames: []string{"20240101000000_init"}},
		},
		{
			name: "edited checksum inside the prefix",
			migrations: []migration.Migration{
				localMigration("20240101000000_init", "c1"),
			},
			records: []tracker.Record{
				succeededRecord("20240101000000_init", "something else"),
			},
			history: nil,
			edited:  []string{"20240101000000_init"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			history, edited := compareHistories(tt.migrations, tt.records)
			assert.Equal(t, tt.history, history)
			assert.Equal(t, tt.edited, edited)
		})
	}
}
