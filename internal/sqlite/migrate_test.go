package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organigrama/internal/prefs"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

const (
	legacyPerson     = "0b8f6f4e-2c1d-4e5f-8a9b-0c1d2e3f4a5b"
	legacyDepartment = "1c9a7b5d-3e2f-4a6b-9c8d-1e2f3a4b5c6d"
)

// seedVersion1 writes records in the original, pre-order layout.
func seedVersion1(t *testing.T, dir string) {
	t.Helper()
	ctx := context.Background()
	b, err := Open(ctx, testConfig(dir), WithSchemaVersion(1))
	require.NoError(t, err)
	defer b.Close()

	v, err := b.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	ts := "2023-01-01T00:00:00.000000000Z"
	_, err = b.db.ExecContext(ctx,
		"INSERT INTO persons (id, name, role, created_at, updated_at) VALUES (?, 'Ana', 'CEO', ?, ?)",
		legacyPerson, ts, ts)
	require.NoError(t, err)
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO departments (id, name, pos_x, pos_y, width, height, created_at, updated_at)
         VALUES (?, 'Dirección', 10, 20, 300, 400, ?, ?)`,
		legacyDepartment, ts, ts)
	require.NoError(t, err)
	for _, id := range []string{"a1", "a2", "a3"} {
		_, err = b.db.ExecContext(ctx,
			"INSERT INTO assignments (id, person_id, department_id, created_at) VALUES (?, ?, ?, ?)",
			id, legacyPerson, legacyDepartment, ts)
		require.NoError(t, err)
	}
}

func TestMigrateV2_BackfillsOrderInInsertionOrder(t *testing.T) {
	dir := t.TempDir()
	seedVersion1(t, dir)
	ctx := context.Background()

	b, err := Open(ctx, testConfig(dir), WithSchemaVersion(2))
	require.NoError(t, err)
	defer b.Close()

	rows, err := b.db.QueryContext(ctx, "SELECT id, sort_order FROM assignments ORDER BY rowid")
	require.NoError(t, err)
	defer rows.Close()

	got := map[string]int{}
	for rows.Next() {
		var id string
		var order int
		require.NoError(t, rows.Scan(&id, &order))
		got[id] = order
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, map[string]int{"a1": 0, "a2": 1, "a3": 2}, got)
}

func TestMigrateV3_MovesRecordsIntoDefaultWorkspace(t *testing.T) {
	dir := t.TempDir()
	seedVersion1(t, dir)
	ctx := context.Background()
	store := prefs.NewMemoryStore()

	b, err := Open(ctx, testConfig(dir), WithPrefs(store))
	require.NoError(t, err)
	defer b.Close()

	v, err := b.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, LatestVersion, v)

	list, err := b.Workspaces().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	ws := list[0]
	assert.Equal(t, types.DefaultWorkspaceName, ws.Name)

	persons, err := b.Persons().List(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, persons, 1)
	assert.Equal(t, "Ana", persons[0].Name)
	assert.Equal(t, "CEO", persons[0].Role)

	departments, err := b.Departments().List(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, departments, 1)
	assert.Equal(t, types.Position{X: 10, Y: 20}, departments[0].Position)

	assignments, err := b.Assignments().ListByWorkspace(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 3)
	for i, a := range assignments {
		assert.Equal(t, ws.ID, a.WorkspaceID)
		assert.Equal(t, i, a.Order)
	}

	active, err := store.Get(prefs.KeyActiveWorkspace)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, active)
}

func TestMigrations_AreOrdered(t *testing.T) {
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "migration %q out of order", m.Name)
	}
	assert.Equal(t, LatestVersion, migrations[len(migrations)-1].Version)
}

// replaceMigration swaps the Up step of one migration for the duration of
// the test.
func replaceMigration(t *testing.T, version int, up func(context.Context, *sql.Tx, *migrator) error) {
	t.Helper()
	saved := migrations
	migrations = slices.Clone(saved)
	migrations[version-1].Up = up
	t.Cleanup(func() { migrations = saved })
}

func hasColumn(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		if name == column {
			return true
		}
	}
	require.NoError(t, rows.Err())
	return false
}

func TestMigrate_FailedStepLeavesNothingApplied(t *testing.T) {
	dir := t.TempDir()
	seedVersion1(t, dir)
	ctx := context.Background()
	replaceMigration(t, 2, func(ctx context.Context, tx *sql.Tx, m *migrator) error {
		if err := migrateV2(ctx, tx, m); err != nil {
			return err
		}
		return errors.New("boom")
	})

	_, err := Open(ctx, testConfig(dir))
	require.ErrorIs(t, err, types.ErrStorage)
	assert.Contains(t, err.Error(), "applying migration 2")

	b, err := Open(ctx, testConfig(dir), WithSchemaVersion(1))
	require.NoError(t, err)
	defer b.Close()
	v, err := b.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.False(t, hasColumn(t, b.db, "assignments", "sort_order"))
}

func TestOpen_RetriesWhileBusy(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		retries   int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"recovers after contention", 2, 5, errors.New("database is locked (5) (SQLITE_BUSY)"), 3, false},
		{"gives up after the retry bound", 5, 2, errors.New("database is locked (5) (SQLITE_BUSY)"), 2, true},
		{"other errors are not retried", 5, 5, errors.New("disk I/O error"), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			replaceMigration(t, 1, func(ctx context.Context, tx *sql.Tx, m *migrator) error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return migrateV1(ctx, tx, m)
			})

			cfg := testConfig(t.TempDir())
			cfg.BusyRetries = tt.retries
			b, err := Open(context.Background(), cfg, WithSchemaVersion(1))
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.ErrorIs(t, err, types.ErrStorage)
				return
			}
			require.NoError(t, err)
			require.NoError(t, b.Close())
		})
	}
}
