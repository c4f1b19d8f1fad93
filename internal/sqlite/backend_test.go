package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organigrama/internal/live"
	"github.com/mesh-intelligence/organigrama/internal/prefs"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

func testConfig(dir string) types.Config {
	return types.Config{Backend: types.BackendSQLite, DataDir: dir}
}

// tickingClock returns a clock that advances one millisecond per call, so
// records created in sequence get distinct, ordered timestamps.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

// openBackend opens a store in a fresh directory and returns it with the
// default workspace created by the migrations.
func openBackend(t *testing.T, opts ...Option) (*Backend, types.Workspace) {
	t.Helper()
	opts = append([]Option{WithClock(tickingClock())}, opts...)
	b, err := Open(context.Background(), testConfig(t.TempDir()), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	ws, found, err := b.Workspaces().First(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	return b, ws
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		config  types.Config
		wantErr error
	}{
		{"empty backend", types.Config{DataDir: t.TempDir()}, types.ErrBackendEmpty},
		{"unknown backend", types.Config{Backend: "dexie", DataDir: t.TempDir()}, types.ErrBackendUnknown},
		{"negative retries", types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir(), BusyRetries: -1}, types.ErrBusyRetriesInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.config)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOpen_CreatesDatabaseAtLatestVersion(t *testing.T) {
	dir := t.TempDir()
	store := prefs.NewMemoryStore()
	b, err := Open(context.Background(), testConfig(dir), WithPrefs(store))
	require.NoError(t, err)
	defer b.Close()

	_, err = os.Stat(filepath.Join(dir, DatabaseFile))
	require.NoError(t, err)

	v, err := b.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, LatestVersion, v)

	list, err := b.Workspaces().List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, types.DefaultWorkspaceName, list[0].Name)
	assert.True(t, list[0].IsDefault)

	active, err := store.Get(prefs.KeyActiveWorkspace)
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, active)
}

func TestOpen_Twice(t *testing.T) {
	b, _ := openBackend(t)
	err := b.Open(context.Background(), testConfig(t.TempDir()))
	assert.ErrorIs(t, err, types.ErrAlreadyOpen)
}

func TestClose_Idempotent(t *testing.T) {
	b, _ := openBackend(t)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err := b.Persons().All(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestReopen_DoesNotMigrateAgain(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := Open(ctx, testConfig(dir))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b, err = Open(ctx, testConfig(dir))
	require.NoError(t, err)
	defer b.Close()

	list, err := b.Workspaces().List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWrite_NotifiesAfterCommit(t *testing.T) {
	hub := live.NewHub()
	defer hub.Close()
	sub := hub.Subscribe(types.PersonsTable)
	defer sub.Close()

	b, ws := openBackend(t, WithNotifier(hub))
	ctx := context.Background()

	_, err := b.Persons().Create(ctx, types.Person{WorkspaceID: ws.ID, Name: "Ana"})
	require.NoError(t, err)

	select {
	case change := <-sub.C():
		assert.Contains(t, change.Topics, types.PersonsTable)
	default:
		t.Fatal("expected a notification after create")
	}

	// A failed write does not notify.
	_, err = b.Persons().Create(ctx, types.Person{WorkspaceID: ws.ID, Name: "  "})
	assert.ErrorIs(t, err, types.ErrInvalidName)
	select {
	case <-sub.C():
		t.Fatal("unexpected notification after failed write")
	default:
	}
}

func TestSnapshotAndClearAll(t *testing.T) {
	b, ws := openBackend(t)
	ctx := context.Background()

	other, err := b.Workspaces().Create(ctx, types.Workspace{Name: "Other"})
	require.NoError(t, err)
	p1, err := b.Persons().Create(ctx, types.Person{WorkspaceID: ws.ID, Name: "Ana"})
	require.NoError(t, err)
	_, err = b.Persons().Create(ctx, types.Person{WorkspaceID: other.ID, Name: "Luis"})
	require.NoError(t, err)
	d1, err := b.Departments().Create(ctx, types.Department{WorkspaceID: ws.ID, Name: "Ventas"})
	require.NoError(t, err)
	_, _, err = b.Assignments().Assign(ctx, ws.ID, p1.ID, d1.ID)
	require.NoError(t, err)

	all, err := b.Snapshot(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all.Persons, 2)
	assert.Len(t, all.Departments, 1)
	assert.Len(t, all.Assignments, 1)
	assert.Len(t, all.Workspaces, 2)

	scoped, err := b.Snapshot(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, scoped.Persons, 1)
	assert.Empty(t, scoped.Departments)
	require.Len(t, scoped.Workspaces, 1)
	assert.Equal(t, "Other", scoped.Workspaces[0].Name)

	require.NoError(t, b.ClearAll(ctx))
	all, err = b.Snapshot(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all.Persons)
	assert.Empty(t, all.Departments)
	assert.Empty(t, all.Assignments)
	assert.Len(t, all.Workspaces, 2)
}

func TestTimestampsRoundTrip(t *testing.T) {
	b, ws := openBackend(t)
	ctx := context.Background()

	created := time.Date(2023, 5, 6, 7, 8, 9, 123456789, time.UTC)
	p := types.Person{ID: "3f1c2a9e-8b7d-4c6e-9a5b-1d2e3f4a5b6c", WorkspaceID: ws.ID, Name: "Ana",
		CreatedAt: created, UpdatedAt: created}
	require.NoError(t, b.Persons().Put(ctx, p))

	got, err := b.Persons().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.True(t, created.Equal(got.UpdatedAt))
}
