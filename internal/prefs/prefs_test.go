package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

func TestStores_GetSet(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	stores := map[string]Store{
		"file":   fs,
		"memory": NewMemoryStore(),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			v, err := s.Get(KeyActiveWorkspace)
			require.NoError(t, err)
			assert.Empty(t, v)

			require.NoError(t, s.Set(KeyActiveWorkspace, "ws-1"))
			v, err = s.Get(KeyActiveWorkspace)
			require.NoError(t, err)
			assert.Equal(t, "ws-1", v)

			_, err = s.Get("../escape")
			assert.ErrorIs(t, err, types.ErrValidation)
			assert.ErrorIs(t, s.Set("", "x"), types.ErrValidation)
		})
	}
}

func TestFileStore_SharedDirectory(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileStore(dir)
	require.NoError(t, err)
	b, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, a.Set(KeyActiveWorkspace, "ws-2"))
	v, err := b.Get(KeyActiveWorkspace)
	require.NoError(t, err)
	assert.Equal(t, "ws-2", v)
}

func TestFileStore_WatchSeesOtherWriter(t *testing.T) {
	if testing.Short() {
		t.Skip("watches the file system")
	}
	dir := t.TempDir()
	reader, err := NewFileStore(dir)
	require.NoError(t, err)
	writer, err := NewFileStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := reader.Watch(ctx, KeyActiveWorkspace)
	require.NoError(t, err)

	require.NoError(t, writer.Set(KeyActiveWorkspace, "ws-3"))

	select {
	case v := <-ch:
		assert.Equal(t, "ws-3", v)
	case <-ctx.Done():
		t.Fatal("watcher did not observe the change")
	}
}

func TestMemoryStore_WatchDeliversNewest(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Watch(ctx, KeyActiveWorkspace)
	require.NoError(t, err)

	require.NoError(t, s.Set(KeyActiveWorkspace, "a"))
	require.NoError(t, s.Set(KeyActiveWorkspace, "b"))
	assert.Equal(t, "b", <-ch)

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}
