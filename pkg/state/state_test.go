package state_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/oostools/oossync/pkg/state"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	t.Run("creates its root directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "state")

		store, err := NewFileStore(dir)
		require.NoError(t, err)
		require.DirExists(t, dir)
		require.Equal(t, dir, store.Root())
	})

	t.Run("writes and reads documents", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.Write("version.json", []byte(`{"ok":true}`)))
		data, err := store.Read("version.json")
		require.NoError(t, err)
		require.Equal(t, `{"ok":true}`, string(data))

		// Overwrites replace the whole document.
		require.NoError(t, store.Write("version.json", []byte("v2")))
		data, err = store.Read("version.json")
		require.NoError(t, err)
		require.Equal(t, "v2", string(data))
	})

	t.Run("missing documents satisfy os.ErrNotExist", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Read("missing")
		require.Error(t, err)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("leaves no staging files behind", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewFileStore(dir)
		require.NoError(t, err)
		require.NoError(t, store.Write("doc", []byte("data")))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "doc", entries[0].Name())
	})

	t.Run("Exists reports document presence", func(t *testing.T) {
		store := newStore(t)
		require.False(t, store.Exists("doc"))

		require.NoError(t, store.Write("doc", []byte("data")))
		require.True(t, store.Exists("doc"))
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Write("doc", []byte("data")))

		require.NoError(t, store.Delete("doc"))
		require.False(t, store.Exists("doc"))
		require.NoError(t, store.Delete("doc"))
	})
}

func TestFileStoreCompareAndSwap(t *testing.T) {
	t.Run("nil old means document must not exist", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.CompareAndSwap("doc", nil, []byte("first")))
		require.ErrorIs(t, store.CompareAndSwap("doc", nil, []byte("second")), ErrModified)
	})

	t.Run("swaps only on matching content", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Write("doc", []byte("v1")))

		require.NoError(t, store.CompareAndSwap("doc", []byte("v1"), []byte("v2")))

		// A second swap against the superseded content fails.
		err := store.CompareAndSwap("doc", []byte("v1"), []byte("v3"))
		require.ErrorIs(t, err, ErrModified)

		data, err := store.Read("doc")
		require.NoError(t, err)
		require.Equal(t, "v2", string(data))
	})

	t.Run("non-nil old against a missing document fails", func(t *testing.T) {
		store := newStore(t)
		require.ErrorIs(t, store.CompareAndSwap("doc", []byte("v1"), []byte("v2")), ErrModified)
	})
}

func newStore(t *testing.T) *FileStore {
	t.Helper()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}
