package definition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oostools/oossync/pkg/consts"
	. "github.com/oostools/oossync/pkg/definition"
	"github.com/stretchr/testify/require"
)

func TestStoreLoad(t *testing.T) {
	t.Run("loads definitions in lexical order", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "git-sync.md", "---\ndescription: Push\ncapabilities: [git-write]\nexec: bin/oos-git-sync\n---\n")
		writeFile(t, dir, "archive.md", "---\ndescription: Archive\n---\n")

		set, err := NewStore(dir).Load()
		require.NoError(t, err)
		require.Equal(t, 2, set.Len())
		require.Equal(t, []string{"archive", "git-sync"}, set.Names())
	})

	t.Run("ignores non-definition files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "archive.md", "---\ndescription: Archive\n---\n")
		writeFile(t, dir, consts.SumFile, "h1:bogus\n")
		writeFile(t, dir, "README.txt", "not a definition")

		set, err := NewStore(dir).Load()
		require.NoError(t, err)
		require.Equal(t, []string{"archive"}, set.Names())
	})

	t.Run("fails on malformed definitions", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "broken.md", "no frontmatter here\n")

		_, err := NewStore(dir).Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "broken")
	})

	t.Run("fails on a missing directory", func(t *testing.T) {
		_, err := NewStore(filepath.Join(t.TempDir(), "nope")).Load()
		require.Error(t, err)
	})
}

func TestStoreExists(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	// Empty directory: no definitions yet.
	require.False(t, store.Exists())

	// Non-definition files don't count.
	writeFile(t, dir, "README.txt", "hello")
	require.False(t, store.Exists())

	writeFile(t, dir, "archive.md", "---\ndescription: Archive\n---\n")
	require.True(t, store.Exists())

	require.False(t, NewStore(filepath.Join(dir, "missing")).Exists())
}

func TestStoreReplace(t *testing.T) {
	t.Run("replaces the set wholesale", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "commands")
		store := NewStore(dir)

		first, err := NewSet(
			def(t, "archive", "Archive", ""),
			def(t, "git-sync", "Push", "bin/oos-git-sync"),
		)
		require.NoError(t, err)
		require.NoError(t, store.Replace(first))

		second, err := NewSet(def(t, "review", "Request a review", ""))
		require.NoError(t, err)
		require.NoError(t, store.Replace(second))

		// Only the new set's files survive; no mixture of old and new.
		loaded, err := store.Load()
		require.NoError(t, err)
		require.Equal(t, []string{"review"}, loaded.Names())
		require.NoFileExists(t, filepath.Join(dir, "archive.md"))

		// No staging or superseded directories left behind.
		require.NoDirExists(t, dir+".staging")
		require.NoDirExists(t, dir+".old")
	})

	t.Run("writes the sum file alongside", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "commands")
		store := NewStore(dir)

		set, err := NewSet(def(t, "archive", "Archive", ""))
		require.NoError(t, err)
		require.NoError(t, store.Replace(set))
		require.FileExists(t, filepath.Join(dir, consts.SumFile))

		f, err := os.Open(filepath.Join(dir, consts.SumFile))
		require.NoError(t, err)
		defer func() { _ = f.Close() }()

		sum, err := LoadSumFile(f)
		require.NoError(t, err)
		require.Equal(t, 1, sum.Files())
		require.Equal(t, set.Sum(), sum.TotalHash())
	})

	t.Run("first replace needs no existing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "fresh", "commands")

		set, err := NewSet(def(t, "archive", "Archive", ""))
		require.NoError(t, err)
		require.NoError(t, NewStore(dir).Replace(set))
		require.FileExists(t, filepath.Join(dir, "archive.md"))
	})
}

func TestWriteSet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snap")

	d := def(t, "git-sync", "Push", "bin/oos-git-sync")
	set, err := NewSet(d)
	require.NoError(t, err)
	require.NoError(t, WriteSet(dir, set))

	// Written byte-for-byte from the original content.
	data, err := os.ReadFile(filepath.Join(dir, "git-sync.md"))
	require.NoError(t, err)
	require.Equal(t, d.Raw, data)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
