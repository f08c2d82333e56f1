package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oostools/oossync/pkg/cmd/testutil"
	"github.com/oostools/oossync/pkg/config"
	"github.com/oostools/oossync/pkg/consts"
	"github.com/oostools/oossync/pkg/definition"
	"github.com/oostools/oossync/pkg/state"
	"github.com/oostools/oossync/pkg/syncer"
	"github.com/stretchr/testify/require"
)

func TestSyncCommand(t *testing.T) {
	t.Run("installs the source set", func(t *testing.T) {
		cfg := newTestConfig(t)
		testutil.WriteDefinition(t, cfg.SourceCommandsPath(), "archive", "Archive the current task")
		testutil.WriteDefinition(t, cfg.SourceCommandsPath(), "git-sync", "Push the current work tree")

		err := testutil.RunCommand(t, sync(syncParams{Config: cfg}))
		require.NoError(t, err)

		testutil.RequireInstalled(t, cfg.InstallDir, "archive", "git-sync")
		require.FileExists(t, filepath.Join(cfg.InstallDir, consts.VersionFile))
		require.FileExists(t, filepath.Join(cfg.InstallDir, consts.TestLogFile))
	})

	t.Run("second run is a no-op revalidation", func(t *testing.T) {
		cfg := newTestConfig(t)
		testutil.WriteDefinition(t, cfg.SourceCommandsPath(), "archive", "Archive the current task")

		require.NoError(t, runSync(context.Background(), syncParams{Config: cfg}))
		require.NoError(t, runSync(context.Background(), syncParams{Config: cfg}))

		// Still exactly one record, no backups accumulated.
		require.NoDirExists(t, cfg.BackupsPath())
	})

	t.Run("broken source rolls back to the last good set", func(t *testing.T) {
		cfg := newTestConfig(t)
		testutil.WriteDefinition(t, cfg.SourceCommandsPath(), "archive", "Archive the current task")
		require.NoError(t, runSync(context.Background(), syncParams{Config: cfg}))

		writeRawDefinition(t, cfg.SourceCommandsPath(), "archive", "---\ndescription: \"\"\n---\nBroken.\n")

		// Rollback succeeded, so the run itself is not an error.
		require.NoError(t, runSync(context.Background(), syncParams{Config: cfg}))

		states, err := state.NewFileStore(cfg.InstallDir)
		require.NoError(t, err)
		rec, err := definition.LoadRecord(states)
		require.NoError(t, err)
		require.True(t, rec.ValidationPassed)
	})

	t.Run("broken first install is fatal", func(t *testing.T) {
		cfg := newTestConfig(t)
		writeRawDefinition(t, cfg.SourceCommandsPath(), "archive", "---\ndescription: \"\"\n---\nBroken.\n")

		err := runSync(context.Background(), syncParams{Config: cfg})
		require.ErrorIs(t, err, syncer.ErrRollbackExhausted)
	})

	t.Run("missing config fails before running", func(t *testing.T) {
		err := testutil.RunCommand(t, sync(syncParams{}))
		require.Error(t, err)
		require.Contains(t, err.Error(), "oossync.yaml")
	})
}

// newTestConfig builds a config over throwaway source and install trees.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		SourceDir:         filepath.Join(t.TempDir(), "src"),
		SourceCommandsDir: config.DefaultCommandsDir,
		InstallDir:        filepath.Join(t.TempDir(), "install"),
		ProbeTimeout:      2 * time.Second,
		LeaseTTL:          time.Minute,
		KeepBackups:       3,
	}
	require.NoError(t, os.MkdirAll(cfg.SourceCommandsPath(), 0o755))
	return cfg
}

func writeRawDefinition(t *testing.T, dir, name, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".md"), []byte(content), 0o644))
}
