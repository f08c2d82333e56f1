package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oostools/oossync/pkg/cmd/testutil"
	"github.com/oostools/oossync/pkg/config"
	"github.com/oostools/oossync/pkg/consts"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()

	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(oldWD)) })
}

func TestInitCommand(t *testing.T) {
	t.Run("scaffolds a new installation", func(t *testing.T) {
		source := t.TempDir()
		installDir := t.TempDir()
		chdir(t, installDir)

		err := testutil.RunCommand(t, initCmd(), "--source", source)
		require.NoError(t, err)
		require.FileExists(t, filepath.Join(installDir, consts.ConfigFile))

		cfg, err := config.LoadConfigFile(filepath.Join(installDir, consts.ConfigFile))
		require.NoError(t, err)
		require.Equal(t, source, cfg.SourceDir)
		require.Equal(t, config.DefaultCommandsDir, cfg.SourceCommandsDir)
		require.Equal(t, config.DefaultProbeTimeout, cfg.ProbeTimeout)
		require.Equal(t, config.DefaultKeepBackups, cfg.KeepBackups)
	})

	t.Run("refuses to reinitialize", func(t *testing.T) {
		installDir := t.TempDir()
		chdir(t, installDir)
		require.NoError(t, os.WriteFile(consts.ConfigFile, []byte("source_dir: /src\ninstall_dir: .\n"), 0o644))

		err := testutil.RunCommand(t, initCmd(), "--source", t.TempDir())
		require.Error(t, err)
		require.Contains(t, err.Error(), "already")
	})

	t.Run("rejects a missing source tree", func(t *testing.T) {
		chdir(t, t.TempDir())

		err := testutil.RunCommand(t, initCmd(), "--source", filepath.Join(t.TempDir(), "gone"))
		require.Error(t, err)
	})
}
