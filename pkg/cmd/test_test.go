package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/oostools/oossync/pkg/cmd/testutil"
	"github.com/stretchr/testify/require"
)

func TestTestCommand(t *testing.T) {
	t.Run("passes on a valid installed set", func(t *testing.T) {
		cfg := newTestConfig(t)
		testutil.WriteDefinition(t, cfg.SourceCommandsPath(), "archive", "Archive the current task")
		require.NoError(t, runSync(context.Background(), syncParams{Config: cfg}))

		err := testutil.RunCommand(t, test(testParams{Config: cfg}))
		require.NoError(t, err)
	})

	t.Run("exits nonzero on validation failures", func(t *testing.T) {
		cfg := newTestConfig(t)
		testutil.WriteDefinition(t, cfg.SourceCommandsPath(), "archive", "Archive the current task")
		require.NoError(t, runSync(context.Background(), syncParams{Config: cfg}))

		// Tamper with the installed copy behind the engine's back.
		tampered := filepath.Join(cfg.InstallDir, "commands", "archive.md")
		require.NoError(t, os.WriteFile(tampered, []byte("---\ndescription: \"\"\n---\nTampered.\n"), 0o644))

		err := testutil.RunCommand(t, test(testParams{Config: cfg}))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed validation")
	})

	t.Run("fails without an installed set", func(t *testing.T) {
		cfg := newTestConfig(t)

		err := testutil.RunCommand(t, test(testParams{Config: cfg}))
		require.Error(t, err)
	})
}
