// Package testutil provides helpers for exercising CLI commands against
// throwaway installations.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// RunCommand executes a command under a minimal wrapper app, the way the root
// command dispatches it in production.
func RunCommand(t *testing.T, command *cli.Command, args ...string) error {
	t.Helper()

	app := &cli.Command{
		Name:     "oossync",
		Commands: []*cli.Command{command},
	}

	fullArgs := append([]string{"oossync", command.Name}, args...)
	return app.Run(context.Background(), fullArgs)
}

// WriteDefinition writes a definition file with the given description into
// dir, creating the directory as needed.
func WriteDefinition(t *testing.T, dir, name, description string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "---\ndescription: " + description + "\n---\nBody of " + name + ".\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".md"), []byte(content), 0o644))
}

// RequireInstalled asserts that the installation's live directory contains
// the named definitions.
func RequireInstalled(t *testing.T, installDir string, names ...string) {
	t.Helper()

	for _, name := range names {
		require.FileExists(t, filepath.Join(installDir, "commands", name+".md"))
	}
}
