package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oostools/oossync/pkg/config"
	"github.com/oostools/oossync/pkg/syncer"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type syncParams struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// sync creates the sync command, the engine's default operation.
//
// A run detects drift between the installed set and the source tree, backs
// up the current set, applies the source set wholesale, validates it, and
// commits a new version record, or rolls back to the backup when validation
// fails. When no drift is detected the installed set is revalidated in place
// (backing executables can change underneath a validated record).
//
// Example usage:
//
//	# Full sync-or-revalidate cycle
//	oossync sync
//
//	# Same, from outside the installation directory
//	oossync --dir ~/.oos sync
func sync(p syncParams) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize the installation with the source tree",
		Description: `Run the full sync-or-revalidate cycle.

The command checks whether the installed definition set matches the source
tree's current revision. On drift it snapshots the installed set, replaces it
with the source set as a whole, validates every definition, and persists the
new version record only after validation passes. A failed validation triggers
automatic rollback to the snapshot. With no drift, the installed set is
revalidated and nothing is mutated.`,
		Before: requireConfig(p.Config),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runSync(ctx, p)
		},
	}
}

func runSync(ctx context.Context, p syncParams) error {
	eng, err := newEngine(p.Config)
	if err != nil {
		return err
	}

	slog.Info("Starting sync",
		"source", p.Config.SourceDir,
		"install", p.Config.InstallDir,
	)

	res, err := eng.Syncer.Sync(ctx)
	switch {
	case errors.Is(err, syncer.ErrSyncInProgress):
		fmt.Println("Another sync is in progress; retry later.")
		return err

	case errors.Is(err, syncer.ErrRollbackExhausted):
		printSyncResult(res)
		return err

	case err != nil:
		return errors.Wrap(err, "sync failed")
	}

	printSyncResult(res)
	return nil
}
