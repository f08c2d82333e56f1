package cmd

import (
	"context"
	"fmt"

	"github.com/oostools/oossync/pkg/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type pruneParams struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// prune creates the prune command. Backups accumulate indefinitely during
// syncs; pruning them is this explicit operation, never a side effect of the
// sync path.
//
// Example usage:
//
//	# Keep the configured retention count (default 10)
//	oossync prune
//
//	# Keep only the three newest backups
//	oossync prune --keep 3
func prune(p pruneParams) *cli.Command {
	return &cli.Command{
		Name:   "prune",
		Usage:  "Remove old backups",
		Before: requireConfig(p.Config),
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "keep",
				Usage: "number of backups to retain",
				Value: 0,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPrune(cmd, p)
		},
	}
}

func runPrune(cmd *cli.Command, p pruneParams) error {
	eng, err := newEngine(p.Config)
	if err != nil {
		return err
	}

	keep := int(cmd.Int("keep"))
	if keep == 0 {
		keep = p.Config.KeepBackups
	}

	removed, err := eng.Backups.Prune(keep)
	if err != nil {
		return err
	}

	if len(removed) == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}

	for _, id := range removed {
		fmt.Printf("removed %s\n", id)
	}
	fmt.Printf("Pruned %d backup(s); %d retained.\n", len(removed), keep)
	return nil
}
