package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/oostools/oossync/pkg/config"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type listParams struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// list creates the list command: print the names of the currently active
// definitions, one per line. This is the discoverability surface front ends
// use to advertise what the installation is ready to run.
//
// Example usage:
//
//	oossync list
//	oossync list --json
func list(p listParams) *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List the active definition names",
		Before: requireConfig(p.Config),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "emit machine-readable output",
				Value: false,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runList(cmd, p)
		},
	}
}

func runList(cmd *cli.Command, p listParams) error {
	eng, err := newEngine(p.Config)
	if err != nil {
		return err
	}

	names, err := eng.Syncer.ActiveNames()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(names)
	}

	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
