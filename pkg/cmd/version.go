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

type versionParams struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// version creates the version command: print the installed revision and the
// source tree's current revision side by side.
//
// Example usage:
//
//	oossync version
//	oossync version --json
func version(p versionParams) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show installed and source revisions",
		Before: requireConfig(p.Config),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "emit machine-readable output",
				Value: false,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runVersion(cmd, p)
		},
	}
}

func runVersion(cmd *cli.Command, p versionParams) error {
	eng, err := newEngine(p.Config)
	if err != nil {
		return err
	}

	source, err := eng.Tracker.SourceRevision()
	if err != nil {
		return err
	}
	installed := eng.Tracker.InstalledRevision()

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{
			"installed": installed,
			"source":    source,
		})
	}

	fmt.Printf("Installed: %s\n", installed)
	fmt.Printf("Source:    %s\n", source)

	if installed != source {
		fmt.Println("\nDrift detected; run 'oossync sync' to update.")
	}
	return nil
}
