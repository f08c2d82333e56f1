package cmd

import (
	"context"
	"fmt"

	"github.com/oostools/oossync/pkg/config"
	"github.com/oostools/oossync/pkg/definition"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type statusParams struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// status creates the status command: version record, backup inventory, and
// the currently active definitions in one view.
//
// Example usage:
//
//	oossync status
func status(p statusParams) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show installation status",
		Description: `Display the installation's current state:

- the persisted version record (revision, validation outcome, timestamp)
- whether the installed set has drifted from the source tree
- the available backups, newest last
- the names of the currently active definitions`,
		Before: requireConfig(p.Config),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStatus(p)
		},
	}
}

func runStatus(p statusParams) error {
	eng, err := newEngine(p.Config)
	if err != nil {
		return err
	}

	rec, _ := definition.LoadRecord(eng.States)
	if rec == nil {
		fmt.Println("No version record; this installation has not been synced yet.")
	} else {
		mark := okMark("✓")
		if !rec.ValidationPassed {
			mark = failMark("✗")
		}
		fmt.Printf("Installed revision: %s %s\n", rec.Version, mark)
		fmt.Printf("Updated at:         %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05 UTC"))
		fmt.Printf("Definitions:        %d\n", rec.TotalCommands)
		if rec.TestLog != "" {
			fmt.Printf("Test log:           %s\n", rec.TestLog)
		}
	}

	source, err := eng.Tracker.SourceRevision()
	if err == nil {
		fmt.Printf("Source revision:    %s\n", source)
		if rec != nil && rec.Version != source {
			fmt.Println("\nDrift detected; run 'oossync sync' to update.")
		}
	}

	backups, err := eng.Backups.List()
	if err != nil {
		return err
	}

	fmt.Println()
	if len(backups) == 0 {
		fmt.Println("No backups.")
	} else {
		fmt.Printf("Backups (%d):\n", len(backups))
		for _, b := range backups {
			fmt.Printf("  %s (%s)\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	if eng.Installed.Exists() {
		set, err := eng.Installed.Load()
		if err == nil {
			fmt.Println()
			fmt.Printf("Active definitions (%d):\n", set.Len())
			for _, name := range set.Names() {
				fmt.Printf("  %s\n", name)
			}
		}
	}

	return nil
}
