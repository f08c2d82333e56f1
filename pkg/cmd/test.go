package cmd

import (
	"context"
	"fmt"

	"github.com/oostools/oossync/pkg/config"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type testParams struct {
	fx.In

	Config *config.Config `optional:"true"`
}

// test creates the test command: run the validator against the currently
// installed set without touching version tracking or backups. This is also
// the action behind the root --test-only flag.
//
// Example usage:
//
//	oossync test
//	oossync --test-only
func test(p testParams) *cli.Command {
	return &cli.Command{
		Name:  "test",
		Usage: "Validate the installed definition set",
		Description: `Validate every installed definition without syncing.

Each definition is checked for required metadata, capability declarations,
and a resolvable backing executable, and the executable is given a bounded
presence probe. The run exits nonzero when any definition fails; probe
timeouts count as passes (the binary may legitimately block waiting for
input).`,
		Before: requireConfig(p.Config),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runTest(ctx, p)
		},
	}
}

func runTest(ctx context.Context, p testParams) error {
	eng, err := newEngine(p.Config)
	if err != nil {
		return err
	}

	res, err := eng.Syncer.Revalidate(ctx)
	if err != nil {
		return err
	}

	printValidation(res)

	if !res.Passed {
		return errors.Errorf("%d definition(s) failed validation", len(res.Failed()))
	}

	fmt.Println("All definitions validated successfully.")
	return nil
}
