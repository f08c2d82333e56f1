package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/oostools/oossync/pkg/config"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Config     *config.Config `optional:"true"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates and executes the main oossync CLI application with the given
// version and command-line arguments. This is the entry point for all CLI
// operations.
//
// The bare invocation (no subcommand) runs the full sync-or-revalidate
// cycle; --test-only restricts it to validating the currently installed set.
//
// Global flags:
//   - --dir, -d: installation directory (defaults to current directory)
//   - --test-only: validate the installed set without syncing
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)

		// Front ends script against --version for drift checks, so the
		// installed and source revisions are printed whenever an
		// installation is configured.
		if p.Config == nil {
			return
		}
		eng, err := newEngine(p.Config)
		if err != nil {
			return
		}
		fmt.Fprintln(cmd.Writer, "Installed:", eng.Tracker.InstalledRevision())
		if source, err := eng.Tracker.SourceRevision(); err == nil {
			fmt.Fprintln(cmd.Writer, "Source:", source)
		}
	}

	app := &cli.Command{
		Name:  "oossync",
		Usage: "Distribute and validate oos command definitions",
		Description: `oossync keeps an installation's command definitions synchronized with
the source-of-truth tree. Every run either applies the source's current
revision (with backup and automatic rollback on validation failure) or
revalidates the installed set when no drift is detected.`,
		Version: p.Version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "the installation directory",
				Value:       ".",
				DefaultText: "Current directory",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.BoolFlag{
				Name:  "test-only",
				Usage: "validate the installed set without syncing",
				Value: false,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, os.Chdir(cmd.String("dir"))
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// Bare invocation: run the full cycle, or the validator only
			// when --test-only is set.
			name := "sync"
			if cmd.Bool("test-only") {
				name = "test"
			}

			for _, sub := range p.Commands {
				if sub.Name != name {
					continue
				}

				// The subcommand's own Before hook still guards the
				// delegated action (config presence, most importantly).
				if sub.Before != nil {
					if _, err := sub.Before(ctx, cmd); err != nil {
						return err
					}
				}
				return sub.Action(ctx, cmd)
			}
			return cli.ShowAppHelp(cmd)
		},
		Commands: p.Commands,
	}

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

func requireConfig(cfg *config.Config) func(context.Context, *cli.Command) (context.Context, error) {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cfg == nil {
			return ctx, errors.New("oossync.yaml not found")
		}

		return ctx, nil
	}
}
