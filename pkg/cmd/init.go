package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oostools/oossync/pkg/config"
	"github.com/oostools/oossync/pkg/consts"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// initCmd creates the init command: scaffold a new installation root with an
// oossync.yaml pointing at the given source tree. The first sync populates
// the definition set.
//
// Example usage:
//
//	oossync init --source ~/src/oos
//	oossync --dir ~/.oos init --source ~/src/oos
func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new installation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "source",
				Usage:    "path of the source-of-truth tree",
				Required: true,
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runInit(cmd)
		},
	}
}

func runInit(cmd *cli.Command) error {
	if _, err := os.Stat(consts.ConfigFile); err == nil {
		return errors.New("oossync.yaml already exists; this directory is already an installation")
	}

	source, err := filepath.Abs(cmd.String("source"))
	if err != nil {
		return errors.Wrap(err, "failed to resolve source path")
	}
	if _, err := os.Stat(source); err != nil {
		return errors.Wrapf(err, "source tree not found: %s", source)
	}

	content := fmt.Sprintf(`source_dir: %s
source_commands_dir: %s
install_dir: .
probe_timeout: %s
lease_ttl: %s
keep_backups: %d
`,
		source,
		config.DefaultCommandsDir,
		config.DefaultProbeTimeout,
		config.DefaultLeaseTTL,
		config.DefaultKeepBackups,
	)

	if err := os.WriteFile(consts.ConfigFile, []byte(content), consts.ModeFile); err != nil {
		return errors.Wrap(err, "failed to write oossync.yaml")
	}

	fmt.Println("Initialized installation.")
	fmt.Println("Run 'oossync sync' to install the command definitions.")
	return nil
}
