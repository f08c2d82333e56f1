// Package cmd provides the CLI commands for the oossync tool.
//
// Each command is implemented as a separate function returning a
// *cli.Command, following the urfave/cli/v3 pattern, and registered through
// the package's fx module. The bare invocation runs the default sync cycle;
// everything else is an explicit subcommand.
//
// # Available Commands
//
//   - sync: run the full sync-or-revalidate cycle (also the default action)
//   - test: validate the installed set without syncing (--test-only)
//   - version: show installed and source revisions
//   - status: show version record, drift, backups, and active definitions
//   - list: print the active definition names for front ends
//   - prune: remove old backups beyond the retention count
//   - init: scaffold a new installation root
//
// # Global Options
//
//   - --dir, -d: installation directory (defaults to current directory)
//   - --test-only: shorthand for the test command on a bare invocation
//   - --help, -h: display command help
//   - --version: display build information plus the installed and source
//     revisions of the configured installation
package cmd
