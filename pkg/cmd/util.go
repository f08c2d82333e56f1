package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/oostools/oossync/pkg/backup"
	"github.com/oostools/oossync/pkg/config"
	"github.com/oostools/oossync/pkg/consts"
	"github.com/oostools/oossync/pkg/definition"
	"github.com/oostools/oossync/pkg/lease"
	"github.com/oostools/oossync/pkg/probe"
	"github.com/oostools/oossync/pkg/state"
	"github.com/oostools/oossync/pkg/syncer"
	"github.com/oostools/oossync/pkg/tracker"
	"github.com/oostools/oossync/pkg/validate"
	"github.com/pkg/errors"
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	dimMark  = color.New(color.Faint).SprintFunc()
)

// engine bundles the wired collaborators a command needs. Commands construct
// it from config per invocation rather than holding long-lived state.
type engine struct {
	Syncer    *syncer.Syncer
	Tracker   *tracker.Tracker
	Backups   *backup.Manager
	Installed *definition.Store
	States    state.Store
}

// newEngine wires stores, tracker, backups, validator, lease, and syncer for
// the configured installation.
func newEngine(cfg *config.Config) (*engine, error) {
	states, err := state.NewFileStore(cfg.InstallDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open installation state")
	}

	source := definition.NewStore(cfg.SourceCommandsPath())
	installed := definition.NewStore(cfg.InstallCommandsPath())
	track := tracker.New(cfg.SourceDir, source, states)
	backups := backup.NewManager(cfg.BackupsPath())
	validator := validate.New(probe.NewRunner(cfg.ProbeTimeout), cfg.InstallDir)
	leases := lease.NewManager(filepath.Join(cfg.InstallDir, consts.LeaseFile), cfg.LeaseTTL)

	return &engine{
		Syncer: syncer.New(syncer.Options{
			Source:    source,
			Installed: installed,
			Tracker:   track,
			Backups:   backups,
			Validator: validator,
			Leases:    leases,
			States:    states,
			LogDir:    cfg.InstallDir,
		}),
		Tracker:   track,
		Backups:   backups,
		Installed: installed,
		States:    states,
	}, nil
}

// printValidation renders a validation result the way operators read it:
// every definition on its own line, failures called out, complete picture in
// one report.
func printValidation(res *validate.Result) {
	for _, c := range res.Checks {
		switch {
		case !c.Passed:
			fmt.Printf("  %s %s: %s\n", failMark("✗"), c.Name, c.Reason)
		case c.Reason != "":
			fmt.Printf("  %s %s %s\n", okMark("✓"), c.Name, dimMark("("+c.Reason+")"))
		default:
			fmt.Printf("  %s %s\n", okMark("✓"), c.Name)
		}
	}

	failed := res.Failed()
	fmt.Println()
	if len(failed) > 0 {
		fmt.Printf("Summary: %d checked, %d failed\n", len(res.Checks), len(failed))
		return
	}
	fmt.Printf("Summary: %d checked, all passed\n", len(res.Checks))
}

// printSyncResult renders the outcome of a full sync run: what changed on
// success, or the itemized failure report plus the rollback outcome.
func printSyncResult(res *syncer.Result) {
	switch {
	case res.State == syncer.StateFailed:
		fmt.Printf("%s sync failed and rollback did not recover a valid set\n", failMark("✗"))
		fmt.Println("  Operator intervention required; no installed state is trusted.")

	case res.RolledBack:
		fmt.Printf("%s new set failed validation; rolled back to last-known-good (%s)\n",
			failMark("✗"), res.InstalledRevision)
		for _, c := range res.CandidateValidation.Failed() {
			fmt.Printf("  %s %s: %s\n", failMark("✗"), c.Name, c.Reason)
		}
		fmt.Printf("%s restored set validated successfully\n", okMark("✓"))

	case res.Updated:
		fmt.Printf("%s updated to %s\n", okMark("✓"), res.SourceRevision)
		if res.Diff != nil && !res.Diff.Empty() {
			for _, name := range res.Diff.Added {
				fmt.Printf("  + %s\n", name)
			}
			for _, name := range res.Diff.Modified {
				fmt.Printf("  ~ %s\n", name)
			}
			for _, name := range res.Diff.Removed {
				fmt.Printf("  - %s\n", name)
			}
		}

	default:
		fmt.Printf("%s already at %s; installed set revalidated\n", okMark("✓"), res.SourceRevision)
	}

	if res.TestLogPath != "" {
		fmt.Printf("%s\n", dimMark("test log: "+res.TestLogPath))
	}
}
