// Package validate checks the structural correctness of a definition set:
// required metadata present, backing executables resolvable, and a bounded
// presence probe of each executable.
//
// All definitions are always checked; a bad definition never short-circuits
// the pass, so a single report shows the complete picture. Probe timeouts
// are recorded but never fail a definition; a binary that blocks waiting for
// interactive input is a legitimate backing executable.
package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oostools/oossync/pkg/definition"
	"github.com/oostools/oossync/pkg/probe"
)

type (
	// Check is the validation outcome for one definition.
	Check struct {
		// Name is the definition checked.
		Name string

		// Passed reports whether the definition satisfied every structural
		// requirement.
		Passed bool

		// Reason explains a failure, or notes a probe timeout on a passing
		// definition. Empty for a clean pass.
		Reason string

		// TimedOut reports whether the presence probe hit its deadline.
		// Timed-out probes count as passing.
		TimedOut bool
	}

	// Result aggregates the per-definition checks for one validation pass.
	// Passed is true iff every definition passed its structural checks.
	Result struct {
		Passed bool
		Checks []Check
	}

	// Validator validates definition sets. execRoot is the directory against
	// which relative backing-executable paths resolve.
	Validator struct {
		runner   probe.Runner
		execRoot string
	}
)

// New creates a Validator using the given probe runner. Relative executable
// references resolve against execRoot.
func New(runner probe.Runner, execRoot string) *Validator {
	return &Validator{runner: runner, execRoot: execRoot}
}

// Validate checks every definition in the set, in lexical name order, and
// returns the aggregated result. Checks per definition:
//
//  1. description must be non-empty
//  2. capabilities must be non-empty when a backing executable is declared
//  3. the backing executable must exist and be marked executable
//  4. a bounded presence probe of the executable; a timeout passes, a
//     nonzero exit passes (the binary launched), and launch failures are
//     already covered by check 3
func (v *Validator) Validate(ctx context.Context, set *definition.Set) *Result {
	res := &Result{Passed: true}

	for _, def := range set.Definitions() {
		check := v.checkDefinition(ctx, def)
		if !check.Passed {
			res.Passed = false
		}
		res.Checks = append(res.Checks, check)
	}

	return res
}

func (v *Validator) checkDefinition(ctx context.Context, def *definition.Definition) Check {
	check := Check{Name: def.Name}

	if def.Meta.Description == "" {
		check.Reason = "missing description"
		return check
	}

	if def.Meta.Exec == "" {
		check.Passed = true
		return check
	}

	if len(def.Meta.Capabilities) == 0 {
		check.Reason = "declares an executable but no capabilities"
		return check
	}

	path := v.resolveExec(def.Meta.Exec)
	info, err := os.Stat(path)
	if err != nil {
		check.Reason = fmt.Sprintf("backing executable not found: %s", def.Meta.Exec)
		return check
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		check.Reason = fmt.Sprintf("backing reference is not executable: %s", def.Meta.Exec)
		return check
	}

	check.Passed = true

	result, err := v.runner.Run(ctx, path)
	switch {
	case err != nil:
		// The file exists and is executable but would not launch. Still a
		// structural pass per checks 1-3; record the anomaly for the log.
		check.Reason = fmt.Sprintf("probe could not launch: %v", err)
	case result.TimedOut:
		check.TimedOut = true
		check.Reason = "probe timed out (assumed interactive)"
	case result.ExitCode != 0:
		check.Reason = fmt.Sprintf("probe exited with code %d", result.ExitCode)
	}

	return check
}

func (v *Validator) resolveExec(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(v.execRoot, ref)
}
