// Package syncer orchestrates the update transaction that keeps an
// installation's definition set synchronized with the source-of-truth tree.
//
// A run moves through a fixed sequence of states:
//
//	IDLE → CHECKING → BACKING_UP → APPLYING → VALIDATING →
//	  {COMMITTED | ROLLING_BACK} → {IDLE | FAILED}
//
// The controlling rule: no state is ever persisted as "current" unless it
// has just passed validation. Validation runs on every invocation, not only
// on detected drift, because backing executables can change independently
// of the version record. The backup/apply/commit sequence is a critical
// section guarded by the installation's lease; an interrupted run leaves a
// pending marker that the next invocation treats exactly like a validation
// failure.
package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/oostools/oossync/pkg/backup"
	"github.com/oostools/oossync/pkg/consts"
	"github.com/oostools/oossync/pkg/definition"
	"github.com/oostools/oossync/pkg/diff"
	"github.com/oostools/oossync/pkg/lease"
	"github.com/oostools/oossync/pkg/state"
	"github.com/oostools/oossync/pkg/tracker"
	"github.com/oostools/oossync/pkg/validate"
	"github.com/pkg/errors"
)

// State identifies where a run ended (or, for Result.Path, passed through).
type State string

const (
	StateIdle        State = "IDLE"
	StateChecking    State = "CHECKING"
	StateBackingUp   State = "BACKING_UP"
	StateApplying    State = "APPLYING"
	StateValidating  State = "VALIDATING"
	StateCommitted   State = "COMMITTED"
	StateRollingBack State = "ROLLING_BACK"
	StateFailed      State = "FAILED"
)

var (
	// ErrSyncInProgress indicates a concurrent invocation holds the
	// installation's lease. The caller should retry later; this is not a
	// sync failure.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrRollbackExhausted indicates both the candidate set and the restored
	// backup failed validation. This is fatal and requires operator
	// intervention; neither state is left marked as trusted.
	ErrRollbackExhausted = errors.New("rollback exhausted: candidate and backup both failed validation")
)

type (
	// Effect is a named side-effect record emitted by a run, so callers and
	// tests can assert on what was touched without re-deriving it from the
	// filesystem.
	Effect struct {
		// Kind names the side effect: "backup", "apply", "restore",
		// "record", "test-log", "pending".
		Kind string

		// Path is the filesystem location affected.
		Path string

		// Detail carries a short human-readable qualifier.
		Detail string
	}

	// Options wires the collaborators a Syncer needs.
	Options struct {
		// Source reads the definition set distributed by the source tree.
		Source *definition.Store

		// Installed reads and replaces the installation's live set.
		Installed *definition.Store

		// Tracker answers the drift question.
		Tracker *tracker.Tracker

		// Backups snapshots and restores installed sets.
		Backups *backup.Manager

		// Validator checks candidate sets.
		Validator *validate.Validator

		// Leases guards the update critical section.
		Leases *lease.Manager

		// States persists the version record and the pending marker.
		States state.Store

		// LogDir is where the rendered test log is written (typically the
		// installation root).
		LogDir string

		// Now allows tests to pin record timestamps. Defaults to time.Now.
		Now func() time.Time
	}

	// Syncer runs the synchronize-or-revalidate transaction for one
	// installation. One invocation at a time; the lease enforces this.
	Syncer struct {
		opts Options
	}

	// Result describes a completed run.
	Result struct {
		// State is the terminal state: StateIdle on success, StateFailed
		// when rollback was exhausted.
		State State

		// SourceRevision and InstalledRevision are the revisions observed
		// at the start of the run.
		SourceRevision    string
		InstalledRevision string

		// Updated reports whether a new set was applied (as opposed to a
		// revalidation-only run).
		Updated bool

		// RolledBack reports whether the run restored the latest backup.
		RolledBack bool

		// Validation is the result for the set that ended up installed.
		// When RolledBack is true this is the restored set's validation;
		// CandidateValidation then holds the failed candidate's result.
		Validation *validate.Result

		// CandidateValidation is the failed candidate's validation result
		// on rollback runs, nil otherwise.
		CandidateValidation *validate.Result

		// Diff enumerates the changes applied by a committed update, nil
		// when nothing was applied.
		Diff *diff.Report

		// TestLogPath is the rendered validation log for this run.
		TestLogPath string

		// Effects records the named side effects of the run in order.
		Effects []Effect
	}
)

// New creates a Syncer from the given options.
func New(opts Options) *Syncer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Syncer{opts: opts}
}

// Sync runs one full synchronize-or-revalidate cycle.
//
// When the installation is current and validates, nothing is mutated. When
// drift is detected (or the current set fails revalidation, or a previous
// run was interrupted), the engine snapshots the installed set, applies the
// source set wholesale, validates it, and either commits a new version
// record or rolls back to the snapshot.
//
// Returns ErrSyncInProgress when another invocation holds the lease and
// ErrRollbackExhausted when neither the candidate nor the backup validates.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	held, err := s.opts.Leases.Acquire()
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			return nil, ErrSyncInProgress
		}
		return nil, err
	}
	defer func() { _ = s.opts.Leases.Release(held) }()

	res := &Result{State: StateChecking}

	if res.SourceRevision, err = s.opts.Tracker.SourceRevision(); err != nil {
		return nil, err
	}
	res.InstalledRevision = s.opts.Tracker.InstalledRevision()

	needsUpdate, err := s.opts.Tracker.NeedsUpdate()
	if err != nil {
		return nil, err
	}

	// A pending marker with no validated record means a previous run died
	// between backup and commit. The half-applied set cannot be trusted;
	// force the update path so it is re-applied and re-validated.
	if s.interrupted() {
		slog.Warn("Detected interrupted update transaction; re-applying source set")
		needsUpdate = true
	}

	if !needsUpdate {
		// Revalidate-without-update path. The set was validated before, but
		// its backing executables may have changed underneath it.
		current, err := s.opts.Installed.Load()
		if err == nil {
			res.State = StateValidating
			res.Validation = s.opts.Validator.Validate(ctx, current)
			if res.Validation.Passed {
				res.State = StateIdle
				s.writeTestLog(res, res.Validation)
				return res, nil
			}
			slog.Warn("Installed set failed revalidation; re-applying from source")
		}
		// Unreadable or invalid current set: self-heal via the update path.
	}

	return s.update(ctx, res)
}

// update executes BACKING_UP → APPLYING → VALIDATING → commit-or-rollback.
func (s *Syncer) update(ctx context.Context, res *Result) (*Result, error) {
	oldSet := s.loadInstalled()

	res.State = StateBackingUp
	var snap *backup.Handle
	if oldSet != nil && oldSet.Len() > 0 {
		var err error
		snap, err = s.opts.Backups.Snapshot(s.opts.Installed, res.InstalledRevision)
		if err != nil && !errors.Is(err, backup.ErrNoCurrentState) {
			return nil, errors.Wrap(err, "failed to snapshot installed set")
		}
		if snap != nil {
			res.effect("backup", snap.Dir, snap.Revision)
		}
	}

	newSet, err := s.opts.Source.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load source set")
	}

	// Mark the transaction in flight before the first destructive write. The
	// swap is conditional on the marker state observed by this run, so a
	// writer that slipped past the lease still cannot go unnoticed.
	var prev []byte
	if data, err := s.opts.States.Read(consts.PendingFile); err == nil {
		prev = data
	}
	if err := s.opts.States.CompareAndSwap(consts.PendingFile, prev, []byte(res.SourceRevision+"\n")); err != nil {
		if errors.Is(err, state.ErrModified) {
			return nil, ErrSyncInProgress
		}
		return nil, errors.Wrap(err, "failed to write pending marker")
	}
	res.effect("pending", consts.PendingFile, res.SourceRevision)

	res.State = StateApplying
	if err := s.opts.Installed.Replace(newSet); err != nil {
		return nil, errors.Wrap(err, "failed to apply new set")
	}
	res.effect("apply", s.opts.Installed.Root(), res.SourceRevision)
	res.Updated = true

	res.State = StateValidating
	candidate := s.opts.Validator.Validate(ctx, newSet)

	if candidate.Passed {
		return s.commit(res, oldSet, newSet, candidate)
	}

	return s.rollback(ctx, res, candidate, snap)
}

// commit persists the new version record and emits the change report.
func (s *Syncer) commit(res *Result, oldSet, newSet *definition.Set, v *validate.Result) (*Result, error) {
	res.State = StateCommitted
	res.Validation = v
	s.writeTestLog(res, v)

	rec := &definition.VersionRecord{
		Version:          res.SourceRevision,
		UpdatedAt:        s.opts.Now().UTC(),
		ValidationPassed: true,
		TotalCommands:    newSet.Len(),
		TestLog:          res.TestLogPath,
	}
	if err := definition.SaveRecord(s.opts.States, rec); err != nil {
		return nil, err
	}
	res.effect("record", consts.VersionFile, res.SourceRevision)

	if err := s.opts.States.Delete(consts.PendingFile); err != nil {
		return nil, errors.Wrap(err, "failed to clear pending marker")
	}

	res.Diff = diff.Compute(oldSet, newSet)
	res.State = StateIdle
	return res, nil
}

// rollback restores the latest backup and revalidates it. A restored set
// that validates returns the installation to last-known-good; one that does
// not is fatal.
func (s *Syncer) rollback(ctx context.Context, res *Result, candidate *validate.Result, snap *backup.Handle) (*Result, error) {
	res.State = StateRollingBack
	res.CandidateValidation = candidate

	if snap == nil {
		var err error
		if snap, err = s.opts.Backups.Latest(); err != nil {
			return nil, errors.Wrap(err, "failed to locate rollback target")
		}
	}

	if snap == nil {
		// First install with a broken source set: nothing to restore.
		res.State = StateFailed
		res.Validation = candidate
		s.writeTestLog(res, candidate)
		s.recordUntrusted(res, candidate)
		return res, ErrRollbackExhausted
	}

	restored, err := s.opts.Backups.Restore(snap, s.opts.Installed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to restore backup")
	}
	res.effect("restore", snap.Dir, snap.Revision)
	res.RolledBack = true

	res.Validation = s.opts.Validator.Validate(ctx, restored)
	s.writeTestLog(res, res.Validation)

	if !res.Validation.Passed {
		res.State = StateFailed
		s.recordUntrusted(res, res.Validation)
		return res, ErrRollbackExhausted
	}

	// Back to last-known-good: the record reflects the pre-update revision.
	rec := &definition.VersionRecord{
		Version:          res.InstalledRevision,
		UpdatedAt:        s.opts.Now().UTC(),
		ValidationPassed: true,
		TotalCommands:    restored.Len(),
		TestLog:          res.TestLogPath,
	}
	if err := definition.SaveRecord(s.opts.States, rec); err != nil {
		return nil, err
	}
	res.effect("record", consts.VersionFile, res.InstalledRevision)

	if err := s.opts.States.Delete(consts.PendingFile); err != nil {
		return nil, errors.Wrap(err, "failed to clear pending marker")
	}

	res.State = StateIdle
	return res, nil
}

// Revalidate runs the validator against the currently installed set without
// touching the tracker, backups, or the version record.
func (s *Syncer) Revalidate(ctx context.Context) (*validate.Result, error) {
	set, err := s.opts.Installed.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load installed set")
	}

	res := s.opts.Validator.Validate(ctx, set)
	if _, err := res.WriteLogFile(s.opts.LogDir); err != nil {
		slog.Warn("Could not write test log", "error", err)
	}
	return res, nil
}

// ActiveNames returns the names of the currently installed definitions, the
// discoverability contract front ends rely on after a commit.
func (s *Syncer) ActiveNames() ([]string, error) {
	set, err := s.opts.Installed.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load installed set")
	}
	return set.Names(), nil
}

// interrupted reports whether a previous run left its transaction
// half-finished. The pending marker is removed only after a version record
// has been committed (or a rollback completed), so its presence always means
// the set on disk was never accepted by a full validation pass.
func (s *Syncer) interrupted() bool {
	return s.opts.States.Exists(consts.PendingFile)
}

func (s *Syncer) loadInstalled() *definition.Set {
	if !s.opts.Installed.Exists() {
		return nil
	}

	set, err := s.opts.Installed.Load()
	if err != nil {
		slog.Warn("Could not load installed set", "error", err)
		return nil
	}
	return set
}

func (s *Syncer) writeTestLog(res *Result, v *validate.Result) {
	path, err := v.WriteLogFile(s.opts.LogDir)
	if err != nil {
		slog.Warn("Could not write test log", "error", err)
		return
	}
	res.TestLogPath = path
	res.effect("test-log", path, "")
}

func (s *Syncer) recordUntrusted(res *Result, v *validate.Result) {
	// Neither the candidate nor the backup can be trusted. Persist that
	// explicitly so front ends stop advertising the commands.
	rec := &definition.VersionRecord{
		Version:          res.SourceRevision,
		UpdatedAt:        s.opts.Now().UTC(),
		ValidationPassed: false,
		TotalCommands:    len(v.Checks),
		TestLog:          res.TestLogPath,
	}
	if err := definition.SaveRecord(s.opts.States, rec); err != nil {
		slog.Error("Could not persist failure record", "error", err)
	}
}

func (r *Result) effect(kind, path, detail string) {
	r.Effects = append(r.Effects, Effect{Kind: kind, Path: path, Detail: detail})
}
