// Package tracker answers the drift question: is the installed definition
// set current with respect to the source-of-truth tree?
//
// The source revision is the tree's latest committed identifier when the
// tree is a git checkout, or a content hash of its definition files
// otherwise, so rsync-distributed trees still get drift detection. The
// installed revision comes from the installation's version record. The
// tracker is strictly read-only.
package tracker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/oostools/oossync/pkg/definition"
	"github.com/oostools/oossync/pkg/state"
	"github.com/pkg/errors"
)

// NoRevision is the installed revision reported when no version record
// exists or the record is unreadable. Comparing against it always forces an
// update-and-revalidate pass; drift detection fails open toward
// re-validation, never toward skipping it.
const NoRevision = "none"

// ErrSourceUnavailable is returned when the source-of-truth tree cannot be
// read. No mutation is attempted in that case.
var ErrSourceUnavailable = errors.New("source tree unavailable")

// Tracker computes source and installed revisions for one installation.
type Tracker struct {
	sourceRoot string
	source     *definition.Store
	states     state.Store
}

// New creates a Tracker. sourceRoot is the root of the source-of-truth tree
// (where a .git directory may live); source is the store for its definition
// directory; states holds the installation's version record.
func New(sourceRoot string, source *definition.Store, states state.Store) *Tracker {
	return &Tracker{sourceRoot: sourceRoot, source: source, states: states}
}

// SourceRevision returns the current revision of the source tree: the git
// HEAD commit when the tree is a checkout, otherwise the chained content
// hash of its definition files. Fails with ErrSourceUnavailable when the
// tree cannot be read.
func (t *Tracker) SourceRevision() (string, error) {
	if _, err := os.Stat(t.sourceRoot); err != nil {
		return "", errors.Wrapf(ErrSourceUnavailable, "%s", t.sourceRoot)
	}

	if rev, err := readGitHead(t.sourceRoot); err == nil && rev != "" {
		return rev, nil
	}

	set, err := t.source.Load()
	if err != nil {
		return "", errors.Wrapf(ErrSourceUnavailable, "%s: %v", t.source.Root(), err)
	}

	return set.Sum(), nil
}

// InstalledRevision returns the revision recorded by the installation's
// version record, or NoRevision when the record is absent or unreadable.
func (t *Tracker) InstalledRevision() string {
	rec, err := definition.LoadRecord(t.states)
	if err != nil || rec == nil || rec.Version == "" {
		return NoRevision
	}
	return rec.Version
}

// NeedsUpdate reports whether the installed set has drifted from the source:
// true whenever the two revisions differ or no installed record exists.
func (t *Tracker) NeedsUpdate() (bool, error) {
	src, err := t.SourceRevision()
	if err != nil {
		return false, err
	}

	installed := t.InstalledRevision()
	return installed == NoRevision || installed != src, nil
}

// readGitHead resolves the HEAD commit of the git checkout at root without
// shelling out. Handles detached HEADs, loose refs, and packed refs.
func readGitHead(root string) (string, error) {
	gitDir := filepath.Join(root, ".git")
	head, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return "", err
	}

	line := strings.TrimSpace(string(head))
	if !strings.HasPrefix(line, "ref: ") {
		// Detached HEAD: the file holds the commit itself.
		return line, nil
	}

	ref := strings.TrimPrefix(line, "ref: ")
	if data, err := os.ReadFile(filepath.Join(gitDir, filepath.FromSlash(ref))); err == nil {
		return strings.TrimSpace(string(data)), nil
	}

	// The ref may only exist in packed-refs.
	packed, err := os.ReadFile(filepath.Join(gitDir, "packed-refs"))
	if err != nil {
		return "", err
	}

	for _, entry := range strings.Split(string(packed), "\n") {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "#") || strings.HasPrefix(entry, "^") {
			continue
		}

		parts := strings.SplitN(entry, " ", 2)
		if len(parts) == 2 && parts[1] == ref {
			return parts[0], nil
		}
	}

	return "", errors.Errorf("ref not found: %s", ref)
}
