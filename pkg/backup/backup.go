// Package backup snapshots installed definition sets before destructive
// changes and restores them verbatim on rollback.
//
// Each snapshot is an immutable, timestamped copy of the installed set under
// the backup root. Backups accumulate until explicitly pruned; the most
// recent one is the authoritative rollback target.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oostools/oossync/pkg/consts"
	"github.com/oostools/oossync/pkg/definition"
	"github.com/pkg/errors"
)

// ErrNoCurrentState is returned by Snapshot when there is nothing installed
// to copy. First-time installs expect this; it short-circuits the backup
// step rather than failing the run.
var ErrNoCurrentState = errors.New("backup: nothing installed to snapshot")

// stampFormat orders snapshot directories chronologically by name.
const stampFormat = "20060102T150405.000000000"

type (
	// Handle identifies one snapshot under the backup root.
	Handle struct {
		// ID is the snapshot directory name: "<timestamp>_<revision>".
		ID string

		// Dir is the absolute path of the snapshot directory.
		Dir string

		// Revision is the revision tag the snapshot was taken under.
		Revision string

		// CreatedAt is the snapshot timestamp parsed from the ID.
		CreatedAt time.Time
	}

	// Manager creates and restores snapshots under a backup root.
	Manager struct {
		root string
		now  func() time.Time
	}
)

// NewManager creates a Manager for the given backup root. The root is
// created lazily on first snapshot.
func NewManager(root string) *Manager {
	return &Manager{root: root, now: time.Now}
}

// Root returns the backup root directory.
func (m *Manager) Root() string {
	return m.root
}

// Snapshot copies the currently installed set into a new uniquely named
// snapshot directory tagged with the given revision. Prior backups are never
// overwritten, and a snapshot is never mutated after creation.
//
// Returns ErrNoCurrentState when the installation has no definitions yet.
func (m *Manager) Snapshot(installed *definition.Store, revision string) (*Handle, error) {
	if !installed.Exists() {
		return nil, ErrNoCurrentState
	}

	set, err := installed.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load installed set for snapshot")
	}
	if set.Len() == 0 {
		return nil, ErrNoCurrentState
	}

	if err := os.MkdirAll(m.root, consts.ModeDir); err != nil {
		return nil, errors.Wrapf(err, "failed to create backup root: %s", m.root)
	}

	stamp := m.now().UTC()
	id := fmt.Sprintf("%s_%s", stamp.Format(stampFormat), sanitizeRevision(revision))
	dir := filepath.Join(m.root, id)

	// Mkdir (not MkdirAll) so a timestamp collision fails instead of reusing
	// an existing snapshot directory.
	if err := os.Mkdir(dir, consts.ModeDir); err != nil {
		return nil, errors.Wrapf(err, "failed to create snapshot directory: %s", id)
	}

	if err := definition.WriteSet(dir, set); err != nil {
		_ = os.RemoveAll(dir)
		return nil, errors.Wrap(err, "failed to write snapshot")
	}

	return &Handle{ID: id, Dir: dir, Revision: revision, CreatedAt: stamp}, nil
}

// Restore replaces the installed set with the snapshot's contents,
// atomically: the restored definitions are staged and swapped in as a whole,
// never mixed with the set they replace. The snapshot itself is read-only
// and survives the restore.
func (m *Manager) Restore(h *Handle, installed *definition.Store) (*definition.Set, error) {
	set, err := definition.NewStore(h.Dir).Load()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load snapshot: %s", h.ID)
	}

	if err := installed.Replace(set); err != nil {
		return nil, errors.Wrapf(err, "failed to restore snapshot: %s", h.ID)
	}

	return set, nil
}

// Latest returns the most recent snapshot, or nil when no backups exist.
func (m *Manager) Latest() (*Handle, error) {
	handles, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, nil
	}
	return handles[len(handles)-1], nil
}

// List returns all snapshots under the backup root, oldest first.
func (m *Manager) List() ([]*Handle, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read backup root: %s", m.root)
	}

	handles := make([]*Handle, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		h, err := parseHandle(m.root, e.Name())
		if err != nil {
			// Unrecognized directories under the backup root are left alone.
			continue
		}
		handles = append(handles, h)
	}

	sort.Slice(handles, func(i, j int) bool { return handles[i].ID < handles[j].ID })
	return handles, nil
}

// Prune removes all but the newest keep snapshots and returns the IDs of the
// removed ones. Pruning is an explicit operation; nothing in the sync path
// deletes backups automatically.
func (m *Manager) Prune(keep int) ([]string, error) {
	if keep < 1 {
		return nil, errors.Errorf("invalid retention count: %d", keep)
	}

	handles, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(handles) <= keep {
		return nil, nil
	}

	var removed []string
	for _, h := range handles[:len(handles)-keep] {
		if err := os.RemoveAll(h.Dir); err != nil {
			return removed, errors.Wrapf(err, "failed to prune snapshot: %s", h.ID)
		}
		removed = append(removed, h.ID)
	}

	return removed, nil
}

func parseHandle(root, name string) (*Handle, error) {
	stamp, revision, ok := strings.Cut(name, "_")
	if !ok {
		return nil, errors.Errorf("not a snapshot directory: %s", name)
	}

	createdAt, err := time.Parse(stampFormat, stamp)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid snapshot timestamp: %s", name)
	}

	return &Handle{
		ID:        name,
		Dir:       filepath.Join(root, name),
		Revision:  revision,
		CreatedAt: createdAt,
	}, nil
}

// sanitizeRevision makes a revision safe for use in a directory name.
func sanitizeRevision(rev string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '-'
		}
	}, rev)
}
