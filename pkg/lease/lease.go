// Package lease provides the mutual-exclusion lease guarding an
// installation's update transaction.
//
// Exactly one synchronization run may hold an installation's lease at a time.
// A second invocation that finds the lease held fails fast with ErrHeld
// rather than interleaving writes. Leases left behind by crashed runs are
// detected as stale (expired or owned by a dead process) and reclaimed.
package lease

import (
	"encoding/json"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/oostools/oossync/pkg/consts"
	"github.com/pkg/errors"
)

// ErrHeld is returned by Acquire when another live invocation holds the
// lease. Callers should retry later; this is not a sync failure.
var ErrHeld = errors.New("lease: held by another invocation")

type (
	// Lease is a held lease. Only the holder of the matching token may
	// release it.
	Lease struct {
		// Token uniquely identifies this acquisition.
		Token string `json:"token"`

		// PID is the process that acquired the lease, used for liveness
		// checks when deciding whether an on-disk lease is stale.
		PID int `json:"pid"`

		// AcquiredAt is when the lease was taken.
		AcquiredAt time.Time `json:"acquired_at"`
	}

	// Manager acquires and releases the lease file for one installation.
	Manager struct {
		path string
		ttl  time.Duration
		now  func() time.Time
	}
)

// NewManager creates a lease Manager for the lease file at path. A lease
// older than ttl is considered stale regardless of owner liveness.
func NewManager(path string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Manager{path: path, ttl: ttl, now: time.Now}
}

// Acquire takes the lease, reclaiming a stale one if necessary. Returns
// ErrHeld when a live invocation already owns it.
func (m *Manager) Acquire() (*Lease, error) {
	lease := &Lease{
		Token:      uuid.NewString(),
		PID:        os.Getpid(),
		AcquiredAt: m.now(),
	}

	data, err := json.Marshal(lease)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal lease")
	}

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, consts.ModeFile)
	if os.IsExist(err) {
		if !m.isStale() {
			return nil, ErrHeld
		}

		// Stale lease from an interrupted run: reclaim it.
		if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to reclaim stale lease")
		}
		f, err = os.OpenFile(m.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, consts.ModeFile)
		if os.IsExist(err) {
			return nil, ErrHeld
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to create lease file")
		}
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to create lease file")
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(m.path)
		return nil, errors.Wrap(err, "failed to write lease file")
	}

	return lease, nil
}

// Release removes the lease if l still owns it. Releasing a lease that has
// already been reclaimed by another invocation is an error.
func (m *Manager) Release(l *Lease) error {
	current, err := m.read()
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil
		}
		return err
	}

	if current.Token != l.Token {
		return errors.Errorf("lease token mismatch: held by pid %d", current.PID)
	}

	return errors.Wrap(os.Remove(m.path), "failed to remove lease file")
}

// isStale reports whether the current on-disk lease can be reclaimed: it is
// unreadable, past its ttl, or owned by a process that no longer exists.
func (m *Manager) isStale() bool {
	current, err := m.read()
	if err != nil {
		// Unreadable or corrupt lease files cannot be trusted to represent a
		// live run.
		return true
	}

	if m.now().Sub(current.AcquiredAt) > m.ttl {
		return true
	}

	return !processAlive(current.PID)
}

func (m *Manager) read() (*Lease, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read lease file")
	}

	var l Lease
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrap(err, "failed to parse lease file")
	}
	return &l, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
