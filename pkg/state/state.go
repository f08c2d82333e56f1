// Package state provides the state-store abstraction backing version records
// and transaction markers.
//
// The synchronization engine never touches marker files directly; everything
// it persists as "current state" goes through a Store. This keeps the
// orchestration logic independent of where state lives; the default is a
// local filesystem root, but the same interface can front an embedded
// database or a remote config store.
package state

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/oostools/oossync/pkg/consts"
	"github.com/pkg/errors"
)

// ErrModified is returned by CompareAndSwap when the stored document no
// longer matches the expected previous content.
var ErrModified = errors.New("state: document modified concurrently")

// Store is a small named-document store with read, write and
// compare-and-swap semantics.
type Store interface {
	// Read returns the full content of the named document. A missing
	// document satisfies errors.Is(err, os.ErrNotExist).
	Read(name string) ([]byte, error)

	// Write replaces the named document atomically.
	Write(name string, data []byte) error

	// CompareAndSwap replaces the named document only if its current content
	// equals old. A nil old means "document must not exist". Returns
	// ErrModified on mismatch.
	CompareAndSwap(name string, old, data []byte) error

	// Delete removes the named document. Deleting a missing document is not
	// an error.
	Delete(name string) error

	// Exists reports whether the named document exists.
	Exists(name string) bool
}

// FileStore implements Store on a directory, one file per document. Writes
// stage into a temp file and rename into place so readers never observe a
// torn document.
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at dir, creating dir if necessary.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, consts.ModeDir); err != nil {
		return nil, errors.Wrapf(err, "failed to create state directory: %s", dir)
	}
	return &FileStore{root: dir}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.root, name)
}

// Read implements Store.
func (f *FileStore) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(f.path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read state document: %s", name)
	}
	return data, nil
}

// Write implements Store.
func (f *FileStore) Write(name string, data []byte) error {
	tmp, err := os.CreateTemp(f.root, name+".tmp*")
	if err != nil {
		return errors.Wrapf(err, "failed to stage state document: %s", name)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to write state document: %s", name)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to close state document: %s", name)
	}
	if err := os.Chmod(tmp.Name(), consts.ModeFile); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "failed to set mode on state document: %s", name)
	}

	return errors.Wrapf(os.Rename(tmp.Name(), f.path(name)), "failed to commit state document: %s", name)
}

// CompareAndSwap implements Store.
func (f *FileStore) CompareAndSwap(name string, old, data []byte) error {
	current, err := os.ReadFile(f.path(name))
	switch {
	case err == nil:
		if old == nil || !bytes.Equal(current, old) {
			return ErrModified
		}
	case os.IsNotExist(err):
		if old != nil {
			return ErrModified
		}
	default:
		return errors.Wrapf(err, "failed to read state document: %s", name)
	}

	return f.Write(name, data)
}

// Delete implements Store.
func (f *FileStore) Delete(name string) error {
	if err := os.Remove(f.path(name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete state document: %s", name)
	}
	return nil
}

// Exists implements Store.
func (f *FileStore) Exists(name string) bool {
	_, err := os.Stat(f.path(name))
	return err == nil
}

// Root returns the directory backing the store.
func (f *FileStore) Root() string {
	return f.root
}
