package definition

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oostools/oossync/pkg/consts"
	"github.com/pkg/errors"
)

// Store is the data-access layer for the definition set rooted at a single
// directory. The same type serves both the source-of-truth tree's command
// directory and an installation's live directory; only the orchestration
// layer distinguishes the two.
type Store struct {
	root string
}

// NewStore creates a Store for the definition directory at root. The
// directory does not need to exist yet; Exists reports whether it does.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the directory this store reads from and writes to.
func (s *Store) Root() string {
	return s.root
}

// Exists reports whether the store's directory exists and contains at least
// one definition file.
func (s *Store) Exists() bool {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return false
	}

	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == consts.DefinitionExt {
			return true
		}
	}
	return false
}

// Load reads every definition file under the store's directory and returns
// them as a Set. Files are walked in lexical order; non-definition files are
// ignored.
//
// Example usage:
//
//	store := definition.NewStore("/home/me/.oos/commands")
//	set, err := store.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("loaded %d definitions\n", set.Len())
func (s *Store) Load() (*Set, error) {
	var defs []*Definition

	// NB: WalkDir always walks in lexical order.
	if err := fs.WalkDir(os.DirFS(s.root), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != consts.DefinitionExt {
			return nil
		}

		f, err := os.Open(filepath.Join(s.root, path))
		if err != nil {
			return errors.Wrapf(err, "failed to open: %s", path)
		}
		defer func() { _ = f.Close() }()

		name := strings.TrimSuffix(filepath.Base(path), consts.DefinitionExt)
		def, err := Parse(name, f)
		if err != nil {
			return err
		}

		defs = append(defs, def)
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "failed to load definitions: %s", s.root)
	}

	return NewSet(defs...)
}

// Replace swaps the installed definition set for the given one atomically.
// The new set is staged into a sibling directory and moved into place with
// directory renames, so a reader never observes a partial mixture of old and
// new definitions. The set's sum file is written alongside the definitions.
func (s *Store) Replace(set *Set) error {
	staging := s.root + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return errors.Wrap(err, "failed to clear staging directory")
	}

	if err := WriteSet(staging, set); err != nil {
		return err
	}

	old := s.root + ".old"
	if err := os.RemoveAll(old); err != nil {
		return errors.Wrap(err, "failed to clear old directory")
	}

	if _, err := os.Stat(s.root); err == nil {
		if err := os.Rename(s.root, old); err != nil {
			return errors.Wrap(err, "failed to move current set aside")
		}
	}

	if err := os.Rename(staging, s.root); err != nil {
		// Put the previous set back so the installation is never left empty.
		_ = os.Rename(old, s.root)
		return errors.Wrap(err, "failed to move new set into place")
	}

	return errors.Wrap(os.RemoveAll(old), "failed to remove superseded set")
}

// WriteSet writes every definition in the set into dir (creating it if
// needed), followed by the set's sum file. Each definition file is written
// byte-for-byte from its original content.
func WriteSet(dir string, set *Set) error {
	if err := os.MkdirAll(dir, consts.ModeDir); err != nil {
		return errors.Wrapf(err, "failed to create directory: %s", dir)
	}

	sum := NewSumFile()
	for _, def := range set.Definitions() {
		name := def.Name + consts.DefinitionExt
		if err := os.WriteFile(filepath.Join(dir, name), def.Raw, consts.ModeFile); err != nil {
			return errors.Wrapf(err, "failed to write definition: %s", name)
		}
		sum.Add(name, def.Raw)
	}

	f, err := os.OpenFile(filepath.Join(dir, consts.SumFile), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, consts.ModeFile)
	if err != nil {
		return errors.Wrap(err, "failed to create sum file")
	}
	defer func() { _ = f.Close() }()

	_, err = sum.WriteTo(f)
	return errors.Wrap(err, "failed to write sum file")
}
