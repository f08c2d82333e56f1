// Package definition provides the data model and storage layer for oos
// command definitions.
//
// A command definition is a markdown file with a YAML frontmatter block that
// names a distributable operation, its capability requirements, and the
// backing executable the operation delegates to. This package handles:
//   - Parsing definition files (frontmatter + opaque body)
//   - Managing definition sets with uniqueness guarantees
//   - Loading and atomically replacing the set installed under a directory
//   - Content hashing of sets for revision computation and integrity checks
package definition

import (
	"slices"
	"strings"

	"github.com/oostools/oossync/pkg/consts"
	"github.com/pkg/errors"
)

type (
	// Definition represents one distributable operation. The frontmatter
	// metadata is parsed into Meta; the body and the exact on-disk bytes are
	// retained so that sets can be compared and copied byte-for-byte.
	Definition struct {
		// Name is the unique identifier of the definition within a set,
		// derived from the file's base name without extension.
		Name string

		// Meta holds the parsed frontmatter metadata.
		Meta Meta

		// Body is the free-form markdown following the frontmatter. The
		// engine treats it as opaque documentation.
		Body string

		// Raw is the complete file content exactly as read from disk. All
		// comparisons and copies operate on Raw so that a restored or
		// re-distributed definition is bit-identical to its origin.
		Raw []byte
	}

	// Meta is the YAML frontmatter of a definition file.
	Meta struct {
		// Description is a human-readable summary. Required.
		Description string `yaml:"description"`

		// Capabilities is the ordered set of externally-granted permissions
		// the operation needs. Required whenever Exec is set.
		Capabilities []string `yaml:"capabilities,omitempty"`

		// Exec is the path of the executable this definition delegates to,
		// absolute or relative to the installation root. Optional; purely
		// informational definitions carry no backing executable.
		Exec string `yaml:"exec,omitempty"`
	}

	// Set is the totality of definitions for one installation at one point in
	// time. A set is exclusively owned by a single installation and is
	// replaced wholesale on each successful sync.
	Set struct {
		defs  map[string]*Definition
		names []string
	}
)

// NewSet creates a Set from the given definitions. Definition names must be
// unique; a duplicate name is an error.
func NewSet(defs ...*Definition) (*Set, error) {
	s := &Set{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := s.add(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) add(d *Definition) error {
	if d.Name == "" {
		return errors.New("definition has empty name")
	}
	if _, ok := s.defs[d.Name]; ok {
		return errors.Errorf("duplicate definition: %s", d.Name)
	}

	s.defs[d.Name] = d
	s.names = append(s.names, d.Name)
	slices.Sort(s.names)
	return nil
}

// Get returns the definition with the given name, or nil if the set does not
// contain it.
func (s *Set) Get(name string) *Definition {
	return s.defs[name]
}

// Names returns the definition names in stable lexical order.
func (s *Set) Names() []string {
	return slices.Clone(s.names)
}

// Len returns the number of definitions in the set.
func (s *Set) Len() int {
	return len(s.defs)
}

// Definitions returns the definitions in stable lexical order by name.
func (s *Set) Definitions() []*Definition {
	out := make([]*Definition, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.defs[name])
	}
	return out
}

// Sum computes the content revision of the set: a chained SHA256 hash over
// every definition's raw content in lexical name order. Two sets containing
// byte-identical definitions under the same names produce the same revision.
func (s *Set) Sum() string {
	sum := NewSumFile()
	for _, d := range s.Definitions() {
		sum.Add(d.Name+consts.DefinitionExt, d.Raw)
	}
	return sum.TotalHash()
}

// String renders a short human-readable summary of a definition.
func (d *Definition) String() string {
	var b strings.Builder
	b.WriteString(d.Name)
	if d.Meta.Exec != "" {
		b.WriteString(" -> ")
		b.WriteString(d.Meta.Exec)
	}
	return b.String()
}
