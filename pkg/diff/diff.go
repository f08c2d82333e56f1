// Package diff computes and renders the change report between two definition
// sets.
package diff

import (
	"bytes"
	"fmt"
	"io"

	"github.com/oostools/oossync/pkg/definition"
)

// Report enumerates the definitions that differ between an old and a new
// set. Every slice is in stable lexical order so reports are reproducible.
type Report struct {
	// Added are names present only in the new set.
	Added []string

	// Removed are names present only in the old set.
	Removed []string

	// Modified are names present in both sets whose serialized content
	// differs byte-for-byte.
	Modified []string
}

// Compute diffs two sets. It is a pure function: deterministic, no side
// effects, and insensitive to everything but names and raw content. A nil
// set is treated as empty, which makes first installs read as all-added.
func Compute(oldSet, newSet *definition.Set) *Report {
	r := &Report{}

	if newSet != nil {
		for _, name := range newSet.Names() {
			if oldSet == nil || oldSet.Get(name) == nil {
				r.Added = append(r.Added, name)
				continue
			}
			if !bytes.Equal(oldSet.Get(name).Raw, newSet.Get(name).Raw) {
				r.Modified = append(r.Modified, name)
			}
		}
	}

	if oldSet != nil {
		for _, name := range oldSet.Names() {
			if newSet == nil || newSet.Get(name) == nil {
				r.Removed = append(r.Removed, name)
			}
		}
	}

	return r
}

// Empty reports whether the two sets were identical.
func (r *Report) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Modified) == 0
}

// WriteTo renders the report in a stable plain-text form, implementing
// io.WriterTo.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var total int64

	write := func(format string, args ...any) error {
		n, err := fmt.Fprintf(w, format, args...)
		total += int64(n)
		return err
	}

	if r.Empty() {
		err := write("no changes\n")
		return total, err
	}

	for _, name := range r.Added {
		if err := write("+ %s\n", name); err != nil {
			return total, err
		}
	}
	for _, name := range r.Modified {
		if err := write("~ %s\n", name); err != nil {
			return total, err
		}
	}
	for _, name := range r.Removed {
		if err := write("- %s\n", name); err != nil {
			return total, err
		}
	}

	return total, nil
}
