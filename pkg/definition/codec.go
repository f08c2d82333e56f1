package definition

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// Parse creates a Definition from the provided reader. The content must open
// with a YAML frontmatter block delimited by "---" lines; everything after
// the closing delimiter is kept verbatim as the body.
//
// Example content:
//
//	---
//	description: Stage, commit and push the current work tree
//	capabilities: [git-write, network]
//	exec: bin/oos-git-sync
//	---
//	Run after reviewing staged changes.
//
// Returns an error if the frontmatter block is missing, unterminated, or not
// valid YAML. Structural requirements on the metadata itself (non-empty
// description, capabilities, resolvable executable) are the validator's
// concern, not the codec's.
func Parse(name string, r io.Reader) (*Definition, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read definition: %s", name)
	}

	front, body, err := splitFrontmatter(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid definition: %s", name)
	}

	var meta Meta
	if err := yaml.Unmarshal(front, &meta); err != nil {
		return nil, errors.Wrapf(err, "failed to parse frontmatter: %s", name)
	}

	return &Definition{
		Name: name,
		Meta: meta,
		Body: body,
		Raw:  raw,
	}, nil
}

// splitFrontmatter splits raw content into the YAML frontmatter block and the
// remaining body. The opening delimiter must be the first non-blank line.
func splitFrontmatter(raw []byte) (front []byte, body string, err error) {
	content := string(raw)
	trimmed := strings.TrimLeft(content, "\r\n")
	if !strings.HasPrefix(trimmed, frontmatterDelim+"\n") && trimmed != frontmatterDelim {
		return nil, "", errors.New("missing frontmatter block")
	}

	rest := strings.TrimPrefix(trimmed, frontmatterDelim+"\n")
	idx := strings.Index(rest, "\n"+frontmatterDelim)
	if idx < 0 {
		return nil, "", errors.New("unterminated frontmatter block")
	}

	front = []byte(rest[:idx])
	after := rest[idx+len("\n"+frontmatterDelim):]
	after = strings.TrimPrefix(after, "\n")
	return front, after, nil
}

// WriteTo writes the definition's exact original content to w, implementing
// io.WriterTo. Definitions are always written back byte-for-byte; the parsed
// representation is never re-serialized.
func (d *Definition) WriteTo(w io.Writer) (int64, error) {
	n, err := io.Copy(w, bytes.NewReader(d.Raw))
	return n, errors.Wrapf(err, "failed to write definition: %s", d.Name)
}
