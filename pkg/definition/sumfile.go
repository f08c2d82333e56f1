package definition

import (
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

type (
	// SumFile accumulates per-file SHA256 hashes for a definition set using a
	// chained scheme: each file's hash incorporates the previous file's hash,
	// so the total is sensitive to both content and order. The serialized
	// form doubles as the set's content revision when no committed source
	// identifier is available.
	SumFile struct {
		entries []sumEntry
	}

	sumEntry struct {
		Name string
		Hash []byte
	}
)

// NewSumFile creates an empty SumFile ready to accept files.
func NewSumFile() *SumFile {
	return &SumFile{entries: make([]sumEntry, 0)}
}

// Add hashes the given content and appends it to the sum file. For the first
// file the hash is SHA256(content); for subsequent files the previous entry's
// hash is mixed in, chaining the sequence.
func (s *SumFile) Add(name string, content []byte) {
	hasher := sha256.New()
	hasher.Write(content)
	if len(s.entries) > 0 {
		hasher.Write(s.entries[len(s.entries)-1].Hash)
	}

	s.entries = append(s.entries, sumEntry{Name: name, Hash: hasher.Sum(nil)})
}

// Files returns the number of entries in the sum file.
func (s *SumFile) Files() int {
	return len(s.entries)
}

// TotalHash returns the combined hash over all entry hashes in "h1:" base64
// form, or the empty string for an empty sum file.
func (s *SumFile) TotalHash() string {
	if len(s.entries) == 0 {
		return ""
	}

	hasher := sha256.New()
	for _, e := range s.entries {
		hasher.Write(e.Hash)
	}
	return "h1:" + base64.StdEncoding.EncodeToString(hasher.Sum(nil))
}

// WriteTo serializes the sum file: the total hash on the first line followed
// by one "<name> h1:<hash>" line per entry. It implements io.WriterTo.
func (s *SumFile) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := fmt.Fprintf(w, "%s\n", s.TotalHash())
	if err != nil {
		return total, err
	}
	total += int64(n)

	for _, e := range s.entries {
		n, err := fmt.Fprintf(w, "%s h1:%s\n", e.Name, base64.StdEncoding.EncodeToString(e.Hash))
		if err != nil {
			return total, err
		}
		total += int64(n)
	}

	return total, nil
}

// LoadSumFile reads a sum file in the format produced by WriteTo.
func LoadSumFile(r io.Reader) (*SumFile, error) {
	scanner := bufio.NewScanner(r)
	sum := NewSumFile()

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to read total hash line")
		}
		return sum, nil
	}

	totalLine := strings.TrimSpace(scanner.Text())
	if totalLine != "" && !strings.HasPrefix(totalLine, "h1:") {
		return nil, errors.Errorf("invalid total hash format: %s", totalLine)
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[1], "h1:") {
			return nil, errors.Errorf("invalid sum file entry: %s", line)
		}

		hash, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(parts[1], "h1:"))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode hash for: %s", parts[0])
		}

		sum.entries = append(sum.entries, sumEntry{Name: parts[0], Hash: hash})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading sum file")
	}

	return sum, nil
}
