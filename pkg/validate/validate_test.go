package validate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oostools/oossync/pkg/definition"
	"github.com/oostools/oossync/pkg/probe"
	. "github.com/oostools/oossync/pkg/validate"
	"github.com/stretchr/testify/require"
)

// stubRunner returns canned probe results per executable path.
type stubRunner struct {
	results map[string]*probe.Result
	err     error
	calls   []string
}

func (s *stubRunner) Run(_ context.Context, name string, _ ...string) (*probe.Result, error) {
	s.calls = append(s.calls, name)
	if s.err != nil {
		return nil, s.err
	}
	if res, ok := s.results[name]; ok {
		return res, nil
	}
	return &probe.Result{ExitCode: 0}, nil
}

func TestValidate(t *testing.T) {
	t.Run("passes a purely informational definition", func(t *testing.T) {
		root := t.TempDir()
		v := New(&stubRunner{}, root)

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: Notes only\n---\n",
		))
		require.True(t, res.Passed)
		require.Len(t, res.Checks, 1)
		require.True(t, res.Checks[0].Passed)
		require.Empty(t, res.Checks[0].Reason)
	})

	t.Run("fails on a missing description", func(t *testing.T) {
		v := New(&stubRunner{}, t.TempDir())

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: \"\"\n---\n",
		))
		require.False(t, res.Passed)
		require.Contains(t, res.Checks[0].Reason, "missing description")
	})

	t.Run("fails on an executable without capabilities", func(t *testing.T) {
		root := t.TempDir()
		writeExecutable(t, root, "bin/tool")
		v := New(&stubRunner{}, root)

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: Has exec\nexec: bin/tool\n---\n",
		))
		require.False(t, res.Passed)
		require.Contains(t, res.Checks[0].Reason, "no capabilities")
	})

	t.Run("fails on a missing backing executable", func(t *testing.T) {
		v := New(&stubRunner{}, t.TempDir())

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: Has exec\ncapabilities: [exec]\nexec: bin/absent\n---\n",
		))
		require.False(t, res.Passed)
		require.Contains(t, res.Checks[0].Reason, "not found")
	})

	t.Run("fails on a non-executable backing file", func(t *testing.T) {
		root := t.TempDir()
		path := filepath.Join(root, "bin", "tool")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644))
		v := New(&stubRunner{}, root)

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: Has exec\ncapabilities: [exec]\nexec: bin/tool\n---\n",
		))
		require.False(t, res.Passed)
		require.Contains(t, res.Checks[0].Reason, "not executable")
	})

	t.Run("probes resolvable executables", func(t *testing.T) {
		root := t.TempDir()
		writeExecutable(t, root, "bin/tool")
		runner := &stubRunner{}
		v := New(runner, root)

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: Has exec\ncapabilities: [exec]\nexec: bin/tool\n---\n",
		))
		require.True(t, res.Passed)
		require.Equal(t, []string{filepath.Join(root, "bin", "tool")}, runner.calls)
	})

	t.Run("probe timeout passes with a note", func(t *testing.T) {
		root := t.TempDir()
		writeExecutable(t, root, "bin/interactive")
		runner := &stubRunner{results: map[string]*probe.Result{
			filepath.Join(root, "bin", "interactive"): {ExitCode: -1, TimedOut: true},
		}}
		v := New(runner, root)

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: Blocks on input\ncapabilities: [exec]\nexec: bin/interactive\n---\n",
		))
		require.True(t, res.Passed)
		require.True(t, res.Checks[0].TimedOut)
		require.Contains(t, res.Checks[0].Reason, "timed out")
	})

	t.Run("nonzero probe exit passes with a note", func(t *testing.T) {
		root := t.TempDir()
		writeExecutable(t, root, "bin/grumpy")
		runner := &stubRunner{results: map[string]*probe.Result{
			filepath.Join(root, "bin", "grumpy"): {ExitCode: 2},
		}}
		v := New(runner, root)

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: Exits nonzero\ncapabilities: [exec]\nexec: bin/grumpy\n---\n",
		))
		require.True(t, res.Passed)
		require.Contains(t, res.Checks[0].Reason, "code 2")
	})

	t.Run("probe launch failure still passes the structural checks", func(t *testing.T) {
		root := t.TempDir()
		writeExecutable(t, root, "bin/odd")
		runner := &stubRunner{err: os.ErrPermission}
		v := New(runner, root)

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: Odd binary\ncapabilities: [exec]\nexec: bin/odd\n---\n",
		))
		require.True(t, res.Passed)
		require.Contains(t, res.Checks[0].Reason, "could not launch")
	})

	t.Run("checks every definition without short-circuiting", func(t *testing.T) {
		v := New(&stubRunner{}, t.TempDir())

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: \"\"\n---\n",
			"---\ndescription: Fine\n---\n",
			"---\ndescription: \"\"\n---\n",
		))
		require.False(t, res.Passed)
		require.Len(t, res.Checks, 3)
		require.Len(t, res.Failed(), 2)
	})

	t.Run("resolves absolute executable paths as-is", func(t *testing.T) {
		root := t.TempDir()
		abs := filepath.Join(t.TempDir(), "tool")
		require.NoError(t, os.WriteFile(abs, []byte("#!/bin/sh\n"), 0o755))
		runner := &stubRunner{}
		v := New(runner, root)

		res := v.Validate(context.Background(), set(t,
			"---\ndescription: Absolute\ncapabilities: [exec]\nexec: "+abs+"\n---\n",
		))
		require.True(t, res.Passed)
		require.Equal(t, []string{abs}, runner.calls)
	})
}

// set builds a definition set from raw file contents; names are generated in
// lexical order so check order matches input order.
func set(t *testing.T, contents ...string) *definition.Set {
	t.Helper()

	defs := make([]*definition.Definition, 0, len(contents))
	for i, content := range contents {
		name := string(rune('a'+i)) + "-def"
		d, err := definition.Parse(name, strings.NewReader(content))
		require.NoError(t, err)
		defs = append(defs, d)
	}

	s, err := definition.NewSet(defs...)
	require.NoError(t, err)
	return s
}

func writeExecutable(t *testing.T, root, rel string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
}
