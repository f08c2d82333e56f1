package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oostools/oossync/pkg/consts"
	"github.com/pkg/errors"
)

// WriteTo renders the validation result as a markdown log, one line per
// definition in check order. It implements io.WriterTo. The rendered form is
// a convenience for operators; the per-definition outcomes in Checks remain
// the programmatic interface.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	var total int64

	write := func(format string, args ...any) error {
		n, err := fmt.Fprintf(w, format, args...)
		total += int64(n)
		return err
	}

	status := "PASSED"
	if !r.Passed {
		status = "FAILED"
	}

	if err := write("# Validation %s at %s\n\n", status, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return total, err
	}

	for _, c := range r.Checks {
		mark := "ok"
		if !c.Passed {
			mark = "FAIL"
		}

		if c.Reason == "" {
			if err := write("- [%s] %s\n", mark, c.Name); err != nil {
				return total, err
			}
			continue
		}
		if err := write("- [%s] %s: %s\n", mark, c.Name, c.Reason); err != nil {
			return total, err
		}
	}

	return total, nil
}

// WriteLogFile writes the rendered log into dir, replacing any log from a
// previous pass, and returns the file's path. The log records the current
// run only; history lives in the backups, not here.
func (r *Result) WriteLogFile(dir string) (string, error) {
	path := filepath.Join(dir, consts.TestLogFile)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, consts.ModeFile)
	if err != nil {
		return "", errors.Wrap(err, "failed to create test log")
	}
	defer func() { _ = f.Close() }()

	if _, err := r.WriteTo(f); err != nil {
		return "", errors.Wrap(err, "failed to write test log")
	}

	return path, nil
}

// Failed returns the checks that failed, in order.
func (r *Result) Failed() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}
