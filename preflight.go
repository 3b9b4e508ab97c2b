package report

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
)

// Checker is any script with a pre-start sanity check.
type Checker interface {
	Check(context.Context) error
}

// Check runs the script's pre-start check, if the script has one.
//
// A failed check is not fatal: the script may become runnable before the next trigger.
func (r *Reporter) Check(ctx context.Context) error {
	checker, ok := r.cfg.Script.(Checker)
	if !ok {
		return nil
	}
	return errors.Wrapf(checker.Check(ctx), "check %s", r.name)
}

// Check verifies that the interpreter can be found and that the script file exists.
func (s *CommandScript) Check(_ context.Context) error {
	if s.Interpreter != "" {
		if _, err := exec.LookPath(s.Interpreter); err != nil {
			return errors.Wrap(err, "interpreter")
		}
		if _, err := os.Stat(s.resolve(s.Path)); err != nil {
			return errors.Wrap(err, "script")
		}
		return nil
	}
	if _, err := exec.LookPath(s.resolve(s.Path)); err != nil {
		return errors.Wrap(err, "script")
	}
	return nil
}

func (s *CommandScript) resolve(path string) string {
	if s.Dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Dir, path)
}
