package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// DefaultKillGrace is how long a timed out script gets to exit after SIGTERM before it is killed.
const DefaultKillGrace = 5 * time.Second

// maxLoggedOutput caps the amount of script output attached to errors and logs.
const maxLoggedOutput = 4 << 10

// ExecutionIDEnvKey is the environment variable through which a command script learns its execution ID.
const ExecutionIDEnvKey = "REPORT_EXECUTION_ID"

// CommandScript is a Script backed by an external process.
type CommandScript struct {
	// Name identifies the script in logs.
	Name string
	// Interpreter runs Path when set, otherwise Path is executed directly.
	Interpreter string
	Path        string
	Args        []string
	// Dir is the working directory of the process, defaults to the current directory.
	Dir string
	// KillGrace is the time between SIGTERM and SIGKILL when the context is done.
	KillGrace time.Duration
}

// NewCommandScript creates a script that runs path, through interpreter if it is non-empty.
func NewCommandScript(name, interpreter, path string, args ...string) *CommandScript {
	return &CommandScript{
		Name:        name,
		Interpreter: interpreter,
		Path:        path,
		Args:        args,
		KillGrace:   DefaultKillGrace,
	}
}

// String returns the name of the script.
func (s *CommandScript) String() string {
	return s.Name
}

// CommandLine returns the program and arguments the script is started with.
func (s *CommandScript) CommandLine() []string {
	var argv []string
	if s.Interpreter != "" {
		argv = append(argv, s.Interpreter)
	}
	argv = append(argv, s.Path)
	return append(argv, s.Args...)
}

// Run starts the process and waits for it to exit.
//
// When ctx is done the whole process group is sent SIGTERM, and SIGKILL after KillGrace.
// Run does not return before the process has exited.
func (s *CommandScript) Run(ctx context.Context) error {
	logger := LoggerFromContext(ctx)
	argv := s.CommandLine()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = s.Dir
	cmd.Env = os.Environ()
	if id, ok := ExecutionIDFromContext(ctx); ok {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", ExecutionIDEnvKey, id))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return terminateProcessGroup(cmd)
	}
	cmd.WaitDelay = s.KillGrace
	logger.Debug("starting script process", zap.Strings("argv", argv))
	err := cmd.Run()
	// A background child holding the output pipes outlives a leader that already exited cleanly.
	if errors.Is(err, exec.ErrWaitDelay) && ctx.Err() == nil &&
		cmd.ProcessState != nil && cmd.ProcessState.Success() {
		logger.Debug("script left processes holding its output, killing them")
		err = nil
	}
	// Sweep up descendants that outlived the group leader.
	killProcessGroup(cmd)
	if stdout.Len() > 0 {
		logger.Debug("script stdout", zap.String("stdout", truncate(stdout.String())))
	}
	if err != nil {
		return &CommandError{
			Err:    errors.Wrapf(err, "run %s", s.Name),
			Stderr: truncate(stderr.String()),
		}
	}
	return nil
}

// CommandError is returned by a CommandScript whose process failed.
type CommandError struct {
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code of the failed process, or -1 if it did not exit normally.
func (e *CommandError) ExitCode() int {
	return exitCode(e.Err)
}

// exitCode extracts the process exit code from err, or -1 if err carries none.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if xerrors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func truncate(s string) string {
	if len(s) <= maxLoggedOutput {
		return s
	}
	return s[len(s)-maxLoggedOutput:]
}
