// Package report runs an external report script on demand and records the outcome of each execution.
package report

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"sync"
	"time"

	"github.com/einride/clock-go/pkg/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// DefaultTimeout is the hard wall-clock limit for a single script execution.
const DefaultTimeout = 300 * time.Second

// ErrClosed is the error of executions triggered after the reporter was closed.
var ErrClosed = errors.New("reporter closed")

// Config contains the full set of dependencies for a reporter.
type Config struct {
	Script             Script
	ExecutionListeners []func(Execution)
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	Clock   clock.Clock
	Logger  *zap.Logger
}

// Reporter triggers executions of a report script.
//
// Trigger may be called concurrently, in which case the script runs concurrently.
type Reporter struct {
	// immutable, initialized by constructor
	cfg  Config
	name string
	// in-flight executions, guarded by mutex
	mutex    sync.Mutex
	closed   bool
	inFlight map[uuid.UUID]context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a new reporter from a config.
func New(cfg *Config) *Reporter {
	r := &Reporter{cfg: *cfg, inFlight: make(map[uuid.UUID]context.CancelFunc)}
	if r.cfg.Timeout <= 0 {
		r.cfg.Timeout = DefaultTimeout
	}
	if r.cfg.Clock == nil {
		r.cfg.Clock = clock.System()
	}
	if r.cfg.Logger == nil {
		r.cfg.Logger = zap.NewNop()
	}
	r.name = scriptName(r.cfg.Script)
	return r
}

// Name returns the name of the script triggered by the reporter.
func (r *Reporter) Name() string {
	return r.name
}

// Timeout returns the execution deadline applied by Trigger.
func (r *Reporter) Timeout() time.Duration {
	return r.cfg.Timeout
}

// Trigger runs the script synchronously and returns the resulting execution.
//
// Cancellation of ctx is not propagated to the script: once started it runs until it exits,
// the reporter timeout expires or the reporter is closed.
// Exactly one execution is reported to the listeners per call.
func (r *Reporter) Trigger(ctx context.Context) Execution {
	id := uuid.New()
	logger := r.cfg.Logger.With(zap.Stringer("executionID", id), zap.String("script", r.name))
	logger.Info("Executing report script")
	start := r.cfg.Clock.Now()
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
	defer cancel()
	err := ErrClosed
	if r.begin(id, cancel) {
		defer r.end(id)
		err = r.run(withExecution(runCtx, id, logger))
	}
	now := r.cfg.Clock.Now()
	execution := Execution{
		ID:       id,
		Script:   r.name,
		Time:     now,
		Duration: now.Sub(start),
		ExitCode: exitCode(err),
		Err:      err,
	}
	switch {
	case err == nil:
		execution.Status = StatusSuccess
		execution.ExitCode = 0
		logger.Info("Report script executed successfully", zap.Object("execution", execution))
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		execution.Status = StatusTimeout
		logger.Error(
			"Report script execution timed out",
			zap.Duration("timeout", r.cfg.Timeout),
			zap.Object("execution", execution),
		)
	case errors.Is(runCtx.Err(), context.Canceled):
		execution.Status = StatusError
		logger.Error("Report script execution stopped by reporter shutdown", zap.Object("execution", execution))
	default:
		execution.Status = StatusError
		fields := []zap.Field{zap.Object("execution", execution)}
		var cmdErr *CommandError
		if xerrors.As(err, &cmdErr) && cmdErr.Stderr != "" {
			fields = append(fields, zap.String("stderr", cmdErr.Stderr))
		}
		logger.Error("Report script failed", fields...)
	}
	r.notifyListeners(execution)
	return execution
}

// Close stops in-flight executions and waits for them to return.
//
// Command scripts are terminated the same way as on timeout. Executions triggered after Close
// fail with ErrClosed without running the script.
func (r *Reporter) Close() {
	r.mutex.Lock()
	r.closed = true
	for _, cancel := range r.inFlight {
		cancel()
	}
	r.mutex.Unlock()
	r.wg.Wait()
}

func (r *Reporter) begin(id uuid.UUID, cancel context.CancelFunc) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return false
	}
	r.inFlight[id] = cancel
	r.wg.Add(1)
	return true
}

func (r *Reporter) end(id uuid.UUID) {
	r.mutex.Lock()
	delete(r.inFlight, id)
	r.mutex.Unlock()
	r.wg.Done()
}

func (r *Reporter) run(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if errPanic, ok := rec.(error); ok {
				err = errors.Wrap(errPanic, "panic")
			} else {
				err = errors.Errorf("panic: %v", rec)
			}
		}
	}()
	if r.cfg.Script == nil {
		return errors.New("no script configured")
	}
	return r.cfg.Script.Run(ctx)
}

func (r *Reporter) notifyListeners(execution Execution) {
	for _, listener := range r.cfg.ExecutionListeners {
		listener(execution)
	}
}

func scriptName(script Script) string {
	if script == nil {
		return "<nil>"
	}
	if stringer, ok := script.(fmt.Stringer); ok {
		return stringer.String()
	}
	t := reflect.Indirect(reflect.ValueOf(script)).Type()
	return fmt.Sprintf("%s.%s", path.Base(t.PkgPath()), t.Name())
}
