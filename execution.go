package report

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

// Execution is the record of a single report script invocation.
type Execution struct {
	ID       uuid.UUID
	Script   string
	Time     time.Time
	Duration time.Duration
	Status   Status
	// ExitCode of the script process, or -1 when the process never exited on its own.
	ExitCode int
	Err      error
}

// Succeeded returns true if the script exited with status code 0.
func (e Execution) Succeeded() bool {
	return e.Status == StatusSuccess
}

func (e Execution) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", e.ID.String())
	enc.AddString("script", e.Script)
	enc.AddTime("time", e.Time)
	enc.AddDuration("duration", e.Duration)
	enc.AddString("status", e.Status.String())
	enc.AddInt("exitCode", e.ExitCode)
	if e.Err != nil {
		enc.AddString("err", e.Err.Error())
	}
	return nil
}
