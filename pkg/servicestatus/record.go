// Package servicestatus keeps the in-memory status record of the report service.
package servicestatus

import (
	"sync"
	"time"

	"github.com/einride/clock-go/pkg/clock"
	report "github.com/einride/tableau-slack-report"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version of the report service.
const Version = "1.0.0"

// StatusHealthy is the only service status, nothing in the service degrades it.
const StatusHealthy = "healthy"

// Record is the process-wide service status. It is lost on restart.
type Record struct {
	logger  *zap.Logger
	clock   clock.Clock
	version string
	// immutable, captured by constructor
	uptimeStart time.Time
	mutex       sync.RWMutex
	// last execution, zero until the first execution completes
	lastExecution report.Execution
}

// New creates a record with uptime counted from now.
func New(logger *zap.Logger, clock clock.Clock, version string) *Record {
	return &Record{
		logger:      logger,
		clock:       clock,
		version:     version,
		uptimeStart: clock.Now(),
	}
}

// Observe records an execution. It is a report.Config execution listener.
//
// The last execution time and status are always replaced together. An execution that completed
// before the currently recorded one is ignored.
func (r *Record) Observe(execution report.Execution) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.lastExecution.Status != report.StatusUnknown && r.lastExecution.Time.After(execution.Time) {
		r.logger.Debug("ignoring stale execution", zap.Object("execution", execution))
		return
	}
	r.lastExecution = execution
}

// Snapshot returns a consistent copy of the record.
func (r *Record) Snapshot() Snapshot {
	r.mutex.RLock()
	last := r.lastExecution
	r.mutex.RUnlock()
	s := Snapshot{
		Status:        StatusHealthy,
		UptimeStart:   r.uptimeStart,
		Version:       r.version,
		UptimeSeconds: uptimeSeconds(r.clock.Now().Sub(r.uptimeStart)),
	}
	if last.Status != report.StatusUnknown {
		lastTime, lastStatus := last.Time, last.Status
		s.LastExecution = &lastTime
		s.LastExecutionStatus = &lastStatus
	}
	return s
}

func uptimeSeconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Snapshot is a point-in-time view of the service status.
type Snapshot struct {
	Status              string         `json:"status"`
	LastExecution       *time.Time     `json:"last_execution"`
	LastExecutionStatus *report.Status `json:"last_execution_status"`
	UptimeStart         time.Time      `json:"uptime_start"`
	Version             string         `json:"version"`
	UptimeSeconds       int64          `json:"uptime_seconds"`
}

func (s Snapshot) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("status", s.Status)
	if s.LastExecution != nil {
		enc.AddTime("lastExecution", *s.LastExecution)
		enc.AddString("lastExecutionStatus", s.LastExecutionStatus.String())
	}
	enc.AddTime("uptimeStart", s.UptimeStart)
	enc.AddString("version", s.Version)
	enc.AddInt64("uptimeSeconds", s.UptimeSeconds)
	return nil
}
