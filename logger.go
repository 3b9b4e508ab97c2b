package report

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//go:generate stringer -type=LogLevel -trimprefix=LogLevel

type LogLevel uint

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

// ParseLogLevel parses a case-insensitive level name such as "info" or "WARN".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarning, nil
	case "error":
		return LogLevelError, nil
	}
	return 0, errors.Errorf("unknown log level %q", s)
}

// ZapLevel returns the equivalent zap level.
func (l LogLevel) ZapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarning:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LoggerOpts represents the tunable knobs for creating the service logger.
type LoggerOpts struct {
	LogLevel LogLevel
	// JSON selects machine-readable output, otherwise a console encoding is used.
	JSON   bool
	Output io.Writer
}

// DefaultLoggerOpts returns options for a JSON logger that logs to os.Stderr with Info level.
func DefaultLoggerOpts() *LoggerOpts {
	return &LoggerOpts{LogLevel: LogLevelInfo, JSON: true, Output: os.Stderr}
}

// WithOutput sets the logging output.
func (o *LoggerOpts) WithOutput(out io.Writer) *LoggerOpts {
	o.Output = out
	return o
}

// WithLogLevel sets the log level of the logger.
func (o *LoggerOpts) WithLogLevel(level LogLevel) *LoggerOpts {
	o.LogLevel = level
	return o
}

// WithJSON selects JSON or console encoding.
func (o *LoggerOpts) WithJSON(json bool) *LoggerOpts {
	o.JSON = json
	return o
}

// New creates a zap logger from the options.
func (o *LoggerOpts) New() *zap.Logger {
	var encoder zapcore.Encoder
	if o.JSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}
	out := o.Output
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), o.LogLevel.ZapLevel())
	return zap.New(core, zap.ErrorOutput(zapcore.Lock(os.Stderr)))
}
