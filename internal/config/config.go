// Package config loads the report service configuration and inspects the report environment.
package config

import (
	"strings"
	"time"

	report "github.com/einride/tableau-slack-report"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding service flags.
const EnvPrefix = "REPORT"

// Config keys, also used as flag names.
const (
	KeyAddr        = "addr"
	KeyScript      = "script"
	KeyInterpreter = "interpreter"
	KeyScriptDir   = "script-dir"
	KeyTimeout     = "timeout"
	KeyKillGrace   = "kill-grace"
	KeyLogLevel    = "log-level"
	KeyLogJSON     = "log-json"
	KeyMetricsAddr = "metrics-addr"
	KeyShutdown    = "shutdown-timeout"
)

// Config is the service configuration.
type Config struct {
	Addr        string
	Script      string
	Interpreter string
	ScriptDir   string
	Timeout     time.Duration
	KillGrace   time.Duration
	LogLevel    report.LogLevel
	LogJSON     bool
	// MetricsAddr enables the metrics listener when non-empty.
	MetricsAddr string
	// ShutdownTimeout bounds the wait for in-flight requests before running scripts are terminated.
	ShutdownTimeout time.Duration
}

// RegisterFlags adds the service flags with their defaults to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyAddr, "0.0.0.0:8080", "address the status server listens on")
	fs.String(KeyScript, "slack", "path of the report script")
	fs.String(KeyInterpreter, "python3", "interpreter running the report script, empty to execute it directly")
	fs.String(KeyScriptDir, "", "working directory of the report script")
	fs.Duration(KeyTimeout, report.DefaultTimeout, "hard limit for a single report script execution")
	fs.Duration(KeyKillGrace, report.DefaultKillGrace, "time between SIGTERM and SIGKILL for a timed out script")
	fs.String(KeyLogLevel, "info", "log level: debug, info, warn or error")
	fs.Bool(KeyLogJSON, true, "log as JSON instead of console text")
	fs.String(KeyMetricsAddr, "", "address of the Prometheus metrics listener, disabled when empty")
	fs.Duration(KeyShutdown, 10*time.Second, "time in-flight requests get to finish on shutdown")
}

// NewViper returns a viper instance bound to fs and to REPORT_* environment variables.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}
	return v, nil
}

// Load reads the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	level, err := report.ParseLogLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg := &Config{
		Addr:            v.GetString(KeyAddr),
		Script:          v.GetString(KeyScript),
		Interpreter:     v.GetString(KeyInterpreter),
		ScriptDir:       v.GetString(KeyScriptDir),
		Timeout:         v.GetDuration(KeyTimeout),
		KillGrace:       v.GetDuration(KeyKillGrace),
		LogLevel:        level,
		LogJSON:         v.GetBool(KeyLogJSON),
		MetricsAddr:     v.GetString(KeyMetricsAddr),
		ShutdownTimeout: v.GetDuration(KeyShutdown),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr: must not be empty")
	case c.Script == "":
		return errors.New("script: must not be empty")
	case c.Timeout <= 0:
		return errors.Errorf("timeout: must be positive, got %v", c.Timeout)
	case c.KillGrace < 0:
		return errors.Errorf("kill-grace: must not be negative, got %v", c.KillGrace)
	case c.ShutdownTimeout < 0:
		return errors.Errorf("shutdown-timeout: must not be negative, got %v", c.ShutdownTimeout)
	}
	return nil
}

// NewScript returns the report script described by the configuration.
func (c *Config) NewScript() *report.CommandScript {
	script := report.NewCommandScript(c.Script, c.Interpreter, c.Script)
	script.Dir = c.ScriptDir
	script.KillGrace = c.KillGrace
	return script
}
