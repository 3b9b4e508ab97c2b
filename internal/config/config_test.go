package config

import (
	"testing"
	"time"

	report "github.com/einride/tableau-slack-report"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	v, err := NewViper(fs)
	require.NoError(t, err)
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)
	require.Equal(t, &Config{
		Addr:            "0.0.0.0:8080",
		Script:          "slack",
		Interpreter:     "python3",
		Timeout:         300 * time.Second,
		KillGrace:       5 * time.Second,
		LogLevel:        report.LogLevelInfo,
		LogJSON:         true,
		ShutdownTimeout: 10 * time.Second,
	}, cfg)
}

func TestLoad_FlagsAndEnv(t *testing.T) {
	t.Setenv("REPORT_TIMEOUT", "1m")
	t.Setenv("REPORT_LOG_LEVEL", "debug")
	t.Setenv("REPORT_METRICS_ADDR", ":9090")
	t.Setenv("REPORT_ADDR", ":1234")
	cfg, err := load(t, "--addr", ":8081", "--interpreter", "", "--script", "./report.sh")
	require.NoError(t, err)
	// flags take precedence over the environment
	require.Equal(t, ":8081", cfg.Addr)
	require.Equal(t, "", cfg.Interpreter)
	require.Equal(t, "./report.sh", cfg.Script)
	require.Equal(t, time.Minute, cfg.Timeout)
	require.Equal(t, report.LogLevelDebug, cfg.LogLevel)
	require.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoad_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
	}{
		{name: "log level", args: []string{"--log-level", "loud"}},
		{name: "timeout", args: []string{"--timeout", "0s"}},
		{name: "kill grace", args: []string{"--kill-grace", "-1s"}},
		{name: "shutdown timeout", args: []string{"--shutdown-timeout", "-1s"}},
		{name: "script", args: []string{"--script", ""}},
		{name: "addr", args: []string{"--addr", ""}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, tc.args...)
			require.Error(t, err)
		})
	}
}

func TestConfig_NewScript(t *testing.T) {
	cfg := &Config{Script: "slack", Interpreter: "python3", ScriptDir: "/app", KillGrace: time.Second}
	script := cfg.NewScript()
	require.Equal(t, []string{"python3", "slack"}, script.CommandLine())
	require.Equal(t, "/app", script.Dir)
	require.Equal(t, time.Second, script.KillGrace)
	require.Equal(t, "slack", script.String())
}
