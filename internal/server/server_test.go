package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/einride/clock-go/pkg/clock"
	report "github.com/einride/tableau-slack-report"
	"github.com/einride/tableau-slack-report/internal/config"
	"github.com/einride/tableau-slack-report/internal/mockreport"
	"github.com/einride/tableau-slack-report/pkg/servicestatus"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockClock struct {
	clock.Clock
	mu  sync.Mutex
	now time.Time
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *mockClock) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

type testFixture struct {
	clock  *mockClock
	script *mockreport.MockScript
	record *servicestatus.Record
	server *httptest.Server
}

func newTestFixture(t *testing.T, env Environment) *testFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f := &testFixture{
		clock:  &mockClock{now: time.Date(2020, 9, 13, 12, 26, 40, 0, time.UTC)},
		script: mockreport.NewMockScript(mockreport.NewController(t)),
	}
	f.record = servicestatus.New(logger, f.clock, servicestatus.Version)
	reporter := report.New(&report.Config{
		Script:             f.script,
		Timeout:            200 * time.Millisecond,
		Clock:              f.clock,
		Logger:             logger,
		ExecutionListeners: []func(report.Execution){f.record.Observe},
	})
	if env == nil {
		env = config.NewEnvironment()
	}
	accessLog, err := NewAccessLog(logger)
	require.NoError(t, err)
	s := New(&Config{
		Reporter:    reporter,
		Status:      f.record,
		Environment: env,
		Clock:       f.clock,
		Logger:      logger,
		AccessLog:   accessLog,
	})
	f.server = httptest.NewServer(s.Handler())
	t.Cleanup(f.server.Close)
	return f
}

func (f *testFixture) do(t *testing.T, method, path string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, nil)
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func setRequired(t *testing.T, set int) {
	t.Helper()
	for i, key := range config.RequiredVars {
		value := ""
		if i < set {
			value = "secret-" + key
		}
		t.Setenv(key, value)
	}
}

const timestamp = "2020-09-13T12:26:40Z"

func TestServer_Root(t *testing.T) {
	f := newTestFixture(t, nil)
	code, body := f.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]interface{}{
		"service":     "Tableau Slack Daily Report Service",
		"version":     "1.0.0",
		"description": "Automated daily report service for Tableau data to Slack",
		"endpoints": map[string]interface{}{
			"/health":  "Health check for k8s",
			"/status":  "Service status and metrics",
			"/trigger": "Manual report trigger (POST)",
			"/":        "Service information",
		},
		"timestamp": timestamp,
	}, body)
}

func TestServer_Health(t *testing.T) {
	for set := 0; set <= len(config.RequiredVars); set++ {
		set := set
		t.Run(fmt.Sprintf("%d required set", set), func(t *testing.T) {
			setRequired(t, set)
			f := newTestFixture(t, nil)
			code, body := f.do(t, http.MethodGet, "/health")
			if set == len(config.RequiredVars) {
				require.Equal(t, http.StatusOK, code)
				require.Equal(t, map[string]interface{}{
					"status":    "healthy",
					"timestamp": timestamp,
					"service":   "tableau-slack-report",
				}, body)
				return
			}
			require.Equal(t, http.StatusServiceUnavailable, code)
			require.Equal(t, "unhealthy", body["status"])
			require.Equal(t, timestamp, body["timestamp"])
			require.Equal(
				t,
				"Missing environment variables: "+strings.Join(config.RequiredVars[set:], ", "),
				body["error"],
			)
			require.NotContains(t, body["error"], "secret-")
		})
	}
}

type panickingEnvironment struct{}

func (panickingEnvironment) MissingRequired() []string   { panic(errors.New("environment unavailable")) }
func (panickingEnvironment) RequiredSet() int            { panic("environment unavailable") }
func (panickingEnvironment) Optional() map[string]string { panic("environment unavailable") }

func TestServer_HealthFault(t *testing.T) {
	f := newTestFixture(t, panickingEnvironment{})
	code, body := f.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, map[string]interface{}{
		"status":    "unhealthy",
		"error":     "environment unavailable",
		"timestamp": timestamp,
	}, body)
}

func TestServer_UnhandledFault(t *testing.T) {
	f := newTestFixture(t, panickingEnvironment{})
	code, body := f.do(t, http.MethodGet, "/status")
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, map[string]interface{}{
		"error":     "Internal Server Error",
		"message":   "An unexpected error occurred",
		"timestamp": timestamp,
	}, body)
}

func TestServer_Status(t *testing.T) {
	setRequired(t, 2)
	t.Setenv("TABLEAU_SERVER_URL", "https://tableau.example.com")
	t.Setenv("TABLEAU_SITE_ID", "")
	t.Setenv("SLACK_TEAM_NAME", "")
	f := newTestFixture(t, nil)
	f.clock.advance(90 * time.Second)
	code, body := f.do(t, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]interface{}{
		"status":                "healthy",
		"last_execution":        nil,
		"last_execution_status": nil,
		"uptime_start":          timestamp,
		"version":               "1.0.0",
		"uptime_seconds":        float64(90),
		"environment_variables": map[string]interface{}{
			"TABLEAU_SERVER_URL": "https://tableau.example.com",
			"TABLEAU_SITE_ID":    "Not set",
			"SLACK_TEAM_NAME":    "Not set",
			"required_vars_set":  float64(2),
		},
	}, body)
}

func TestServer_StatusUptimeNonDecreasing(t *testing.T) {
	f := newTestFixture(t, nil)
	var last float64
	for i := 0; i < 5; i++ {
		f.clock.advance(700 * time.Millisecond)
		_, body := f.do(t, http.MethodGet, "/status")
		uptime := body["uptime_seconds"].(float64)
		require.GreaterOrEqual(t, uptime, last)
		last = uptime
	}
	require.Equal(t, float64(3), last)
}

func TestServer_TriggerSuccess(t *testing.T) {
	f := newTestFixture(t, nil)
	f.script.EXPECT().Run(gomock.Any()).Return(nil)
	code, body := f.do(t, http.MethodPost, "/trigger")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]interface{}{
		"status":    "success",
		"message":   "Report executed successfully",
		"timestamp": timestamp,
	}, body)
	_, status := f.do(t, http.MethodGet, "/status")
	require.Equal(t, "success", status["last_execution_status"])
	require.Equal(t, timestamp, status["last_execution"])
}

func TestServer_TriggerFailure(t *testing.T) {
	for _, tc := range []struct {
		name     string
		run      func(context.Context) error
		expected string
	}{
		{
			name:     "error",
			run:      func(context.Context) error { return errors.New("exit status 1") },
			expected: "error",
		},
		{
			name:     "timeout",
			run:      func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() },
			expected: "timeout",
		},
		{
			name:     "panic",
			run:      func(context.Context) error { panic("boom") },
			expected: "error",
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFixture(t, nil)
			f.script.EXPECT().Run(gomock.Any()).DoAndReturn(tc.run)
			code, body := f.do(t, http.MethodPost, "/trigger")
			require.Equal(t, http.StatusInternalServerError, code)
			require.Equal(t, map[string]interface{}{
				"status":    "error",
				"message":   "Report execution failed",
				"timestamp": timestamp,
			}, body)
			_, status := f.do(t, http.MethodGet, "/status")
			require.Equal(t, tc.expected, status["last_execution_status"])
			require.NotNil(t, status["last_execution"])
		})
	}
}

type panickingTriggerer struct{}

func (panickingTriggerer) Trigger(context.Context) report.Execution {
	panic(errors.New("reporter unavailable"))
}

func TestServer_TriggerFault(t *testing.T) {
	s := New(&Config{
		Reporter: panickingTriggerer{},
		Clock:    &mockClock{now: time.Date(2020, 9, 13, 12, 26, 40, 0, time.UTC)},
		Logger:   zaptest.NewLogger(t),
	})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/trigger", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"status":"error","message":"reporter unavailable","timestamp":"`+timestamp+`"}`, w.Body.String())
}

func TestServer_NotFound(t *testing.T) {
	f := newTestFixture(t, nil)
	for _, path := range []string{"/nope", "/health/", "/trigger/now", "/metrics"} {
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
			code, body := f.do(t, method, path)
			require.Equal(t, http.StatusNotFound, code, "%s %s", method, path)
			require.Equal(t, map[string]interface{}{
				"error":               "Not Found",
				"message":             "The requested endpoint does not exist",
				"available_endpoints": []interface{}{"/", "/health", "/status", "/trigger"},
				"timestamp":           timestamp,
			}, body)
		}
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	f := newTestFixture(t, nil)
	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/trigger", nil)
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
	code, body := f.do(t, http.MethodPost, "/health")
	require.Equal(t, http.StatusMethodNotAllowed, code)
	require.Equal(t, "Method Not Allowed", body["error"])
}

func TestServer_MethodNotAllowedListsHead(t *testing.T) {
	f := newTestFixture(t, nil)
	req, err := http.NewRequest(http.MethodDelete, f.server.URL+"/status", nil)
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, "GET, HEAD", resp.Header.Get("Allow"))
}

func TestServer_Head(t *testing.T) {
	setRequired(t, 4)
	f := newTestFixture(t, nil)
	for _, path := range []string{"/", "/health", "/status"} {
		req, err := http.NewRequest(http.MethodHead, f.server.URL+path, nil)
		require.NoError(t, err)
		resp, err := f.server.Client().Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"), path)
	}
}

func TestServer_TriggerDoesNotBlockOtherRequests(t *testing.T) {
	setRequired(t, 4)
	f := newTestFixture(t, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	f.script.EXPECT().Run(gomock.Any()).DoAndReturn(func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	done := make(chan int)
	go func() {
		resp, err := f.server.Client().Post(f.server.URL+"/trigger", "application/json", nil)
		if err != nil {
			done <- 0
			return
		}
		_ = resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-started
	code, _ := f.do(t, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, code)
	close(release)
	require.Equal(t, http.StatusOK, <-done)
}
