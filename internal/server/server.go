// Package server implements the HTTP status server of the report service.
package server

import (
	"context"
	"io"
	"net/http"

	"github.com/einride/clock-go/pkg/clock"
	report "github.com/einride/tableau-slack-report"
	"github.com/einride/tableau-slack-report/pkg/servicestatus"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ServiceName is reported by the health check.
const ServiceName = "tableau-slack-report"

// Route paths.
const (
	PathRoot    = "/"
	PathHealth  = "/health"
	PathStatus  = "/status"
	PathTrigger = "/trigger"
)

// AvailableEndpoints is listed in responses to unknown paths.
var AvailableEndpoints = []string{PathRoot, PathHealth, PathStatus, PathTrigger}

// Triggerer runs the report script synchronously.
type Triggerer interface {
	Trigger(context.Context) report.Execution
}

// StatusSource provides the service status record.
type StatusSource interface {
	Snapshot() servicestatus.Snapshot
}

// Environment inspects the variables the report script depends on.
type Environment interface {
	MissingRequired() []string
	RequiredSet() int
	Optional() map[string]string
}

// Config contains the full set of dependencies for a server.
type Config struct {
	Reporter    Triggerer
	Status      StatusSource
	Environment Environment
	Clock       clock.Clock
	Logger      *zap.Logger
	// AccessLog receives a combined log format line per request, disabled when nil.
	AccessLog io.Writer
}

// Server serves the health, status and trigger endpoints.
type Server struct {
	cfg    Config
	router *mux.Router
}

// New creates a new server from a config.
func New(cfg *Config) *Server {
	s := &Server{cfg: *cfg}
	if s.cfg.Clock == nil {
		s.cfg.Clock = clock.System()
	}
	if s.cfg.Logger == nil {
		s.cfg.Logger = zap.NewNop()
	}
	s.router = mux.NewRouter()
	s.router.HandleFunc(PathRoot, s.handleRoot).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc(PathHealth, s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc(PathStatus, s.handleStatus).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc(PathTrigger, s.handleTrigger).Methods(http.MethodPost)
	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
	return s
}

// Handler returns the root handler, with fault recovery and access logging.
func (s *Server) Handler() http.Handler {
	h := s.recoverMiddleware(s.router)
	if s.cfg.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(s.cfg.AccessLog, h)
	}
	return h
}

// NewAccessLog returns a writer that logs each access log line to logger at debug level.
func NewAccessLog(logger *zap.Logger) (io.Writer, error) {
	stdLogger, err := zap.NewStdLogAt(logger.Named("access"), zap.DebugLevel)
	if err != nil {
		return nil, err
	}
	return stdLogger.Writer(), nil
}
