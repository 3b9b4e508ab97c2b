package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/einride/tableau-slack-report/pkg/servicestatus"
	"go.uber.org/zap"
)

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, serviceInfo{
		Service:     "Tableau Slack Daily Report Service",
		Version:     servicestatus.Version,
		Description: "Automated daily report service for Tableau data to Slack",
		Endpoints: map[string]string{
			PathHealth:  "Health check for k8s",
			PathStatus:  "Service status and metrics",
			PathTrigger: "Manual report trigger (POST)",
			PathRoot:    "Service information",
		},
		Timestamp: s.now(),
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	defer s.recoverFault(w, r, func(message string) {
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unhealthy",
			Error:     message,
			Timestamp: s.now(),
		})
	})
	if missing := s.cfg.Environment.MissingRequired(); len(missing) > 0 {
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unhealthy",
			Error:     "Missing environment variables: " + strings.Join(missing, ", "),
			Timestamp: s.now(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.now(),
		Service:   ServiceName,
	})
}

// handleStatus handles GET /status
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	optional := s.cfg.Environment.Optional()
	s.writeJSON(w, http.StatusOK, struct {
		servicestatus.Snapshot
		EnvironmentVariables environmentVariables `json:"environment_variables"`
	}{
		Snapshot: s.cfg.Status.Snapshot(),
		EnvironmentVariables: environmentVariables{
			TableauServerURL: optional["TABLEAU_SERVER_URL"],
			TableauSiteID:    optional["TABLEAU_SITE_ID"],
			SlackTeamName:    optional["SLACK_TEAM_NAME"],
			RequiredVarsSet:  s.cfg.Environment.RequiredSet(),
		},
	})
}

// handleTrigger handles POST /trigger
//
// The request blocks until the script exits or times out. A client disconnect does not stop the script.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	defer s.recoverFault(w, r, func(message string) {
		s.writeJSON(w, http.StatusInternalServerError, triggerResponse{
			Status:    "error",
			Message:   message,
			Timestamp: s.now(),
		})
	})
	s.cfg.Logger.Info("Manual trigger requested", zap.String("remoteAddr", r.RemoteAddr))
	execution := s.cfg.Reporter.Trigger(r.Context())
	if !execution.Succeeded() {
		s.writeJSON(w, http.StatusInternalServerError, triggerResponse{
			Status:    "error",
			Message:   "Report execution failed",
			Timestamp: s.now(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, triggerResponse{
		Status:    "success",
		Message:   "Report executed successfully",
		Timestamp: s.now(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusNotFound, notFoundResponse{
		Error:              "Not Found",
		Message:            "The requested endpoint does not exist",
		AvailableEndpoints: AvailableEndpoints,
		Timestamp:          s.now(),
	})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if method, ok := routeMethods[r.URL.Path]; ok {
		w.Header().Set("Allow", method)
	}
	s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Error:     "Method Not Allowed",
		Message:   "The method is not allowed for the requested URL",
		Timestamp: s.now(),
	})
}

var routeMethods = map[string]string{
	PathRoot:    http.MethodGet + ", " + http.MethodHead,
	PathHealth:  http.MethodGet + ", " + http.MethodHead,
	PathStatus:  http.MethodGet + ", " + http.MethodHead,
	PathTrigger: http.MethodPost,
}

// recoverFault converts a panic in a handler into a route-specific JSON response.
// It must be deferred directly by the handler.
func (s *Server) recoverFault(w http.ResponseWriter, r *http.Request, respond func(message string)) {
	rec := recover()
	if rec == nil {
		return
	}
	if rec == http.ErrAbortHandler {
		panic(rec)
	}
	message := faultMessage(rec)
	s.cfg.Logger.Error("handler fault", zap.String("path", r.URL.Path), zap.String("fault", message))
	respond(message)
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.cfg.Logger.Error(
				"unhandled fault",
				zap.String("path", r.URL.Path),
				zap.String("fault", fmt.Sprint(rec)),
				zap.Stack("stack"),
			)
			s.writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:     "Internal Server Error",
				Message:   "An unexpected error occurred",
				Timestamp: s.now(),
			})
		}()
		next.ServeHTTP(w, r)
	})
}
