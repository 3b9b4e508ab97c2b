package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.cfg.Logger.Warn("failed to encode JSON response", zap.Int("status", status), zap.Error(err))
	}
}

func (s *Server) now() time.Time {
	return s.cfg.Clock.Now()
}

type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type notFoundResponse struct {
	Error              string    `json:"error"`
	Message            string    `json:"message"`
	AvailableEndpoints []string  `json:"available_endpoints"`
	Timestamp          time.Time `json:"timestamp"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service,omitempty"`
}

type triggerResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type environmentVariables struct {
	TableauServerURL string `json:"TABLEAU_SERVER_URL"`
	TableauSiteID    string `json:"TABLEAU_SITE_ID"`
	SlackTeamName    string `json:"SLACK_TEAM_NAME"`
	RequiredVarsSet  int    `json:"required_vars_set"`
}

type serviceInfo struct {
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
	Timestamp   time.Time         `json:"timestamp"`
}

// faultMessage renders a recovered panic value.
func faultMessage(rec interface{}) string {
	if err, ok := rec.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(rec)
}
