// SPDX-License-Identifier: MIT

// Package api exposes the local control surface of the agent: deep-link
// session triggers, status, and Prometheus metrics.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/adobe/aepsdk-assurance-go/internal/log"
	"github.com/adobe/aepsdk-assurance-go/internal/session"
	"github.com/adobe/aepsdk-assurance-go/internal/urlutil"
)

// Server wires the control router to the orchestrator.
type Server struct {
	orchestrator *session.Orchestrator
	environment  urlutil.Environment
	logger       zerolog.Logger
}

// NewServer builds the control server for the given orchestrator.
func NewServer(o *session.Orchestrator, env urlutil.Environment) *Server {
	return &Server{
		orchestrator: o,
		environment:  env,
		logger:       log.WithComponent("api"),
	}
}

// Router assembles the chi router with all control routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLog)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/v1/status", s.handleStatus)
	r.Post("/v1/deeplink", s.handleDeepLink)
	r.Post("/v1/disconnect", s.handleDisconnect)
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if id := s.orchestrator.ActiveSessionID(); id != "" {
			ctx = log.ContextWithSessionID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
		logger := log.FromContext(ctx)
		logger.Debug().
			Str("method", r.Method).
			Str(log.FieldPath, r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusResponse struct {
	SessionActive bool   `json:"sessionActive"`
	SessionID     string `json:"sessionId,omitempty"`
	Environment   string `json:"environment"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		SessionActive: s.orchestrator.SessionActive(),
		SessionID:     s.orchestrator.ActiveSessionID(),
		Environment:   string(s.environment),
	})
}

type deepLinkRequest struct {
	URL string `json:"url"`
	Pin string `json:"pin,omitempty"`
}

// handleDeepLink starts a session from a deep-link trigger URL. A missing
// or invalid adb_validation_sessionid parameter is a no-op.
func (s *Server) handleDeepLink(w http.ResponseWriter, r *http.Request) {
	var req deepLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	id, ok := urlutil.SessionIDFromDeepLink(req.URL)
	if !ok {
		s.logger.Debug().Str(log.FieldURL, req.URL).Msg("deep link without session id, ignoring")
		writeJSON(w, http.StatusOK, map[string]string{"result": "ignored"})
		return
	}
	s.orchestrator.CreateSession(id, s.environment, req.Pin)
	writeJSON(w, http.StatusAccepted, map[string]string{"result": "accepted", "sessionId": id})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.orchestrator.TerminateSession()
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
