// Package server exposes the HTTP control surface: the chat endpoint,
// security-mode inspection and override, escalation status, and health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aegisgraph/aegisgraph/internal/escalate"
	"github.com/aegisgraph/aegisgraph/internal/model"
	"github.com/aegisgraph/aegisgraph/internal/pipeline"
)

// Config holds HTTP server configuration.
type Config struct {
	Port int
}

// Server routes HTTP requests into the decision pipeline.
type Server struct {
	pipe    *pipeline.Pipeline
	modes   *escalate.Controller
	tracker *escalate.Tracker
	cfg     Config

	httpServer *http.Server
}

// New creates a Server around an assembled pipeline.
func New(cfg Config, pipe *pipeline.Pipeline, modes *escalate.Controller, tracker *escalate.Tracker) *Server {
	s := &Server{pipe: pipe, modes: modes, tracker: tracker, cfg: cfg}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/security-mode", s.handleGetMode)
	mux.HandleFunc("PUT /api/security-mode", s.handleSetMode)
	mux.HandleFunc("GET /api/escalation", s.handleEscalation)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Serve starts the HTTP server. Blocks until shutdown.
func (s *Server) Serve() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req model.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := validateRequest(req); msg != "" {
		// Validation failures never reach the pipeline: they carry no
		// security signal and must not feed the escalation tracker.
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	out := s.pipe.Handle(r.Context(), req)
	writeJSON(w, http.StatusOK, chatResponse(out))
}

func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"security_mode": s.modes.CurrentMode(),
	})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mode, err := model.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.modes.SetMode(mode)
	writeJSON(w, http.StatusOK, map[string]any{
		"security_mode": mode,
	})
}

func (s *Server) handleEscalation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"security_mode":  s.modes.CurrentMode(),
		"refusal_count":  s.tracker.Count(),
		"threshold":      s.tracker.Threshold(),
		"window_seconds": int(s.tracker.Window().Seconds()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// validateRequest returns a message for the first missing field, or "".
func validateRequest(req model.Request) string {
	switch {
	case req.UserID == "":
		return "user_id is required"
	case req.Role == "":
		return "role is required"
	case req.DoctorID == "":
		return "doc_id is required"
	case req.PatientID == "":
		return "patient_id is required"
	case req.Message == "":
		return "message is required"
	}
	return ""
}

// chatResponse shapes the outward response for one outcome. Refusals
// surface the generic reason as the response text.
func chatResponse(out model.Outcome) map[string]any {
	resp := map[string]any{
		"request_id":    out.RequestID,
		"status":        out.Status,
		"security_mode": out.Mode,
	}
	if out.Refused() {
		resp["response"] = out.Reason
	} else {
		resp["response"] = out.FinalText()
	}
	if out.Response != nil {
		resp["tokens_in"] = out.Response.TokensIn
		resp["tokens_out"] = out.Response.TokensOut
		resp["cost_usd"] = out.Response.CostUSD
	}
	if out.Policy != nil && out.Policy.BreakGlass {
		resp["break_glass"] = true
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
