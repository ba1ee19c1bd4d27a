package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"connwatch/internal/metrics"
	"connwatch/internal/models"
)

const defaultProbeLimit = 200

// StatusSource is the observer surface exposed over HTTP.
type StatusSource interface {
	Status() models.Status
	Subscribe() (<-chan models.Status, func())
	Probes(limit int) []models.ProbeResult
}

// Server wraps HTTP serving of the status API.
type Server struct {
	httpServer *http.Server
	source     StatusSource
	probeLimit int
}

// New creates a configured HTTP server for the observer.
func New(addr string, source StatusSource) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		source:     source,
		probeLimit: defaultProbeLimit,
	}
	s.registerRoutes(mux)
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/status/ws", s.handleStatusWS)
	mux.HandleFunc("/api/probes", s.handleProbes)
	mux.HandleFunc("/api/uptime", s.handleUptime)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Status())
}

func (s *Server) handleProbes(w http.ResponseWriter, r *http.Request) {
	probes := s.source.Probes(parseLimit(r, s.probeLimit))
	if probes == nil {
		probes = []models.ProbeResult{}
	}
	writeJSON(w, http.StatusOK, probes)
}

func (s *Server) handleUptime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metrics.ComputeReachability(s.source.Probes(0)))
}

func parseLimit(r *http.Request, fallback int) int {
	if fallback <= 0 {
		return fallback
	}
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > fallback {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
