// Package web provides the diagnostics HTTP server of the interlock daemon.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/sweeney/compressor-interlock/internal/status"
)

// Handlers are optional endpoints mounted next to the status JSON.
type Handlers struct {
	Metrics http.Handler // served at /metrics
	Health  http.Handler // served at /live and /ready
}

// Server serves the status snapshot, metrics and health checks over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, h Handlers) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleJSON)
	mux.HandleFunc("/index.json", s.handleJSON)
	if h.Metrics != nil {
		mux.Handle("/metrics", h.Metrics)
	}
	if h.Health != nil {
		mux.Handle("/live", h.Health)
		mux.Handle("/ready", h.Health)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve accepts connections on ln until the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.json" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}
