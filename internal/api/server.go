// Package api provides the HTTP control surface for pointer capture.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"emubridge/internal/input"

	"github.com/rs/zerolog/log"
)

// Controller is the capture state machine driven by the API.
type Controller interface {
	CaptureMouse() error
	UncaptureMouse() error
	Captured() bool
}

// Server provides HTTP API for remote capture control
type Server struct {
	ctrl  Controller
	token string
	wsMgr *WSManager
}

// NewServer creates a new API server. An empty token disables auth.
func NewServer(ctrl Controller, token string) *Server {
	s := &Server{
		ctrl:  ctrl,
		token: token,
	}
	s.wsMgr = newWSManager(s)
	go s.wsMgr.start()
	return s
}

// Handler returns the routed and wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/capture", s.handleCapture)
	mux.HandleFunc("/api/uncapture", s.handleUncapture)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	return s.authMiddleware(s.recoverMiddleware(mux))
}

// Start serves the API on the specified port. It blocks.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)

	log.Info().Str("component", "api").Str("addr", addr).Msg("Starting API server")

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("api: listen on %s: %w", addr, err)
	}

	server := &http.Server{Handler: s.Handler()}
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// Close disconnects every WebSocket client
func (s *Server) Close() {
	s.wsMgr.stop()
}

// isMisuse reports whether a recovered value is a wiring bug that must not be
// masked as a failed request
func isMisuse(r any) bool {
	err, ok := r.(error)
	return ok && errors.Is(err, input.ErrNoView)
}

// recoverMiddleware prevents panics from crashing the whole server. Bridge
// misuse is passed on.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if isMisuse(err) {
					panic(err)
				}
				log.Error().Str("component", "api").Interface("panic", err).Str("path", r.URL.Path).Msg("Recovered from panic")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("component", "api").Str("method", r.Method).Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("Request")

		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleCapture handles POST /api/capture
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.ctrl.CaptureMouse)
}

// handleUncapture handles POST /api/uncapture
func (s *Server) handleUncapture(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.ctrl.UncaptureMouse)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, fn func() error) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := fn(); err != nil {
		log.Warn().Str("component", "api").Str("path", r.URL.Path).Err(err).Msg("Capture change failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"captured": s.ctrl.Captured(),
			"error":    err.Error(),
		})
		return
	}

	s.writeStatus(w)
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeStatus(w)
}

func (s *Server) writeStatus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"captured": s.ctrl.Captured()})
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// BroadcastState pushes the capture state to every WebSocket client
func (s *Server) BroadcastState(captured bool) {
	s.wsMgr.BroadcastState(captured)
}
