// Package server provides the HTTP interface to a running coordinator:
// chore status reads, force actions, entity state injection, and a
// WebSocket stream of transition events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/choretrack/choretrack/internal/engine"
	"github.com/choretrack/choretrack/internal/logging"
)

// Server exposes a Coordinator over HTTP.
type Server struct {
	port  int
	coord *engine.Coordinator
	hub   *Hub
	log   *logging.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	started  bool
}

// NewServer creates a new Server for the given coordinator. Transition
// events start flowing to the hub immediately.
func NewServer(port int, coord *engine.Coordinator) (*Server, error) {
	if coord == nil {
		return nil, errors.New("coordinator is required")
	}
	s := &Server{
		port:  port,
		coord: coord,
		hub:   NewHub(),
		log:   logging.With("component", "server"),
	}
	coord.OnEvent(s.hub.Broadcast)
	return s, nil
}

// Port returns the port the server is listening on. Useful when the
// configured port was 0.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().(*net.TCPAddr).Port
	}
	return s.port
}

// Start starts the HTTP server. Blocks until ctx is cancelled or Stop is
// called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.log.Info("server listening", "addr", listener.Addr().String())
	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server and disconnects stream clients.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.hub.Close()
	s.started = false
	return nil
}

// setupRoutes registers all HTTP handlers.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/chores", s.handleListChores)
	mux.HandleFunc("GET /api/chores/{id}", s.handleGetChore)
	mux.HandleFunc("POST /api/chores/{id}/force", s.handleForce)
	mux.HandleFunc("POST /api/entities/{id}", s.handleSetEntity)
	mux.HandleFunc("GET /api/events", s.handleEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListChores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Statuses())
}

func (s *Server) handleGetChore(w http.ResponseWriter, r *http.Request) {
	status, err := s.coord.Status(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// forceRequest is the body of a force action.
type forceRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleForce(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req forceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	var err error
	switch strings.ToLower(req.Action) {
	case "due":
		err = s.coord.ForceDue(id)
	case "inactive":
		err = s.coord.ForceInactive(id)
	case "complete":
		err = s.coord.ForceComplete(id)
	case "done":
		err = s.coord.MarkDone(id)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown action: %s", req.Action))
		return
	}
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	status, err := s.coord.Status(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// entityRequest is the body of an entity state injection.
type entityRequest struct {
	State string `json:"state"`
}

func (s *Server) handleSetEntity(w http.ResponseWriter, r *http.Request) {
	var req entityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	s.coord.SetEntityState(r.PathValue("id"), req.State)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Serve(w, r); err != nil {
		s.log.Warn("event stream client error", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
