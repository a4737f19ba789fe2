package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clauded/swarm/pkg/coordinator"
)

// Server holds the chi router and a reference to the coordinator's
// read-only subsystems.
type Server struct {
	router *chi.Mux
	coord  *coordinator.Coordinator
	events *fileWatcher
}

// NewServer wires the routes and starts the filesystem watcher backing
// the SSE stream.
func NewServer(coord *coordinator.Coordinator) (*Server, error) {
	watcher, err := newFileWatcher(coord)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		coord:  coord,
		events: watcher,
	}

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/api/agents", s.handleAgents)
	s.router.Get("/api/messages", s.handleMessages)
	s.router.Get("/api/locks", s.handleLocks)
	s.router.Get("/api/stats", s.handleStats)
	s.router.Get("/api/stream", s.handleStream)

	return s, nil
}

// Close stops the background file watcher.
func (s *Server) Close() error {
	return s.events.Close()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.coord.Registry.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, agents)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	msgs, err := s.coord.MessageLog.Tail(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, msgs)
}

func (s *Server) handleLocks(w http.ResponseWriter, r *http.Request) {
	locks, err := s.coord.Locks.ListAll()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, locks)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.coord.Registry.CountByStatus()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	locks, err := s.coord.Locks.ListAll()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"agents_by_status": counts,
		"locks_held":       len(locks),
	})
}
