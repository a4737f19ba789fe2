package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleStream pushes a named SSE event whenever the underlying file for
// that resource changes on disk, plus a periodic heartbeat comment so
// proxies don't time out the connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	sub := s.events.subscribe()
	defer s.events.unsubscribe(sub)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	writeEvent(w, "hello", map[string]string{"status": "connected"})
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case kind, open := <-sub:
			if !open {
				return
			}
			s.emitUpdate(w, kind)
			flusher.Flush()
		}
	}
}

func (s *Server) emitUpdate(w http.ResponseWriter, kind changeKind) {
	switch kind {
	case changeAgents:
		if agents, err := s.coord.Registry.List(); err == nil {
			writeEvent(w, "agents", agents)
		}
	case changeMessages:
		if msgs, err := s.coord.MessageLog.Tail(50); err == nil {
			writeEvent(w, "messages", msgs)
		}
	case changeLocks:
		if locks, err := s.coord.Locks.ListAll(); err == nil {
			writeEvent(w, "locks", locks)
		}
	}
	if counts, err := s.coord.Registry.CountByStatus(); err == nil {
		locks, _ := s.coord.Locks.ListAll()
		writeEvent(w, "stats", map[string]interface{}{
			"agents_by_status": counts,
			"locks_held":       len(locks),
		})
	}
}

func writeEvent(w http.ResponseWriter, event string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
}
