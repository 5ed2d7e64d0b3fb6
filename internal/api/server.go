// Package api is the local status server: read-only runtime introspection
// plus a websocket event feed. It carries session and focus metadata only;
// the video stream itself never leaves the host process.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/wincast/internal/logger"
)

// Snapshot providers are read by handlers on their own goroutines; both
// must be safe for concurrent use.
type (
	SessionsFunc func() []uint32
	FocusFunc    func() uint32
)

// Server exposes the status API.
type Server struct {
	router   *mux.Router
	hub      *Hub
	upgrader websocket.Upgrader
	sessions SessionsFunc
	focus    FocusFunc
}

func NewServer(hub *Hub, sessions SessionsFunc, focus FocusFunc) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		hub:      hub,
		sessions: sessions,
		focus:    focus,
		upgrader: websocket.Upgrader{
			// Local tooling only; the listener binds to localhost.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/sessions", s.handleSessions).Methods("GET")
	api.HandleFunc("/focus", s.handleFocus).Methods("GET")
	api.HandleFunc("/events", s.handleEvents)
}

// Handler returns the routing tree, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the API on localhost.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("status API listening")
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	windows := s.sessions()
	writeJSON(w, map[string]interface{}{
		"count":   len(windows),
		"windows": windows,
	})
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]uint32{"window": s.focus()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := s.hub.Subscribe()
	defer s.hub.Unsubscribe(events)

	// Seed the client with the current focus so it does not have to wait
	// for the next change.
	if err := conn.WriteJSON(Event{Kind: EventFocusChanged, Window: s.focus()}); err != nil {
		return
	}

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
