// Package web provides an HTTP status server for the envclock daemon.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/envclock/internal/status"
)

// Server serves the status page over HTTP and a live state feed over a
// websocket.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	hub        *hub
	now        func() time.Time
}

// New creates a Server that reads state from the given tracker. Call Run to
// start the websocket hub.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker, hub: newHub(), now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run runs the websocket hub until ctx is canceled.
func (s *Server) Run(ctx context.Context) {
	s.hub.run(ctx)
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server. Hijacked websocket connections
// are closed by canceling the context passed to Run.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Notify pushes the tracker's current state to every websocket client.
func (s *Server) Notify() {
	msg, err := s.stateMessage()
	if err != nil {
		log.Warn().Err(err).Msg("ws marshal failed")
		return
	}
	s.hub.broadcastBytes(msg)
}

func (s *Server) stateMessage() ([]byte, error) {
	ts := s.now().UTC()
	return json.Marshal(envelope{
		Type: "state",
		Ts:   &ts,
		Data: status.Inner(s.tracker.Snapshot()),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Warn().Err(err).Msg("render status page")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades the request, registers the client and queues the
// current state as its first message.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	c := newClient(s.hub, conn, r.RemoteAddr)
	if msg, err := s.stateMessage(); err == nil {
		c.send <- msg
	}
	if !s.hub.add(c) {
		conn.Close()
		return
	}

	// The pumps outlive the request; the hub owns the connection from here.
	go c.writePump()
	go c.readPump()
}
