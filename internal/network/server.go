// Package network carries protocol messages between the capturing host and
// injecting agents over WebSocket.
package network

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kvmlink/internal/event"
	"kvmlink/internal/logging"
	"kvmlink/internal/protocol"
)

var slog = logging.NewLogger("kvmlink/network")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	maxMessageSize = 512
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local network tool; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server accepts agent connections and broadcasts captured events to them.
type Server struct {
	token string

	mu      sync.RWMutex
	clients map[*serverConn]bool

	httpServer *http.Server
}

type serverConn struct {
	server *Server
	conn   *websocket.Conn
	send   chan []byte
}

// NewServer creates a broadcast server. Agents must present the token on
// connect when it is non-empty.
func NewServer(token string) *Server {
	return &Server{
		token:   token,
		clients: make(map[*serverConn]bool),
	}
}

// Start serves the agent endpoint on addr. It blocks until the server stops.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleAgent)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	slog.Info("listening for agents", "addr", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the listener down and disconnects all agents.
func (s *Server) Close() error {
	s.mu.Lock()
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// BroadcastEvent sends one canonical event to every connected agent. A slow
// agent gets disconnected rather than back-pressuring the host.
func (s *Server) BroadcastEvent(ev event.Event) {
	data, err := protocol.MarshalEvent(ev)
	if err != nil {
		slog.Error("failed to marshal event", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(s.clients, c)
			slog.Warn("dropping slow agent connection")
		}
	}
}

// AgentCount reports the number of connected agents.
func (s *Server) AgentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade agent connection", "error", err)
		return
	}

	c := &serverConn{
		server: s,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}

	s.mu.Lock()
	s.clients[c] = true
	total := len(s.clients)
	s.mu.Unlock()
	slog.Info("agent connected", "remote", r.RemoteAddr, "total", total)

	go c.writePump()
	go c.readPump()
}

func (s *Server) unregister(c *serverConn) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	total := len(s.clients)
	s.mu.Unlock()
	slog.Info("agent disconnected", "total", total)
}

// readPump discards agent messages; its job is noticing disconnects and
// answering pings.
func (c *serverConn) readPump() {
	defer func() {
		c.server.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *serverConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
