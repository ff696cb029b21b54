package network

import (
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"kvmlink/internal/event"
	"kvmlink/internal/protocol"
)

const reconnectDelay = 5 * time.Second

// Client connects an agent to the host and surfaces received events.
type Client struct {
	hostAddr string
	token    string

	events    chan event.Event
	done      chan struct{}
	connected atomic.Bool

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient creates a client for the host at hostAddr ("host:port").
func NewClient(hostAddr, token string) *Client {
	return &Client{
		hostAddr: hostAddr,
		token:    token,
		events:   make(chan event.Event, sendBuffer),
		done:     make(chan struct{}),
	}
}

// Start begins the connect/reconnect loop.
func (c *Client) Start() {
	go c.loop()
}

// Events exposes the stream of events received from the host.
func (c *Client) Events() <-chan event.Event {
	return c.events
}

// IsConnected reports whether a connection to the host is up.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Close stops the client permanently, interrupting any in-flight read.
func (c *Client) Close() {
	close(c.done)
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
}

func (c *Client) loop() {
	for {
		c.connect()

		select {
		case <-c.done:
			return
		case <-time.After(reconnectDelay):
			slog.Info("attempting reconnection", "host", c.hostAddr)
		}
	}
}

func (c *Client) connect() {
	u := url.URL{Scheme: "ws", Host: c.hostAddr, Path: "/ws"}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		slog.Warn("connection failed", "host", c.hostAddr, "error", err)
		return
	}

	// Publish the connection so Close can tear it down mid-read.
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		conn.Close()
		return
	default:
		c.conn = conn
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	c.connected.Store(true)
	defer c.connected.Store(false)
	slog.Info("connected to host", "host", c.hostAddr)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.PongMessage, []byte(appData))
	})

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("read error", "error", err)
			}
			return
		}

		msg, err := protocol.Unmarshal(data)
		if err != nil {
			slog.Warn("invalid message from host", "error", err)
			continue
		}
		if msg.Event == nil {
			// Control frames are host-side concerns; agents only replay events.
			continue
		}

		select {
		case c.events <- msg.Event:
		default:
			slog.Warn("dropping event, channel was blocked")
		}
	}
}
