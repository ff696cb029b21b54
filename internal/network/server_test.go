package network

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"kvmlink/internal/event"
	"kvmlink/internal/protocol"
)

func newTestServer(t *testing.T, token string) (*Server, string) {
	t.Helper()
	s := NewServer(token)
	ts := httptest.NewServer(http.HandlerFunc(s.handleAgent))
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForAgents(t *testing.T, s *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.AgentCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("AgentCount() = %d, want %d", s.AgentCount(), want)
}

func TestBroadcastReachesAgent(t *testing.T) {
	s, url := newTestServer(t, "")
	conn := dial(t, url, "")
	waitForAgents(t, s, 1)

	want := event.KeyTransition{VirtualKey: 0x41, Pressed: true}
	s.BroadcastEvent(want)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Errorf("message type = %d, want binary", msgType)
	}

	msg, err := protocol.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg.Event != event.Event(want) {
		t.Errorf("received %v, want %v", msg.Event, want)
	}
}

func TestBroadcastFansOut(t *testing.T) {
	s, url := newTestServer(t, "")
	a := dial(t, url, "")
	b := dial(t, url, "")
	waitForAgents(t, s, 2)

	s.BroadcastEvent(event.MouseWheel{Delta: 2})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Errorf("agent did not receive broadcast: %v", err)
		}
	}
}

func TestTokenRequired(t *testing.T) {
	s, url := newTestServer(t, "secret")

	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Error("Dial() without token succeeded, want rejection")
	}

	dial(t, url, "secret")
	waitForAgents(t, s, 1)
}

func TestDisconnectLowersAgentCount(t *testing.T) {
	s, url := newTestServer(t, "")
	conn := dial(t, url, "")
	waitForAgents(t, s, 1)

	conn.Close()
	waitForAgents(t, s, 0)
}
