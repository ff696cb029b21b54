package network

import (
	"strings"
	"testing"
	"time"

	"kvmlink/internal/event"
)

func waitForConnected(t *testing.T, c *Client, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.IsConnected() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("IsConnected() = %v, want %v", c.IsConnected(), want)
}

func TestClientCloseInterruptsRead(t *testing.T) {
	s, url := newTestServer(t, "")

	c := NewClient(strings.TrimPrefix(url, "ws://"), "")
	c.Start()
	waitForConnected(t, c, true)
	waitForAgents(t, s, 1)

	// The server sends nothing, so the client sits in a blocking read.
	// Close must tear the connection down well before the read deadline.
	c.Close()
	waitForConnected(t, c, false)
}

func TestClientReceivesBroadcast(t *testing.T) {
	s, url := newTestServer(t, "secret")

	c := NewClient(strings.TrimPrefix(url, "ws://"), "secret")
	c.Start()
	t.Cleanup(c.Close)
	waitForAgents(t, s, 1)

	want := event.KeyTransition{VirtualKey: 0x41, Pressed: true}
	s.BroadcastEvent(want)

	select {
	case got := <-c.Events():
		if got != event.Event(want) {
			t.Errorf("received %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client did not surface the broadcast event")
	}
}
