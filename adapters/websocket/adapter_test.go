package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"scorekeeper/core"
	"scorekeeper/realtime"
)

func dial(t *testing.T, server *httptest.Server, query string, header http.Header) (*gorillaws.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + server.URL[len("http"):] + query // convert http->ws
	return gorillaws.DefaultDialer.Dial(wsURL, header)
}

func waitForSubscribers(t *testing.T, hub *realtime.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandlerStreamsEvents(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub, Options{}))
	defer server.Close()

	conn, _, err := dial(t, server, "", nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()
	waitForSubscribers(t, hub, 1)

	hub.Broadcast(context.Background(), core.NewScoreSubmitted(core.ScoreEntry{ID: 1, Score: 5, Name: "alice"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var received core.Event
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if received.Name != "alice" || received.Score != 5 {
		t.Fatalf("unexpected event: %+v", received)
	}
}

func TestHandlerFiltersTypes(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub, Options{}))
	defer server.Close()

	conn, _, err := dial(t, server, "?types=score_evicted", nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()
	waitForSubscribers(t, hub, 1)

	hub.Broadcast(context.Background(), core.NewScoreSubmitted(core.ScoreEntry{ID: 1, Score: 5, Name: "kept"}))
	hub.Broadcast(context.Background(), core.NewScoreEvicted(core.ScoreEntry{ID: 2, Score: 1, Name: "gone"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var received core.Event
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if received.Type != core.EventScoreEvicted || received.Name != "gone" {
		t.Fatalf("unexpected event: %+v", received)
	}
}

func TestHandlerRejectsOrigin(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub, Options{AllowedOrigins: []string{"https://game.example"}}))
	defer server.Close()

	_, resp, err := dial(t, server, "", http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}

	conn, _, err := dial(t, server, "", http.Header{"Origin": {"https://game.example"}})
	if err != nil {
		t.Fatalf("dial allowed origin: %v", err)
	}
	conn.Close()
}

func TestHandlerUnsubscribesOnDisconnect(t *testing.T) {
	hub := realtime.NewHub()
	server := httptest.NewServer(Handler(hub, Options{}))
	defer server.Close()

	conn, _, err := dial(t, server, "", nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	waitForSubscribers(t, hub, 1)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
