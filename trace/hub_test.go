package trace

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nstehr/warren/warren-core/ai"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		resp.Body.Close()
	})
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubStreamsDecisions(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	all := dial(t, base)
	keeperOnly := dial(t, base+"?player=keeper")
	waitFor(t, func() bool { return hub.Subscribers() == 2 })

	hub.Publish("rival", ai.Decision{Agent: 1, Time: 4})
	hub.Observer("keeper")(ai.Decision{Agent: 2, Time: 5, Winner: ai.Candidate{Behavior: "fighter", Action: "attack", Value: 0.9}})

	read := func(conn *websocket.Conn) Event {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatal(err)
		}
		return ev
	}

	if ev := read(all); ev.Player != "rival" || ev.Decision.Agent != 1 {
		t.Errorf("first event = %+v", ev)
	}
	if ev := read(all); ev.Player != "keeper" {
		t.Errorf("second event = %+v", ev)
	}
	ev := read(keeperOnly)
	if ev.Player != "keeper" || ev.Decision.Winner.Behavior != "fighter" {
		t.Errorf("filtered viewer got %+v", ev)
	}
}

func TestHubDropsDisconnectedViewers(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	waitFor(t, func() bool { return hub.Subscribers() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.Subscribers() == 0 })

	// Publishing with nobody listening is a no-op.
	hub.Publish("keeper", ai.Decision{})
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	s := &subscriber{send: make(chan []byte, 1)}
	hub.subs[s] = struct{}{}

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*4; i++ {
			hub.Publish("keeper", ai.Decision{Agent: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full viewer")
	}
	if len(s.send) != 1 {
		t.Errorf("buffered = %d, want 1", len(s.send))
	}
}
