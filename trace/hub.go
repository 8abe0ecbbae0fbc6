// Package trace streams arbitration decisions to websocket viewers.
package trace

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/nstehr/warren/warren-core/ai"
)

const sendBuffer = 64

// Event is one decision as sent to viewers.
type Event struct {
	Player   string      `json:"player"`
	Decision ai.Decision `json:"decision"`
}

type subscriber struct {
	player string // empty follows every player
	send   chan []byte
}

// Hub fans decisions out to connected viewers. Publishing never blocks
// the tick loop: a viewer that falls behind loses events.
type Hub struct {
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
	dropLog  rate.Sometimes
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return &Hub{
		subs:     make(map[*subscriber]struct{}),
		upgrader: upgrader,
		logger:   logger,
		dropLog:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Observer returns an arbiter observer that publishes for player.
func (h *Hub) Observer(player string) ai.Observer {
	return func(d ai.Decision) { h.Publish(player, d) }
}

func (h *Hub) Publish(player string, d ai.Decision) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) == 0 {
		return
	}
	data, err := json.Marshal(Event{Player: player, Decision: d})
	if err != nil {
		h.logger.Warn("trace event not encoded", "error", err)
		return
	}
	for s := range h.subs {
		if s.player != "" && s.player != player {
			continue
		}
		select {
		case s.send <- data:
		default:
			h.dropLog.Do(func() {
				h.logger.Warn("trace viewer falling behind, dropping events", "player", s.player)
			})
		}
	}
}

// Subscribers counts connected viewers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request and streams events until the viewer
// disconnects. ?player= restricts the stream to one player.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("trace upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s := &subscriber{player: r.URL.Query().Get("player"), send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("trace viewer connected", "remote", r.RemoteAddr, "player", s.player)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for data := range s.send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	// Viewers send nothing; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.subs, s)
	close(s.send)
	h.mu.Unlock()
	<-done
	conn.Close()
	h.logger.Info("trace viewer disconnected", "remote", r.RemoteAddr)
}
