// internal/live/hub.go
//
// Websocket fan-out of game state. Each game has a set of subscribed
// connections; every change to the game is pushed to all of them as JSON.
// Clients only listen: plays go through the HTTP API.

package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

// Event is the message pushed to subscribers.
type Event struct {
	Type string `json:"type"` // "state"
	Game any    `json:"game"`
}

// subscriber is one connection with its own outgoing queue. Only its
// writer goroutine touches conn for writing.
type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// Hub tracks subscribers per game.
type Hub struct {
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub builds a hub that accepts upgrades from allowedOrigin only.
// An empty origin accepts any.
func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return allowedOrigin == "" || o == "" || o == allowedOrigin
		}},
		subs: make(map[string]map[*subscriber]struct{}),
	}
}

// Serve upgrades the request, sends the initial snapshot and keeps the
// connection subscribed to gameID until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, gameID string, initial any) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("ws upgrade")
		return
	}
	sub := &subscriber{conn: conn, send: make(chan Event, sendBuffer)}

	// Registering and queueing the initial snapshot together keeps it ahead
	// of any broadcast.
	h.mu.Lock()
	set, ok := h.subs[gameID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[gameID] = set
	}
	set[sub] = struct{}{}
	sub.send <- Event{Type: "state", Game: initial}
	h.mu.Unlock()
	log.Debug().Str("gameId", gameID).Msg("ws subscribed")

	go h.writeLoop(gameID, sub)

	// Drain until the peer closes; we ignore anything it sends.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.drop(gameID, sub)
			return
		}
	}
}

// Broadcast queues the game snapshot for every subscriber of gameID.
// It never blocks on the network: a subscriber whose queue is full is dropped.
func (h *Hub) Broadcast(gameID string, snapshot any) {
	ev := Event{Type: "state", Game: snapshot}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[gameID] {
		select {
		case sub.send <- ev:
		default:
			log.Debug().Str("gameId", gameID).Msg("ws subscriber too slow; dropping")
			h.remove(gameID, sub)
		}
	}
}

// subscribers reports how many connections follow gameID.
func (h *Hub) subscribers(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[gameID])
}

// writeLoop sends queued events in order until the queue is closed or a
// write fails.
func (h *Hub) writeLoop(gameID string, sub *subscriber) {
	defer sub.conn.Close()
	for ev := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Str("gameId", gameID).Msg("ws write failed; dropping")
			h.drop(gameID, sub)
			return
		}
	}
}

func (h *Hub) drop(gameID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(gameID, sub)
}

// remove unsubscribes sub and closes its queue, which stops its writer;
// h.mu must be held.
func (h *Hub) remove(gameID string, sub *subscriber) {
	set := h.subs[gameID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, gameID)
	}
	close(sub.send)
}
