package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub tracks one client per user plus the set of users subscribed to each
// room channel. It is the arena's Broadcaster: Publish fans an event out to
// every subscriber of a room, Target delivers to one user. Fan-out happens
// in call order, so room broadcasts reach each client's send queue in the
// order they were committed.
type Hub struct {
	mu     sync.Mutex
	byUser map[string]*Client
	rooms  map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		byUser: map[string]*Client{},
		rooms:  map[string]map[string]struct{}{},
	}
}

// register installs the client as the user's live connection, closing any
// previous one. The newer socket always wins.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	old := h.byUser[c.userID]
	h.byUser[c.userID] = c
	h.mu.Unlock()
	if old != nil && old != c {
		old.close()
	}
}

// unregister forgets the client if it is still the user's live connection.
// It reports whether the client was current; a stale socket's teardown must
// not ripple into presence handling.
func (h *Hub) unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byUser[c.userID] != c {
		return false
	}
	delete(h.byUser, c.userID)
	return true
}

func (h *Hub) Subscribe(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = map[string]struct{}{}
		h.rooms[roomID] = members
	}
	members[userID] = struct{}{}
}

func (h *Hub) Unsubscribe(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Publish(roomID, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode broadcast")
		return
	}
	h.mu.Lock()
	targets := make([]*Client, 0, 2)
	for userID := range h.rooms[roomID] {
		if c, ok := h.byUser[userID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()
	for _, c := range targets {
		c.enqueue(msg)
	}
}

func (h *Hub) Target(userID, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode targeted event")
		return
	}
	h.mu.Lock()
	c, ok := h.byUser[userID]
	h.mu.Unlock()
	if ok {
		c.enqueue(msg)
	}
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: event, Data: raw})
}
