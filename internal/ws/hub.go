package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub tracks live clients and their room subscriptions. A room is keyed by
// conversation id.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	joined  map[*Client]map[string]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		joined:  make(map[*Client]map[string]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Remove drops the client and all of its room subscriptions.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.joined[c] {
		h.leaveLocked(room, c)
	}
	delete(h.joined, c)
	delete(h.clients, c)
}

// Join subscribes c to room. Joining twice is a no-op.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	if h.joined[c] == nil {
		h.joined[c] = make(map[string]struct{})
	}
	h.joined[c][room] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
	if rooms, ok := h.joined[c]; ok {
		delete(rooms, room)
	}
}

func (h *Hub) leaveLocked(room string, c *Client) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// InRoom reports whether c is subscribed to room.
func (h *Hub) InRoom(room string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

// BroadcastRoom sends payload to every subscriber of room except skip.
func (h *Hub) BroadcastRoom(room string, payload any, skip *Client) {
	msg, ok := h.encode(payload)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != skip {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(msg)
	}
}

// BroadcastRoomExceptUser sends payload to every subscriber of room that is
// not identified as userID.
func (h *Hub) BroadcastRoomExceptUser(room string, payload any, userID int64) {
	msg, ok := h.encode(payload)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c.UserID() != userID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(msg)
	}
}

// BroadcastAll sends payload to every connected client.
func (h *Hub) BroadcastAll(payload any) {
	msg, ok := h.encode(payload)
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(msg)
	}
}

// SendTo delivers payload to a single client.
func (h *Hub) SendTo(c *Client, payload any) {
	if msg, ok := h.encode(payload); ok {
		c.Send(msg)
	}
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Close()
	}
}

func (h *Hub) encode(payload any) ([]byte, bool) {
	msg, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encode event", "error", err)
		return nil, false
	}
	return msg, true
}
