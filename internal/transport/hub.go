package transport

import (
	"log"
	"sync"

	"github.com/tonktable/tonkd/internal/rules"
)

// Hub fans outbound events out to connected clients and implements
// table.Broadcaster so a Registry of Table sessions can reach them without
// knowing anything about websockets. One Hub serves every table a process
// owns; clients are grouped into per-table rooms plus a flat per-user index
// for the events (gameError, walletBalanceUpdate, ackLeaveRequest) that
// target a single player rather than a room.
//
// Grounded on the teacher's pkg/server/notifications.go NotificationStream
// registry (per-player stream map, best-effort send, silently drop if the
// player has no live connection) generalized from a gRPC server-stream per
// player to a plain websocket connection per player.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]*Client // tableID -> userID -> Client
	clients map[string]*Client            // userID -> Client (last connection wins)
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[string]*Client),
		clients: make(map[string]*Client),
	}
}

// Join registers c as tableID's connection for its user, replacing any
// prior connection for the same user at the same table (a reconnect).
func (h *Hub) Join(tableID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[tableID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[tableID] = room
	}
	if old, exists := room[c.userID]; exists && old != c {
		close(old.send)
	}
	room[c.userID] = c
	h.clients[c.userID] = c
}

// Leave unregisters c from tableID's room. A no-op if c is no longer the
// room's current connection for its user (superseded by a reconnect).
func (h *Hub) Leave(tableID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[tableID]; ok {
		if room[c.userID] == c {
			delete(room, c.userID)
		}
		if len(room) == 0 {
			delete(h.rooms, tableID)
		}
	}
	if h.clients[c.userID] == c {
		delete(h.clients, c.userID)
	}
}

func (h *Hub) sendTo(c *Client, msg ServerMessage) {
	select {
	case c.send <- msg:
	default:
		log.Printf("transport: dropping %s for %s, send buffer full", msg.Type, c.userID)
	}
}

func (h *Hub) roomMembers(tableID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.rooms[tableID]
	out := make([]*Client, 0, len(room))
	for _, c := range room {
		out = append(out, c)
	}
	return out
}

func (h *Hub) clientFor(userID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	return c, ok
}

// InitialGameState implements table.Broadcaster.
func (h *Hub) InitialGameState(tableID, userID string, state *rules.GameState) {
	c, ok := h.clientFor(userID)
	if !ok {
		return
	}
	h.sendTo(c, ServerMessage{Type: EventInitialGameState, Data: map[string]any{"gameState": state}})
}

// GameStateUpdate implements table.Broadcaster.
func (h *Hub) GameStateUpdate(tableID string, state *rules.GameState) {
	for _, c := range h.roomMembers(tableID) {
		h.sendTo(c, ServerMessage{Type: EventGameStateUpdate, Data: map[string]any{"gameState": state}})
	}
}

// TableUpdate implements table.Broadcaster.
func (h *Hub) TableUpdate(tableID, message string, state *rules.GameState) {
	payload := map[string]any{"message": message}
	if state != nil {
		payload["gameState"] = state
	}
	for _, c := range h.roomMembers(tableID) {
		h.sendTo(c, ServerMessage{Type: EventTableUpdate, Data: payload})
	}
}

// WalletBalanceUpdate implements table.Broadcaster.
func (h *Hub) WalletBalanceUpdate(userID string, balance int64) {
	c, ok := h.clientFor(userID)
	if !ok {
		return
	}
	h.sendTo(c, ServerMessage{Type: EventWalletBalanceUpdate, Data: map[string]any{
		"userId":  userID,
		"balance": balance,
	}})
}

// PlayerLeft implements table.Broadcaster.
func (h *Hub) PlayerLeft(tableID, userID string) {
	for _, c := range h.roomMembers(tableID) {
		h.sendTo(c, ServerMessage{Type: EventPlayerLeft, Data: map[string]any{"userId": userID}})
	}
}

// GameError implements table.Broadcaster.
func (h *Hub) GameError(userID, message string) {
	c, ok := h.clientFor(userID)
	if !ok {
		return
	}
	h.sendTo(c, ServerMessage{Type: EventGameError, Data: map[string]any{"message": message}})
}

// AckLeaveRequest implements table.Broadcaster.
func (h *Hub) AckLeaveRequest(userID string) {
	c, ok := h.clientFor(userID)
	if !ok {
		return
	}
	h.sendTo(c, ServerMessage{Type: EventAckLeaveRequest, Data: map[string]any{}})
}
