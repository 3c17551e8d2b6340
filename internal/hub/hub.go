package hub

import (
	"encoding/json"
	"sync"

	"github.com/campfire-tv/backend/pkg/log"
)

// Hub is the channel room directory: an in-memory mapping from channel id to
// the set of connected clients subscribed to that channel's chat. It is
// owned exclusively by the relay; all operations are synchronous and never
// block on I/O. State is scoped to process lifetime — clients rejoin on
// reconnect.
type Hub struct {
	clients map[string]*Client            // client id -> client
	rooms   map[string]map[string]*Client // channel id -> client id -> client
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// Register adds a connected client to the directory.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	l := log.L()
	l.Debug().Str(log.FieldSessionID, client.ID).Msg("client registered")
}

// Unregister removes a client from every room and closes its send channel.
// Safe to call more than once for the same client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for channelID, members := range h.rooms {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, channelID)
		}
	}
	delete(h.clients, client.ID)
	close(client.Send)

	l := log.L()
	l.Debug().Str(log.FieldSessionID, client.ID).Msg("client unregistered")
}

// Join adds a client to a channel's room, creating the room if absent.
// Joining a room the client is already in is a no-op.
func (h *Hub) Join(channelID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[channelID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[channelID] = members
	}
	members[client.ID] = client
}

// Leave removes a client from a channel's room. Empty rooms are pruned.
// Leaving a room the client is not in is a no-op.
func (h *Hub) Leave(channelID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[channelID]
	if !ok {
		return
	}
	delete(members, client.ID)
	if len(members) == 0 {
		delete(h.rooms, channelID)
	}
}

// Targets returns a snapshot of the clients currently in a channel's room.
// Membership may change after the snapshot is taken; delivery is
// at-least-once to the clients present at call time.
func (h *Hub) Targets(channelID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[channelID]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// RoomSize returns the number of clients in a channel's room.
func (h *Hub) RoomSize(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[channelID])
}

// Broadcast marshals the event once and delivers it to every client in the
// channel's room. Clients whose send buffer is full are skipped; the write
// pump's ping/pong deadlines will tear a dead connection down.
func (h *Hub) Broadcast(channelID string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	for _, c := range h.Targets(channelID) {
		if !c.sendRaw(data) {
			l := log.L()
			l.Warn().
				Str(log.FieldSessionID, c.ID).
				Str(log.FieldChannelID, channelID).
				Msg("send buffer full, dropping broadcast for client")
		}
	}
	return nil
}
