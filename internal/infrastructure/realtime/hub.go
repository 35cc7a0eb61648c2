package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub indexes live connections by room and fans committed payloads out to
// them. One member holds at most one connection per room; a newer connection
// replaces the previous one.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Connection // roomID -> memberID -> connection
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]*Connection)}
}

// Join adds the connection to its room index and returns the connection it
// replaced, if any. The caller is expected to close the replaced connection
// with CloseSessionReplaced after releasing its own references.
func (h *Hub) Join(conn *Connection) *Connection {
	h.mu.Lock()
	room := h.rooms[conn.RoomID]
	if room == nil {
		room = make(map[string]*Connection)
		h.rooms[conn.RoomID] = room
	}
	previous := room[conn.MemberID]
	room[conn.MemberID] = conn
	h.mu.Unlock()

	if previous == conn {
		return nil
	}
	return previous
}

// Leave removes the connection from its room, but only if it is still the
// tracked occupant; a replaced connection leaving late must not evict its
// successor.
func (h *Hub) Leave(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[conn.RoomID]
	if room == nil {
		return
	}
	if current := room[conn.MemberID]; current != conn {
		return
	}
	delete(room, conn.MemberID)
	if len(room) == 0 {
		delete(h.rooms, conn.RoomID)
	}
}

// Broadcast delivers payload to every live session in the room and returns the
// delivery count. A connection whose send fails is evicted from the room and
// closed; its registry entry is cleaned up by its own read-loop teardown.
func (h *Hub) Broadcast(roomID string, payload []byte) int {
	h.mu.RLock()
	room := h.rooms[roomID]
	conns := make([]*Connection, 0, len(room))
	for _, c := range room {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	delivered := 0
	var failed []*Connection
	for _, c := range conns {
		if err := c.Send(payload); err != nil {
			failed = append(failed, c)
			continue
		}
		delivered++
	}
	for _, c := range failed {
		h.Leave(c)
		c.Close(websocket.CloseGoingAway, "write failed")
	}
	return delivered
}

// RoomSize returns the number of live sessions in a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
